// internal/affection/messages.go
package affection

import (
	"fmt"

	"github.com/Corphon/SweetAffection/internal/models"
)

// 各分支的旁白，%s 为角色名
const (
	msgRepeat          = "同样的话说第二遍就没意思了呢。"
	msgInvalid         = "输入内容过短，%s似乎没有理解。"
	msgSpam            = "一直说同一个词，是卡住了吗？"
	msgInsultZero      = "你的言论让%s感到受到了严重的冒犯！好感度降至冰点。"
	msgInsult          = "这种话非常伤人，%s看起来很难过。"
	msgSexualZero      = "%s被你的话吓到了，好感度降至冰点！"
	msgSexual          = "这样的话题对%s来说似乎太早了，她看起来很不自在。"
	msgDisrespect      = "这样说话不太礼貌，%s皱起了眉头。"
	msgBoringStreak    = "和你的对话越来越没意思了，%s已经不想再继续了。"
	msgBoring          = "刚才的话题有点干巴巴的呢...%s看起来没什么精神。"
	msgSharedInterest  = "💫 发现了共同话题！"
	msgRudeBehavior    = "😠 你的行为让她感到不舒服"
	msgConfession      = "【剧情推进：%s主动告白】"
	msgConfessAccepted = "【甜蜜结局：两情相悦】"
	msgConfessRejected = "【遗憾结局：错过良缘】"
)

const narrativeConfession = `夕阳把烘焙社的窗台染成了橘红色。%[1]s把一盒刚烤好的曲奇塞到%[2]s手里，低着头小声说：
"其实……从百团大战那天起，我就一直很在意你。和你聊天的每一天都很开心。%[2]s，我喜欢你。你愿意……和我在一起吗？"`

const narrativeAccepted = `%[2]s握住了%[1]s微微发抖的手。她先是一愣，随即笑得眼睛都弯了起来。
那天之后，烘焙社的试吃名单上多了一个固定的名字。两个人的故事，才刚刚开始。`

const narrativeRejected = `%[1]s的笑容僵了一瞬，又很快恢复了平静："嗯，我明白了。我们……还是好朋友。"
她转身收拾烤盘的动作有些慢。窗外的夕阳落下去了，有些话，终究没能说出口。`

// 玩家主动告白的反馈
const (
	confessPerfect  = "%s的脸颊泛起红晕，眼中闪烁着难以置信的幸福光芒……'我……我也是！从很久以前开始！'"
	confessGood     = "%s害羞地低下了头，嘴角却忍不住上扬，'嗯……我愿意……'"
	confessCritical = "%s看起来非常困扰和尴尬，'对不起……我一直只把你当普通同学……我们以后还是别这样了。'"
	confessHeavy    = "%s愣了一下，有些为难地说：'这太突然了……我想我还需要一些时间考虑……对不起。'"
	confessLight    = "%s沉默了一会儿，轻声说：'我很珍惜现在的关系……能再给我一点时间吗？'"
	confessFinished = "故事已经结束了。"
)

func (e *Engine) say(format string) string {
	return fmt.Sprintf(format, e.cfg.CharacterName)
}

func (e *Engine) narrate(format string) string {
	return fmt.Sprintf(format, e.cfg.CharacterName, e.cfg.PlayerName)
}

func compositeMessage(event models.AffectionEvent) string {
	switch event {
	case models.EventSharedInterest:
		return msgSharedInterest
	case models.EventRudeBehavior:
		return msgRudeBehavior
	default:
		return ""
	}
}
