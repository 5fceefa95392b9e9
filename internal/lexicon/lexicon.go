// internal/lexicon/lexicon.go
package lexicon

import (
	"fmt"
	"os"

	"github.com/Corphon/SweetAffection/internal/config"
	"github.com/Corphon/SweetAffection/internal/models"
	"github.com/Corphon/SweetAffection/internal/utils"
)

// PatternSet 一类不当内容的字面词与正则
type PatternSet struct {
	Words    []string `json:"words" yaml:"words"`
	Patterns []string `json:"patterns" yaml:"patterns"`
}

// ContentRules 三类不当内容规则
type ContentRules struct {
	Insult     PatternSet `json:"insult" yaml:"insult"`
	SexualHint PatternSet `json:"sexual_hint" yaml:"sexual_hint"`
	Disrespect PatternSet `json:"disrespect" yaml:"disrespect"`
}

// Lexicon 词典数据。构建完成后由各组件只读共享
type Lexicon struct {
	Keywords          map[models.KeywordCategory][]string `json:"keywords" yaml:"keywords"`
	Vocabulary        []string                            `json:"vocabulary" yaml:"vocabulary"`
	Stopwords         []string                            `json:"stopwords" yaml:"stopwords"`
	PositiveSentiment []string                            `json:"positive_sentiment" yaml:"positive_sentiment"`
	NegativeSentiment []string                            `json:"negative_sentiment" yaml:"negative_sentiment"`
	Negations         []string                            `json:"negations" yaml:"negations"`
	Content           ContentRules                        `json:"content" yaml:"content"`
}

// Default 内置词典
func Default() *Lexicon {
	return &Lexicon{
		Keywords: map[models.KeywordCategory][]string{
			models.KeywordPositive: {"开心", "喜欢", "有趣", "可爱", "温柔", "漂亮", "好吃", "期待", "幸福", "谢谢", "佩服", "欣赏"},
			models.KeywordNegative: {"讨厌", "无聊", "难过", "烦人", "恶心", "生气", "难吃", "没意思", "丑", "累死了"},
			models.KeywordInterest: {"烘焙", "蛋糕", "甜点", "曲奇", "马卡龙", "面包", "音乐", "电影", "读书", "小说", "旅行", "画画", "摄影", "猫咪"},
		},
		Vocabulary: []string{
			"你好", "我们", "你们", "他们", "她们", "今天", "明天", "后天", "周末", "下周", "放学后", "下课后",
			"什么", "怎么", "为什么", "如何", "觉得", "认为", "知道", "可以", "一起", "真的", "非常", "这个", "那个",
			"没有", "时候", "学校", "同学", "老师", "社团", "社团活动", "招新", "报名", "活动", "学习", "考试", "作业",
			"教室", "操场", "图书馆", "食堂", "烘焙社", "公园", "街道", "游乐场", "电影院", "咖啡厅",
			"兴趣", "爱好", "朋友", "喜欢你", "天气", "周末见", "再见", "拜拜", "下次",
		},
		Stopwords:         []string{"什么", "怎么", "为什么", "如何"},
		PositiveSentiment: []string{"开心", "高兴", "喜欢", "有趣", "好吃", "可爱", "漂亮", "厉害", "谢谢", "期待", "幸福", "温暖", "棒", "美好", "快乐", "感谢", "欣赏"},
		NegativeSentiment: []string{"讨厌", "难过", "无聊", "生气", "烦", "恶心", "累", "失望", "糟糕", "难吃", "伤心", "痛苦", "害怕"},
		Negations:         []string{"不", "没", "别", "不是", "没有"},
		Content: ContentRules{
			Insult: PatternSet{
				Words:    []string{"笨蛋", "白痴", "废物", "垃圾", "智障", "脑残", "神经病", "猪脑子", "婊子", "臭表子", "破鞋", "烂货", "荡妇"},
				Patterns: []string{`傻[逼比屄]`, `贱[人货]`, `蠢[猪货]`, `骚[货逼]`},
			},
			SexualHint: PatternSet{
				Words: []string{"高潮", "艹", "做爱", "爱爱", "肏", "鸡巴", "屌", "摸奶", "摸胸", "丝袜", "调教", "抚摸", "舌吻", "啪啪", "打炮", "一夜情", "约炮", "想上", "想操", "猥亵"},
				Patterns: []string{`脱[光衣]`, `射[精了]`, `操[你他她它]`, `日[你他她它]`, `[睡日草操艹透]服`, `插[进入你]`, `[大小]奶`,
					`摸.*腿`, `脱.*裤`, `揉.*胸`},
			},
			Disrespect: PatternSet{
				Words: []string{"闭嘴", "滚开", "滚蛋", "放屁", "去死", "我命令你", "听话", "乖乖", "别装", "装什么"},
				Patterns: []string{`^你敢`, `给我服[从软]`, `^跪[下来着]`, `别[废话BB逼逼]`, `^废话`, `^放[屁P]`,
					`[你谁]算[老几什么]`},
			},
		},
	}
}

// AllKeywords 全部分类关键词
func (l *Lexicon) AllKeywords() []string {
	var out []string
	for _, c := range []models.KeywordCategory{models.KeywordPositive, models.KeywordNegative, models.KeywordInterest} {
		out = append(out, l.Keywords[c]...)
	}
	return out
}

// TokenizerVocabulary 分词词表：通用词、关键词与情感词
func (l *Lexicon) TokenizerVocabulary() []string {
	out := append([]string{}, l.Vocabulary...)
	out = append(out, l.AllKeywords()...)
	out = append(out, l.PositiveSentiment...)
	out = append(out, l.NegativeSentiment...)
	return out
}

// Validate 至少需要一类关键词与一条词表
func (l *Lexicon) Validate() error {
	if len(l.AllKeywords()) == 0 {
		return fmt.Errorf("词典缺少关键词")
	}
	if _, err := compilePatterns(l.Content.Insult.Patterns); err != nil {
		return err
	}
	if _, err := compilePatterns(l.Content.SexualHint.Patterns); err != nil {
		return err
	}
	if _, err := compilePatterns(l.Content.Disrespect.Patterns); err != nil {
		return err
	}
	return nil
}

// Load 从 JSON/YAML 文件加载词典并覆盖默认值；
// path 为空或加载失败时返回内置词典
func Load(path string) *Lexicon {
	if path == "" {
		return Default()
	}

	lex, err := loadFile(path)
	if err != nil {
		utils.GetLogger().Warn("词典加载失败，使用内置默认词典", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return Default()
	}
	return lex
}

func loadFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取词典失败: %w", err)
	}

	lex := Default()
	if err := config.DecodeByExtension(path, data, lex); err != nil {
		return nil, err
	}
	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return lex, nil
}
