// internal/scene/trigger.go
package scene

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Corphon/SweetAffection/internal/config"
	"github.com/Corphon/SweetAffection/internal/lexicon"
	"github.com/Corphon/SweetAffection/internal/models"
	"github.com/Corphon/SweetAffection/internal/utils"
)

const dateLayout = "2006-01-02"

var (
	// 对话中提到日期
	datePatterns = compileAll(
		`周[一二三四五六日]`, `下周`, `明天`, `后天`, `周末`,
		`下周[一二三四五六日]`, `放学后`, `下课后`,
	)
	// 回复中出现具体时间时需要等对话说完
	specificTimePatterns = compileAll(
		`周[一二三四五六日]`, `下周`, `明天`, `后天`, `这周[一二三四五六日]`,
		`上午`, `中午`, `下午`, `傍晚`, `晚上`, `[0-9]+点`, `[0-9]+:[0-9]+`,
	)
)

var timeIntros = map[models.TimeOfDay][]string{
	models.Morning:   {"在%s的早晨，", "清晨的阳光洒在校园里，", "新的一天开始了，"},
	models.Noon:      {"到了%s的中午，", "正午的阳光正盛，", "午休时间到了，"},
	models.Afternoon: {"下午的%s，", "午后温暖的阳光中，", "下午的时光里，"},
	models.Evening:   {"傍晚的%s，", "夕阳西下时分，", "天色渐暗，"},
	models.Night:     {"夜晚的%s，", "夜色中的校园格外安静，", "繁星点点的夜空下，"},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Trigger 根据对话内容决定何时切换场景、日期与时段。
// 非并发安全，由所属会话串行调用
type Trigger struct {
	cfg    config.SceneConfig
	rng    utils.RandomSource
	logger *utils.Logger
	state  models.SceneState
}

// NewTrigger 以配置中的初始场景创建触发器
func NewTrigger(cfg config.SceneConfig, rng utils.RandomSource, logger *utils.Logger) *Trigger {
	if rng == nil {
		rng = utils.NewSeededSource(0)
	}
	if logger == nil {
		logger = utils.GetLogger()
	}

	date, err := time.Parse(dateLayout, cfg.InitialDate)
	if err != nil {
		logger.Warn("初始日期格式错误，使用当天日期", map[string]interface{}{
			"initial_date": cfg.InitialDate,
			"error":        err.Error(),
		})
		now := time.Now()
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	initialTime := cfg.InitialTime
	if initialTime == "" {
		initialTime = models.Morning
	}

	return &Trigger{
		cfg:    cfg,
		rng:    rng,
		logger: logger,
		state: models.SceneState{
			CurrentScene:     cfg.InitialScene,
			CurrentDate:      date,
			CurrentTimeOfDay: initialTime,
		},
	}
}

// State 当前场景状态的副本
func (t *Trigger) State() models.SceneState {
	s := t.state
	if s.PendingTransition != nil {
		p := *s.PendingTransition
		s.PendingTransition = &p
	}
	return s
}

// Restore 从存档恢复
func (t *Trigger) Restore(s models.SceneState) {
	if s.PendingTransition != nil {
		p := *s.PendingTransition
		s.PendingTransition = &p
	}
	t.state = s
}

// ObserveTopic 记录当前话题，用于判断话题是否持续过久
func (t *Trigger) ObserveTopic(topic string) {
	if topic == "" {
		return
	}
	if topic == t.state.LastTopic {
		t.state.TopicDuration++
		return
	}
	t.state.LastTopic = topic
	t.state.TopicDuration = 1
}

// Observe 以触发器自身记录的场景、日期与时段分析一轮对话
func (t *Trigger) Observe(userInput, reply string) *models.TransitionPlan {
	return t.AnalyzeConversation(userInput, reply, t.state.CurrentScene, t.state.CurrentDate, t.state.CurrentTimeOfDay)
}

// AnalyzeConversation 分析一轮对话。返回非 nil 表示场景已切换，
// 需要延迟的计划先挂起，之后第 DeferTurns 轮才返回
func (t *Trigger) AnalyzeConversation(userInput, reply, currentScene string, currentDate time.Time, currentTime models.TimeOfDay) *models.TransitionPlan {
	t.state.TurnCount++

	if t.state.PendingTransition != nil {
		t.state.PendingDelay++
		if t.state.PendingDelay >= t.cfg.DeferTurns {
			plan := t.state.PendingTransition
			t.state.PendingTransition = nil
			t.state.PendingDelay = 0
			t.apply(plan)
			return plan
		}
	}

	if t.state.LastChangeTurn > 0 && t.state.TurnsSinceLastChange() < t.cfg.Cooldown {
		return nil
	}

	score, keyword, suggested := t.score(userInput, reply)
	if score < t.cfg.ChangeThreshold {
		return nil
	}

	newDate := currentDate
	if keyword != "" {
		newDate = advanceDate(currentDate, keyword, t.rng)
	}
	if suggested == "" {
		suggested = t.selectScene(currentScene, currentTime)
	}

	t.state.LastChangeTurn = t.state.TurnCount
	t.state.TopicDuration = 0

	plan := &models.TransitionPlan{
		ShouldChange: true,
		FromScene:    currentScene,
		NewScene:     suggested,
		NewDate:      newDate,
		NewTime:      t.selectTime(suggested),
		Keyword:      keyword,
		Score:        score,
	}

	if t.shouldDefer(userInput, reply) {
		t.state.PendingTransition = plan
		t.state.PendingDelay = 0
		t.logger.Debug("场景切换延后", map[string]interface{}{
			"new_scene": plan.NewScene,
			"score":     score,
		})
		return nil
	}

	t.apply(plan)
	return plan
}

func (t *Trigger) apply(plan *models.TransitionPlan) {
	t.state.CurrentScene = plan.NewScene
	t.state.CurrentDate = plan.NewDate
	t.state.CurrentTimeOfDay = plan.NewTime
	t.logger.Info("场景切换", map[string]interface{}{
		"from": plan.FromScene,
		"to":   plan.NewScene,
		"date": plan.NewDate.Format(dateLayout),
		"time": plan.NewTime,
	})
}

// score 返回切换得分、最后命中的时间短语及其建议场景
func (t *Trigger) score(userInput, reply string) (float64, string, string) {
	mentions := func(s string) bool {
		return strings.Contains(userInput, s) || strings.Contains(reply, s)
	}

	score := 0.0
	keyword, suggested := "", ""
	for _, tk := range t.cfg.TransitionKeywords {
		if mentions(tk.Keyword) {
			keyword = tk.Keyword
			suggested = utils.Pick(t.rng, tk.Scenes)
			score += t.cfg.RelativeTimeWeight
		}
	}

	for _, f := range t.cfg.Farewells {
		if mentions(f) {
			score += t.cfg.FarewellWeight
		}
	}

	if t.state.LastTopic != "" && t.state.TopicDuration > t.cfg.TopicPersistTurns {
		score += t.cfg.TopicWeight
	}

	for _, re := range datePatterns {
		if re.MatchString(userInput) || re.MatchString(reply) {
			score += t.cfg.DatePatternWeight
		}
	}

	for _, loc := range t.cfg.Locations {
		if mentions(loc) {
			score += t.cfg.LocationWeight
		}
	}
	return score, keyword, suggested
}

func (t *Trigger) shouldDefer(userInput, reply string) bool {
	if strings.ContainsAny(reply, "?？") {
		return true
	}
	for _, cue := range t.cfg.LogisticsCues {
		if strings.Contains(userInput, cue) || strings.Contains(reply, cue) {
			return true
		}
	}
	if strings.ContainsAny(userInput, "?？") && lexicon.RuneLen(reply) < t.cfg.ShortReplyRunes {
		return true
	}
	for _, re := range specificTimePatterns {
		if re.MatchString(reply) {
			return true
		}
	}
	return false
}

// selectScene 当前时段允许的其他场景，没有时留在原地
func (t *Trigger) selectScene(current string, at models.TimeOfDay) string {
	var candidates []string
	for _, spec := range t.cfg.Scenes {
		if spec.Name == current {
			continue
		}
		for _, allowed := range spec.AllowedTimes {
			if allowed == at {
				candidates = append(candidates, spec.Name)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return current
	}
	return utils.Pick(t.rng, candidates)
}

func (t *Trigger) selectTime(scene string) models.TimeOfDay {
	allowed := t.cfg.AllowedTimes(scene)
	if len(allowed) == 0 {
		return models.Morning
	}
	return allowed[t.rng.Intn(len(allowed))]
}

// advanceDate 按时间短语推进日期
func advanceDate(date time.Time, keyword string, rng utils.RandomSource) time.Time {
	switch {
	case strings.Contains(keyword, "下周"):
		return date.AddDate(0, 0, 7)
	case strings.Contains(keyword, "明天"):
		return date.AddDate(0, 0, 1)
	case strings.Contains(keyword, "周末"):
		days := (int(time.Saturday) - int(date.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return date.AddDate(0, 0, days)
	case strings.Contains(keyword, "下次"), strings.Contains(keyword, "再见面"):
		return date.AddDate(0, 0, rng.Intn(3)+1)
	}
	return date
}

// Describe 场景切换的旁白
func (t *Trigger) Describe(plan *models.TransitionPlan) string {
	if plan == nil {
		return ""
	}

	intro := "时间过去了，"
	if options, ok := timeIntros[plan.NewTime]; ok {
		intro = utils.Pick(t.rng, options)
		if strings.Contains(intro, "%s") {
			intro = fmt.Sprintf(intro, plan.NewDate.Format("2006年01月02日"))
		}
	}

	description := utils.Pick(t.rng, t.cfg.Describe(plan.NewScene))
	if description == "" {
		description = "你来到了新的地点。"
	}

	arrival := "你来到了"
	if plan.FromScene == plan.NewScene {
		arrival = "你们依然在"
	}
	return fmt.Sprintf("【%s - %s】\n%s%s%s。%s", plan.NewTime.Label(), plan.NewScene, intro, arrival, plan.NewScene, description)
}
