// internal/affection/engine.go
package affection

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/Corphon/SweetAffection/internal/analyzer"
	"github.com/Corphon/SweetAffection/internal/config"
	apperrors "github.com/Corphon/SweetAffection/internal/errors"
	"github.com/Corphon/SweetAffection/internal/lexicon"
	"github.com/Corphon/SweetAffection/internal/models"
	"github.com/Corphon/SweetAffection/internal/utils"
)

// ErrSessionCompleted 结局已触发后继续对话
var ErrSessionCompleted = apperrors.NewSessionCompletedError("会话已进入结局，无法继续对话")

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

const (
	confessionAccepted = "accepted"
	confessionRejected = "rejected"
)

// state 引擎独占的情感状态
type state struct {
	closeness     float64
	mood          float64
	patience      float64
	socialBalance float64
	redFlags      []string
	recentInputs  []string
	boringStreak  int
	rudeStreak    int

	confessionTriggered bool
	confessionResponse  string
	ending              models.Ending
	completed           bool
}

// Engine 亲密度状态机。每个会话一个实例，非并发安全
type Engine struct {
	cfg       *config.AffectionConfig
	keywords  *KeywordClassifier
	evaluator *DialogueEvaluator
	analyzer  analyzer.Analyzer
	rng       utils.RandomSource
	logger    *utils.Logger

	st state
}

// Option 引擎可选项
type Option func(*Engine)

// WithRandom 注入随机源
func WithRandom(r utils.RandomSource) Option {
	return func(e *Engine) { e.rng = r }
}

// WithLogger 注入日志器
func WithLogger(l *utils.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithAnalyzer 注入情感分析器；未注入时情感恒为中性
func WithAnalyzer(a analyzer.Analyzer) Option {
	return func(e *Engine) { e.analyzer = a }
}

// NewEngine 创建引擎，cfg 为空时使用默认配置
func NewEngine(cfg *config.AffectionConfig, keywords *KeywordClassifier, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.DefaultAffectionConfig()
	}
	e := &Engine{
		cfg:       cfg,
		keywords:  keywords,
		evaluator: NewDialogueEvaluator(keywords),
		st: state{
			closeness:     clamp(cfg.InitialCloseness, 0, 100),
			mood:          cfg.InitialMood,
			patience:      cfg.InitialPatience,
			socialBalance: cfg.InitialSocialBalance,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = utils.NewSeededSource(0)
	}
	if e.logger == nil {
		e.logger = utils.GetLogger()
	}
	return e
}

// Keywords 引擎使用的关键词分类器
func (e *Engine) Keywords() *KeywordClassifier {
	return e.keywords
}

// Closeness 当前亲密度
func (e *Engine) Closeness() float64 {
	return e.st.closeness
}

// Completed 会话是否已进入结局
func (e *Engine) Completed() bool {
	return e.st.completed
}

// ProcessDialogue 处理一轮玩家输入，按固定顺序短路
func (e *Engine) ProcessDialogue(ctx context.Context, input string, history []models.Message) (*models.DialogueResult, error) {
	if e.st.completed {
		return nil, ErrSessionCompleted
	}

	prev := e.st.closeness
	if res := e.confessionStep(input, prev); res != nil {
		return e.finish(res), nil
	}

	// 无效输入不进入重复历史
	if lexicon.RuneLen(strings.TrimSpace(input)) < e.minInputRunes() {
		adjust(&e.st.patience, -e.cfg.Penalties.InvalidPatience)
		return e.finish(e.result(prev, models.EventInvalidInput, e.say(msgInvalid), models.DebugInfo{
			Reason:     "输入过短或无效",
			SocialRisk: models.RiskLow,
		})), nil
	}

	if e.isRepeat(input) {
		e.st.boringStreak++
		adjust(&e.st.patience, -e.cfg.Penalties.RepeatPatience)
		e.addCloseness(-e.cfg.Penalties.RepeatCloseness * e.cfg.DifficultyFactor)
		return e.finish(e.result(prev, models.EventBoringTalk, msgRepeat, models.DebugInfo{
			Reason:     "完全重复的输入",
			SocialRisk: models.RiskMedium,
		})), nil
	}
	e.remember(input)

	if spam := repeatedWords(input, e.cfg.Penalties.SpamRepeatLimit); len(spam) > 0 {
		e.st.boringStreak++
		adjust(&e.st.patience, -e.cfg.Penalties.SpamPatience)
		e.addCloseness(-e.cfg.Penalties.SpamCloseness)
		return e.finish(e.result(prev, models.EventBoringTalk, msgSpam, models.DebugInfo{
			Reason:     "单个词汇重复多次: " + strings.Join(spam, ","),
			SocialRisk: models.RiskMedium,
		})), nil
	}

	e.checkRapidFire()

	if verdict := e.keywords.Inspect(input); !verdict.Empty() {
		return e.finish(e.applyContentPenalty(prev, verdict)), nil
	}

	gentleScore, gentleFactors := e.evaluator.EvaluateGentlemanly(input, history)
	boringScore, boringFactors := e.evaluator.EvaluateBoringness(input, history, e.st.closeness)
	if boringScore > e.cfg.Penalties.BoredomThreshold {
		return e.finish(e.applyBoredom(prev, boringScore, boringFactors)), nil
	}

	return e.finish(e.composite(ctx, prev, input, history, gentleScore, gentleFactors, boringScore, boringFactors)), nil
}

func (e *Engine) confessionStep(input string, prev float64) *models.DialogueResult {
	c := e.cfg.Confession
	if !e.st.confessionTriggered && e.st.closeness >= c.TriggerCloseness {
		e.st.confessionTriggered = true
		res := e.result(prev, models.EventConfession, e.say(msgConfession), models.DebugInfo{
			Reason:     "亲密度达到告白阈值",
			SocialRisk: e.SocialRisk(),
		})
		res.Narrative = e.narrate(narrativeConfession)
		return res
	}

	if !e.st.confessionTriggered || e.st.confessionResponse != "" {
		return nil
	}

	switch matchConfessionReply(input, c.AcceptKeywords, c.RejectKeywords) {
	case confessionAccepted:
		e.st.confessionResponse = confessionAccepted
		e.st.closeness = clamp(c.AcceptCloseness, 0, 100)
		e.endWith(models.EndingHappy)
		res := e.result(prev, models.EventConfession, msgConfessAccepted, models.DebugInfo{
			Reason:     "接受告白",
			SocialRisk: e.SocialRisk(),
		})
		res.Narrative = e.narrate(narrativeAccepted)
		return res
	case confessionRejected:
		e.st.confessionResponse = confessionRejected
		e.st.closeness = clamp(c.RejectCloseness, 0, 100)
		e.endWith(models.EndingSad)
		res := e.result(prev, models.EventConfession, msgConfessRejected, models.DebugInfo{
			Reason:     "拒绝告白",
			SocialRisk: e.SocialRisk(),
		})
		res.Narrative = e.narrate(narrativeRejected)
		return res
	}
	return nil
}

// matchConfessionReply 最长命中的关键词决定结果；等长或带否定词时按拒绝处理
func matchConfessionReply(input string, accept, reject []string) string {
	text := strings.TrimSpace(input)
	longest := func(words []string) int {
		best := 0
		for _, w := range words {
			if w != "" && strings.Contains(text, w) && len(w) > best {
				best = len(w)
			}
		}
		return best
	}

	a, r := longest(accept), longest(reject)
	switch {
	case a == 0 && r == 0:
		return ""
	case r >= a:
		return confessionRejected
	case negated(text):
		return confessionRejected
	default:
		return confessionAccepted
	}
}

// confessionNegations 出现时接受类关键词不再算数
var confessionNegations = []string{"不能", "不可以", "不行", "不想", "不要", "不愿", "没办法", "对不起", "抱歉"}

func negated(text string) bool {
	for _, w := range confessionNegations {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// minInputRunes 亲密度达到 FamiliarCloseness 后改用较宽松的长度下限
func (e *Engine) minInputRunes() int {
	if e.cfg.FamiliarMinInputRunes > 0 && e.cfg.FamiliarCloseness > 0 && e.st.closeness >= e.cfg.FamiliarCloseness {
		return e.cfg.FamiliarMinInputRunes
	}
	return e.cfg.MinInputRunes
}

func (e *Engine) isRepeat(input string) bool {
	for _, prev := range e.st.recentInputs {
		if prev == input {
			return true
		}
	}
	return false
}

func (e *Engine) remember(input string) {
	e.st.recentInputs = append(e.st.recentInputs, input)
	if over := len(e.st.recentInputs) - e.cfg.RecentInputWindow; over > 0 {
		e.st.recentInputs = append([]string(nil), e.st.recentInputs[over:]...)
	}
}

// repeatedWords 出现超过 limit 次且长度大于 1 的词
func repeatedWords(input string, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, w := range wordPattern.FindAllString(input, -1) {
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	var out []string
	for _, w := range order {
		if counts[w] > limit && lexicon.RuneLen(w) > 1 {
			out = append(out, w)
		}
	}
	return out
}

func (e *Engine) checkRapidFire() {
	recent := e.st.recentInputs
	if len(recent) < 3 {
		return
	}
	for _, in := range recent[len(recent)-3:] {
		if lexicon.RuneLen(in) >= e.cfg.Penalties.RapidFireRunes {
			return
		}
	}
	adjust(&e.st.patience, -e.cfg.Penalties.RapidFirePatience)
	adjust(&e.st.socialBalance, -e.cfg.Penalties.RapidFireSocial)
}

func (e *Engine) applyContentPenalty(prev float64, verdict models.ContentVerdict) *models.DialogueResult {
	c := e.cfg.Content
	d := e.cfg.DifficultyFactor
	n := float64(verdict.MatchCount)
	kinds := len(verdict.Categories)

	var penalty float64
	var msg string
	zero := false

	switch {
	case verdict.Categories.Has(models.ContentInsult):
		if kinds >= c.InsultZeroCategories || e.rng.Float64() < c.InsultZeroProbability {
			zero, msg = true, e.say(msgInsultZero)
		} else {
			penalty, msg = math.Min(c.InsultCap, c.InsultPerMatch*n*d), e.say(msgInsult)
		}
	case verdict.Categories.Has(models.ContentSexualHint):
		if kinds >= c.SexualZeroCategories ||
			(e.st.closeness < c.SexualClosenessGate && e.rng.Float64() < c.SexualZeroProbability) {
			zero, msg = true, e.say(msgSexualZero)
		} else {
			penalty, msg = math.Min(c.SexualCap, c.SexualPerMatch*n*d), e.say(msgSexual)
		}
	default:
		penalty, msg = math.Min(c.DisrespectCap, c.DisrespectPerMatch*n*d), e.say(msgDisrespect)
	}
	if zero {
		penalty = e.st.closeness
	}

	e.st.rudeStreak++
	if e.st.rudeStreak == c.RedFlagStreak {
		e.st.redFlags = append(e.st.redFlags, c.RedFlagLabel)
	}
	adjust(&e.st.socialBalance, -c.SocialPenalty)
	e.addCloseness(-penalty)

	return e.result(prev, models.EventInappropriate, msg, models.DebugInfo{
		Reason:      "不得体言论",
		SocialRisk:  models.RiskHigh,
		Categories:  verdict.Categories.List(),
		MatchCount:  verdict.MatchCount,
		InstantZero: zero,
	})
}

func (e *Engine) applyBoredom(prev, score float64, factors []string) *models.DialogueResult {
	p := e.cfg.Penalties
	e.st.boringStreak++
	adjust(&e.st.mood, -p.BoredomMood)
	adjust(&e.st.patience, -p.BoredomPatience)

	if e.st.boringStreak >= p.BoringStreakLimit {
		adjust(&e.st.socialBalance, -p.BoringStreakSocial)
		e.addCloseness(-p.BoringStreakPenalty * e.cfg.DifficultyFactor)
		return e.result(prev, models.EventBoringTalk, e.say(msgBoringStreak), models.DebugInfo{
			Reason:        "连续多次无聊对话",
			SocialRisk:    models.RiskHigh,
			BoringScore:   score,
			BoringFactors: factors,
		})
	}

	e.addCloseness(-score * p.BoredomScale * e.cfg.DifficultyFactor)
	return e.result(prev, models.EventBoringTalk, e.say(msgBoring), models.DebugInfo{
		Reason:        "单次无聊对话",
		SocialRisk:    models.RiskMedium,
		BoringScore:   score,
		BoringFactors: factors,
	})
}

func (e *Engine) composite(ctx context.Context, prev float64, input string, history []models.Message,
	gentleScore float64, gentleFactors []string, boringScore float64, boringFactors []string) *models.DialogueResult {
	cc := e.cfg.Composite
	d := e.cfg.DifficultyFactor

	analysis, fallback := e.analyze(ctx, input)

	sentimentDelta := analysis.Sentiment * cc.SentimentWeight
	keywordResult := e.keywords.AnalyzeKeywords(e.keywords.ExtractKeywords(input))
	contextDelta := analysis.Coherence*cc.CoherenceWeight + e.evaluator.EvaluateContextRelevance(input, history)
	qualityDelta := e.evaluator.EvaluateInputQuality(input)
	gentlemanDelta := gentleScore / cc.GentlemanDivisor

	total := sentimentDelta + keywordResult.Delta + contextDelta + qualityDelta + gentlemanDelta
	jitter := utils.Uniform(e.rng, cc.JitterMin, cc.JitterMax)
	total += jitter

	moodFactor := e.st.mood / 50
	patienceFactor := e.st.patience / 100
	if total < 0 {
		total *= (2 - moodFactor) * d
	} else {
		total *= moodFactor * cc.PositiveMoodScale
	}
	total *= patienceFactor
	raw := total

	maxLoss := -cc.MaxLoss * d
	total = clamp(total, maxLoss, cc.MaxGain)

	volatility := 0.0
	if e.rng.Float64() < cc.VolatilityProbability {
		volatility = utils.Uniform(e.rng, cc.VolatilityMin, cc.VolatilityMax) * d
		total = math.Max(total-volatility, maxLoss)
	}

	e.addCloseness(total)

	if total > 0.5 {
		adjust(&e.st.mood, 2*total)
		if e.st.patience < 80 {
			adjust(&e.st.patience, 2)
		}
	} else if total < -0.5 {
		adjust(&e.st.mood, total)
		adjust(&e.st.patience, -3)
	}
	e.st.boringStreak = 0
	e.st.rudeStreak = 0

	event := models.EventNormalDialogue
	switch {
	case total > cc.SharedInterestDelta:
		event = models.EventSharedInterest
	case total < cc.RudeBehaviorDelta:
		event = models.EventRudeBehavior
	}

	return e.result(prev, event, compositeMessage(event), models.DebugInfo{
		Reason:             "综合评分",
		SocialRisk:         e.SocialRisk(),
		SentimentDelta:     sentimentDelta,
		KeywordDelta:       keywordResult.Delta,
		MatchedKeywords:    keywordResult.Matched,
		ContextDelta:       contextDelta,
		QualityDelta:       qualityDelta,
		GentlemanDelta:     gentlemanDelta,
		BoringScore:        boringScore,
		BoringFactors:      boringFactors,
		GentlemanlyScore:   gentleScore,
		GentlemanlyFactors: gentleFactors,
		Jitter:             jitter,
		MoodFactor:         moodFactor,
		PatienceFactor:     patienceFactor,
		RawDelta:           raw,
		Volatility:         volatility,
		AnalyzerFallback:   fallback,
	})
}

// analyze 分析失败时返回中性结果，不阻断评分
func (e *Engine) analyze(ctx context.Context, input string) (analyzer.Analysis, bool) {
	if e.analyzer == nil {
		return analyzer.Neutral, false
	}
	a, err := e.analyzer.Analyze(ctx, input)
	if err != nil {
		e.logger.Warn("情感分析失败，使用中性结果", map[string]interface{}{"error": err.Error()})
		return analyzer.Neutral, true
	}
	a.Sentiment = clamp(a.Sentiment, -0.5, 0.5)
	a.Coherence = clamp(a.Coherence, 0, 1)
	return a, false
}

func (e *Engine) result(prev float64, event models.AffectionEvent, msg string, debug models.DebugInfo) *models.DialogueResult {
	return &models.DialogueResult{
		Delta:             e.st.closeness - prev,
		CurrentAffection:  e.st.closeness,
		PreviousAffection: prev,
		Event:             event,
		Message:           msg,
		Ending:            e.st.ending,
		Completed:         e.st.completed,
		Debug:             debug,
	}
}

func (e *Engine) finish(res *models.DialogueResult) *models.DialogueResult {
	e.logger.Debug("对话评分完成", map[string]interface{}{
		"event":     res.Event,
		"delta":     res.Delta,
		"closeness": res.CurrentAffection,
		"reason":    res.Debug.Reason,
	})
	return res
}

func (e *Engine) addCloseness(delta float64) {
	e.st.closeness = clamp(e.st.closeness+delta, 0, 100)
}

func (e *Engine) endWith(ending models.Ending) {
	e.st.ending = ending
	e.st.completed = true
}

func adjust(v *float64, delta float64) {
	*v = clamp(*v+delta, 0, 100)
}
