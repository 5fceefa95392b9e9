// internal/models/affection.go
package models

// AffectionEvent 单轮对话的概括事件
type AffectionEvent string

const (
	EventNormalDialogue AffectionEvent = "NORMAL_DIALOGUE" // 普通对话
	EventSharedInterest AffectionEvent = "SHARED_INTEREST" // 兴趣共鸣
	EventDateAccepted   AffectionEvent = "DATE_ACCEPTED"   // 成功邀约
	EventConfession     AffectionEvent = "CONFESSION"      // 告白
	EventTabooTopic     AffectionEvent = "TABOO_TOPIC"     // 触犯禁忌
	EventBoringTalk     AffectionEvent = "BORING_TALK"     // 无聊对话
	EventRudeBehavior   AffectionEvent = "RUDE_BEHAVIOR"   // 粗鲁行为
	EventInappropriate  AffectionEvent = "INAPPROPRIATE"   // 不得体言论
	EventInvalidInput   AffectionEvent = "INVALID_INPUT"   // 无效输入
)

// SocialRisk 社交风险等级
type SocialRisk string

const (
	RiskLow    SocialRisk = "low"
	RiskMedium SocialRisk = "medium"
	RiskHigh   SocialRisk = "high"
)

// KeywordCategory 词典关键词类别
type KeywordCategory string

const (
	KeywordPositive KeywordCategory = "positive"
	KeywordNegative KeywordCategory = "negative"
	KeywordInterest KeywordCategory = "interest"
)

// ContentCategory 不当内容类别
type ContentCategory string

const (
	ContentInsult     ContentCategory = "insult"
	ContentSexualHint ContentCategory = "sexual_hint"
	ContentDisrespect ContentCategory = "disrespect"
)

// CategorySet 不当内容类别集合
type CategorySet map[ContentCategory]struct{}

// NewCategorySet 由类别列表构造集合
func NewCategorySet(categories ...ContentCategory) CategorySet {
	set := make(CategorySet, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return set
}

// Has 判断集合中是否包含某类别
func (s CategorySet) Has(c ContentCategory) bool {
	_, ok := s[c]
	return ok
}

// List 按固定顺序返回类别
func (s CategorySet) List() []ContentCategory {
	out := make([]ContentCategory, 0, len(s))
	for _, c := range []ContentCategory{ContentInsult, ContentSexualHint, ContentDisrespect} {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// ContentVerdict 内容审查结果
type ContentVerdict struct {
	Categories CategorySet `json:"categories"`
	MatchCount int         `json:"match_count"` // 所有模式的命中次数之和
}

// Empty 未命中任何不当内容
func (v ContentVerdict) Empty() bool {
	return len(v.Categories) == 0
}

// Message 对话历史中的一条消息
type Message struct {
	Role    string `json:"role"` // user / assistant
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Ending 结局类型
type Ending string

const (
	EndingNone    Ending = ""
	EndingHappy   Ending = "happy_ending"
	EndingSad     Ending = "sad_ending"
	EndingBad     Ending = "bad_ending"
	EndingGood    Ending = "good_ending"
	EndingPerfect Ending = "perfect_ending"
)

// Phase 关系阶段
type Phase string

const (
	PhaseStranger     Phase = "stranger"
	PhaseAcquaintance Phase = "acquaintance"
	PhaseFriend       Phase = "friend"
	PhaseCloseFriend  Phase = "close_friend"
	PhaseRomantic     Phase = "romantic"
)

// DebugInfo 单轮评分的调试信息
type DebugInfo struct {
	Reason             string            `json:"reason,omitempty"`
	SocialRisk         SocialRisk        `json:"social_risk"`
	SentimentDelta     float64           `json:"sentiment_delta,omitempty"`
	KeywordDelta       float64           `json:"keyword_delta,omitempty"`
	MatchedKeywords    []string          `json:"matched_keywords,omitempty"`
	ContextDelta       float64           `json:"context_delta,omitempty"`
	QualityDelta       float64           `json:"quality_delta,omitempty"`
	GentlemanDelta     float64           `json:"gentleman_delta,omitempty"`
	BoringScore        float64           `json:"boring_score,omitempty"`
	BoringFactors      []string          `json:"boring_factors,omitempty"`
	GentlemanlyScore   float64           `json:"gentlemanly_score,omitempty"`
	GentlemanlyFactors []string          `json:"gentlemanly_factors,omitempty"`
	Jitter             float64           `json:"jitter,omitempty"`
	MoodFactor         float64           `json:"mood_factor,omitempty"`
	PatienceFactor     float64           `json:"patience_factor,omitempty"`
	RawDelta           float64           `json:"raw_delta,omitempty"`
	Volatility         float64           `json:"volatility,omitempty"`
	Categories         []ContentCategory `json:"categories,omitempty"`
	MatchCount         int               `json:"match_count,omitempty"`
	InstantZero        bool              `json:"instant_zero,omitempty"`
	AnalyzerFallback   bool              `json:"analyzer_fallback,omitempty"`
}

// DialogueResult ProcessDialogue 的返回结果
type DialogueResult struct {
	Delta             float64        `json:"delta"`
	CurrentAffection  float64        `json:"current_affection"`
	PreviousAffection float64        `json:"previous_affection"`
	Event             AffectionEvent `json:"event"`
	Message           string         `json:"message,omitempty"`
	Narrative         string         `json:"narrative,omitempty"`
	Ending            Ending         `json:"ending,omitempty"`
	Completed         bool           `json:"completed"`
	Debug             DebugInfo      `json:"debug_info"`
}

// ConfessionResult 玩家主动告白结果
type ConfessionResult struct {
	Success           bool    `json:"success"`
	Message           string  `json:"message"`
	Ending            Ending  `json:"ending,omitempty"`
	PreviousAffection float64 `json:"previous_affection"`
	CurrentAffection  float64 `json:"current_affection"`
	Completed         bool    `json:"completed"`
}

// AffectionSnapshot 情感状态的扁平快照，用于持久化
type AffectionSnapshot struct {
	Closeness           float64  `json:"closeness"`
	Mood                float64  `json:"mood"`
	Patience            float64  `json:"patience"`
	SocialBalance       float64  `json:"social_balance"`
	RedFlags            []string `json:"red_flags"`
	RecentInputs        []string `json:"recent_inputs"`
	BoringStreak        int      `json:"boring_streak"`
	RudeStreak          int      `json:"rude_streak"`
	ConfessionTriggered bool     `json:"confession_triggered"`
	ConfessionResponse  string   `json:"confession_response,omitempty"`
	Ending              Ending   `json:"ending,omitempty"`
	Completed           bool     `json:"completed"`
}
