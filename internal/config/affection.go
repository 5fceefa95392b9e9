// internal/config/affection.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Corphon/SweetAffection/internal/models"
	"github.com/Corphon/SweetAffection/internal/utils"
	"gopkg.in/yaml.v3"
)

// AffectionConfig 情感引擎的全部可调参数
type AffectionConfig struct {
	CharacterName string `json:"character_name" yaml:"character_name"`
	PlayerName    string `json:"player_name" yaml:"player_name"`

	InitialCloseness     float64 `json:"initial_closeness" yaml:"initial_closeness"`
	InitialMood          float64 `json:"initial_mood" yaml:"initial_mood"`
	InitialPatience      float64 `json:"initial_patience" yaml:"initial_patience"`
	InitialSocialBalance float64 `json:"initial_social_balance" yaml:"initial_social_balance"`
	DifficultyFactor     float64 `json:"difficulty_factor" yaml:"difficulty_factor"`

	MinInputRunes         int            `json:"min_input_runes" yaml:"min_input_runes"`
	FamiliarMinInputRunes int            `json:"familiar_min_input_runes" yaml:"familiar_min_input_runes"` // 熟悉后放宽的下限
	FamiliarCloseness     float64        `json:"familiar_closeness" yaml:"familiar_closeness"`
	RecentInputWindow     int            `json:"recent_input_window" yaml:"recent_input_window"`
	KeywordWeights        KeywordWeights `json:"keyword_weights" yaml:"keyword_weights"`
	KeywordDecayThreshold int            `json:"keyword_decay_threshold" yaml:"keyword_decay_threshold"`

	Penalties  PenaltyConfig        `json:"penalties" yaml:"penalties"`
	Content    ContentPenaltyConfig `json:"content" yaml:"content"`
	Composite  CompositeConfig      `json:"composite" yaml:"composite"`
	Confession ConfessionConfig     `json:"confession" yaml:"confession"`

	Storylines []StorylineThreshold `json:"storylines" yaml:"storylines"`
	Scene      SceneConfig          `json:"scene" yaml:"scene"`
	Topics     []TopicTier          `json:"topics" yaml:"topics"`
	Tips       []string             `json:"tips" yaml:"tips"`
}

// KeywordWeights 各关键词类别单次贡献
type KeywordWeights struct {
	Positive float64 `json:"positive" yaml:"positive"`
	Negative float64 `json:"negative" yaml:"negative"`
	Interest float64 `json:"interest" yaml:"interest"`
}

// PenaltyConfig 重复、刷屏、无聊等短路分支的惩罚
type PenaltyConfig struct {
	RepeatCloseness     float64 `json:"repeat_closeness" yaml:"repeat_closeness"` // × 难度系数
	RepeatPatience      float64 `json:"repeat_patience" yaml:"repeat_patience"`
	InvalidPatience     float64 `json:"invalid_patience" yaml:"invalid_patience"`
	SpamCloseness       float64 `json:"spam_closeness" yaml:"spam_closeness"` // 固定值
	SpamPatience        float64 `json:"spam_patience" yaml:"spam_patience"`
	SpamRepeatLimit     int     `json:"spam_repeat_limit" yaml:"spam_repeat_limit"`
	RapidFireRunes      int     `json:"rapid_fire_runes" yaml:"rapid_fire_runes"`
	RapidFirePatience   float64 `json:"rapid_fire_patience" yaml:"rapid_fire_patience"`
	RapidFireSocial     float64 `json:"rapid_fire_social" yaml:"rapid_fire_social"`
	BoredomThreshold    float64 `json:"boredom_threshold" yaml:"boredom_threshold"`
	BoredomScale        float64 `json:"boredom_scale" yaml:"boredom_scale"`
	BoredomMood         float64 `json:"boredom_mood" yaml:"boredom_mood"`
	BoredomPatience     float64 `json:"boredom_patience" yaml:"boredom_patience"`
	BoringStreakLimit   int     `json:"boring_streak_limit" yaml:"boring_streak_limit"`
	BoringStreakPenalty float64 `json:"boring_streak_penalty" yaml:"boring_streak_penalty"`
	BoringStreakSocial  float64 `json:"boring_streak_social" yaml:"boring_streak_social"`
}

// ContentPenaltyConfig 不当内容处罚
type ContentPenaltyConfig struct {
	InsultZeroProbability float64 `json:"insult_zero_probability" yaml:"insult_zero_probability"`
	SexualZeroProbability float64 `json:"sexual_zero_probability" yaml:"sexual_zero_probability"`
	SexualClosenessGate   float64 `json:"sexual_closeness_gate" yaml:"sexual_closeness_gate"`
	InsultZeroCategories  int     `json:"insult_zero_categories" yaml:"insult_zero_categories"`
	SexualZeroCategories  int     `json:"sexual_zero_categories" yaml:"sexual_zero_categories"`
	InsultPerMatch        float64 `json:"insult_per_match" yaml:"insult_per_match"`
	InsultCap             float64 `json:"insult_cap" yaml:"insult_cap"`
	SexualPerMatch        float64 `json:"sexual_per_match" yaml:"sexual_per_match"`
	SexualCap             float64 `json:"sexual_cap" yaml:"sexual_cap"`
	DisrespectPerMatch    float64 `json:"disrespect_per_match" yaml:"disrespect_per_match"`
	DisrespectCap         float64 `json:"disrespect_cap" yaml:"disrespect_cap"`
	SocialPenalty         float64 `json:"social_penalty" yaml:"social_penalty"`
	RedFlagStreak         int     `json:"red_flag_streak" yaml:"red_flag_streak"`
	RedFlagLabel          string  `json:"red_flag_label" yaml:"red_flag_label"`
}

// CompositeConfig 综合评分与调制参数
type CompositeConfig struct {
	SentimentWeight       float64 `json:"sentiment_weight" yaml:"sentiment_weight"`
	CoherenceWeight       float64 `json:"coherence_weight" yaml:"coherence_weight"`
	GentlemanDivisor      float64 `json:"gentleman_divisor" yaml:"gentleman_divisor"`
	JitterMin             float64 `json:"jitter_min" yaml:"jitter_min"`
	JitterMax             float64 `json:"jitter_max" yaml:"jitter_max"`
	PositiveMoodScale     float64 `json:"positive_mood_scale" yaml:"positive_mood_scale"`
	MaxGain               float64 `json:"max_gain" yaml:"max_gain"`
	MaxLoss               float64 `json:"max_loss" yaml:"max_loss"` // × 难度系数
	VolatilityProbability float64 `json:"volatility_probability" yaml:"volatility_probability"`
	VolatilityMin         float64 `json:"volatility_min" yaml:"volatility_min"`
	VolatilityMax         float64 `json:"volatility_max" yaml:"volatility_max"`
	SharedInterestDelta   float64 `json:"shared_interest_delta" yaml:"shared_interest_delta"`
	RudeBehaviorDelta     float64 `json:"rude_behavior_delta" yaml:"rude_behavior_delta"`
}

// ConfessionConfig 告白流程参数
type ConfessionConfig struct {
	TriggerCloseness  float64  `json:"trigger_closeness" yaml:"trigger_closeness"`
	AcceptKeywords    []string `json:"accept_keywords" yaml:"accept_keywords"`
	RejectKeywords    []string `json:"reject_keywords" yaml:"reject_keywords"`
	AcceptCloseness   float64  `json:"accept_closeness" yaml:"accept_closeness"`
	RejectCloseness   float64  `json:"reject_closeness" yaml:"reject_closeness"`
	SuccessCloseness  float64  `json:"success_closeness" yaml:"success_closeness"`
	PerfectCloseness  float64  `json:"perfect_closeness" yaml:"perfect_closeness"`
	MaxRedFlags       int      `json:"max_red_flags" yaml:"max_red_flags"`
	PerfectBonus      float64  `json:"perfect_bonus" yaml:"perfect_bonus"`
	GoodBonus         float64  `json:"good_bonus" yaml:"good_bonus"`
	BadEndingBelow    float64  `json:"bad_ending_below" yaml:"bad_ending_below"`
	HeavyPenaltyBelow float64  `json:"heavy_penalty_below" yaml:"heavy_penalty_below"`
	HeavyPenalty      float64  `json:"heavy_penalty" yaml:"heavy_penalty"`
	LightPenalty      float64  `json:"light_penalty" yaml:"light_penalty"`
}

// StorylineThreshold 剧情阈值
type StorylineThreshold struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Label     string  `json:"label" yaml:"label"`
}

// TopicTier 按亲密度开放的话题组
type TopicTier struct {
	Name      string   `json:"name" yaml:"name"`
	Threshold float64  `json:"threshold" yaml:"threshold"`
	Topics    []string `json:"topics" yaml:"topics"`
}

// SceneSpec 场景及其允许的时段
type SceneSpec struct {
	Name         string             `json:"name" yaml:"name"`
	AllowedTimes []models.TimeOfDay `json:"allowed_times" yaml:"allowed_times"`
	Descriptions []string           `json:"descriptions" yaml:"descriptions"`
}

// TransitionKeyword 相对时间短语及其建议的场景
type TransitionKeyword struct {
	Keyword string   `json:"keyword" yaml:"keyword"`
	Scenes  []string `json:"scenes" yaml:"scenes"`
}

// SceneConfig 场景触发器参数
type SceneConfig struct {
	InitialScene       string              `json:"initial_scene" yaml:"initial_scene"`
	InitialDate        string              `json:"initial_date" yaml:"initial_date"` // 2006-01-02
	InitialTime        models.TimeOfDay    `json:"initial_time" yaml:"initial_time"`
	Cooldown           int                 `json:"cooldown" yaml:"cooldown"`
	DeferTurns         int                 `json:"defer_turns" yaml:"defer_turns"`
	ChangeThreshold    float64             `json:"change_threshold" yaml:"change_threshold"`
	TopicPersistTurns  int                 `json:"topic_persist_turns" yaml:"topic_persist_turns"`
	ShortReplyRunes    int                 `json:"short_reply_runes" yaml:"short_reply_runes"`
	RelativeTimeWeight float64             `json:"relative_time_weight" yaml:"relative_time_weight"`
	FarewellWeight     float64             `json:"farewell_weight" yaml:"farewell_weight"`
	TopicWeight        float64             `json:"topic_weight" yaml:"topic_weight"`
	DatePatternWeight  float64             `json:"date_pattern_weight" yaml:"date_pattern_weight"`
	LocationWeight     float64             `json:"location_weight" yaml:"location_weight"`
	Scenes             []SceneSpec         `json:"scenes" yaml:"scenes"`
	TransitionKeywords []TransitionKeyword `json:"transition_keywords" yaml:"transition_keywords"`
	Farewells          []string            `json:"farewells" yaml:"farewells"`
	Locations          []string            `json:"locations" yaml:"locations"`
	LogisticsCues      []string            `json:"logistics_cues" yaml:"logistics_cues"`
}

// AllowedTimes 返回场景允许的时段，未知场景允许全部时段
func (s SceneConfig) AllowedTimes(scene string) []models.TimeOfDay {
	for _, spec := range s.Scenes {
		if spec.Name == scene {
			return spec.AllowedTimes
		}
	}
	return models.AllTimesOfDay
}

// Describe 返回场景的描述文本列表
func (s SceneConfig) Describe(scene string) []string {
	for _, spec := range s.Scenes {
		if spec.Name == scene {
			return spec.Descriptions
		}
	}
	return nil
}

// DefaultAffectionConfig 内置默认配置
func DefaultAffectionConfig() *AffectionConfig {
	return &AffectionConfig{
		CharacterName: "苏糖",
		PlayerName:    "陈辰",

		InitialCloseness:     30,
		InitialMood:          50,
		InitialPatience:      100,
		InitialSocialBalance: 50,
		DifficultyFactor:     1.2,

		MinInputRunes:         3,
		FamiliarMinInputRunes: 2,
		FamiliarCloseness:     40,
		RecentInputWindow:     5,
		KeywordWeights:        KeywordWeights{Positive: 1.5, Negative: -2.5, Interest: 2.0},
		KeywordDecayThreshold: 3,

		Penalties: PenaltyConfig{
			RepeatCloseness:     3,
			RepeatPatience:      10,
			InvalidPatience:     5,
			SpamCloseness:       3,
			SpamPatience:        8,
			SpamRepeatLimit:     2,
			RapidFireRunes:      15,
			RapidFirePatience:   5,
			RapidFireSocial:     3,
			BoredomThreshold:    7,
			BoredomScale:        0.6,
			BoredomMood:         10,
			BoredomPatience:     10,
			BoringStreakLimit:   3,
			BoringStreakPenalty: 15,
			BoringStreakSocial:  15,
		},
		Content: ContentPenaltyConfig{
			InsultZeroProbability: 0.10,
			SexualZeroProbability: 0.30,
			SexualClosenessGate:   60,
			InsultZeroCategories:  2,
			SexualZeroCategories:  3,
			InsultPerMatch:        20,
			InsultCap:             80,
			SexualPerMatch:        15,
			SexualCap:             60,
			DisrespectPerMatch:    10,
			DisrespectCap:         40,
			SocialPenalty:         20,
			RedFlagStreak:         2,
			RedFlagLabel:          "repeated_rudeness",
		},
		Composite: CompositeConfig{
			SentimentWeight:       2.5,
			CoherenceWeight:       2,
			GentlemanDivisor:      2,
			JitterMin:             -0.5,
			JitterMax:             1.0,
			PositiveMoodScale:     0.85,
			MaxGain:               6,
			MaxLoss:               6,
			VolatilityProbability: 0.10,
			VolatilityMin:         0.3,
			VolatilityMax:         1.0,
			SharedInterestDelta:   4,
			RudeBehaviorDelta:     -4,
		},
		Confession: ConfessionConfig{
			TriggerCloseness:  100,
			AcceptKeywords:    []string{"我也喜欢你", "我愿意", "做你的男朋友", "接受", "我也是", "同意", "在一起", "喜欢你", "爱你", "好的"},
			RejectKeywords:    []string{"抱歉", "对不起", "做朋友", "拒绝", "不行", "不能", "不要", "不好", "朋友", "不接受"},
			AcceptCloseness:   100,
			RejectCloseness:   60,
			SuccessCloseness:  75,
			PerfectCloseness:  90,
			MaxRedFlags:       1,
			PerfectBonus:      15,
			GoodBonus:         10,
			BadEndingBelow:    40,
			HeavyPenaltyBelow: 50,
			HeavyPenalty:      15,
			LightPenalty:      8,
		},
		Storylines: []StorylineThreshold{
			{Threshold: 30, Label: "初始阶段"},
			{Threshold: 45, Label: "渐渐熟悉"},
			{Threshold: 60, Label: "成为朋友"},
			{Threshold: 75, Label: "关系深入"},
			{Threshold: 90, Label: "亲密关系"},
			{Threshold: 100, Label: "甜蜜告白"},
		},
		Scene:  defaultSceneConfig(),
		Topics: defaultTopics(),
		Tips: []string{
			"温馨提示: 保持对话的新鲜感和深度，避免重复和单调的对话",
			"温馨提示: 尊重对方，使用礼貌用语会提升她对你的好感",
			"温馨提示: 注意倾听并回应她的问题，不要自顾自地说话",
			"温馨提示: 过早表白可能会适得其反，需要足够的感情基础",
			"温馨提示: 与她分享共同兴趣可以快速拉近关系",
			"温馨提示: 连续的无聊对话会导致她失去兴趣",
			"温馨提示: 不当言论会严重损害关系，请保持绅士风度",
			"温馨提示: 游戏难度已提高，好感度更容易下降",
		},
	}
}

func defaultTopics() []TopicTier {
	return []TopicTier{
		{Name: "初始话题", Threshold: 0, Topics: []string{"烘焙社活动", "社团招新", "学校生活", "学习情况", "兴趣爱好", "日常对话", "天气", "校园环境"}},
		{Name: "熟悉话题", Threshold: 40, Topics: []string{"个人经历", "家庭情况", "未来规划", "音乐", "电影", "书籍", "美食", "旅行"}},
		{Name: "深入话题", Threshold: 60, Topics: []string{"人生理想", "价值观", "感情经历", "童年回忆", "梦想", "烦恼", "压力", "快乐"}},
		{Name: "亲密话题", Threshold: 80, Topics: []string{"感情", "未来", "理想生活", "共同规划", "甜蜜回忆", "浪漫", "承诺", "期待"}},
	}
}

func defaultSceneConfig() SceneConfig {
	m, n, a, e, nt := models.Morning, models.Noon, models.Afternoon, models.Evening, models.Night
	return SceneConfig{
		InitialScene:       "烘焙社摊位",
		InitialDate:        "2021-10-15",
		InitialTime:        m,
		Cooldown:           3,
		DeferTurns:         2,
		ChangeThreshold:    3,
		TopicPersistTurns:  3,
		ShortReplyRunes:    50,
		RelativeTimeWeight: 2,
		FarewellWeight:     1,
		TopicWeight:        1,
		DatePatternWeight:  1.5,
		LocationWeight:     1,
		Scenes: []SceneSpec{
			{Name: "烘焙社摊位", AllowedTimes: []models.TimeOfDay{m, n, a}, Descriptions: []string{
				"百团大战的会场中，烘焙社的摊位前摆放着各种精致的点心样品，苏糖正微笑着向过往的学生介绍社团活动。",
				"烘焙社的展台前围着不少同学，苏糖耐心地解答大家关于烘焙的问题，看到你走近，她露出了礼貌的微笑。",
			}},
			{Name: "烘焙社", AllowedTimes: []models.TimeOfDay{a, e}, Descriptions: []string{
				"烘焙社的活动室里弥漫着黄油和香草的甜美气息，苏糖看到你来了，笑着招呼你过去。",
				"几位社员正在认真地揉面团，苏糖停下手中的动作向你微笑。",
			}},
			{Name: "教室", AllowedTimes: []models.TimeOfDay{m, n, a}, Descriptions: []string{
				"阳光透过窗户洒在教室的地板上，苏糖已经坐在座位上翻看着笔记。",
				"下课铃声刚响，同学们三三两两地聊着天，苏糖向你招了招手。",
			}},
			{Name: "操场", AllowedTimes: []models.TimeOfDay{m, n, a, e}, Descriptions: []string{
				"操场上人不多，苏糖穿着运动服正在跑道上慢跑，看到你后停了下来。",
				"余晖染红了天边的云彩，苏糖靠在栏杆上等着你。",
			}},
			{Name: "图书馆", AllowedTimes: []models.TimeOfDay{m, n, a, e}, Descriptions: []string{
				"图书馆的角落里，苏糖正专注地翻阅着一本书，发现你来了后露出微笑。",
				"自习区里，苏糖早已占好了两个位置，看到你来了轻轻挥手。",
			}},
			{Name: "食堂", AllowedTimes: []models.TimeOfDay{n}, Descriptions: []string{
				"食堂里人声鼎沸，苏糖已经占好了座位，正向你招手。",
			}},
			{Name: "公园", AllowedTimes: []models.TimeOfDay{m, n, a, e}, Descriptions: []string{
				"湖边的长椅上，苏糖看着平静的水面，微风拂过她的发丝。",
				"公园的小路上，苏糖看到你后小跑着迎了上来。",
			}},
			{Name: "街道", AllowedTimes: []models.TimeOfDay{a, e, nt}, Descriptions: []string{
				"夕阳将苏糖的影子拉得很长，她正靠在路灯旁等你。",
				"街角的面包店前，苏糖正透过橱窗看着里面的糕点，听到脚步声回头看到了你。",
			}},
			{Name: "游乐场", AllowedTimes: []models.TimeOfDay{m, n, a}, Descriptions: []string{
				"游乐场的入口处，苏糖穿着休闲的衣服，看起来十分期待今天的约会。",
			}},
			{Name: "电影院", AllowedTimes: []models.TimeOfDay{a, e, nt}, Descriptions: []string{
				"电影院门口，苏糖手里拿着两张电影票，见到你后笑着晃了晃。",
			}},
			{Name: "咖啡厅", AllowedTimes: []models.TimeOfDay{m, n, a, e, nt}, Descriptions: []string{
				"咖啡厅的落地窗旁，苏糖面前放着一杯冒着热气的饮品，窗外的阳光洒在她的侧脸上。",
			}},
		},
		TransitionKeywords: []TransitionKeyword{
			{Keyword: "下周", Scenes: []string{"教室", "操场", "图书馆", "烘焙社"}},
			{Keyword: "明天", Scenes: []string{"教室", "食堂", "操场", "烘焙社"}},
			{Keyword: "放学后", Scenes: []string{"操场", "图书馆", "街道", "烘焙社"}},
			{Keyword: "周末", Scenes: []string{"公园", "游乐场", "电影院", "咖啡厅"}},
			{Keyword: "下次", Scenes: []string{"教室", "操场", "图书馆", "公园", "烘焙社"}},
			{Keyword: "再见面", Scenes: []string{"教室", "操场", "街道", "公园", "烘焙社"}},
			{Keyword: "社团活动", Scenes: []string{"烘焙社"}},
		},
		Farewells: []string{"再见", "拜拜", "回头见", "下次见", "明天见", "下周见", "周末见", "回见", "下次再聊"},
		Locations: []string{"教室", "操场", "图书馆", "食堂", "烘焙社", "公园", "街道", "游乐场", "电影院", "咖啡厅"},
		LogisticsCues: []string{
			"报名", "申请表", "填表", "填写", "活动", "社团", "加入", "招新",
			"什么时候", "几点", "周几", "什么地方", "在哪里",
			"明白", "知道了", "听懂", "记得", "记住", "了解",
		},
	}
}

// Validate 检查数值参数的合法范围
func (c *AffectionConfig) Validate() error {
	if c.DifficultyFactor <= 0 {
		return fmt.Errorf("difficulty_factor 必须为正数: %v", c.DifficultyFactor)
	}
	if c.InitialCloseness < 0 || c.InitialCloseness > 100 {
		return fmt.Errorf("initial_closeness 超出 [0,100]: %v", c.InitialCloseness)
	}
	if c.RecentInputWindow <= 0 {
		return fmt.Errorf("recent_input_window 必须为正数: %d", c.RecentInputWindow)
	}
	if c.KeywordDecayThreshold <= 0 {
		return fmt.Errorf("keyword_decay_threshold 必须为正数: %d", c.KeywordDecayThreshold)
	}
	if c.Composite.MaxGain <= 0 || c.Composite.MaxLoss <= 0 {
		return fmt.Errorf("clamp 上下界必须为正数")
	}
	if c.Composite.JitterMin > c.Composite.JitterMax || c.Composite.VolatilityMin > c.Composite.VolatilityMax {
		return fmt.Errorf("随机区间下界大于上界")
	}
	if len(c.Scene.Scenes) == 0 {
		return fmt.Errorf("场景列表不能为空")
	}
	for _, spec := range c.Scene.Scenes {
		if len(spec.AllowedTimes) == 0 {
			return fmt.Errorf("场景 %s 未配置允许时段", spec.Name)
		}
	}
	return nil
}

// LoadAffectionConfig 读取 JSON/YAML 配置覆盖默认值；
// path 为空或任何错误时返回默认配置，错误已记录日志
func LoadAffectionConfig(path string) *AffectionConfig {
	defaults := DefaultAffectionConfig()
	if path == "" {
		return defaults
	}

	cfg, err := loadAffectionFile(path)
	if err != nil {
		utils.GetLogger().Warn("情感配置加载失败，使用内置默认配置", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return defaults
	}
	return cfg
}

func loadAffectionFile(path string) (*AffectionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := DefaultAffectionConfig()
	if err := DecodeByExtension(path, data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DecodeByExtension 按扩展名选择 YAML 或 JSON 解码
func DecodeByExtension(path string, data []byte, v interface{}) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("解析YAML失败: %w", err)
		}
	default:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("解析JSON失败: %w", err)
		}
	}
	return nil
}
