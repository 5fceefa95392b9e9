package affection

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Corphon/SweetAffection/internal/analyzer"
	"github.com/Corphon/SweetAffection/internal/config"
	"github.com/Corphon/SweetAffection/internal/lexicon"
	"github.com/Corphon/SweetAffection/internal/models"
	"github.com/Corphon/SweetAffection/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const warmLine = "我很喜欢烘焙，你觉得做蛋糕开心吗？谢谢你的分享。"

func newTestEngine(t *testing.T, rng utils.RandomSource, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithRandom(rng),
		WithLogger(utils.NewLogger(io.Discard, utils.DEBUG)),
	}
	return NewEngine(config.DefaultAffectionConfig(), newTestClassifier(t), append(base, opts...)...)
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(context.Context, string) (analyzer.Analysis, error) {
	return analyzer.Analysis{}, errors.New("analyzer offline")
}

func TestShortGreetingIsInvalid(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))

	res, err := e.ProcessDialogue(context.Background(), "你好", nil)
	require.NoError(t, err)
	assert.Equal(t, models.EventInvalidInput, res.Event)
	assert.Zero(t, res.Delta)
	assert.Equal(t, 30.0, res.CurrentAffection)
	assert.Equal(t, 95.0, e.Snapshot().Patience)
}

func TestRepeatedGreetingIsBoring(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))
	e.SetCloseness(50)

	first, err := e.ProcessDialogue(context.Background(), "你好", nil)
	require.NoError(t, err)
	assert.NotEqual(t, models.EventInvalidInput, first.Event)

	res, err := e.ProcessDialogue(context.Background(), "你好", nil)
	require.NoError(t, err)
	assert.Equal(t, models.EventBoringTalk, res.Event)
	assert.LessOrEqual(t, res.Delta, 0.0)
	assert.InDelta(t, -3.6, res.Delta, 1e-9)
}

func TestInvalidInputIsNotRemembered(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))
	ctx := context.Background()

	for i, input := range []string{"", "  ", "嗯", "嗯", "你好", "你好"} {
		res, err := e.ProcessDialogue(ctx, input, nil)
		require.NoError(t, err)
		assert.Equal(t, models.EventInvalidInput, res.Event, "turn %d", i)
		assert.Zero(t, res.Delta, "turn %d", i)
	}

	snap := e.Snapshot()
	assert.Empty(t, snap.RecentInputs)
	assert.Zero(t, snap.BoringStreak)
	assert.Equal(t, 30.0, snap.Closeness)
	assert.Equal(t, 70.0, snap.Patience)
}

func TestQuestionsWithOverlappingVocabulary(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		keywords []string
		topics   []string
	}{
		{"why question", "为什么你喜欢烘焙呢", []string{"喜欢", "烘焙"}, []string{"喜欢", "烘焙"}},
		{"what question", "你平时喜欢做什么甜点？", []string{"喜欢", "甜点"}, []string{"喜欢", "甜点"}},
		{"nested vocabulary", "我真的喜欢你做的蛋糕，为什么这么好吃", []string{"喜欢", "蛋糕", "好吃"}, []string{"真的", "喜欢你", "蛋糕"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, utils.NewScriptedSource(nil, nil))

			var res *models.DialogueResult
			require.NotPanics(t, func() {
				var err error
				res, err = e.ProcessDialogue(context.Background(), tt.input, nil)
				require.NoError(t, err)
			})

			assert.Equal(t, tt.keywords, e.Keywords().ExtractKeywords(tt.input))
			assert.Equal(t, tt.topics, e.Keywords().ExtractTopics(tt.input))
			assert.Contains(t, []models.AffectionEvent{models.EventNormalDialogue, models.EventSharedInterest}, res.Event)
			assert.Empty(t, res.Debug.Categories)
			assert.Greater(t, res.Delta, 0.0)
			assert.LessOrEqual(t, res.Delta, 6.0)
		})
	}
}

func TestRepeatedLongMessageIsBoring(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))

	_, err := e.ProcessDialogue(context.Background(), warmLine, nil)
	require.NoError(t, err)
	res, err := e.ProcessDialogue(context.Background(), warmLine, nil)
	require.NoError(t, err)
	assert.Equal(t, models.EventBoringTalk, res.Event)
	assert.Less(t, res.Delta, 0.0)
}

func TestTokenSpam(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))

	res, err := e.ProcessDialogue(context.Background(), "好吃好吃 好吃 好吃 好吃", nil)
	require.NoError(t, err)
	assert.Equal(t, models.EventBoringTalk, res.Event)
	assert.InDelta(t, -3, res.Delta, 1e-9)
	assert.Equal(t, 1, e.Snapshot().BoringStreak)
}

func TestRapidFireCostsSocialBalance(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))
	ctx := context.Background()

	for _, in := range []string{"今天好热", "你在干嘛"} {
		_, err := e.ProcessDialogue(ctx, in, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 50.0, e.Snapshot().SocialBalance)

	_, err := e.ProcessDialogue(ctx, "吃饭了吗", nil)
	require.NoError(t, err)
	assert.Equal(t, 47.0, e.Snapshot().SocialBalance)
}

func TestInsultPenaltyScalesWithMatches(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource([]float64{0.5}, nil))
	e.SetCloseness(80)
	ctx := context.Background()

	res, err := e.ProcessDialogue(ctx, "你这个笨蛋，真是个笨蛋", nil)
	require.NoError(t, err)
	assert.Equal(t, models.EventInappropriate, res.Event)
	assert.InDelta(t, -48, res.Delta, 1e-9)
	assert.False(t, res.Debug.InstantZero)
	assert.Equal(t, 2, res.Debug.MatchCount)
	assert.Equal(t, models.RiskHigh, res.Debug.SocialRisk)

	snap := e.Snapshot()
	assert.Equal(t, 1, snap.RudeStreak)
	assert.Empty(t, snap.RedFlags)
	assert.Equal(t, 30.0, snap.SocialBalance)

	_, err = e.ProcessDialogue(ctx, "你真是个笨蛋，笨蛋啊", nil)
	require.NoError(t, err)
	snap = e.Snapshot()
	assert.Equal(t, 2, snap.RudeStreak)
	assert.Equal(t, []string{"repeated_rudeness"}, snap.RedFlags)
	assert.Zero(t, snap.Closeness)
}

func TestInsultInstantZero(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource([]float64{0.05}, nil))
	e.SetCloseness(70)

	res, err := e.ProcessDialogue(context.Background(), "你真是个笨蛋", nil)
	require.NoError(t, err)
	assert.True(t, res.Debug.InstantZero)
	assert.Zero(t, res.CurrentAffection)
}

func TestTwoCategoriesAlwaysZero(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource([]float64{0.99}, nil))
	e.SetCloseness(90)

	res, err := e.ProcessDialogue(context.Background(), "闭嘴吧你这个傻逼", nil)
	require.NoError(t, err)
	assert.Equal(t, models.EventInappropriate, res.Event)
	assert.True(t, res.Debug.InstantZero)
	assert.Zero(t, res.CurrentAffection)
	assert.Equal(t, []models.ContentCategory{models.ContentInsult, models.ContentDisrespect}, res.Debug.Categories)
}

func TestDisrespectAndSexualPenalties(t *testing.T) {
	ctx := context.Background()

	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))
	e.SetCloseness(50)
	res, err := e.ProcessDialogue(ctx, "闭嘴，我不想听", nil)
	require.NoError(t, err)
	assert.InDelta(t, -12, res.Delta, 1e-9)

	// 亲密度不低于门槛时不会清零
	e = newTestEngine(t, utils.NewScriptedSource([]float64{0.01}, nil))
	e.SetCloseness(70)
	res, err = e.ProcessDialogue(ctx, "我好想上你", nil)
	require.NoError(t, err)
	assert.Equal(t, models.EventInappropriate, res.Event)
	assert.False(t, res.Debug.InstantZero)
	assert.InDelta(t, -18, res.Delta, 1e-9)

	e = newTestEngine(t, utils.NewScriptedSource([]float64{0.01}, nil))
	e.SetCloseness(40)
	res, err = e.ProcessDialogue(ctx, "我好想上你", nil)
	require.NoError(t, err)
	assert.True(t, res.Debug.InstantZero)
	assert.Zero(t, res.CurrentAffection)
}

func TestBoredomGate(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))
	e.SetCloseness(50)

	res, err := e.ProcessDialogue(context.Background(), "哈哈哈哈哈", nil)
	require.NoError(t, err)
	assert.Equal(t, models.EventBoringTalk, res.Event)
	assert.InDelta(t, -8*0.6*1.2, res.Delta, 1e-9)
	assert.Equal(t, models.RiskMedium, res.Debug.SocialRisk)
	assert.Equal(t, 40.0, e.Snapshot().Mood)
}

func TestCompositeClampsAndTriggersConfession(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))
	e.SetCloseness(99)
	ctx := context.Background()

	res, err := e.ProcessDialogue(ctx, warmLine, nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.CurrentAffection)
	assert.InDelta(t, 1, res.Delta, 1e-9)
	assert.InDelta(t, 0.985, res.Debug.Jitter, 1e-9)
	assert.Greater(t, res.Debug.RawDelta, 1.0)

	res, err = e.ProcessDialogue(ctx, "今天的晚霞真美啊，", nil)
	require.NoError(t, err)
	assert.Equal(t, models.EventConfession, res.Event)
	assert.Zero(t, res.Delta)
	assert.Contains(t, res.Narrative, "苏糖")
	assert.False(t, res.Completed)

	res, err = e.ProcessDialogue(ctx, "我愿意！", nil)
	require.NoError(t, err)
	assert.Equal(t, models.EventConfession, res.Event)
	assert.Equal(t, models.EndingHappy, res.Ending)
	assert.True(t, res.Completed)
	assert.Equal(t, 100.0, res.CurrentAffection)

	_, err = e.ProcessDialogue(ctx, "还在吗？", nil)
	assert.ErrorIs(t, err, ErrSessionCompleted)
}

func TestConfessionReplies(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		reply     string
		event     models.AffectionEvent
		ending    models.Ending
		closeness float64
	}{
		{"reject", "对不起，我们还是做朋友吧", models.EventConfession, models.EndingSad, 60},
		{"longest wins", "我不接受", models.EventConfession, models.EndingSad, 60},
		{"accept", "我也喜欢你很久了", models.EventConfession, models.EndingHappy, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, utils.NewScriptedSource(nil, nil))
			e.SetCloseness(100)

			res, err := e.ProcessDialogue(ctx, "嗯嗯嗯", nil)
			require.NoError(t, err)
			require.Equal(t, models.EventConfession, res.Event)

			res, err = e.ProcessDialogue(ctx, tt.reply, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.event, res.Event)
			assert.Equal(t, tt.ending, res.Ending)
			assert.Equal(t, tt.closeness, res.CurrentAffection)
			assert.True(t, res.Completed)
		})
	}
}

func TestUnrelatedReplyAfterConfessionIsScored(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))
	e.SetCloseness(100)
	ctx := context.Background()

	_, err := e.ProcessDialogue(ctx, "嗯嗯嗯", nil)
	require.NoError(t, err)

	res, err := e.ProcessDialogue(ctx, "今天的晚霞真美啊，", nil)
	require.NoError(t, err)
	assert.NotEqual(t, models.EventConfession, res.Event)
	assert.False(t, res.Completed)
	assert.True(t, e.Snapshot().ConfessionTriggered)
}

func TestMatchConfessionReply(t *testing.T) {
	accept := []string{"接受", "好的"}
	reject := []string{"不接受", "不好"}

	assert.Equal(t, confessionRejected, matchConfessionReply("我不接受", accept, reject))
	assert.Equal(t, confessionAccepted, matchConfessionReply("我接受", accept, reject))
	// 等长时拒绝优先
	assert.Equal(t, confessionRejected, matchConfessionReply("不好的", accept, reject))
	assert.Equal(t, "", matchConfessionReply("晚安", accept, reject))
}

func TestConfessionReplyNegationRejects(t *testing.T) {
	c := config.DefaultAffectionConfig().Confession
	tests := []struct {
		reply string
		want  string
	}{
		{"对不起，我不能和你在一起", confessionRejected},
		{"抱歉，我还没想好要不要在一起", confessionRejected},
		{"我不想和你在一起", confessionRejected},
		{"好的，我们在一起吧", confessionAccepted},
		{"我也喜欢你", confessionAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			assert.Equal(t, tt.want, matchConfessionReply(tt.reply, c.AcceptKeywords, c.RejectKeywords))
		})
	}
}

func TestApologeticReplyEndsSad(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))
	e.SetCloseness(100)
	ctx := context.Background()

	_, err := e.ProcessDialogue(ctx, "嗯嗯嗯", nil)
	require.NoError(t, err)

	res, err := e.ProcessDialogue(ctx, "对不起，我不能和你在一起", nil)
	require.NoError(t, err)
	assert.Equal(t, models.EventConfession, res.Event)
	assert.Equal(t, models.EndingSad, res.Ending)
	assert.Equal(t, 60.0, res.CurrentAffection)
}

func TestAnalyzerFailureFallsBackToNeutral(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil), WithAnalyzer(failingAnalyzer{}))

	res, err := e.ProcessDialogue(context.Background(), warmLine, nil)
	require.NoError(t, err)
	assert.True(t, res.Debug.AnalyzerFallback)
	assert.Zero(t, res.Debug.SentimentDelta)
	assert.Greater(t, res.Delta, 0.0)
}

func TestHeuristicAnalyzerFeedsSentiment(t *testing.T) {
	lex := lexicon.Default()
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil), WithAnalyzer(analyzer.NewHeuristicAnalyzer(lex)))

	res, err := e.ProcessDialogue(context.Background(), warmLine, nil)
	require.NoError(t, err)
	assert.False(t, res.Debug.AnalyzerFallback)
	assert.Greater(t, res.Debug.SentimentDelta, 0.0)
}

func TestVolatilityStaysWithinLossBound(t *testing.T) {
	// 第一个值用于抖动，第二个触发波动，第三个决定波动幅度
	e := newTestEngine(t, utils.NewScriptedSource([]float64{0.0, 0.05, 0.99}, nil))
	e.SetCloseness(50)

	res, err := e.ProcessDialogue(context.Background(), "我觉得这部电影真的很无聊，看得好累，讨厌这种剧情。", nil)
	require.NoError(t, err)
	assert.Greater(t, res.Debug.Volatility, 0.0)
	assert.GreaterOrEqual(t, res.Delta, -6*1.2-1e-9)
}

func TestStateStaysWithinBounds(t *testing.T) {
	e := newTestEngine(t, utils.NewSeededSource(42))
	ctx := context.Background()
	inputs := []string{
		warmLine, "你好", "哈哈哈哈哈", "你这个笨蛋", "今天天气不错，我们一起去公园散步吧？",
		"我想要你陪我", "闭嘴", "你喜欢看电影吗？我最近在看一部很有趣的小说。",
		"嗯", "好好好 好好好 好好好", "谢谢你做的曲奇，真的很好吃！",
	}

	for round := 0; round < 20; round++ {
		for i, in := range inputs {
			res, err := e.ProcessDialogue(ctx, in+string(rune('a'+round%26))+string(rune('A'+i)), nil)
			if errors.Is(err, ErrSessionCompleted) {
				return
			}
			require.NoError(t, err)

			snap := e.Snapshot()
			for _, v := range []float64{snap.Closeness, snap.Mood, snap.Patience, snap.SocialBalance} {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 100.0)
			}
			switch res.Event {
			case models.EventNormalDialogue, models.EventSharedInterest, models.EventRudeBehavior:
				assert.LessOrEqual(t, res.Delta, 6.0+1e-9)
				assert.GreaterOrEqual(t, res.Delta, -6*1.2-1e-9)
			}
		}
	}
}

func TestConfessTiers(t *testing.T) {
	tests := []struct {
		name      string
		closeness float64
		redFlags  []string
		success   bool
		ending    models.Ending
		after     float64
		completed bool
	}{
		{"perfect", 95, nil, true, models.EndingPerfect, 100, true},
		{"good", 80, nil, true, models.EndingGood, 90, true},
		{"too many red flags", 80, []string{"a", "b"}, false, models.EndingNone, 72, false},
		{"light", 60, nil, false, models.EndingNone, 52, false},
		{"heavy", 45, nil, false, models.EndingNone, 30, false},
		{"bad", 30, nil, false, models.EndingBad, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, utils.NewScriptedSource(nil, nil))
			snap := e.Snapshot()
			snap.Closeness = tt.closeness
			snap.RedFlags = tt.redFlags
			e.Restore(snap)

			res, err := e.Confess()
			require.NoError(t, err)
			assert.Equal(t, tt.success, res.Success)
			assert.Equal(t, tt.ending, res.Ending)
			assert.Equal(t, tt.after, res.CurrentAffection)
			assert.Equal(t, tt.completed, res.Completed)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestConfessAfterEnding(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))
	e.SetCloseness(95)
	_, err := e.Confess()
	require.NoError(t, err)

	res, err := e.Confess()
	assert.ErrorIs(t, err, ErrSessionCompleted)
	assert.True(t, res.Completed)
}

func TestPhaseAndEnding(t *testing.T) {
	assert.Equal(t, models.PhaseStranger, PhaseOf(10))
	assert.Equal(t, models.PhaseAcquaintance, PhaseOf(30))
	assert.Equal(t, models.PhaseFriend, PhaseOf(50))
	assert.Equal(t, models.PhaseCloseFriend, PhaseOf(75))
	assert.Equal(t, models.PhaseRomantic, PhaseOf(90))

	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))
	assert.Equal(t, models.EndingNone, e.CheckEnding())
	e.SetCloseness(-5)
	assert.Equal(t, models.EndingBad, e.CheckEnding())
	e.SetCloseness(120)
	assert.Equal(t, 100.0, e.Closeness())
	assert.Equal(t, models.EndingGood, e.CheckEnding())
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))
	_, err := e.ProcessDialogue(context.Background(), warmLine, nil)
	require.NoError(t, err)

	snap := e.Snapshot()
	other := newTestEngine(t, utils.NewScriptedSource(nil, nil))
	other.Restore(snap)
	assert.Equal(t, snap, other.Snapshot())

	// 恢复后重复输入仍能识别
	res, err := other.ProcessDialogue(context.Background(), warmLine, nil)
	require.NoError(t, err)
	assert.Equal(t, models.EventBoringTalk, res.Event)
}

func TestSocialRiskLevels(t *testing.T) {
	e := newTestEngine(t, utils.NewScriptedSource(nil, nil))
	assert.Equal(t, models.RiskLow, e.SocialRisk())

	snap := e.Snapshot()
	snap.BoringStreak = 2
	e.Restore(snap)
	assert.Equal(t, models.RiskMedium, e.SocialRisk())

	snap.RudeStreak = 2
	e.Restore(snap)
	assert.Equal(t, models.RiskHigh, e.SocialRisk())
}
