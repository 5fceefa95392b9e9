package services

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/SweetAffection/internal/errors"
	"github.com/Corphon/SweetAffection/internal/models"
	"github.com/Corphon/SweetAffection/internal/storage"
	"github.com/Corphon/SweetAffection/internal/utils"
)

const warmLine = "我很喜欢烘焙，你觉得做蛋糕开心吗？谢谢你的分享。"

type fakeGenerator struct {
	reply string
	err   error
	calls []PromptContext
}

func (f *fakeGenerator) Generate(ctx context.Context, pc PromptContext) (string, error) {
	f.calls = append(f.calls, pc)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestService(t *testing.T, gen TextGenerator, store storage.SaveStore) *GameService {
	t.Helper()
	svc := NewGameService(GameDeps{
		Generator: gen,
		Store:     store,
		Logger:    utils.NewLogger(io.Discard, utils.ERROR),
		NewRandom: func() utils.RandomSource { return utils.NewScriptedSource(nil, nil) },
	})
	t.Cleanup(svc.Close)
	return svc
}

func TestNewSession(t *testing.T) {
	svc := newTestService(t, nil, nil)

	state, err := svc.NewSession(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, state.SessionID)
	assert.Equal(t, greeting, state.Greeting)
	assert.Equal(t, 30.0, state.Affection.Closeness)
	assert.Equal(t, "苏糖", state.CharacterName)
	assert.Equal(t, 1, state.HistoryLength)
	assert.Contains(t, state.AvailableTopics, "烘焙社活动")
	assert.Equal(t, int64(1), svc.Metrics().GetGauge(metricActiveSessions))
}

func TestChatUsesGenerator(t *testing.T) {
	gen := &fakeGenerator{reply: "（笑）当然开心啦！"}
	svc := newTestService(t, gen, nil)
	ctx := context.Background()

	state, err := svc.NewSession(ctx)
	require.NoError(t, err)

	turn, err := svc.Chat(ctx, state.SessionID, warmLine)
	require.NoError(t, err)
	assert.Equal(t, "（笑）当然开心啦！", turn.Reply)
	assert.False(t, turn.ReplyFallback)
	assert.Equal(t, "初始阶段", turn.Storyline)
	require.NotNil(t, turn.Affection)

	require.Len(t, gen.calls, 1)
	pc := gen.calls[0]
	assert.Equal(t, warmLine, pc.UserInput)
	assert.Len(t, pc.History, 1)
	assert.Equal(t, "苏糖", pc.CharacterName)

	after, err := svc.State(state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, after.HistoryLength)
	assert.Equal(t, []string{"初始阶段"}, after.Storylines)
	assert.Equal(t, int64(1), svc.Metrics().GetCounter(metricTurns))
}

func TestChatFallsBackOnGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("timeout")}
	svc := newTestService(t, gen, nil)
	ctx := context.Background()

	state, err := svc.NewSession(ctx)
	require.NoError(t, err)

	turn, err := svc.Chat(ctx, state.SessionID, warmLine)
	require.NoError(t, err)
	assert.True(t, turn.ReplyFallback)
	assert.Equal(t, fallbackGreeting, turn.Reply)

	// 第二轮不再是开场白
	turn, err = svc.Chat(ctx, state.SessionID, "你平时周末都做什么呢？")
	require.NoError(t, err)
	assert.True(t, turn.ReplyFallback)
	assert.NotEqual(t, fallbackGreeting, turn.Reply)
	assert.Equal(t, int64(2), svc.Metrics().GetCounter(metricFallbacks))
}

func TestInvalidInputGetsTip(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	state, err := svc.NewSession(ctx)
	require.NoError(t, err)

	turn, err := svc.Chat(ctx, state.SessionID, "你好")
	require.NoError(t, err)
	assert.Equal(t, models.EventInvalidInput, turn.Affection.Event)
	assert.NotEmpty(t, turn.Tip)
	assert.Equal(t, fallbackGreeting, turn.Reply)
}

func TestUnknownSession(t *testing.T) {
	svc := newTestService(t, nil, nil)

	_, err := svc.Chat(context.Background(), "nope", warmLine)
	assert.True(t, apperrors.IsNotFoundError(err))
	_, err = svc.State("nope")
	assert.True(t, apperrors.IsNotFoundError(err))
	assert.True(t, apperrors.IsNotFoundError(svc.CloseSession("nope")))
}

func TestConfessionFlowThroughChat(t *testing.T) {
	gen := &fakeGenerator{reply: "嗯嗯"}
	svc := newTestService(t, gen, nil)
	ctx := context.Background()

	state, err := svc.NewSession(ctx)
	require.NoError(t, err)

	_, err = svc.DebugSetCloseness(state.SessionID, 100)
	require.NoError(t, err)

	turn, err := svc.Chat(ctx, state.SessionID, "今天的饼干真好吃")
	require.NoError(t, err)
	assert.Equal(t, models.EventConfession, turn.Affection.Event)
	assert.Contains(t, turn.Reply, "我喜欢你")
	assert.Empty(t, gen.calls)

	turn, err = svc.Chat(ctx, state.SessionID, "我愿意！")
	require.NoError(t, err)
	assert.Equal(t, models.EndingHappy, turn.Affection.Ending)
	assert.True(t, turn.Affection.Completed)
	assert.Nil(t, turn.SceneTransition)

	_, err = svc.Chat(ctx, state.SessionID, "我们去看电影吧")
	assert.True(t, apperrors.IsSessionCompletedError(err))
}

func TestConfess(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	state, err := svc.NewSession(ctx)
	require.NoError(t, err)

	res, err := svc.Confess(ctx, state.SessionID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, models.EndingBad, res.Ending)
	assert.Equal(t, 0.0, res.CurrentAffection)

	_, err = svc.Confess(ctx, state.SessionID)
	assert.True(t, apperrors.IsSessionCompletedError(err))

	state, err = svc.NewSession(ctx)
	require.NoError(t, err)
	_, err = svc.DebugSetCloseness(state.SessionID, 95)
	require.NoError(t, err)
	res, err = svc.Confess(ctx, state.SessionID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Completed)
	assert.Equal(t, models.EndingPerfect, res.Ending)
}

func TestSaveAndLoad(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	svc := newTestService(t, &fakeGenerator{reply: "好呀"}, store)
	ctx := context.Background()

	state, err := svc.NewSession(ctx)
	require.NoError(t, err)
	_, err = svc.Chat(ctx, state.SessionID, warmLine)
	require.NoError(t, err)
	_, err = svc.DebugSetCloseness(state.SessionID, 62)
	require.NoError(t, err)

	info, err := svc.Save(ctx, state.SessionID, "slot1")
	require.NoError(t, err)
	assert.Equal(t, 62.0, info.Closeness)

	_, err = svc.Save(ctx, state.SessionID, "bad/slot")
	assert.True(t, apperrors.IsValidationError(err))

	// 新服务实例读取同一存档
	other := newTestService(t, nil, store)
	loaded, err := other.Load(ctx, "slot1")
	require.NoError(t, err)
	assert.Equal(t, state.SessionID, loaded.SessionID)
	assert.Equal(t, 62.0, loaded.Affection.Closeness)
	assert.Equal(t, 3, loaded.HistoryLength)
	assert.Equal(t, []string{"初始阶段"}, loaded.Storylines)
	assert.Contains(t, loaded.AvailableTopics, "人生理想")

	saves, err := other.ListSaves(ctx)
	require.NoError(t, err)
	require.Len(t, saves, 1)

	_, err = other.Load(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrSlotNotFound)

	require.NoError(t, other.DeleteSave(ctx, "slot1"))
}

func TestSaveWithoutStore(t *testing.T) {
	svc := newTestService(t, nil, nil)
	state, err := svc.NewSession(context.Background())
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), state.SessionID, "slot")
	assert.True(t, apperrors.IsConfigError(err))
}

func TestTopicsFollowCloseness(t *testing.T) {
	svc := newTestService(t, nil, nil)
	state, err := svc.NewSession(context.Background())
	require.NoError(t, err)

	list, err := svc.Topics(state.SessionID)
	require.NoError(t, err)
	assert.NotContains(t, list, "音乐")

	_, err = svc.DebugSetCloseness(state.SessionID, 45)
	require.NoError(t, err)
	list, err = svc.Topics(state.SessionID)
	require.NoError(t, err)
	assert.Contains(t, list, "音乐")
}

func TestCloseSession(t *testing.T) {
	svc := newTestService(t, nil, nil)
	state, err := svc.NewSession(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{state.SessionID}, svc.SessionIDs())
	require.NoError(t, svc.CloseSession(state.SessionID))
	assert.Empty(t, svc.SessionIDs())
	assert.Equal(t, int64(0), svc.Metrics().GetGauge(metricActiveSessions))
}
