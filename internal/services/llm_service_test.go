package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/SweetAffection/internal/config"
	apperrors "github.com/Corphon/SweetAffection/internal/errors"
	"github.com/Corphon/SweetAffection/internal/llm"
	"github.com/Corphon/SweetAffection/internal/models"
	"github.com/Corphon/SweetAffection/internal/utils"
)

type stubProvider struct {
	text string
	err  error
	last llm.CompletionRequest
}

func (p *stubProvider) Initialize(map[string]string) error { return nil }
func (p *stubProvider) GetName() string                    { return "stub" }
func (p *stubProvider) GetSupportedModels() []string       { return []string{"stub-1"} }

func (p *stubProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Text: p.text, ProviderName: "stub"}, nil
}

func quietLogger() *utils.Logger {
	return utils.NewLogger(io.Discard, utils.ERROR)
}

func TestNewLLMServiceWithoutKey(t *testing.T) {
	svc := NewLLMService(&config.Config{LLMProvider: "openai"}, quietLogger())
	assert.False(t, svc.IsReady())
	assert.Equal(t, "API key not configured", svc.GetReadyState())

	_, err := svc.Generate(context.Background(), PromptContext{UserInput: "你好呀"})
	assert.ErrorIs(t, err, ErrLLMNotReady)
}

func TestNewLLMServiceWithKey(t *testing.T) {
	svc := NewLLMService(&config.Config{LLMProvider: "openai", LLMAPIKey: "k", LLMModel: "deepseek-chat"}, quietLogger())
	assert.True(t, svc.IsReady())
	assert.Equal(t, "openai", svc.GetProviderName())

	err := svc.UpdateProvider("missing", map[string]string{"api_key": "k"})
	assert.Error(t, err)
	assert.False(t, svc.IsReady())
}

func TestGenerate(t *testing.T) {
	p := &stubProvider{text: "  （笑）你好呀！  "}
	svc := NewLLMService(nil, quietLogger())
	svc.SetProvider("stub", p, "stub-1")

	text, err := svc.Generate(context.Background(), PromptContext{
		Closeness: 55,
		Phase:     models.PhaseFriend,
		Mood:      80,
		Scene:     "图书馆",
		TimeOfDay: models.Afternoon,
		Topics:    []string{"烘焙"},
		History:   []models.Message{{Role: RoleAssistant, Content: greeting}},
		UserInput: "我也喜欢烘焙",
	})
	require.NoError(t, err)
	assert.Equal(t, "（笑）你好呀！", text)

	assert.Equal(t, "stub-1", p.last.Model)
	assert.Equal(t, 800, p.last.MaxTokens)
	assert.Contains(t, p.last.SystemPrompt, "朋友（亲密度 55/100）")
	assert.Contains(t, p.last.SystemPrompt, "图书馆，下午")
	assert.Contains(t, p.last.SystemPrompt, "最近话题：烘焙")
	require.Len(t, p.last.Messages, 2)
	assert.Equal(t, "我也喜欢烘焙", p.last.Messages[1].Content)
}

func TestGenerateErrors(t *testing.T) {
	svc := NewLLMService(nil, quietLogger())
	svc.SetProvider("stub", &stubProvider{err: errors.New("boom")}, "")
	_, err := svc.Generate(context.Background(), PromptContext{UserInput: "你好呀"})
	assert.True(t, apperrors.IsDependencyError(err))

	svc.SetProvider("stub", &stubProvider{text: "   "}, "")
	_, err = svc.Generate(context.Background(), PromptContext{UserInput: "你好呀"})
	assert.True(t, apperrors.IsDependencyError(err))
}

func TestBuildMessagesReminder(t *testing.T) {
	var history []models.Message
	for i := 0; i < 4; i++ {
		history = append(history,
			models.Message{Role: RoleUser, Content: fmt.Sprintf("问题%d", i)},
			models.Message{Role: RoleAssistant, Content: fmt.Sprintf("回答%d", i)})
	}

	// 第五轮用户发言插入提醒
	msgs := BuildMessages(history, "第五句")
	require.Len(t, msgs, 10)
	assert.Equal(t, RoleSystem, msgs[8].Role)
	assert.Equal(t, roleReminder, msgs[8].Content)
	assert.Equal(t, "第五句", msgs[9].Content)

	msgs = BuildMessages(history[:6], "第四句")
	assert.Len(t, msgs, 7)
	for _, m := range msgs {
		assert.NotEqual(t, RoleSystem, m.Role)
	}
}

func TestBuildMessagesTruncates(t *testing.T) {
	var history []models.Message
	for i := 0; i < 41; i++ {
		history = append(history, models.Message{Role: RoleAssistant, Content: fmt.Sprintf("%d", i)})
	}
	msgs := BuildMessages(history, "你好呀")
	require.Len(t, msgs, maxPromptHistory+1)
	assert.Equal(t, "11", msgs[0].Content)
}

func TestFallbackReply(t *testing.T) {
	assert.Equal(t, fallbackGreeting, FallbackReply(90, true))
	assert.Equal(t, fallbackPolite, FallbackReply(39.9, false))
	assert.Equal(t, fallbackFriendly, FallbackReply(40, false))
	assert.Equal(t, fallbackFriendly, FallbackReply(69, false))
	assert.Equal(t, fallbackWarm, FallbackReply(70, false))
}

func TestLockManagerSerializes(t *testing.T) {
	lm := NewLockManager()
	defer lm.Stop()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = lm.ExecuteWithSessionLock("s1", func() error {
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Equal(t, 1, lm.Len())

	want := errors.New("fail")
	assert.ErrorIs(t, lm.ExecuteWithSessionReadLock("s2", func() error { return want }), want)

	lm.Remove("s1")
	assert.Equal(t, 1, lm.Len())
}

func TestLockManagerCleanup(t *testing.T) {
	lm := NewLockManager()
	defer lm.Stop()
	lm.maxLocks = 1

	_ = lm.ExecuteWithSessionLock("a", func() error { return nil })
	_ = lm.ExecuteWithSessionLock("b", func() error { return nil })

	assert.Equal(t, 0, lm.cleanupUnusedLocks(time.Now()))
	assert.Equal(t, 2, lm.cleanupUnusedLocks(time.Now().Add(time.Hour)))
	assert.Equal(t, 0, lm.Len())
}
