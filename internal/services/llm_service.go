// internal/services/llm_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/SweetAffection/internal/config"
	apperrors "github.com/Corphon/SweetAffection/internal/errors"
	"github.com/Corphon/SweetAffection/internal/llm"
	"github.com/Corphon/SweetAffection/internal/models"
	"github.com/Corphon/SweetAffection/internal/utils"

	// 注册提供商
	_ "github.com/Corphon/SweetAffection/internal/llm/providers/openai"
)

const (
	RoleSystem    = "system"
	RoleUser      = models.RoleUser
	RoleAssistant = models.RoleAssistant
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 800
	maxPromptHistory   = 30 // 发送给模型的历史条数上限
	reminderInterval   = 5  // 每隔多少轮用户发言插入一次角色提醒
	generateTimeout    = 60 * time.Second
)

var ErrLLMNotReady = errors.New("llm service not ready")

// PromptContext 生成角色回复所需的上下文
type PromptContext struct {
	CharacterName string
	PlayerName    string
	Closeness     float64
	Phase         models.Phase
	Mood          float64
	Scene         string
	TimeOfDay     models.TimeOfDay
	Topics        []string
	History       []models.Message // 不含本轮输入
	UserInput     string
}

// TextGenerator 角色回复生成器
type TextGenerator interface {
	Generate(ctx context.Context, pc PromptContext) (string, error)
}

var phaseLabels = map[models.Phase]string{
	models.PhaseStranger:     "陌生人",
	models.PhaseAcquaintance: "初识",
	models.PhaseFriend:       "朋友",
	models.PhaseCloseFriend:  "好朋友",
	models.PhaseRomantic:     "暧昧",
}

const characterDetails = `【背景信息】
当前场景：绿园中学百团大战活动，苏糖正在烘焙社摊位前介绍社团活动
互动对象：陈辰（男，高一一班学生）
【重要提示】
1. 请严格遵守角色设定，不要添加任何未在设定中明确提及的背景信息
2. 关于苏糖的家庭情况，请仅限于已提供的信息：独生女，父亲是上市公司高管，母亲是大学老师，家庭和睦美满
请你始终牢记以上设定，在回复中保持角色一致性，任何时候都不要忘记自己是谁、在哪里、和谁说话。`

const contextualGuideline = `你是苏糖，绿园中学高一二班的学生，烘焙社社长。
你是个温柔、甜美的女生，但也有自己的原则和底线。
陈辰是高一一班的学生，他对你产生了好感，正在尝试与你搭讪。
回复时用括号描写神态动作，再说台词，不超过三句话。`

const roleReminder = "提醒：你是苏糖，高一二班的学生，烘焙社社长。你正在和高一一班的陈辰交谈。保持角色设定的一致性，不要忘记自己的身份和背景。"

// LLMService 角色回复生成服务
type LLMService struct {
	providerMutex sync.RWMutex
	provider      llm.Provider
	providerName  string
	isReady       bool
	readyState    string
	model         string

	temperature float32
	maxTokens   int
	logger      *utils.Logger
}

// NewLLMService 按配置初始化提供商。未配置密钥时返回未就绪的服务而不是错误
func NewLLMService(cfg *config.Config, logger *utils.Logger) *LLMService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	service := &LLMService{
		readyState:  "Uninitialized",
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		logger:      logger,
	}

	if cfg == nil || cfg.LLMProvider == "" {
		service.readyState = "LLM provider not configured"
		return service
	}
	if cfg.LLMAPIKey == "" {
		service.readyState = "API key not configured"
		return service
	}

	if err := service.UpdateProvider(cfg.LLMProvider, providerConfig(cfg)); err != nil {
		logger.Warn("LLM提供商初始化失败，将使用备用台词", map[string]interface{}{
			"provider": cfg.LLMProvider,
			"error":    err.Error(),
		})
	}
	return service
}

func providerConfig(cfg *config.Config) map[string]string {
	m := map[string]string{"api_key": cfg.LLMAPIKey}
	if cfg.LLMBaseURL != "" {
		m["base_url"] = cfg.LLMBaseURL
	}
	if cfg.LLMModel != "" {
		m["default_model"] = cfg.LLMModel
	}
	return m
}

// UpdateProvider 更新LLM服务的提供商
func (s *LLMService) UpdateProvider(providerName string, providerCfg map[string]string) error {
	provider, err := llm.GetProvider(providerName, providerCfg)
	if err != nil {
		s.providerMutex.Lock()
		s.isReady = false
		s.readyState = fmt.Sprintf("Configuration failed: %v", err)
		s.providerMutex.Unlock()
		return err
	}
	s.SetProvider(providerName, provider, providerCfg["default_model"])
	return nil
}

// SetProvider 直接注入一个已初始化的提供商
func (s *LLMService) SetProvider(name string, provider llm.Provider, model string) {
	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	s.provider = provider
	s.providerName = name
	s.model = model
	s.isReady = provider != nil
	if s.isReady {
		s.readyState = "Ready"
	} else {
		s.readyState = "Uninitialized"
	}
}

// IsReady 返回服务是否已就绪
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil && s.isReady
}

// GetReadyState 返回服务就绪状态描述
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.readyState
}

// GetProviderName 当前提供商名称
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// Generate 生成一条角色回复
func (s *LLMService) Generate(ctx context.Context, pc PromptContext) (string, error) {
	s.providerMutex.RLock()
	provider, ready, model := s.provider, s.isReady, s.model
	s.providerMutex.RUnlock()

	if provider == nil || !ready {
		return "", ErrLLMNotReady
	}

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	start := time.Now()
	resp, err := provider.CompleteText(ctx, llm.CompletionRequest{
		SystemPrompt: BuildSystemPrompt(pc),
		Messages:     BuildMessages(pc.History, pc.UserInput),
		MaxTokens:    s.maxTokens,
		Temperature:  s.temperature,
		Model:        model,
	})
	if err != nil {
		return "", apperrors.NewDependencyError("生成角色回复失败", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", apperrors.NewDependencyError("模型返回了空回复", nil)
	}

	s.logger.Debug("角色回复已生成", map[string]interface{}{
		"provider":    resp.ProviderName,
		"model":       resp.ModelName,
		"tokens":      resp.TokensUsed,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return text, nil
}

// BuildSystemPrompt 角色设定加当前关系状态
func BuildSystemPrompt(pc PromptContext) string {
	var b strings.Builder
	b.WriteString(characterDetails)
	b.WriteString("\n\n")
	b.WriteString(contextualGuideline)
	b.WriteString("\n\n【当前状态】\n")

	phase := phaseLabels[pc.Phase]
	if phase == "" {
		phase = string(pc.Phase)
	}
	fmt.Fprintf(&b, "关系阶段：%s（亲密度 %.0f/100）\n", phase, pc.Closeness)
	fmt.Fprintf(&b, "心情：%s\n", moodLabel(pc.Mood))
	if pc.Scene != "" {
		fmt.Fprintf(&b, "所在地点：%s，%s\n", pc.Scene, pc.TimeOfDay.Label())
	}
	topics := "无"
	if len(pc.Topics) > 0 {
		topics = strings.Join(pc.Topics, "、")
	}
	fmt.Fprintf(&b, "最近话题：%s", topics)
	return b.String()
}

func moodLabel(mood float64) string {
	switch {
	case mood >= 70:
		return "很好"
	case mood >= 40:
		return "一般"
	default:
		return "有些低落"
	}
}

// BuildMessages 截断历史，并按用户发言轮数周期性插入角色提醒
func BuildMessages(history []models.Message, userInput string) []llm.Message {
	userTurns := 1
	for _, m := range history {
		if m.Role == RoleUser {
			userTurns++
		}
	}

	if len(history) > maxPromptHistory {
		history = history[len(history)-maxPromptHistory:]
	}

	messages := make([]llm.Message, 0, len(history)+2)
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	if userTurns%reminderInterval == 0 {
		messages = append(messages, llm.Message{Role: RoleSystem, Content: roleReminder})
	}
	messages = append(messages, llm.Message{Role: RoleUser, Content: userInput})
	return messages
}
