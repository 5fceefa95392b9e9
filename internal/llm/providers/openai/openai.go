// internal/llm/providers/openai/openai.go
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Corphon/SweetAffection/internal/llm"
)

// vendor 一个兼容 OpenAI chat/completions 协议的服务商
type vendor struct {
	name         string
	displayName  string
	baseURL      string
	defaultModel string
	models       []string
	headers      map[string]string
}

// "openai" 默认指向 DeepSeek
var vendors = []vendor{
	{
		name:         "openai",
		displayName:  "OpenAI-Compatible",
		baseURL:      "https://api.deepseek.com/v1",
		defaultModel: "deepseek-chat",
		models:       []string{"deepseek-chat", "deepseek-reasoner", "gpt-4o-mini"},
	},
	{
		name:         "openrouter",
		displayName:  "OpenRouter",
		baseURL:      "https://openrouter.ai/api/v1",
		defaultModel: "google/gemma-3-27b-it:free",
		models:       []string{"google/gemma-3-27b-it:free", "qwen/qwen3-235b-a22b:free", "nousresearch/hermes-3-llama-3.1-405b:free"},
		headers:      map[string]string{"X-Title": "SweetAffection"},
	},
	{
		name:         "qwen",
		displayName:  "Qwen",
		baseURL:      "https://dashscope.aliyuncs.com/compatible-mode/v1",
		defaultModel: "qwen2.5-max",
		models:       []string{"qwen2.5-max", "qwen2.5-plus", "qwq-32b"},
	},
	{
		name:         "glm",
		displayName:  "GLM",
		baseURL:      "https://open.bigmodel.cn/api/paas/v4",
		defaultModel: "glm-4",
		models:       []string{"glm-4", "glm-4-plus", "glm-4.5-air", "glm-4.5"},
	},
	{
		name:         "grok",
		displayName:  "Grok",
		baseURL:      "https://api.x.ai/v1",
		defaultModel: "grok-3",
		models:       []string{"grok-4", "grok-4-fast", "grok-3", "grok-3-mini"},
	},
	{
		name:         "githubmodels",
		displayName:  "GitHub Models",
		baseURL:      "https://models.inference.ai.azure.com",
		defaultModel: "o3-mini",
		models:       []string{"gpt-4o", "o3-mini", "Phi-4"},
	},
}

func init() {
	for _, v := range vendors {
		v := v
		llm.Register(v.name, func() llm.Provider {
			return &Provider{vendor: v, baseURL: v.baseURL}
		})
	}
}

type Provider struct {
	vendor       vendor
	apiKey       string
	baseURL      string
	client       *http.Client
	defaultModel string
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		return fmt.Errorf("%s API密钥未提供", p.vendor.displayName)
	}

	p.apiKey = apiKey
	p.client = &http.Client{Timeout: 60 * time.Second}

	p.defaultModel = p.vendor.defaultModel
	if model := config["default_model"]; model != "" {
		p.defaultModel = model
	}
	if baseURL := config["base_url"]; baseURL != "" {
		p.baseURL = baseURL
	}
	return nil
}

func (p *Provider) GetName() string {
	return p.vendor.displayName
}

func (p *Provider) GetSupportedModels() []string {
	return p.vendor.models
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]llm.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, req.Messages...)

	jsonData, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	for k, v := range p.vendor.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("API错误(%d): %s", httpResp.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("API未返回任何结果")
	}

	return &llm.CompletionResponse{
		Text:         response.Choices[0].Message.Content,
		FinishReason: response.Choices[0].FinishReason,
		TokensUsed:   response.Usage.TotalTokens,
		ModelName:    response.Model,
		ProviderName: p.GetName(),
	}, nil
}
