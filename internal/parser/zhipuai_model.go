package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bid-eval-go/internal/config"
	"bid-eval-go/internal/logger"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

const (
	// 智谱AI的OpenAI兼容接口
	zhipuAIChatCompletionsURL = "https://open.bigmodel.cn/api/paas/v4/chat/completions"
	defaultZhipuAIModelName   = "glm-4.7"
)

// ZhipuAIChatModel 智谱AI GLM系列模型的eino客户端
// 走OpenAI兼容的chat completions接口，实现 model.ToolCallingChatModel。
type ZhipuAIChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// zhipuChatRequest OpenAI兼容的请求体
type zhipuChatRequest struct {
	Model       string                `json:"model"`
	Messages    []*einoschema.Message `json:"messages"`
	Temperature float64               `json:"temperature,omitempty"`
	MaxTokens   int                   `json:"max_tokens,omitempty"`
}

type zhipuChatChoice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason"`
	Message      struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
}

type zhipuChatResponse struct {
	ID      string            `json:"id"`
	Model   string            `json:"model"`
	Choices []zhipuChatChoice `json:"choices"`
}

// NewZhipuAIChatModel 创建智谱AI模型客户端
func NewZhipuAIChatModel(cfg *config.ZhipuAIConfig) (*ZhipuAIChatModel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("智谱AI配置不能为空")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("智谱AI API密钥不能为空")
	}

	modelName := cfg.Model
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultZhipuAIModelName
	}

	return &ZhipuAIChatModel{
		apiKey:      cfg.APIKey,
		modelName:   modelName,
		apiURL:      zhipuAIChatCompletionsURL,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Generate 实现 model.BaseChatModel 接口
func (z *ZhipuAIChatModel) Generate(ctx context.Context, messages []*einoschema.Message, options ...model.Option) (*einoschema.Message, error) {
	reqPayload := zhipuChatRequest{
		Model:       z.modelName,
		Messages:    messages,
		Temperature: z.temperature,
		MaxTokens:   z.maxTokens,
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, z.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+z.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := z.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("智谱AI请求失败，状态 %s: %s", httpResp.Status, string(bodyBytes))
	}

	var resp zhipuChatResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return nil, fmt.Errorf("反序列化智谱AI响应失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("智谱AI返回空choices: %s", string(bodyBytes))
	}

	choice := resp.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}

	logger.Debug().
		Str("model", resp.Model).
		Str("finish_reason", choice.FinishReason).
		Int("content_len", len(content)).
		Msg("智谱AI响应成功")

	role := einoschema.RoleType(choice.Message.Role)
	if role == "" {
		role = einoschema.Assistant
	}
	return &einoschema.Message{Role: role, Content: content}, nil
}

// Stream 实现 model.BaseChatModel 接口
// 参考检查点提取不需要流式输出。
func (z *ZhipuAIChatModel) Stream(ctx context.Context, messages []*einoschema.Message, options ...model.Option) (*einoschema.StreamReader[*einoschema.Message], error) {
	return nil, fmt.Errorf("ZhipuAIChatModel的Stream方法未实现")
}

// WithTools 实现 model.ToolCallingChatModel 接口
// 检查点提取走纯文本回复，不绑定工具。
func (z *ZhipuAIChatModel) WithTools(tools []*einoschema.ToolInfo) (model.ToolCallingChatModel, error) {
	return z, nil
}

var _ model.ToolCallingChatModel = (*ZhipuAIChatModel)(nil)
