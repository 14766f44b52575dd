package parser

import (
	"context"
	"fmt"
	"time"

	"bid-eval-go/internal/logger"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// defaultReferencePrompt 参考检查点提取的提示词模板
// %s 处填入截断后的招标文件文本。
const defaultReferencePrompt = `你是一个招标文件评审专家。请仔细分析以下招标文件内容，提取所有具体的检查点和评审要求。

招标文件内容（截断后）：
` + "```" + `
%s
` + "```" + `

请以JSON格式返回检查点，格式如下：
` + "```json" + `
{
  "checkpoints": [
    {
      "id": "唯一编号",
      "category": "具体分类名称（如：封面检查、资格要求、人员要求(6分)、企业业绩(8分)、技术方案等）",
      "label": "检查项的简短描述（保持原文表述）",
      "content": "详细的检查要求说明",
      "importance": "高/中/低",
      "score": "分值（如果有）"
    }
  ]
}
` + "```" + `

**提取要求：**
1. **细粒度提取**：尽量保持原文的具体表述，不要过度概括
2. **保留原文术语**：使用招标文件中的原始术语和分类名称
3. **提取所有评分项**：包括形式评审、资格评审、技术评审、商务评审等各个部分
4. **包含分值信息**：如果检查项有分值，请标注
5. **数量控制**：提取主要检查点（10-20个）
6. **只返回JSON**：不要其他解释文字

**分类参考**：
- 封面检查、签字盖章
- 报价唯一性、资格要求
- 人员要求、企业业绩、企业资质
- 技术方案、服务承诺
- 履约能力、财务状况等

请开始提取：`

// ReferenceGenerator 参考答案生成器
// 封装大模型客户端与提示词逻辑，给定文档文本返回检查点记录列表。
type ReferenceGenerator struct {
	llmModel         model.ToolCallingChatModel
	promptTemplate   string
	maxRetries       int
	retryWait        time.Duration
	maxDocumentChars int
}

// ReferenceGeneratorOption 生成器的配置选项
type ReferenceGeneratorOption func(*ReferenceGenerator)

// WithPromptTemplate 设置自定义提示词模板
func WithPromptTemplate(template string) ReferenceGeneratorOption {
	return func(g *ReferenceGenerator) {
		g.promptTemplate = template
	}
}

// WithMaxRetries 设置最大重试次数
func WithMaxRetries(retries int) ReferenceGeneratorOption {
	return func(g *ReferenceGenerator) {
		g.maxRetries = retries
	}
}

// WithRetryWait 设置重试基础等待时长（按重试次数线性递增）
func WithRetryWait(wait time.Duration) ReferenceGeneratorOption {
	return func(g *ReferenceGenerator) {
		g.retryWait = wait
	}
}

// WithMaxDocumentChars 设置送入模型的文档截断长度（按字符计）
func WithMaxDocumentChars(chars int) ReferenceGeneratorOption {
	return func(g *ReferenceGenerator) {
		g.maxDocumentChars = chars
	}
}

// NewReferenceGenerator 创建参考答案生成器
func NewReferenceGenerator(llmModel model.ToolCallingChatModel, options ...ReferenceGeneratorOption) *ReferenceGenerator {
	generator := &ReferenceGenerator{
		llmModel:         llmModel,
		promptTemplate:   defaultReferencePrompt,
		maxRetries:       3,
		retryWait:        3 * time.Second,
		maxDocumentChars: 15000,
	}
	for _, opt := range options {
		opt(generator)
	}
	return generator
}

// GenerateReferenceCheckpoints 调用大模型为文档生成参考检查点
// 带重试机制；最终仍失败时返回错误，由上游决定是否以空列表继续。
func (g *ReferenceGenerator) GenerateReferenceCheckpoints(ctx context.Context, documentText string) ([]map[string]interface{}, error) {
	if g.llmModel == nil {
		return nil, fmt.Errorf("ReferenceGenerator: llmModel未初始化")
	}

	truncated := truncateRunes(documentText, g.maxDocumentChars)
	prompt := fmt.Sprintf(g.promptTemplate, truncated)
	messages := []*einoschema.Message{
		einoschema.UserMessage(prompt),
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		response, err := g.llmModel.Generate(ctx, messages)
		if err == nil && response != nil && response.Content != "" {
			checkpoints, parseErr := ParseReferenceCheckpoints(response.Content)
			if parseErr == nil {
				logger.Info().Int("count", len(checkpoints)).Msg("参考检查点生成成功")
				return checkpoints, nil
			}
			lastErr = parseErr
		} else if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("大模型返回空回复")
		}

		logger.Warn().Err(lastErr).Int("attempt", attempt).Msg("参考检查点生成失败")

		if attempt < g.maxRetries {
			// 等待时间按重试次数线性递增
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * g.retryWait):
			}
		}
	}

	return nil, fmt.Errorf("参考检查点生成失败，已重试%d次: %w", g.maxRetries, lastErr)
}

// truncateRunes 按字符数截断文本，避免把多字节字符截成半个
func truncateRunes(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
