package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"bid-eval-go/internal/config"
	"bid-eval-go/internal/evaluation"
	"bid-eval-go/internal/processor"
)

// EvaluationHandler 评估接口处理器，协调评估流水线
type EvaluationHandler struct {
	cfg      *config.Config
	pipeline *processor.EvaluationPipeline
}

// NewEvaluationHandler 创建评估处理器
func NewEvaluationHandler(cfg *config.Config, pipeline *processor.EvaluationPipeline) *EvaluationHandler {
	return &EvaluationHandler{
		cfg:      cfg,
		pipeline: pipeline,
	}
}

// EvaluateListsRequest 直接列表评估请求
type EvaluateListsRequest struct {
	TaskName             string                   `json:"task_name"`
	AlgorithmCheckpoints []map[string]interface{} `json:"algorithm_checkpoints"`
	ReferenceCheckpoints []map[string]interface{} `json:"reference_checkpoints"`
}

// EvaluateDocumentRequest 文档评估请求
// AlgorithmResponse 保持原始JSON，由流水线内的提取器解析。
type EvaluateDocumentRequest struct {
	TaskName          string          `json:"task_name"`
	DocumentText      string          `json:"document_text"`
	AlgorithmResponse json.RawMessage `json:"algorithm_response"`
}

// HandleEvaluateLists 处理直接列表评估
// 两侧检查点已由调用方提取，纯内存计算，不做持久化。
func (h *EvaluationHandler) HandleEvaluateLists(ctx context.Context, req *EvaluateListsRequest) (*processor.EvaluationOutcome, error) {
	if req == nil {
		return nil, fmt.Errorf("请求不能为空")
	}
	if len(req.AlgorithmCheckpoints) == 0 && len(req.ReferenceCheckpoints) == 0 {
		return nil, fmt.Errorf("算法与参考检查点不能同时为空")
	}

	outcome := h.pipeline.EvaluateLists(ctx, req.TaskName, req.AlgorithmCheckpoints, req.ReferenceCheckpoints)
	return outcome, nil
}

// HandleEvaluateDocument 处理完整的文档评估
func (h *EvaluationHandler) HandleEvaluateDocument(ctx context.Context, req *EvaluateDocumentRequest) (*processor.EvaluationOutcome, error) {
	if req == nil {
		return nil, fmt.Errorf("请求不能为空")
	}
	if req.DocumentText == "" {
		return nil, fmt.Errorf("document_text不能为空")
	}
	if len(req.AlgorithmResponse) == 0 {
		return nil, fmt.Errorf("algorithm_response不能为空")
	}

	taskName := req.TaskName
	if taskName == "" {
		taskName = "default"
	}

	return h.pipeline.EvaluateDocument(ctx, processor.DocumentEvaluationRequest{
		TaskName:          taskName,
		DocumentText:      req.DocumentText,
		AlgorithmResponse: req.AlgorithmResponse,
	})
}

// HandleLatestComparison 对比任务最近两次运行
func (h *EvaluationHandler) HandleLatestComparison(ctx context.Context, taskName string) (*evaluation.RunComparison, error) {
	if taskName == "" {
		return nil, fmt.Errorf("task_name不能为空")
	}
	return h.pipeline.CompareLatestRuns(ctx, taskName)
}
