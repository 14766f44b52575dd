package processor

import (
	"context"

	"bid-eval-go/internal/storage"
	"bid-eval-go/internal/storage/models"
	"bid-eval-go/internal/types"
)

//
// 评估流水线的外部依赖接口
// 具体实现由storage与parser包提供，接口化便于在测试中替换。
//

// ReferenceProvider 参考检查点提供方
type ReferenceProvider interface {
	// GenerateReferenceCheckpoints 为文档文本生成参考检查点
	GenerateReferenceCheckpoints(ctx context.Context, documentText string) ([]map[string]interface{}, error)
}

// ReferenceCache 参考检查点缓存，按文档MD5存取
type ReferenceCache interface {
	// GetReferenceCheckpoints 读取缓存，未命中返回storage.ErrNotFound
	GetReferenceCheckpoints(ctx context.Context, documentMD5 string) ([]map[string]interface{}, error)

	// SetReferenceCheckpoints 写入缓存
	SetReferenceCheckpoints(ctx context.Context, documentMD5 string, checkpoints []map[string]interface{}) error
}

// ArtifactStore 评估产物对象存储
type ArtifactStore interface {
	// UploadArtifact 上传产物JSON，返回object名
	UploadArtifact(ctx context.Context, artifact types.EvaluationArtifact) (string, error)

	// UploadReport 上传批量评估的文本报告，返回object名
	UploadReport(ctx context.Context, reportName, report string) (string, error)
}

// RunRecorder 评估运行记录的持久化
type RunRecorder interface {
	// SaveEvaluationRun 保存一次评估运行
	SaveEvaluationRun(ctx context.Context, run *models.EvaluationRun) error

	// LatestRuns 按任务名倒序返回最近的若干次记录
	LatestRuns(ctx context.Context, taskName string, limit int) ([]models.EvaluationRun, error)
}

// RunPointer 最近一次运行ID的快速查询指针
type RunPointer interface {
	// SetLatestRunID 记录任务最近一次运行的ID
	SetLatestRunID(ctx context.Context, taskName, runID string) error
}

// EventPublisher 评估完成事件发布
type EventPublisher interface {
	// PublishEvaluationCompleted 发布评估完成事件
	PublishEvaluationCompleted(ctx context.Context, event storage.EvaluationCompletedEvent) error
}
