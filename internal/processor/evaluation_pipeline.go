package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bid-eval-go/internal/config"
	"bid-eval-go/internal/constants"
	"bid-eval-go/internal/evaluation"
	"bid-eval-go/internal/logger"
	"bid-eval-go/internal/parser"
	"bid-eval-go/internal/storage"
	"bid-eval-go/internal/storage/models"
	"bid-eval-go/internal/tracing"
	"bid-eval-go/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
)

var pipelineTracer = otel.Tracer("bid-eval-go/processor/evaluation")

// DocumentEvaluationRequest 单文档评估请求
type DocumentEvaluationRequest struct {
	// TaskName 任务名，进入产物文件名与运行记录
	TaskName string

	// DocumentText 招标文件文本，用于生成参考检查点
	DocumentText string

	// AlgorithmResponse 算法服务的原始响应JSON
	AlgorithmResponse []byte
}

// EvaluationOutcome 单次评估的完整产出
type EvaluationOutcome struct {
	RunID      string                   `json:"run_id"`
	Result     types.EvaluationResult   `json:"result"`
	ExactStats types.ExactMatchStats    `json:"exact_stats"`
	Tiers      evaluation.TierCounts    `json:"tiers"`
	Artifact   types.EvaluationArtifact `json:"artifact"`

	// ArtifactPath 本地落盘路径，未落盘时为空
	ArtifactPath string `json:"artifact_path,omitempty"`
	// ArtifactObject 对象存储中的object名，未上传时为空
	ArtifactObject string `json:"artifact_object,omitempty"`

	// ReferenceFromCache 参考检查点是否命中缓存
	ReferenceFromCache bool `json:"reference_from_cache"`
}

// BatchOutcome 批量评估的产出
type BatchOutcome struct {
	Outcomes []*EvaluationOutcome `json:"outcomes"`
	Report   string               `json:"report"`

	// ReportObject 文本报告在对象存储中的object名，未上传时为空
	ReportObject string `json:"report_object,omitempty"`
}

// EvaluationPipeline 评估流水线
// 串联归一化、匹配、指标汇总与产物构建，持久化与事件发布按注入的依赖可选执行。
type EvaluationPipeline struct {
	cfg *config.Config

	matcher       *evaluation.Matcher
	aggregator    *evaluation.Aggregator
	reportBuilder *evaluation.ReportBuilder

	referenceProvider ReferenceProvider
	referenceCache    ReferenceCache
	artifactStore     ArtifactStore
	runRecorder       RunRecorder
	runPointer        RunPointer
	eventPublisher    EventPublisher

	outputDir string
	now       func() time.Time
}

// NewEvaluationPipeline 创建评估流水线
// referenceProvider 可以为nil，此时EvaluateDocument要求缓存命中，否则报错。
func NewEvaluationPipeline(cfg *config.Config, referenceProvider ReferenceProvider, options ...PipelineOption) *EvaluationPipeline {
	scorer := evaluation.NewScorer(
		evaluation.StrategyJaccardWithCategoryBonus,
		evaluation.WithCategoryBonus(cfg.Evaluation.CategoryBonus),
	)

	p := &EvaluationPipeline{
		cfg:               cfg,
		matcher:           evaluation.NewMatcher(scorer, cfg.Evaluation.SimilarityThreshold),
		aggregator:        evaluation.NewAggregator(cfg.Evaluation.Rounding),
		reportBuilder:     evaluation.NewReportBuilder(),
		referenceProvider: referenceProvider,
		outputDir:         cfg.OutputDir,
		now:               time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// EvaluateLists 对已提取的检查点记录做纯内存评估，不做持久化
// HTTP接口的直接评估路径。
func (p *EvaluationPipeline) EvaluateLists(ctx context.Context, taskName string, algorithmRecords, referenceRecords []map[string]interface{}) *EvaluationOutcome {
	_, span := pipelineTracer.Start(ctx, "EvaluateLists")
	defer span.End()

	algorithm := evaluation.NormalizeMaps(algorithmRecords, types.SourceAlgorithm)
	reference := evaluation.NormalizeMaps(referenceRecords, types.SourceReference)

	matchResult := p.matcher.Match(algorithm, reference)
	result := p.aggregator.Aggregate(matchResult, len(algorithm), len(reference))
	exact := p.aggregator.ExactStats(algorithm, reference)
	tiers := p.aggregator.Tiers(matchResult, p.cfg.Evaluation.StrictThreshold, p.cfg.Evaluation.PartialThreshold)

	artifact := p.reportBuilder.BuildArtifact(taskName, algorithm, reference, result, &exact, p.now())

	span.SetAttributes(
		attribute.Int("evaluation.algorithm_count", result.AlgorithmCount),
		attribute.Int("evaluation.reference_count", result.ReferenceCount),
		attribute.Int("evaluation.matched", result.Matched),
	)

	return &EvaluationOutcome{
		RunID:      uuid.New().String(),
		Result:     result,
		ExactStats: exact,
		Tiers:      tiers,
		Artifact:   artifact,
	}
}

// EvaluateDocument 对单个招标文档做完整评估
// 流程：取参考检查点（缓存优先）→ 提取算法检查点 → 归一化匹配 →
// 指标汇总 → 产物落盘/上传 → 运行记录持久化 → 事件发布。
// 持久化与发布失败只记日志，不影响评估结果返回。
func (p *EvaluationPipeline) EvaluateDocument(ctx context.Context, req DocumentEvaluationRequest) (*EvaluationOutcome, error) {
	ctx, span := pipelineTracer.Start(ctx, "EvaluateDocument")
	defer span.End()
	span.SetAttributes(attribute.String("evaluation.task_name", req.TaskName))

	referenceRecords, fromCache, err := p.referenceCheckpoints(ctx, req.DocumentText)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("获取参考检查点失败: %w", err)
	}

	algorithmRecords := parser.ExtractAlgorithmCheckpoints(req.AlgorithmResponse)

	outcome := p.EvaluateLists(ctx, req.TaskName, algorithmRecords, referenceRecords)
	outcome.ReferenceFromCache = fromCache

	p.persistOutcome(ctx, req, outcome)

	logger.Info().
		Str("task", req.TaskName).
		Str("run_id", outcome.RunID).
		Int("matched", outcome.Result.Matched).
		Float64("coverage", outcome.Result.Coverage).
		Bool("reference_from_cache", fromCache).
		Msg("文档评估完成")

	return outcome, nil
}

// EvaluateBatch 顺序评估多个文档并生成批量报告
// 单个文档失败不中断批次，失败的文档跳过并记日志。
func (p *EvaluationPipeline) EvaluateBatch(ctx context.Context, requests []DocumentEvaluationRequest) (*BatchOutcome, error) {
	ctx, span := pipelineTracer.Start(ctx, "EvaluateBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("evaluation.batch_size", len(requests)))

	batch := &BatchOutcome{}
	var results []types.EvaluationResult
	var exactStats []types.ExactMatchStats

	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome, err := p.EvaluateDocument(ctx, req)
		if err != nil {
			logger.Warn().Err(err).Int("index", i).Str("task", req.TaskName).Msg("批量评估中单个文档失败，跳过")
			continue
		}
		batch.Outcomes = append(batch.Outcomes, outcome)
		results = append(results, outcome.Result)
		exactStats = append(exactStats, outcome.ExactStats)
	}

	if len(batch.Outcomes) == 0 && len(requests) > 0 {
		return nil, fmt.Errorf("批量评估失败: 所有%d个文档均评估失败", len(requests))
	}

	batch.Report = p.reportBuilder.BatchReport(results, exactStats)

	if p.artifactStore != nil && batch.Report != "" {
		objectName, err := p.artifactStore.UploadReport(ctx, "batch", batch.Report)
		if err != nil {
			logger.Warn().Err(err).Msg("批量评估报告上传失败")
		} else {
			batch.ReportObject = objectName
		}
	}
	return batch, nil
}

// CompareLatestRuns 对比任务最近两次运行
func (p *EvaluationPipeline) CompareLatestRuns(ctx context.Context, taskName string) (*evaluation.RunComparison, error) {
	if p.runRecorder == nil {
		return nil, fmt.Errorf("未配置运行记录存储，无法对比")
	}

	runs, err := p.runRecorder.LatestRuns(ctx, taskName, 2)
	if err != nil {
		return nil, err
	}
	if len(runs) < 2 {
		return nil, fmt.Errorf("任务 %s 的历史运行不足两次，无法对比", taskName)
	}

	// LatestRuns按时间倒序返回，runs[1]是前一次
	comparison := p.reportBuilder.CompareRuns(
		types.EvaluationResult{Matched: runs[1].Matched, Coverage: runs[1].Coverage, Recall: runs[1].Recall},
		types.EvaluationResult{Matched: runs[0].Matched, Coverage: runs[0].Coverage, Recall: runs[0].Recall},
	)
	return &comparison, nil
}

// referenceCheckpoints 取参考检查点，缓存优先，未命中时调用大模型生成并回填缓存
func (p *EvaluationPipeline) referenceCheckpoints(ctx context.Context, documentText string) ([]map[string]interface{}, bool, error) {
	documentMD5 := storage.DocumentMD5(documentText)

	if p.referenceCache != nil {
		cached, err := p.referenceCache.GetReferenceCheckpoints(ctx, documentMD5)
		if err == nil {
			logger.Debug().Str("md5", documentMD5).Int("count", len(cached)).Msg("参考检查点缓存命中")
			return cached, true, nil
		}
		if err != storage.ErrNotFound {
			logger.Warn().Err(err).Str("md5", documentMD5).Msg("读取参考检查点缓存失败，降级为重新生成")
		}
	}

	if p.referenceProvider == nil {
		return nil, false, fmt.Errorf("参考检查点缓存未命中且未配置生成器")
	}

	generated, err := p.referenceProvider.GenerateReferenceCheckpoints(ctx, documentText)
	if err != nil {
		return nil, false, err
	}

	if p.referenceCache != nil {
		if cacheErr := p.referenceCache.SetReferenceCheckpoints(ctx, documentMD5, generated); cacheErr != nil {
			logger.Warn().Err(cacheErr).Str("md5", documentMD5).Msg("写入参考检查点缓存失败")
		}
	}
	return generated, false, nil
}

// persistOutcome 产物落盘、上传、运行记录与事件发布
// 各步骤互相独立，失败只记日志。
func (p *EvaluationPipeline) persistOutcome(ctx context.Context, req DocumentEvaluationRequest, outcome *EvaluationOutcome) {
	if p.outputDir != "" {
		path, err := p.reportBuilder.SaveLocal(outcome.Artifact, p.outputDir)
		if err != nil {
			logger.Warn().Err(err).Msg("评估产物落盘失败")
		} else {
			outcome.ArtifactPath = path
		}
	}

	if p.artifactStore != nil {
		objectName, err := p.artifactStore.UploadArtifact(ctx, outcome.Artifact)
		if err != nil {
			logger.Warn().Err(err).Msg("评估产物上传失败")
		} else {
			outcome.ArtifactObject = objectName
		}
	}

	if p.runRecorder != nil {
		run := p.buildRunRecord(req, outcome)
		if err := p.runRecorder.SaveEvaluationRun(ctx, run); err != nil {
			logger.Warn().Err(err).Str("run_id", run.RunID).Msg("保存评估运行记录失败")
		}
	}

	if p.runPointer != nil {
		if err := p.runPointer.SetLatestRunID(ctx, req.TaskName, outcome.RunID); err != nil {
			logger.Warn().Err(err).Msg("记录最近运行ID失败")
		}
	}

	if p.eventPublisher != nil {
		event := storage.EvaluationCompletedEvent{
			RunID:     outcome.RunID,
			TaskName:  req.TaskName,
			Matched:   outcome.Result.Matched,
			Coverage:  outcome.Result.Coverage,
			Recall:    outcome.Result.Recall,
			Timestamp: outcome.Artifact.Timestamp,
		}
		if err := p.eventPublisher.PublishEvaluationCompleted(ctx, event); err != nil {
			logger.Warn().Err(err).Msg("发布评估完成事件失败")
		}
	}
}

// buildRunRecord 组装评估运行的持久化记录
func (p *EvaluationPipeline) buildRunRecord(req DocumentEvaluationRequest, outcome *EvaluationOutcome) *models.EvaluationRun {
	var matchedPairs datatypes.JSON
	if data, err := json.Marshal(outcome.Artifact.Comparison.MatchedPairs); err == nil {
		matchedPairs = data
	}

	return &models.EvaluationRun{
		RunID:          outcome.RunID,
		TaskName:       req.TaskName,
		DocumentMD5:    storage.DocumentMD5(req.DocumentText),
		EvaluatorVer:   constants.DefaultEvaluatorVer,
		AlgorithmCount: outcome.Result.AlgorithmCount,
		ReferenceCount: outcome.Result.ReferenceCount,
		Matched:        outcome.Result.Matched,
		Coverage:       outcome.Result.Coverage,
		Recall:         outcome.Result.Recall,
		ExactPrecision: outcome.ExactStats.Precision,
		ExactRecall:    outcome.ExactStats.Recall,
		ExactF1:        outcome.ExactStats.F1Score,
		MatchedPairs:   matchedPairs,
		ArtifactObject: outcome.ArtifactObject,
	}
}
