package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bid-eval-go/internal/constants"
	"bid-eval-go/internal/types"
)

// RunComparison 两次评估运行之间的改进情况
type RunComparison struct {
	MatchedDelta  int     `json:"matched_delta"`
	CoverageDelta float64 `json:"coverage_delta"`
	RecallDelta   float64 `json:"recall_delta"`
	Rating        string  `json:"rating"`
}

// ReportBuilder 评估报告构建器，仅做格式化与阈值分档，不含业务逻辑
type ReportBuilder struct{}

// NewReportBuilder 创建报告构建器
func NewReportBuilder() *ReportBuilder {
	return &ReportBuilder{}
}

// BuildArtifact 组装单次评估的JSON产物
func (r *ReportBuilder) BuildArtifact(
	taskName string,
	algorithm, reference []types.Checkpoint,
	result types.EvaluationResult,
	exactStats *types.ExactMatchStats,
	now time.Time,
) types.EvaluationArtifact {
	pairs := make([]types.MatchedPairView, 0, len(result.MatchedPairs))
	for _, pair := range result.MatchedPairs {
		pairs = append(pairs, types.MatchedPairView{
			Algorithm:  rawView(pair.Algorithm),
			ZhipuAI:    rawView(pair.Reference),
			Similarity: pair.Similarity,
		})
	}

	return types.EvaluationArtifact{
		Timestamp:            now.Format(constants.ArtifactTimestampLayout),
		TaskName:             taskName,
		AlgorithmCheckpoints: rawViews(algorithm),
		ReferenceCheckpoints: rawViews(reference),
		Comparison: types.ComparisonView{
			AlgorithmCount: result.AlgorithmCount,
			ClaudeCount:    result.ReferenceCount,
			Matched:        result.Matched,
			Coverage:       result.Coverage,
			Recall:         result.Recall,
			MatchedPairs:   pairs,
		},
		ExactStats: exactStats,
	}
}

// SaveLocal 将产物序列化并落盘到带时间戳的JSON文件，返回文件路径
func (r *ReportBuilder) SaveLocal(artifact types.EvaluationArtifact, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	name := fmt.Sprintf("evaluation_%s.json", artifact.Timestamp)
	if artifact.TaskName != "" {
		name = fmt.Sprintf("evaluation_%s_%s.json", artifact.TaskName, artifact.Timestamp)
	}
	path := filepath.Join(outputDir, name)

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化评估产物失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("写入评估产物失败: %w", err)
	}
	return path, nil
}

// Summary 生成单次评估的可读摘要
func (r *ReportBuilder) Summary(result types.EvaluationResult) string {
	var sb strings.Builder
	sb.WriteString("评估结果:\n")
	sb.WriteString(fmt.Sprintf("  算法提取: %d 个检查点\n", result.AlgorithmCount))
	sb.WriteString(fmt.Sprintf("  参考答案: %d 个检查点\n", result.ReferenceCount))
	sb.WriteString(fmt.Sprintf("  匹配检查点: %d 个\n", result.Matched))
	sb.WriteString(fmt.Sprintf("  覆盖率: %.1f%%\n", result.Coverage))
	sb.WriteString(fmt.Sprintf("  召回率: %.1f%%\n", result.Recall))
	return sb.String()
}

// CompareRuns 对比前后两次运行并给出改进评级
// 评级按覆盖率增量分档：>50 显著, >30 很大, >10 明显, >0 有所, 否则需要优化。
func (r *ReportBuilder) CompareRuns(previous, current types.EvaluationResult) RunComparison {
	coverageDelta := current.Coverage - previous.Coverage
	return RunComparison{
		MatchedDelta:  current.Matched - previous.Matched,
		CoverageDelta: coverageDelta,
		RecallDelta:   current.Recall - previous.Recall,
		Rating:        improvementRating(coverageDelta),
	}
}

// improvementRating 覆盖率增量的定性分档
func improvementRating(coverageDelta float64) string {
	switch {
	case coverageDelta > 50:
		return "显著提升"
	case coverageDelta > 30:
		return "很大提升"
	case coverageDelta > 10:
		return "明显提升"
	case coverageDelta > 0:
		return "有所提升"
	default:
		return "需要进一步优化"
	}
}

// BatchReport 生成批量评估的文本报告（逐文档明细加均值）
func (r *ReportBuilder) BatchReport(results []types.EvaluationResult, exactStats []types.ExactMatchStats) string {
	var sb strings.Builder
	sb.WriteString("=== 招标文件解析准确度评估报告 ===\n\n")
	sb.WriteString(fmt.Sprintf("评估文档数量: %d\n", len(results)))

	if len(results) == 0 {
		return sb.String()
	}

	var sumCoverage, sumRecall, sumF1 float64
	for i, result := range results {
		sb.WriteString(fmt.Sprintf("\n文档 %d:\n", i+1))
		sb.WriteString(fmt.Sprintf("  匹配检查点: %d / 参考 %d\n", result.Matched, result.ReferenceCount))
		sb.WriteString(fmt.Sprintf("  覆盖率: %.2f%%\n", result.Coverage))
		sb.WriteString(fmt.Sprintf("  召回率: %.2f%%\n", result.Recall))
		sumCoverage += result.Coverage
		sumRecall += result.Recall
		if i < len(exactStats) {
			sb.WriteString(fmt.Sprintf("  F1分数(精确): %.2f\n", exactStats[i].F1Score))
			sumF1 += exactStats[i].F1Score
		}
	}

	n := float64(len(results))
	sb.WriteString("\n=== 平均分数 ===\n")
	sb.WriteString(fmt.Sprintf("平均覆盖率: %.2f%%\n", sumCoverage/n))
	sb.WriteString(fmt.Sprintf("平均召回率: %.2f%%\n", sumRecall/n))
	if len(exactStats) > 0 {
		sb.WriteString(fmt.Sprintf("平均F1分数: %.2f\n", sumF1/float64(len(exactStats))))
	}
	return sb.String()
}

// rawView 序列化检查点时优先使用原始记录，缺失时退化为归一化视图
func rawView(cp types.Checkpoint) map[string]interface{} {
	if cp.Raw != nil {
		return cp.Raw
	}
	return map[string]interface{}{
		"id":         cp.ID,
		"category":   cp.Category,
		"text":       cp.Text,
		"importance": cp.Importance,
	}
}

func rawViews(checkpoints []types.Checkpoint) []map[string]interface{} {
	views := make([]map[string]interface{}, 0, len(checkpoints))
	for _, cp := range checkpoints {
		views = append(views, rawView(cp))
	}
	return views
}
