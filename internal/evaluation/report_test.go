package evaluation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bid-eval-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildArtifactShape 产物结构应符合既有结果文件的字段约定
func TestBuildArtifactShape(t *testing.T) {
	algorithmRaw := map[string]interface{}{"id": "1", "label": "封面检查", "value": "完整"}
	referenceRaw := map[string]interface{}{"category": "封面检查", "content": "封面是否完整"}

	algorithm := []types.Checkpoint{Normalize(algorithmRaw, types.SourceAlgorithm)}
	reference := []types.Checkpoint{Normalize(referenceRaw, types.SourceReference)}

	result := types.EvaluationResult{
		AlgorithmCount: 1,
		ReferenceCount: 1,
		Matched:        1,
		Coverage:       100.0,
		Recall:         100.0,
		MatchedPairs: []types.Match{{
			Algorithm:  algorithm[0],
			Reference:  reference[0],
			Similarity: 0.67,
		}},
	}

	builder := NewReportBuilder()
	now := time.Date(2026, 8, 28, 15, 4, 5, 0, time.Local)
	artifact := builder.BuildArtifact("tender_001", algorithm, reference, result, nil, now)

	assert.Equal(t, "20260828_150405", artifact.Timestamp, "时间戳格式应为YYYYMMDD_HHMMSS")
	assert.Equal(t, 1, artifact.Comparison.AlgorithmCount)
	assert.Equal(t, 1, artifact.Comparison.ClaudeCount, "参考侧数量写入遗留字段claude_count")
	require.Len(t, artifact.Comparison.MatchedPairs, 1)
	assert.Equal(t, algorithmRaw, artifact.Comparison.MatchedPairs[0].Algorithm, "匹配对应保留原始记录")
	assert.Equal(t, referenceRaw, artifact.Comparison.MatchedPairs[0].ZhipuAI)

	// JSON序列化后的字段名检查
	data, err := json.Marshal(artifact)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"claude_count"`)
	assert.Contains(t, string(data), `"zhipuai"`)
	assert.Contains(t, string(data), `"matched_pairs"`)
}

// TestSaveLocal 产物应落盘到带时间戳的JSON文件
func TestSaveLocal(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "report-test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	builder := NewReportBuilder()
	artifact := types.EvaluationArtifact{
		Timestamp: "20260828_120000",
		TaskName:  "demo",
	}

	path, err := builder.SaveLocal(artifact, filepath.Join(tmpDir, "results"))
	require.NoError(t, err, "落盘不应失败")
	assert.Equal(t, "evaluation_demo_20260828_120000.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded types.EvaluationArtifact
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, artifact.Timestamp, loaded.Timestamp)
}

// TestImprovementRating 覆盖率增量的定性分档
func TestImprovementRating(t *testing.T) {
	cases := []struct {
		delta    float64
		expected string
	}{
		{60.0, "显著提升"},
		{50.0, "很大提升"}, // 边界值：>50才算显著
		{35.0, "很大提升"},
		{20.0, "明显提升"},
		{5.0, "有所提升"},
		{0.0, "需要进一步优化"},
		{-10.0, "需要进一步优化"},
	}

	builder := NewReportBuilder()
	for _, tc := range cases {
		comparison := builder.CompareRuns(
			types.EvaluationResult{Coverage: 10.0},
			types.EvaluationResult{Coverage: 10.0 + tc.delta},
		)
		assert.Equal(t, tc.expected, comparison.Rating, "覆盖率增量%.1f的评级不符", tc.delta)
		assert.InDelta(t, tc.delta, comparison.CoverageDelta, 1e-9)
	}
}

// TestCompareRunsDeltas 运行对比的各项增量
func TestCompareRunsDeltas(t *testing.T) {
	builder := NewReportBuilder()
	comparison := builder.CompareRuns(
		types.EvaluationResult{Matched: 3, Coverage: 30.0, Recall: 25.0},
		types.EvaluationResult{Matched: 8, Coverage: 72.5, Recall: 60.0},
	)

	assert.Equal(t, 5, comparison.MatchedDelta)
	assert.InDelta(t, 42.5, comparison.CoverageDelta, 1e-9)
	assert.InDelta(t, 35.0, comparison.RecallDelta, 1e-9)
	assert.Equal(t, "很大提升", comparison.Rating)
}

// TestBatchReport 批量报告包含逐文档明细与均值
func TestBatchReport(t *testing.T) {
	builder := NewReportBuilder()
	results := []types.EvaluationResult{
		{Matched: 5, ReferenceCount: 10, Coverage: 50.0, Recall: 40.0},
		{Matched: 8, ReferenceCount: 10, Coverage: 80.0, Recall: 70.0},
	}
	exact := []types.ExactMatchStats{
		{F1Score: 30.0},
		{F1Score: 50.0},
	}

	report := builder.BatchReport(results, exact)

	assert.Contains(t, report, "评估文档数量: 2")
	assert.Contains(t, report, "文档 1:")
	assert.Contains(t, report, "文档 2:")
	assert.Contains(t, report, "平均覆盖率: 65.00%")
	assert.Contains(t, report, "平均召回率: 55.00%")
	assert.Contains(t, report, "平均F1分数: 40.00")
}

// TestBatchReportEmpty 空结果集不应崩溃
func TestBatchReportEmpty(t *testing.T) {
	report := NewReportBuilder().BatchReport(nil, nil)
	assert.Contains(t, report, "评估文档数量: 0")
}
