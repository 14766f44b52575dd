package evaluation

import (
	"testing"

	"bid-eval-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAggregateFullMatch 场景1：全量匹配时覆盖率与召回率都是100
func TestAggregateFullMatch(t *testing.T) {
	result := types.MatchResult{
		Pairs: []types.Match{{Similarity: 1.0}},
	}

	agg := NewAggregator(2)
	eval := agg.Aggregate(result, 1, 1)

	assert.Equal(t, 1, eval.Matched)
	assert.Equal(t, 100.0, eval.Coverage)
	assert.Equal(t, 100.0, eval.Recall)
}

// TestAggregateZeroGuards 分母为零时返回0而不是NaN
func TestAggregateZeroGuards(t *testing.T) {
	agg := NewAggregator(2)

	eval := agg.Aggregate(types.MatchResult{}, 0, 0)
	assert.Equal(t, 0.0, eval.Coverage, "referenceCount为0时coverage应为0")
	assert.Equal(t, 0.0, eval.Recall, "algorithmCount为0时recall应为0")
	assert.Equal(t, 0, eval.Matched)
}

// TestAggregateAsymmetricDenominators 场景3：覆盖率与召回率分母不同
func TestAggregateAsymmetricDenominators(t *testing.T) {
	agg := NewAggregator(2)

	// 0个候选、1个参考：coverage=0/1, recall=0/0(保护后为0)
	eval := agg.Aggregate(types.MatchResult{}, 0, 1)
	assert.Equal(t, 0.0, eval.Coverage)
	assert.Equal(t, 0.0, eval.Recall)

	// 3个匹配对、参考4个、算法6个
	pairs := types.MatchResult{Pairs: make([]types.Match, 3)}
	eval = agg.Aggregate(pairs, 6, 4)
	assert.Equal(t, 75.0, eval.Coverage, "coverage = 3/4*100")
	assert.Equal(t, 50.0, eval.Recall, "recall = 3/6*100")
}

// TestAggregateRounding 指标按配置保留小数位
func TestAggregateRounding(t *testing.T) {
	pairs := types.MatchResult{Pairs: make([]types.Match, 1)}

	agg := NewAggregator(2)
	eval := agg.Aggregate(pairs, 3, 3)
	assert.Equal(t, 33.33, eval.Coverage, "1/3*100应四舍五入为33.33")
	assert.Equal(t, 33.33, eval.Recall)
}

// TestAggregateDuplicateReferencePairs 场景4的计数约定：配对数可超过参考数
func TestAggregateDuplicateReferencePairs(t *testing.T) {
	// 两个候选命中同一个参考项 → 2个配对、1个参考
	pairs := types.MatchResult{Pairs: make([]types.Match, 2)}

	agg := NewAggregator(2)
	eval := agg.Aggregate(pairs, 2, 1)

	assert.Equal(t, 2, eval.Matched)
	assert.Equal(t, 200.0, eval.Coverage, "参考项不出池时覆盖率可以超过100，保留该计数约定")
	assert.Equal(t, 100.0, eval.Recall)
}

// TestTiers 配对按完全/部分匹配阈值分档
func TestTiers(t *testing.T) {
	result := types.MatchResult{Pairs: []types.Match{
		{Similarity: 1.0},  // 完全匹配档
		{Similarity: 0.85}, // 完全匹配档
		{Similarity: 0.8},  // 恰好等于阈值，不进完全匹配档
		{Similarity: 0.6},  // 部分匹配档
		{Similarity: 0.4},  // 两档都不进
	}}

	agg := NewAggregator(2)
	tiers := agg.Tiers(result, 0.8, 0.5)

	assert.Equal(t, 2, tiers.Strict)
	assert.Equal(t, 2, tiers.Partial, "0.8落入部分匹配档")
}

// TestExactStatsPrecisionRecallF1 精确文本集合路径的指标计算
func TestExactStatsPrecisionRecallF1(t *testing.T) {
	algorithm := []types.Checkpoint{
		{Text: "投标人须具备二级资质"},
		{Text: "保证金10万元"},
		{Text: "封面须加盖公章"},
		{Text: "封面须加盖公章"}, // 重复文本折叠
	}
	reference := []types.Checkpoint{
		{Text: "投标人须具备二级资质"},
		{Text: "保证金10万元"},
	}

	agg := NewAggregator(2)
	stats := agg.ExactStats(algorithm, reference)

	assert.Equal(t, 3, stats.TotalAlgorithm, "重复文本应折叠")
	assert.Equal(t, 2, stats.TotalReference)
	assert.Equal(t, 2, stats.Matched)
	assert.Equal(t, 66.67, stats.Precision, "precision = 2/3")
	assert.Equal(t, 100.0, stats.Recall, "recall = 2/2")

	// f1 = 2*2/3*1/(2/3+1) = 0.8
	assert.Equal(t, 80.0, stats.F1Score)
}

// TestExactStatsEmptyInputs 空输入时所有指标为0
func TestExactStatsEmptyInputs(t *testing.T) {
	agg := NewAggregator(2)
	stats := agg.ExactStats(nil, nil)

	assert.Equal(t, 0, stats.Matched)
	assert.Equal(t, 0.0, stats.Precision)
	assert.Equal(t, 0.0, stats.Recall)
	assert.Equal(t, 0.0, stats.F1Score)
}

// TestExactStatsIgnoresEmptyText 空文本不进入集合
func TestExactStatsIgnoresEmptyText(t *testing.T) {
	algorithm := []types.Checkpoint{{Text: ""}, {Text: "有效内容"}}
	reference := []types.Checkpoint{{Text: ""}}

	agg := NewAggregator(2)
	stats := agg.ExactStats(algorithm, reference)

	require.Equal(t, 1, stats.TotalAlgorithm)
	assert.Equal(t, 0, stats.TotalReference, "空文本不应计入参考集合")
	assert.Equal(t, 0, stats.Matched)
}

// TestFuzzyAndExactAreIndependent 模糊路径与精确路径互不影响
func TestFuzzyAndExactAreIndependent(t *testing.T) {
	algorithm := []types.Checkpoint{
		makeCheckpoint("", "投标人 须 具备 二级 资质 证书", types.SourceAlgorithm),
	}
	reference := []types.Checkpoint{
		makeCheckpoint("", "投标人 须 具备 二级 资质", types.SourceReference),
	}

	matcher := newDefaultMatcher(0.3)
	agg := NewAggregator(2)

	fuzzy := agg.Aggregate(matcher.Match(algorithm, reference), len(algorithm), len(reference))
	exact := agg.ExactStats(algorithm, reference)

	assert.Equal(t, 1, fuzzy.Matched, "模糊匹配应认定为同一条要求")
	assert.Equal(t, 0, exact.Matched, "精确匹配要求一字不差，此处不应命中")
}
