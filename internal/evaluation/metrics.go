package evaluation

import (
	"math"

	"bid-eval-go/internal/types"
)

// DefaultRounding 指标默认保留小数位
const DefaultRounding = 2

// Aggregator 指标汇总器
// 每个除法前都有显式的零值保护，任何退化输入都产出良构结果。
type Aggregator struct {
	rounding int
}

// NewAggregator 创建指标汇总器
func NewAggregator(rounding int) *Aggregator {
	if rounding <= 0 {
		rounding = DefaultRounding
	}
	return &Aggregator{rounding: rounding}
}

// Aggregate 从匹配结果计算阈值路径指标
// coverage/recall 是不同分母下的两个召回式指标（百分数）：
// coverage 的分母是参考侧数量，recall 的分母是算法侧数量。
func (a *Aggregator) Aggregate(result types.MatchResult, algorithmCount, referenceCount int) types.EvaluationResult {
	matched := len(result.Pairs)

	coverage := 0.0
	if referenceCount > 0 {
		coverage = float64(matched) / float64(referenceCount) * 100
	}

	recall := 0.0
	if algorithmCount > 0 {
		recall = float64(matched) / float64(algorithmCount) * 100
	}

	return types.EvaluationResult{
		AlgorithmCount: algorithmCount,
		ReferenceCount: referenceCount,
		Matched:        matched,
		Coverage:       a.round(coverage),
		Recall:         a.round(recall),
		MatchedPairs:   result.Pairs,
	}
}

// ExactStats 基于归一化文本的精确集合交集计算 precision/recall/F1
// 与阈值匹配路径相互独立：模糊匹配回答"是不是大致同一条要求"，
// 精确匹配回答"算法是否复现了一字不差的表述"，两者不可混同。
func (a *Aggregator) ExactStats(algorithm, reference []types.Checkpoint) types.ExactMatchStats {
	algorithmTexts := textSet(algorithm)
	referenceTexts := textSet(reference)

	matched := 0
	for text := range algorithmTexts {
		if _, ok := referenceTexts[text]; ok {
			matched++
		}
	}

	totalAlgorithm := len(algorithmTexts)
	totalReference := len(referenceTexts)

	precision := 0.0
	if totalAlgorithm > 0 {
		precision = float64(matched) / float64(totalAlgorithm)
	}
	recall := 0.0
	if totalReference > 0 {
		recall = float64(matched) / float64(totalReference)
	}
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return types.ExactMatchStats{
		TotalReference: totalReference,
		TotalAlgorithm: totalAlgorithm,
		Matched:        matched,
		Precision:      a.round(precision * 100),
		Recall:         a.round(recall * 100),
		F1Score:        a.round(f1 * 100),
	}
}

// TierCounts 按相似度分档的配对计数
// Strict 是相似度超过完全匹配阈值的配对数，Partial 是落在部分匹配档的配对数。
type TierCounts struct {
	Strict  int `json:"strict"`
	Partial int `json:"partial"`
}

// Tiers 对配对按置信度分档
// strictThreshold 与 partialThreshold 来自配置；相似度严格大于阈值才进档。
func (a *Aggregator) Tiers(result types.MatchResult, strictThreshold, partialThreshold float64) TierCounts {
	var tiers TierCounts
	for _, pair := range result.Pairs {
		switch {
		case pair.Similarity > strictThreshold:
			tiers.Strict++
		case pair.Similarity > partialThreshold:
			tiers.Partial++
		}
	}
	return tiers
}

// textSet 提取非空归一化文本的集合（重复文本折叠）
func textSet(checkpoints []types.Checkpoint) map[string]struct{} {
	texts := make(map[string]struct{}, len(checkpoints))
	for _, cp := range checkpoints {
		if cp.Text != "" {
			texts[cp.Text] = struct{}{}
		}
	}
	return texts
}

// round 按配置的小数位四舍五入
func (a *Aggregator) round(v float64) float64 {
	pow := math.Pow(10, float64(a.rounding))
	return math.Round(v*pow) / pow
}
