package evaluation

import (
	"bid-eval-go/internal/types"
)

// DefaultThreshold 贪心匹配的默认相似度阈值
const DefaultThreshold = 0.3

// Matcher 贪心匹配器
// 对每个候选项独立取最高分参考项，阈值达标即配对。
// 注意：参考项配对后不会从池中移除，多个候选可以命中同一个参考项；
// 这是刻意保留的计数约定，下游指标公式依赖它，不要改成二分图指派。
type Matcher struct {
	scorer    *Scorer
	threshold float64
}

// NewMatcher 创建匹配器
func NewMatcher(scorer *Scorer, threshold float64) *Matcher {
	if scorer == nil {
		scorer = NewScorer(StrategyJaccardWithCategoryBonus)
	}
	return &Matcher{
		scorer:    scorer,
		threshold: threshold,
	}
}

// Threshold 返回当前阈值
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match 在候选列表与参考列表之间做贪心最优匹配
// 空列表不是错误，直接产出零配对。全量O(n·m)两两比较，
// 检查点列表规模在几十量级，无需索引加速。
func (m *Matcher) Match(candidates, references []types.Checkpoint) types.MatchResult {
	result := types.MatchResult{
		Pairs: make([]types.Match, 0, len(candidates)),
	}

	matchedRefs := make(map[int]bool, len(references))

	for _, candidate := range candidates {
		bestScore := 0.0
		bestIdx := -1

		// 严格大于才更新，先出现者在平分时胜出，保证确定性
		for i, ref := range references {
			score := m.scorer.Similarity(candidate, ref)
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		if bestIdx >= 0 && bestScore >= m.threshold {
			result.Pairs = append(result.Pairs, types.Match{
				Algorithm:  candidate,
				Reference:  references[bestIdx],
				Similarity: bestScore,
			})
			matchedRefs[bestIdx] = true
		} else {
			result.UnmatchedCandidates = append(result.UnmatchedCandidates, candidate)
		}
	}

	for i, ref := range references {
		if !matchedRefs[i] {
			result.UnmatchedReferences = append(result.UnmatchedReferences, ref)
		}
	}

	return result
}
