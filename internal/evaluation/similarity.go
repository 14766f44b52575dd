package evaluation

import (
	"strings"

	"bid-eval-go/internal/types"
)

// Strategy 相似度计算策略
// 历史上三处各自为政的打分实现收敛为一个带策略参数的打分器。
type Strategy int

const (
	// StrategyExact 归一化文本完全相等才算匹配
	StrategyExact Strategy = iota
	// StrategyJaccard 纯词集Jaccard相似度
	StrategyJaccard
	// StrategyJaccardWithCategoryBonus Jaccard加类别命中加分
	StrategyJaccardWithCategoryBonus
)

// DefaultCategoryBonus 类别命中时的默认加分
const DefaultCategoryBonus = 0.1

// Scorer 相似度打分器
// 纯函数、确定性、基础项对称；得分始终落在[0,1]。
type Scorer struct {
	strategy      Strategy
	categoryBonus float64
}

// ScorerOption 打分器配置选项
type ScorerOption func(*Scorer)

// WithCategoryBonus 设置类别命中加分
func WithCategoryBonus(bonus float64) ScorerOption {
	return func(s *Scorer) {
		s.categoryBonus = bonus
	}
}

// NewScorer 创建打分器
func NewScorer(strategy Strategy, options ...ScorerOption) *Scorer {
	scorer := &Scorer{
		strategy:      strategy,
		categoryBonus: DefaultCategoryBonus,
	}
	for _, opt := range options {
		opt(scorer)
	}
	return scorer
}

// Similarity 计算两个归一化检查点之间的相似度，范围[0,1]
// 任一侧文本为空时恒为0，与类别无关。
func (s *Scorer) Similarity(a, b types.Checkpoint) float64 {
	if a.IsEmpty() || b.IsEmpty() {
		return 0.0
	}

	switch s.strategy {
	case StrategyExact:
		if a.Text == b.Text {
			return 1.0
		}
		return 0.0
	case StrategyJaccard:
		return jaccard(tokenSet(a.Text), tokenSet(b.Text))
	case StrategyJaccardWithCategoryBonus:
		score := jaccard(tokenSet(a.Text), tokenSet(b.Text))
		if s.categoryHit(a, b) {
			score += s.categoryBonus
		}
		// 源实现没有对加分后的得分做上限截断，这里收口到1.0保证良构
		return clamp01(score)
	default:
		return 0.0
	}
}

// categoryHit 判断类别软信号是否命中
// 两侧类别都非空，且任一侧的类别出现在对侧文本中（不区分大小写）。
// or 语义使加分项与参数顺序无关。
func (s *Scorer) categoryHit(a, b types.Checkpoint) bool {
	if a.Category == "" || b.Category == "" {
		return false
	}
	catA := strings.ToLower(a.Category)
	catB := strings.ToLower(b.Category)
	return strings.Contains(b.Text, catA) || strings.Contains(a.Text, catB)
}

// tokenSet 按空白切分出小写词集合（重复词折叠，词集而非多重集）
func tokenSet(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(text) {
		tokens[strings.ToLower(tok)] = struct{}{}
	}
	return tokens
}

// jaccard 计算两个词集的Jaccard指数 |A∩B| / |A∪B|
// 任一侧为空集时显式返回0，避免0/0。
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func clamp01(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0.0 {
		return 0.0
	}
	return v
}
