package types

// Source 标识检查点的来源侧
type Source string

const (
	// SourceAlgorithm 算法服务提取的检查点（待评估侧）
	SourceAlgorithm Source = "ALGORITHM"
	// SourceReference 大模型生成的参考检查点（基准侧）
	SourceReference Source = "REFERENCE"
)

// Checkpoint 归一化后的检查点
// Text 为所有描述性字段拼接后小写、空白归一的结果，是相似度计算的唯一依据；
// Text 可以为空字符串但不会是"缺失"，Source 一经创建不再变化。
type Checkpoint struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Text       string `json:"text"`
	Importance string `json:"importance"`
	Source     Source `json:"source"`

	// Raw 保留归一化前的原始记录，仅用于报告审计，不参与匹配
	Raw map[string]interface{} `json:"-"`
}

// IsEmpty 判断检查点是否没有任何可匹配文本
func (c Checkpoint) IsEmpty() bool {
	return c.Text == ""
}

// Match 匹配器产出的一个配对
type Match struct {
	Algorithm  Checkpoint `json:"algorithm"`
	Reference  Checkpoint `json:"reference"`
	Similarity float64    `json:"similarity"`
}

// MatchResult 匹配器的完整输出：配对列表加两侧未匹配项
type MatchResult struct {
	Pairs               []Match      `json:"pairs"`
	UnmatchedCandidates []Checkpoint `json:"unmatched_candidates"`
	UnmatchedReferences []Checkpoint `json:"unmatched_references"`
}

// EvaluationResult 阈值匹配路径的指标汇总
// Coverage 与 Recall 均为百分数（0-100），分母分别是参考侧与算法侧数量。
type EvaluationResult struct {
	AlgorithmCount int     `json:"algorithm_count"`
	ReferenceCount int     `json:"reference_count"`
	Matched        int     `json:"matched"`
	Coverage       float64 `json:"coverage"`
	Recall         float64 `json:"recall"`
	MatchedPairs   []Match `json:"matched_pairs"`
}

// ExactMatchStats 精确文本集合路径的指标
// 与阈值匹配相互独立：它回答"算法是否复现了完全相同的表述"。
type ExactMatchStats struct {
	TotalReference int     `json:"total_reference_checkpoints"`
	TotalAlgorithm int     `json:"total_algorithm_checkpoints"`
	Matched        int     `json:"matched_checkpoints"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1Score        float64 `json:"f1_score"`
}

// MatchedPairView 评估产物中匹配对的序列化形式
// 字段名 algorithm/zhipuai 保持与既有结果文件兼容。
type MatchedPairView struct {
	Algorithm  map[string]interface{} `json:"algorithm"`
	ZhipuAI    map[string]interface{} `json:"zhipuai"`
	Similarity float64                `json:"similarity"`
}

// ComparisonView 评估产物中的对比区块
// claude_count 为历史遗留字段名，实际含义是参考侧数量。
type ComparisonView struct {
	AlgorithmCount int               `json:"algorithm_count"`
	ClaudeCount    int               `json:"claude_count"`
	Matched        int               `json:"matched"`
	Coverage       float64           `json:"coverage"`
	Recall         float64           `json:"recall"`
	MatchedPairs   []MatchedPairView `json:"matched_pairs,omitempty"`
}

// EvaluationArtifact 单次评估的JSON产物
type EvaluationArtifact struct {
	Timestamp            string                   `json:"timestamp"`
	TaskName             string                   `json:"task_name,omitempty"`
	AlgorithmCheckpoints []map[string]interface{} `json:"algorithm_checkpoints"`
	ReferenceCheckpoints []map[string]interface{} `json:"reference_checkpoints"`
	Comparison           ComparisonView           `json:"comparison"`
	ExactStats           *ExactMatchStats         `json:"exact_stats,omitempty"`
}
