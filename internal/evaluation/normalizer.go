package evaluation

import (
	"fmt"
	"strings"

	"bid-eval-go/internal/logger"
	"bid-eval-go/internal/types"
)

// 字段探测规则：每个逻辑属性对应一组按优先级排列的候选键。
// 规则是数据而不是嵌套条件，新的上游字段名只需在这里追加。
var (
	idKeys       = []string{"id", "checkpointId"}
	categoryKeys = []string{"category", "type"}
	textKeys     = []string{"content", "description", "label", "text"}
	// 算法侧记录的 label+value 形式，value 作为额外的文本候选键
	algorithmExtraTextKeys = []string{"value"}
	importanceKeys         = []string{"importance", "level"}
)

// Normalize 将一条异构检查点记录归一化为统一形态
// 任何缺失或畸形字段都降级为默认值，永不失败。
func Normalize(raw map[string]interface{}, source types.Source) types.Checkpoint {
	cp := types.Checkpoint{
		ID:       probeFirst(raw, idKeys),
		Category: probeFirst(raw, categoryKeys),
		Source:   source,
		Raw:      raw,
	}

	// 文本字段收集所有非空候选并拼接，避免同时存在短label和长requirement时丢失信息
	keys := textKeys
	if source == types.SourceAlgorithm {
		keys = append(append([]string{}, textKeys...), algorithmExtraTextKeys...)
	}
	cp.Text = normalizeText(strings.Join(probeAll(raw, keys), " "))

	cp.Importance = probeFirst(raw, importanceKeys)
	if cp.Importance == "" && source == types.SourceAlgorithm {
		cp.Importance = "中"
	}

	return cp
}

// NormalizeList 归一化一批原始记录
// 非映射类型的记录会被跳过并记录日志，不中断整批处理。
func NormalizeList(items []interface{}, source types.Source) []types.Checkpoint {
	checkpoints := make([]types.Checkpoint, 0, len(items))
	for i, item := range items {
		raw, ok := item.(map[string]interface{})
		if !ok {
			logger.Warn().
				Int("index", i).
				Str("source", string(source)).
				Str("type", fmt.Sprintf("%T", item)).
				Msg("跳过非映射类型的检查点记录")
			continue
		}
		checkpoints = append(checkpoints, Normalize(raw, source))
	}
	return checkpoints
}

// NormalizeMaps 归一化已经是映射类型的记录列表
func NormalizeMaps(items []map[string]interface{}, source types.Source) []types.Checkpoint {
	checkpoints := make([]types.Checkpoint, 0, len(items))
	for _, raw := range items {
		checkpoints = append(checkpoints, Normalize(raw, source))
	}
	return checkpoints
}

// probeFirst 按顺序探测候选键，返回第一个非空值
func probeFirst(raw map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if s := asString(raw[key]); s != "" {
			return s
		}
	}
	return ""
}

// probeAll 收集所有候选键上的非空值
func probeAll(raw map[string]interface{}, keys []string) []string {
	var values []string
	for _, key := range keys {
		if s := asString(raw[key]); s != "" {
			values = append(values, s)
		}
	}
	return values
}

// asString 将任意JSON解码值转为字符串，不可转换时返回空串
func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		// JSON数字解码为float64，整数值去掉小数部分
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%g", s)
	case int:
		return fmt.Sprintf("%d", s)
	case bool:
		return fmt.Sprintf("%t", s)
	default:
		return ""
	}
}

// normalizeText 小写化并把连续空白折叠为单个空格
func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
