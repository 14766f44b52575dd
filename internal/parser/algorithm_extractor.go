package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"bid-eval-go/internal/logger"
)

// AlgorithmResponse 算法服务检查点接口的响应包络
type AlgorithmResponse struct {
	Code int           `json:"code"`
	Msg  string        `json:"msg"`
	Data []interface{} `json:"data"`
}

// ExtractAlgorithmCheckpoints 从算法服务响应中提取扁平的检查点列表
// 响应是 {code, data} 包络，data 是带 children 的树；
// 带 id 的节点被收集为检查点，最近一级祖先的 label 下放为 category。
// code 非200或解析失败都降级为空列表，不中断批处理。
func ExtractAlgorithmCheckpoints(data []byte) []map[string]interface{} {
	var response AlgorithmResponse
	if err := json.Unmarshal(data, &response); err != nil {
		logger.Warn().Err(err).Msg("解析算法响应失败，返回空检查点列表")
		return nil
	}
	if response.Code != 200 {
		logger.Warn().Int("code", response.Code).Str("msg", response.Msg).
			Msg("算法响应码非200，返回空检查点列表")
		return nil
	}

	var checkpoints []map[string]interface{}
	flattenCheckpointTree(response.Data, "", &checkpoints)
	return checkpoints
}

// flattenCheckpointTree 递归展开检查点树
func flattenCheckpointTree(items []interface{}, parentCategory string, out *[]map[string]interface{}) {
	for _, item := range items {
		node, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		if id, _ := node["id"].(string); id != "" {
			*out = append(*out, map[string]interface{}{
				"id":               id,
				"category":         parentCategory,
				"label":            node["label"],
				"value":            node["value"],
				"location":         node["location"],
				"resultConclusion": node["resultConclusion"],
			})
		}

		if children, ok := node["children"].([]interface{}); ok && len(children) > 0 {
			currentCategory := parentCategory
			if label, _ := node["label"].(string); label != "" {
				currentCategory = label
			}
			flattenCheckpointTree(children, currentCategory, out)
		}
	}
}

// ParseReferenceCheckpoints 从大模型的自由文本回复中解析参考检查点
// 定位第一个 '{' 与最后一个 '}' 之间的子串做JSON解码，
// 取 checkpoints 键（兼容早期的 check_points 键名）。
func ParseReferenceCheckpoints(content string) ([]map[string]interface{}, error) {
	// 去掉可能的BOM前缀
	content = strings.TrimPrefix(content, "\uFEFF")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("回复中未找到JSON格式的检查点")
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(content[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("解码检查点JSON失败: %w", err)
	}

	items, ok := payload["checkpoints"].([]interface{})
	if !ok {
		// 早期prompt使用check_points键名
		items, ok = payload["check_points"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("JSON中缺少checkpoints字段")
		}
	}

	checkpoints := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if cp, ok := item.(map[string]interface{}); ok {
			checkpoints = append(checkpoints, cp)
		}
	}
	return checkpoints, nil
}
