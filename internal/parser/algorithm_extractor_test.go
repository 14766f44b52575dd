package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExtractAlgorithmCheckpoints 展开带children的检查点树并下放祖先label
func TestExtractAlgorithmCheckpoints(t *testing.T) {
	response := `{
		"code": 200,
		"data": [
			{
				"label": "资格要求",
				"children": [
					{"id": "cp-1", "label": "企业资质", "value": "二级及以上", "location": "第3页"},
					{
						"label": "人员要求",
						"children": [
							{"id": "cp-2", "label": "项目经理", "value": "一级建造师", "resultConclusion": "符合"}
						]
					}
				]
			},
			{"id": "cp-3", "label": "封面检查", "value": "完整"}
		]
	}`

	checkpoints := ExtractAlgorithmCheckpoints([]byte(response))

	require.Len(t, checkpoints, 3)
	assert.Equal(t, "cp-1", checkpoints[0]["id"])
	assert.Equal(t, "资格要求", checkpoints[0]["category"], "一级子节点应继承父label作为category")
	assert.Equal(t, "cp-2", checkpoints[1]["id"])
	assert.Equal(t, "人员要求", checkpoints[1]["category"], "深层节点应继承最近一级祖先的label")
	assert.Equal(t, "cp-3", checkpoints[2]["id"])
	assert.Equal(t, "", checkpoints[2]["category"], "顶层节点没有祖先category")
}

// TestExtractAlgorithmCheckpointsSkipsNodesWithoutID 无id节点只做分组不产出检查点
func TestExtractAlgorithmCheckpointsSkipsNodesWithoutID(t *testing.T) {
	response := `{"code": 200, "data": [{"label": "仅分组", "children": []}]}`
	assert.Empty(t, ExtractAlgorithmCheckpoints([]byte(response)))
}

// TestExtractAlgorithmCheckpointsNon200 响应码非200时降级为空列表
func TestExtractAlgorithmCheckpointsNon200(t *testing.T) {
	response := `{"code": 500, "msg": "internal error", "data": []}`
	assert.Empty(t, ExtractAlgorithmCheckpoints([]byte(response)))
}

// TestExtractAlgorithmCheckpointsMalformed 畸形JSON不panic、不中断
func TestExtractAlgorithmCheckpointsMalformed(t *testing.T) {
	assert.Empty(t, ExtractAlgorithmCheckpoints([]byte("not json at all")))
	assert.Empty(t, ExtractAlgorithmCheckpoints(nil))
}

// TestParseReferenceCheckpoints 从带说明文字的回复中切出JSON
func TestParseReferenceCheckpoints(t *testing.T) {
	content := "好的，以下是提取的检查点：\n```json\n" +
		`{"checkpoints": [{"category": "资格要求", "content": "投标人须具备二级资质", "importance": "高"}]}` +
		"\n```\n希望对您有帮助。"

	checkpoints, err := ParseReferenceCheckpoints(content)
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	assert.Equal(t, "资格要求", checkpoints[0]["category"])
	assert.Equal(t, "高", checkpoints[0]["importance"])
}

// TestParseReferenceCheckpointsLegacyKey 兼容早期check_points键名
func TestParseReferenceCheckpointsLegacyKey(t *testing.T) {
	content := `{"check_points": [{"category": "技术要求", "check_point": "技术方案完整性"}]}`

	checkpoints, err := ParseReferenceCheckpoints(content)
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	assert.Equal(t, "技术要求", checkpoints[0]["category"])
}

// TestParseReferenceCheckpointsNoJSON 无JSON时返回错误
func TestParseReferenceCheckpointsNoJSON(t *testing.T) {
	_, err := ParseReferenceCheckpoints("抱歉，我无法处理该文档。")
	assert.Error(t, err)
}

// TestParseReferenceCheckpointsMissingKey 缺少checkpoints字段时返回错误
func TestParseReferenceCheckpointsMissingKey(t *testing.T) {
	_, err := ParseReferenceCheckpoints(`{"items": []}`)
	assert.Error(t, err)
}

// TestParseReferenceCheckpointsBOM 带BOM前缀的回复也能解析
func TestParseReferenceCheckpointsBOM(t *testing.T) {
	content := "\uFEFF" + `{"checkpoints": [{"content": "封面检查"}]}`
	checkpoints, err := ParseReferenceCheckpoints(content)
	require.NoError(t, err)
	assert.Len(t, checkpoints, 1)
}
