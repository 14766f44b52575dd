package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"bid-eval-go/internal/config"
	"bid-eval-go/internal/storage"
	"bid-eval-go/internal/storage/models"
	"bid-eval-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockReferenceProvider 按预设返回参考检查点
type MockReferenceProvider struct {
	checkpoints []map[string]interface{}
	err         error
	callCount   int
}

func (m *MockReferenceProvider) GenerateReferenceCheckpoints(ctx context.Context, documentText string) ([]map[string]interface{}, error) {
	m.callCount++
	if m.err != nil {
		return nil, m.err
	}
	return m.checkpoints, nil
}

// MockReferenceCache 内存版参考检查点缓存
type MockReferenceCache struct {
	store map[string][]map[string]interface{}
}

func NewMockReferenceCache() *MockReferenceCache {
	return &MockReferenceCache{store: make(map[string][]map[string]interface{})}
}

func (m *MockReferenceCache) GetReferenceCheckpoints(ctx context.Context, documentMD5 string) ([]map[string]interface{}, error) {
	if cached, ok := m.store[documentMD5]; ok {
		return cached, nil
	}
	return nil, storage.ErrNotFound
}

func (m *MockReferenceCache) SetReferenceCheckpoints(ctx context.Context, documentMD5 string, checkpoints []map[string]interface{}) error {
	m.store[documentMD5] = checkpoints
	return nil
}

// MockArtifactStore 记录上传的产物
type MockArtifactStore struct {
	uploaded []types.EvaluationArtifact
	reports  []string
	err      error
}

func (m *MockArtifactStore) UploadArtifact(ctx context.Context, artifact types.EvaluationArtifact) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.uploaded = append(m.uploaded, artifact)
	return "mock/evaluation_" + artifact.Timestamp + ".json", nil
}

func (m *MockArtifactStore) UploadReport(ctx context.Context, reportName, report string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.reports = append(m.reports, report)
	return "mock/reports/" + reportName + ".txt", nil
}

// MockRunRecorder 内存版运行记录存储
type MockRunRecorder struct {
	saved []*models.EvaluationRun
	runs  []models.EvaluationRun
}

func (m *MockRunRecorder) SaveEvaluationRun(ctx context.Context, run *models.EvaluationRun) error {
	m.saved = append(m.saved, run)
	return nil
}

func (m *MockRunRecorder) LatestRuns(ctx context.Context, taskName string, limit int) ([]models.EvaluationRun, error) {
	if limit > len(m.runs) {
		limit = len(m.runs)
	}
	return m.runs[:limit], nil
}

// MockRunPointer 记录最近运行ID
type MockRunPointer struct {
	latest map[string]string
}

func (m *MockRunPointer) SetLatestRunID(ctx context.Context, taskName, runID string) error {
	if m.latest == nil {
		m.latest = make(map[string]string)
	}
	m.latest[taskName] = runID
	return nil
}

// MockEventPublisher 收集发布的事件
type MockEventPublisher struct {
	events []storage.EvaluationCompletedEvent
}

func (m *MockEventPublisher) PublishEvaluationCompleted(ctx context.Context, event storage.EvaluationCompletedEvent) error {
	m.events = append(m.events, event)
	return nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.OutputDir = "" // 测试中不落盘
	return cfg
}

var referenceFixture = []map[string]interface{}{
	{"category": "封面检查", "content": "封面 是否 完整", "importance": "中"},
	{"category": "资格要求", "content": "投标人 须 具备 二级 资质", "importance": "高"},
}

const algorithmResponseFixture = `{
	"code": 200,
	"data": [
		{"id": "cp-1", "label": "封面检查", "value": "封面 是否 完整"},
		{"id": "cp-2", "label": "资格要求", "value": "投标人 须 具备 二级 资质 证书"}
	]
}`

// TestEvaluateLists 纯列表评估的端到端指标
func TestEvaluateLists(t *testing.T) {
	pipeline := NewEvaluationPipeline(testConfig(), nil)

	algorithmRecords := []map[string]interface{}{
		{"id": "cp-1", "label": "封面检查", "value": "封面 是否 完整"},
	}

	outcome := pipeline.EvaluateLists(context.Background(), "demo", algorithmRecords, referenceFixture)

	assert.Equal(t, 1, outcome.Result.AlgorithmCount)
	assert.Equal(t, 2, outcome.Result.ReferenceCount)
	assert.Equal(t, 1, outcome.Result.Matched)
	assert.Equal(t, 50.0, outcome.Result.Coverage, "匹配1个/参考2个")
	assert.Equal(t, 100.0, outcome.Result.Recall, "匹配1个/算法1个")
	assert.NotEmpty(t, outcome.RunID)
	assert.Equal(t, "demo", outcome.Artifact.TaskName)
}

// TestEvaluateDocumentGeneratesAndCaches 缓存未命中时生成参考检查点并回填
func TestEvaluateDocumentGeneratesAndCaches(t *testing.T) {
	provider := &MockReferenceProvider{checkpoints: referenceFixture}
	cache := NewMockReferenceCache()

	pipeline := NewEvaluationPipeline(testConfig(), provider, WithReferenceCache(cache))

	req := DocumentEvaluationRequest{
		TaskName:          "tender_001",
		DocumentText:      "招标文件正文",
		AlgorithmResponse: []byte(algorithmResponseFixture),
	}

	outcome, err := pipeline.EvaluateDocument(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, outcome.ReferenceFromCache)
	assert.Equal(t, 1, provider.callCount)
	assert.Equal(t, 2, outcome.Result.Matched)

	// 第二次评估同一文档应命中缓存，不再调用生成器
	outcome2, err := pipeline.EvaluateDocument(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, outcome2.ReferenceFromCache)
	assert.Equal(t, 1, provider.callCount, "缓存命中时不应再调用大模型")
}

// TestEvaluateDocumentPersistence 运行记录、产物上传、指针与事件全链路
func TestEvaluateDocumentPersistence(t *testing.T) {
	provider := &MockReferenceProvider{checkpoints: referenceFixture}
	store := &MockArtifactStore{}
	recorder := &MockRunRecorder{}
	pointer := &MockRunPointer{}
	publisher := &MockEventPublisher{}

	pipeline := NewEvaluationPipeline(testConfig(), provider,
		WithArtifactStore(store),
		WithRunRecorder(recorder),
		WithRunPointer(pointer),
		WithEventPublisher(publisher),
		WithNowFunc(func() time.Time {
			return time.Date(2026, 8, 28, 12, 0, 0, 0, time.Local)
		}),
	)

	req := DocumentEvaluationRequest{
		TaskName:          "tender_001",
		DocumentText:      "招标文件正文",
		AlgorithmResponse: []byte(algorithmResponseFixture),
	}

	outcome, err := pipeline.EvaluateDocument(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, store.uploaded, 1)
	assert.Equal(t, "20260828_120000", store.uploaded[0].Timestamp)

	require.Len(t, recorder.saved, 1)
	run := recorder.saved[0]
	assert.Equal(t, outcome.RunID, run.RunID)
	assert.Equal(t, "tender_001", run.TaskName)
	assert.Equal(t, storage.DocumentMD5("招标文件正文"), run.DocumentMD5)
	assert.Equal(t, outcome.Result.Matched, run.Matched)
	assert.NotEmpty(t, run.MatchedPairs, "匹配对明细应序列化进运行记录")
	assert.Equal(t, outcome.ArtifactObject, run.ArtifactObject)

	assert.Equal(t, outcome.RunID, pointer.latest["tender_001"])

	require.Len(t, publisher.events, 1)
	assert.Equal(t, outcome.RunID, publisher.events[0].RunID)
	assert.Equal(t, outcome.Result.Coverage, publisher.events[0].Coverage)
}

// TestEvaluateDocumentProviderFailure 参考生成失败时整体报错
func TestEvaluateDocumentProviderFailure(t *testing.T) {
	provider := &MockReferenceProvider{err: errors.New("llm unavailable")}
	pipeline := NewEvaluationPipeline(testConfig(), provider)

	_, err := pipeline.EvaluateDocument(context.Background(), DocumentEvaluationRequest{
		TaskName:          "tender_001",
		DocumentText:      "正文",
		AlgorithmResponse: []byte(algorithmResponseFixture),
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "llm unavailable")
}

// TestEvaluateDocumentNoProviderNoCache 既无缓存命中又无生成器时报错
func TestEvaluateDocumentNoProviderNoCache(t *testing.T) {
	pipeline := NewEvaluationPipeline(testConfig(), nil, WithReferenceCache(NewMockReferenceCache()))

	_, err := pipeline.EvaluateDocument(context.Background(), DocumentEvaluationRequest{
		TaskName:     "tender_001",
		DocumentText: "正文",
	})
	assert.Error(t, err)
}

// TestEvaluateBatch 批量评估生成汇总报告
func TestEvaluateBatch(t *testing.T) {
	provider := &MockReferenceProvider{checkpoints: referenceFixture}
	pipeline := NewEvaluationPipeline(testConfig(), provider)

	requests := []DocumentEvaluationRequest{
		{TaskName: "doc_a", DocumentText: "文档A", AlgorithmResponse: []byte(algorithmResponseFixture)},
		{TaskName: "doc_b", DocumentText: "文档B", AlgorithmResponse: []byte(algorithmResponseFixture)},
	}

	batch, err := pipeline.EvaluateBatch(context.Background(), requests)
	require.NoError(t, err)
	require.Len(t, batch.Outcomes, 2)
	assert.Contains(t, batch.Report, "评估文档数量: 2")
	assert.Contains(t, batch.Report, "平均覆盖率")
}

// TestEvaluateBatchAllFailed 全部失败时返回错误
func TestEvaluateBatchAllFailed(t *testing.T) {
	provider := &MockReferenceProvider{err: errors.New("llm unavailable")}
	pipeline := NewEvaluationPipeline(testConfig(), provider)

	_, err := pipeline.EvaluateBatch(context.Background(), []DocumentEvaluationRequest{
		{TaskName: "doc_a", DocumentText: "文档A"},
	})
	assert.Error(t, err)
}

// TestCompareLatestRuns 最近两次运行的对比
func TestCompareLatestRuns(t *testing.T) {
	recorder := &MockRunRecorder{
		runs: []models.EvaluationRun{
			{RunID: "run-2", Matched: 8, Coverage: 72.5, Recall: 60.0},
			{RunID: "run-1", Matched: 3, Coverage: 30.0, Recall: 25.0},
		},
	}

	pipeline := NewEvaluationPipeline(testConfig(), nil, WithRunRecorder(recorder))

	comparison, err := pipeline.CompareLatestRuns(context.Background(), "tender_001")
	require.NoError(t, err)
	assert.Equal(t, 5, comparison.MatchedDelta)
	assert.InDelta(t, 42.5, comparison.CoverageDelta, 1e-9)
	assert.Equal(t, "很大提升", comparison.Rating)
}

// TestCompareLatestRunsInsufficientHistory 历史不足两次时报错
func TestCompareLatestRunsInsufficientHistory(t *testing.T) {
	recorder := &MockRunRecorder{runs: []models.EvaluationRun{{RunID: "run-1"}}}
	pipeline := NewEvaluationPipeline(testConfig(), nil, WithRunRecorder(recorder))

	_, err := pipeline.CompareLatestRuns(context.Background(), "tender_001")
	assert.Error(t, err)
}
