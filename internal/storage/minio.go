package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bid-eval-go/internal/config"
	"bid-eval-go/internal/logger"
	"bid-eval-go/internal/types"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// MinIO 提供评估产物的对象存储
type MinIO struct {
	client        *minio.Client
	cfg           *config.MinIOConfig
	resultsBucket string
}

// NewMinIO 创建MinIO客户端并确保产物存储桶存在
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	resultsBucket := cfg.ResultsBucket
	if resultsBucket == "" {
		resultsBucket = "evaluation-results"
	}

	m := &MinIO{
		client:        client,
		cfg:           cfg,
		resultsBucket: resultsBucket,
	}

	if err := m.ensureBucketExists(resultsBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保产物存储桶 %s 存在失败: %w", resultsBucket, err)
	}

	if cfg.ResultExpireDays > 0 {
		if err := m.setupBucketLifecycle(context.Background(), resultsBucket, "expire-results", cfg.ResultExpireDays); err != nil {
			logger.Warn().Err(err).Str("bucket", resultsBucket).Msg("设置产物生命周期规则失败")
		}
	}

	logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", resultsBucket).Msg("MinIO客户端初始化成功")
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		if err := m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
	}
	return nil
}

// setupBucketLifecycle 为存储桶设置过期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expireDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expireDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, lc)
}

// UploadArtifact 上传评估产物JSON并返回object名
// 对象按 {taskName}/evaluation_{taskName}_{timestamp}.json 组织。
func (m *MinIO) UploadArtifact(ctx context.Context, artifact types.EvaluationArtifact) (string, error) {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化评估产物失败: %w", err)
	}

	taskName := artifact.TaskName
	if taskName == "" {
		taskName = "default"
	}
	objectName := fmt.Sprintf("%s/evaluation_%s_%s.json", taskName, taskName, artifact.Timestamp)

	_, err = m.client.PutObject(ctx, m.resultsBucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("上传评估产物 %s 失败: %w", objectName, err)
	}

	logger.Info().Str("object", objectName).Int("bytes", len(data)).Msg("评估产物已上传")
	return objectName, nil
}

// UploadReport 上传批量评估的文本报告，返回object名
func (m *MinIO) UploadReport(ctx context.Context, reportName, report string) (string, error) {
	if reportName == "" {
		reportName = "batch"
	}
	objectName := fmt.Sprintf("reports/%s_%s.txt", reportName, time.Now().Format("20060102_150405"))

	data := []byte(report)
	_, err := m.client.PutObject(ctx, m.resultsBucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return "", fmt.Errorf("上传评估报告 %s 失败: %w", objectName, err)
	}
	return objectName, nil
}

// DownloadArtifact 下载评估产物
func (m *MinIO) DownloadArtifact(ctx context.Context, objectName string) (*types.EvaluationArtifact, error) {
	object, err := m.client.GetObject(ctx, m.resultsBucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取评估产物 %s 失败: %w", objectName, err)
	}
	defer object.Close()

	var artifact types.EvaluationArtifact
	if err := json.NewDecoder(object).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("解码评估产物 %s 失败: %w", objectName, err)
	}
	return &artifact, nil
}

// GetPresignedURL 获取评估产物的预签名下载URL
func (m *MinIO) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.resultsBucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成预签名URL失败: %w", err)
	}
	return url.String(), nil
}
