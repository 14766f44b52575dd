package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"bid-eval-go/internal/config"
	"bid-eval-go/internal/constants"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound 键不存在时返回，封装底层的redis.Nil
var ErrNotFound = redis.Nil

// Redis 封装Redis客户端，提供参考检查点缓存
type Redis struct {
	Client *redis.Client
	cfg    *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端连接
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis地址不能为空")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	})

	// 注册OpenTelemetry钩子，记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("注册Redis追踪钩子失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("连接Redis %s 失败: %w", cfg.Address, err)
	}

	return &Redis{Client: client, cfg: cfg}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	return r.Client.Close()
}

// DocumentMD5 计算文档文本的MD5摘要，作为参考检查点缓存键
func DocumentMD5(documentText string) string {
	sum := md5.Sum([]byte(documentText))
	return hex.EncodeToString(sum[:])
}

// cacheExpiry 参考检查点缓存有效期，配置缺省时用常量默认值
func (r *Redis) cacheExpiry() time.Duration {
	if r.cfg.ReferenceCacheExpireHours > 0 {
		return time.Duration(r.cfg.ReferenceCacheExpireHours) * time.Hour
	}
	return constants.ReferenceCacheDuration
}

// GetReferenceCheckpoints 按文档MD5读取缓存的参考检查点
// 缓存未命中返回ErrNotFound。
func (r *Redis) GetReferenceCheckpoints(ctx context.Context, documentMD5 string) ([]map[string]interface{}, error) {
	key := fmt.Sprintf(constants.KeyReferenceCheckpoints, documentMD5)
	data, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var checkpoints []map[string]interface{}
	if err := json.Unmarshal(data, &checkpoints); err != nil {
		return nil, fmt.Errorf("反序列化缓存的参考检查点失败: %w", err)
	}
	return checkpoints, nil
}

// SetReferenceCheckpoints 按文档MD5缓存参考检查点
func (r *Redis) SetReferenceCheckpoints(ctx context.Context, documentMD5 string, checkpoints []map[string]interface{}) error {
	data, err := json.Marshal(checkpoints)
	if err != nil {
		return fmt.Errorf("序列化参考检查点失败: %w", err)
	}

	key := fmt.Sprintf(constants.KeyReferenceCheckpoints, documentMD5)
	if err := r.Client.Set(ctx, key, data, r.cacheExpiry()).Err(); err != nil {
		return fmt.Errorf("写入参考检查点缓存失败: %w", err)
	}
	return nil
}

// SetLatestRunID 记录任务最近一次评估运行的ID
func (r *Redis) SetLatestRunID(ctx context.Context, taskName, runID string) error {
	key := fmt.Sprintf(constants.KeyLatestRun, taskName)
	return r.Client.Set(ctx, key, runID, 0).Err()
}

// GetLatestRunID 读取任务最近一次评估运行的ID
// 不存在时返回ErrNotFound。
func (r *Redis) GetLatestRunID(ctx context.Context, taskName string) (string, error) {
	key := fmt.Sprintf(constants.KeyLatestRun, taskName)
	return r.Client.Get(ctx, key).Result()
}
