package constants

import "time"

const (
	// DefaultEvaluatorVer 当前评估流程版本，写入评估记录便于横向对比
	DefaultEvaluatorVer = "v2"

	// ReferenceCacheDuration 参考检查点缓存默认有效期
	ReferenceCacheDuration = 24 * time.Hour

	// ArtifactTimestampLayout 评估产物文件名中的时间戳格式 (YYYYMMDD_HHMMSS)
	ArtifactTimestampLayout = "20060102_150405"
)
