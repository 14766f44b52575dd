package models

import (
	"time"

	"gorm.io/datatypes"
)

// EvaluationRun 一次评估运行的持久化记录
// MatchedPairs 以JSON列存储，便于直接还原产物明细。
type EvaluationRun struct {
	RunID        string `gorm:"column:run_id;type:varchar(36);primaryKey"`
	TaskName     string `gorm:"column:task_name;type:varchar(255);index:idx_task_created,priority:1"`
	DocumentMD5  string `gorm:"column:document_md5;type:varchar(32);index"`
	EvaluatorVer string `gorm:"column:evaluator_ver;type:varchar(16)"`

	AlgorithmCount int     `gorm:"column:algorithm_count"`
	ReferenceCount int     `gorm:"column:reference_count"`
	Matched        int     `gorm:"column:matched"`
	Coverage       float64 `gorm:"column:coverage"`
	Recall         float64 `gorm:"column:recall"`

	// 精确文本路径的指标，可能为空（纯列表评估时不计算）
	ExactPrecision float64 `gorm:"column:exact_precision"`
	ExactRecall    float64 `gorm:"column:exact_recall"`
	ExactF1        float64 `gorm:"column:exact_f1"`

	MatchedPairs datatypes.JSON `gorm:"column:matched_pairs;type:json"`

	// ArtifactObject 评估产物在对象存储中的object名，本地落盘时为空
	ArtifactObject string `gorm:"column:artifact_object;type:varchar(512)"`

	CreatedAt time.Time `gorm:"column:created_at;index:idx_task_created,priority:2"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName 指定表名
func (EvaluationRun) TableName() string {
	return "evaluation_runs"
}
