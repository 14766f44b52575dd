package processor

import "time"

// PipelineOption 评估流水线的配置选项
type PipelineOption func(*EvaluationPipeline)

// WithReferenceCache 设置参考检查点缓存
func WithReferenceCache(cache ReferenceCache) PipelineOption {
	return func(p *EvaluationPipeline) {
		p.referenceCache = cache
	}
}

// WithArtifactStore 设置评估产物对象存储
func WithArtifactStore(store ArtifactStore) PipelineOption {
	return func(p *EvaluationPipeline) {
		p.artifactStore = store
	}
}

// WithRunRecorder 设置评估运行记录存储
func WithRunRecorder(recorder RunRecorder) PipelineOption {
	return func(p *EvaluationPipeline) {
		p.runRecorder = recorder
	}
}

// WithRunPointer 设置最近运行ID指针存储
func WithRunPointer(pointer RunPointer) PipelineOption {
	return func(p *EvaluationPipeline) {
		p.runPointer = pointer
	}
}

// WithEventPublisher 设置评估完成事件发布器
func WithEventPublisher(publisher EventPublisher) PipelineOption {
	return func(p *EvaluationPipeline) {
		p.eventPublisher = publisher
	}
}

// WithOutputDir 设置产物本地落盘目录，空字符串表示不落盘
func WithOutputDir(dir string) PipelineOption {
	return func(p *EvaluationPipeline) {
		p.outputDir = dir
	}
}

// WithNowFunc 设置时间源，测试用
func WithNowFunc(now func() time.Time) PipelineOption {
	return func(p *EvaluationPipeline) {
		p.now = now
	}
}
