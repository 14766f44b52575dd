package constants

// Redis Key 前缀和格式常量
// 统一命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// EvalModulePrefix 评估模块
	EvalModulePrefix = "eval"

	// EntityReference 参考检查点实体
	EntityReference = "reference"
	// EntityRun 评估运行实体
	EntityRun = "run"

	// KeyReferenceCheckpoints 参考检查点缓存 (STRING, JSON序列化)
	// 格式: app:eval:reference:{documentMD5}
	KeyReferenceCheckpoints = AppPrefix + ":" + EvalModulePrefix + ":" + EntityReference + ":%s"

	// KeyLatestRun 最近一次评估运行ID (STRING)
	// 格式: app:eval:run:{taskName}
	KeyLatestRun = AppPrefix + ":" + EvalModulePrefix + ":" + EntityRun + ":%s"
)
