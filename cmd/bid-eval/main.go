package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bid-eval-go/internal/api/handler"
	"bid-eval-go/internal/api/router"
	"bid-eval-go/internal/config"
	"bid-eval-go/internal/parser"
	"bid-eval-go/internal/processor"
	"bid-eval-go/internal/storage"
	"bid-eval-go/internal/tracing"

	appLogger "bid-eval-go/internal/logger"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

var (
	version     = "2.0.0"      //nolint:gochecknoglobals
	serviceName = "bid-eval"   //nolint:gochecknoglobals
)

func main() {
	var (
		configPath    string
		taskName      string
		documentFile  string
		algorithmFile string
		referenceFile string
		batchManifest string
		threshold     float64
	)
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.StringVarP(&taskName, "task", "t", "default", "评估任务名")
	pflag.StringVar(&documentFile, "document-file", "", "招标文件文本路径（一次性评估模式）")
	pflag.StringVar(&algorithmFile, "algorithm-file", "", "算法服务响应JSON路径（一次性评估模式）")
	pflag.StringVar(&referenceFile, "reference-file", "", "参考检查点JSON路径，提供时跳过大模型生成")
	pflag.StringVar(&batchManifest, "batch-manifest", "", "批量评估清单YAML路径（批量评估模式）")
	pflag.Float64Var(&threshold, "threshold", -1, "相似度匹配阈值，覆盖配置文件中的取值")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if threshold >= 0 {
		cfg.Evaluation.SimilarityThreshold = threshold
	}

	initLogger(cfg)
	glog.Infof("%s v%s 配置加载成功", serviceName, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitTracerProvider(ctx, &cfg.Tracing)
	if err != nil {
		glog.Warnf("初始化追踪失败: %v", err)
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := shutdownTracing(shutdownCtx); err != nil {
			glog.Warnf("关闭追踪失败: %v", err)
		}
	}()

	// 批量评估模式：给定清单文件时逐个评估后直接退出
	if batchManifest != "" {
		if err := runBatch(ctx, cfg, batchManifest); err != nil {
			glog.Fatalf("批量评估失败: %v", err)
		}
		return
	}

	// 一次性评估模式：给定算法响应文件时评估后直接退出
	if algorithmFile != "" {
		if err := runOnce(ctx, cfg, taskName, documentFile, algorithmFile, referenceFile); err != nil {
			glog.Fatalf("一次性评估失败: %v", err)
		}
		return
	}

	runServer(ctx, cfg)
}

// runOnce 命令行下的单文档评估
func runOnce(ctx context.Context, cfg *config.Config, taskName, documentFile, algorithmFile, referenceFile string) error {
	algorithmResponse, err := os.ReadFile(algorithmFile)
	if err != nil {
		return fmt.Errorf("读取算法响应文件失败: %w", err)
	}

	pipeline, err := buildPipeline(ctx, cfg, nil)
	if err != nil {
		return err
	}

	// 提供参考检查点文件时走纯列表评估，不调用大模型
	if referenceFile != "" {
		referenceContent, err := os.ReadFile(referenceFile)
		if err != nil {
			return fmt.Errorf("读取参考检查点文件失败: %w", err)
		}
		referenceRecords, err := parser.ParseReferenceCheckpoints(string(referenceContent))
		if err != nil {
			return fmt.Errorf("解析参考检查点文件失败: %w", err)
		}

		algorithmRecords := parser.ExtractAlgorithmCheckpoints(algorithmResponse)
		outcome := pipeline.EvaluateLists(ctx, taskName, algorithmRecords, referenceRecords)
		printOutcome(outcome)
		return nil
	}

	if documentFile == "" {
		return fmt.Errorf("未提供--reference-file时必须提供--document-file")
	}
	documentText, err := os.ReadFile(documentFile)
	if err != nil {
		return fmt.Errorf("读取招标文件失败: %w", err)
	}

	outcome, err := pipeline.EvaluateDocument(ctx, processor.DocumentEvaluationRequest{
		TaskName:          taskName,
		DocumentText:      string(documentText),
		AlgorithmResponse: algorithmResponse,
	})
	if err != nil {
		return err
	}
	printOutcome(outcome)
	return nil
}

// batchManifestFile 批量评估清单
type batchManifestFile struct {
	Documents []struct {
		TaskName      string `yaml:"task_name"`
		DocumentFile  string `yaml:"document_file"`
		AlgorithmFile string `yaml:"algorithm_file"`
	} `yaml:"documents"`
}

// runBatch 按清单批量评估多份文档并输出汇总报告
func runBatch(ctx context.Context, cfg *config.Config, manifestPath string) error {
	manifestData, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("读取批量清单失败: %w", err)
	}

	var manifest batchManifestFile
	if err := yaml.Unmarshal(manifestData, &manifest); err != nil {
		return fmt.Errorf("解析批量清单失败: %w", err)
	}
	if len(manifest.Documents) == 0 {
		return fmt.Errorf("批量清单中没有待评估的文档")
	}

	requests := make([]processor.DocumentEvaluationRequest, 0, len(manifest.Documents))
	for _, doc := range manifest.Documents {
		documentText, err := os.ReadFile(doc.DocumentFile)
		if err != nil {
			return fmt.Errorf("读取招标文件 %s 失败: %w", doc.DocumentFile, err)
		}
		algorithmResponse, err := os.ReadFile(doc.AlgorithmFile)
		if err != nil {
			return fmt.Errorf("读取算法响应文件 %s 失败: %w", doc.AlgorithmFile, err)
		}
		requests = append(requests, processor.DocumentEvaluationRequest{
			TaskName:          doc.TaskName,
			DocumentText:      string(documentText),
			AlgorithmResponse: algorithmResponse,
		})
	}

	pipeline, err := buildPipeline(ctx, cfg, nil)
	if err != nil {
		return err
	}

	batch, err := pipeline.EvaluateBatch(ctx, requests)
	if err != nil {
		return err
	}
	fmt.Println(batch.Report)
	return nil
}

// runServer HTTP服务模式
func runServer(ctx context.Context, cfg *config.Config) {
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	pipeline, err := buildPipeline(ctx, cfg, storageManager)
	if err != nil {
		glog.Fatalf("初始化评估流水线失败: %v", err)
	}

	evaluationHandler := handler.NewEvaluationHandler(cfg, pipeline)
	glog.Info("EvaluationHandler初始化成功")

	var h *server.Hertz
	if cfg.Tracing.Enabled {
		tracer, tracerCfg := hertztracing.NewServerTracer()
		h = server.New(
			server.WithHostPorts(cfg.Server.Address),
			server.WithHandleMethodNotAllowed(true),
			tracer,
		)
		h.Use(hertztracing.ServerMiddleware(tracerCfg))
	} else {
		h = server.New(
			server.WithHostPorts(cfg.Server.Address),
			server.WithHandleMethodNotAllowed(true),
		)
	}

	router.RegisterRoutes(h, evaluationHandler)
	glog.Info("HTTP路由注册成功")

	go func() {
		glog.Infof("HTTP服务器启动中，监听地址: %s", cfg.Server.Address)
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// buildPipeline 组装评估流水线
// storageManager 为nil时只启用本地落盘，不接缓存、数据库与消息队列。
func buildPipeline(ctx context.Context, cfg *config.Config, storageManager *storage.Storage) (*processor.EvaluationPipeline, error) {
	var referenceProvider processor.ReferenceProvider
	if cfg.ZhipuAI.APIKey != "" {
		llmModel, err := parser.NewZhipuAIChatModel(&cfg.ZhipuAI)
		if err != nil {
			return nil, fmt.Errorf("初始化智谱AI模型失败: %w", err)
		}
		referenceProvider = parser.NewReferenceGenerator(llmModel,
			parser.WithMaxRetries(cfg.ZhipuAI.MaxRetries),
			parser.WithRetryWait(time.Duration(cfg.ZhipuAI.RetryWaitSeconds)*time.Second),
			parser.WithMaxDocumentChars(cfg.ZhipuAI.MaxDocumentChars),
		)
		glog.Info("智谱AI参考答案生成器初始化成功")
	} else {
		glog.Warn("未配置智谱AI API密钥，参考检查点只能来自缓存或文件")
	}

	options := []processor.PipelineOption{
		processor.WithOutputDir(cfg.OutputDir),
	}
	if storageManager != nil {
		if storageManager.Redis != nil {
			options = append(options,
				processor.WithReferenceCache(storageManager.Redis),
				processor.WithRunPointer(storageManager.Redis))
		}
		if storageManager.MinIO != nil {
			options = append(options, processor.WithArtifactStore(storageManager.MinIO))
		}
		if storageManager.MySQL != nil {
			options = append(options, processor.WithRunRecorder(storageManager.MySQL))
		}
		if storageManager.RabbitMQ != nil {
			options = append(options, processor.WithEventPublisher(storageManager.RabbitMQ))
		}
	}

	return processor.NewEvaluationPipeline(cfg, referenceProvider, options...), nil
}

// printOutcome 输出一次性评估的结果摘要
func printOutcome(outcome *processor.EvaluationOutcome) {
	fmt.Println("评估结果:")
	fmt.Printf("  算法提取: %d 个检查点\n", outcome.Result.AlgorithmCount)
	fmt.Printf("  参考答案: %d 个检查点\n", outcome.Result.ReferenceCount)
	fmt.Printf("  匹配检查点: %d 个\n", outcome.Result.Matched)
	fmt.Printf("  覆盖率: %.1f%%\n", outcome.Result.Coverage)
	fmt.Printf("  召回率: %.1f%%\n", outcome.Result.Recall)
	fmt.Printf("  精确匹配F1: %.2f\n", outcome.ExactStats.F1Score)
	if outcome.ArtifactPath != "" {
		fmt.Printf("  产物文件: %s\n", outcome.ArtifactPath)
	}
}

// initLogger 初始化zerolog并接入Hertz的日志接口
func initLogger(cfg *config.Config) {
	appLogger.Init(appLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	glog.SetLogger(hertzadapter.From(appLogger.Logger))
}
