package router

import (
	"context"

	"bid-eval-go/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, evaluationHandler *handler.EvaluationHandler) {
	api := h.Group("/api/v1")

	// 直接列表评估：两侧检查点由调用方提供
	api.POST("/evaluation/evaluate", func(c context.Context, ctx *app.RequestContext) {
		var req handler.EvaluateListsRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败: " + err.Error()})
			return
		}

		outcome, err := evaluationHandler.HandleEvaluateLists(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, outcome)
	})

	// 文档评估：生成参考检查点并执行完整流水线
	api.POST("/evaluation/document", func(c context.Context, ctx *app.RequestContext) {
		var req handler.EvaluateDocumentRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败: " + err.Error()})
			return
		}

		outcome, err := evaluationHandler.HandleEvaluateDocument(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, outcome)
	})

	// 最近两次运行的对比
	api.GET("/evaluation/runs/latest-comparison", func(c context.Context, ctx *app.RequestContext) {
		taskName := ctx.Query("task_name")

		comparison, err := evaluationHandler.HandleLatestComparison(c, taskName)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, comparison)
	})

	// 健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}
