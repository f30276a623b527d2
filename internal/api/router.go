// internal/api/router.go
package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/PersonaTownMCP/internal/config"
	"github.com/Corphon/PersonaTownMCP/internal/di"
	"github.com/Corphon/PersonaTownMCP/internal/services"
)

// SetupRouter 配置HTTP路由
func SetupRouter(cfg *config.Config) (*gin.Engine, error) {
	// 只从容器获取服务，不创建新实例
	container := di.GetContainer()

	agentService, ok := container.Get("agent").(*services.AgentService)
	if !ok {
		return nil, fmt.Errorf("角色服务未正确初始化")
	}

	communityService, ok := container.Get("community").(*services.CommunityService)
	if !ok {
		return nil, fmt.Errorf("社区服务未正确初始化")
	}

	behaviorService, ok := container.Get("behavior").(*services.BehaviorService)
	if !ok {
		return nil, fmt.Errorf("行为决策服务未正确初始化")
	}

	analyzerService, ok := container.Get("analyzer").(*services.AnalyzerService)
	if !ok {
		return nil, fmt.Errorf("分析服务未正确初始化")
	}

	schedulerService, ok := container.Get("scheduler").(*services.SchedulerService)
	if !ok {
		return nil, fmt.Errorf("调度服务未正确初始化")
	}

	monitorService, ok := container.Get("monitor").(*services.MonitorService)
	if !ok {
		return nil, fmt.Errorf("监控服务未正确初始化")
	}

	interactionService, ok := container.Get("interaction").(*services.InteractionService)
	if !ok {
		return nil, fmt.Errorf("互动账本服务未正确初始化")
	}

	llmService, ok := container.Get("llm").(*services.LLMService)
	if !ok {
		return nil, fmt.Errorf("LLM服务未正确初始化")
	}

	statsService, ok := container.Get("stats").(*services.StatsService)
	if !ok {
		return nil, fmt.Errorf("统计服务未正确初始化")
	}

	handler := NewHandler(
		agentService,
		communityService,
		behaviorService,
		analyzerService,
		schedulerService,
		monitorService,
		interactionService,
		llmService,
		statsService,
	)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// 启用CORS和请求追踪
	r.Use(corsMiddleware())
	r.Use(requestIDMiddleware())

	// WebSocket 监控流
	r.GET("/ws/monitor", handler.MonitorWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	api.Use(DefaultRateLimit())
	{
		// ===============================
		// 角色相关路由
		// ===============================
		agentsGroup := api.Group("/agents")
		{
			agentsGroup.GET("", handler.GetAgents)
			agentsGroup.GET("/:id", handler.GetAgent)
			agentsGroup.GET("/:id/memories", handler.GetAgentMemories)
			agentsGroup.GET("/:id/interactions", handler.GetAgentInteractions)
			agentsGroup.POST("/:id/force_active", handler.SetForceActive)

			// 触发LLM生成的端点单独限流
			agentsGroup.POST("/:id/post", GenerationRateLimit(), handler.CreateAgentPost)
			agentsGroup.POST("/:id/comment", GenerationRateLimit(), handler.CreateAgentComment)
			agentsGroup.POST("/:id/task", GenerationRateLimit(), handler.RunAgentTask)
		}

		// ===============================
		// 社区相关路由
		// ===============================
		postsGroup := api.Group("/posts")
		{
			postsGroup.GET("", handler.GetPosts)
			postsGroup.GET("/:id", handler.GetPostDetail)
			postsGroup.POST("/:id/like", handler.LikePost)
			postsGroup.GET("/:id/analysis", GenerationRateLimit(), handler.AnalyzePost)
		}
		api.POST("/comments/:id/like", handler.LikeComment)

		// ===============================
		// 调度器相关路由
		// ===============================
		schedulerGroup := api.Group("/scheduler")
		{
			schedulerGroup.GET("/status", handler.GetSchedulerStatus)
			schedulerGroup.POST("/start", handler.StartScheduler)
			schedulerGroup.POST("/stop", handler.StopScheduler)
			schedulerGroup.POST("/tick", handler.TickScheduler)
		}

		// ===============================
		// 监控与系统状态
		// ===============================
		api.GET("/events", handler.GetEvents)
		api.GET("/stats", handler.GetStats)
		api.POST("/save", handler.SaveAll)
		api.POST("/reset_schedules", handler.ResetSchedules)

		llmGroup := api.Group("/llm")
		{
			llmGroup.GET("/status", handler.GetLLMStatus)
			llmGroup.PUT("/config", handler.UpdateLLMConfig)
		}
	}

	return r, nil
}
