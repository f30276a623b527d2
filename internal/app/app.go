// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Corphon/PersonaTownMCP/internal/api"
	"github.com/Corphon/PersonaTownMCP/internal/config"
	"github.com/Corphon/PersonaTownMCP/internal/di"
	"github.com/Corphon/PersonaTownMCP/internal/schedule"
	"github.com/Corphon/PersonaTownMCP/internal/services"
	"github.com/Corphon/PersonaTownMCP/internal/storage"
	"github.com/Corphon/PersonaTownMCP/internal/utils"
)

// App 是应用生命周期的根对象
type App struct {
	cfg       *config.Config
	server    *http.Server
	scheduler *services.SchedulerService
	agents    *services.AgentService
	community *services.CommunityService
	ledger    *services.InteractionService
}

// New 完成配置加载、服务装配和角色初始化
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	if err := utils.InitLogger(filepath.Join(cfg.LogDir, "persona_town.log")); err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	app := &App{cfg: cfg}
	if err := app.initServices(); err != nil {
		return nil, err
	}

	router, err := api.SetupRouter(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化路由失败: %w", err)
	}

	app.server = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return app, nil
}

// initServices 装配全部服务并注册到依赖注入容器
func (a *App) initServices() error {
	cfg := a.cfg
	container := di.GetContainer()

	memoryStore, err := storage.NewFileStorage(cfg.MemoryDir)
	if err != nil {
		return fmt.Errorf("初始化记忆存储失败: %w", err)
	}
	communityStore, err := storage.NewFileStorage(cfg.CommunityDir)
	if err != nil {
		return fmt.Errorf("初始化社区存储失败: %w", err)
	}
	interactionStore, err := storage.NewFileStorage(cfg.InteractionDir)
	if err != nil {
		return fmt.Errorf("初始化互动存储失败: %w", err)
	}

	statsService := services.NewStatsService(memoryStore)

	// 没有API密钥时退化为空服务，系统照常启动
	llmService := services.NewEmptyLLMService()
	if cfg.LLMConfig["api_key"] != "" {
		llmService, err = services.NewLLMService(cfg.LLMProvider, cfg.LLMConfig, statsService)
		if err != nil {
			utils.GetLogger().Warnf("初始化LLM提供者%s失败，生成功能不可用: %v", cfg.LLMProvider, err)
			llmService = services.NewEmptyLLMService()
		}
	}

	clock := schedule.SystemClock{}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	communityService := services.NewCommunityService(communityStore)
	memoryService := services.NewMemoryService(memoryStore)
	monitorService := services.NewMonitorService()
	interactionService := services.NewInteractionService(interactionStore)

	agentService := services.NewAgentService(cfg, clock, llmService,
		communityService, memoryService, monitorService, interactionService, rng)

	profiles, err := config.LoadPersonas(cfg.PersonasFile)
	if err != nil {
		return fmt.Errorf("加载角色配置失败: %w", err)
	}
	if err := agentService.LoadAgents(profiles); err != nil {
		return fmt.Errorf("初始化角色失败: %w", err)
	}

	behaviorService := services.NewBehaviorService(llmService, rng)
	analyzerService := services.NewAnalyzerService(llmService)
	schedulerService := services.NewSchedulerService(clock, agentService,
		behaviorService, communityService, monitorService, cfg.TickInterval, rng)

	container.Register("llm", llmService)
	container.Register("stats", statsService)
	container.Register("community", communityService)
	container.Register("memory", memoryService)
	container.Register("monitor", monitorService)
	container.Register("interaction", interactionService)
	container.Register("agent", agentService)
	container.Register("behavior", behaviorService)
	container.Register("analyzer", analyzerService)
	container.Register("scheduler", schedulerService)

	a.scheduler = schedulerService
	a.agents = agentService
	a.community = communityService
	a.ledger = interactionService

	return nil
}

// Run 启动调度循环和HTTP服务，阻塞到收到退出信号
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("启动调度器失败: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		utils.GetLogger().Infof("HTTP服务已启动，监听端口%s", a.cfg.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP服务异常退出: %w", err)
	case sig := <-quit:
		utils.GetLogger().Infof("收到退出信号%v，开始关闭", sig)
	}

	return a.shutdown()
}

// shutdown 按顺序收尾：停调度器、存状态、关HTTP服务
func (a *App) shutdown() error {
	a.scheduler.Stop()
	a.agents.SaveAll()
	a.community.Save()
	a.ledger.Save()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭HTTP服务失败: %w", err)
	}

	utils.GetLogger().Infof("服务已全部关闭")
	return nil
}
