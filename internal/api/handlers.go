// internal/api/handlers.go
package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/PersonaTownMCP/internal/services"
)

// Handler 处理API请求
type Handler struct {
	agents    *services.AgentService
	community *services.CommunityService
	behavior  *services.BehaviorService
	analyzer  *services.AnalyzerService
	scheduler *services.SchedulerService
	monitor   *services.MonitorService
	ledger    *services.InteractionService
	llm       *services.LLMService
	stats     *services.StatsService

	response *ResponseHelper
}

// NewHandler 创建API处理器
func NewHandler(
	agents *services.AgentService,
	community *services.CommunityService,
	behavior *services.BehaviorService,
	analyzer *services.AnalyzerService,
	scheduler *services.SchedulerService,
	monitor *services.MonitorService,
	ledger *services.InteractionService,
	llm *services.LLMService,
	stats *services.StatsService,
) *Handler {
	return &Handler{
		agents:    agents,
		community: community,
		behavior:  behavior,
		analyzer:  analyzer,
		scheduler: scheduler,
		monitor:   monitor,
		ledger:    ledger,
		llm:       llm,
		stats:     stats,
		response:  NewResponseHelper(),
	}
}

// ===============================
// 角色相关
// ===============================

// agentSummary 列表视图的角色摘要
type agentSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	StatusLine  string `json:"status_line"`
	ActiveHours []int  `json:"active_hours"`
	PostCount   int    `json:"post_count"`
	ForceActive bool   `json:"force_active"`
}

// GetAgents 获取全部角色的当前状态
func (h *Handler) GetAgents(c *gin.Context) {
	hour := h.scheduler.Status().CurrentHour

	list := make([]agentSummary, 0)
	for _, agent := range h.agents.ListAgents() {
		list = append(list, agentSummary{
			ID:          agent.Profile.ID,
			Name:        agent.Profile.Name,
			Role:        agent.Profile.Role,
			Status:      string(agent.Status(hour)),
			StatusLine:  agent.StatusLine(hour),
			ActiveHours: agent.ActiveHours(),
			PostCount:   len(agent.PostIDs()),
			ForceActive: agent.ForceActive(),
		})
	}

	h.response.Success(c, gin.H{"agents": list, "current_hour": hour})
}

// GetAgent 获取单个角色的详细状态
func (h *Handler) GetAgent(c *gin.Context) {
	agent, err := h.agents.GetAgent(c.Param("id"))
	if err != nil {
		h.response.FromAppError(c, err)
		return
	}

	hour := h.scheduler.Status().CurrentHour
	recent, total := agent.MemoryCount()
	sleep := agent.SleepWindow()

	h.response.Success(c, gin.H{
		"id":            agent.Profile.ID,
		"name":          agent.Profile.Name,
		"role":          agent.Profile.Role,
		"status":        string(agent.Status(hour)),
		"status_line":   agent.StatusLine(hour),
		"active_hours":  agent.ActiveHours(),
		"sleep_start":   sleep.Start,
		"sleep_end":     sleep.End,
		"force_active":  agent.ForceActive(),
		"memory_count":  recent,
		"history_count": total,
		"post_count":    len(agent.PostIDs()),
		"comment_count": len(agent.CommentIDs()),
		"inspirations":  len(agent.Inspirations()),
	})
}

// GetAgentMemories 获取角色的记忆列表
func (h *Handler) GetAgentMemories(c *gin.Context) {
	agent, err := h.agents.GetAgent(c.Param("id"))
	if err != nil {
		h.response.FromAppError(c, err)
		return
	}

	limit := queryInt(c, "limit", 0)
	h.response.Success(c, gin.H{
		"recent":  agent.RecentMemories(limit),
		"history": agent.MemoryHistory(limit),
	})
}

// forceActiveRequest 强制活跃开关请求体
type forceActiveRequest struct {
	State bool `json:"state"`
}

// SetForceActive 设置角色的强制活跃状态
func (h *Handler) SetForceActive(c *gin.Context) {
	var req forceActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "请求格式错误: "+err.Error())
		return
	}

	if err := h.agents.SetForceActive(c.Param("id"), req.State); err != nil {
		h.response.FromAppError(c, err)
		return
	}

	h.response.Success(c, gin.H{"force_active": req.State})
}

// createPostRequest 手动发帖请求体
type createPostRequest struct {
	Topic     string `json:"topic"`
	WebSearch bool   `json:"web_search"`
}

// CreateAgentPost 让指定角色立即发帖
func (h *Handler) CreateAgentPost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "请求格式错误: "+err.Error())
		return
	}

	postID, err := h.agents.CreatePost(c.Request.Context(), c.Param("id"), req.Topic, req.WebSearch)
	if err != nil {
		h.response.FromAppError(c, err)
		return
	}
	if postID == "" {
		h.response.Success(c, gin.H{"post_id": ""}, "角色这次没有发帖")
		return
	}

	h.response.Created(c, gin.H{"post_id": postID})
}

// commentRequest 手动评论请求体
type commentRequest struct {
	PostID    string `json:"post_id" binding:"required"`
	WebSearch bool   `json:"web_search"`
}

// CreateAgentComment 让指定角色评论某条帖子
func (h *Handler) CreateAgentComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "请求格式错误: "+err.Error())
		return
	}

	commentID, err := h.agents.CommentOnPost(c.Request.Context(), c.Param("id"), req.PostID, req.WebSearch)
	if err != nil {
		h.response.FromAppError(c, err)
		return
	}
	if commentID == "" {
		h.response.Success(c, gin.H{"comment_id": ""}, "角色这次没有评论")
		return
	}

	h.response.Created(c, gin.H{"comment_id": commentID})
}

// taskRequest 强制任务请求体
type taskRequest struct {
	Type string `json:"type" binding:"required"`
}

// RunAgentTask 跳过概率分发，立即执行一次任务
func (h *Handler) RunAgentTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "请求格式错误: "+err.Error())
		return
	}

	result, err := h.scheduler.RunForcedTask(c.Request.Context(), c.Param("id"), req.Type)
	if err != nil {
		h.response.FromAppError(c, err)
		return
	}

	h.response.Success(c, gin.H{"task": req.Type, "result": result})
}

// GetAgentInteractions 获取角色的互动摘要
func (h *Handler) GetAgentInteractions(c *gin.Context) {
	if _, err := h.agents.GetAgent(c.Param("id")); err != nil {
		h.response.FromAppError(c, err)
		return
	}

	h.response.Success(c, h.ledger.GetSummary(c.Param("id")))
}

// ===============================
// 社区相关
// ===============================

// GetPosts 获取帖子列表（最新在前）
func (h *Handler) GetPosts(c *gin.Context) {
	limit := queryInt(c, "limit", 20)
	author := c.Query("author")

	h.response.Success(c, gin.H{
		"posts": h.community.GetAllPosts(limit, author),
		"total": h.community.PostCount(),
	})
}

// GetPostDetail 获取帖子及其全部评论
func (h *Handler) GetPostDetail(c *gin.Context) {
	post := h.community.GetPost(c.Param("id"))
	if post == nil {
		h.response.NotFound(c, "帖子不存在")
		return
	}

	h.response.Success(c, gin.H{
		"post":     post,
		"comments": h.community.GetPostComments(post.PostID),
	})
}

// LikePost 为帖子点赞
func (h *Handler) LikePost(c *gin.Context) {
	likes := h.community.LikePost(c.Param("id"))
	if likes < 0 {
		h.response.NotFound(c, "帖子不存在")
		return
	}

	h.response.Success(c, gin.H{"likes": likes})
}

// LikeComment 为评论点赞
func (h *Handler) LikeComment(c *gin.Context) {
	likes := h.community.LikeComment(c.Param("id"))
	if likes < 0 {
		h.response.NotFound(c, "评论不存在")
		return
	}

	h.response.Success(c, gin.H{"likes": likes})
}

// AnalyzePost 以某个角色的视角分析帖子
func (h *Handler) AnalyzePost(c *gin.Context) {
	post := h.community.GetPost(c.Param("id"))
	if post == nil {
		h.response.NotFound(c, "帖子不存在")
		return
	}

	agent, err := h.agents.GetAgent(c.Query("agent_id"))
	if err != nil {
		h.response.FromAppError(c, err)
		return
	}

	h.response.Success(c, h.analyzer.AnalyzePost(c.Request.Context(), agent, post))
}

// ===============================
// 调度器相关
// ===============================

// GetSchedulerStatus 获取调度器状态
func (h *Handler) GetSchedulerStatus(c *gin.Context) {
	h.response.Success(c, h.scheduler.Status())
}

// StartScheduler 启动调度循环
func (h *Handler) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(c.Request.Context()); err != nil {
		h.response.FromAppError(c, err)
		return
	}

	h.response.Success(c, h.scheduler.Status(), "调度器已启动")
}

// StopScheduler 停止调度循环
func (h *Handler) StopScheduler(c *gin.Context) {
	h.scheduler.Stop()
	h.response.Success(c, h.scheduler.Status(), "调度器已停止")
}

// TickScheduler 手动驱动一次调度检查（调试用）
func (h *Handler) TickScheduler(c *gin.Context) {
	h.scheduler.Tick(c.Request.Context())
	h.response.Success(c, h.scheduler.Status())
}

// ===============================
// 监控与系统状态
// ===============================

// GetEvents 获取最近的活动事件
func (h *Handler) GetEvents(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	h.response.Success(c, gin.H{"events": h.monitor.GetRecentEvents(limit)})
}

// GetLLMStatus 获取LLM服务状态
func (h *Handler) GetLLMStatus(c *gin.Context) {
	h.response.Success(c, gin.H{
		"ready":    h.llm.IsReady(),
		"provider": h.llm.GetProviderName(),
	})
}

// llmConfigRequest LLM配置更新请求体
type llmConfigRequest struct {
	Provider string            `json:"provider" binding:"required"`
	Config   map[string]string `json:"config"`
}

// UpdateLLMConfig 运行时切换LLM提供者
func (h *Handler) UpdateLLMConfig(c *gin.Context) {
	var req llmConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, "请求格式错误: "+err.Error())
		return
	}

	if err := h.llm.UpdateProvider(req.Provider, req.Config); err != nil {
		h.response.BadRequest(c, "切换提供者失败: "+err.Error())
		return
	}

	h.response.Success(c, gin.H{"provider": req.Provider}, "LLM提供者已更新")
}

// GetStats 获取LLM使用统计
func (h *Handler) GetStats(c *gin.Context) {
	h.response.Success(c, h.stats.GetStats())
}

// SaveAll 立即把全部状态落盘（角色、社区、互动账本）
func (h *Handler) SaveAll(c *gin.Context) {
	h.agents.SaveAll()
	h.community.Save()
	h.ledger.Save()
	h.response.Success(c, nil, "已保存全部状态")
}

// ResetSchedules 立即重排全员作息并清空决策缓存
func (h *Handler) ResetSchedules(c *gin.Context) {
	h.agents.ResetDailySchedules()
	h.behavior.ClearCache()
	h.response.Success(c, nil, "已重新生成全员作息")
}

// queryInt 解析整数查询参数，缺失或非法时返回默认值
func queryInt(c *gin.Context, key string, defaultValue int) int {
	value := c.Query(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
