// internal/services/scheduler_service.go
package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Corphon/PersonaTownMCP/internal/errors"
	"github.com/Corphon/PersonaTownMCP/internal/schedule"
	"github.com/Corphon/PersonaTownMCP/internal/utils"
)

// SchedulerService 驱动整个小镇的模拟时钟循环。
// 每个tick读取当前小时，小时变化时执行状态迁移：
// 跨过午夜重排全员作息，入睡/醒来发布事件，醒来时结算睡眠学习。
// 任务分发不依赖小时变化：每个tick都从活跃角色里随机挑一个，
// 按概率分发任务（30%发帖/40%评论/30%睡眠学习或围观）。
// 时钟与随机源都从外部注入，测试里用手动时钟逐小时推进。
type SchedulerService struct {
	clock    schedule.Clock
	agents   *AgentService
	behavior *BehaviorService
	comm     *CommunityService
	monitor  *MonitorService

	tickInterval time.Duration

	mutex     sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastHour  int
	tickCount int
	wasAsleep map[string]bool

	rng *rand.Rand
}

// SchedulerStatus 是调度器的运行状态快照
type SchedulerStatus struct {
	Running     bool `json:"running"`
	CurrentHour int  `json:"current_hour"`
	TickCount   int  `json:"tick_count"`
	AgentCount  int  `json:"agent_count"`
}

// NewSchedulerService 创建调度服务
func NewSchedulerService(
	clock schedule.Clock,
	agents *AgentService,
	behavior *BehaviorService,
	comm *CommunityService,
	monitor *MonitorService,
	tickInterval time.Duration,
	rng *rand.Rand,
) *SchedulerService {
	return &SchedulerService{
		clock:        clock,
		agents:       agents,
		behavior:     behavior,
		comm:         comm,
		monitor:      monitor,
		tickInterval: tickInterval,
		lastHour:     -1,
		wasAsleep:    make(map[string]bool),
		rng:          rng,
	}
}

// Start 启动调度循环。重复启动返回冲突错误。
func (s *SchedulerService) Start(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return errors.NewConflictError("调度器已在运行")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(loopCtx)

	s.monitor.LogSystem("调度器已启动")
	utils.GetLogger().Infof("调度器已启动，轮询间隔%v", s.tickInterval)
	return nil
}

// Stop 停止调度循环并等待其退出
func (s *SchedulerService) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mutex.Unlock()

	cancel()
	<-done

	s.monitor.LogSystem("调度器已停止")
	utils.GetLogger().Infof("调度器已停止")
}

// IsRunning 返回调度器是否在运行
func (s *SchedulerService) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

// Status 返回调度器状态快照
func (s *SchedulerService) Status() SchedulerStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return SchedulerStatus{
		Running:     s.running,
		CurrentHour: s.clock.CurrentHour(),
		TickCount:   s.tickCount,
		AgentCount:  len(s.agents.ListAgents()),
	}
}

func (s *SchedulerService) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	// 启动后立即执行一次，不等第一个tick
	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick 执行一次调度检查。导出供测试和手动驱动使用。
// 换日和入睡/醒来迁移只在小时变化时处理，任务分发每个tick都执行。
func (s *SchedulerService) Tick(ctx context.Context) {
	s.mutex.Lock()
	hour := s.clock.CurrentHour()
	lastHour := s.lastHour
	s.lastHour = hour
	s.tickCount++
	s.mutex.Unlock()

	if hour != lastHour {
		// 小时从大变小说明跨过了午夜
		if lastHour >= 0 && hour < lastHour {
			s.rolloverDay()
		}
		s.transitionAgents(ctx, hour)
	}

	s.dispatchTasks(ctx, hour)
}

// rolloverDay 新的一天：重排全员活跃小时，清空决策缓存
func (s *SchedulerService) rolloverDay() {
	utils.GetLogger().Infof("新的一天开始，重新生成全员作息")
	s.agents.ResetDailySchedules()
	s.behavior.ClearCache()
	s.monitor.LogSystem("新的一天开始了")
}

// transitionAgents 处理入睡/醒来的状态迁移。
// 醒来时结算夜间的睡眠学习，灵感数随醒来事件一起发布。
func (s *SchedulerService) transitionAgents(ctx context.Context, hour int) {
	for _, agent := range s.agents.ListAgents() {
		id := agent.Profile.ID
		asleep := agent.IsAsleep(hour)

		s.mutex.Lock()
		was := s.wasAsleep[id]
		s.wasAsleep[id] = asleep
		s.mutex.Unlock()

		switch {
		case asleep && !was:
			s.monitor.LogSleep(agent.Profile.Name)
		case !asleep && was:
			insights, err := s.agents.ProcessSleepLearning(ctx, id, true)
			if err != nil {
				utils.GetLogger().Warnf("%s的睡眠学习失败: %v", agent.Profile.Name, err)
			}
			s.monitor.LogWake(agent.Profile.Name, insights)
		}
	}
}

// dispatchTasks 从活跃角色里随机挑一个，按概率分发一个任务。
// 社区还一篇帖子都没有时强制走发帖分支，保证小镇尽快有内容。
func (s *SchedulerService) dispatchTasks(ctx context.Context, hour int) {
	var active []*Agent
	for _, agent := range s.agents.ListAgents() {
		if agent.IsActive(hour) {
			active = append(active, agent)
		}
	}
	if len(active) == 0 {
		return
	}

	s.mutex.Lock()
	agent := active[s.rng.Intn(len(active))]
	roll := s.rng.Float64()
	s.mutex.Unlock()

	if s.comm.PostCount() == 0 {
		roll = 0
	}

	switch {
	case roll < 0.3:
		s.tryPost(ctx, agent)
	case roll < 0.7:
		s.tryComment(ctx, agent)
	default:
		// 剩下的时段留给还在睡的角色做梦；醒着的角色这个小时只围观
		if _, err := s.agents.ProcessSleepLearning(ctx, agent.Profile.ID, false); err != nil {
			utils.GetLogger().Warnf("%s的睡眠学习失败: %v", agent.Profile.Name, err)
		}
	}
}

// tryPost 发帖任务：先问决策策略，同意后选话题并发帖。
// 50%概率允许联网搜索，让一部分帖子能引入镇外的新鲜信息。
func (s *SchedulerService) tryPost(ctx context.Context, agent *Agent) {
	if !s.behavior.ShouldPost(ctx, agent) {
		return
	}

	topic := s.behavior.SelectPostTopic(agent)
	if _, err := s.agents.CreatePost(ctx, agent.Profile.ID, topic, s.chance(0.5)); err != nil {
		utils.GetLogger().Warnf("%s的发帖任务失败: %v", agent.Profile.Name, err)
	}
}

// tryComment 评论任务：从最近的帖子里随机挑一条，决策通过后评论
func (s *SchedulerService) tryComment(ctx context.Context, agent *Agent) {
	posts := s.comm.GetAllPosts(10, "")
	if len(posts) == 0 {
		return
	}

	s.mutex.Lock()
	post := posts[s.rng.Intn(len(posts))]
	s.mutex.Unlock()

	already := s.agents.HasCommentedOn(agent.Profile.ID, post.PostID)
	if !s.behavior.ShouldComment(ctx, agent, post, already) {
		return
	}

	// 评论联网搜索的概率比发帖低一些
	if _, err := s.agents.CommentOnPost(ctx, agent.Profile.ID, post.PostID, s.chance(0.3)); err != nil {
		utils.GetLogger().Warnf("%s的评论任务失败: %v", agent.Profile.Name, err)
	}
}

// RunForcedTask 立即为指定角色执行一次任务，跳过概率分发。
// taskType取"post"/"comment"/"sleep_learning"。
func (s *SchedulerService) RunForcedTask(ctx context.Context, agentID, taskType string) (string, error) {
	agent, err := s.agents.GetAgent(agentID)
	if err != nil {
		return "", err
	}

	switch taskType {
	case "post":
		topic := s.behavior.SelectPostTopic(agent)
		postID, err := s.agents.CreatePost(ctx, agentID, topic, false)
		if err != nil {
			return "", err
		}
		if postID == "" {
			return "", errors.NewGenerationError("本次没有生成出帖子", nil)
		}
		return postID, nil

	case "comment":
		posts := s.comm.GetAllPosts(10, "")
		if len(posts) == 0 {
			return "", errors.NewNotFoundError("社区里还没有可评论的帖子", nil)
		}
		s.mutex.Lock()
		post := posts[s.rng.Intn(len(posts))]
		s.mutex.Unlock()
		commentID, err := s.agents.CommentOnPost(ctx, agentID, post.PostID, false)
		if err != nil {
			return "", err
		}
		if commentID == "" {
			return "", errors.NewGenerationError("本次没有生成出评论", nil)
		}
		return commentID, nil

	case "sleep_learning":
		insights, err := s.agents.ProcessSleepLearning(ctx, agentID, true)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", insights), nil

	default:
		return "", errors.NewValidationError(fmt.Sprintf("未知的任务类型: %s", taskType), nil)
	}
}

// chance 用调度器自己的随机源掷一次概率
func (s *SchedulerService) chance(p float64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.rng.Float64() < p
}
