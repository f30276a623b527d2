// internal/services/agent_service.go
package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/Corphon/PersonaTownMCP/internal/config"
	"github.com/Corphon/PersonaTownMCP/internal/errors"
	"github.com/Corphon/PersonaTownMCP/internal/llm"
	"github.com/Corphon/PersonaTownMCP/internal/models"
	"github.com/Corphon/PersonaTownMCP/internal/schedule"
	"github.com/Corphon/PersonaTownMCP/internal/utils"
)

// AgentService 管理全部角色及其内容行为。
// 发帖、评论、睡眠学习三类动作共用一把粗粒度动作锁，
// 把"生成内容→更新状态→落盘"作为整体串行化，避免并发动作交叉写坏快照。
type AgentService struct {
	cfg       *config.Config
	clock     schedule.Clock
	llm       *LLMService
	community *CommunityService
	memory    *MemoryService
	monitor   *MonitorService
	ledger    *InteractionService

	actionMutex sync.Mutex

	agentsMutex sync.RWMutex
	agents      map[string]*Agent
	agentOrder  []string // 加载顺序，保证遍历稳定

	rng *rand.Rand
}

// NewAgentService 创建角色服务
func NewAgentService(
	cfg *config.Config,
	clock schedule.Clock,
	llmService *LLMService,
	community *CommunityService,
	memory *MemoryService,
	monitor *MonitorService,
	ledger *InteractionService,
	rng *rand.Rand,
) *AgentService {
	return &AgentService{
		cfg:       cfg,
		clock:     clock,
		llm:       llmService,
		community: community,
		memory:    memory,
		monitor:   monitor,
		ledger:    ledger,
		agents:    make(map[string]*Agent),
		rng:       rng,
	}
}

// LoadAgents 根据人设创建角色，并恢复磁盘上已有的状态快照。
// 夜猫子角色使用专属睡眠时间段，其余使用默认时间段。
func (s *AgentService) LoadAgents(profiles []models.AgentProfile) error {
	s.agentsMutex.Lock()
	defer s.agentsMutex.Unlock()

	for _, profile := range profiles {
		sleep := schedule.Window{Start: s.cfg.DefaultSleepStart, End: s.cfg.DefaultSleepEnd}
		if profile.NightOwl {
			sleep = schedule.Window{Start: s.cfg.NightOwlSleepStart, End: s.cfg.NightOwlSleepEnd}
		}

		agentRng := rand.New(rand.NewSource(s.rng.Int63()))
		agent := NewAgent(profile, sleep, s.cfg.MemoryMaxLength,
			s.cfg.ActiveHoursMin, s.cfg.ActiveHoursMax, agentRng)

		state, err := s.memory.LoadAgentState(profile.ID)
		if err != nil {
			utils.GetLogger().Warnf("恢复角色%s的状态失败，按全新角色处理: %v", profile.ID, err)
		} else if state != nil {
			agent.Restore(state)
			utils.GetLogger().Infof("角色%s已从快照恢复（记忆%d条）", profile.ID, len(state.AllMemories))
		}

		s.agents[profile.ID] = agent
		s.agentOrder = append(s.agentOrder, profile.ID)
	}

	utils.GetLogger().Infof("已加载%d个角色", len(s.agents))
	return nil
}

// GetAgent 通过ID获取角色
func (s *AgentService) GetAgent(agentID string) (*Agent, error) {
	s.agentsMutex.RLock()
	defer s.agentsMutex.RUnlock()

	agent, exists := s.agents[agentID]
	if !exists {
		return nil, errors.NewNotFoundError(fmt.Sprintf("角色不存在: %s", agentID), nil)
	}
	return agent, nil
}

// ListAgents 按加载顺序返回全部角色
func (s *AgentService) ListAgents() []*Agent {
	s.agentsMutex.RLock()
	defer s.agentsMutex.RUnlock()

	agents := make([]*Agent, 0, len(s.agentOrder))
	for _, id := range s.agentOrder {
		agents = append(agents, s.agents[id])
	}
	return agents
}

// CreatePost 让角色发布一条帖子，返回帖子ID。
// 未指定话题时由角色自行决定是否跳过：不活跃则本次不发帖（返回空ID）；
// 显式给定话题视为外部指令，跳过活跃检查。
// LLM失败同样返回空ID，不算错误。
func (s *AgentService) CreatePost(ctx context.Context, agentID, topic string, webSearch bool) (string, error) {
	agent, err := s.GetAgent(agentID)
	if err != nil {
		return "", err
	}

	s.actionMutex.Lock()
	defer s.actionMutex.Unlock()

	hour := s.clock.CurrentHour()
	if topic == "" && !agent.IsActive(hour) {
		utils.GetLogger().Debugf("%s当前不活跃，跳过发帖", agent.Profile.Name)
		return "", nil
	}

	if topic == "" {
		topic = "分享你今天的所见所想"
	}

	content := s.generate(ctx, agent, buildPostPrompt(agent, topic), webSearch, topic, 500)
	if content == "" {
		return "", nil
	}

	postID := s.community.AddPost(agent.Profile.ID, agent.Profile.Name, content)
	agent.appendPost(postID)
	agent.AddMemory(fmt.Sprintf("我发布了一条帖子: %s", utils.SummarizeText(content, 50)))
	s.memory.SaveAgentState(agent)

	s.monitor.LogPost(agent.Profile.Name, postID, content)
	utils.GetLogger().Infof("%s发布了新帖子%s", agent.Profile.Name, postID)
	return postID, nil
}

// CommentOnPost 让角色评论一条帖子，返回评论ID。
// 目标帖子不存在时静默跳过，返回空ID；成功后在互动账本记一笔。
// webSearch置位时允许生成评论前联网检索帖子相关内容。
func (s *AgentService) CommentOnPost(ctx context.Context, agentID, postID string, webSearch bool) (string, error) {
	agent, err := s.GetAgent(agentID)
	if err != nil {
		return "", err
	}

	s.actionMutex.Lock()
	defer s.actionMutex.Unlock()

	post := s.community.GetPost(postID)
	if post == nil {
		utils.GetLogger().Debugf("%s尝试评论的帖子%s不存在，跳过", agent.Profile.Name, postID)
		return "", nil
	}

	hour := s.clock.CurrentHour()
	if !agent.IsActive(hour) {
		utils.GetLogger().Debugf("%s当前不活跃，跳过评论", agent.Profile.Name)
		return "", nil
	}

	prompt := fmt.Sprintf(
		"%s发布了这样一条帖子:\n\n%s\n\n请以你的身份和语气写一条评论回应，直接给出评论内容。",
		post.AuthorName, post.Content,
	)

	content := s.generate(ctx, agent, buildPostPrompt(agent, prompt), webSearch,
		utils.SummarizeText(post.Content, 50), 200)
	if content == "" {
		return "", nil
	}

	commentID := s.community.AddComment(postID, agent.Profile.ID, agent.Profile.Name, content)
	if commentID == "" {
		return "", nil
	}

	agent.appendComment(commentID)
	agent.AddMemory(fmt.Sprintf("我评论了%s的帖子: %s", post.AuthorName, utils.SummarizeText(content, 50)))
	s.memory.SaveAgentState(agent)

	s.ledger.RecordInteraction(agent.Profile.ID, post.AuthorID, "comment",
		map[string]string{"post_id": postID, "comment_id": commentID})
	s.monitor.LogComment(agent.Profile.Name, postID, commentID, content)
	utils.GetLogger().Infof("%s评论了帖子%s", agent.Profile.Name, postID)
	return commentID, nil
}

// ProcessSleepLearning 执行睡眠学习：回顾最近的完整历史记忆，
// 产出灵感并写回记忆（带[灵感]前缀）。返回产生的灵感条数。
// 仅在角色睡眠时执行，force置位时跳过睡眠检查。
func (s *AgentService) ProcessSleepLearning(ctx context.Context, agentID string, force bool) (int, error) {
	agent, err := s.GetAgent(agentID)
	if err != nil {
		return 0, err
	}

	s.actionMutex.Lock()
	defer s.actionMutex.Unlock()

	hour := s.clock.CurrentHour()
	if !force && !agent.IsAsleep(hour) {
		return 0, nil
	}

	history := agent.MemoryHistory(20)
	if len(history) == 0 {
		return 0, nil
	}

	interests := strings.Join(agent.Profile.TopicsOfInterest, "、")
	if interests == "" {
		interests = "你平时关心的事物"
	}

	prompt := fmt.Sprintf(
		"你是%s。现在是你的睡眠时间，请像做梦一样回顾下面这些经历：\n"+
			"先提炼2-3条精简的经历要点，再围绕你感兴趣的话题（%s）联想1-2条新的创意或灵感。\n"+
			"每条一行，直接写内容，不要编号和标题。\n\n%s",
		agent.Profile.Name, interests, strings.Join(history, "\n"),
	)

	system := agent.Profile.SystemPrompt
	if agent.Profile.Background != "" {
		system += "\n你的背景: " + agent.Profile.Background
	}

	// 睡眠学习是纯内省，不联网
	text := s.generate(ctx, agent, []llm.Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: prompt},
	}, false, "", 500)
	if text == "" {
		return 0, nil
	}

	agent.appendInspiration(text)

	insights := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len([]rune(line)) <= 10 {
			continue
		}
		agent.AddMemory("[灵感] " + line)
		insights++
	}

	s.memory.SaveAgentState(agent)
	utils.GetLogger().Infof("%s的睡眠学习产生了%d条灵感", agent.Profile.Name, insights)
	return insights, nil
}

// SetForceActive 设置角色的强制活跃状态并立即落盘
func (s *AgentService) SetForceActive(agentID string, state bool) error {
	agent, err := s.GetAgent(agentID)
	if err != nil {
		return err
	}

	s.actionMutex.Lock()
	defer s.actionMutex.Unlock()

	agent.SetForceActive(state)
	s.memory.SaveAgentState(agent)

	if state {
		s.monitor.LogSystem(fmt.Sprintf("%s被设置为强制活跃", agent.Profile.Name))
	} else {
		s.monitor.LogSystem(fmt.Sprintf("%s解除了强制活跃", agent.Profile.Name))
	}
	return nil
}

// HasCommentedOn 检查角色是否已经评论过某帖
func (s *AgentService) HasCommentedOn(agentID, postID string) bool {
	for _, c := range s.community.GetPostComments(postID) {
		if c.AuthorID == agentID {
			return true
		}
	}
	return false
}

// ResetDailySchedules 为全部角色重新生成当日活跃小时并落盘
func (s *AgentService) ResetDailySchedules() {
	s.actionMutex.Lock()
	defer s.actionMutex.Unlock()

	for _, agent := range s.ListAgents() {
		agent.ResetDailySchedule()
		s.memory.SaveAgentState(agent)
	}
}

// SaveAll 将全部角色状态落盘
func (s *AgentService) SaveAll() {
	s.actionMutex.Lock()
	defer s.actionMutex.Unlock()

	for _, agent := range s.ListAgents() {
		s.memory.SaveAgentState(agent)
	}
}

// generate 组装角色上下文并调用LLM，任何失败都归一为返回空串
func (s *AgentService) generate(ctx context.Context, agent *Agent, messages []llm.Message, webSearch bool, searchQuery string, maxTokens int) string {
	resp, err := s.llm.Generate(ctx, llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: 0.9,
		WebSearch:   webSearch,
		SearchQuery: searchQuery,
	})
	if err != nil {
		utils.GetLogger().Warnf("%s的内容生成失败: %v", agent.Profile.Name, err)
		return ""
	}
	return strings.TrimSpace(resp.Text)
}

// buildPostPrompt 组装内容生成的消息序列：
// 系统提示拼接人设背景与说话风格，用户消息带上任务与近期记忆。
func buildPostPrompt(agent *Agent, task string) []llm.Message {
	var sysParts []string
	sysParts = append(sysParts, agent.Profile.SystemPrompt)
	if agent.Profile.Background != "" {
		sysParts = append(sysParts, "你的背景: "+agent.Profile.Background)
	}
	if agent.Profile.SpeakingStyle != "" {
		sysParts = append(sysParts, "你的说话风格: "+agent.Profile.SpeakingStyle)
	}

	userParts := []string{task}
	if memories := agent.RecentMemories(5); len(memories) > 0 {
		userParts = append(userParts, "\n你最近的记忆:\n"+strings.Join(memories, "\n"))
	}

	return []llm.Message{
		{Role: RoleSystem, Content: strings.Join(sysParts, "\n")},
		{Role: RoleUser, Content: strings.Join(userParts, "\n")},
	}
}
