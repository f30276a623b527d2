// internal/services/agent.go
package services

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/PersonaTownMCP/internal/models"
	"github.com/Corphon/PersonaTownMCP/internal/schedule"
)

// Agent 是单个AI角色的运行时状态机。
// 三种互斥状态：活跃（在今日活跃小时内）、睡眠（在睡眠时间段内）、
// 离线（清醒但不在活跃小时内）。forceActive置位时覆盖一切：
// 始终活跃、从不睡眠。
//
// 活跃小时与睡眠时间段由配置独立生成，二者并不互斥：
// 本实现的约定是内容行为（发帖/评论）只看活跃小时集合，
// 睡眠检查仅用于调度器的睡眠学习分发。
type Agent struct {
	Profile models.AgentProfile

	mu           sync.RWMutex
	sleep        schedule.Window
	forceActive  bool
	activeHours  []int
	memories     []string // 近期记忆，受长度预算限制
	allMemories  []string // 完整历史，只追加
	posts        []string
	comments     []string
	inspirations []string

	memoryBudget   int
	activeHoursMin int
	activeHoursMax int
	rng            *rand.Rand
}

// NewAgent 根据人设创建角色并生成今日活跃小时
func NewAgent(profile models.AgentProfile, sleep schedule.Window, memoryBudget, activeMin, activeMax int, rng *rand.Rand) *Agent {
	a := &Agent{
		Profile:        profile,
		sleep:          sleep,
		memoryBudget:   memoryBudget,
		activeHoursMin: activeMin,
		activeHoursMax: activeMax,
		rng:            rng,
	}

	a.memories = append(a.memories, profile.InitialMemories...)
	a.allMemories = append(a.allMemories, profile.InitialMemories...)
	a.activeHours = schedule.GenerateActiveHours(rng, sleep, activeMin, activeMax)

	return a
}

// IsActive 检查角色在指定小时是否活跃
func (a *Agent) IsActive(hour int) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.forceActive {
		return true
	}

	for _, h := range a.activeHours {
		if h == hour {
			return true
		}
	}
	return false
}

// IsAsleep 检查角色在指定小时是否处于睡眠状态
func (a *Agent) IsAsleep(hour int) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.forceActive {
		return false
	}

	return a.sleep.Contains(hour)
}

// Status 返回角色在指定小时的状态（强制活跃优先）
func (a *Agent) Status(hour int) models.AgentStatus {
	a.mu.RLock()
	forced := a.forceActive
	a.mu.RUnlock()

	if forced {
		return models.AgentStatusForceActive
	}
	if a.IsAsleep(hour) {
		return models.AgentStatusAsleep
	}
	if a.IsActive(hour) {
		return models.AgentStatusActive
	}
	return models.AgentStatusOffline
}

// StatusLine 返回用于展示的状态描述
func (a *Agent) StatusLine(hour int) string {
	switch a.Status(hour) {
	case models.AgentStatusForceActive:
		return fmt.Sprintf("%s当前处于强制活跃状态。", a.Profile.Name)
	case models.AgentStatusAsleep:
		w := a.SleepWindow()
		return fmt.Sprintf("%s当前正在睡觉。(睡眠时间: %d-%d)", a.Profile.Name, w.Start, w.End)
	case models.AgentStatusActive:
		return fmt.Sprintf("%s当前处于活跃状态。", a.Profile.Name)
	default:
		hours := make([]string, 0, len(a.ActiveHours()))
		for _, h := range a.ActiveHours() {
			hours = append(hours, fmt.Sprintf("%d", h))
		}
		return fmt.Sprintf("%s当前不在线。(今天的活跃时间: %s)", a.Profile.Name, strings.Join(hours, ", "))
	}
}

// SetForceActive 设置强制活跃状态
func (a *Agent) SetForceActive(state bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.forceActive = state
}

// ForceActive 返回当前是否强制活跃
func (a *Agent) ForceActive() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.forceActive
}

// SleepWindow 返回角色的睡眠时间段
func (a *Agent) SleepWindow() schedule.Window {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sleep
}

// ActiveHours 返回今日活跃小时的副本
func (a *Agent) ActiveHours() []int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	hours := make([]int, len(a.activeHours))
	copy(hours, a.activeHours)
	return hours
}

// ResetDailySchedule 为新的一天重新生成活跃小时集合。
// 整体重算而不是增量修补；不触碰记忆和强制活跃标志。
func (a *Agent) ResetDailySchedule() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activeHours = schedule.GenerateActiveHours(a.rng, a.sleep, a.activeHoursMin, a.activeHoursMax)
}

// AddMemory 将新记忆同时追加到近期记忆与完整历史。
// 追加后从近期记忆头部逐条淘汰，直到序列化长度回到预算内；
// 完整历史永不淘汰，近期记忆始终是完整历史的尾部子序列。
func (a *Agent) AddMemory(entry string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.allMemories = append(a.allMemories, entry)
	a.memories = append(a.memories, entry)

	for len(a.memories) > 0 && serializedSize(a.memories) > a.memoryBudget {
		a.memories = a.memories[1:]
	}
}

// serializedSize 估算记忆列表字符串形式的长度：
// 每条按rune数计，外加引号与分隔符的固定开销
func serializedSize(memories []string) int {
	size := 2 // 方括号
	for _, m := range memories {
		size += len([]rune(m)) + 4
	}
	return size
}

// RecentMemories 返回最近的n条近期记忆（n<=0返回全部）
func (a *Agent) RecentMemories(n int) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if n <= 0 || n > len(a.memories) {
		n = len(a.memories)
	}
	out := make([]string, n)
	copy(out, a.memories[len(a.memories)-n:])
	return out
}

// MemoryHistory 返回最近的n条完整历史记忆（n<=0返回全部）
func (a *Agent) MemoryHistory(n int) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if n <= 0 || n > len(a.allMemories) {
		n = len(a.allMemories)
	}
	out := make([]string, n)
	copy(out, a.allMemories[len(a.allMemories)-n:])
	return out
}

// MemoryCount 返回（近期记忆数, 完整历史数）
func (a *Agent) MemoryCount() (int, int) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.memories), len(a.allMemories)
}

func (a *Agent) appendPost(postID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.posts = append(a.posts, postID)
}

func (a *Agent) appendComment(commentID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.comments = append(a.comments, commentID)
}

func (a *Agent) appendInspiration(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inspirations = append(a.inspirations, text)
}

// PostIDs 返回已发布帖子ID的副本
func (a *Agent) PostIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.posts))
	copy(out, a.posts)
	return out
}

// CommentIDs 返回已发表评论ID的副本
func (a *Agent) CommentIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.comments))
	copy(out, a.comments)
	return out
}

// Inspirations 返回灵感列表的副本
func (a *Agent) Inspirations() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.inspirations))
	copy(out, a.inspirations)
	return out
}

// Snapshot 导出可持久化的完整状态
func (a *Agent) Snapshot() *models.AgentState {
	a.mu.RLock()
	defer a.mu.RUnlock()

	state := &models.AgentState{
		AgentID:      a.Profile.ID,
		Name:         a.Profile.Name,
		Role:         a.Profile.Role,
		LastUpdated:  time.Now(),
		Memories:     append([]string(nil), a.memories...),
		AllMemories:  append([]string(nil), a.allMemories...),
		Posts:        append([]string(nil), a.posts...),
		Comments:     append([]string(nil), a.comments...),
		Inspirations: append([]string(nil), a.inspirations...),
		ActiveHours:  append([]int(nil), a.activeHours...),
		SleepStart:   a.sleep.Start,
		SleepEnd:     a.sleep.End,
	}
	return state
}

// Restore 从持久化快照恢复可变状态
func (a *Agent) Restore(state *models.AgentState) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.memories = append([]string(nil), state.Memories...)
	a.allMemories = append([]string(nil), state.AllMemories...)
	a.posts = append([]string(nil), state.Posts...)
	a.comments = append([]string(nil), state.Comments...)
	a.inspirations = append([]string(nil), state.Inspirations...)
	a.activeHours = append([]int(nil), state.ActiveHours...)
	a.sleep = schedule.Window{Start: state.SleepStart, End: state.SleepEnd}
}
