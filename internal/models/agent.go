// internal/models/agent.go
package models

import "time"

// AgentProfile 表示角色的静态人设配置（启动时加载，运行期不变）
type AgentProfile struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Role             string   `json:"role" yaml:"role"`
	SystemPrompt     string   `json:"system_prompt" yaml:"system_prompt"`
	TopicsOfInterest []string `json:"topics_of_interest" yaml:"topics_of_interest"`
	InitialMemories  []string `json:"initial_memories" yaml:"initial_memories"`
	Behaviors        []string `json:"behaviors,omitempty" yaml:"behaviors,omitempty"`
	SpeakingStyle    string   `json:"speaking_style,omitempty" yaml:"speaking_style,omitempty"`
	Background       string   `json:"background,omitempty" yaml:"background,omitempty"`
	NightOwl         bool     `json:"night_owl,omitempty" yaml:"night_owl,omitempty"`
}

// AgentState 表示角色的可变运行状态（每次变更后整体快照到磁盘）
type AgentState struct {
	AgentID      string    `json:"agent_id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	LastUpdated  time.Time `json:"last_updated"`
	Memories     []string  `json:"memories"`     // 近期记忆（受长度预算限制）
	AllMemories  []string  `json:"all_memories"` // 完整历史记忆，只追加
	Posts        []string  `json:"posts"`        // 已发布帖子ID
	Comments     []string  `json:"comments"`     // 已发表评论ID
	Inspirations []string  `json:"inspirations"` // 睡眠期间产生的灵感全文
	ActiveHours  []int     `json:"active_hours"` // 今日活跃小时（每日重新生成）
	SleepStart   int       `json:"sleep_start"`
	SleepEnd     int       `json:"sleep_end"`
}

// AgentStatus 表示角色在某一时刻的在线状态
type AgentStatus string

const (
	AgentStatusActive      AgentStatus = "active"
	AgentStatusAsleep      AgentStatus = "asleep"
	AgentStatusOffline     AgentStatus = "offline"
	AgentStatusForceActive AgentStatus = "force_active"
)
