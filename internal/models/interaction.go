// internal/models/interaction.go
package models

import "time"

// InteractionData 是互动计数的持久化快照结构
type InteractionData struct {
	// initiator_id -> target_id -> 次数
	Interactions map[string]map[string]int `json:"interactions"`
	// initiator_id -> target_id -> 最后互动时间
	LastInteraction map[string]map[string]time.Time `json:"last_interaction"`
}

// InteractionEvent 是追加式互动日志的一条记录（JSONL，永不清理）
type InteractionEvent struct {
	Timestamp   time.Time         `json:"timestamp"`
	InitiatorID string            `json:"initiator_id"`
	TargetID    string            `json:"target_id"`
	Type        string            `json:"type"` // comment / like / reply
	Details     map[string]string `json:"details,omitempty"`
}

// InteractionCount 表示某个互动对象及其累计次数
type InteractionCount struct {
	TargetID string `json:"target_id"`
	Count    int    `json:"count"`
}

// InteractionSummary 表示单个角色的互动摘要
type InteractionSummary struct {
	AgentID           string             `json:"agent_id"`
	TotalInteractions int                `json:"total_interactions"`
	UniqueAgents      int                `json:"unique_agents"`
	MostInteracted    []InteractionCount `json:"most_interacted"`
}
