// internal/models/event.go
package models

import "time"

// ActivityType 表示监控事件类型
type ActivityType string

const (
	ActivityPost    ActivityType = "POST"
	ActivityComment ActivityType = "COMMENT"
	ActivitySleep   ActivityType = "SLEEP"
	ActivityWake    ActivityType = "WAKE"
	ActivitySystem  ActivityType = "SYSTEM"
)

// ActivityEvent 表示调度器/角色发出的一条结构化事件
// 监控器与WebSocket推送都只是事件的订阅方
type ActivityEvent struct {
	EventID   string            `json:"event_id"`
	Timestamp time.Time         `json:"timestamp"`
	AgentName string            `json:"agent_name"`
	Type      ActivityType      `json:"type"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
}
