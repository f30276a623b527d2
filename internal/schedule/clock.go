// internal/schedule/clock.go
package schedule

import (
	"sync"
	"time"
)

// Clock 提供模拟时间来源，调度器与角色逻辑只通过它读取当前小时，
// 测试时可以替换为手动推进的时钟
type Clock interface {
	Now() time.Time
	CurrentHour() int
}

// SystemClock 使用真实系统时间
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) CurrentHour() int {
	return time.Now().Hour()
}

// ManualClock 是可手动推进的时钟，用于确定性测试
type ManualClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManualClock 创建指向给定时间的手动时钟
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *ManualClock) CurrentHour() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now.Hour()
}

// Advance 将时钟向前推进d
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SetHour 将时钟设置到当天的指定小时
func (c *ManualClock) SetHour(hour int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Date(c.now.Year(), c.now.Month(), c.now.Day(), hour, 0, 0, 0, c.now.Location())
}
