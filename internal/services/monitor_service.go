// internal/services/monitor_service.go
package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Corphon/PersonaTownMCP/internal/models"
	"github.com/Corphon/PersonaTownMCP/internal/utils"
)

// 内存中保留的最近事件条数
const monitorLogLimit = 100

// MonitorService 是角色活动的事件中心。
// 调度器和角色服务在关键动作后调用Log*方法发布事件，
// 订阅方（WebSocket推送、测试）通过Subscribe拿到事件通道。
// 订阅通道写入是非阻塞的，慢消费者会丢事件而不是拖住发布方。
type MonitorService struct {
	clock func() time.Time

	mutex       sync.RWMutex
	events      []models.ActivityEvent
	subscribers map[string]chan models.ActivityEvent
}

// NewMonitorService 创建活动监控服务
func NewMonitorService() *MonitorService {
	return &MonitorService{
		clock:       time.Now,
		subscribers: make(map[string]chan models.ActivityEvent),
	}
}

// Subscribe 注册一个事件订阅者，返回订阅ID和事件通道
func (m *MonitorService) Subscribe() (string, <-chan models.ActivityEvent) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	id := uuid.NewString()
	ch := make(chan models.ActivityEvent, 32)
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe 注销订阅者并关闭其通道
func (m *MonitorService) Unsubscribe(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if ch, ok := m.subscribers[id]; ok {
		delete(m.subscribers, id)
		close(ch)
	}
}

// LogPost 记录发帖事件
func (m *MonitorService) LogPost(agentName, postID, content string) {
	m.publish(models.ActivityPost, agentName,
		fmt.Sprintf("%s发布了新帖子: %s", agentName, utils.SummarizeText(content, 50)),
		map[string]string{"post_id": postID})
}

// LogComment 记录评论事件
func (m *MonitorService) LogComment(agentName, postID, commentID, content string) {
	m.publish(models.ActivityComment, agentName,
		fmt.Sprintf("%s发表了评论: %s", agentName, utils.SummarizeText(content, 50)),
		map[string]string{"post_id": postID, "comment_id": commentID})
}

// LogSleep 记录入睡事件
func (m *MonitorService) LogSleep(agentName string) {
	m.publish(models.ActivitySleep, agentName,
		fmt.Sprintf("%s进入睡眠状态", agentName), nil)
}

// LogWake 记录醒来事件，insights是睡眠学习期间产生的灵感条数
func (m *MonitorService) LogWake(agentName string, insights int) {
	msg := fmt.Sprintf("%s醒来了", agentName)
	if insights > 0 {
		msg = fmt.Sprintf("%s醒来了，梦中产生了%d条灵感", agentName, insights)
	}
	m.publish(models.ActivityWake, agentName, msg,
		map[string]string{"insights": fmt.Sprintf("%d", insights)})
}

// LogSystem 记录系统级事件（调度启停、换日等）
func (m *MonitorService) LogSystem(message string) {
	m.publish(models.ActivitySystem, "system", message, nil)
}

// GetRecentEvents 返回最近的n条事件（n<=0返回全部保留的事件），最新在后
func (m *MonitorService) GetRecentEvents(n int) []models.ActivityEvent {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if n <= 0 || n > len(m.events) {
		n = len(m.events)
	}
	out := make([]models.ActivityEvent, n)
	copy(out, m.events[len(m.events)-n:])
	return out
}

// SubscriberCount 返回当前订阅者数量
func (m *MonitorService) SubscriberCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.subscribers)
}

func (m *MonitorService) publish(eventType models.ActivityType, agentName, message string, details map[string]string) {
	event := models.ActivityEvent{
		EventID:   uuid.NewString(),
		Timestamp: m.clock(),
		AgentName: agentName,
		Type:      eventType,
		Message:   message,
		Details:   details,
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.events = append(m.events, event)
	if len(m.events) > monitorLogLimit {
		m.events = m.events[len(m.events)-monitorLogLimit:]
	}

	for _, ch := range m.subscribers {
		select {
		case ch <- event:
		default:
			// 订阅者处理不过来时丢弃事件
		}
	}
}
