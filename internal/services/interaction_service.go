// internal/services/interaction_service.go
package services

import (
	"sort"
	"sync"
	"time"

	"github.com/Corphon/PersonaTownMCP/internal/models"
	"github.com/Corphon/PersonaTownMCP/internal/storage"
	"github.com/Corphon/PersonaTownMCP/internal/utils"
)

const (
	interactionFile = "interactions.json"
	interactionLog  = "interaction_events.jsonl"
)

// InteractionService 维护角色间的互动账本：
// 累计计数、最近互动时间，以及只追加的JSONL事件日志。
// 计数快照在每次变更后整体落盘，事件日志逐行追加。
type InteractionService struct {
	storage *storage.FileStorage
	clock   func() time.Time

	mutex sync.RWMutex
	data  models.InteractionData
}

// NewInteractionService 创建互动账本服务并加载已有数据
func NewInteractionService(fs *storage.FileStorage) *InteractionService {
	s := &InteractionService{
		storage: fs,
		clock:   time.Now,
		data: models.InteractionData{
			Interactions:    make(map[string]map[string]int),
			LastInteraction: make(map[string]map[string]time.Time),
		},
	}

	if fs.FileExists("", interactionFile) {
		var loaded models.InteractionData
		if err := fs.LoadJSONFile("", interactionFile, &loaded); err != nil {
			utils.GetLogger().Errorf("加载互动数据失败，按空账本处理: %v", err)
		} else {
			if loaded.Interactions != nil {
				s.data.Interactions = loaded.Interactions
			}
			if loaded.LastInteraction != nil {
				s.data.LastInteraction = loaded.LastInteraction
			}
		}
	}

	return s
}

// RecordInteraction 记录一次从actor到target的互动（如评论对方的帖子）。
// 自己与自己的互动不计入。
func (s *InteractionService) RecordInteraction(actorID, targetID, interactionType string, details map[string]string) {
	if actorID == targetID || actorID == "" || targetID == "" {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.data.Interactions[actorID] == nil {
		s.data.Interactions[actorID] = make(map[string]int)
	}
	s.data.Interactions[actorID][targetID]++

	if s.data.LastInteraction[actorID] == nil {
		s.data.LastInteraction[actorID] = make(map[string]time.Time)
	}
	now := s.clock()
	s.data.LastInteraction[actorID][targetID] = now

	if err := s.storage.SaveJSONFile("", interactionFile, s.data); err != nil {
		utils.GetLogger().Errorf("保存互动数据失败: %v", err)
	}

	event := models.InteractionEvent{
		Timestamp:   now,
		InitiatorID: actorID,
		TargetID:    targetID,
		Type:        interactionType,
		Details:     details,
	}
	if err := s.storage.AppendJSONLine("", interactionLog, event); err != nil {
		utils.GetLogger().Errorf("追加互动事件日志失败: %v", err)
	}
}

// GetInteractionCount 返回actor对target的累计互动次数
func (s *InteractionService) GetInteractionCount(actorID, targetID string) int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if counts, ok := s.data.Interactions[actorID]; ok {
		return counts[targetID]
	}
	return 0
}

// GetLastInteraction 返回actor对target最近一次互动的时间，从未互动返回零值
func (s *InteractionService) GetLastInteraction(actorID, targetID string) time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if times, ok := s.data.LastInteraction[actorID]; ok {
		return times[targetID]
	}
	return time.Time{}
}

// GetSummary 汇总一个角色的互动情况：总次数、互动对象数、最常互动对象
func (s *InteractionService) GetSummary(agentID string) models.InteractionSummary {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	summary := models.InteractionSummary{AgentID: agentID}

	counts, ok := s.data.Interactions[agentID]
	if !ok {
		return summary
	}

	ranked := make([]models.InteractionCount, 0, len(counts))
	for targetID, count := range counts {
		summary.TotalInteractions += count
		ranked = append(ranked, models.InteractionCount{TargetID: targetID, Count: count})
	}
	summary.UniqueAgents = len(ranked)

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].TargetID < ranked[j].TargetID
	})

	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	summary.MostInteracted = ranked

	return summary
}

// Save 将互动计数整体快照到磁盘
func (s *InteractionService) Save() {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if err := s.storage.SaveJSONFile("", interactionFile, s.data); err != nil {
		utils.GetLogger().Errorf("保存互动数据失败: %v", err)
	}
}
