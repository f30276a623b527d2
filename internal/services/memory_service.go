// internal/services/memory_service.go
package services

import (
	"fmt"

	"github.com/Corphon/PersonaTownMCP/internal/errors"
	"github.com/Corphon/PersonaTownMCP/internal/models"
	"github.com/Corphon/PersonaTownMCP/internal/storage"
	"github.com/Corphon/PersonaTownMCP/internal/utils"
)

// MemoryService 负责角色状态快照的持久化。
// 每个角色一个JSON文件（<agent_id>_state.json），整体覆盖写入。
type MemoryService struct {
	storage *storage.FileStorage
}

// NewMemoryService 创建记忆持久化服务
func NewMemoryService(fs *storage.FileStorage) *MemoryService {
	return &MemoryService{storage: fs}
}

func stateFileName(agentID string) string {
	return fmt.Sprintf("%s_state.json", agentID)
}

// SaveAgentState 将角色快照写入磁盘。
// 写入失败只记录日志，不打断调度循环。
func (s *MemoryService) SaveAgentState(agent *Agent) {
	state := agent.Snapshot()
	if err := s.storage.SaveJSONFile("", stateFileName(state.AgentID), state); err != nil {
		utils.GetLogger().Errorf("保存角色%s的状态失败: %v", state.AgentID, err)
	}
}

// LoadAgentState 从磁盘加载角色快照。
// 文件不存在返回(nil, nil)，调用方按全新角色处理。
func (s *MemoryService) LoadAgentState(agentID string) (*models.AgentState, error) {
	fileName := stateFileName(agentID)
	if !s.storage.FileExists("", fileName) {
		return nil, nil
	}

	var state models.AgentState
	if err := s.storage.LoadJSONFile("", fileName, &state); err != nil {
		return nil, errors.NewStorageError(fmt.Sprintf("加载角色%s的状态失败", agentID), err)
	}
	return &state, nil
}

// ListSavedAgents 列出已有状态快照的角色ID
func (s *MemoryService) ListSavedAgents() []string {
	files, err := s.storage.ListFiles("", "_state.json")
	if err != nil {
		utils.GetLogger().Warnf("列举角色状态文件失败: %v", err)
		return nil
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f[:len(f)-len("_state.json")])
	}
	return ids
}

// DeleteAgentState 删除角色的状态快照
func (s *MemoryService) DeleteAgentState(agentID string) error {
	fileName := stateFileName(agentID)
	if !s.storage.FileExists("", fileName) {
		return errors.NewNotFoundError(fmt.Sprintf("角色%s没有状态快照", agentID), nil)
	}
	return s.storage.DeleteFile("", fileName)
}
