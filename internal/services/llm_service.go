// internal/services/llm_service.go
package services

import (
	"context"
	"errors"
	"sync"

	"github.com/Corphon/PersonaTownMCP/internal/llm"
	"github.com/Corphon/PersonaTownMCP/internal/utils"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrLLMNotReady = errors.New("llm service not ready")

// LLMService 提供统一的大语言模型调用入口。
// 所有失败（提供者异常、空候选、未配置）对调用方都表现为
// "无输出"：返回nil响应加非nil错误，由调用方决定静默降级。
type LLMService struct {
	providerMutex sync.RWMutex
	provider      llm.Provider
	providerName  string
	isReady       bool

	stats *StatsService
}

// NewLLMService 使用指定提供者创建服务
func NewLLMService(providerName string, providerConfig map[string]string, stats *StatsService) (*LLMService, error) {
	provider, err := llm.GetProvider(providerName, providerConfig)
	if err != nil {
		return nil, err
	}

	return &LLMService{
		provider:     provider,
		providerName: providerName,
		isReady:      true,
		stats:        stats,
	}, nil
}

// NewEmptyLLMService 创建未配置提供者的空服务。
// 没有API密钥时系统仍可启动，生成调用全部返回无输出。
func NewEmptyLLMService() *LLMService {
	return &LLMService{
		isReady: false,
	}
}

// IsReady 返回服务是否已配置可用的提供者
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.isReady
}

// GetProviderName 返回当前提供者名称
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// UpdateProvider 运行时切换提供者
func (s *LLMService) UpdateProvider(providerName string, providerConfig map[string]string) error {
	provider, err := llm.GetProvider(providerName, providerConfig)
	if err != nil {
		return err
	}

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	s.provider = provider
	s.providerName = providerName
	s.isReady = true
	return nil
}

// Generate 执行一次对话生成。调用是同步阻塞的，不做重试。
func (s *LLMService) Generate(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.providerMutex.RLock()
	provider := s.provider
	ready := s.isReady
	s.providerMutex.RUnlock()

	if !ready || provider == nil {
		return nil, ErrLLMNotReady
	}

	resp, err := provider.CompleteChat(ctx, req)
	if err != nil {
		utils.GetLogger().Warnf("LLM调用失败(%s): %v", s.providerName, err)
		return nil, err
	}

	if resp == nil || resp.Text == "" {
		return nil, errors.New("LLM返回了空响应")
	}

	if s.stats != nil {
		tokens := resp.TokensUsed
		if tokens == 0 {
			// 提供者没报用量时按文本粗略估算
			tokens = utils.EstimateTokens(resp.Text)
		}
		s.stats.RecordRequest(tokens)
	}

	return resp, nil
}
