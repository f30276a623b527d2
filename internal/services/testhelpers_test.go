// internal/services/testhelpers_test.go
package services

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Corphon/PersonaTownMCP/internal/config"
	"github.com/Corphon/PersonaTownMCP/internal/llm"
	"github.com/Corphon/PersonaTownMCP/internal/models"
	"github.com/Corphon/PersonaTownMCP/internal/schedule"
	"github.com/Corphon/PersonaTownMCP/internal/storage"
)

// fakeProvider 是可编排的LLM提供者：按队列吐出预设回复，
// 队列耗尽后重复最后一条；err非nil时所有调用都失败。
type fakeProvider struct {
	mu          sync.Mutex
	responses   []string
	fallback    string
	err         error
	calls       int
	searchCalls int
	lastReq     llm.CompletionRequest
}

func (p *fakeProvider) Initialize(map[string]string) error { return nil }
func (p *fakeProvider) GetName() string                    { return "fake" }
func (p *fakeProvider) GetSupportedModels() []string       { return []string{"fake-1"} }

func (p *fakeProvider) CompleteChat(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	p.lastReq = req
	if req.WebSearch {
		p.searchCalls++
	}
	if p.err != nil {
		return nil, p.err
	}

	text := p.fallback
	if len(p.responses) > 0 {
		text = p.responses[0]
		p.responses = p.responses[1:]
	}

	return &llm.CompletionResponse{
		Text:         text,
		TokensUsed:   10,
		ProviderName: "fake",
	}, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakeProvider) searchCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.searchCalls
}

func (p *fakeProvider) lastRequest() llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastReq
}

func newFakeLLM(p *fakeProvider) *LLMService {
	return &LLMService{
		provider:     p,
		providerName: "fake",
		isReady:      true,
	}
}

func newTestRand() *rand.Rand {
	return rand.New(rand.NewSource(5))
}

func newTestStorage(t *testing.T) *storage.FileStorage {
	t.Helper()
	fs, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	return fs
}

func testConfig() *config.Config {
	return &config.Config{
		MemoryMaxLength:    10000,
		DefaultSleepStart:  1,
		DefaultSleepEnd:    7,
		NightOwlSleepStart: 2,
		NightOwlSleepEnd:   9,
		ActiveHoursMin:     3,
		ActiveHoursMax:     8,
		TickInterval:       time.Minute,
	}
}

func testProfile(id, name string) models.AgentProfile {
	return models.AgentProfile{
		ID:               id,
		Name:             name,
		Role:             "小镇居民",
		SystemPrompt:     "你是" + name,
		TopicsOfInterest: []string{"读书", "园艺"},
		InitialMemories:  []string{"昨天在镇口见到了一场漂亮的日落"},
	}
}

// testTown 把一组服务装配成可直接驱动的测试环境
type testTown struct {
	clock     *schedule.ManualClock
	provider  *fakeProvider
	agents    *AgentService
	community *CommunityService
	memory    *MemoryService
	monitor   *MonitorService
	ledger    *InteractionService
	behavior  *BehaviorService
	scheduler *SchedulerService
}

func newTestTown(t *testing.T, profiles ...models.AgentProfile) *testTown {
	t.Helper()

	cfg := testConfig()
	clock := schedule.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	provider := &fakeProvider{fallback: "这是一条测试用的生成内容。"}
	llmService := newFakeLLM(provider)
	rng := rand.New(rand.NewSource(99))

	community := NewCommunityService(newTestStorage(t))
	memory := NewMemoryService(newTestStorage(t))
	monitor := NewMonitorService()
	ledger := NewInteractionService(newTestStorage(t))

	agents := NewAgentService(cfg, clock, llmService, community, memory, monitor, ledger, rng)
	require.NoError(t, agents.LoadAgents(profiles))

	behavior := NewBehaviorService(llmService, rng)
	scheduler := NewSchedulerService(clock, agents, behavior, community, monitor, cfg.TickInterval, rng)

	return &testTown{
		clock:     clock,
		provider:  provider,
		agents:    agents,
		community: community,
		memory:    memory,
		monitor:   monitor,
		ledger:    ledger,
		behavior:  behavior,
		scheduler: scheduler,
	}
}

// forceAgentActive 让角色在当前小时必定活跃
func (tt *testTown) forceAgentActive(t *testing.T, agentID string) *Agent {
	t.Helper()
	agent, err := tt.agents.GetAgent(agentID)
	require.NoError(t, err)
	agent.SetForceActive(true)
	return agent
}
