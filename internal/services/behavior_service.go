// internal/services/behavior_service.go
package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/Corphon/PersonaTownMCP/internal/llm"
	"github.com/Corphon/PersonaTownMCP/internal/models"
	"github.com/Corphon/PersonaTownMCP/internal/utils"
)

// BehaviorService 实现角色的行为决策策略：是否发帖、是否评论、发什么话题。
// 决策结果缓存在内存中，发帖决策的键包含近期记忆条数，
// 记忆变化后自然失效；评论决策按(角色,帖子)对缓存，天然幂等。
type BehaviorService struct {
	llm *LLMService

	mutex sync.Mutex
	cache map[string]bool
	rng   *rand.Rand
}

// NewBehaviorService 创建行为决策服务
func NewBehaviorService(llmService *LLMService, rng *rand.Rand) *BehaviorService {
	return &BehaviorService{
		llm:   llmService,
		cache: make(map[string]bool),
		rng:   rng,
	}
}

// ShouldPost 决定角色当前是否应该发帖。
// 自己发帖超过10条的角色先过30%门槛再考虑，避免高产角色刷屏；
// 之后询问LLM，不可用或调用失败时退化为50%掷硬币。
func (b *BehaviorService) ShouldPost(ctx context.Context, agent *Agent) bool {
	if len(agent.PostIDs()) > 10 && !b.chance(0.3) {
		return false
	}

	recentCount, _ := agent.MemoryCount()
	cacheKey := fmt.Sprintf("post_decision_%s_%d", agent.Profile.ID, recentCount)

	b.mutex.Lock()
	if cached, ok := b.cache[cacheKey]; ok {
		b.mutex.Unlock()
		return cached
	}
	b.mutex.Unlock()

	prompt := fmt.Sprintf(
		"你是%s，%s。根据你最近的经历，你现在想发一条新帖子吗？\n\n最近的记忆:\n%s\n\n只回答\"是\"或\"否\"。",
		agent.Profile.Name, agent.Profile.Role,
		strings.Join(agent.RecentMemories(5), "\n"),
	)

	decision := b.askYesNo(ctx, agent, prompt)

	b.mutex.Lock()
	b.cache[cacheKey] = decision
	b.mutex.Unlock()

	return decision
}

// ShouldComment 决定角色是否应该评论某个帖子。
// 规则顺序：已评论过→否；自己的帖子→10%；
// 然后询问LLM，失败时掷硬币。
func (b *BehaviorService) ShouldComment(ctx context.Context, agent *Agent, post *models.Post, alreadyCommented bool) bool {
	if alreadyCommented {
		return false
	}

	if post.AuthorID == agent.Profile.ID {
		return b.chance(0.1)
	}

	cacheKey := fmt.Sprintf("comment_decision_%s_%s", agent.Profile.ID, post.PostID)

	b.mutex.Lock()
	if cached, ok := b.cache[cacheKey]; ok {
		b.mutex.Unlock()
		return cached
	}
	b.mutex.Unlock()

	prompt := fmt.Sprintf(
		"你是%s，%s。你看到了%s发的帖子:\n\n%s\n\n你想评论这条帖子吗？只回答\"是\"或\"否\"。",
		agent.Profile.Name, agent.Profile.Role,
		post.AuthorName, utils.SummarizeText(post.Content, 200),
	)

	decision := b.askYesNo(ctx, agent, prompt)

	b.mutex.Lock()
	b.cache[cacheKey] = decision
	b.mutex.Unlock()

	return decision
}

// SelectPostTopic 为主动发帖挑选话题：
// 先从兴趣列表随机选一个基础话题；最近10条记忆里提到兴趣话题的，
// 70%概率挑一条接在基础话题后面作为灵感。
func (b *BehaviorService) SelectPostTopic(agent *Agent) string {
	topics := agent.Profile.TopicsOfInterest

	base := "分享你今天的所见所想"
	if len(topics) > 0 {
		b.mutex.Lock()
		base = fmt.Sprintf("分享一些关于%s的想法", topics[b.rng.Intn(len(topics))])
		b.mutex.Unlock()
	}

	relevant := relevantMemories(agent.RecentMemories(10), topics)
	if len(relevant) > 0 && b.chance(0.7) {
		b.mutex.Lock()
		memory := relevant[b.rng.Intn(len(relevant))]
		b.mutex.Unlock()
		return fmt.Sprintf("%s，可以从这段经历说起: %s", base, utils.SummarizeText(memory, 100))
	}

	return base
}

// relevantMemories 过滤出提到任一兴趣话题的记忆
func relevantMemories(memories, topics []string) []string {
	var out []string
	for _, memory := range memories {
		lower := strings.ToLower(memory)
		for _, topic := range topics {
			if strings.Contains(lower, strings.ToLower(topic)) {
				out = append(out, memory)
				break
			}
		}
	}
	return out
}

// ClearCache 清空全部决策缓存
func (b *BehaviorService) ClearCache() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.cache = make(map[string]bool)
}

// CacheSize 返回当前缓存的决策数
func (b *BehaviorService) CacheSize() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.cache)
}

// askYesNo 向LLM提出是非问题，只看回复前10个字符里有没有肯定词。
// 调用失败时掷硬币，保证决策总能得出结果。
func (b *BehaviorService) askYesNo(ctx context.Context, agent *Agent, prompt string) bool {
	resp, err := b.llm.Generate(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: RoleSystem, Content: agent.Profile.SystemPrompt},
			{Role: RoleUser, Content: prompt},
		},
		MaxTokens:   10,
		Temperature: 0.7,
	})
	if err != nil {
		utils.GetLogger().Debugf("角色%s的决策调用失败，改为随机决定: %v", agent.Profile.ID, err)
		return b.chance(0.5)
	}

	return isAffirmative(resp.Text)
}

// isAffirmative 检查回复前10个字符中是否出现肯定词
func isAffirmative(text string) bool {
	runes := []rune(strings.ToLower(strings.TrimSpace(text)))
	if len(runes) > 10 {
		runes = runes[:10]
	}
	head := string(runes)
	return strings.Contains(head, "是") || strings.Contains(head, "yes")
}

func (b *BehaviorService) chance(p float64) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.rng.Float64() < p
}
