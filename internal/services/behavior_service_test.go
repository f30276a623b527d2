// internal/services/behavior_service_test.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/PersonaTownMCP/internal/models"
	"github.com/Corphon/PersonaTownMCP/internal/schedule"
)

func TestIsAffirmative(t *testing.T) {
	assert.True(t, isAffirmative("是"))
	assert.True(t, isAffirmative("是的，我想发帖"))
	assert.True(t, isAffirmative("Yes, definitely"))
	assert.True(t, isAffirmative("  是  "))

	assert.False(t, isAffirmative("否"))
	assert.False(t, isAffirmative("不，今天不想"))
	assert.False(t, isAffirmative(""))
	// 肯定词出现在第10个字符之后不算数
	assert.False(t, isAffirmative("让我想想让我想想让我想想，是的"))
}

func TestShouldPostCaching(t *testing.T) {
	provider := &fakeProvider{fallback: "是"}
	behavior := NewBehaviorService(newFakeLLM(provider), rand.New(rand.NewSource(1)))
	agent := newTestAgent(10000)

	first := behavior.ShouldPost(context.Background(), agent)
	assert.True(t, first)
	assert.Equal(t, 1, provider.callCount())

	// 记忆没变，第二次直接走缓存
	second := behavior.ShouldPost(context.Background(), agent)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.callCount())

	// 记忆变化后缓存键不同，重新询问
	agent.AddMemory("刚才发生了一件有意思的事")
	behavior.ShouldPost(context.Background(), agent)
	assert.Equal(t, 2, provider.callCount())
}

func TestShouldPostFallbackOnFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("连接超时")}
	behavior := NewBehaviorService(newFakeLLM(provider), rand.New(rand.NewSource(1)))

	// LLM失败退化为掷硬币，不会panic也不会卡住；
	// 决策结果进缓存，同样的键不再重复掷
	agent := newTestAgent(10000)
	first := behavior.ShouldPost(context.Background(), agent)
	second := behavior.ShouldPost(context.Background(), agent)
	assert.Equal(t, first, second)
}

func TestShouldComment(t *testing.T) {
	provider := &fakeProvider{fallback: "是"}
	behavior := NewBehaviorService(newFakeLLM(provider), rand.New(rand.NewSource(1)))
	agent := newTestAgent(10000)

	post := &models.Post{PostID: "p1", AuthorID: "a2", AuthorName: "赵快", Content: "今天的夕阳很好看"}

	t.Run("已评论过直接拒绝", func(t *testing.T) {
		calls := provider.callCount()
		assert.False(t, behavior.ShouldComment(context.Background(), agent, post, true))
		assert.Equal(t, calls, provider.callCount(), "不应询问LLM")
	})

	t.Run("正常流程询问LLM", func(t *testing.T) {
		assert.True(t, behavior.ShouldComment(context.Background(), agent, post, false))
	})

	t.Run("结果按帖子缓存", func(t *testing.T) {
		calls := provider.callCount()
		behavior.ShouldComment(context.Background(), agent, post, false)
		assert.Equal(t, calls, provider.callCount())
	})

	t.Run("自己的帖子走低概率", func(t *testing.T) {
		own := &models.Post{PostID: "p2", AuthorID: agent.Profile.ID, Content: "我自己发的"}

		calls := provider.callCount()
		yes := 0
		for i := 0; i < 1000; i++ {
			if behavior.ShouldComment(context.Background(), agent, own, false) {
				yes++
			}
		}
		// 10%概率，不询问LLM
		assert.Equal(t, calls, provider.callCount())
		assert.Greater(t, yes, 50)
		assert.Less(t, yes, 200)
	})
}

func TestShouldPostProlificThrottle(t *testing.T) {
	// LLM永远说"是"，门槛只能来自30%前置过滤
	provider := &fakeProvider{fallback: "是"}
	behavior := NewBehaviorService(newFakeLLM(provider), rand.New(rand.NewSource(7)))

	prolific := newTestAgent(10000)
	for i := 0; i < 15; i++ {
		prolific.appendPost(fmt.Sprintf("post-%d", i))
	}

	yes := 0
	for i := 0; i < 1000; i++ {
		if behavior.ShouldPost(context.Background(), prolific) {
			yes++
		}
	}

	// 自己发帖超过10条后先过30%门槛
	assert.Greater(t, yes, 200)
	assert.Less(t, yes, 400)

	t.Run("低产角色不受门槛影响", func(t *testing.T) {
		fresh := newTestAgent(10000)
		for i := 0; i < 100; i++ {
			assert.True(t, behavior.ShouldPost(context.Background(), fresh))
		}
	})
}

func TestSelectPostTopic(t *testing.T) {
	behavior := NewBehaviorService(newFakeLLM(&fakeProvider{}), rand.New(rand.NewSource(3)))

	t.Run("只有兴趣相关的记忆会成为灵感", func(t *testing.T) {
		agent := newTestAgent(10000) // 兴趣: 读书、园艺
		agent.AddMemory("下午在后院研究园艺剪枝")
		agent.AddMemory("中午吃了一碗牛肉面")

		seeded := 0
		for i := 0; i < 200; i++ {
			topic := behavior.SelectPostTopic(agent)
			assert.Contains(t, topic, "分享一些关于")
			assert.NotContains(t, topic, "牛肉面")
			if strings.Contains(topic, "园艺剪枝") {
				seeded++
			}
		}

		// 70%概率从相关记忆取灵感
		assert.Greater(t, seeded, 100)
		assert.Less(t, seeded, 180)
	})

	t.Run("没有相关记忆时只用基础话题", func(t *testing.T) {
		agent := newTestAgent(10000)
		agent.AddMemory("中午吃了一碗牛肉面")

		for i := 0; i < 50; i++ {
			topic := behavior.SelectPostTopic(agent)
			assert.Contains(t, topic, "分享一些关于")
			assert.NotContains(t, topic, "可以从这段经历说起")
		}
	})

	t.Run("没有任何素材时兜底", func(t *testing.T) {
		bare := NewAgent(models.AgentProfile{ID: "x", Name: "空白"},
			schedule.Window{Start: 1, End: 7}, 10000, 3, 8, rand.New(rand.NewSource(1)))
		topic := behavior.SelectPostTopic(bare)
		assert.Equal(t, "分享你今天的所见所想", topic)
	})
}

func TestClearCache(t *testing.T) {
	provider := &fakeProvider{fallback: "是"}
	behavior := NewBehaviorService(newFakeLLM(provider), rand.New(rand.NewSource(1)))
	agent := newTestAgent(10000)

	behavior.ShouldPost(context.Background(), agent)
	require.Equal(t, 1, behavior.CacheSize())

	behavior.ClearCache()
	assert.Equal(t, 0, behavior.CacheSize())

	// 清空后重新询问
	behavior.ShouldPost(context.Background(), agent)
	assert.Equal(t, 2, provider.callCount())
}
