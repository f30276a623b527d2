// internal/services/agent_service_test.go
package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/PersonaTownMCP/internal/errors"
	"github.com/Corphon/PersonaTownMCP/internal/models"
)

func TestCreatePost(t *testing.T) {
	town := newTestTown(t, testProfile("a1", "林文清"))
	ctx := context.Background()

	t.Run("不活跃且无话题时跳过", func(t *testing.T) {
		agent, err := town.agents.GetAgent("a1")
		require.NoError(t, err)
		agent.SetForceActive(false)

		// 把时钟拨到一个必然不活跃的小时：睡眠时间内也不在活跃集合里
		town.clock.SetHour(3)

		postID, err := town.agents.CreatePost(ctx, "a1", "", false)
		require.NoError(t, err)
		assert.Empty(t, postID)
		assert.Equal(t, 0, town.community.PostCount())
	})

	t.Run("显式话题绕过活跃检查", func(t *testing.T) {
		town.clock.SetHour(3)

		postID, err := town.agents.CreatePost(ctx, "a1", "聊聊今天的天气", false)
		require.NoError(t, err)
		require.NotEmpty(t, postID)

		post := town.community.GetPost(postID)
		require.NotNil(t, post)
		assert.Equal(t, "a1", post.AuthorID)
		assert.Equal(t, "林文清", post.AuthorName)
	})

	t.Run("发帖后更新记忆并记录帖子ID", func(t *testing.T) {
		agent, err := town.agents.GetAgent("a1")
		require.NoError(t, err)

		assert.Contains(t, agent.PostIDs(), town.community.GetAllPosts(1, "")[0].PostID)

		memories := agent.RecentMemories(1)
		require.Len(t, memories, 1)
		assert.Contains(t, memories[0], "我发布了一条帖子")
	})

	t.Run("发帖后状态落盘", func(t *testing.T) {
		state, err := town.memory.LoadAgentState("a1")
		require.NoError(t, err)
		require.NotNil(t, state)
		assert.NotEmpty(t, state.Posts)
	})

	t.Run("未知角色报错", func(t *testing.T) {
		_, err := town.agents.CreatePost(ctx, "不存在", "话题", false)
		assert.True(t, apperrors.IsNotFoundError(err))
	})
}

func TestCreatePostLLMFailure(t *testing.T) {
	town := newTestTown(t, testProfile("a1", "林文清"))
	town.provider.err = errors.New("上游不可用")
	town.forceAgentActive(t, "a1")

	postID, err := town.agents.CreatePost(context.Background(), "a1", "随便聊聊", false)

	// 生成失败表现为"这次没发"，不是错误
	require.NoError(t, err)
	assert.Empty(t, postID)
	assert.Equal(t, 0, town.community.PostCount())
}

func TestCommentOnPost(t *testing.T) {
	town := newTestTown(t, testProfile("a1", "林文清"), testProfile("a2", "赵快"))
	ctx := context.Background()

	town.forceAgentActive(t, "a1")
	town.forceAgentActive(t, "a2")

	postID, err := town.agents.CreatePost(ctx, "a1", "新书上架了", false)
	require.NoError(t, err)
	require.NotEmpty(t, postID)

	t.Run("正常评论", func(t *testing.T) {
		commentID, err := town.agents.CommentOnPost(ctx, "a2", postID, false)
		require.NoError(t, err)
		require.NotEmpty(t, commentID)

		comments := town.community.GetPostComments(postID)
		require.Len(t, comments, 1)
		assert.Equal(t, "a2", comments[0].AuthorID)
	})

	t.Run("评论计入互动账本", func(t *testing.T) {
		assert.Equal(t, 1, town.ledger.GetInteractionCount("a2", "a1"))
		assert.False(t, town.ledger.GetLastInteraction("a2", "a1").IsZero())
	})

	t.Run("评论不存在的帖子静默跳过", func(t *testing.T) {
		commentID, err := town.agents.CommentOnPost(ctx, "a2", "不存在的帖子", false)
		require.NoError(t, err)
		assert.Empty(t, commentID)
	})

	t.Run("HasCommentedOn", func(t *testing.T) {
		assert.True(t, town.agents.HasCommentedOn("a2", postID))
		assert.False(t, town.agents.HasCommentedOn("a1", postID))
	})
}

func TestProcessSleepLearning(t *testing.T) {
	town := newTestTown(t, testProfile("a1", "林文清"))
	ctx := context.Background()

	t.Run("清醒时不学习", func(t *testing.T) {
		town.clock.SetHour(12)

		insights, err := town.agents.ProcessSleepLearning(ctx, "a1", false)
		require.NoError(t, err)
		assert.Equal(t, 0, insights)
	})

	t.Run("灵感按行解析", func(t *testing.T) {
		town.provider.responses = []string{strings.Join([]string{
			"# 这是标题，应该跳过",
			"太短了",
			"",
			"安静的地方往往藏着最热闹的故事",
			"每天整理书架其实是在整理自己的思绪",
		}, "\n")}

		insights, err := town.agents.ProcessSleepLearning(ctx, "a1", true)
		require.NoError(t, err)
		assert.Equal(t, 2, insights)

		agent, err := town.agents.GetAgent("a1")
		require.NoError(t, err)

		memories := agent.RecentMemories(2)
		assert.Equal(t, "[灵感] 安静的地方往往藏着最热闹的故事", memories[0])
		assert.Equal(t, "[灵感] 每天整理书架其实是在整理自己的思绪", memories[1])
		assert.Len(t, agent.Inspirations(), 1)
	})

	t.Run("梦境提示词围绕兴趣话题展开", func(t *testing.T) {
		req := town.provider.lastRequest()
		require.Len(t, req.Messages, 2)

		// 要求先提炼经历要点，再围绕兴趣话题产生灵感
		assert.Contains(t, req.Messages[1].Content, "2-3条")
		assert.Contains(t, req.Messages[1].Content, "1-2条")
		assert.Contains(t, req.Messages[1].Content, "读书、园艺")
	})

	t.Run("LLM失败不产生灵感", func(t *testing.T) {
		town.provider.err = errors.New("超时")

		insights, err := town.agents.ProcessSleepLearning(ctx, "a1", true)
		require.NoError(t, err)
		assert.Equal(t, 0, insights)
	})
}

func TestSetForceActive(t *testing.T) {
	town := newTestTown(t, testProfile("a1", "林文清"))

	require.NoError(t, town.agents.SetForceActive("a1", true))

	agent, err := town.agents.GetAgent("a1")
	require.NoError(t, err)
	assert.True(t, agent.ForceActive())
	assert.Equal(t, models.AgentStatusForceActive, agent.Status(3))

	// 立即落盘
	state, err := town.memory.LoadAgentState("a1")
	require.NoError(t, err)
	require.NotNil(t, state)

	require.NoError(t, town.agents.SetForceActive("a1", false))
	assert.False(t, agent.ForceActive())
}

func TestAgentStateRestoredOnLoad(t *testing.T) {
	town := newTestTown(t, testProfile("a1", "林文清"))
	town.forceAgentActive(t, "a1")

	_, err := town.agents.CreatePost(context.Background(), "a1", "留个痕迹", false)
	require.NoError(t, err)

	// 用同一个记忆服务重新装配角色服务，状态应恢复
	town2 := NewAgentService(testConfig(), town.clock, newFakeLLM(town.provider),
		town.community, town.memory, town.monitor, town.ledger,
		newTestRand())
	require.NoError(t, town2.LoadAgents([]models.AgentProfile{testProfile("a1", "林文清")}))

	agent, err := town2.GetAgent("a1")
	require.NoError(t, err)
	assert.NotEmpty(t, agent.PostIDs())

	memories := agent.RecentMemories(1)
	require.Len(t, memories, 1)
	assert.Contains(t, memories[0], "我发布了一条帖子")
}
