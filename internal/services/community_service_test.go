// internal/services/community_service_test.go
package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/PersonaTownMCP/internal/storage"
)

func TestCommunityPostsAndComments(t *testing.T) {
	svc := NewCommunityService(newTestStorage(t))

	postID := svc.AddPost("a1", "林文清", "今天图书馆来了一批新书。")
	require.NotEmpty(t, postID)

	t.Run("获取帖子", func(t *testing.T) {
		post := svc.GetPost(postID)
		require.NotNil(t, post)
		assert.Equal(t, "a1", post.AuthorID)
		assert.Equal(t, "今天图书馆来了一批新书。", post.Content)
	})

	t.Run("评论挂在帖子下", func(t *testing.T) {
		c1 := svc.AddComment(postID, "a2", "赵快", "有没有美食类的！")
		c2 := svc.AddComment(postID, "a3", "苏曼", "有游戏设计的书吗？")
		require.NotEmpty(t, c1)
		require.NotEmpty(t, c2)

		comments := svc.GetPostComments(postID)
		require.Len(t, comments, 2)
		// 时间升序，先评论的在前
		assert.Equal(t, c1, comments[0].CommentID)
		assert.Equal(t, c2, comments[1].CommentID)
	})

	t.Run("评论不存在的帖子静默失败", func(t *testing.T) {
		before := svc.CommentCount()
		id := svc.AddComment("不存在的帖子", "a2", "赵快", "喂？")

		assert.Empty(t, id)
		assert.Equal(t, before, svc.CommentCount())
	})
}

func TestCommunityPostOrdering(t *testing.T) {
	svc := NewCommunityService(newTestStorage(t))

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, svc.AddPost("a1", "林文清", fmt.Sprintf("第%d条帖子", i)))
	}

	t.Run("最新在前", func(t *testing.T) {
		posts := svc.GetAllPosts(0, "")
		require.Len(t, posts, 5)
		// 同一时刻创建时顺序按时间戳排，至少保证集合完整
		seen := make(map[string]bool)
		for _, p := range posts {
			seen[p.PostID] = true
		}
		for _, id := range ids {
			assert.True(t, seen[id])
		}
	})

	t.Run("limit截断", func(t *testing.T) {
		assert.Len(t, svc.GetAllPosts(2, ""), 2)
	})

	t.Run("按作者过滤", func(t *testing.T) {
		svc.AddPost("a2", "赵快", "刚送完一单！")

		assert.Len(t, svc.GetAllPosts(0, "a2"), 1)
		assert.Len(t, svc.GetAllPosts(0, "a1"), 5)
		assert.Empty(t, svc.GetAllPosts(0, "没有的人"))
	})
}

func TestCommunityLikes(t *testing.T) {
	svc := NewCommunityService(newTestStorage(t))

	postID := svc.AddPost("a1", "林文清", "点赞测试")
	commentID := svc.AddComment(postID, "a2", "赵快", "先赞为敬")

	assert.Equal(t, 1, svc.LikePost(postID))
	assert.Equal(t, 2, svc.LikePost(postID))
	assert.Equal(t, 1, svc.LikeComment(commentID))

	t.Run("目标不存在返回-1", func(t *testing.T) {
		assert.Equal(t, -1, svc.LikePost("没有这个帖子"))
		assert.Equal(t, -1, svc.LikeComment("没有这条评论"))
	})
}

func TestCommunityPersistence(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFileStorage(dir)
	require.NoError(t, err)

	svc := NewCommunityService(fs)
	postID := svc.AddPost("a1", "林文清", "这条帖子要活过重启")
	svc.AddComment(postID, "a2", "赵快", "评论也要")
	svc.LikePost(postID)

	// 用同一目录重新加载
	fs2, err := storage.NewFileStorage(dir)
	require.NoError(t, err)
	reloaded := NewCommunityService(fs2)

	post := reloaded.GetPost(postID)
	require.NotNil(t, post)
	assert.Equal(t, "这条帖子要活过重启", post.Content)
	assert.Equal(t, 1, post.Likes)
	assert.Len(t, reloaded.GetPostComments(postID), 1)
}
