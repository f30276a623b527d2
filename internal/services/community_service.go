// internal/services/community_service.go
package services

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Corphon/PersonaTownMCP/internal/models"
	"github.com/Corphon/PersonaTownMCP/internal/storage"
	"github.com/Corphon/PersonaTownMCP/internal/utils"
)

const communityFile = "community_data.json"

// CommunityService 管理全部帖子与评论，并在每次变更后整体快照到磁盘
type CommunityService struct {
	storage *storage.FileStorage
	clock   func() time.Time

	mutex        sync.RWMutex
	posts        map[string]*models.Post
	comments     map[string]*models.Comment
	postComments map[string][]string // post_id -> 有序的comment_id列表
}

// NewCommunityService 创建社区服务并加载已有数据。
// 快照缺失按空社区处理；快照损坏记录日志后同样按空社区处理。
func NewCommunityService(fs *storage.FileStorage) *CommunityService {
	s := &CommunityService{
		storage:      fs,
		clock:        time.Now,
		posts:        make(map[string]*models.Post),
		comments:     make(map[string]*models.Comment),
		postComments: make(map[string][]string),
	}

	var data models.CommunityData
	if fs.FileExists("", communityFile) {
		if err := fs.LoadJSONFile("", communityFile, &data); err != nil {
			utils.GetLogger().Errorf("加载社区数据失败，按空社区处理: %v", err)
		} else {
			if data.Posts != nil {
				s.posts = data.Posts
			}
			if data.Comments != nil {
				s.comments = data.Comments
			}
			if data.PostComments != nil {
				s.postComments = data.PostComments
			}
		}
	}

	return s
}

// AddPost 向社区添加新帖子，返回帖子ID
func (s *CommunityService) AddPost(authorID, authorName, content string) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	post := &models.Post{
		PostID:     uuid.NewString(),
		AuthorID:   authorID,
		AuthorName: authorName,
		Content:    content,
		Timestamp:  s.clock(),
	}

	s.posts[post.PostID] = post
	s.postComments[post.PostID] = []string{}

	s.saveLocked()
	return post.PostID
}

// AddComment 为帖子添加评论。目标帖子不存在时静默失败，返回空ID。
func (s *CommunityService) AddComment(postID, authorID, authorName, content string) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.posts[postID]; !exists {
		return ""
	}

	comment := &models.Comment{
		CommentID:  uuid.NewString(),
		PostID:     postID,
		AuthorID:   authorID,
		AuthorName: authorName,
		Content:    content,
		Timestamp:  s.clock(),
	}

	s.comments[comment.CommentID] = comment
	s.postComments[postID] = append(s.postComments[postID], comment.CommentID)

	s.saveLocked()
	return comment.CommentID
}

// GetPost 通过ID获取帖子
func (s *CommunityService) GetPost(postID string) *models.Post {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	post, exists := s.posts[postID]
	if !exists {
		return nil
	}
	postCopy := *post
	return &postCopy
}

// GetAllPosts 获取帖子列表，按时间倒序（最新在前）。
// limit<=0表示不限制；authorID非空时只返回该作者的帖子。
func (s *CommunityService) GetAllPosts(limit int, authorID string) []*models.Post {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	posts := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if authorID != "" && p.AuthorID != authorID {
			continue
		}
		postCopy := *p
		posts = append(posts, &postCopy)
	}

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].Timestamp.After(posts[j].Timestamp)
	})

	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts
}

// GetPostComments 获取帖子的全部评论，按时间升序（最早在前）
func (s *CommunityService) GetPostComments(postID string) []*models.Comment {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	commentIDs, exists := s.postComments[postID]
	if !exists {
		return nil
	}

	comments := make([]*models.Comment, 0, len(commentIDs))
	for _, cid := range commentIDs {
		if c, ok := s.comments[cid]; ok {
			commentCopy := *c
			comments = append(comments, &commentCopy)
		}
	}

	sort.Slice(comments, func(i, j int) bool {
		return comments[i].Timestamp.Before(comments[j].Timestamp)
	})

	return comments
}

// LikePost 为帖子点赞，返回点赞后的计数；帖子不存在返回-1
func (s *CommunityService) LikePost(postID string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	post, exists := s.posts[postID]
	if !exists {
		return -1
	}

	post.Likes++
	s.saveLocked()
	return post.Likes
}

// LikeComment 为评论点赞，返回点赞后的计数；评论不存在返回-1
func (s *CommunityService) LikeComment(commentID string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	comment, exists := s.comments[commentID]
	if !exists {
		return -1
	}

	comment.Likes++
	s.saveLocked()
	return comment.Likes
}

// PostCount 返回帖子总数
func (s *CommunityService) PostCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.posts)
}

// CommentCount 返回评论总数
func (s *CommunityService) CommentCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.comments)
}

// Save 将社区数据整体快照到磁盘
func (s *CommunityService) Save() {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	s.saveLocked()
}

// saveLocked 执行快照（调用方需持锁）
func (s *CommunityService) saveLocked() {
	data := models.CommunityData{
		Posts:        s.posts,
		Comments:     s.comments,
		PostComments: s.postComments,
	}

	if err := s.storage.SaveJSONFile("", communityFile, data); err != nil {
		utils.GetLogger().Errorf("保存社区数据失败: %v", err)
	}
}
