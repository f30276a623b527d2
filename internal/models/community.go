// internal/models/community.go
package models

import "time"

// Post 表示社区中的一个帖子
type Post struct {
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Likes      int       `json:"likes"`
}

// Comment 表示帖子下的一条评论
type Comment struct {
	CommentID  string    `json:"comment_id"`
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Likes      int       `json:"likes"`
}

// CommunityData 是社区的持久化快照结构
type CommunityData struct {
	Posts        map[string]*Post    `json:"posts"`
	Comments     map[string]*Comment `json:"comments"`
	PostComments map[string][]string `json:"post_comments"` // post_id -> 有序的comment_id列表
}

// PostAnalysis 表示从某个角色视角对帖子的分析结果
type PostAnalysis struct {
	PostID        string    `json:"post_id"`
	AgentID       string    `json:"agent_id"`
	Analysis      string    `json:"analysis"`
	InterestLevel int       `json:"interest_level"` // 0-10
	ShouldReply   bool      `json:"should_reply"`
	AnalyzedAt    time.Time `json:"analyzed_at"`
}
