// internal/services/analyzer_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Corphon/PersonaTownMCP/internal/llm"
	"github.com/Corphon/PersonaTownMCP/internal/models"
	"github.com/Corphon/PersonaTownMCP/internal/utils"
)

// AnalyzerService 从角色视角分析帖子，输出兴趣评分与是否值得回复。
// 评分以启发式为底（基础5分，兴趣话题命中逐项加分），
// LLM给出相关性档位微调；LLM不可用时退化为纯启发式。
type AnalyzerService struct {
	llm *LLMService
}

// NewAnalyzerService 创建帖子分析服务
func NewAnalyzerService(llmService *LLMService) *AnalyzerService {
	return &AnalyzerService{llm: llmService}
}

// AnalyzePost 以agent的视角分析post
func (s *AnalyzerService) AnalyzePost(ctx context.Context, agent *Agent, post *models.Post) *models.PostAnalysis {
	score := 5

	matches := matchedTopics(agent.Profile.TopicsOfInterest, post.Content)
	score += len(matches)

	relevance, analysis := s.assessRelevance(ctx, agent, post)
	switch relevance {
	case "高":
		score += 3
	case "中":
		score++
	case "低":
		score -= 2
	}

	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}

	if analysis == "" {
		if len(matches) > 0 {
			analysis = fmt.Sprintf("帖子涉及%s感兴趣的话题: %s", agent.Profile.Name, strings.Join(matches, "、"))
		} else {
			analysis = fmt.Sprintf("帖子与%s的兴趣没有明显关联", agent.Profile.Name)
		}
	}

	return &models.PostAnalysis{
		PostID:        post.PostID,
		AgentID:       agent.Profile.ID,
		Analysis:      analysis,
		InterestLevel: score,
		ShouldReply:   score >= 6,
		AnalyzedAt:    time.Now(),
	}
}

// assessRelevance 请LLM判断帖子与角色的相关性档位（高/中/低）并给出一句分析。
// 调用失败时返回"中"档和空分析。
func (s *AnalyzerService) assessRelevance(ctx context.Context, agent *Agent, post *models.Post) (string, string) {
	prompt := fmt.Sprintf(
		"你是%s，%s。你的兴趣话题: %s。\n\n请判断下面这条帖子与你的相关性，第一行只回答\"高\"、\"中\"或\"低\"，第二行用一句话说明理由。\n\n帖子内容:\n%s",
		agent.Profile.Name, agent.Profile.Role,
		strings.Join(agent.Profile.TopicsOfInterest, "、"),
		utils.SummarizeText(post.Content, 300),
	)

	resp, err := s.llm.Generate(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: RoleSystem, Content: agent.Profile.SystemPrompt},
			{Role: RoleUser, Content: prompt},
		},
		MaxTokens:   100,
		Temperature: 0.3,
	})
	if err != nil {
		return "中", ""
	}

	lines := strings.SplitN(strings.TrimSpace(resp.Text), "\n", 2)
	relevance := strings.TrimSpace(lines[0])
	if relevance != "高" && relevance != "中" && relevance != "低" {
		// 回答不规范时从全文里找档位词
		switch {
		case strings.Contains(relevance, "高"):
			relevance = "高"
		case strings.Contains(relevance, "低"):
			relevance = "低"
		default:
			relevance = "中"
		}
	}

	analysis := ""
	if len(lines) > 1 {
		analysis = strings.TrimSpace(lines[1])
	}
	return relevance, analysis
}

// matchedTopics 返回帖子内容命中的兴趣话题（大小写不敏感）
func matchedTopics(topics []string, content string) []string {
	lower := strings.ToLower(content)
	var matched []string
	for _, t := range topics {
		if t == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(t)) {
			matched = append(matched, t)
		}
	}
	return matched
}
