// internal/services/stats_service.go
package services

import (
	"sync"
	"time"

	"github.com/Corphon/PersonaTownMCP/internal/storage"
	"github.com/Corphon/PersonaTownMCP/internal/utils"
)

// UsageStats 表示LLM调用使用统计
type UsageStats struct {
	TodayRequests int            `json:"today_requests"`
	MonthlyTokens int            `json:"monthly_tokens"`
	DailyStats    map[string]int `json:"daily_stats"`
	MonthlyStats  map[string]int `json:"monthly_stats"`
	LastUpdated   time.Time      `json:"last_updated"`
}

// StatsService 提供LLM使用统计功能
type StatsService struct {
	storage   *storage.FileStorage
	statsFile string
	mutex     sync.Mutex
	cached    *UsageStats

	lastCheckDate  string
	lastCheckMonth string
}

// NewStatsService 创建统计服务实例
func NewStatsService(fs *storage.FileStorage) *StatsService {
	s := &StatsService{
		storage:   fs,
		statsFile: "usage_stats.json",
	}
	s.initStats()
	return s
}

func (s *StatsService) initStats() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var loaded UsageStats
	if err := s.storage.LoadJSONFile("stats", s.statsFile, &loaded); err == nil {
		s.cached = &loaded
		s.rolloverLocked()
		return
	}

	// 加载失败或文件不存在，从空统计开始
	s.cached = &UsageStats{
		DailyStats:   make(map[string]int),
		MonthlyStats: make(map[string]int),
		LastUpdated:  time.Now(),
	}
}

// rolloverLocked 跨天/跨月时重置计数（调用方需持锁）
func (s *StatsService) rolloverLocked() {
	today := time.Now().Format("2006-01-02")
	month := time.Now().Format("2006-01")

	if s.lastCheckDate != today {
		s.cached.TodayRequests = s.cached.DailyStats[today]
		s.lastCheckDate = today
	}
	if s.lastCheckMonth != month {
		s.cached.MonthlyTokens = s.cached.MonthlyStats[month]
		s.lastCheckMonth = month
	}
}

// RecordRequest 记录一次LLM请求与消耗的token数
func (s *StatsService) RecordRequest(tokens int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.rolloverLocked()

	today := time.Now().Format("2006-01-02")
	month := time.Now().Format("2006-01")

	s.cached.DailyStats[today]++
	s.cached.MonthlyStats[month] += tokens
	s.cached.TodayRequests = s.cached.DailyStats[today]
	s.cached.MonthlyTokens = s.cached.MonthlyStats[month]
	s.cached.LastUpdated = time.Now()

	if err := s.storage.SaveJSONFile("stats", s.statsFile, s.cached); err != nil {
		utils.GetLogger().Warnf("保存使用统计失败: %v", err)
	}
}

// GetStats 返回当前统计的副本
func (s *StatsService) GetStats() UsageStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.rolloverLocked()

	statsCopy := *s.cached
	return statsCopy
}
