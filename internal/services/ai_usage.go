package services

import (
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"gorm.io/gorm"
)

// AIUsageService stores and aggregates generation call records.
type AIUsageService struct {
	db *gorm.DB
}

func NewAIUsageService(db *gorm.DB) *AIUsageService {
	return &AIUsageService{db: db}
}

// Record saves a usage entry in the background.
func (s *AIUsageService) Record(entry *models.AIUsageLog) {
	go func() {
		if err := s.db.Create(entry).Error; err != nil {
			logger.Module("ai").Warn().Err(err).Msg("failed to record AI usage")
		}
	}()
}

type UsageFilter struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	ProjectID uint   `form:"project_id"`
}

func (f *UsageFilter) apply(q *gorm.DB) *gorm.DB {
	if f.StartDate != "" {
		q = q.Where("created_at >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		q = q.Where("created_at <= ?", f.EndDate+" 23:59:59")
	}
	if f.ProjectID > 0 {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	return q
}

type UsageStats struct {
	TotalCalls   int64   `json:"total_calls"`
	SuccessCount int64   `json:"success_count"`
	FailureCount int64   `json:"failure_count"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	PromptChars  int64   `json:"prompt_chars"`
	ReplyChars   int64   `json:"reply_chars"`
}

// GetStats returns totals for the filtered window.
func (s *AIUsageService) GetStats(filter *UsageFilter) (*UsageStats, error) {
	var stats UsageStats
	err := filter.apply(s.db.Model(&models.AIUsageLog{})).Select(
		"COUNT(*) as total_calls, " +
			"COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) as success_count, " +
			"COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0) as failure_count, " +
			"COALESCE(AVG(latency_ms), 0) as avg_latency_ms, " +
			"COALESCE(SUM(prompt_chars), 0) as prompt_chars, " +
			"COALESCE(SUM(reply_chars), 0) as reply_chars",
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	if stats.TotalCalls > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalCalls) * 100
	}
	return &stats, nil
}

type OperationUsage struct {
	Operation    string  `json:"operation"`
	Provider     string  `json:"provider"`
	Calls        int64   `json:"calls"`
	Failures     int64   `json:"failures"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// GetBreakdown groups calls by operation and provider.
func (s *AIUsageService) GetBreakdown(filter *UsageFilter) ([]OperationUsage, error) {
	var rows []OperationUsage
	err := filter.apply(s.db.Model(&models.AIUsageLog{})).Select(
		"operation, provider, " +
			"COUNT(*) as calls, " +
			"COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0) as failures, " +
			"COALESCE(AVG(latency_ms), 0) as avg_latency_ms",
	).Group("operation, provider").Order("calls DESC").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []OperationUsage{}
	}
	return rows, nil
}
