package services

import (
	"github.com/jayeworks/circledesk/internal/models"
	"gorm.io/gorm"
)

type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

type SegmentCount struct {
	Segment models.Segment `json:"segment"`
	Label   string         `json:"label"`
	Count   int64          `json:"count"`
}

type StatusCount struct {
	Status models.IssueStatus `json:"status"`
	Label  string             `json:"label"`
	Count  int64              `json:"count"`
}

type IssueStats struct {
	Total            int64          `json:"total"`
	ReadyForDelivery int64          `json:"ready_for_delivery"`
	Imported         int64          `json:"imported"`
	BySegment        []SegmentCount `json:"by_segment"`
	ByStatus         []StatusCount  `json:"by_status"`
}

// GetIssueStats counts non-test issues per segment and per status. Every
// known segment and status appears in the result, zero counts included, so
// charts render a stable axis.
func (s *StatsService) GetIssueStats() (*IssueStats, error) {
	stats := &IssueStats{}

	base := func() *gorm.DB {
		return s.db.Model(&models.Issue{}).Where("is_test = ?", false)
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, NewPersistenceError("count issues", err)
	}
	if err := base().Where("ready_for_delivery = ?", true).Count(&stats.ReadyForDelivery).Error; err != nil {
		return nil, NewPersistenceError("count ready issues", err)
	}
	if err := s.db.Model(&models.IssueImportLog{}).Count(&stats.Imported).Error; err != nil {
		return nil, NewPersistenceError("count imports", err)
	}

	type row struct {
		Bucket string
		Count  int64
	}

	var segRows []row
	if err := base().Select("segment AS bucket, COUNT(*) AS count").Group("segment").Scan(&segRows).Error; err != nil {
		return nil, NewPersistenceError("count by segment", err)
	}
	segCounts := map[string]int64{}
	for _, r := range segRows {
		segCounts[r.Bucket] = r.Count
	}
	for _, seg := range models.Segments {
		stats.BySegment = append(stats.BySegment, SegmentCount{
			Segment: seg,
			Label:   seg.Label(),
			Count:   segCounts[string(seg)],
		})
	}

	var statusRows []row
	if err := base().Select("status AS bucket, COUNT(*) AS count").Group("status").Scan(&statusRows).Error; err != nil {
		return nil, NewPersistenceError("count by status", err)
	}
	statusCounts := map[string]int64{}
	for _, r := range statusRows {
		statusCounts[r.Bucket] = r.Count
	}
	for _, st := range models.IssueStatuses {
		stats.ByStatus = append(stats.ByStatus, StatusCount{
			Status: st,
			Label:  st.Label(),
			Count:  statusCounts[string(st)],
		})
	}

	return stats, nil
}
