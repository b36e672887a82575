package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jayeworks/circledesk/internal/models"
	"gorm.io/gorm"
)

type IssueService struct {
	db *gorm.DB
}

func NewIssueService(db *gorm.DB) *IssueService {
	return &IssueService{db: db}
}

type IssueListRequest struct {
	Segment     string `form:"segment"`
	Status      string `form:"status"`
	Ready       *bool  `form:"ready"`
	IncludeTest bool   `form:"include_test"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type IssueListResponse struct {
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Items    []models.Issue `json:"items"`
}

type CreateIssueRequest struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Segment           string   `json:"segment"`
	Tags              []string `json:"tags"`
	SubmittedBy       string   `json:"submitted_by"`
	AssignedTo        *string  `json:"assigned_to"`
	AffectedUserName  string   `json:"affected_user_name"`
	AffectedUserEmail string   `json:"affected_user_email"`
	IsTest            bool     `json:"is_test"`
}

type UpdateIssueRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// List returns paginated issues, newest first. Test-data rows are hidden
// unless explicitly requested.
func (s *IssueService) List(req *IssueListRequest) (*IssueListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 50
	}

	var issues []models.Issue
	var total int64

	query := s.db.Model(&models.Issue{})
	if req.Segment != "" {
		query = query.Where("segment = ?", req.Segment)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Ready != nil {
		query = query.Where("ready_for_delivery = ?", *req.Ready)
	}
	if !req.IncludeTest {
		query = query.Where("is_test = ?", false)
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&issues).Error; err != nil {
		return nil, NewPersistenceError("list issues", err)
	}

	for i := range issues {
		tags, err := s.loadTags(issues[i].ID)
		if err != nil {
			return nil, err
		}
		issues[i].Tags = tags
	}

	return &IssueListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    issues,
	}, nil
}

// GetByID returns an issue with its tags loaded.
func (s *IssueService) GetByID(id string) (*models.Issue, error) {
	var issue models.Issue
	if err := s.db.First(&issue, "id = ?", id).Error; err != nil {
		return nil, err
	}
	tags, err := s.loadTags(issue.ID)
	if err != nil {
		return nil, err
	}
	issue.Tags = tags
	return &issue, nil
}

func (s *IssueService) validateCreate(req *CreateIssueRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return NewValidationError("title", "title is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return NewValidationError("description", "description is required")
	}
	if strings.TrimSpace(req.SubmittedBy) == "" {
		return NewValidationError("submitted_by", "submitter name is required")
	}
	if req.Segment == "" {
		return NewValidationError("segment", "category is required")
	}
	if !models.Segment(req.Segment).Valid() {
		return NewValidationError("segment", fmt.Sprintf("unknown category %q", req.Segment))
	}
	return nil
}

// Create validates and inserts a new issue with its tags. New issues start
// in waiting_for_help.
func (s *IssueService) Create(req *CreateIssueRequest) (*models.Issue, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	issue := models.Issue{
		Title:             req.Title,
		Description:       req.Description,
		Segment:           models.Segment(req.Segment),
		Status:            models.StatusWaitingForHelp,
		SubmittedBy:       req.SubmittedBy,
		AssignedTo:        req.AssignedTo,
		AffectedUserName:  req.AffectedUserName,
		AffectedUserEmail: req.AffectedUserEmail,
		IsTest:            req.IsTest,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&issue).Error; err != nil {
			return err
		}
		return saveTags(tx, issue.ID, req.Tags)
	})
	if err != nil {
		return nil, NewPersistenceError("create issue", err)
	}

	issue.Tags = req.Tags
	return &issue, nil
}

// applyStatusPatch mutates the lifecycle side-effect fields for a transition
// to newStatus. Resolution attribution is set on resolve and preserved on
// archive; moving to any active status clears both the resolution pair and
// the archive timestamp.
func applyStatusPatch(issue *models.Issue, newStatus models.IssueStatus, actor string, now time.Time) {
	if actor == "" {
		actor = "System"
	}

	switch newStatus {
	case models.StatusResolved:
		issue.ResolvedBy = &actor
		issue.ResolvedAt = &now
		issue.ArchivedAt = nil
	case models.StatusArchived:
		issue.ArchivedAt = &now
	default:
		issue.ResolvedBy = nil
		issue.ResolvedAt = nil
		issue.ArchivedAt = nil
	}

	issue.Status = newStatus
	issue.UpdatedAt = now
}

// UpdateStatus moves an issue to newStatus and appends a status log entry in
// the same transaction. The status set is flat: any transition is legal,
// including a repeat of the current status, which still logs and bumps
// updated_at.
func (s *IssueService) UpdateStatus(id string, newStatus models.IssueStatus, actor string) (*models.Issue, error) {
	if !newStatus.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("unknown status %q", newStatus))
	}

	var issue models.Issue
	if err := s.db.First(&issue, "id = ?", id).Error; err != nil {
		return nil, err
	}

	oldStatus := issue.Status
	now := time.Now()
	applyStatusPatch(&issue, newStatus, actor, now)

	logActor := actor
	if logActor == "" {
		logActor = "System"
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		patch := map[string]interface{}{
			"status":      issue.Status,
			"resolved_by": issue.ResolvedBy,
			"resolved_at": issue.ResolvedAt,
			"archived_at": issue.ArchivedAt,
			"updated_at":  issue.UpdatedAt,
		}
		if err := tx.Model(&models.Issue{}).Where("id = ?", id).Updates(patch).Error; err != nil {
			return err
		}
		return tx.Create(&models.IssueStatusLog{
			IssueID:   id,
			OldStatus: oldStatus,
			NewStatus: newStatus,
			ChangedBy: logActor,
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		return nil, NewPersistenceError("update issue status", err)
	}

	tags, err := s.loadTags(issue.ID)
	if err != nil {
		return nil, err
	}
	issue.Tags = tags
	return &issue, nil
}

// Update edits title, description and/or status. A status edit goes through
// the same lifecycle bookkeeping as UpdateStatus.
func (s *IssueService) Update(id string, req *UpdateIssueRequest, actor string) (*models.Issue, error) {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, NewValidationError("title", "title cannot be empty")
	}
	if req.Description != nil && strings.TrimSpace(*req.Description) == "" {
		return nil, NewValidationError("description", "description cannot be empty")
	}
	if req.Status != nil && !models.IssueStatus(*req.Status).Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("unknown status %q", *req.Status))
	}

	var issue models.Issue
	if err := s.db.First(&issue, "id = ?", id).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	patch := map[string]interface{}{"updated_at": now}
	if req.Title != nil {
		patch["title"] = *req.Title
		issue.Title = *req.Title
	}
	if req.Description != nil {
		patch["description"] = *req.Description
		issue.Description = *req.Description
	}

	var statusLog *models.IssueStatusLog
	if req.Status != nil {
		oldStatus := issue.Status
		applyStatusPatch(&issue, models.IssueStatus(*req.Status), actor, now)
		patch["status"] = issue.Status
		patch["resolved_by"] = issue.ResolvedBy
		patch["resolved_at"] = issue.ResolvedAt
		patch["archived_at"] = issue.ArchivedAt

		logActor := actor
		if logActor == "" {
			logActor = "System"
		}
		statusLog = &models.IssueStatusLog{
			IssueID:   id,
			OldStatus: oldStatus,
			NewStatus: issue.Status,
			ChangedBy: logActor,
			CreatedAt: now,
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Issue{}).Where("id = ?", id).Updates(patch).Error; err != nil {
			return err
		}
		if statusLog != nil {
			return tx.Create(statusLog).Error
		}
		return nil
	})
	if err != nil {
		return nil, NewPersistenceError("update issue", err)
	}

	issue.UpdatedAt = now
	tags, err := s.loadTags(issue.ID)
	if err != nil {
		return nil, err
	}
	issue.Tags = tags
	return &issue, nil
}

// SetReadyForDelivery flips the ready flag.
func (s *IssueService) SetReadyForDelivery(id string, ready bool) (*models.Issue, error) {
	res := s.db.Model(&models.Issue{}).Where("id = ?", id).Updates(map[string]interface{}{
		"ready_for_delivery": ready,
		"updated_at":         time.Now(),
	})
	if res.Error != nil {
		return nil, NewPersistenceError("set ready for delivery", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return s.GetByID(id)
}

// StatusLogs returns the append-only transition history for an issue,
// oldest first.
func (s *IssueService) StatusLogs(issueID string) ([]models.IssueStatusLog, error) {
	var logs []models.IssueStatusLog
	if err := s.db.Where("issue_id = ?", issueID).Order("created_at ASC, id ASC").Find(&logs).Error; err != nil {
		return nil, NewPersistenceError("list status logs", err)
	}
	return logs, nil
}

// PurgeResult reports the outcome of a test-data purge. Cleanup of child
// rows is best-effort: a failed sub-delete is recorded and the purge
// continues, matching the original deletion policy.
type PurgeResult struct {
	IssuesDeleted int64    `json:"issues_deleted"`
	Errors        []string `json:"errors"`
}

// PurgeTestData hard-deletes all issues flagged is_test, removing dependent
// rows first: comments, status logs, tags, import logs, then the issues
// themselves.
func (s *IssueService) PurgeTestData() (*PurgeResult, error) {
	var ids []string
	if err := s.db.Model(&models.Issue{}).Where("is_test = ?", true).Pluck("id", &ids).Error; err != nil {
		return nil, NewPersistenceError("find test issues", err)
	}

	result := &PurgeResult{Errors: []string{}}
	if len(ids) == 0 {
		return result, nil
	}

	cleanups := []struct {
		name  string
		model interface{}
	}{
		{"comments", &models.Comment{}},
		{"status logs", &models.IssueStatusLog{}},
		{"tags", &models.IssueTag{}},
		{"import logs", &models.IssueImportLog{}},
	}
	for _, c := range cleanups {
		if err := s.db.Where("issue_id IN ?", ids).Delete(c.model).Error; err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", c.name, err))
		}
	}

	res := s.db.Where("id IN ?", ids).Delete(&models.Issue{})
	if res.Error != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("delete issues: %v", res.Error))
		return result, NewPersistenceError("delete test issues", res.Error)
	}
	result.IssuesDeleted = res.RowsAffected
	return result, nil
}

func (s *IssueService) loadTags(issueID string) ([]string, error) {
	var rows []models.IssueTag
	if err := s.db.Where("issue_id = ?", issueID).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, NewPersistenceError("load tags", err)
	}
	tags := make([]string, 0, len(rows))
	for _, r := range rows {
		tags = append(tags, r.Tag)
	}
	return tags, nil
}

func saveTags(tx *gorm.DB, issueID string, tags []string) error {
	for i, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		row := models.IssueTag{IssueID: issueID, Tag: tag, Position: i}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// IsNotFound reports whether err is the database's record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
