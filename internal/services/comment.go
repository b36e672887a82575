package services

import (
	"strings"

	"github.com/jayeworks/circledesk/internal/models"
	"gorm.io/gorm"
)

type CommentService struct {
	db *gorm.DB
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

type CreateCommentRequest struct {
	AuthorName string `json:"author_name"`
	Body       string `json:"body"`
}

// ListByIssue returns an issue's comments, oldest first.
func (s *CommentService) ListByIssue(issueID string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := s.db.Where("issue_id = ?", issueID).Order("created_at ASC").Find(&comments).Error; err != nil {
		return nil, NewPersistenceError("list comments", err)
	}
	return comments, nil
}

// Add appends a comment to an issue. Comments are immutable once written.
func (s *CommentService) Add(issueID string, req *CreateCommentRequest) (*models.Comment, error) {
	if strings.TrimSpace(req.Body) == "" {
		return nil, NewValidationError("body", "comment body is required")
	}

	var count int64
	if err := s.db.Model(&models.Issue{}).Where("id = ?", issueID).Count(&count).Error; err != nil {
		return nil, NewPersistenceError("check issue", err)
	}
	if count == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	author := strings.TrimSpace(req.AuthorName)
	if author == "" {
		author = "Anonymous"
	}

	comment := models.Comment{
		IssueID:    issueID,
		AuthorName: author,
		Body:       req.Body,
	}
	if err := s.db.Create(&comment).Error; err != nil {
		return nil, NewPersistenceError("add comment", err)
	}
	return &comment, nil
}
