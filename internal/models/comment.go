package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is an append-only note on an issue. Comments are never updated;
// they are deleted only when their issue is purged.
type Comment struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	IssueID    string    `gorm:"size:36;index;not null" json:"issue_id"`
	AuthorName string    `gorm:"size:200;not null" json:"author_name"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Comment) TableName() string { return "comments" }

func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
