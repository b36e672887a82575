package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Segment is the coarse category an issue is classified into.
type Segment string

const (
	SegmentAuth Segment = "auth"
	SegmentCode Segment = "code"
	SegmentTool Segment = "tool"
	SegmentMisc Segment = "misc"
)

// Segments lists all valid segment values.
var Segments = []Segment{SegmentAuth, SegmentCode, SegmentTool, SegmentMisc}

// Valid reports whether s is one of the known segment values.
func (s Segment) Valid() bool {
	switch s {
	case SegmentAuth, SegmentCode, SegmentTool, SegmentMisc:
		return true
	}
	return false
}

// Label returns the display label for a segment.
func (s Segment) Label() string {
	switch s {
	case SegmentAuth:
		return "Authentication"
	case SegmentCode:
		return "Code"
	case SegmentTool:
		return "Tooling"
	case SegmentMisc:
		return "Miscellaneous"
	}
	return string(s)
}

// IssueStatus is the workflow state of an issue. The status set is flat:
// any status may move to any other status.
type IssueStatus string

const (
	StatusWaitingForHelp IssueStatus = "waiting_for_help"
	StatusInProgress     IssueStatus = "in_progress"
	StatusResolved       IssueStatus = "resolved"
	StatusBlocked        IssueStatus = "blocked"
	StatusArchived       IssueStatus = "archived"
)

// IssueStatuses lists all valid status values.
var IssueStatuses = []IssueStatus{
	StatusWaitingForHelp, StatusInProgress, StatusResolved, StatusBlocked, StatusArchived,
}

// Valid reports whether s is one of the known status values.
func (s IssueStatus) Valid() bool {
	switch s {
	case StatusWaitingForHelp, StatusInProgress, StatusResolved, StatusBlocked, StatusArchived:
		return true
	}
	return false
}

// Label returns the display label for a status.
func (s IssueStatus) Label() string {
	switch s {
	case StatusWaitingForHelp:
		return "Waiting for Help"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	case StatusBlocked:
		return "Blocked"
	case StatusArchived:
		return "Archived"
	}
	return string(s)
}

// Issue represents a tracked community issue.
type Issue struct {
	ID                string      `gorm:"primaryKey;size:36" json:"id"`
	Seq               uint        `gorm:"autoIncrement;uniqueIndex" json:"seq"`
	Title             string      `gorm:"size:500;not null" json:"title"`
	Description       string      `gorm:"type:text;not null" json:"description"`
	Segment           Segment     `gorm:"size:20;index;not null" json:"segment"`
	Status            IssueStatus `gorm:"size:30;index;not null;default:waiting_for_help" json:"status"`
	SubmittedBy       string      `gorm:"size:200;not null" json:"submitted_by"`
	AssignedTo        *string     `gorm:"size:200" json:"assigned_to"`
	ReadyForDelivery  bool        `gorm:"default:false" json:"ready_for_delivery"`
	AffectedUserName  string      `gorm:"size:200" json:"affected_user_name,omitempty"`
	AffectedUserEmail string      `gorm:"size:320" json:"affected_user_email,omitempty"`
	IsTest            bool        `gorm:"index;default:false" json:"is_test"`
	ResolvedBy        *string     `gorm:"size:200" json:"resolved_by"`
	ResolvedAt        *time.Time  `json:"resolved_at"`
	ArchivedAt        *time.Time  `json:"archived_at"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`

	// Tags is the ordered tag list, stored in issue_tags and loaded by the
	// issue service. Not a database column.
	Tags []string `gorm:"-" json:"tags"`
}

func (Issue) TableName() string { return "issues" }

// BeforeCreate assigns a UUID primary key when none is set.
func (i *Issue) BeforeCreate(_ *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// IssueTag is one tag of an issue. Position preserves tag ordering.
type IssueTag struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	IssueID  string `gorm:"size:36;index;not null" json:"issue_id"`
	Tag      string `gorm:"size:100;not null" json:"tag"`
	Position int    `gorm:"not null" json:"position"`
}

func (IssueTag) TableName() string { return "issue_tags" }

// IssueStatusLog is one append-only audit entry per status transition.
type IssueStatusLog struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	IssueID   string      `gorm:"size:36;index;not null" json:"issue_id"`
	OldStatus IssueStatus `gorm:"size:30" json:"old_status"`
	NewStatus IssueStatus `gorm:"size:30;not null" json:"new_status"`
	ChangedBy string      `gorm:"size:200;not null" json:"changed_by"`
	CreatedAt time.Time   `gorm:"index" json:"created_at"`
}

func (IssueStatusLog) TableName() string { return "issue_status_logs" }
