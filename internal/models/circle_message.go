package models

import "time"

// MessageType distinguishes thread root messages from standalone ones.
type MessageType string

const (
	MessageTypeThread MessageType = "thread"
	MessageTypeSingle MessageType = "single"
)

// CircleMessage is the canonical representation of a community-platform
// message delivered by the sync webhook. MessageID is the natural key:
// redelivery of the same message updates the existing row.
//
// Source message ids arrive either as numbers (current n8n workflow) or as
// "msg_*" strings (older payloads), so they are stored as strings.
type CircleMessage struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	MessageID    string      `gorm:"size:100;uniqueIndex;not null" json:"message_id"`
	Type         MessageType `gorm:"size:20;not null" json:"type"`
	ChatThreadID string      `gorm:"size:100;index" json:"chat_thread_id"`
	ParentID     *string     `gorm:"size:100" json:"parent_id"`
	ChatRoomUUID string      `gorm:"size:100" json:"chat_room_uuid"`
	SpaceID      string      `gorm:"size:100" json:"space_id"`
	SpaceName    string      `gorm:"size:200" json:"space_name"`
	Sender       string      `gorm:"size:200" json:"sender"`
	ParentSender string      `gorm:"size:200" json:"parent_sender"`
	SentAt       string      `gorm:"size:64" json:"sent_at"`
	EditedAt     *string     `gorm:"size:64" json:"edited_at"`
	Body         string      `gorm:"type:text" json:"body"`
	MessageURL   string      `gorm:"size:1000" json:"message_url"`
	HasReplies   bool        `json:"has_replies"`
	RepliesCount int         `json:"replies_count"`

	IsIssue        bool   `gorm:"index" json:"is_issue"`
	IssueTitle     string `gorm:"size:500" json:"issue_title"`
	IssueType      string `gorm:"size:100" json:"issue_type"`
	IssueReasoning string `gorm:"type:text" json:"issue_reasoning"`

	// Raw JSON blobs from the inbound payload, kept for inspection and for
	// re-deriving canonical fields.
	ParentMessageJSON string `gorm:"type:text" json:"parent_message_json,omitempty"`
	RepliesJSON       string `gorm:"type:text" json:"replies_json,omitempty"`
	IssueDetailsJSON  string `gorm:"type:text" json:"issue_details_json,omitempty"`
	RawJSON           string `gorm:"type:text" json:"raw_json,omitempty"`

	// MappedToIssueID links a promoted message to its issue. Set at most
	// once; the first promotion wins.
	MappedToIssueID *string `gorm:"size:36;index" json:"mapped_to_issue_id"`

	ImportedAt    time.Time `gorm:"index" json:"imported_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

func (CircleMessage) TableName() string { return "circle_messages" }

// IssueImportLog records one promotion of a circle message into an issue.
type IssueImportLog struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CircleMessageID uint      `gorm:"index;not null" json:"circle_message_id"`
	IssueID         string    `gorm:"size:36;index;not null" json:"issue_id"`
	ImportedBy      string    `gorm:"size:200;not null" json:"imported_by"`
	ImportSource    string    `gorm:"size:100" json:"import_source"`
	ImportNotes     string    `gorm:"size:500" json:"import_notes"`
	IsAutomatic     bool      `json:"is_automatic"`
	ImportedAt      time.Time `json:"imported_at"`
}

func (IssueImportLog) TableName() string { return "issue_import_logs" }

// CircleSpace caches space metadata seen on inbound messages.
type CircleSpace struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SpaceID      string    `gorm:"size:100" json:"space_id"`
	SpaceName    string    `gorm:"size:200;uniqueIndex;not null" json:"space_name"`
	ChatRoomUUID string    `gorm:"size:100" json:"chat_room_uuid"`
	CreatedAt    time.Time `json:"created_at"`
}

func (CircleSpace) TableName() string { return "circle_spaces" }
