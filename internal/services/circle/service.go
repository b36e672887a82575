package circle

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/jayeworks/circledesk/internal/models"
	"github.com/jayeworks/circledesk/internal/services"
	"github.com/jayeworks/circledesk/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service owns the canonical circle_messages rows: normalization, upsert,
// reply appends and promotion into tracked issues.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// mutableColumns are overwritten when a known message_id is redelivered.
// imported_at and mapped_to_issue_id survive redelivery.
var mutableColumns = []string{
	"type", "chat_thread_id", "parent_id", "chat_room_uuid", "space_id", "space_name",
	"sender", "parent_sender", "sent_at", "edited_at", "body", "message_url",
	"has_replies", "replies_count", "is_issue", "issue_title", "issue_type",
	"issue_reasoning", "parent_message_json", "replies_json",
	"issue_details_json", "raw_json", "last_updated_at",
}

// UpsertMessage inserts or updates the canonical row keyed by message_id.
// Redelivery of the same message_id updates the existing row and bumps
// last_updated_at; the operation is idempotent under at-least-once delivery.
// If the conflict-clause path fails, a read-then-write fallback re-derives
// the same end state.
func (s *Service) UpsertMessage(record *models.CircleMessage) (*models.CircleMessage, error) {
	now := time.Now()
	record.ImportedAt = now
	record.LastUpdatedAt = now

	insert := *record
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns(mutableColumns),
	}).Create(&insert).Error
	if err != nil {
		logger.Warn().Err(err).Str("message_id", record.MessageID).Msg("upsert conflict path failed, falling back")
		if fbErr := s.upsertFallback(record, now); fbErr != nil {
			return nil, services.NewNormalizationError(fbErr, []byte(record.RawJSON))
		}
	}

	var stored models.CircleMessage
	if err := s.db.First(&stored, "message_id = ?", record.MessageID).Error; err != nil {
		return nil, services.NewPersistenceError("reload message", err)
	}

	s.cacheSpace(&stored)
	return &stored, nil
}

// upsertFallback is the direct read-then-write path used when the database
// rejects the ON CONFLICT form.
func (s *Service) upsertFallback(record *models.CircleMessage, now time.Time) error {
	var existing models.CircleMessage
	err := s.db.First(&existing, "message_id = ?", record.MessageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fresh := *record
		fresh.ImportedAt = now
		fresh.LastUpdatedAt = now
		return s.db.Create(&fresh).Error
	}
	if err != nil {
		return err
	}

	patch := map[string]interface{}{
		"type":                record.Type,
		"chat_thread_id":      record.ChatThreadID,
		"parent_id":           record.ParentID,
		"chat_room_uuid":      record.ChatRoomUUID,
		"space_id":            record.SpaceID,
		"space_name":          record.SpaceName,
		"sender":              record.Sender,
		"parent_sender":       record.ParentSender,
		"sent_at":             record.SentAt,
		"edited_at":           record.EditedAt,
		"body":                record.Body,
		"message_url":         record.MessageURL,
		"has_replies":         record.HasReplies,
		"replies_count":       record.RepliesCount,
		"is_issue":            record.IsIssue,
		"issue_title":         record.IssueTitle,
		"issue_type":          record.IssueType,
		"issue_reasoning":     record.IssueReasoning,
		"parent_message_json": record.ParentMessageJSON,
		"replies_json":        record.RepliesJSON,
		"issue_details_json":  record.IssueDetailsJSON,
		"raw_json":            record.RawJSON,
		"last_updated_at":     now,
	}
	return s.db.Model(&models.CircleMessage{}).Where("message_id = ?", record.MessageID).Updates(patch).Error
}

// cacheSpace records space metadata seen on inbound messages. Best-effort:
// a failure here never fails the import.
func (s *Service) cacheSpace(msg *models.CircleMessage) {
	if msg.SpaceName == "" || msg.SpaceName == unknownSentinel {
		return
	}
	space := models.CircleSpace{
		SpaceID:      msg.SpaceID,
		SpaceName:    msg.SpaceName,
		ChatRoomUUID: msg.ChatRoomUUID,
	}
	if err := s.db.Where("space_name = ?", msg.SpaceName).FirstOrCreate(&space).Error; err != nil {
		logger.Warn().Err(err).Str("space", msg.SpaceName).Msg("failed to cache circle space")
	}
}

// AddReply appends one reply to the thread rooted at threadID. Returns false
// without changes when a reply with the same identifying key already exists,
// so duplicate deliveries of the same reply cannot double-increment the
// count.
func (s *Service) AddReply(threadID string, replyJSON json.RawMessage) (bool, error) {
	var msg models.CircleMessage
	err := s.db.Where("chat_thread_id = ?", threadID).Or("message_id = ?", threadID).First(&msg).Error
	if err != nil {
		return false, err
	}

	var reply Reply
	if err := json.Unmarshal(replyJSON, &reply); err != nil {
		return false, services.NewNormalizationError(err, replyJSON)
	}

	var replies []Reply
	if msg.RepliesJSON != "" {
		if err := json.Unmarshal([]byte(msg.RepliesJSON), &replies); err != nil {
			return false, services.NewNormalizationError(err, []byte(msg.RepliesJSON))
		}
	}

	key := reply.Key()
	for _, existing := range replies {
		if existing.Key() == key {
			return false, nil
		}
	}

	reply.ReplyIndex = len(replies) + 1
	if reply.MessageID == "" {
		reply.MessageID = synthesizeReplyID(msg.MessageID, reply.ReplyIndex)
	}
	replies = append(replies, reply)

	data, err := json.Marshal(replies)
	if err != nil {
		return false, services.NewNormalizationError(err, replyJSON)
	}

	patch := map[string]interface{}{
		"replies_json":    string(data),
		"replies_count":   len(replies),
		"has_replies":     true,
		"last_updated_at": time.Now(),
	}
	if err := s.db.Model(&models.CircleMessage{}).Where("id = ?", msg.ID).Updates(patch).Error; err != nil {
		return false, services.NewPersistenceError("append reply", err)
	}
	return true, nil
}

type MessageListRequest struct {
	OnlyIssues bool `form:"only_issues"`
	Unmapped   bool `form:"unmapped"`
	Limit      int  `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ListMessages returns imported messages, newest import first.
func (s *Service) ListMessages(req *MessageListRequest) ([]models.CircleMessage, error) {
	if req.Limit == 0 {
		req.Limit = 50
	}

	query := s.db.Model(&models.CircleMessage{})
	if req.OnlyIssues {
		query = query.Where("is_issue = ?", true)
	}
	if req.Unmapped {
		query = query.Where("mapped_to_issue_id IS NULL")
	}

	var messages []models.CircleMessage
	if err := query.Order("imported_at DESC").Limit(req.Limit).Find(&messages).Error; err != nil {
		return nil, services.NewPersistenceError("list messages", err)
	}
	return messages, nil
}

// GetByMessageID looks a message up by its source id.
func (s *Service) GetByMessageID(messageID string) (*models.CircleMessage, error) {
	var msg models.CircleMessage
	if err := s.db.First(&msg, "message_id = ?", messageID).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}
