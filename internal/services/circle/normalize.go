package circle

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jayeworks/circledesk/internal/models"
	"github.com/jayeworks/circledesk/internal/services"
)

const unknownSentinel = "Unknown"

// Normalize parses one raw inbound message into the unified shape. Legacy
// flat payloads are transformed first; unrecognized shapes fail with a
// NormalizationError that preserves the raw payload.
func Normalize(raw json.RawMessage) (*UnifiedMessage, error) {
	switch DetectShape(raw) {
	case ShapeUnified:
		var msg UnifiedMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, services.NewNormalizationError(err, raw)
		}
		applyUnifiedDefaults(&msg)
		if msg.ParentMessage.MessageID == "" {
			return nil, services.NewNormalizationError(errors.New("unified payload has no message_id"), raw)
		}
		return &msg, nil
	case ShapeLegacy:
		var lm legacyMessage
		if err := json.Unmarshal(raw, &lm); err != nil {
			return nil, services.NewNormalizationError(err, raw)
		}
		msg, err := transformLegacy(&lm)
		if err != nil {
			return nil, services.NewNormalizationError(err, raw)
		}
		return msg, nil
	default:
		return nil, services.NewNormalizationError(errors.New("unrecognized payload shape"), raw)
	}
}

// applyUnifiedDefaults fills gaps a sloppy workflow may leave in an already
// unified payload, using the same defaults as the legacy transform.
func applyUnifiedDefaults(msg *UnifiedMessage) {
	pm := &msg.ParentMessage
	if msg.Type == "" {
		msg.Type = inferType(pm.ChatThreadID.String(), pm.MessageID.String())
	}
	if pm.SpaceName == "" {
		pm.SpaceName = unknownSentinel
	}
	if pm.Sender.Name == "" && pm.ParentSender.Name == "" {
		pm.Sender.Name = unknownSentinel
	}
	for i := range msg.Replies {
		if msg.Replies[i].ReplyIndex == 0 {
			msg.Replies[i].ReplyIndex = i + 1
		}
		if msg.Replies[i].MessageID == "" {
			msg.Replies[i].MessageID = synthesizeReplyID(pm.MessageID.String(), i+1)
		}
	}
}

// transformLegacy maps a flat legacy object into the unified shape:
// a message is a thread iff it carries a chat thread id different from its
// own id; missing space and sender names fall back to the Unknown sentinel;
// replies get 1-based indices and synthesized ids where absent.
func transformLegacy(lm *legacyMessage) (*UnifiedMessage, error) {
	messageID := firstNonEmpty(lm.MessageID.String(), nestedMessageID(lm), lm.ID.String())
	if messageID == "" {
		return nil, errors.New("legacy payload has no message id")
	}

	threadID := firstNonEmpty(lm.ChatThreadID.String(), lm.ThreadID.String())
	msgType := inferType(threadID, messageID)

	// In thread payloads body carries the latest reply; parent_body is the
	// thread root, which is what ParentMessage holds.
	body := firstNonEmpty(lm.Body, lm.Content, lm.Text)
	if lm.ParentBody != nil && *lm.ParentBody != "" {
		body = *lm.ParentBody
	}
	sender := firstNonEmpty(lm.Sender.Name, lm.AuthorName)
	if sender == "" {
		sender = unknownSentinel
	}
	spaceName := lm.SpaceName
	if spaceName == "" {
		spaceName = unknownSentinel
	}

	msg := &UnifiedMessage{
		Type: msgType,
		ParentMessage: ParentMessage{
			MessageID:    FlexID(messageID),
			ChatThreadID: FlexID(threadID),
			ParentID:     lm.ParentID,
			ChatRoomUUID: lm.ChatRoomUUID,
			SpaceID:      lm.SpaceID,
			SpaceName:    spaceName,
			Sender:       FlexSender{Name: sender, Email: lm.Sender.Email},
			ParentSender: lm.ParentSender,
			CreatedAt:    lm.CreatedAt,
			EditedAt:     lm.EditedAt,
			Body:         body,
			Attachments:  lm.Attachments,
			MessageURL:   firstNonEmpty(lm.MessageURL, lm.Link),
			HasReplies:   len(lm.Replies) > 0,
			RepliesCount: len(lm.Replies),
		},
	}

	for i, lr := range lm.Replies {
		reply := Reply{
			ReplyIndex: i + 1,
			MessageID:  FlexID(firstNonEmpty(lr.MessageID.String(), lr.ID.String())),
			Sender:     lr.Sender,
			Body:       firstNonEmpty(lr.Body, lr.Content, lr.Text),
			CreatedAt:  lr.CreatedAt,
		}
		if reply.Sender.Name == "" {
			reply.Sender.Name = lr.AuthorName
		}
		if reply.MessageID == "" {
			reply.MessageID = synthesizeReplyID(messageID, i+1)
		}
		msg.Replies = append(msg.Replies, reply)
	}

	// Triage fields appear either flat or nested under message.content.
	if lm.IsIssue != nil {
		msg.IssueDetails.IsIssue = *lm.IsIssue
	}
	msg.IssueDetails.IssueTitle = lm.IssueTitle
	if lm.Message != nil {
		if lm.Message.Content.IsIssue {
			msg.IssueDetails.IsIssue = true
		}
		if msg.IssueDetails.IssueTitle == "" {
			msg.IssueDetails.IssueTitle = lm.Message.Content.IssueTitle
		}
	}

	return msg, nil
}

// ToRecord converts a unified message into the canonical database row,
// keeping the JSON blobs for later inspection.
func ToRecord(msg *UnifiedMessage, raw json.RawMessage) (*models.CircleMessage, error) {
	pm := msg.ParentMessage

	parentJSON, err := json.Marshal(pm)
	if err != nil {
		return nil, services.NewNormalizationError(err, raw)
	}
	repliesJSON, err := json.Marshal(msg.Replies)
	if err != nil {
		return nil, services.NewNormalizationError(err, raw)
	}
	if msg.Replies == nil {
		repliesJSON = []byte("[]")
	}
	detailsJSON, err := json.Marshal(msg.IssueDetails)
	if err != nil {
		return nil, services.NewNormalizationError(err, raw)
	}

	var parentID *string
	if pm.ParentID != "" {
		v := pm.ParentID.String()
		parentID = &v
	}

	repliesCount := pm.RepliesCount
	if len(msg.Replies) > repliesCount {
		repliesCount = len(msg.Replies)
	}

	record := &models.CircleMessage{
		MessageID:    pm.MessageID.String(),
		Type:         models.MessageType(msg.Type),
		ChatThreadID: pm.ChatThreadID.String(),
		ParentID:     parentID,
		ChatRoomUUID: pm.ChatRoomUUID,
		SpaceID:      pm.SpaceID,
		SpaceName:    pm.SpaceName,
		Sender:       pm.Sender.Name,
		ParentSender: pm.ParentSender.Name,
		SentAt:       pm.CreatedAt,
		EditedAt:     pm.EditedAt,
		Body:         pm.Body,
		MessageURL:   pm.MessageURL,
		HasReplies:   pm.HasReplies || len(msg.Replies) > 0,
		RepliesCount: repliesCount,

		IsIssue:        msg.IssueDetails.IsIssue,
		IssueTitle:     msg.IssueDetails.IssueTitle,
		IssueType:      msg.IssueDetails.Type,
		IssueReasoning: msg.IssueDetails.Reasoning,

		ParentMessageJSON: string(parentJSON),
		RepliesJSON:       string(repliesJSON),
		IssueDetailsJSON:  string(detailsJSON),
		RawJSON:           string(raw),
	}
	return record, nil
}

func nestedMessageID(lm *legacyMessage) string {
	if lm.Message != nil {
		return lm.Message.Content.MessageID.String()
	}
	return ""
}

func inferType(threadID, messageID string) string {
	if threadID != "" && threadID != messageID {
		return string(models.MessageTypeThread)
	}
	return string(models.MessageTypeSingle)
}

func synthesizeReplyID(messageID string, index int) FlexID {
	return FlexID(fmt.Sprintf("%s_reply_%d", messageID, index))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
