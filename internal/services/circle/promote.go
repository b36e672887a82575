package circle

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jayeworks/circledesk/internal/models"
	"github.com/jayeworks/circledesk/internal/services"
	"github.com/jayeworks/circledesk/pkg/logger"
	"gorm.io/gorm"
)

const importedMarker = "*Imported from Circle*"

// titleMaxLen bounds titles derived from message bodies.
const titleMaxLen = 120

// ErrAlreadyPromoted is returned by PromoteMessage when the message was
// already mapped to an issue; the existing issue id is still returned.
var ErrAlreadyPromoted = errors.New("message already promoted")

// PromoteMessage turns a circle message into a tracked issue. Promotion is
// one-shot: the mapping is claimed with a conditional update so concurrent
// promotions of the same message produce exactly one issue, and later
// attempts get the existing issue id with ErrAlreadyPromoted.
func (s *Service) PromoteMessage(messageID, actor string, automatic bool, source string) (*models.Issue, error) {
	var msg models.CircleMessage
	if err := s.db.First(&msg, "message_id = ?", messageID).Error; err != nil {
		return nil, err
	}
	if msg.MappedToIssueID != nil {
		issue, err := s.mappedIssue(&msg)
		if err != nil {
			return nil, err
		}
		return issue, ErrAlreadyPromoted
	}

	issue := buildIssueFromMessage(&msg)

	var claimed bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(issue).Error; err != nil {
			return err
		}
		for i, tag := range issue.Tags {
			t := models.IssueTag{IssueID: issue.ID, Tag: tag, Position: i}
			if err := tx.Create(&t).Error; err != nil {
				return err
			}
		}

		res := tx.Model(&models.CircleMessage{}).
			Where("id = ? AND mapped_to_issue_id IS NULL", msg.ID).
			Updates(map[string]interface{}{
				"mapped_to_issue_id": issue.ID,
				"last_updated_at":    time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race; roll the new issue back.
			return ErrAlreadyPromoted
		}
		claimed = true
		return nil
	})
	if errors.Is(err, ErrAlreadyPromoted) {
		if err := s.db.First(&msg, msg.ID).Error; err != nil {
			return nil, err
		}
		issue, ierr := s.mappedIssue(&msg)
		if ierr != nil {
			return nil, ierr
		}
		return issue, ErrAlreadyPromoted
	}
	if err != nil {
		return nil, services.NewPersistenceError("promote message", err)
	}

	if claimed {
		s.recordImport(&msg, issue.ID, actor, automatic, source)
	}
	return issue, nil
}

// mappedIssue loads the issue a message is already mapped to.
func (s *Service) mappedIssue(msg *models.CircleMessage) (*models.Issue, error) {
	if msg.MappedToIssueID == nil {
		return nil, gorm.ErrRecordNotFound
	}
	var issue models.Issue
	if err := s.db.First(&issue, "id = ?", *msg.MappedToIssueID).Error; err != nil {
		return nil, err
	}
	return &issue, nil
}

// buildIssueFromMessage shapes the issue a promoted message becomes: the
// triage title when present, otherwise a title derived from the body, the
// body plus an import marker and source link as description, and the
// segment picked by the keyword classifier.
func buildIssueFromMessage(msg *models.CircleMessage) *models.Issue {
	title := strings.TrimSpace(msg.IssueTitle)
	if title == "" {
		title = deriveTitle(msg.Body)
	}

	var desc strings.Builder
	desc.WriteString(msg.Body)
	desc.WriteString("\n\n")
	desc.WriteString(importedMarker)
	if msg.MessageURL != "" {
		desc.WriteString("\n")
		desc.WriteString(msg.MessageURL)
	}

	return &models.Issue{
		ID:          uuid.New().String(),
		Title:       title,
		Description: desc.String(),
		Segment:     services.ClassifySegment(title, msg.Body),
		Status:      models.StatusInProgress,
		SubmittedBy: msg.Sender,
		Tags:        []string{"circle", "imported"},
	}
}

// deriveTitle takes the first line of the body, truncated to a sane length.
func deriveTitle(body string) string {
	line := strings.TrimSpace(body)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	if line == "" {
		return "Imported message"
	}
	if utf8.RuneCountInString(line) > titleMaxLen {
		runes := []rune(line)
		line = string(runes[:titleMaxLen-3]) + "..."
	}
	return line
}

// recordImport writes the audit row for a promotion. Failure is logged but
// never fails the promotion itself.
func (s *Service) recordImport(msg *models.CircleMessage, issueID, actor string, automatic bool, source string) {
	entry := models.IssueImportLog{
		CircleMessageID: msg.ID,
		IssueID:         issueID,
		ImportedBy:      actor,
		ImportSource:    source,
		ImportNotes:     fmt.Sprintf("message %s from %s", msg.MessageID, msg.SpaceName),
		IsAutomatic:     automatic,
		ImportedAt:      time.Now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		logger.Warn().Err(err).Str("message_id", msg.MessageID).Msg("failed to record import log")
	}
}
