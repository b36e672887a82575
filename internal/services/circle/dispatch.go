package circle

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jayeworks/circledesk/pkg/logger"
)

// BatchResult summarizes one webhook delivery. Processed counts every item
// attempted, including failures; Errors keeps one human-readable entry per
// failed item so a partially bad batch is diagnosable without losing the
// good items.
type BatchResult struct {
	Processed   int      `json:"processed"`
	ImportedIDs []string `json:"imported_ids"`
	Errors      []string `json:"errors"`
}

// ProcessPayload ingests a webhook delivery, which is either a single
// message object or an array of them. Items are processed strictly in
// order; a failing item is recorded in the result and never aborts the
// rest of the batch.
func (s *Service) ProcessPayload(raw json.RawMessage, source, actor string) *BatchResult {
	result := &BatchResult{
		ImportedIDs: []string{},
		Errors:      []string{},
	}

	items, err := splitBatch(raw)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("invalid payload: %v", err))
		return result
	}

	for i, item := range items {
		result.Processed++
		messageID, err := s.processItem(item, source, actor)
		if err != nil {
			// 1-based so the error matches how operators count batch items.
			msg := fmt.Sprintf("item %d: %v", i+1, err)
			if messageID != "" {
				msg = fmt.Sprintf("item %d (message %s): %v", i+1, messageID, err)
			}
			result.Errors = append(result.Errors, msg)
			logger.Warn().Err(err).Int("item", i+1).Str("message_id", messageID).Str("source", source).Msg("webhook item failed")
			continue
		}
		result.ImportedIDs = append(result.ImportedIDs, messageID)
	}

	logger.Info().
		Int("processed", result.Processed).
		Int("imported", len(result.ImportedIDs)).
		Int("errors", len(result.Errors)).
		Str("source", source).
		Msg("webhook batch processed")
	return result
}

// processItem normalizes, stores and (when triage flagged it) promotes a
// single message. The returned message id is best effort for error context.
func (s *Service) processItem(raw json.RawMessage, source, actor string) (messageID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	msg, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	messageID = msg.ParentMessage.MessageID.String()

	record, err := ToRecord(msg, raw)
	if err != nil {
		return messageID, err
	}

	stored, err := s.UpsertMessage(record)
	if err != nil {
		return messageID, err
	}

	if stored.IsIssue && stored.MappedToIssueID == nil {
		if _, perr := s.PromoteMessage(stored.MessageID, actor, true, source); perr != nil && perr != ErrAlreadyPromoted {
			return messageID, fmt.Errorf("auto-promote: %w", perr)
		}
	}
	return messageID, nil
}

// splitBatch turns the raw delivery into individual message objects. An
// array fans out to its elements; anything else is a single-item batch.
func splitBatch(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	if trimmed[0] != '[' {
		return []json.RawMessage{raw}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}
