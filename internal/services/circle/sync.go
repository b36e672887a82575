package circle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jayeworks/circledesk/internal/config"
	"github.com/jayeworks/circledesk/pkg/logger"
	"github.com/robfig/cron/v3"
)

// SyncActionSync asks the upstream workflow for the full message backlog;
// SyncActionTest only verifies the endpoint is reachable.
const (
	SyncActionSync = "sync"
	SyncActionTest = "test"
)

type syncRequest struct {
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
}

// SyncService triggers the upstream n8n workflow that pushes circle
// messages and optionally ingests its synchronous response.
type SyncService struct {
	circle        *Service
	cfg           *config.WebhookConfig
	client        *http.Client
	cronScheduler *cron.Cron
	entryID       cron.EntryID
}

func NewSyncService(circle *Service, cfg *config.WebhookConfig) *SyncService {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SyncService{
		circle: circle,
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Trigger POSTs a sync or test action to the configured workflow URL. When
// the workflow answers with a message payload it is ingested immediately;
// an empty or non-JSON body is treated as "sync started, messages will
// arrive via webhook" and returns an empty result.
func (s *SyncService) Trigger(action, actor string) (*BatchResult, error) {
	if s.cfg.URL == "" {
		return nil, fmt.Errorf("sync webhook url is not configured")
	}
	if action != SyncActionSync && action != SyncActionTest {
		return nil, fmt.Errorf("unknown sync action %q", action)
	}

	body, err := json.Marshal(syncRequest{
		Action:    action,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Post(s.cfg.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sync trigger failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read sync response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sync endpoint returned %d", resp.StatusCode)
	}

	logger.Info().Str("action", action).Int("response_bytes", len(respBody)).Msg("sync triggered")

	if action == SyncActionTest || !json.Valid(respBody) || len(bytes.TrimSpace(respBody)) == 0 {
		return &BatchResult{ImportedIDs: []string{}, Errors: []string{}}, nil
	}
	return s.circle.ProcessPayload(respBody, s.cfg.Source, actor), nil
}

// StartScheduler begins periodic sync triggers on the configured cron
// schedule. No-op when the schedule is empty.
func (s *SyncService) StartScheduler(schedule string) error {
	if schedule == "" {
		return nil
	}
	s.cronScheduler = cron.New()

	entryID, err := s.cronScheduler.AddFunc(schedule, func() {
		if _, err := s.Trigger(SyncActionSync, "System"); err != nil {
			logger.Error().Err(err).Msg("scheduled sync failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	s.entryID = entryID

	s.cronScheduler.Start()
	logger.Info().Str("schedule", schedule).Msg("sync scheduler started")
	return nil
}

func (s *SyncService) StopScheduler() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}
