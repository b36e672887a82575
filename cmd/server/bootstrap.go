package main

import (
	"context"
	"time"

	"github.com/jayeworks/circledesk/internal/config"
	"github.com/jayeworks/circledesk/internal/handlers"
	"github.com/jayeworks/circledesk/internal/models"
	"github.com/jayeworks/circledesk/internal/services"
	"github.com/jayeworks/circledesk/pkg/logger"
)

// appServices holds the initialized services and handlers the router needs.
type appServices struct {
	cfg               *config.Config
	healthHandler     *handlers.HealthHandler
	issueHandler      *handlers.IssueHandler
	commentHandler    *handlers.CommentHandler
	circleHandler     *handlers.CircleHandler
	webhookHandler    *handlers.WebhookHandler
	attachmentHandler *handlers.AttachmentHandler
}

// bootstrap initializes database, services and schedulers.
func bootstrap(cfg *config.Config) *appServices {
	config.GlobalConfig = cfg

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	db := models.GetDB()

	webhookHandler := handlers.NewWebhookHandler(db, &cfg.Webhook)

	if cfg.Sync.Enabled {
		if err := webhookHandler.SyncService().StartScheduler(cfg.Sync.Schedule); err != nil {
			logger.Warn().Err(err).Msg("Failed to start sync scheduler")
		}
	}

	var attachmentHandler *handlers.AttachmentHandler
	if cfg.Storage.Enabled {
		storage, err := services.NewStorageService(&cfg.Storage)
		if err != nil {
			logger.Fatalf("Failed to initialize object storage: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := storage.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to ensure attachment bucket")
		}
		attachmentHandler = handlers.NewAttachmentHandler(storage)
	}

	return &appServices{
		cfg:               cfg,
		healthHandler:     handlers.NewHealthHandler(db),
		issueHandler:      handlers.NewIssueHandler(db),
		commentHandler:    handlers.NewCommentHandler(db),
		circleHandler:     handlers.NewCircleHandler(db),
		webhookHandler:    webhookHandler,
		attachmentHandler: attachmentHandler,
	}
}

// shutdown stops background schedulers.
func (s *appServices) shutdown() {
	s.webhookHandler.SyncService().StopScheduler()
	logger.Info().Msg("Schedulers stopped")
}
