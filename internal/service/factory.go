package service

import (
	"log/slog"
	"net/http"

	"basegraph.app/crmrelay/core/config"
	"basegraph.app/crmrelay/internal/mapper"
	"basegraph.app/crmrelay/internal/queue"
	"basegraph.app/crmrelay/internal/service/issue_tracker"
	"basegraph.app/crmrelay/internal/storage"
)

type ServicesConfig struct {
	Config    config.Config
	Publisher queue.Publisher
	Logger    *slog.Logger

	// Optional overrides, used by tests. Defaults are built from Config.
	TrackerHTTPClient  *http.Client
	StorageHTTPClient  *http.Client
	DownloadHTTPClient *http.Client
}

type Services struct {
	cfg   config.Config
	relay RelayService
}

func NewServices(sc ServicesConfig) *Services {
	cfg := sc.Config
	logger := sc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := issue_tracker.NewClient(cfg.Tracker, sc.TrackerHTTPClient)
	tracker := issue_tracker.NewLinearIssueTrackerService(client, cfg.Tracker.TeamID)

	store := storage.NewS3ObjectStore(cfg.Storage, sc.StorageHTTPClient)

	mirror := NewAttachmentMirror(store, AttachmentMirrorConfig{
		DownloadTimeout: cfg.Attachment.DownloadTimeout,
		MaxBytes:        cfg.Attachment.MaxBytes,
		UniqueKeys:      cfg.Storage.UniqueKeys,
	}, sc.DownloadHTTPClient)

	relay := NewRelayService(RelayConfig{
		Tracker:     cfg.Tracker,
		Storage:     cfg.Storage,
		Concurrency: cfg.Attachment.Concurrency,
	}, mapper.NewBitrixEventMapper(), tracker, mirror, sc.Publisher, logger)

	return &Services{
		cfg:   cfg,
		relay: relay,
	}
}

func (s *Services) Relay() RelayService {
	return s.relay
}

func (s *Services) Config() config.Config {
	return s.cfg
}
