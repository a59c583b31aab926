// Package app wires configuration into the concrete source, storage, cache and
// service used by both binaries.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/cache"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/config"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/pipeline"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/repository"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/service"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/sheets"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/storage"
)

const (
	SourceSheets = "sheets"
	SourceDrive  = "drive"
	SourceObject = "object"
	SourceFile   = "file"
)

// NewStorage returns nil, nil when no bucket is configured.
func NewStorage(cfg config.StorageConfig) (storage.ObjectStorage, error) {
	if !cfg.Configured() {
		return nil, nil
	}
	return storage.NewMinioClient(storage.Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	})
}

// NewSource builds the snapshot source selected by cfg.Source.Kind.
func NewSource(ctx context.Context, cfg *config.Config, store storage.ObjectStorage) (sheets.Source, error) {
	src := cfg.Source
	switch src.Kind {
	case SourceFile:
		if src.WorkbookPath == "" {
			return nil, fmt.Errorf("%w: SOURCE_WORKBOOK_PATH is required for the file source", domain.ErrInvalidInput)
		}
		return sheets.FileSource(src.WorkbookPath), nil

	case SourceObject:
		if store == nil {
			return nil, fmt.Errorf("%w: object source needs STORAGE_ENDPOINT and STORAGE_BUCKET", domain.ErrInvalidInput)
		}
		return sheets.ObjectSource(store, src.ObjectKey), nil

	case SourceSheets:
		if src.SpreadsheetID == "" {
			return nil, fmt.Errorf("%w: SHEETS_SPREADSHEET_ID is required for the sheets source", domain.ErrInvalidInput)
		}
		creds, err := sheets.LoadCredentials(src.CredentialsJSON, src.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return sheets.NewSheetsReader(ctx, creds, src.SpreadsheetID)

	case SourceDrive:
		if src.DriveFileID == "" && src.DriveFolderID == "" {
			return nil, fmt.Errorf("%w: DRIVE_FILE_ID or DRIVE_FOLDER_ID is required for the drive source", domain.ErrInvalidInput)
		}
		creds, err := sheets.LoadCredentials(src.CredentialsJSON, src.CredentialsFile)
		if err != nil {
			return nil, err
		}
		exporter, err := sheets.NewDriveExporter(ctx, creds)
		if err != nil {
			return nil, err
		}
		return exporter.Source(src.DriveFileID, src.DriveFolderID), nil
	}
	return nil, fmt.Errorf("%w: unknown source kind %q", domain.ErrInvalidInput, src.Kind)
}

// NewSnapshotRepository wraps the loader for source with the configured timeout and
// an in-process memo.
func NewSnapshotRepository(cfg *config.Config, source sheets.Source) repository.SnapshotRepository {
	normalizer := sheets.NewNormalizer()
	normalizer.Location = cfg.Location()

	loader := repository.NewSnapshotLoader(source, cfg.Source.Tabs, normalizer)
	loader.Timeout = cfg.LoadTimeout()

	ttl := time.Duration(cfg.Source.SnapshotTTL) * time.Second
	if ttl <= 0 {
		return loader
	}
	return repository.NewMemoSnapshotRepository(loader, ttl)
}

// Components are the wired pieces a binary needs. Store is nil when no bucket is
// configured.
type Components struct {
	Service   *service.IntelligenceService
	Snapshots repository.SnapshotRepository
	Store     storage.ObjectStorage
}

// New assembles the service from cfg. A cache that cannot be reached is logged and
// replaced by the noop cache.
func New(ctx context.Context, cfg *config.Config) (*Components, error) {
	params, err := cfg.IntelligenceParams()
	if err != nil {
		return nil, err
	}

	store, err := NewStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	source, err := NewSource(ctx, cfg, store)
	if err != nil {
		return nil, err
	}

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("report cache unavailable, continuing without cache")
		reportCache = cache.NewNoopReportCache()
	}

	snapshots := NewSnapshotRepository(cfg, source)
	return &Components{
		Service:   service.NewIntelligenceService(snapshots, reportCache, params, cfg.ZoneOrder()),
		Snapshots: snapshots,
		Store:     store,
	}, nil
}

// NewRefresher builds the background refresh loop. On a data change it drops cached
// reports and, when a bucket is configured, archives the dashboard.
func NewRefresher(cfg *config.Config, c *Components) *pipeline.Refresher {
	hooks := []pipeline.Hook{{
		Name: "invalidate-cache",
		Run: func(ctx context.Context, _ *domain.Snapshot) error {
			return c.Service.InvalidateCache(ctx)
		},
	}}
	if c.Store != nil {
		hooks = append(hooks, pipeline.Hook{
			Name: "archive-dashboard",
			Run: func(ctx context.Context, snap *domain.Snapshot) error {
				dashboard, err := c.Service.DashboardOf(snap, service.Request{})
				if err != nil {
					return err
				}
				payload, err := json.Marshal(dashboard)
				if err != nil {
					return fmt.Errorf("encode dashboard: %w", err)
				}
				key := fmt.Sprintf("%sdashboard/%s.json", cfg.Storage.ReportPrefix, snap.ID)
				return c.Store.UploadObject(ctx, key, payload, "application/json")
			},
		})
	}
	return pipeline.NewRefresher(c.Snapshots, RefreshInterval(cfg), hooks...)
}

// RefreshInterval is the configured reload period; zero disables the loop.
func RefreshInterval(cfg *config.Config) time.Duration {
	if cfg.Source.RefreshInterval <= 0 {
		return 0
	}
	return time.Duration(cfg.Source.RefreshInterval) * time.Second
}
