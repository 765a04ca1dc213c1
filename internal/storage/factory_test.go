package storage

import (
	"context"
	"testing"

	"slidecast/internal/config"
	"slidecast/internal/pkg/logger"
)

func TestNewProviderLocalFS(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.LocalRoot = t.TempDir()

	sp, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if sp.Provider() != "localfs" {
		t.Errorf("provider = %s", sp.Provider())
	}

	host, err := NewVideoHost(context.Background(), cfg, sp, logger.Discard())
	if err != nil {
		t.Fatalf("NewVideoHost: %v", err)
	}
	if host.Name() != "storage:localfs" {
		t.Errorf("host = %s", host.Name())
	}
}

func TestNewVideoHostAPIVideo(t *testing.T) {
	cfg := config.Default()
	cfg.Host.Provider = config.HostAPIVideo
	cfg.Host.APIVideoKey = "k"

	host, err := NewVideoHost(context.Background(), cfg, nil, logger.Discard())
	if err != nil {
		t.Fatalf("NewVideoHost: %v", err)
	}
	if host.Name() != "apivideo" {
		t.Errorf("host = %s", host.Name())
	}
}

func TestUnknownProviders(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Provider = "ftp"
	if _, err := NewProvider(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown storage provider")
	}
	cfg = config.Default()
	cfg.Host.Provider = "vimeo"
	if _, err := NewVideoHost(context.Background(), cfg, nil, logger.Discard()); err == nil {
		t.Error("expected error for unknown video host")
	}
}

func TestDriveServiceNeedsCredentials(t *testing.T) {
	if _, err := NewDriveService(context.Background(), config.StorageConfig{}); err == nil {
		t.Error("expected error without credentials")
	}
}
