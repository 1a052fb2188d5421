package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/agentic-studio/internal/platform/gcp"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

var newVideoStore = gcp.NewVideoStore

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidURL          StorageProviderBootstrapErrorCode = "invalid_url"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func storageConfig(cfg Config) gcp.StorageConfig {
	return gcp.StorageConfig{
		Mode:          gcp.StorageMode(cfg.Storage.Mode),
		EmulatorHost:  cfg.Storage.EmulatorHost,
		Bucket:        cfg.Storage.Bucket,
		CDNDomain:     cfg.Storage.CDNDomain,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		KeyPrefix:     cfg.Storage.Prefix,
		Credentials:   gcp.CredentialsFromEnv(),
	}
}

// resolveVideoStore returns nil without error when no bucket is configured;
// rendered videos are then inlined as data URIs.
func resolveVideoStore(ctx context.Context, log *logger.Logger, cfg Config) (*gcp.VideoStore, error) {
	storageCfg := storageConfig(cfg)
	if !storageCfg.Enabled() {
		log.Info("Object storage disabled; videos will be inlined as data URIs")
		return nil, nil
	}

	log.Info(
		"Selecting object storage provider",
		"mode", storageCfg.Mode,
		"mode_source", storageCfg.ModeSource(),
		"emulator_host", storageCfg.EmulatorHost,
		"bucket", storageCfg.Bucket,
	)

	store, err := newVideoStore(ctx, log, storageCfg)
	if err != nil {
		classified := classifyStorageProviderBootstrapError(storageCfg, err)
		log.Error(
			"Object storage provider bootstrap failed",
			"mode", storageCfg.Mode,
			"emulator_host", storageCfg.EmulatorHost,
			"error_code", storageProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}
	return store, nil
}

func classifyStorageProviderBootstrapError(storageCfg gcp.StorageConfig, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *gcp.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case gcp.ConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case gcp.ConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case gcp.ConfigErrorInvalidURL:
			code = StorageProviderBootstrapErrorInvalidURL
		}
	}
	return &StorageProviderBootstrapError{
		Code:         code,
		Mode:         string(storageCfg.Mode),
		EmulatorHost: storageCfg.EmulatorHost,
		Cause:        err,
	}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return StorageProviderBootstrapErrorConnectFailed
}
