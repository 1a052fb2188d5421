package gcp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yungbote/agentic-studio/internal/platform/envutil"
)

type StorageMode string

const (
	StorageModeGCS         StorageMode = "gcs"
	StorageModeGCSEmulator StorageMode = "gcs_emulator"
)

// StorageConfig selects where rendered videos are published.
type StorageConfig struct {
	Mode          StorageMode
	EmulatorHost  string
	Bucket        string
	CDNDomain     string
	PublicBaseURL string
	KeyPrefix     string
	Credentials   string

	// CompatibilityFallback is set when the emulator was chosen only because
	// STORAGE_EMULATOR_HOST was present.
	CompatibilityFallback bool
}

func (cfg StorageConfig) IsEmulatorMode() bool { return cfg.Mode == StorageModeGCSEmulator }

func (cfg StorageConfig) Enabled() bool { return strings.TrimSpace(cfg.Bucket) != "" }

func (cfg StorageConfig) ModeSource() string {
	if cfg.CompatibilityFallback {
		return "compatibility_fallback"
	}
	return "explicit_or_default"
}

type ConfigErrorCode string

const (
	ConfigErrorInvalidMode         ConfigErrorCode = "invalid_mode"
	ConfigErrorMissingEmulatorHost ConfigErrorCode = "missing_emulator_host"
	ConfigErrorInvalidURL          ConfigErrorCode = "invalid_url"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Field string
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid object storage config"
	}
	switch e.Code {
	case ConfigErrorInvalidMode:
		return fmt.Sprintf("invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)", e.Value, StorageModeGCS, StorageModeGCSEmulator)
	case ConfigErrorMissingEmulatorHost:
		return fmt.Sprintf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST to be set", StorageModeGCSEmulator)
	case ConfigErrorInvalidURL:
		return fmt.Sprintf("invalid %s=%q; expected absolute URL like http://localhost:4443", e.Field, e.Value)
	default:
		return "invalid object storage config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ResolveStorageConfig normalizes a raw config. An empty mode picks the
// emulator when an emulator host is present, else real GCS.
func ResolveStorageConfig(raw StorageConfig) (StorageConfig, error) {
	cfg := raw
	cfg.EmulatorHost = strings.TrimRight(strings.TrimSpace(raw.EmulatorHost), "/")
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(raw.PublicBaseURL), "/")
	cfg.Bucket = strings.TrimSpace(raw.Bucket)
	cfg.KeyPrefix = strings.Trim(strings.TrimSpace(raw.KeyPrefix), "/")

	switch mode := StorageMode(strings.ToLower(strings.TrimSpace(string(raw.Mode)))); mode {
	case "":
		if cfg.EmulatorHost != "" {
			cfg.Mode = StorageModeGCSEmulator
			cfg.CompatibilityFallback = true
		} else {
			cfg.Mode = StorageModeGCS
		}
	case StorageModeGCS, StorageModeGCSEmulator:
		cfg.Mode = mode
	default:
		return cfg, &ConfigError{Code: ConfigErrorInvalidMode, Field: "OBJECT_STORAGE_MODE", Value: string(raw.Mode)}
	}
	return cfg, ValidateStorageConfig(cfg)
}

func ResolveStorageConfigFromEnv() (StorageConfig, error) {
	return ResolveStorageConfig(StorageConfig{
		Mode:          StorageMode(envutil.String("OBJECT_STORAGE_MODE", "")),
		EmulatorHost:  envutil.String("STORAGE_EMULATOR_HOST", ""),
		Bucket:        envutil.String("VIDEO_GCS_BUCKET_NAME", ""),
		CDNDomain:     envutil.String("VIDEO_CDN_DOMAIN", ""),
		PublicBaseURL: envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", ""),
		KeyPrefix:     envutil.String("VIDEO_GCS_PREFIX", "videos"),
		Credentials:   CredentialsFromEnv(),
	})
}

func ValidateStorageConfig(cfg StorageConfig) error {
	switch cfg.Mode {
	case StorageModeGCS, StorageModeGCSEmulator:
	default:
		return &ConfigError{Code: ConfigErrorInvalidMode, Field: "OBJECT_STORAGE_MODE", Value: string(cfg.Mode)}
	}
	if cfg.PublicBaseURL != "" {
		if err := checkAbsoluteURL("OBJECT_STORAGE_PUBLIC_BASE_URL", cfg.PublicBaseURL); err != nil {
			return err
		}
	}
	if !cfg.IsEmulatorMode() {
		return nil
	}
	if cfg.EmulatorHost == "" {
		return &ConfigError{Code: ConfigErrorMissingEmulatorHost, Field: "STORAGE_EMULATOR_HOST"}
	}
	return checkAbsoluteURL("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
}

func checkAbsoluteURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || strings.TrimSpace(u.Scheme) == "" || strings.TrimSpace(u.Host) == "" {
		return &ConfigError{Code: ConfigErrorInvalidURL, Field: field, Value: raw, Cause: err}
	}
	return nil
}
