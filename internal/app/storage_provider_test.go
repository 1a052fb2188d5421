package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/agentic-studio/internal/platform/gcp"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

func testConfig(mode, host string) Config {
	var cfg Config
	cfg.Storage.Mode = mode
	cfg.Storage.EmulatorHost = host
	cfg.Storage.Bucket = "studio-videos"
	cfg.Storage.Prefix = "videos"
	return cfg
}

func TestClassifyStorageProviderBootstrapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want StorageProviderBootstrapErrorCode
	}{
		{"invalid mode", &gcp.ConfigError{Code: gcp.ConfigErrorInvalidMode}, StorageProviderBootstrapErrorInvalidMode},
		{"missing host", &gcp.ConfigError{Code: gcp.ConfigErrorMissingEmulatorHost}, StorageProviderBootstrapErrorMissingEmulatorHost},
		{"invalid url", &gcp.ConfigError{Code: gcp.ConfigErrorInvalidURL}, StorageProviderBootstrapErrorInvalidURL},
		{"connect", errors.New("dial tcp: connection refused"), StorageProviderBootstrapErrorConnectFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyStorageProviderBootstrapError(gcp.StorageConfig{Mode: gcp.StorageModeGCS}, tc.err)
			var got *StorageProviderBootstrapError
			if !errors.As(err, &got) {
				t.Fatalf("expected StorageProviderBootstrapError, got=%T", err)
			}
			if got.Code != tc.want {
				t.Fatalf("code: want=%q got=%q", tc.want, got.Code)
			}
		})
	}
}

func TestResolveVideoStoreDisabledWithoutBucket(t *testing.T) {
	var cfg Config
	store, err := resolveVideoStore(context.Background(), logger.Nop(), cfg)
	if err != nil || store != nil {
		t.Fatalf("resolveVideoStore: want nil,nil got=%v,%v", store, err)
	}
}

func TestResolveVideoStorePassesEmulatorConfig(t *testing.T) {
	orig := newVideoStore
	t.Cleanup(func() { newVideoStore = orig })

	var captured gcp.StorageConfig
	expected := &gcp.VideoStore{}
	newVideoStore = func(_ context.Context, _ *logger.Logger, cfg gcp.StorageConfig) (*gcp.VideoStore, error) {
		captured = cfg
		return expected, nil
	}

	got, err := resolveVideoStore(context.Background(), logger.Nop(), testConfig(string(gcp.StorageModeGCSEmulator), "http://fake-gcs:4443"))
	if err != nil {
		t.Fatalf("resolveVideoStore: %v", err)
	}
	if got != expected {
		t.Fatalf("store: expected stub instance")
	}
	if captured.Mode != gcp.StorageModeGCSEmulator || captured.EmulatorHost != "http://fake-gcs:4443" {
		t.Fatalf("captured: got=%+v", captured)
	}
	if captured.Bucket != "studio-videos" || captured.KeyPrefix != "videos" {
		t.Fatalf("bucket/prefix: got=%q/%q", captured.Bucket, captured.KeyPrefix)
	}
}

func TestResolveVideoStoreRealConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want StorageProviderBootstrapErrorCode
	}{
		{"invalid mode", testConfig("s3", ""), StorageProviderBootstrapErrorInvalidMode},
		{"missing emulator host", testConfig(string(gcp.StorageModeGCSEmulator), ""), StorageProviderBootstrapErrorMissingEmulatorHost},
		{"invalid emulator host", testConfig(string(gcp.StorageModeGCSEmulator), "not-a-url"), StorageProviderBootstrapErrorInvalidURL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resolveVideoStore(context.Background(), logger.Nop(), tc.cfg)
			var got *StorageProviderBootstrapError
			if !errors.As(err, &got) {
				t.Fatalf("expected StorageProviderBootstrapError, got=%T (%v)", err, err)
			}
			if got.Code != tc.want {
				t.Fatalf("code: want=%q got=%q", tc.want, got.Code)
			}
		})
	}
}
