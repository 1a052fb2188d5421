package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/observability"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

// VideoStore publishes rendered videos to a bucket and hands back a public
// locator.
type VideoStore struct {
	log    *logger.Logger
	client *storage.Client
	cfg    StorageConfig
	now    func() time.Time
}

func NewVideoStore(ctx context.Context, log *logger.Logger, cfg StorageConfig) (*VideoStore, error) {
	if log == nil {
		log = logger.Nop()
	}
	cfg, err := ResolveStorageConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing VIDEO_GCS_BUCKET_NAME")
	}
	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	slog := log.With("service", "VideoStore")
	slog.Info(
		"Object storage initialized",
		"mode", cfg.Mode,
		"mode_source", cfg.ModeSource(),
		"emulator_host", cfg.EmulatorHost,
		"public_base_url", cfg.PublicBaseURL,
		"bucket", cfg.Bucket,
	)
	return &VideoStore{log: slog, client: client, cfg: cfg, now: time.Now}, nil
}

func newStorageClient(ctx context.Context, cfg StorageConfig) (*storage.Client, error) {
	switch cfg.Mode {
	case StorageModeGCS:
		opts := ClientOptions(cfg.Credentials)
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case StorageModeGCSEmulator:
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ConfigError{Code: ConfigErrorInvalidMode, Field: "OBJECT_STORAGE_MODE", Value: string(cfg.Mode)}
	}
}

// Publish uploads the artifact and returns its public URL.
func (s *VideoStore) Publish(ctx context.Context, artifact domain.VideoArtifact) (string, error) {
	key := s.objectKey(artifact.Filename)
	start := time.Now()
	err := s.upload(ctx, key, artifact.MimeType, bytes.NewReader(artifact.Data))
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.Current().ObserveProviderRequest("gcs", "upload", status, time.Since(start))
	if err != nil {
		return "", err
	}
	u := s.PublicURL(key)
	s.log.Info("video published", "key", key, "bytes", artifact.Size())
	return u, nil
}

func (s *VideoStore) upload(ctx context.Context, key, mime string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = mime
	if w.ContentType == "" {
		w.ContentType = contentTypeForKey(key)
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (s *VideoStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.client.Bucket(s.cfg.Bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, s.cfg.Bucket, err)
	}
	return nil
}

func (s *VideoStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// objectKey namespaces by UTC day: <prefix>/2006/01/02/<filename>.
func (s *VideoStore) objectKey(filename string) string {
	name := path.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		name = fmt.Sprintf("video-%d.mp4", s.now().UnixMilli())
	}
	day := s.now().UTC().Format("2006/01/02")
	if s.cfg.KeyPrefix == "" {
		return day + "/" + name
	}
	return s.cfg.KeyPrefix + "/" + day + "/" + name
}

func (s *VideoStore) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if s.cfg.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cfg.CDNDomain, key)
	}
	if s.cfg.IsEmulatorMode() {
		base := s.cfg.PublicBaseURL
		if base == "" {
			base = s.cfg.EmulatorHost
		}
		if base != "" {
			return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(s.cfg.Bucket), url.PathEscape(key))
		}
	}
	if s.cfg.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.cfg.PublicBaseURL, s.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.cfg.Bucket, key)
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".mp4"), strings.HasSuffix(s, ".m4v"):
		return "video/mp4"
	case strings.HasSuffix(s, ".webm"):
		return "video/webm"
	case strings.HasSuffix(s, ".mov"):
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}
