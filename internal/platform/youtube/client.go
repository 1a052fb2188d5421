package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/observability"
	"github.com/yungbote/agentic-studio/internal/platform/envutil"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

// tokenExpirySkew refreshes the access token a minute before it expires.
const tokenExpirySkew = 60 * time.Second

const maxTitleRunes = 100

type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string

	// Endpoint and HTTPClient override the API host; used against fakes.
	Endpoint   string
	HTTPClient *http.Client
}

func ConfigFromEnv() Config {
	return Config{
		ClientID:     envutil.String("YOUTUBE_CLIENT_ID", ""),
		ClientSecret: envutil.String("YOUTUBE_CLIENT_SECRET", ""),
		RefreshToken: envutil.String("YOUTUBE_REFRESH_TOKEN", ""),
	}
}

func (c Config) Configured() bool {
	return c.HTTPClient != nil || (c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != "")
}

type Uploader struct {
	log *logger.Logger
	svc *yt.Service
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*Uploader, error) {
	if log == nil {
		log = logger.Nop()
	}
	if !cfg.Configured() {
		return nil, errors.New("YouTube OAuth credentials are not configured")
	}
	var opts []option.ClientOption
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	} else {
		oc := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{yt.YoutubeUploadScope},
		}
		ts := oauth2.ReuseTokenSourceWithExpiry(nil, oc.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken}), tokenExpirySkew)
		opts = append(opts, option.WithTokenSource(ts))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(cfg.Endpoint, "/")+"/"))
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Uploader{log: log.With("service", "YouTubeUploader"), svc: svc}, nil
}

func (u *Uploader) Upload(ctx context.Context, req domain.UploadRequest) (domain.UploadOutcome, error) {
	status := req.Visibility
	if status == "" {
		status = domain.VisibilityPrivate
	}
	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:                truncateRunes(req.Title, maxTitleRunes),
			Description:          req.Description,
			Tags:                 req.Keywords,
			DefaultLanguage:      req.Language,
			DefaultAudioLanguage: req.Language,
		},
		Status: &yt.VideoStatus{
			PrivacyStatus:           status,
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
	if req.PublishAt != nil && video.Status.PrivacyStatus != domain.VisibilityPublic {
		video.Status.PublishAt = req.PublishAt.UTC().Format(time.RFC3339)
	}
	mime := req.MimeType
	if mime == "" {
		mime = domain.MimeMP4
	}

	start := time.Now()
	got, err := u.svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(bytes.NewReader(req.Video), googleapi.ContentType(mime)).
		Context(ctx).
		Do()
	observability.Current().ObserveProviderRequest("youtube", "videos.insert", statusOf(err), time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return domain.UploadOutcome{}, ctx.Err()
		}
		return domain.UploadOutcome{}, &domain.UploadError{Target: domain.TargetYouTube, Message: "YouTube upload failed: " + errorMessage(err), Err: err}
	}
	if got == nil || got.Id == "" {
		return domain.UploadOutcome{}, &domain.UploadError{Target: domain.TargetYouTube, Message: "YouTube upload response missing video id"}
	}
	u.log.Info("youtube upload complete", "video_id", got.Id, "privacy", video.Status.PrivacyStatus)
	return domain.UploadOutcome{VideoID: got.Id, ShareURL: "https://youtu.be/" + got.Id}, nil
}

func errorMessage(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Message != "" {
			return gerr.Message
		}
		return fmt.Sprintf("status %d", gerr.Code)
	}
	return err.Error()
}

func statusOf(err error) string {
	if err == nil {
		return "200"
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fmt.Sprint(gerr.Code)
	}
	return "error"
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
