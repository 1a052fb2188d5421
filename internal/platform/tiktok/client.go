package tiktok

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/observability"
	"github.com/yungbote/agentic-studio/internal/pkg/httpx"
	"github.com/yungbote/agentic-studio/internal/platform/ctxutil"
	"github.com/yungbote/agentic-studio/internal/platform/envutil"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

const DefaultBaseURL = "https://open.tiktokapis.com"

type Config struct {
	AccessToken string
	BaseURL     string
	MaxRetries  int
}

func ConfigFromEnv() Config {
	return Config{
		AccessToken: envutil.String("TIKTOK_ACCESS_TOKEN", ""),
		BaseURL:     envutil.String("TIKTOK_API_BASE_URL", DefaultBaseURL),
		MaxRetries:  envutil.Int("TIKTOK_MAX_RETRIES", 2),
	}
}

// Uploader pushes a video to the creator's TikTok inbox: init, binary PUT,
// then publish.
type Uploader struct {
	log  *logger.Logger
	cfg  Config
	http *http.Client
}

func New(log *logger.Logger, cfg Config) (*Uploader, error) {
	if log == nil {
		log = logger.Nop()
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("TIKTOK_ACCESS_TOKEN not configured")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Uploader{
		log:  log.With("service", "TikTokUploader"),
		cfg:  cfg,
		http: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

type initRequest struct {
	MediaType string    `json:"media_type"`
	Video     videoInfo `json:"video"`
}

type videoInfo struct {
	SHA256 string `json:"sha256"`
	Size   int    `json:"size"`
}

type initResponse struct {
	Data struct {
		UploadURL string `json:"upload_url"`
		Video     struct {
			VideoID string `json:"video_id"`
		} `json:"video"`
	} `json:"data"`
}

type publishRequest struct {
	VideoID string `json:"video_id"`
	Text    string `json:"text"`
}

type publishResponse struct {
	Data struct {
		ShareURL string `json:"share_url"`
	} `json:"data"`
}

func (u *Uploader) Upload(ctx context.Context, req domain.UploadRequest) (domain.UploadOutcome, error) {
	sum := sha256.Sum256(req.Video)

	var init initResponse
	err := u.retrier().Do(ctx, func(ctx context.Context) error {
		return u.postJSON(ctx, "/v2/media/upload/", "init", initRequest{
			MediaType: "VIDEO",
			Video:     videoInfo{SHA256: hex.EncodeToString(sum[:]), Size: len(req.Video)},
		}, &init)
	})
	if err != nil {
		return domain.UploadOutcome{}, uploadErr("TikTok upload init failed", err)
	}
	uploadURL, videoID := init.Data.UploadURL, init.Data.Video.VideoID
	if uploadURL == "" || videoID == "" {
		return domain.UploadOutcome{}, &domain.UploadError{Target: domain.TargetTikTok, Message: "TikTok upload response missing upload URL"}
	}

	if err := u.putBinary(ctx, uploadURL, req); err != nil {
		return domain.UploadOutcome{}, uploadErr("TikTok binary upload failed", err)
	}

	var pub publishResponse
	err = u.postJSON(ctx, "/v2/post/publish/inbox/video/", "publish", publishRequest{
		VideoID: videoID,
		Text:    PublishText(req.Title, req.CallToAction, req.Keywords),
	}, &pub)
	if err != nil {
		return domain.UploadOutcome{}, uploadErr("TikTok publish failed", err)
	}
	u.log.Info("tiktok upload complete", "video_id", videoID)
	return domain.UploadOutcome{VideoID: videoID, ShareURL: pub.Data.ShareURL}, nil
}

// PublishText is "title\n\ncta\n\n#kw1 #kw2" with whitespace removed from
// each hashtag.
func PublishText(title, cta string, keywords []string) string {
	tags := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		tag := strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, kw)
		tags = append(tags, "#"+tag)
	}
	return title + "\n\n" + cta + "\n\n" + strings.Join(tags, " ")
}

func (u *Uploader) postJSON(ctx context.Context, path, op string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, u.cfg.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+u.cfg.AccessToken)
	resp, err := u.do(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := httpx.CheckResponse("tiktok "+op, resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (u *Uploader) putBinary(ctx context.Context, uploadURL string, r domain.UploadRequest) error {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPut, uploadURL, bytes.NewReader(r.Video))
	if err != nil {
		return err
	}
	mime := r.MimeType
	if mime == "" {
		mime = domain.MimeMP4
	}
	req.Header.Set("Content-Type", mime)
	req.ContentLength = int64(len(r.Video))
	resp, err := u.do(req, "put")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := httpx.CheckResponse("tiktok put", resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (u *Uploader) do(req *http.Request, op string) (*http.Response, error) {
	start := time.Now()
	resp, err := u.http.Do(req)
	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	observability.Current().ObserveProviderRequest("tiktok", op, status, time.Since(start))
	return resp, err
}

func (u *Uploader) retrier() httpx.Retrier {
	return httpx.Retrier{
		MaxRetries: u.cfg.MaxRetries,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			u.log.Warn("tiktok request retrying", "attempt", attempt, "wait", wait.String(), "error", err)
		},
	}
}

func uploadErr(msg string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	detail := err.Error()
	var se *httpx.StatusError
	if errors.As(err, &se) && strings.TrimSpace(se.Body) != "" {
		detail = strings.TrimSpace(se.Body)
	}
	return &domain.UploadError{Target: domain.TargetTikTok, Message: fmt.Sprintf("%s: %s", msg, detail), Err: err}
}
