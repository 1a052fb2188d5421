package localmedia

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/agentic-studio/internal/platform/ctxutil"
	"github.com/yungbote/agentic-studio/internal/platform/envutil"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

// Tools wraps the ffmpeg binary. Slates are drawn in-process and encoded
// into an mp4 slideshow.
type Tools struct {
	log *logger.Logger

	ffmpegPath string
	workRoot   string

	defaultTimeout time.Duration
}

func New(log *logger.Logger) *Tools {
	if log == nil {
		log = logger.Nop()
	}
	return &Tools{
		log:            log.With("service", "MediaTools"),
		ffmpegPath:     envutil.String("FFMPEG_PATH", "ffmpeg"),
		workRoot:       envutil.String("MEDIA_WORK_ROOT", filepath.Join(os.TempDir(), "agentic-studio-media")),
		defaultTimeout: envutil.Seconds("FFMPEG_TIMEOUT_SECONDS", 5*time.Minute),
	}
}

func (m *Tools) AssertReady(ctx context.Context) error {
	if _, err := exec.LookPath(m.ffmpegPath); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", m.ffmpegPath, err)
	}
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return fmt.Errorf("create workRoot: %w", err)
	}
	return nil
}

// Frame is one still held on screen for Seconds.
type Frame struct {
	Path    string
	Seconds int
}

// EncodeSlideshow concatenates frames into an H.264 mp4 at outPath.
func (m *Tools) EncodeSlideshow(ctx context.Context, frames []Frame, outPath string) error {
	ctx = ctxutil.Default(ctx)
	if len(frames) == 0 {
		return fmt.Errorf("no frames to encode")
	}
	if err := m.AssertReady(ctx); err != nil {
		return err
	}
	dir := filepath.Dir(outPath)
	listPath := filepath.Join(dir, "frames.txt")
	if err := os.WriteFile(listPath, []byte(concatList(frames)), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-vf", "fps=30,format=yuv420p",
		"-c:v", "libx264",
		"-movflags", "+faststart",
		outPath,
	}
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg encode failed: %w; out=%s", err, string(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("video output missing at %s", outPath)
	}
	return nil
}

// concatList builds an ffmpeg concat-demuxer script. The last file is listed
// twice so its duration is honoured.
func concatList(frames []Frame) string {
	var b strings.Builder
	for _, f := range frames {
		secs := f.Seconds
		if secs <= 0 {
			secs = 1
		}
		fmt.Fprintf(&b, "file '%s'\nduration %d\n", escapeConcatPath(f.Path), secs)
	}
	fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(frames[len(frames)-1].Path))
	return b.String()
}

func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}

// workDir creates a per-render scratch directory under workRoot.
func (m *Tools) workDir() (string, func(), error) {
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir workRoot: %w", err)
	}
	dir, err := os.MkdirTemp(m.workRoot, "render-")
	if err != nil {
		return "", func() {}, fmt.Errorf("mkdir render dir: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// ---------- helpers ----------

func globSorted(dir string, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if re.MatchString(strings.ToLower(e.Name())) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
