package localmedia

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/yungbote/agentic-studio/internal/domain"
)

const (
	slateWidth  = 1080
	slateHeight = 1920
)

var (
	slateBackground = color.NRGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xFF}
	slateAccent     = color.NRGBA{R: 0x63, G: 0x66, B: 0xF1, A: 0xFF}
	slateText       = color.NRGBA{R: 0xF9, G: 0xFA, B: 0xFB, A: 0xFF}
	slateMuted      = color.NRGBA{R: 0x9C, G: 0xA3, B: 0xAF, A: 0xFF}
)

type faces struct {
	caption   font.Face
	narration font.Face
	footer    font.Face
}

func loadFaces() (faces, error) {
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return faces{}, fmt.Errorf("failed to parse bold TTF: %w", err)
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return faces{}, fmt.Errorf("failed to parse regular TTF: %w", err)
	}
	opts := func(size float64) *truetype.Options {
		return &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone}
	}
	return faces{
		caption:   truetype.NewFace(bold, opts(84)),
		narration: truetype.NewFace(regular, opts(52)),
		footer:    truetype.NewFace(regular, opts(36)),
	}, nil
}

// drawSlate renders one vertical slate for a scene.
func drawSlate(f faces, sb domain.Storyboard, idx int) *gg.Context {
	sc := sb.Scenes[idx]
	w, h := float64(slateWidth), float64(slateHeight)
	margin := 96.0

	dc := gg.NewContext(slateWidth, slateHeight)
	dc.SetColor(slateBackground)
	dc.Clear()

	dc.SetColor(slateAccent)
	dc.DrawRectangle(margin, 220, 160, 12)
	dc.Fill()

	dc.SetFontFace(f.caption)
	dc.SetColor(slateText)
	dc.DrawStringWrapped(sc.Caption, margin, 300, 0, 0, w-2*margin, 1.25, gg.AlignLeft)

	if sc.Narration != "" && sc.Narration != sc.Caption {
		dc.SetFontFace(f.narration)
		dc.SetColor(slateMuted)
		dc.DrawStringWrapped(sc.Narration, margin, h/2, 0, 0, w-2*margin, 1.4, gg.AlignLeft)
	}

	dc.SetFontFace(f.footer)
	dc.SetColor(slateMuted)
	footer := fmt.Sprintf("%s  ·  %d/%d", sb.Title, idx+1, len(sb.Scenes))
	dc.DrawStringWrapped(footer, margin, h-200, 0, 0, w-2*margin, 1.2, gg.AlignLeft)
	return dc
}

// RenderStoryboard draws one slate per scene and encodes them, each held for
// its scene duration.
func (m *Tools) RenderStoryboard(ctx context.Context, sb domain.Storyboard) (domain.VideoArtifact, error) {
	if len(sb.Scenes) == 0 {
		return domain.VideoArtifact{}, &domain.RenderError{Message: "storyboard has no scenes"}
	}
	f, err := loadFaces()
	if err != nil {
		return domain.VideoArtifact{}, &domain.RenderError{Message: "load fonts", Err: err}
	}
	dir, cleanup, err := m.workDir()
	if err != nil {
		return domain.VideoArtifact{}, &domain.RenderError{Message: err.Error(), Err: err}
	}
	defer cleanup()

	for i := range sb.Scenes {
		if err := ctx.Err(); err != nil {
			return domain.VideoArtifact{}, err
		}
		path := filepath.Join(dir, fmt.Sprintf("slate_%03d.png", i))
		if err := drawSlate(f, sb, i).SavePNG(path); err != nil {
			return domain.VideoArtifact{}, &domain.RenderError{Message: "encode slate png", Err: err}
		}
	}
	paths, err := globSorted(dir, `^slate_\d+\.png$`)
	if err != nil || len(paths) != len(sb.Scenes) {
		return domain.VideoArtifact{}, &domain.RenderError{Message: fmt.Sprintf("expected %d slates, found %d", len(sb.Scenes), len(paths)), Err: err}
	}
	frames := make([]Frame, len(paths))
	for i, p := range paths {
		frames[i] = Frame{Path: p, Seconds: sb.Scenes[i].Duration}
	}

	out := filepath.Join(dir, "slideshow.mp4")
	if err := m.EncodeSlideshow(ctx, frames, out); err != nil {
		if ctx.Err() != nil {
			return domain.VideoArtifact{}, ctx.Err()
		}
		return domain.VideoArtifact{}, &domain.RenderError{Message: "slate render failed", Err: err}
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return domain.VideoArtifact{}, &domain.RenderError{Message: "read slideshow", Err: err}
	}
	m.log.Info("slate video rendered", "scenes", len(sb.Scenes), "bytes", len(data))
	return domain.VideoArtifact{
		Data:     data,
		MimeType: domain.MimeMP4,
		Filename: fmt.Sprintf("agentic-video-%d.mp4", time.Now().UnixMilli()),
	}, nil
}

// Render adapts RenderStoryboard to the renderer contract.
func (m *Tools) Render(ctx context.Context, sb domain.Storyboard, _ domain.JobSpecification) (domain.VideoArtifact, error) {
	return m.RenderStoryboard(ctx, sb)
}
