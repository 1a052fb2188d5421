package app

import (
	"context"
	"fmt"

	"github.com/yungbote/agentic-studio/internal/domain"
	"github.com/yungbote/agentic-studio/internal/jobs/orchestrator"
	"github.com/yungbote/agentic-studio/internal/modules/render"
	"github.com/yungbote/agentic-studio/internal/modules/script"
	"github.com/yungbote/agentic-studio/internal/platform/localmedia"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
	"github.com/yungbote/agentic-studio/internal/platform/openai"
	"github.com/yungbote/agentic-studio/internal/platform/tiktok"
	"github.com/yungbote/agentic-studio/internal/platform/videogen"
	"github.com/yungbote/agentic-studio/internal/platform/youtube"
)

// wireScript tolerates a missing key: the producer then fails the script
// stage with a provider error instead of refusing to boot.
func wireScript(log *logger.Logger, cfg Config) *script.Producer {
	aiCfg := openai.ConfigFromEnv()
	aiCfg.APIKey = cfg.OpenAI.APIKey
	aiCfg.BaseURL = cfg.OpenAI.BaseURL
	aiCfg.Model = cfg.OpenAI.Model

	var ai openai.Client
	if aiCfg.APIKey != "" {
		c, err := openai.NewClient(log, aiCfg)
		if err != nil {
			log.Warn("OpenAI client disabled", "error", err)
		} else {
			ai = c
		}
	} else {
		log.Warn("OPENAI_API_KEY not set; script stage will fail")
	}
	return script.NewProducer(log, ai)
}

// wireRenderer orders backends external provider, local slate, placeholder.
func wireRenderer(log *logger.Logger, cfg Config) *render.Chain {
	chain := render.NewChain(log)

	vgCfg := videogen.ConfigFromEnv()
	vgCfg.URL = cfg.VideoGen.URL
	vgCfg.APIKey = cfg.VideoGen.APIKey
	if vgCfg.Configured() {
		chain.Use("videogen", videogen.New(log, vgCfg))
	}

	if cfg.Render.LocalEnabled {
		tools := localmedia.New(log)
		if err := tools.AssertReady(context.Background()); err != nil {
			log.Warn("Local slate renderer disabled", "error", err)
		} else {
			chain.Use("slate", tools)
		}
	}

	if cfg.Render.PlaceholderPath != "" {
		chain.Use("placeholder", render.NewPlaceholder(cfg.Render.PlaceholderPath))
	}
	log.Info("Render chain ready", "backends", chain.Len())
	return chain
}

// wireUploaders registers only the platforms that have credentials. An
// unregistered target fails its own stage.
func wireUploaders(ctx context.Context, log *logger.Logger, cfg Config) (map[domain.UploadTarget]orchestrator.Uploader, error) {
	ups := map[domain.UploadTarget]orchestrator.Uploader{}

	ytCfg := youtube.Config{
		ClientID:     cfg.YouTube.ClientID,
		ClientSecret: cfg.YouTube.ClientSecret,
		RefreshToken: cfg.YouTube.RefreshToken,
	}
	if ytCfg.Configured() {
		yt, err := youtube.New(ctx, log, ytCfg)
		if err != nil {
			return nil, fmt.Errorf("init youtube uploader: %w", err)
		}
		ups[domain.TargetYouTube] = yt
	}

	if cfg.TikTok.AccessToken != "" {
		ttCfg := tiktok.ConfigFromEnv()
		ttCfg.AccessToken = cfg.TikTok.AccessToken
		tt, err := tiktok.New(log, ttCfg)
		if err != nil {
			return nil, fmt.Errorf("init tiktok uploader: %w", err)
		}
		ups[domain.TargetTikTok] = tt
	}

	targets := make([]string, 0, len(ups))
	for t := range ups {
		targets = append(targets, string(t))
	}
	log.Info("Uploaders ready", "targets", targets)
	return ups, nil
}
