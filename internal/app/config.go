package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	LogMode string

	Server struct {
		Port        int
		CORSOrigins []string
	}
	Jobs struct {
		MaxConcurrent int
		StageTimeout  time.Duration
	}
	OpenAI struct {
		APIKey  string
		BaseURL string
		Model   string
	}
	VideoGen struct {
		URL    string
		APIKey string
	}
	Render struct {
		LocalEnabled    bool
		PlaceholderPath string
	}
	YouTube struct {
		ClientID     string
		ClientSecret string
		RefreshToken string
	}
	TikTok struct {
		AccessToken string
	}
	Storage struct {
		Mode          string
		EmulatorHost  string
		Bucket        string
		CDNDomain     string
		PublicBaseURL string
		Prefix        string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
		Channel  string
	}
	Database struct {
		URL        string
		SQLitePath string
	}
	Metrics struct {
		Enabled bool
	}
	Otel struct {
		Enabled bool
	}
}

// bindings maps config keys to their environment variables. Every key is
// bound explicitly so nested keys resolve from env without a key replacer.
var bindings = map[string]string{
	"log.mode":                   "LOG_MODE",
	"server.port":                "PORT",
	"server.cors_origins":        "CORS_ORIGINS",
	"jobs.max_concurrent":        "STUDIO_MAX_CONCURRENT_JOBS",
	"jobs.stage_timeout_seconds": "STUDIO_STAGE_TIMEOUT_SECONDS",
	"openai.api_key":             "OPENAI_API_KEY",
	"openai.base_url":            "OPENAI_BASE_URL",
	"openai.model":               "OPENAI_MODEL",
	"videogen.url":               "VIDEO_GEN_API_URL",
	"videogen.api_key":           "VIDEO_GEN_API_KEY",
	"render.local_enabled":       "RENDER_LOCAL_ENABLED",
	"render.placeholder_path":    "RENDER_PLACEHOLDER_PATH",
	"youtube.client_id":          "YOUTUBE_CLIENT_ID",
	"youtube.client_secret":      "YOUTUBE_CLIENT_SECRET",
	"youtube.refresh_token":      "YOUTUBE_REFRESH_TOKEN",
	"tiktok.access_token":        "TIKTOK_ACCESS_TOKEN",
	"storage.mode":               "OBJECT_STORAGE_MODE",
	"storage.emulator_host":      "STORAGE_EMULATOR_HOST",
	"storage.bucket":             "VIDEO_GCS_BUCKET_NAME",
	"storage.cdn_domain":         "VIDEO_CDN_DOMAIN",
	"storage.public_base_url":    "OBJECT_STORAGE_PUBLIC_BASE_URL",
	"storage.prefix":             "VIDEO_GCS_PREFIX",
	"redis.addr":                 "REDIS_ADDR",
	"redis.password":             "REDIS_PASSWORD",
	"redis.db":                   "REDIS_DB",
	"redis.channel":              "REDIS_CHANNEL",
	"database.url":               "DATABASE_URL",
	"database.sqlite_path":       "SQLITE_PATH",
	"metrics.enabled":            "METRICS_ENABLED",
	"otel.enabled":               "OTEL_ENABLED",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.mode", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("jobs.max_concurrent", 4)
	v.SetDefault("jobs.stage_timeout_seconds", 0)
	v.SetDefault("openai.base_url", "https://api.openai.com")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("render.local_enabled", true)
	v.SetDefault("storage.prefix", "videos")
	v.SetDefault("redis.channel", "studio:jobs")
}

// LoadConfig reads an optional YAML file at path, then lets the environment
// override it. An empty path falls back to STUDIO_CONFIG; a missing file at
// an explicit path is an error.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	v.AutomaticEnv()

	if path == "" {
		_ = v.BindEnv("config_file", "STUDIO_CONFIG")
		path = strings.TrimSpace(v.GetString("config_file"))
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	cfg.LogMode = v.GetString("log.mode")

	cfg.Server.Port = v.GetInt("server.port")
	cfg.Server.CORSOrigins = splitList(v.GetStringSlice("server.cors_origins"))

	cfg.Jobs.MaxConcurrent = v.GetInt("jobs.max_concurrent")
	cfg.Jobs.StageTimeout = time.Duration(v.GetInt("jobs.stage_timeout_seconds")) * time.Second

	cfg.OpenAI.APIKey = v.GetString("openai.api_key")
	cfg.OpenAI.BaseURL = v.GetString("openai.base_url")
	cfg.OpenAI.Model = v.GetString("openai.model")

	cfg.VideoGen.URL = v.GetString("videogen.url")
	cfg.VideoGen.APIKey = v.GetString("videogen.api_key")

	cfg.Render.LocalEnabled = v.GetBool("render.local_enabled")
	cfg.Render.PlaceholderPath = v.GetString("render.placeholder_path")

	cfg.YouTube.ClientID = v.GetString("youtube.client_id")
	cfg.YouTube.ClientSecret = v.GetString("youtube.client_secret")
	cfg.YouTube.RefreshToken = v.GetString("youtube.refresh_token")

	cfg.TikTok.AccessToken = v.GetString("tiktok.access_token")

	cfg.Storage.Mode = v.GetString("storage.mode")
	cfg.Storage.EmulatorHost = v.GetString("storage.emulator_host")
	cfg.Storage.Bucket = v.GetString("storage.bucket")
	cfg.Storage.CDNDomain = v.GetString("storage.cdn_domain")
	cfg.Storage.PublicBaseURL = v.GetString("storage.public_base_url")
	cfg.Storage.Prefix = v.GetString("storage.prefix")

	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Redis.Channel = v.GetString("redis.channel")

	cfg.Database.URL = v.GetString("database.url")
	cfg.Database.SQLitePath = v.GetString("database.sqlite_path")

	cfg.Metrics.Enabled = v.GetBool("metrics.enabled")
	cfg.Otel.Enabled = v.GetBool("otel.enabled")

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}
	if c.Jobs.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("jobs.max_concurrent: must be positive"))
	}
	if c.Jobs.StageTimeout < 0 {
		errs = append(errs, fmt.Errorf("jobs.stage_timeout_seconds: must not be negative"))
	}
	return errors.Join(errs...)
}

// splitList accepts both YAML lists and a comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
