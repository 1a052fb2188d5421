package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/agentic-studio/internal/domain/jobs"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

type Config struct {
	// DatabaseURL selects postgres. Otherwise SQLitePath is used.
	DatabaseURL string
	SQLitePath  string
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.DatabaseURL) != "" || strings.TrimSpace(c.SQLitePath) != ""
}

func (c Config) Driver() string {
	if strings.TrimSpace(c.DatabaseURL) != "" {
		return "postgres"
	}
	return "sqlite"
}

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func Open(logg *logger.Logger, cfg Config) (*Service, error) {
	if logg == nil {
		logg = logger.Nop()
	}
	serviceLog := logg.With("service", "DatabaseService")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var dialector gorm.Dialector
	switch cfg.Driver() {
	case "postgres":
		dialector = postgres.Open(strings.TrimSpace(cfg.DatabaseURL))
	default:
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			return nil, fmt.Errorf("missing DATABASE_URL or SQLITE_PATH")
		}
		dialector = sqlite.Open(path)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver(), err)
	}
	serviceLog.Info("Database connected", "driver", cfg.Driver())
	return &Service{db: db, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&jobs.JobRun{},
	)
}

func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
