package jobs

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/agentic-studio/internal/domain/jobs"
	"github.com/yungbote/agentic-studio/internal/pkg/dbctx"
	"github.com/yungbote/agentic-studio/internal/platform/logger"
)

type JobRunRepo interface {
	// Save inserts or overwrites the archived run keyed by ID.
	Save(dbc dbctx.Context, run *types.JobRun) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error)
	ListRecent(dbc dbctx.Context, limit int) ([]*types.JobRun, error)
	CountByState(dbc dbctx.Context) (map[string]int64, error)
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &jobRunRepo{
		db:  db,
		log: baseLog.With("repo", "JobRunRepo"),
	}
}

func (r *jobRunRepo) tx(dbc dbctx.Context) *gorm.DB { return dbc.DB(r.db) }

func (r *jobRunRepo) Save(dbc dbctx.Context, run *types.JobRun) error {
	if run == nil {
		return nil
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return r.tx(dbc).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "snapshot", "video_url", "error", "finished_at", "updated_at"}),
	}).Create(run).Error
}

// GetByID returns (nil, nil) when the run is not archived.
func (r *jobRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var run types.JobRun
	err := r.tx(dbc).Where("id = ?", id).Take(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *jobRunRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.JobRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.JobRun
	if err := r.tx(dbc).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRunRepo) CountByState(dbc dbctx.Context) (map[string]int64, error) {
	var rows []struct {
		State string
		N     int64
	}
	if err := r.tx(dbc).
		Model(&types.JobRun{}).
		Select("state, COUNT(*) AS n").
		Group("state").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.State] = row.N
	}
	return out, nil
}
