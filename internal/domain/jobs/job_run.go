package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobRun archives a finished production job: the request that started it and
// its terminal snapshot.
type JobRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	State      string         `gorm:"column:state;not null;index" json:"state"`
	Topic      string         `gorm:"column:topic;not null" json:"topic"`
	Targets    datatypes.JSON `gorm:"column:targets" json:"targets"`
	Spec       datatypes.JSON `gorm:"column:spec" json:"spec"`
	Snapshot   datatypes.JSON `gorm:"column:snapshot" json:"snapshot"`
	VideoURL   string         `gorm:"column:video_url" json:"video_url,omitempty"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	StartedAt  time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at;index" json:"finished_at,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }
