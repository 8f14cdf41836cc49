package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Ingestion run statuses.
const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Ingestion run sources.
const (
	RunSourceAPICSV    = "api-csv"
	RunSourceOffermart = "offermart"
)

// IngestionRun records one batch/file upload: counts, row-level error
// details, and the claim/heartbeat state used by the run worker.
type IngestionRun struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Source       string         `gorm:"column:source;not null;index" json:"source"`
	FileName     string         `gorm:"column:file_name" json:"file_name"`
	FilePath     string         `gorm:"column:file_path" json:"file_path,omitempty"`
	Status       string         `gorm:"column:status;not null;index" json:"status"`
	TotalRows    int            `gorm:"column:total_rows;not null;default:0" json:"total_rows"`
	SuccessCount int            `gorm:"column:success_count;not null;default:0" json:"success_count"`
	ErrorCount   int            `gorm:"column:error_count;not null;default:0" json:"error_count"`
	Errors       datatypes.JSON `gorm:"column:errors;type:jsonb" json:"errors,omitempty"`
	Attempts     int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError    string         `gorm:"column:last_error" json:"last_error,omitempty"`
	LastErrorAt  *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	HeartbeatAt  *time.Time     `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`
	StartedAt    *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt   *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (IngestionRun) TableName() string { return "ingestion_run" }

// RowError is one element of IngestionRun.Errors.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}
