package models

import (
	"time"

	"gorm.io/datatypes"
)

// ImportRun records one spreadsheet import, committed or previewed.
type ImportRun struct {
	ID        string                       `gorm:"primaryKey;size:26" json:"id"` // ULID, sorts by creation time
	Job       string                       `gorm:"index;not null" json:"job"`
	Partition string                       `gorm:"index" json:"partition,omitempty"`
	Filename  string                       `json:"filename"`
	Accepted  int                          `json:"accepted"`
	Skipped   int                          `json:"skipped"`
	Committed int                          `json:"committed"`
	DryRun    bool                         `json:"dryRun"`
	Success   bool                         `json:"success"`
	Error     string                       `gorm:"type:text" json:"error,omitempty"`
	Errors    datatypes.JSONType[[]string] `gorm:"type:jsonb" json:"errors"`
	CreatedBy string                       `json:"createdBy,omitempty"`
	CreatedAt time.Time                    `gorm:"index" json:"createdAt"`
}

// TableName specifies the table name for ImportRun model
func (ImportRun) TableName() string {
	return "import_runs"
}
