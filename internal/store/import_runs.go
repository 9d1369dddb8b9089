package store

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/xelth-com/protocolos/internal/importer"
	"github.com/xelth-com/protocolos/internal/models"
)

// ImportRunStore keeps the history of imports.
type ImportRunStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewImportRunStore(db *gorm.DB) *ImportRunStore {
	return &ImportRunStore{db: db, now: time.Now}
}

// Record saves the outcome of one import report.
func (s *ImportRunStore) Record(ctx context.Context, report *importer.Report, dryRun bool, createdBy string) (*models.ImportRun, error) {
	run := NewImportRun(report, dryRun, createdBy, s.now().UTC())
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs, optionally for one job.
func (s *ImportRunStore) List(ctx context.Context, job string, limit int) ([]models.ImportRun, error) {
	query := s.db.WithContext(ctx)
	if job != "" {
		query = query.Where("job = ?", job)
	}
	var runs []models.ImportRun
	// ULIDs sort by creation time
	err := query.Order("id DESC").Limit(clampLimit(limit)).Find(&runs).Error
	return runs, err
}

// NewImportRun converts a report into its history row.
func NewImportRun(report *importer.Report, dryRun bool, createdBy string, at time.Time) *models.ImportRun {
	run := &models.ImportRun{
		ID:        ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		Job:       report.Job,
		Partition: report.Partition,
		Filename:  report.Filename,
		Accepted:  report.Accepted,
		Skipped:   report.Rejected,
		DryRun:    dryRun,
		Success:   dryRun,
		Errors:    datatypes.NewJSONType(append([]string{}, report.Errors...)),
		CreatedBy: createdBy,
		CreatedAt: at,
	}
	if c := report.Commit; c != nil {
		run.Committed = c.TotalCommitted
		run.Success = c.Success
		run.Error = c.Error
	}
	return run
}
