// Package importer turns spreadsheet-like catalog files into typed records
// and commits them to a RecordStore.
//
// Headers are matched against a SynonymTable after normalisation, rows are
// extracted sequentially in file order, and commits either replace a whole
// partition or upsert by a unique key.
package importer

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Importer runs import jobs against an injected synonym table.
type Importer struct {
	synonyms  *SynonymTable
	committer *Committer
	logger    *zap.Logger
}

// New creates an importer.
func New(synonyms *SynonymTable, chunkSize int, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		synonyms:  synonyms,
		committer: NewCommitter(chunkSize, logger),
		logger:    logger,
	}
}

// Synonyms exposes the table in use.
func (im *Importer) Synonyms() *SynonymTable { return im.synonyms }

// Report summarises a full run.
type Report struct {
	Job       string        `json:"job"`
	Partition string        `json:"partition,omitempty"`
	Filename  string        `json:"filename"`
	Accepted  int           `json:"accepted"`
	Rejected  int           `json:"rejected"`
	BlankRows int           `json:"blankRows"`
	Errors    []string      `json:"errors"`
	Commit    *CommitResult `json:"commit,omitempty"`
	Unmatched []string      `json:"unmatchedHeaders,omitempty"`
	Records   []Record      `json:"records,omitempty"`
}

// Summary is the user-facing one-liner.
func (r *Report) Summary() string {
	if r.Commit != nil && !r.Commit.Success {
		return fmt.Sprintf("import failed: %s", r.Commit.Error)
	}
	imported := r.Accepted
	if r.Commit != nil {
		imported = r.Commit.TotalCommitted
	}
	return fmt.Sprintf("%d records imported, %d rows skipped due to missing fields", imported, r.Rejected)
}

// Parse reads and extracts a file without touching any store. Malformed
// files and missing required columns fail before any row is looked at.
func (im *Importer) Parse(job Job, filename string, r io.Reader) (*Report, error) {
	grid, err := ReadGrid(filename, r)
	if err != nil {
		return nil, err
	}
	return im.ParseGrid(job, filename, grid)
}

// ParseGrid is Parse for an already loaded grid.
func (im *Importer) ParseGrid(job Job, source string, grid [][]string) (*Report, error) {
	if len(grid) < 2 {
		return nil, ErrNoDataRows
	}

	mapping := BuildMapping(grid[0], im.synonyms)
	if err := mapping.Require(job.Required); err != nil {
		im.logger.Warn("required columns not found", zap.String("job", job.Name), zap.String("source", source), zap.Error(err))
		return nil, err
	}

	ex := Extract(grid, mapping, job)
	return &Report{
		Job:       job.Name,
		Filename:  source,
		Accepted:  len(ex.Records),
		Rejected:  len(ex.Errors),
		BlankRows: ex.Skipped,
		Errors:    ex.Errors,
		Unmatched: mapping.Unmatched(),
		Records:   ex.Records,
	}, nil
}

// Run parses the file and commits the accepted records.
func (im *Importer) Run(ctx context.Context, store RecordStore, job Job, partition, filename string, r io.Reader) (*Report, error) {
	report, err := im.Parse(job, filename, r)
	if err != nil {
		return nil, err
	}
	im.CommitReport(ctx, store, report, job, partition)
	return report, nil
}

// CommitReport commits the records of a parsed report and fills in its result.
func (im *Importer) CommitReport(ctx context.Context, store RecordStore, report *Report, job Job, partition string) {
	res := im.committer.Commit(ctx, store, job, partition, report.Records)
	report.Partition = partition
	report.Commit = &res
	im.logger.Info("import finished",
		zap.String("job", job.Name),
		zap.String("partition", partition),
		zap.String("source", report.Filename),
		zap.Int("accepted", report.Accepted),
		zap.Int("rejected", report.Rejected),
		zap.Bool("success", res.Success))
}
