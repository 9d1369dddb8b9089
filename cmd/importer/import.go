package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xelth-com/protocolos/internal/database"
	"github.com/xelth-com/protocolos/internal/importer"
	"github.com/xelth-com/protocolos/internal/models"
	"github.com/xelth-com/protocolos/internal/store"
)

const previewRows = 10

type importOptions struct {
	file      string
	mysqlDSN  string
	query     string
	unit      string
	dryRun    bool
	createdBy string
}

func newPdvsCmd(a *app) *cobra.Command {
	var opts importOptions
	cmd := &cobra.Command{
		Use:   "pdvs",
		Short: "Replace the PDV catalog of one unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), importer.PdvJob, opts, cmd.OutOrStdout())
		},
	}
	addSourceFlags(cmd, &opts)
	cmd.Flags().StringVar(&opts.unit, "unit", "", "Unit code whose PDVs are replaced (required)")
	_ = cmd.MarkFlagRequired("unit")
	return cmd
}

func newProductsCmd(a *app) *cobra.Command {
	var opts importOptions
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Upsert the product catalog by code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), importer.ProductJob, opts, cmd.OutOrStdout())
		},
	}
	addSourceFlags(cmd, &opts)
	return cmd
}

func addSourceFlags(cmd *cobra.Command, opts *importOptions) {
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "CSV, XLSX or SQL dump to import")
	cmd.Flags().StringVar(&opts.mysqlDSN, "mysql-dsn", "", "Read rows from a MySQL database instead of a file")
	cmd.Flags().StringVar(&opts.query, "query", "", "SELECT run against --mysql-dsn; column names are matched like headers")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Parse and report without writing")
	cmd.Flags().StringVar(&opts.createdBy, "as", "cli", "Name recorded in the import history")
	cmd.MarkFlagsMutuallyExclusive("file", "mysql-dsn")
	cmd.MarkFlagsRequiredTogether("mysql-dsn", "query")
}

func (a *app) run(ctx context.Context, job importer.Job, opts importOptions, out io.Writer) error {
	synonyms, err := importer.LoadSynonyms(a.cfg.Import.SynonymsPath)
	if err != nil {
		return err
	}
	imp := importer.New(synonyms, a.cfg.Import.ChunkSize, a.logger)

	report, err := parse(ctx, imp, job, opts)
	if err != nil {
		return err
	}
	if opts.dryRun {
		report.Partition = opts.unit
		printReport(out, report, true)
		return nil
	}

	db, err := database.Connect(a.cfg.Database, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.AutoMigrate(&models.Pdv{}, &models.Product{}, &models.ImportRun{}); err != nil {
		return fmt.Errorf("failed to migrate catalog tables: %w", err)
	}

	var target importer.RecordStore = store.NewProductStore(db.DB)
	if job.Name == importer.PdvJob.Name {
		target = store.NewPdvStore(db.DB)
	}
	imp.CommitReport(ctx, target, report, job, opts.unit)
	if _, err := store.NewImportRunStore(db.DB).Record(ctx, report, false, opts.createdBy); err != nil {
		a.logger.Warn("import run not recorded", zap.Error(err))
	}

	printReport(out, report, false)
	if !report.Commit.Success {
		return errors.New(report.Summary())
	}
	return nil
}

// parse loads the grid from the file or the MySQL query and extracts records.
func parse(ctx context.Context, imp *importer.Importer, job importer.Job, opts importOptions) (*importer.Report, error) {
	var (
		grid   [][]string
		source string
		err    error
	)
	switch {
	case opts.mysqlDSN != "":
		source = "mysql query"
		grid, err = queryMySQL(ctx, opts.mysqlDSN, opts.query)
	case opts.file != "":
		source = filepath.Base(opts.file)
		grid, err = readFile(opts.file)
	default:
		return nil, errors.New("one of --file or --mysql-dsn is required")
	}
	if err != nil {
		return nil, err
	}

	report, err := imp.ParseGrid(job, source, grid)
	var cfgErr *importer.ConfigError
	if errors.As(err, &cfgErr) && len(cfgErr.Headers) > 0 {
		return nil, fmt.Errorf("%w (unrecognised headers: %s)", err, strings.Join(cfgErr.Headers, ", "))
	}
	return report, err
}

func readFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return importer.ReadGrid(filepath.Base(path), f)
}

func queryMySQL(ctx context.Context, dsn, query string) ([][]string, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach mysql: %w", err)
	}
	return importer.QueryGrid(ctx, db, query)
}

func printReport(out io.Writer, report *importer.Report, dryRun bool) {
	if dryRun {
		fmt.Fprintf(out, "dry run: %d records would be imported, %d rows skipped\n", report.Accepted, report.Rejected)
		for i, r := range report.Records {
			if i == previewRows {
				fmt.Fprintf(out, "  ... %d more\n", len(report.Records)-previewRows)
				break
			}
			fmt.Fprintf(out, "  %s  %s\n", r[importer.FieldCode], r[importer.FieldLabel])
		}
	} else {
		fmt.Fprintln(out, report.Summary())
	}
	for _, e := range report.Errors {
		fmt.Fprintf(out, "  %s\n", e)
	}
	if len(report.Unmatched) > 0 {
		fmt.Fprintf(out, "ignored columns: %s\n", strings.Join(report.Unmatched, ", "))
	}
}
