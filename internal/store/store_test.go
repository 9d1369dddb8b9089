package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/xelth-com/protocolos/internal/importer"
	"github.com/xelth-com/protocolos/internal/models"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=test dbname=test sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	return db
}

func TestPdvFromRecord(t *testing.T) {
	got := PdvFromRecord("U01", importer.Record{
		importer.FieldCode:     "123",
		importer.FieldLabel:    "Mercado Sol",
		importer.FieldDistrict: "Centro",
		importer.FieldTaxID:    "12.345.678/0001-90",
	})
	want := models.Pdv{UnitCode: "U01", Code: "123", Name: "Mercado Sol", District: "Centro", TaxID: "12.345.678/0001-90"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PdvFromRecord (-want +got):\n%s", diff)
	}
}

func TestProductFromRecord(t *testing.T) {
	got := ProductFromRecord(importer.Record{
		importer.FieldCode:    "789",
		importer.FieldLabel:   "Refrigerante 2L",
		importer.FieldBarcode: "7891234567890",
	})
	want := models.Product{Code: "789", Name: "Refrigerante 2L", Barcode: "7891234567890"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ProductFromRecord (-want +got):\n%s", diff)
	}
}

func TestStoresRejectForeignModes(t *testing.T) {
	ctx := context.Background()
	pdvs := NewPdvStore(nil)
	products := NewProductStore(nil)

	if err := pdvs.UpsertByKey(ctx, importer.FieldCode, nil); !errors.Is(err, importer.ErrModeUnsupported) {
		t.Errorf("pdv upsert: %v", err)
	}
	if err := products.DeletePartition(ctx, "U01"); !errors.Is(err, importer.ErrModeUnsupported) {
		t.Errorf("product delete: %v", err)
	}
	if err := products.InsertBatch(ctx, "U01", nil); !errors.Is(err, importer.ErrModeUnsupported) {
		t.Errorf("product insert: %v", err)
	}
	if err := products.UpsertByKey(ctx, importer.FieldBarcode, nil); err == nil {
		t.Error("upsert on a non-unique column should be rejected")
	}
}

func TestProductUpsertStatement(t *testing.T) {
	s := NewProductStore(dryRunDB(t))
	rows := []models.Product{{Code: "1", Name: "A"}, {Code: "2", Name: "B"}}
	stmt := s.upsertQuery(s.db.Session(&gorm.Session{DryRun: true})).Create(&rows).Statement

	sql := stmt.SQL.String()
	for _, want := range []string{`INSERT INTO "produtos"`, `ON CONFLICT ("code") DO UPDATE SET`, `"name"="excluded"."name"`} {
		if !strings.Contains(sql, want) {
			t.Errorf("upsert SQL missing %q:\n%s", want, sql)
		}
	}
}

func TestNewImportRun(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	report := &importer.Report{
		Job: "pdvs", Partition: "U01", Filename: "pdvs.csv",
		Accepted: 3, Rejected: 1, Errors: []string{"row 4: missing label"},
		Commit: &importer.CommitResult{Success: true, TotalCommitted: 3},
	}

	run := NewImportRun(report, false, "admin", at)
	want := &models.ImportRun{
		Job: "pdvs", Partition: "U01", Filename: "pdvs.csv",
		Accepted: 3, Skipped: 1, Committed: 3, Success: true,
		CreatedBy: "admin", CreatedAt: at,
	}
	if diff := cmp.Diff(want, run, cmpopts.IgnoreFields(models.ImportRun{}, "ID", "Errors")); diff != "" {
		t.Errorf("NewImportRun (-want +got):\n%s", diff)
	}
	if len(run.ID) != 26 {
		t.Errorf("expected a ULID id, got %q", run.ID)
	}
	if got := run.Errors.Data(); len(got) != 1 || got[0] != "row 4: missing label" {
		t.Errorf("errors = %v", got)
	}

	later := NewImportRun(report, true, "admin", at.Add(time.Second))
	if later.ID <= run.ID {
		t.Errorf("later run id %s should sort after %s", later.ID, run.ID)
	}
	if !later.Success || later.Committed != 3 {
		t.Errorf("dry run with commit info: %+v", later)
	}
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	if got := likePattern(" 50%_off "); got != `%50\%\_off%` {
		t.Errorf("likePattern = %q", got)
	}
}
