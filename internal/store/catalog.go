package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/protocolos/internal/importer"
	"github.com/xelth-com/protocolos/internal/models"
)

// PdvStore persists the point-of-sale catalog, partitioned by unit code.
// It serves the replace-partition import mode only.
type PdvStore struct {
	db *gorm.DB
}

func NewPdvStore(db *gorm.DB) *PdvStore {
	return &PdvStore{db: db}
}

// DeletePartition removes every PDV of one unit.
func (s *PdvStore) DeletePartition(ctx context.Context, unit string) error {
	return s.db.WithContext(ctx).Where("unit_code = ?", unit).Delete(&models.Pdv{}).Error
}

// InsertBatch inserts one chunk of PDVs into unit.
func (s *PdvStore) InsertBatch(ctx context.Context, unit string, records []importer.Record) error {
	rows := make([]models.Pdv, 0, len(records))
	for _, r := range records {
		rows = append(rows, PdvFromRecord(unit, r))
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

func (s *PdvStore) UpsertByKey(ctx context.Context, keyField string, records []importer.Record) error {
	return fmt.Errorf("pdvs: %w", importer.ErrModeUnsupported)
}

// List returns the PDVs of a unit matching q on code or name.
func (s *PdvStore) List(ctx context.Context, unit, q string, limit int) ([]models.Pdv, error) {
	query := s.db.WithContext(ctx).Where("unit_code = ?", unit)
	if q != "" {
		p := likePattern(q)
		query = query.Where("code ILIKE ? OR name ILIKE ?", p, p)
	}
	var pdvs []models.Pdv
	err := query.Order("name").Limit(clampLimit(limit)).Find(&pdvs).Error
	return pdvs, err
}

// Get returns one PDV by unit and code.
func (s *PdvStore) Get(ctx context.Context, unit, code string) (*models.Pdv, error) {
	var pdv models.Pdv
	if err := s.db.WithContext(ctx).Where("unit_code = ? AND code = ?", unit, code).First(&pdv).Error; err != nil {
		return nil, notFound(err)
	}
	return &pdv, nil
}

// PdvFromRecord maps an import record onto the PDV row.
func PdvFromRecord(unit string, r importer.Record) models.Pdv {
	return models.Pdv{
		UnitCode: unit,
		Code:     r[importer.FieldCode],
		Name:     r[importer.FieldLabel],
		District: r[importer.FieldDistrict],
		TaxID:    r[importer.FieldTaxID],
		Address:  r[importer.FieldAddress],
		City:     r[importer.FieldCity],
	}
}

// ProductStore persists the product catalog, unique by code. It serves the
// upsert import mode only.
type ProductStore struct {
	db *gorm.DB
}

func NewProductStore(db *gorm.DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) DeletePartition(ctx context.Context, partition string) error {
	return fmt.Errorf("produtos: %w", importer.ErrModeUnsupported)
}

func (s *ProductStore) InsertBatch(ctx context.Context, partition string, records []importer.Record) error {
	return fmt.Errorf("produtos: %w", importer.ErrModeUnsupported)
}

// UpsertByKey inserts products, updating existing rows with the same code
// in one statement.
func (s *ProductStore) UpsertByKey(ctx context.Context, keyField string, records []importer.Record) error {
	if keyField != importer.FieldCode {
		return fmt.Errorf("produtos: cannot upsert on %q", keyField)
	}
	rows := make([]models.Product, 0, len(records))
	now := time.Now().UTC()
	for _, r := range records {
		p := ProductFromRecord(r)
		p.UpdatedAt = now
		rows = append(rows, p)
	}
	return s.upsertQuery(s.db.WithContext(ctx)).Create(&rows).Error
}

func (s *ProductStore) upsertQuery(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "category", "barcode", "updated_at"}),
	})
}

// Search lists products whose code, name or barcode match q.
func (s *ProductStore) Search(ctx context.Context, q string, limit int) ([]models.Product, error) {
	query := s.db.WithContext(ctx)
	if q != "" {
		p := likePattern(q)
		query = query.Where("code ILIKE ? OR name ILIKE ? OR barcode = ?", p, p, q)
	}
	var products []models.Product
	err := query.Order("name").Limit(clampLimit(limit)).Find(&products).Error
	return products, err
}

// ProductFromRecord maps an import record onto the product row.
func ProductFromRecord(r importer.Record) models.Product {
	return models.Product{
		Code:     r[importer.FieldCode],
		Name:     r[importer.FieldLabel],
		Category: r[importer.FieldCategory],
		Barcode:  r[importer.FieldBarcode],
	}
}
