package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/protocolos/internal/models"
)

// ProtocolFilter narrows List.
type ProtocolFilter struct {
	Status   string
	UnitCode string
	DriverID string
	Limit    int
	Offset   int
}

// ProtocolStore persists protocols.
type ProtocolStore struct {
	db *gorm.DB
}

func NewProtocolStore(db *gorm.DB) *ProtocolStore {
	return &ProtocolStore{db: db}
}

// Create assigns id, number and initial status, then inserts p.
func (s *ProtocolStore) Create(ctx context.Context, p *models.Protocol) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.Number = models.ProtocolNumber(p.CreatedAt, p.ID)
	p.Status = models.StatusOpen
	return s.db.WithContext(ctx).Create(p).Error
}

// Get loads a protocol by id.
func (s *ProtocolStore) Get(ctx context.Context, id string) (*models.Protocol, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var p models.Protocol
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// GetByNumber loads a protocol by its PRT- reference.
func (s *ProtocolStore) GetByNumber(ctx context.Context, number string) (*models.Protocol, error) {
	var p models.Protocol
	if err := s.db.WithContext(ctx).First(&p, "number = ?", number).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// List returns protocols newest first.
func (s *ProtocolStore) List(ctx context.Context, f ProtocolFilter) ([]models.Protocol, error) {
	query := s.db.WithContext(ctx)
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.UnitCode != "" {
		query = query.Where("unit_code = ?", f.UnitCode)
	}
	if f.DriverID != "" {
		query = query.Where("driver_id = ?", f.DriverID)
	}
	var protocols []models.Protocol
	err := query.Order("created_at DESC").Limit(clampLimit(f.Limit)).Offset(f.Offset).Find(&protocols).Error
	return protocols, err
}

// Update applies fn to the row under a row lock and saves the result. An
// error from fn aborts without writing.
func (s *ProtocolStore) Update(ctx context.Context, id string, fn func(*models.Protocol) error) (*models.Protocol, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var p models.Protocol
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if err := fn(&p); err != nil {
			return err
		}
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete soft-deletes a protocol.
func (s *ProtocolStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res := s.db.WithContext(ctx).Delete(&models.Protocol{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Overdue lists protocols created before cutoff that are still not closed
// and have not been alerted yet.
func (s *ProtocolStore) Overdue(ctx context.Context, cutoff time.Time) ([]models.Protocol, error) {
	var protocols []models.Protocol
	err := s.db.WithContext(ctx).
		Where("status <> ? AND created_at < ? AND sla_alerted_at IS NULL", models.StatusClosed, cutoff).
		Order("created_at").
		Find(&protocols).Error
	return protocols, err
}

// MarkAlerted stamps the SLA alert time so a protocol is alerted once.
func (s *ProtocolStore) MarkAlerted(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Protocol{}).
		Where("id = ?", id).
		Update("sla_alerted_at", at).Error
}
