package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Protocol statuses
const (
	StatusOpen       = "aberto"
	StatusInProgress = "em_andamento"
	StatusClosed     = "encerrado"
)

// Incident reasons
const (
	ReasonDamage   = "avaria"
	ReasonShortage = "falta"
	ReasonExpired  = "vencido"
	ReasonSwap     = "inversao"
)

// Reasons lists the accepted incident reasons.
var Reasons = []string{ReasonDamage, ReasonShortage, ReasonExpired, ReasonSwap}

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid protocol status transition")

var protocolTransitions = map[string][]string{
	StatusOpen:       {StatusInProgress, StatusClosed},
	StatusInProgress: {StatusClosed},
}

// PhotoSet maps a photo role (nota, produto, avaria) to its public URL.
type PhotoSet map[string]string

// Protocol is an incident report opened by a driver at a point of sale.
type Protocol struct {
	ID          string                       `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Number      string                       `gorm:"uniqueIndex;not null" json:"number"`
	UnitCode    string                       `gorm:"index;not null" json:"unitCode"`
	PdvCode     string                       `gorm:"index" json:"pdvCode"`
	PdvName     string                       `json:"pdvName"`
	DriverID    string                       `gorm:"type:uuid;index" json:"driverId"`
	DriverName  string                       `json:"driverName"`
	Reason      string                       `gorm:"not null" json:"reason"`
	ProductCode string                       `json:"productCode"`
	ProductName string                       `json:"productName"`
	Quantity    float64                      `json:"quantity"`
	Notes       string                       `gorm:"type:text" json:"notes"`
	Status      string                       `gorm:"default:'aberto';index" json:"status"`
	Photos      datatypes.JSONType[PhotoSet] `gorm:"type:jsonb" json:"photos"`

	ValidatedBy  string     `json:"validatedBy,omitempty"`
	ValidatedAt  *time.Time `json:"validatedAt,omitempty"`
	ClosedBy     string     `json:"closedBy,omitempty"`
	ClosedAt     *time.Time `json:"closedAt,omitempty"`
	SLAAlertedAt *time.Time `json:"slaAlertedAt,omitempty"`

	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Protocol model
func (Protocol) TableName() string {
	return "protocolos"
}

// ProtocolNumber renders the human reference PRT-YYYYMMDD-XXXXXX from the
// creation date and the first six hex digits of the id.
func ProtocolNumber(createdAt time.Time, id string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return fmt.Sprintf("PRT-%s-%s", createdAt.Format("20060102"), suffix)
}

// ValidReason reports whether r is a known incident reason.
func ValidReason(r string) bool {
	for _, known := range Reasons {
		if r == known {
			return true
		}
	}
	return false
}

// CanTransition reports whether a protocol may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range protocolTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the protocol to status `to`, stamping who did it.
func (p *Protocol) Transition(to, by string, at time.Time) error {
	if !CanTransition(p.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, to)
	}
	p.Status = to
	switch to {
	case StatusInProgress:
		p.ValidatedBy, p.ValidatedAt = by, &at
	case StatusClosed:
		p.ClosedBy, p.ClosedAt = by, &at
	}
	return nil
}

// MergePhotos adds uploaded URLs, keeping roles that were not re-uploaded.
func (p *Protocol) MergePhotos(urls map[string]string) {
	merged := PhotoSet{}
	for role, url := range p.Photos.Data() {
		merged[role] = url
	}
	for role, url := range urls {
		merged[role] = url
	}
	p.Photos = datatypes.NewJSONType(merged)
}
