package models

import "time"

// Pdv is a point of sale, partitioned by operating unit.
type Pdv struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UnitCode  string    `gorm:"not null;uniqueIndex:idx_pdv_unit_code,priority:1" json:"unitCode"`
	Code      string    `gorm:"not null;uniqueIndex:idx_pdv_unit_code,priority:2" json:"code"`
	Name      string    `gorm:"not null" json:"name"`
	District  string    `json:"district,omitempty"`
	TaxID     string    `json:"taxId,omitempty"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for Pdv model
func (Pdv) TableName() string {
	return "pdvs"
}

// Product is a catalog item, unique by code.
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"not null" json:"name"`
	Category  string    `json:"category,omitempty"`
	Barcode   string    `gorm:"index" json:"barcode,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Product model
func (Product) TableName() string {
	return "produtos"
}
