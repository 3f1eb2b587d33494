package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document records are flat: their status is set at creation and only
// ever changed by a single direct write. Line items are stored as an
// opaque JSON payload, mirroring the uploaded document contents.

// PurchaseOrder represents a builder's order to a supplier
type PurchaseOrder struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	PoNumber        string         `gorm:"not null;uniqueIndex" json:"po_number"`
	BuilderID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"builder_id"`
	SupplierID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"supplier_id"`
	ProjectID       *uuid.UUID     `gorm:"type:uuid;index" json:"project_id"`
	Status          string         `gorm:"not null" json:"status"`
	Items           []byte         `gorm:"type:jsonb" json:"items"`
	TotalAmountKsh  int64          `json:"total_amount_ksh"`
	DeliveryAddress string         `json:"delivery_address"`
	PaymentNotes    string         `json:"payment_notes"`
	Notes           string         `json:"notes"`
}

// DeliveryNote accompanies a shipment from the supplier
type DeliveryNote struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	DnNumber        string         `gorm:"not null;uniqueIndex" json:"dn_number"`
	SupplierID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"supplier_id"`
	PurchaseOrderID *uuid.UUID     `gorm:"type:uuid;index" json:"purchase_order_id"`
	DeliveryID      *uuid.UUID     `gorm:"type:uuid;index" json:"delivery_id"`
	Status          string         `gorm:"not null" json:"status"`
	Items           []byte         `gorm:"type:jsonb" json:"items"`
	DispatchDate    *time.Time     `json:"dispatch_date"`
	Notes           string         `json:"notes"`
}

// GoodsReceivedNote records what a builder actually received
type GoodsReceivedNote struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	GrnNumber      string         `gorm:"not null;uniqueIndex" json:"grn_number"`
	BuilderID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"builder_id"`
	DeliveryNoteID *uuid.UUID     `gorm:"type:uuid;index" json:"delivery_note_id"`
	Status         string         `gorm:"not null" json:"status"`
	Items          []byte         `gorm:"type:jsonb" json:"items"`
	ReceivedDate   *time.Time     `json:"received_date"`
	Discrepancies  string         `json:"discrepancies"`
	Notes          string         `json:"notes"`
}

// Quotation is a supplier's priced response to a material request
type Quotation struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	QuoteNumber    string         `gorm:"not null;uniqueIndex" json:"quote_number"`
	SupplierID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"supplier_id"`
	BuilderID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"builder_id"`
	ProjectID      *uuid.UUID     `gorm:"type:uuid;index" json:"project_id"`
	Status         string         `gorm:"not null" json:"status"`
	MaterialType   string         `gorm:"not null" json:"material_type"`
	Quantity       int            `json:"quantity"`
	UnitPriceKsh   int64          `json:"unit_price_ksh"`
	TotalAmountKsh int64          `json:"total_amount_ksh"`
	ValidUntil     *time.Time     `json:"valid_until"`
	Notes          string         `json:"notes"`
}
