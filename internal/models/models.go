package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// User represents a marketplace account. Authentication itself is
// handled upstream; the backend only resolves a session token to an
// identity and role.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	FullName  string         `gorm:"not null" json:"full_name"`
	Phone     string         `json:"phone"`
	Email     string         `gorm:"uniqueIndex" json:"email"`
	Role      string         `gorm:"not null" json:"role"`
	Token     string         `gorm:"uniqueIndex;not null" json:"-"`
}

// Delivery represents one tracked shipment of construction material
// from a supplier to a delivery address
type Delivery struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
	TrackingNumber    string         `gorm:"not null;uniqueIndex" json:"tracking_number"`
	Status            DeliveryStatus `gorm:"not null;index" json:"status"`
	SupplierID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"supplier_id"`
	BuilderID         *uuid.UUID     `gorm:"type:uuid;index" json:"builder_id"`
	ProjectID         *uuid.UUID     `gorm:"type:uuid;index" json:"project_id"`
	MaterialType      string         `gorm:"not null" json:"material_type"`
	Quantity          int            `gorm:"not null" json:"quantity"`
	WeightKg          float64        `json:"weight_kg"`
	PickupAddress     string         `gorm:"not null" json:"pickup_address"`
	DeliveryAddress   string         `gorm:"not null" json:"delivery_address"`
	DriverName        *string        `json:"driver_name"`
	DriverPhone       *string        `json:"driver_phone"`
	VehicleDetails    *string        `json:"vehicle_details"`
	Notes             string         `json:"notes"`
	EstimatedDelivery *time.Time     `json:"estimated_delivery_time"`
	ActualDelivery    *time.Time     `json:"actual_delivery_time"`
	Supplier          User           `gorm:"foreignKey:SupplierID" json:"-"`
	Project           *Project       `gorm:"foreignKey:ProjectID" json:"-"`
	TrackingUpdates   []TrackingUpdate `gorm:"foreignKey:DeliveryID" json:"-"`
}

// TrackingUpdate is one immutable entry in a delivery's tracking ledger.
// Rows are only ever inserted, never updated or deleted.
type TrackingUpdate struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	DeliveryID uuid.UUID      `gorm:"type:uuid;not null;index" json:"delivery_id"`
	Status     DeliveryStatus `gorm:"not null" json:"status"`
	Location   *string        `json:"location"`
	Notes      *string        `json:"notes"`
	Delivery   Delivery       `gorm:"foreignKey:DeliveryID" json:"-"`
}

// Project groups deliveries and documents for a builder. The access
// code acts as a secondary gate for viewers who are neither the owner
// nor an admin.
type Project struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	BuilderID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"builder_id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Location    string         `json:"location"`
	AccessCode  string         `gorm:"not null;uniqueIndex" json:"-"`
	Builder     User           `gorm:"foreignKey:BuilderID" json:"-"`
	Deliveries  []Delivery     `gorm:"foreignKey:ProjectID" json:"-"`
}

// Provider represents a registered delivery provider
type Provider struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	CompanyName  string         `gorm:"not null" json:"company_name"`
	Phone        string         `gorm:"not null" json:"phone"`
	Email        string         `json:"email"`
	Address      string         `json:"address"`
	VehicleTypes []byte         `gorm:"type:jsonb" json:"vehicle_types"`
	CapacityKg   float64        `json:"capacity_kg"`
	ServiceAreas []byte         `gorm:"type:jsonb" json:"service_areas"`
	IsVerified   bool           `gorm:"not null;default:false" json:"is_verified"`
	User         User           `gorm:"foreignKey:UserID" json:"-"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Project{},
		&Delivery{},
		&TrackingUpdate{},
		&Provider{},
		&PurchaseOrder{},
		&DeliveryNote{},
		&GoodsReceivedNote{},
		&Quotation{},
	)

	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
