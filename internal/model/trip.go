package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trip is the aggregate root of the workflow engine. Ownership references are
// filled in as the trip moves through its lifecycle: the requester at
// creation, sales at quoting, consigner ops at confirmation, vehicle ops at
// assignment and accounts at the first payment review.
type Trip struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code            string           `gorm:"type:varchar(30);uniqueIndex;not null" json:"code"`
	CustomerID      string           `gorm:"type:varchar(64);not null;index" json:"customer_id"`
	CustomerName    string           `gorm:"type:varchar(255)" json:"customer_name"`
	PickupLocation  string           `gorm:"type:varchar(255);not null" json:"pickup_location"`
	DropLocation    string           `gorm:"type:varchar(255);not null" json:"drop_location"`
	VehicleType     string           `gorm:"type:varchar(50);not null" json:"vehicle_type"`
	VehicleLengthFt int              `json:"vehicle_length_ft"`
	WeightTonnes    decimal.Decimal  `gorm:"type:numeric(10,3)" json:"weight_tonnes"`
	PlannedKm       int              `json:"planned_km"`
	ScheduleDate    string           `gorm:"type:date" json:"schedule_date"`
	Amount          *decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"` // nil until quoted
	Stage           TripStage        `gorm:"type:varchar(30);not null;index" json:"stage"`
	IsLeased        bool             `json:"is_leased"`
	Notes           string           `gorm:"type:text" json:"notes"`

	VehicleID *uuid.UUID `gorm:"type:uuid;index" json:"vehicle_id"` // set iff stage >= vehicle_assigned
	Vehicle   *Vehicle   `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	DriverID  *uuid.UUID `gorm:"type:uuid;index" json:"driver_id"`
	Driver    *Driver    `gorm:"foreignKey:DriverID" json:"driver,omitempty"`
	VendorID  *uuid.UUID `gorm:"type:uuid;index" json:"vendor_id"`
	Vendor    *Vendor    `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`

	RequestedBy         uuid.UUID  `gorm:"type:uuid;not null;index" json:"requested_by"`
	Requester           *User      `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	SalesOwnerID        *uuid.UUID `gorm:"type:uuid" json:"sales_owner_id"`
	ConsignerOpsOwnerID *uuid.UUID `gorm:"type:uuid" json:"consigner_ops_owner_id"`
	VehicleOpsOwnerID   *uuid.UUID `gorm:"type:uuid" json:"vehicle_ops_owner_id"`
	AccountsOwnerID     *uuid.UUID `gorm:"type:uuid" json:"accounts_owner_id"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"` // set iff stage == closed
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TripDocument records a confirmed upload against a trip. The engine never
// holds file bytes; ObjectKey points into external object storage.
type TripDocument struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TripID      uuid.UUID `gorm:"type:uuid;not null;index" json:"trip_id"`
	Kind        string    `gorm:"type:varchar(30);not null" json:"kind"` // loading_proof, payment_qr
	ObjectKey   string    `gorm:"type:varchar(512);not null" json:"object_key"`
	FileName    string    `gorm:"type:varchar(255);not null" json:"file_name"`
	ContentType string    `gorm:"type:varchar(100);not null" json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  uuid.UUID `gorm:"type:uuid;not null" json:"uploaded_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

const (
	DocKindLoadingProof = "loading_proof"
	DocKindPaymentQR    = "payment_qr"
)
