package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Vehicle ownership kinds
const (
	OwnershipLeased = "leased"
	OwnershipVendor = "vendor"
)

// Vehicle status values. A vehicle is on_trip iff exactly one non-terminal
// trip references it as the active assignment.
const (
	VehicleAvailable   = "available"
	VehicleOnTrip      = "on_trip"
	VehicleMaintenance = "maintenance"
)

// Vehicle represents a truck in either the leased pool or a vendor fleet.
// OwnerDriverID, when set, designates the sole driver allowed on it.
type Vehicle struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RegistrationNumber string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"registration_number"`
	VehicleType        string         `gorm:"type:varchar(50);not null" json:"vehicle_type"`
	LengthFt           int            `json:"length_ft"`
	Ownership          string         `gorm:"type:varchar(10);not null" json:"ownership"` // leased | vendor
	Status             string         `gorm:"type:varchar(15);not null;default:'available';index" json:"status"`
	VendorID           *uuid.UUID     `gorm:"type:uuid;index" json:"vendor_id"`
	Vendor             *Vendor        `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	OwnerDriverID      *uuid.UUID     `gorm:"type:uuid" json:"owner_driver_id"`
	CurrentTripID      *uuid.UUID     `gorm:"type:uuid" json:"current_trip_id"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// Driver belongs to a vendor fleet. An inactive driver can never be assigned.
type Driver struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	VendorID      *uuid.UUID     `gorm:"type:uuid;index" json:"vendor_id"`
	Vendor        *Vendor        `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Phone         string         `gorm:"type:varchar(20);not null" json:"phone"`
	LicenseNumber string         `gorm:"type:varchar(30)" json:"license_number"`
	IsOwnerDriver bool           `json:"is_owner_driver"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// Vendor is a third-party fleet owner. An owner-driver vendor is limited to
// one active driver and one vehicle.
type Vendor struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Phone         string         `gorm:"type:varchar(20)" json:"phone"`
	Email         string         `gorm:"type:varchar(255)" json:"email"`
	IsOwnerDriver bool           `json:"is_owner_driver"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// VehicleType is master data validating the type/length requested on a trip.
type VehicleType struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name            string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"` // e.g. "32ft MXL"
	LengthFt        int             `json:"length_ft"`
	MaxWeightTonnes decimal.Decimal `gorm:"type:numeric(10,3)" json:"max_weight_tonnes"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
