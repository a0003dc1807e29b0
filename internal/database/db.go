package database

import (
	"freightops/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Vendor{},
		&model.Driver{},
		&model.Vehicle{},
		&model.VehicleType{},
		&model.Trip{},
		&model.TripDocument{},
		&model.PaymentRequest{},
		&model.Ticket{},
		&model.AuditLog{},
	)
	if err != nil {
		logrus.WithError(err).Warn("failed to auto-migrate models")
	}

	return db, nil
}

// SeedVehicleTypes loads the default vehicle-master catalog when the table is
// empty so trip creation has something to validate against.
func SeedVehicleTypes(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.VehicleType{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []model.VehicleType{
		{Name: "20ft SXL", LengthFt: 20, MaxWeightTonnes: decimal.NewFromInt(7)},
		{Name: "24ft SXL", LengthFt: 24, MaxWeightTonnes: decimal.NewFromInt(8)},
		{Name: "32ft SXL", LengthFt: 32, MaxWeightTonnes: decimal.NewFromInt(9)},
		{Name: "32ft MXL", LengthFt: 32, MaxWeightTonnes: decimal.NewFromInt(18)},
		{Name: "40ft Trailer", LengthFt: 40, MaxWeightTonnes: decimal.NewFromInt(30)},
	}
	return db.Create(&defaults).Error
}
