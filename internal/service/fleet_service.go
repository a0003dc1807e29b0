package service

import (
	"context"
	"errors"
	"fmt"

	"freightops/internal/apperr"
	"freightops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- DTOs ---

type CreateVehicleRequest struct {
	RegistrationNumber string  `json:"registration_number" binding:"required"`
	VehicleType        string  `json:"vehicle_type" binding:"required"`
	Ownership          string  `json:"ownership" binding:"required,oneof=leased vendor"`
	VendorID           *string `json:"vendor_id"`
	OwnerDriverID      *string `json:"owner_driver_id"`
}

type UpdateVehicleStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=available maintenance"`
}

type CreateDriverRequest struct {
	VendorID      *string `json:"vendor_id"`
	Name          string  `json:"name" binding:"required"`
	Phone         string  `json:"phone" binding:"required"`
	LicenseNumber string  `json:"license_number"`
	IsOwnerDriver bool    `json:"is_owner_driver"`
}

type UpdateDriverRequest struct {
	Phone         *string `json:"phone"`
	LicenseNumber *string `json:"license_number"`
	IsActive      *bool   `json:"is_active"`
}

type CreateVendorRequest struct {
	Name          string `json:"name" binding:"required"`
	Phone         string `json:"phone"`
	Email         string `json:"email" binding:"omitempty,email"`
	IsOwnerDriver bool   `json:"is_owner_driver"`
}

type VehicleFilter struct {
	Status    string
	Ownership string
	Page      int
	Limit     int
}

// --- Interface ---

type FleetService interface {
	CreateVehicle(ctx context.Context, actor model.Actor, req CreateVehicleRequest) (*model.Vehicle, error)
	UpdateVehicleStatus(ctx context.Context, actor model.Actor, id string, req UpdateVehicleStatusRequest) (*model.Vehicle, error)
	ListVehicles(ctx context.Context, filter VehicleFilter) ([]model.Vehicle, int64, error)
	GetVehicle(ctx context.Context, id string) (*model.Vehicle, error)

	CreateDriver(ctx context.Context, actor model.Actor, req CreateDriverRequest) (*model.Driver, error)
	UpdateDriver(ctx context.Context, actor model.Actor, id string, req UpdateDriverRequest) (*model.Driver, error)
	ListDrivers(ctx context.Context, page, limit int) ([]model.Driver, int64, error)

	CreateVendor(ctx context.Context, actor model.Actor, req CreateVendorRequest) (*model.Vendor, error)
	ListVendors(ctx context.Context, page, limit int) ([]model.Vendor, int64, error)

	ListVehicleTypes(ctx context.Context) ([]model.VehicleType, error)
}

type fleetService struct {
	db *gorm.DB
}

func NewFleetService(db *gorm.DB) FleetService {
	return &fleetService{db: db}
}

// --- Vehicles ---

func (s *fleetService) CreateVehicle(ctx context.Context, actor model.Actor, req CreateVehicleRequest) (*model.Vehicle, error) {
	var vendorID *uuid.UUID
	if req.VendorID != nil && *req.VendorID != "" {
		parsed, err := uuid.Parse(*req.VendorID)
		if err != nil {
			return nil, apperr.Validation("vendor_id_invalid", "invalid vendor id")
		}
		vendorID = &parsed
	}
	if req.Ownership == model.OwnershipVendor && vendorID == nil {
		return nil, apperr.Validation("vendor_required", "vendor vehicles must reference a vendor")
	}

	var ownerDriverID *uuid.UUID
	if req.OwnerDriverID != nil && *req.OwnerDriverID != "" {
		parsed, err := uuid.Parse(*req.OwnerDriverID)
		if err != nil {
			return nil, apperr.Validation("driver_id_invalid", "invalid owner driver id")
		}
		ownerDriverID = &parsed
	}

	var vehicle model.Vehicle
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vt, err := lookupVehicleType(tx, req.VehicleType)
		if err != nil {
			return err
		}

		if vendorID != nil {
			var vendor model.Vendor
			if err := tx.First(&vendor, "id = ?", *vendorID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("vendor_not_found", "vendor does not exist")
				}
				return fmt.Errorf("failed to load vendor: %w", err)
			}
			// An owner-driver vendor runs a single vehicle.
			if vendor.IsOwnerDriver {
				var count int64
				if err := tx.Model(&model.Vehicle{}).Where("vendor_id = ?", vendor.ID).Count(&count).Error; err != nil {
					return fmt.Errorf("failed to count vendor vehicles: %w", err)
				}
				if count > 0 {
					return apperr.Conflict("owner_driver_vehicle_limit", "owner-driver vendor already has a vehicle")
				}
			}
		}

		if ownerDriverID != nil {
			var driver model.Driver
			if err := tx.First(&driver, "id = ?", *ownerDriverID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("driver_not_found", "owner driver does not exist")
				}
				return fmt.Errorf("failed to load owner driver: %w", err)
			}
			if !driver.IsOwnerDriver {
				return apperr.Validation("not_owner_driver", "designated driver is not flagged as an owner driver")
			}
		}

		vehicle = model.Vehicle{
			RegistrationNumber: req.RegistrationNumber,
			VehicleType:        vt.Name,
			LengthFt:           vt.LengthFt,
			Ownership:          req.Ownership,
			Status:             model.VehicleAvailable,
			VendorID:           vendorID,
			OwnerDriverID:      ownerDriverID,
		}
		if err := tx.Create(&vehicle).Error; err != nil {
			return fmt.Errorf("failed to create vehicle: %w", err)
		}

		return writeAudit(tx, &actor.ID, model.ActionCreateVehicle, model.EntityVehicle, vehicle.ID.String(), map[string]interface{}{
			"registration": vehicle.RegistrationNumber,
			"ownership":    vehicle.Ownership,
		})
	})
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// UpdateVehicleStatus moves a vehicle between available and maintenance. The
// on_trip status is owned by the assignment flow and cannot be set here.
func (s *fleetService) UpdateVehicleStatus(ctx context.Context, actor model.Actor, id string, req UpdateVehicleStatusRequest) (*model.Vehicle, error) {
	vehicleID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("vehicle_id_invalid", "invalid vehicle id")
	}

	var vehicle model.Vehicle
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&vehicle, "id = ?", vehicleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("vehicle_not_found", "vehicle does not exist")
			}
			return fmt.Errorf("failed to load vehicle: %w", err)
		}
		if vehicle.Status == model.VehicleOnTrip {
			return apperr.Precondition("vehicle_on_trip", "vehicle is assigned to an in-progress trip")
		}

		if err := tx.Model(&vehicle).Update("status", req.Status).Error; err != nil {
			return fmt.Errorf("failed to update vehicle status: %w", err)
		}

		return writeAudit(tx, &actor.ID, model.ActionUpdateVehicle, model.EntityVehicle, vehicle.ID.String(), map[string]interface{}{
			"registration": vehicle.RegistrationNumber,
			"status":       req.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	vehicle.Status = req.Status
	return &vehicle, nil
}

func (s *fleetService) ListVehicles(ctx context.Context, filter VehicleFilter) ([]model.Vehicle, int64, error) {
	applyFilter := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Ownership != "" {
			q = q.Where("ownership = ?", filter.Ownership)
		}
		return q
	}

	var total int64
	if err := applyFilter(s.db.WithContext(ctx).Model(&model.Vehicle{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	var vehicles []model.Vehicle
	if err := applyFilter(s.db.WithContext(ctx)).
		Preload("Vendor").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&vehicles).Error; err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}

func (s *fleetService) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	vehicleID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("vehicle_id_invalid", "invalid vehicle id")
	}
	var vehicle model.Vehicle
	if err := s.db.WithContext(ctx).Preload("Vendor").First(&vehicle, "id = ?", vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("vehicle_not_found", "vehicle does not exist")
		}
		return nil, fmt.Errorf("failed to load vehicle: %w", err)
	}
	return &vehicle, nil
}

// --- Drivers ---

func (s *fleetService) CreateDriver(ctx context.Context, actor model.Actor, req CreateDriverRequest) (*model.Driver, error) {
	var vendorID *uuid.UUID
	if req.VendorID != nil && *req.VendorID != "" {
		parsed, err := uuid.Parse(*req.VendorID)
		if err != nil {
			return nil, apperr.Validation("vendor_id_invalid", "invalid vendor id")
		}
		vendorID = &parsed
	}

	var driver model.Driver
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if vendorID != nil {
			var vendor model.Vendor
			if err := tx.First(&vendor, "id = ?", *vendorID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("vendor_not_found", "vendor does not exist")
				}
				return fmt.Errorf("failed to load vendor: %w", err)
			}
			// An owner-driver vendor has exactly one active driver.
			if vendor.IsOwnerDriver {
				var count int64
				if err := tx.Model(&model.Driver{}).
					Where("vendor_id = ? AND is_active = ?", vendor.ID, true).
					Count(&count).Error; err != nil {
					return fmt.Errorf("failed to count vendor drivers: %w", err)
				}
				if count > 0 {
					return apperr.Conflict("owner_driver_limit", "owner-driver vendor already has an active driver")
				}
			}
		}

		driver = model.Driver{
			VendorID:      vendorID,
			Name:          req.Name,
			Phone:         req.Phone,
			LicenseNumber: req.LicenseNumber,
			IsOwnerDriver: req.IsOwnerDriver,
			IsActive:      true,
		}
		if err := tx.Create(&driver).Error; err != nil {
			return fmt.Errorf("failed to create driver: %w", err)
		}

		return writeAudit(tx, &actor.ID, model.ActionCreateDriver, model.EntityDriver, driver.ID.String(), map[string]interface{}{
			"name": driver.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

func (s *fleetService) UpdateDriver(ctx context.Context, actor model.Actor, id string, req UpdateDriverRequest) (*model.Driver, error) {
	driverID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("driver_id_invalid", "invalid driver id")
	}

	var driver model.Driver
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&driver, "id = ?", driverID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("driver_not_found", "driver does not exist")
			}
			return fmt.Errorf("failed to load driver: %w", err)
		}

		updates := map[string]interface{}{}
		if req.Phone != nil {
			updates["phone"] = *req.Phone
		}
		if req.LicenseNumber != nil {
			updates["license_number"] = *req.LicenseNumber
		}
		if req.IsActive != nil {
			// A driver on an in-progress trip cannot be deactivated.
			if !*req.IsActive {
				var active int64
				if err := tx.Model(&model.Trip{}).
					Where("driver_id = ? AND stage <> ?", driver.ID, model.StageClosed).
					Count(&active).Error; err != nil {
					return fmt.Errorf("failed to check driver occupancy: %w", err)
				}
				if active > 0 {
					return apperr.Precondition("driver_on_trip", "driver is assigned to an in-progress trip")
				}
			}
			updates["is_active"] = *req.IsActive
		}
		if len(updates) == 0 {
			return apperr.Validation("empty_patch", "no editable fields supplied")
		}

		if err := tx.Model(&driver).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update driver: %w", err)
		}

		return writeAudit(tx, &actor.ID, model.ActionUpdateDriver, model.EntityDriver, driver.ID.String(), map[string]interface{}{
			"name": driver.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

func (s *fleetService) ListDrivers(ctx context.Context, page, limit int) ([]model.Driver, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Driver{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	offset := (page - 1) * limit

	var drivers []model.Driver
	if err := s.db.WithContext(ctx).Preload("Vendor").Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&drivers).Error; err != nil {
		return nil, 0, err
	}
	return drivers, total, nil
}

// --- Vendors ---

func (s *fleetService) CreateVendor(ctx context.Context, actor model.Actor, req CreateVendorRequest) (*model.Vendor, error) {
	vendor := model.Vendor{
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		IsOwnerDriver: req.IsOwnerDriver,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&vendor).Error; err != nil {
			return fmt.Errorf("failed to create vendor: %w", err)
		}
		return writeAudit(tx, &actor.ID, model.ActionCreateVendor, model.EntityVendor, vendor.ID.String(), map[string]interface{}{
			"name":            vendor.Name,
			"is_owner_driver": vendor.IsOwnerDriver,
		})
	})
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (s *fleetService) ListVendors(ctx context.Context, page, limit int) ([]model.Vendor, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Vendor{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	offset := (page - 1) * limit

	var vendors []model.Vendor
	if err := s.db.WithContext(ctx).Order("created_at DESC").
		Offset(offset).Limit(limit).Find(&vendors).Error; err != nil {
		return nil, 0, err
	}
	return vendors, total, nil
}

// --- Master data ---

func (s *fleetService) ListVehicleTypes(ctx context.Context) ([]model.VehicleType, error) {
	var types []model.VehicleType
	if err := s.db.WithContext(ctx).Order("length_ft, name").Find(&types).Error; err != nil {
		return nil, apperr.Dependency("vehicle master catalog unavailable", err)
	}
	return types, nil
}
