package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"freightops/internal/apperr"
	"freightops/internal/authz"
	"freightops/internal/model"
	"freightops/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- DTOs ---

type CreateTripRequest struct {
	CustomerID     string          `json:"customer_id" binding:"required"`
	CustomerName   string          `json:"customer_name"`
	PickupLocation string          `json:"pickup_location" binding:"required"`
	DropLocation   string          `json:"drop_location" binding:"required"`
	VehicleType    string          `json:"vehicle_type" binding:"required"`
	WeightTonnes   decimal.Decimal `json:"weight_tonnes"`
	PlannedKm      int             `json:"planned_km"`
	ScheduleDate   string          `json:"schedule_date" binding:"required"`
	IsLeased       bool            `json:"is_leased"`
	Notes          string          `json:"notes"`
}

// EditTripRequest is a field-level patch, valid only while the trip is still
// in request_received. Nil fields are left untouched.
type EditTripRequest struct {
	PickupLocation *string          `json:"pickup_location"`
	DropLocation   *string          `json:"drop_location"`
	VehicleType    *string          `json:"vehicle_type"`
	WeightTonnes   *decimal.Decimal `json:"weight_tonnes"`
	PlannedKm      *int             `json:"planned_km"`
	ScheduleDate   *string          `json:"schedule_date"`
	Amount         *decimal.Decimal `json:"amount"`
	Notes          *string          `json:"notes"`
}

type QuoteTripRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type AssignVehicleRequest struct {
	VehicleID string  `json:"vehicle_id" binding:"required"`
	DriverID  *string `json:"driver_id"`
}

type TripFilter struct {
	Stage string
	Page  int
	Limit int
}

type TripResponse struct {
	ID             string  `json:"id"`
	Code           string  `json:"code"`
	CustomerID     string  `json:"customer_id"`
	CustomerName   string  `json:"customer_name"`
	PickupLocation string  `json:"pickup_location"`
	DropLocation   string  `json:"drop_location"`
	VehicleType    string  `json:"vehicle_type"`
	VehicleLengthFt int    `json:"vehicle_length_ft"`
	WeightTonnes   string  `json:"weight_tonnes"`
	PlannedKm      int     `json:"planned_km"`
	ScheduleDate   string  `json:"schedule_date"`
	Amount         *string `json:"amount"`
	Stage          string  `json:"stage"`
	IsLeased       bool    `json:"is_leased"`
	Notes          string  `json:"notes"`

	VehicleID          *string `json:"vehicle_id"`
	VehicleRegistration string `json:"vehicle_registration,omitempty"`
	DriverID           *string `json:"driver_id"`
	DriverName         string  `json:"driver_name,omitempty"`
	VendorID           *string `json:"vendor_id"`
	VendorName         string  `json:"vendor_name,omitempty"`

	RequestedBy   string  `json:"requested_by"`
	RequesterName string  `json:"requester_name,omitempty"`
	StartedAt     *string `json:"started_at"`
	CompletedAt   *string `json:"completed_at"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// --- Interface ---

type TripService interface {
	CreateTrip(ctx context.Context, actor model.Actor, req CreateTripRequest) (*TripResponse, error)
	EditTrip(ctx context.Context, actor model.Actor, id string, req EditTripRequest) (*TripResponse, error)
	QuoteTrip(ctx context.Context, actor model.Actor, id string, req QuoteTripRequest) (*TripResponse, error)
	ConfirmTrip(ctx context.Context, actor model.Actor, id string) (*TripResponse, error)
	AssignVehicle(ctx context.Context, actor model.Actor, id string, req AssignVehicleRequest) (*TripResponse, error)
	MarkAtLoading(ctx context.Context, actor model.Actor, id string) (*TripResponse, error)
	MarkLoadingDocsOK(ctx context.Context, actor model.Actor, id string) (*TripResponse, error)
	MarkAdvancePaid(ctx context.Context, actor model.Actor, id string) (*TripResponse, error)
	StartTransit(ctx context.Context, actor model.Actor, id string) (*TripResponse, error)
	MarkDelivered(ctx context.Context, actor model.Actor, id string) (*TripResponse, error)
	MarkPODReceived(ctx context.Context, actor model.Actor, id string) (*TripResponse, error)
	MarkVendorSettled(ctx context.Context, actor model.Actor, id string) (*TripResponse, error)
	MarkCustomerCollected(ctx context.Context, actor model.Actor, id string) (*TripResponse, error)
	CloseTrip(ctx context.Context, actor model.Actor, id string) (*TripResponse, error)
	GetTrip(ctx context.Context, actor model.Actor, id string) (*TripResponse, error)
	ListTrips(ctx context.Context, actor model.Actor, filter TripFilter) ([]TripResponse, int64, error)
	TripHistory(ctx context.Context, actor model.Actor, filter TripFilter) ([]TripResponse, int64, error)
}

type tripService struct {
	db  *gorm.DB
	hub *websocket.Hub
}

func NewTripService(db *gorm.DB, hub *websocket.Hub) TripService {
	return &tripService{db: db, hub: hub}
}

// --- Creation & editing ---

func (s *tripService) CreateTrip(ctx context.Context, actor model.Actor, req CreateTripRequest) (*TripResponse, error) {
	if _, err := time.Parse("2006-01-02", req.ScheduleDate); err != nil {
		return nil, apperr.Validation("schedule_date_invalid", "schedule date must be YYYY-MM-DD")
	}
	if req.WeightTonnes.IsNegative() {
		return nil, apperr.Validation("weight_invalid", "weight cannot be negative")
	}
	if req.PlannedKm < 0 {
		return nil, apperr.Validation("planned_km_invalid", "planned km cannot be negative")
	}

	var trip model.Trip
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vt, err := lookupVehicleType(tx, req.VehicleType)
		if err != nil {
			return err
		}

		code, err := generateTripCode(tx)
		if err != nil {
			return fmt.Errorf("failed to generate trip code: %w", err)
		}

		trip = model.Trip{
			Code:            code,
			CustomerID:      req.CustomerID,
			CustomerName:    req.CustomerName,
			PickupLocation:  req.PickupLocation,
			DropLocation:    req.DropLocation,
			VehicleType:     vt.Name,
			VehicleLengthFt: vt.LengthFt,
			WeightTonnes:    req.WeightTonnes,
			PlannedKm:       req.PlannedKm,
			ScheduleDate:    req.ScheduleDate,
			Stage:           model.StageRequestReceived,
			IsLeased:        req.IsLeased,
			Notes:           req.Notes,
			RequestedBy:     actor.ID,
		}
		if actor.Role == authz.RoleSales {
			trip.SalesOwnerID = &actor.ID
		}

		if err := tx.Create(&trip).Error; err != nil {
			return fmt.Errorf("failed to create trip: %w", err)
		}

		return writeAudit(tx, &actor.ID, model.ActionCreateTrip, model.EntityTrip, trip.ID.String(), map[string]interface{}{
			"code":     code,
			"customer": req.CustomerID,
			"route":    req.PickupLocation + " -> " + req.DropLocation,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishTripEvent("trip.created", &trip)
	return s.reload(ctx, trip.ID)
}

func (s *tripService) EditTrip(ctx context.Context, actor model.Actor, id string, req EditTripRequest) (*TripResponse, error) {
	tripID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("trip_id_invalid", "invalid trip id")
	}
	if req.ScheduleDate != nil {
		if _, err := time.Parse("2006-01-02", *req.ScheduleDate); err != nil {
			return nil, apperr.Validation("schedule_date_invalid", "schedule date must be YYYY-MM-DD")
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trip model.Trip
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&trip, "id = ?", tripID).Error; err != nil {
			return tripLoadError(err)
		}

		if trip.Stage != model.StageRequestReceived {
			return apperr.Precondition("trip_not_editable", "trip fields can only be edited while the request is still open")
		}
		if trip.RequestedBy != actor.ID && actor.Role != authz.RoleAdmin {
			return apperr.Forbidden("not_trip_owner", "only the original requester may edit this trip")
		}

		updates := map[string]interface{}{}
		changed := []string{}
		if req.PickupLocation != nil {
			updates["pickup_location"] = *req.PickupLocation
			changed = append(changed, "pickup_location")
		}
		if req.DropLocation != nil {
			updates["drop_location"] = *req.DropLocation
			changed = append(changed, "drop_location")
		}
		if req.VehicleType != nil {
			vt, err := lookupVehicleType(tx, *req.VehicleType)
			if err != nil {
				return err
			}
			updates["vehicle_type"] = vt.Name
			updates["vehicle_length_ft"] = vt.LengthFt
			changed = append(changed, "vehicle_type")
		}
		if req.WeightTonnes != nil {
			if req.WeightTonnes.IsNegative() {
				return apperr.Validation("weight_invalid", "weight cannot be negative")
			}
			updates["weight_tonnes"] = *req.WeightTonnes
			changed = append(changed, "weight_tonnes")
		}
		if req.PlannedKm != nil {
			updates["planned_km"] = *req.PlannedKm
			changed = append(changed, "planned_km")
		}
		if req.ScheduleDate != nil {
			updates["schedule_date"] = *req.ScheduleDate
			changed = append(changed, "schedule_date")
		}
		if req.Amount != nil {
			updates["amount"] = *req.Amount
			changed = append(changed, "amount")
		}
		if req.Notes != nil {
			updates["notes"] = *req.Notes
			changed = append(changed, "notes")
		}
		if len(updates) == 0 {
			return apperr.Validation("empty_patch", "no editable fields supplied")
		}

		if err := tx.Model(&trip).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update trip: %w", err)
		}

		return writeAudit(tx, &actor.ID, model.ActionEditTrip, model.EntityTrip, trip.ID.String(), map[string]interface{}{
			"code":   trip.Code,
			"fields": changed,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, tripID)
}

// --- Stage transitions ---

func (s *tripService) QuoteTrip(ctx context.Context, actor model.Actor, id string, req QuoteTripRequest) (*TripResponse, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.Validation("amount_invalid", "trip amount must be positive")
	}
	return s.advanceStage(ctx, actor, id, model.StageQuoted, model.ActionQuoteTrip, nil, map[string]interface{}{
		"amount":         req.Amount,
		"sales_owner_id": actor.ID,
	})
}

func (s *tripService) ConfirmTrip(ctx context.Context, actor model.Actor, id string) (*TripResponse, error) {
	resp, err := s.advanceStage(ctx, actor, id, model.StageConfirmed, model.ActionTripStageChange,
		func(tx *gorm.DB, trip *model.Trip) error {
			// Vehicle assignment is now the blocking step; raise a follow-up
			// for the vehicle ops team in the same transaction.
			return createAutoTicket(tx, &model.Ticket{
				TripID:       &trip.ID,
				IssueType:    model.IssueVehicleAssignmentPending,
				Title:        "Vehicle assignment pending for " + trip.Code,
				Description:  "Trip is confirmed and waiting for a vehicle.",
				AssignedRole: authz.RoleVehicleOps,
				SourceType:   model.TicketSourceTrip,
				SourceID:     &trip.ID,
			})
		},
		map[string]interface{}{"consigner_ops_owner_id": actor.ID},
	)
	if err != nil {
		return nil, err
	}
	s.hub.Publish("ticket.created", model.EntityTicket, "", map[string]interface{}{
		"issue_type": model.IssueVehicleAssignmentPending,
		"trip_id":    id,
	})
	return resp, nil
}

// AssignVehicle is the assignment resolver: it enforces exclusive vehicle and
// driver occupancy inside a single transaction so two concurrent assignments
// of the same vehicle cannot both succeed.
func (s *tripService) AssignVehicle(ctx context.Context, actor model.Actor, id string, req AssignVehicleRequest) (*TripResponse, error) {
	tripID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("trip_id_invalid", "invalid trip id")
	}
	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		return nil, apperr.Validation("vehicle_id_invalid", "invalid vehicle id")
	}
	var requestedDriverID *uuid.UUID
	if req.DriverID != nil && *req.DriverID != "" {
		parsed, err := uuid.Parse(*req.DriverID)
		if err != nil {
			return nil, apperr.Validation("driver_id_invalid", "invalid driver id")
		}
		requestedDriverID = &parsed
	}

	var trip model.Trip
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&trip, "id = ?", tripID).Error; err != nil {
			return tripLoadError(err)
		}
		if trip.Stage == model.StageVehicleAssigned {
			return apperr.Precondition("already_in_stage", "trip already has a vehicle assigned")
		}
		if trip.Stage != model.StageConfirmed {
			return apperr.Precondition("trip_not_confirmed", "vehicle can only be assigned to a confirmed trip")
		}

		var vehicle model.Vehicle
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&vehicle, "id = ?", vehicleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("vehicle_not_found", "vehicle does not exist")
			}
			return fmt.Errorf("failed to load vehicle: %w", err)
		}
		if vehicle.Status != model.VehicleAvailable {
			return apperr.Precondition("vehicle_not_available", "vehicle is not available")
		}

		driverID, err := resolveDriver(tx, &vehicle, requestedDriverID)
		if err != nil {
			return err
		}

		// Conditional flip closes the race window: whichever concurrent
		// transaction commits first wins, the rest see zero rows.
		res := tx.Model(&model.Vehicle{}).
			Where("id = ? AND status = ?", vehicle.ID, model.VehicleAvailable).
			Updates(map[string]interface{}{
				"status":          model.VehicleOnTrip,
				"current_trip_id": trip.ID,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to occupy vehicle: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.Precondition("vehicle_not_available", "vehicle is not available")
		}

		tripUpdates := map[string]interface{}{
			"stage":                model.StageVehicleAssigned,
			"vehicle_id":           vehicle.ID,
			"vehicle_ops_owner_id": actor.ID,
		}
		if driverID != nil {
			tripUpdates["driver_id"] = *driverID
		}
		if vehicle.VendorID != nil {
			tripUpdates["vendor_id"] = *vehicle.VendorID
		}
		res = tx.Model(&model.Trip{}).
			Where("id = ? AND stage = ?", trip.ID, model.StageConfirmed).
			Updates(tripUpdates)
		if res.Error != nil {
			return fmt.Errorf("failed to update trip: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("stage_conflict", "trip stage changed concurrently")
		}

		details := map[string]interface{}{
			"code":         trip.Code,
			"vehicle_id":   vehicle.ID.String(),
			"registration": vehicle.RegistrationNumber,
		}
		if driverID != nil {
			details["driver_id"] = driverID.String()
		}
		return writeAudit(tx, &actor.ID, model.ActionAssignVehicle, model.EntityTrip, trip.ID.String(), details)
	})
	if err != nil {
		return nil, err
	}

	s.publishTripEvent("trip.vehicle_assigned", &trip)
	return s.reload(ctx, tripID)
}

// resolveDriver applies the driver-side assignment rules for a locked
// vehicle. Returns the driver to record on the trip, nil when a leased
// vehicle runs without a tracked driver.
func resolveDriver(tx *gorm.DB, vehicle *model.Vehicle, requested *uuid.UUID) (*uuid.UUID, error) {
	// An owner-driver vehicle always runs with its designated driver.
	if vehicle.OwnerDriverID != nil {
		if requested != nil && *requested != *vehicle.OwnerDriverID {
			return nil, apperr.Precondition("owner_driver_required_for_owner_vehicle", "this vehicle is bound to its owner driver")
		}
		requested = vehicle.OwnerDriverID
	} else if vehicle.Ownership == model.OwnershipVendor && requested == nil {
		return nil, apperr.Precondition("driver_required_for_vendor_vehicle", "vendor vehicles require a driver")
	}

	if requested == nil {
		return nil, nil
	}

	var driver model.Driver
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&driver, "id = ?", *requested).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("driver_not_found", "driver does not exist")
		}
		return nil, fmt.Errorf("failed to load driver: %w", err)
	}

	if vehicle.Ownership == model.OwnershipVendor {
		if driver.VendorID == nil || vehicle.VendorID == nil || *driver.VendorID != *vehicle.VendorID {
			return nil, apperr.Precondition("driver_vendor_mismatch", "driver does not belong to the vehicle's vendor")
		}
	}
	if !driver.IsActive {
		return nil, apperr.Precondition("driver_inactive", "driver is not active")
	}

	var active int64
	if err := tx.Model(&model.Trip{}).
		Where("driver_id = ? AND stage <> ?", driver.ID, model.StageClosed).
		Count(&active).Error; err != nil {
		return nil, fmt.Errorf("failed to check driver occupancy: %w", err)
	}
	if active > 0 {
		return nil, apperr.Precondition("driver_on_trip", "driver is already assigned to an in-progress trip")
	}

	return &driver.ID, nil
}

func (s *tripService) MarkAtLoading(ctx context.Context, actor model.Actor, id string) (*TripResponse, error) {
	return s.advanceStage(ctx, actor, id, model.StageAtLoading, model.ActionTripStageChange, nil, nil)
}

func (s *tripService) MarkLoadingDocsOK(ctx context.Context, actor model.Actor, id string) (*TripResponse, error) {
	return s.advanceStage(ctx, actor, id, model.StageLoadedDocsOK, model.ActionTripStageChange,
		func(tx *gorm.DB, trip *model.Trip) error {
			var docs int64
			if err := tx.Model(&model.TripDocument{}).
				Where("trip_id = ? AND kind = ?", trip.ID, model.DocKindLoadingProof).
				Count(&docs).Error; err != nil {
				return fmt.Errorf("failed to check loading proof: %w", err)
			}
			if docs == 0 {
				return apperr.Precondition("loading_proof_missing", "a confirmed loading proof upload is required")
			}
			return nil
		}, nil)
}

func (s *tripService) MarkAdvancePaid(ctx context.Context, actor model.Actor, id string) (*TripResponse, error) {
	return s.advanceStage(ctx, actor, id, model.StageAdvancePaid, model.ActionTripStageChange,
		requirePaidPayment(model.PaymentTypeAdvance, "advance_not_paid_yet", "the advance payment request has not been paid"),
		map[string]interface{}{"accounts_owner_id": actor.ID})
}

func (s *tripService) StartTransit(ctx context.Context, actor model.Actor, id string) (*TripResponse, error) {
	return s.advanceStage(ctx, actor, id, model.StageInTransit, model.ActionTripStageChange, nil,
		map[string]interface{}{"started_at": time.Now()})
}

func (s *tripService) MarkDelivered(ctx context.Context, actor model.Actor, id string) (*TripResponse, error) {
	return s.advanceStage(ctx, actor, id, model.StageDelivered, model.ActionTripStageChange, nil, nil)
}

func (s *tripService) MarkPODReceived(ctx context.Context, actor model.Actor, id string) (*TripResponse, error) {
	return s.advanceStage(ctx, actor, id, model.StagePODSoftReceived, model.ActionTripStageChange, nil, nil)
}

func (s *tripService) MarkVendorSettled(ctx context.Context, actor model.Actor, id string) (*TripResponse, error) {
	return s.advanceStage(ctx, actor, id, model.StageVendorSettled, model.ActionTripStageChange,
		requirePaidPayment(model.PaymentTypeFinal, "final_not_paid_yet", "the final payment request has not been paid"), nil)
}

func (s *tripService) MarkCustomerCollected(ctx context.Context, actor model.Actor, id string) (*TripResponse, error) {
	return s.advanceStage(ctx, actor, id, model.StageCustomerCollected, model.ActionTripStageChange, nil, nil)
}

// CloseTrip ends the lifecycle, releasing the vehicle back to the pool in the
// same transaction.
func (s *tripService) CloseTrip(ctx context.Context, actor model.Actor, id string) (*TripResponse, error) {
	return s.advanceStage(ctx, actor, id, model.StageClosed, model.ActionTripStageChange,
		func(tx *gorm.DB, trip *model.Trip) error {
			if trip.VehicleID == nil {
				return nil
			}
			return tx.Model(&model.Vehicle{}).
				Where("id = ? AND current_trip_id = ?", *trip.VehicleID, trip.ID).
				Updates(map[string]interface{}{
					"status":          model.VehicleAvailable,
					"current_trip_id": nil,
				}).Error
		},
		map[string]interface{}{"completed_at": time.Now()})
}

// requirePaidPayment builds a stage guard demanding a paid payment request of
// the given type on the trip.
func requirePaidPayment(paymentType, code, message string) func(tx *gorm.DB, trip *model.Trip) error {
	return func(tx *gorm.DB, trip *model.Trip) error {
		var paid int64
		if err := tx.Model(&model.PaymentRequest{}).
			Where("trip_id = ? AND type = ? AND status = ?", trip.ID, paymentType, model.PaymentPaid).
			Count(&paid).Error; err != nil {
			return fmt.Errorf("failed to check payment status: %w", err)
		}
		if paid == 0 {
			return apperr.Precondition(code, message)
		}
		return nil
	}
}

// advanceStage applies one named transition: the trip must be exactly in the
// target's predecessor stage. Re-invoking a transition the trip has already
// taken reports already_in_stage instead of silently succeeding, so retries
// never double-charge side effects.
func (s *tripService) advanceStage(
	ctx context.Context,
	actor model.Actor,
	id string,
	target model.TripStage,
	action string,
	guard func(tx *gorm.DB, trip *model.Trip) error,
	extraUpdates map[string]interface{},
) (*TripResponse, error) {
	tripID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("trip_id_invalid", "invalid trip id")
	}
	pred, ok := target.Predecessor()
	if !ok {
		return nil, apperr.Validation("stage_invalid", "stage has no inbound transition")
	}

	var trip model.Trip
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&trip, "id = ?", tripID).Error; err != nil {
			return tripLoadError(err)
		}

		if trip.Stage == target {
			return apperr.Precondition("already_in_stage", "trip is already in stage "+string(target))
		}
		if trip.Stage != pred {
			return apperr.Precondition(target.PreconditionCode(),
				fmt.Sprintf("transition to %s requires stage %s, trip is in %s", target, pred, trip.Stage))
		}

		if guard != nil {
			if err := guard(tx, &trip); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{"stage": target}
		for k, v := range extraUpdates {
			updates[k] = v
		}

		res := tx.Model(&model.Trip{}).Where("id = ? AND stage = ?", trip.ID, pred).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to advance trip stage: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("stage_conflict", "trip stage changed concurrently")
		}

		return writeAudit(tx, &actor.ID, action, model.EntityTrip, trip.ID.String(), map[string]interface{}{
			"code": trip.Code,
			"from": trip.Stage,
			"to":   target,
		})
	})
	if err != nil {
		return nil, err
	}

	trip.Stage = target
	s.publishTripEvent("trip.stage_changed", &trip)
	return s.reload(ctx, tripID)
}

// --- Reads ---

func (s *tripService) GetTrip(ctx context.Context, actor model.Actor, id string) (*TripResponse, error) {
	tripID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("trip_id_invalid", "invalid trip id")
	}

	var trip model.Trip
	if err := s.db.WithContext(ctx).
		Preload("Vehicle").Preload("Driver").Preload("Vendor").Preload("Requester").
		First(&trip, "id = ?", tripID).Error; err != nil {
		return nil, tripLoadError(err)
	}

	if ownOnly(actor.Role) && trip.RequestedBy != actor.ID {
		return nil, apperr.Forbidden("not_trip_owner", "trip belongs to another requester")
	}

	resp := toTripResponse(&trip)
	return &resp, nil
}

func (s *tripService) ListTrips(ctx context.Context, actor model.Actor, filter TripFilter) ([]TripResponse, int64, error) {
	return s.listTrips(ctx, actor, filter, false)
}

// TripHistory returns only trips whose lifecycle has ended.
func (s *tripService) TripHistory(ctx context.Context, actor model.Actor, filter TripFilter) ([]TripResponse, int64, error) {
	return s.listTrips(ctx, actor, filter, true)
}

func (s *tripService) listTrips(ctx context.Context, actor model.Actor, filter TripFilter, terminalOnly bool) ([]TripResponse, int64, error) {
	applyFilter := func(q *gorm.DB) *gorm.DB {
		if terminalOnly {
			q = q.Where("stage = ?", model.StageClosed)
		} else if filter.Stage != "" {
			q = q.Where("stage = ?", filter.Stage)
		}
		if ownOnly(actor.Role) {
			q = q.Where("requested_by = ?", actor.ID)
		}
		return q
	}

	var total int64
	if err := applyFilter(s.db.WithContext(ctx).Model(&model.Trip{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	var trips []model.Trip
	if err := applyFilter(s.db.WithContext(ctx)).
		Preload("Vehicle").Preload("Driver").Preload("Vendor").Preload("Requester").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&trips).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch trips: %w", err)
	}

	result := make([]TripResponse, 0, len(trips))
	for i := range trips {
		result = append(result, toTripResponse(&trips[i]))
	}
	return result, total, nil
}

// ownOnly reports whether the role's read model is scoped to trips the actor
// requested themselves.
func ownOnly(role string) bool {
	return role == authz.RoleSales || role == authz.RoleSalesVehicles
}

// --- Helpers ---

func (s *tripService) reload(ctx context.Context, tripID uuid.UUID) (*TripResponse, error) {
	var trip model.Trip
	if err := s.db.WithContext(ctx).
		Preload("Vehicle").Preload("Driver").Preload("Vendor").Preload("Requester").
		First(&trip, "id = ?", tripID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload trip: %w", err)
	}
	resp := toTripResponse(&trip)
	return &resp, nil
}

func (s *tripService) publishTripEvent(evtType string, trip *model.Trip) {
	s.hub.Publish(evtType, model.EntityTrip, trip.ID.String(), map[string]interface{}{
		"code":  trip.Code,
		"stage": trip.Stage,
	})
}

func tripLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("trip_not_found", "trip does not exist")
	}
	return fmt.Errorf("failed to load trip: %w", err)
}

// lookupVehicleType resolves a requested type against the master catalog.
// Unknown names are a validation error; a broken catalog read is surfaced as
// a missing dependency, never as validation.
func lookupVehicleType(tx *gorm.DB, name string) (*model.VehicleType, error) {
	var vt model.VehicleType
	if err := tx.First(&vt, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validation("unknown_vehicle_type", "vehicle type is not in the master catalog")
		}
		return nil, apperr.Dependency("vehicle master catalog unavailable", err)
	}
	return &vt, nil
}

func generateTripCode(tx *gorm.DB) (string, error) {
	today := time.Now().Format("20060102")
	prefix := "TRP-" + today + "-"

	// Advisory lock prevents concurrent duplicate trip codes
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix).Error; err != nil {
		return "", fmt.Errorf("failed to acquire trip code lock: %w", err)
	}

	var count int64
	if err := tx.Model(&model.Trip{}).
		Where("code LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func toTripResponse(t *model.Trip) TripResponse {
	resp := TripResponse{
		ID:              t.ID.String(),
		Code:            t.Code,
		CustomerID:      t.CustomerID,
		CustomerName:    t.CustomerName,
		PickupLocation:  t.PickupLocation,
		DropLocation:    t.DropLocation,
		VehicleType:     t.VehicleType,
		VehicleLengthFt: t.VehicleLengthFt,
		WeightTonnes:    t.WeightTonnes.String(),
		PlannedKm:       t.PlannedKm,
		ScheduleDate:    t.ScheduleDate,
		Stage:           string(t.Stage),
		IsLeased:        t.IsLeased,
		Notes:           t.Notes,
		RequestedBy:     t.RequestedBy.String(),
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       t.UpdatedAt.Format(time.RFC3339),
	}
	if t.Amount != nil {
		s := t.Amount.StringFixed(2)
		resp.Amount = &s
	}
	if t.VehicleID != nil {
		s := t.VehicleID.String()
		resp.VehicleID = &s
	}
	if t.Vehicle != nil {
		resp.VehicleRegistration = t.Vehicle.RegistrationNumber
	}
	if t.DriverID != nil {
		s := t.DriverID.String()
		resp.DriverID = &s
	}
	if t.Driver != nil {
		resp.DriverName = t.Driver.Name
	}
	if t.VendorID != nil {
		s := t.VendorID.String()
		resp.VendorID = &s
	}
	if t.Vendor != nil {
		resp.VendorName = t.Vendor.Name
	}
	if t.Requester != nil {
		resp.RequesterName = t.Requester.Username
	}
	if t.StartedAt != nil {
		s := t.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &s
	}
	if t.CompletedAt != nil {
		s := t.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}
