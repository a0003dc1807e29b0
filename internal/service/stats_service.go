package service

import (
	"context"
	"time"

	"freightops/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StageCount struct {
	Stage model.TripStage `json:"stage"`
	Count int64           `json:"count"`
}

type RoleTicketCount struct {
	AssignedRole string `json:"assigned_role"`
	Count        int64  `json:"count"`
}

type StatsResponse struct {
	TimeRangeStartDate time.Time         `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time         `json:"time_range_end_date"`
	TripsByStage       []StageCount      `json:"trips_by_stage"`
	TripsCreated       int64             `json:"trips_created"`
	TripsClosed        int64             `json:"trips_closed"`
	QuotedValue        decimal.Decimal   `json:"quoted_value"`
	AdvancesPaid       decimal.Decimal   `json:"advances_paid"`
	FinalsPaid         decimal.Decimal   `json:"finals_paid"`
	PendingPayments    int64             `json:"pending_payments"`
	OpenTicketsByRole  []RoleTicketCount `json:"open_tickets_by_role"`
	VehiclesOnTrip     int64             `json:"vehicles_on_trip"`
	VehiclesAvailable  int64             `json:"vehicles_available"`
}

type StatsService interface {
	GetStats(ctx context.Context, startDate, endDate time.Time) (StatsResponse, error)
}

type statsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) StatsService {
	return &statsService{db: db}
}

// GetStats aggregates the operational dashboard for a time bracket. Counts
// keyed by stage or role cover the whole table; created/closed/value figures
// honor the bracket.
func (s *statsService) GetStats(ctx context.Context, startDate, endDate time.Time) (StatsResponse, error) {
	var response StatsResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	var byStage []StageCount
	if err := s.db.WithContext(ctx).Model(&model.Trip{}).
		Select("stage, COUNT(*) as count").
		Group("stage").
		Scan(&byStage).Error; err != nil {
		return response, err
	}
	response.TripsByStage = byStage

	if err := s.db.WithContext(ctx).Model(&model.Trip{}).
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Count(&response.TripsCreated).Error; err != nil {
		return response, err
	}

	if err := s.db.WithContext(ctx).Model(&model.Trip{}).
		Where("stage = ? AND completed_at >= ? AND completed_at <= ?", model.StageClosed, startDate, endDate).
		Count(&response.TripsClosed).Error; err != nil {
		return response, err
	}

	var quoted struct {
		Value decimal.Decimal
	}
	if err := s.db.WithContext(ctx).Model(&model.Trip{}).
		Select("COALESCE(SUM(amount), 0) as value").
		Where("amount IS NOT NULL AND created_at >= ? AND created_at <= ?", startDate, endDate).
		Scan(&quoted).Error; err != nil {
		return response, err
	}
	response.QuotedValue = quoted.Value

	paidSum := func(paymentType string) (decimal.Decimal, error) {
		var row struct {
			Value decimal.Decimal
		}
		err := s.db.WithContext(ctx).Model(&model.PaymentRequest{}).
			Select("COALESCE(SUM(amount), 0) as value").
			Where("type = ? AND status = ? AND paid_at >= ? AND paid_at <= ?", paymentType, model.PaymentPaid, startDate, endDate).
			Scan(&row).Error
		return row.Value, err
	}

	var err error
	if response.AdvancesPaid, err = paidSum(model.PaymentTypeAdvance); err != nil {
		return response, err
	}
	if response.FinalsPaid, err = paidSum(model.PaymentTypeFinal); err != nil {
		return response, err
	}

	if err := s.db.WithContext(ctx).Model(&model.PaymentRequest{}).
		Where("status IN ?", []string{model.PaymentPending, model.PaymentApproved}).
		Count(&response.PendingPayments).Error; err != nil {
		return response, err
	}

	var openTickets []RoleTicketCount
	if err := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Select("assigned_role, COUNT(*) as count").
		Where("status <> ?", model.TicketResolved).
		Group("assigned_role").
		Scan(&openTickets).Error; err != nil {
		return response, err
	}
	response.OpenTicketsByRole = openTickets

	if err := s.db.WithContext(ctx).Model(&model.Vehicle{}).
		Where("status = ?", model.VehicleOnTrip).
		Count(&response.VehiclesOnTrip).Error; err != nil {
		return response, err
	}
	if err := s.db.WithContext(ctx).Model(&model.Vehicle{}).
		Where("status = ?", model.VehicleAvailable).
		Count(&response.VehiclesAvailable).Error; err != nil {
		return response, err
	}

	return response, nil
}
