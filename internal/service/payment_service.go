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

type CreatePaymentRequestDTO struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Beneficiary string          `json:"beneficiary" binding:"required"`
	Method      string          `json:"method" binding:"required,oneof=bank upi"`
	Bank        *BankDetails    `json:"bank"`
	Upi         *UPIDetails     `json:"upi"`
}

type RejectPaymentDTO struct {
	Reason string `json:"reason"`
}

type PaymentFilter struct {
	TripID string
	Type   string
	Status string
	Page   int
	Limit  int
}

type PaymentResponse struct {
	ID              string  `json:"id"`
	TripID          string  `json:"trip_id"`
	TripCode        string  `json:"trip_code,omitempty"`
	Type            string  `json:"type"`
	Amount          string  `json:"amount"`
	Beneficiary     string  `json:"beneficiary"`
	Method          string  `json:"method"`
	Status          string  `json:"status"`
	RequestedBy     string  `json:"requested_by"`
	ReviewedBy      *string `json:"reviewed_by"`
	ReviewedAt      *string `json:"reviewed_at"`
	PaidAt          *string `json:"paid_at"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	CreatedAt       string  `json:"created_at"`

	BankHolderName    string `json:"bank_holder_name,omitempty"`
	BankAccountNumber string `json:"bank_account_number,omitempty"`
	BankIFSC          string `json:"bank_ifsc,omitempty"`
	BankName          string `json:"bank_name,omitempty"`
	UpiID             string `json:"upi_id,omitempty"`
	QRObjectKey       string `json:"qr_object_key,omitempty"`
}

// --- Interface ---

type PaymentService interface {
	CreateAdvanceRequest(ctx context.Context, actor model.Actor, tripID string, req CreatePaymentRequestDTO) (*PaymentResponse, error)
	CreateFinalRequest(ctx context.Context, actor model.Actor, tripID string, req CreatePaymentRequestDTO) (*PaymentResponse, error)
	ApprovePayment(ctx context.Context, actor model.Actor, id string) (*PaymentResponse, error)
	RejectPayment(ctx context.Context, actor model.Actor, id string, reason string) (*PaymentResponse, error)
	MarkPaymentPaid(ctx context.Context, actor model.Actor, id string) (*PaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*PaymentResponse, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]PaymentResponse, int64, error)
}

type paymentService struct {
	db  *gorm.DB
	hub *websocket.Hub
}

func NewPaymentService(db *gorm.DB, hub *websocket.Hub) PaymentService {
	return &paymentService{db: db, hub: hub}
}

// --- Creation ---

// CreateAdvanceRequest opens the advance payment sub-workflow. Allowed once
// the trip has a vehicle; at most one non-terminal advance request per trip.
func (s *paymentService) CreateAdvanceRequest(ctx context.Context, actor model.Actor, tripID string, req CreatePaymentRequestDTO) (*PaymentResponse, error) {
	return s.createRequest(ctx, actor, tripID, model.PaymentTypeAdvance, req)
}

// CreateFinalRequest opens the final payment sub-workflow. Requires a quoted
// trip amount and a paid advance; the requested amount must reconcile with
// trip amount minus paid advance.
func (s *paymentService) CreateFinalRequest(ctx context.Context, actor model.Actor, tripID string, req CreatePaymentRequestDTO) (*PaymentResponse, error) {
	return s.createRequest(ctx, actor, tripID, model.PaymentTypeFinal, req)
}

func (s *paymentService) createRequest(ctx context.Context, actor model.Actor, tripID, paymentType string, req CreatePaymentRequestDTO) (*PaymentResponse, error) {
	parsedTripID, err := uuid.Parse(tripID)
	if err != nil {
		return nil, apperr.Validation("trip_id_invalid", "invalid trip id")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.Validation("amount_invalid", "amount must be positive")
	}
	if err := validatePaymentDetails(req.Method, req.Bank, req.Upi); err != nil {
		return nil, err
	}

	var payment model.PaymentRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialize concurrent creations of the same type for the same trip
		// at the store so two callers cannot both slip past the count below.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "payment:"+paymentType+":"+tripID).Error; err != nil {
			return fmt.Errorf("failed to acquire payment request lock: %w", err)
		}

		var trip model.Trip
		if err := tx.First(&trip, "id = ?", parsedTripID).Error; err != nil {
			return tripLoadError(err)
		}
		if trip.Stage.Terminal() {
			return apperr.Precondition("trip_closed", "trip lifecycle has ended")
		}
		if !trip.Stage.AtLeast(model.StageVehicleAssigned) {
			return apperr.Precondition("vehicle_not_assigned", "payment requests require an assigned vehicle")
		}

		if paymentType == model.PaymentTypeFinal {
			if trip.Amount == nil {
				return apperr.Precondition("trip_amount_not_set", "trip amount must be quoted before a final payment request")
			}
			advancePaid, err := paidAmount(tx, trip.ID, model.PaymentTypeAdvance)
			if err != nil {
				return err
			}
			if advancePaid == nil {
				return apperr.Precondition("advance_not_paid_yet", "the advance payment must be paid before requesting the final payment")
			}
			if err := reconcileFinalAmount(*trip.Amount, *advancePaid, req.Amount); err != nil {
				return err
			}
		}

		var active int64
		if err := tx.Model(&model.PaymentRequest{}).
			Where("trip_id = ? AND type = ? AND status IN ?", trip.ID, paymentType,
				[]string{model.PaymentPending, model.PaymentApproved}).
			Count(&active).Error; err != nil {
			return fmt.Errorf("failed to check active payment requests: %w", err)
		}
		if active > 0 {
			if paymentType == model.PaymentTypeAdvance {
				return apperr.Conflict("active_advance_exists", "an active advance request already exists for this trip")
			}
			return apperr.Conflict("active_final_payment_exists", "an active final payment request already exists for this trip")
		}

		payment = model.PaymentRequest{
			TripID:      trip.ID,
			Type:        paymentType,
			Amount:      req.Amount,
			Beneficiary: req.Beneficiary,
			Method:      req.Method,
			Status:      model.PaymentPending,
			RequestedBy: actor.ID,
		}
		if req.Bank != nil {
			payment.BankHolderName = req.Bank.HolderName
			payment.BankAccountNumber = req.Bank.AccountNumber
			payment.BankIFSC = req.Bank.IFSC
			payment.BankName = req.Bank.BankName
		}
		if req.Upi != nil {
			payment.UpiID = req.Upi.UpiID
			payment.QRObjectKey = req.Upi.QRObjectKey
			payment.QRFileName = req.Upi.QRFileName
			payment.QRContentType = req.Upi.QRContentType
			payment.QRSizeBytes = req.Upi.QRSizeBytes
		}

		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to create payment request: %w", err)
		}

		return writeAudit(tx, &actor.ID, model.ActionCreatePaymentRequest, model.EntityPaymentRequest, payment.ID.String(), map[string]interface{}{
			"trip_code": trip.Code,
			"type":      paymentType,
			"amount":    req.Amount.StringFixed(2),
			"method":    req.Method,
		})
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish("payment.requested", model.EntityPaymentRequest, payment.ID.String(), map[string]interface{}{
		"trip_id": tripID,
		"type":    paymentType,
	})
	return s.reload(ctx, payment.ID)
}

// paidAmount returns the amount of the paid request of the given type, nil
// when none has been paid.
func paidAmount(tx *gorm.DB, tripID uuid.UUID, paymentType string) (*decimal.Decimal, error) {
	var paid model.PaymentRequest
	err := tx.Where("trip_id = ? AND type = ? AND status = ?", tripID, paymentType, model.PaymentPaid).
		First(&paid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load paid payment: %w", err)
	}
	return &paid.Amount, nil
}

// --- Review ---

func (s *paymentService) ApprovePayment(ctx context.Context, actor model.Actor, id string) (*PaymentResponse, error) {
	payment, err := s.review(ctx, actor, id, func(tx *gorm.DB, p *model.PaymentRequest, trip *model.Trip) error {
		if p.Status != model.PaymentPending {
			return apperr.Precondition("payment_not_pending", "payment request is already "+p.Status)
		}
		now := time.Now()
		p.Status = model.PaymentApproved
		p.ReviewedBy = &actor.ID
		p.ReviewedAt = &now
		if err := tx.Save(p).Error; err != nil {
			return fmt.Errorf("failed to approve payment request: %w", err)
		}

		// The accounts team now owes a payment proof; raise the follow-up in
		// the same transaction.
		if err := createAutoTicket(tx, &model.Ticket{
			TripID:       &p.TripID,
			IssueType:    model.IssuePaymentProofRequired,
			Title:        "Payment proof required for " + trip.Code,
			Description:  fmt.Sprintf("%s payment of %s approved, execution proof pending.", p.Type, p.Amount.StringFixed(2)),
			AssignedRole: authz.RoleAccounts,
			SourceType:   model.TicketSourcePayment,
			SourceID:     &p.ID,
		}); err != nil {
			return err
		}

		if trip.AccountsOwnerID == nil {
			if err := tx.Model(&model.Trip{}).Where("id = ?", trip.ID).
				Update("accounts_owner_id", actor.ID).Error; err != nil {
				return fmt.Errorf("failed to record accounts owner: %w", err)
			}
		}

		return writeAudit(tx, &actor.ID, model.ActionApprovePayment, model.EntityPaymentRequest, p.ID.String(), map[string]interface{}{
			"trip_code": trip.Code,
			"type":      p.Type,
			"amount":    p.Amount.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish("payment.approved", model.EntityPaymentRequest, id, nil)
	return payment, nil
}

func (s *paymentService) RejectPayment(ctx context.Context, actor model.Actor, id string, reason string) (*PaymentResponse, error) {
	payment, err := s.review(ctx, actor, id, func(tx *gorm.DB, p *model.PaymentRequest, trip *model.Trip) error {
		if p.Status != model.PaymentPending {
			return apperr.Precondition("payment_not_pending", "payment request is already "+p.Status)
		}
		now := time.Now()
		p.Status = model.PaymentRejected
		p.ReviewedBy = &actor.ID
		p.ReviewedAt = &now
		p.RejectionReason = reason
		if err := tx.Save(p).Error; err != nil {
			return fmt.Errorf("failed to reject payment request: %w", err)
		}

		return writeAudit(tx, &actor.ID, model.ActionRejectPayment, model.EntityPaymentRequest, p.ID.String(), map[string]interface{}{
			"trip_code": trip.Code,
			"type":      p.Type,
			"reason":    reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish("payment.rejected", model.EntityPaymentRequest, id, nil)
	return payment, nil
}

// MarkPaymentPaid records execution of an approved request. This is the
// trigger that unblocks the dependent trip-stage transition.
func (s *paymentService) MarkPaymentPaid(ctx context.Context, actor model.Actor, id string) (*PaymentResponse, error) {
	payment, err := s.review(ctx, actor, id, func(tx *gorm.DB, p *model.PaymentRequest, trip *model.Trip) error {
		if p.Status != model.PaymentApproved {
			return apperr.Precondition("payment_not_approved", "only an approved payment request can be marked paid")
		}
		now := time.Now()
		p.Status = model.PaymentPaid
		p.PaidAt = &now
		if err := tx.Save(p).Error; err != nil {
			return fmt.Errorf("failed to mark payment paid: %w", err)
		}

		return writeAudit(tx, &actor.ID, model.ActionMarkPaymentPaid, model.EntityPaymentRequest, p.ID.String(), map[string]interface{}{
			"trip_code": trip.Code,
			"type":      p.Type,
			"amount":    p.Amount.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish("payment.paid", model.EntityPaymentRequest, id, nil)
	return payment, nil
}

// review runs a payment mutation under a row lock with the owning trip loaded.
func (s *paymentService) review(ctx context.Context, actor model.Actor, id string, fn func(tx *gorm.DB, p *model.PaymentRequest, trip *model.Trip) error) (*PaymentResponse, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("payment_id_invalid", "invalid payment request id")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment model.PaymentRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, "id = ?", paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("payment_not_found", "payment request does not exist")
			}
			return fmt.Errorf("failed to load payment request: %w", err)
		}

		var trip model.Trip
		if err := tx.First(&trip, "id = ?", payment.TripID).Error; err != nil {
			return tripLoadError(err)
		}

		return fn(tx, &payment, &trip)
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, paymentID)
}

// --- Reads ---

func (s *paymentService) GetPayment(ctx context.Context, id string) (*PaymentResponse, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("payment_id_invalid", "invalid payment request id")
	}
	return s.reload(ctx, paymentID)
}

func (s *paymentService) ListPayments(ctx context.Context, filter PaymentFilter) ([]PaymentResponse, int64, error) {
	applyFilter := func(q *gorm.DB) *gorm.DB {
		if filter.TripID != "" {
			q = q.Where("trip_id = ?", filter.TripID)
		}
		if filter.Type != "" {
			q = q.Where("type = ?", filter.Type)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	var total int64
	if err := applyFilter(s.db.WithContext(ctx).Model(&model.PaymentRequest{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payment requests: %w", err)
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	var payments []model.PaymentRequest
	if err := applyFilter(s.db.WithContext(ctx)).
		Preload("Trip").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&payments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch payment requests: %w", err)
	}

	result := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		result = append(result, toPaymentResponse(&payments[i]))
	}
	return result, total, nil
}

func (s *paymentService) reload(ctx context.Context, id uuid.UUID) (*PaymentResponse, error) {
	var payment model.PaymentRequest
	if err := s.db.WithContext(ctx).Preload("Trip").First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("payment_not_found", "payment request does not exist")
		}
		return nil, fmt.Errorf("failed to reload payment request: %w", err)
	}
	resp := toPaymentResponse(&payment)
	return &resp, nil
}

func toPaymentResponse(p *model.PaymentRequest) PaymentResponse {
	resp := PaymentResponse{
		ID:              p.ID.String(),
		TripID:          p.TripID.String(),
		Type:            p.Type,
		Amount:          p.Amount.StringFixed(2),
		Beneficiary:     p.Beneficiary,
		Method:          p.Method,
		Status:          p.Status,
		RequestedBy:     p.RequestedBy.String(),
		RejectionReason: p.RejectionReason,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),

		BankHolderName:    p.BankHolderName,
		BankAccountNumber: p.BankAccountNumber,
		BankIFSC:          p.BankIFSC,
		BankName:          p.BankName,
		UpiID:             p.UpiID,
		QRObjectKey:       p.QRObjectKey,
	}
	if p.Trip != nil {
		resp.TripCode = p.Trip.Code
	}
	if p.ReviewedBy != nil {
		s := p.ReviewedBy.String()
		resp.ReviewedBy = &s
	}
	if p.ReviewedAt != nil {
		s := p.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &s
	}
	if p.PaidAt != nil {
		s := p.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &s
	}
	return resp
}
