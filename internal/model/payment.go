package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment request types. Advance gates loading, final gates vendor settlement.
const (
	PaymentTypeAdvance = "advance"
	PaymentTypeFinal   = "final"
)

// Payment request statuses: pending -> approved -> paid, or pending -> rejected.
const (
	PaymentPending  = "pending"
	PaymentApproved = "approved"
	PaymentPaid     = "paid"
	PaymentRejected = "rejected"
)

// Payment methods with disjoint detail sets.
const (
	PaymentMethodBank = "bank"
	PaymentMethodUPI  = "upi"
)

// PaymentRequest is the advance/final sub-workflow item attached to a trip.
// At most one non-terminal request of a given type may exist per trip.
type PaymentRequest struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TripID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"trip_id"`
	Trip        *Trip           `gorm:"foreignKey:TripID" json:"trip,omitempty"`
	Type        string          `gorm:"type:varchar(10);not null;index" json:"type"` // advance | final
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Beneficiary string          `gorm:"type:varchar(255);not null" json:"beneficiary"`
	Method      string          `gorm:"type:varchar(10);not null" json:"method"` // bank | upi

	// Bank detail set
	BankHolderName    string `gorm:"type:varchar(255)" json:"bank_holder_name,omitempty"`
	BankAccountNumber string `gorm:"type:varchar(34)" json:"bank_account_number,omitempty"`
	BankIFSC          string `gorm:"type:varchar(11)" json:"bank_ifsc,omitempty"`
	BankName          string `gorm:"type:varchar(255)" json:"bank_name,omitempty"`

	// UPI detail set: either a handle or an uploaded QR object reference
	UpiID         string `gorm:"type:varchar(256)" json:"upi_id,omitempty"`
	QRObjectKey   string `gorm:"type:varchar(512)" json:"qr_object_key,omitempty"`
	QRFileName    string `gorm:"type:varchar(255)" json:"qr_file_name,omitempty"`
	QRContentType string `gorm:"type:varchar(100)" json:"qr_content_type,omitempty"`
	QRSizeBytes   int64  `json:"qr_size_bytes,omitempty"`

	Status          string     `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`
	RequestedBy     uuid.UUID  `gorm:"type:uuid;not null" json:"requested_by"`
	Requester       *User      `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	ReviewedBy      *uuid.UUID `gorm:"type:uuid" json:"reviewed_by"`
	Reviewer        *User      `gorm:"foreignKey:ReviewedBy" json:"reviewer,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	PaidAt          *time.Time `json:"paid_at"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Terminal reports whether the request can no longer change.
func (p *PaymentRequest) Terminal() bool {
	return p.Status == PaymentPaid || p.Status == PaymentRejected
}
