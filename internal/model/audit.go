package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateTrip          = "CREATE_TRIP"
	ActionEditTrip            = "EDIT_TRIP"
	ActionQuoteTrip           = "QUOTE_TRIP"
	ActionTripStageChange     = "TRIP_STAGE_CHANGE"
	ActionAssignVehicle       = "ASSIGN_VEHICLE"
	ActionConfirmLoadingProof = "CONFIRM_LOADING_PROOF"

	// Payment workflow actions
	ActionCreatePaymentRequest = "CREATE_PAYMENT_REQUEST"
	ActionApprovePayment       = "APPROVE_PAYMENT"
	ActionRejectPayment        = "REJECT_PAYMENT"
	ActionMarkPaymentPaid      = "MARK_PAYMENT_PAID"

	// Ticket actions
	ActionCreateTicket       = "CREATE_TICKET"
	ActionAutoCreateTicket   = "AUTO_CREATE_TICKET"
	ActionUpdateTicketStatus = "UPDATE_TICKET_STATUS"

	// Supporting entity actions
	ActionCreateUser    = "CREATE_USER"
	ActionUpdateUser    = "UPDATE_USER"
	ActionDeleteUser    = "DELETE_USER"
	ActionCreateVehicle = "CREATE_VEHICLE"
	ActionUpdateVehicle = "UPDATE_VEHICLE"
	ActionCreateDriver  = "CREATE_DRIVER"
	ActionUpdateDriver  = "UPDATE_DRIVER"
	ActionCreateVendor  = "CREATE_VENDOR"
)

// Audit entity types
const (
	EntityTrip           = "trip"
	EntityPaymentRequest = "payment_request"
	EntityTicket         = "ticket"
	EntityUser           = "user"
	EntityVehicle        = "vehicle"
	EntityDriver         = "driver"
	EntityVendor         = "vendor"
	EntityTripDocument   = "trip_document"
)

// AuditLog tracks who did what and when for every state-changing operation.
// Rows are written in the same transaction as the mutation they describe and
// are never updated or deleted.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for system-generated events
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string     `gorm:"type:varchar(30);not null;index" json:"entity_type"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	Details    string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
