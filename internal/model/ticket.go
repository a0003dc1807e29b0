package model

import (
	"time"

	"github.com/google/uuid"
)

// Ticket statuses.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketWaiting    = "waiting"
	TicketResolved   = "resolved"
)

// Ticket source types distinguishing auto-generated tickets from manual ones.
const (
	TicketSourceManual  = "manual"
	TicketSourceTrip    = "trip"
	TicketSourcePayment = "payment_request"
)

// Ticket issue types raised by the workflow engine.
const (
	IssueVehicleAssignmentPending = "vehicle_assignment_pending"
	IssuePaymentProofRequired     = "payment_proof_required"
)

// ticketEdges is the complete set of allowed status transitions. Nothing
// outside this table is ever applied.
var ticketEdges = map[string][]string{
	TicketOpen:       {TicketInProgress},
	TicketInProgress: {TicketWaiting, TicketResolved},
	TicketWaiting:    {TicketResolved},
	TicketResolved:   {TicketOpen}, // reopen
}

// TicketStatusValid reports membership in the closed status set.
func TicketStatusValid(s string) bool {
	_, ok := ticketEdges[s]
	return ok
}

// TicketCanTransition reports whether from -> to is an allowed edge.
func TicketCanTransition(from, to string) bool {
	for _, next := range ticketEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Ticket is an operational follow-up item, created manually or derived from a
// workflow event.
type Ticket struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TripID       *uuid.UUID `gorm:"type:uuid;index" json:"trip_id"`
	Trip         *Trip      `gorm:"foreignKey:TripID" json:"trip,omitempty"`
	IssueType    string     `gorm:"type:varchar(50);not null" json:"issue_type"`
	Title        string     `gorm:"type:varchar(255);not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	Status       string     `gorm:"type:varchar(15);not null;default:'open';index" json:"status"`
	AssignedRole string     `gorm:"type:varchar(30);index" json:"assigned_role"`
	AssignedTo   *uuid.UUID `gorm:"type:uuid" json:"assigned_to"`
	Assignee     *User      `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	CreatedBy    *uuid.UUID `gorm:"type:uuid" json:"created_by"` // nil for system-generated
	Creator      *User      `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	ResolvedBy   *uuid.UUID `gorm:"type:uuid" json:"resolved_by"`
	Resolver     *User      `gorm:"foreignKey:ResolvedBy" json:"resolver,omitempty"`
	SourceType   string     `gorm:"type:varchar(20);not null;default:'manual'" json:"source_type"`
	SourceID     *uuid.UUID `gorm:"type:uuid" json:"source_id"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
