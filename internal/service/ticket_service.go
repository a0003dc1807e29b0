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
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// createAutoTicket derives an operational ticket from a workflow event inside
// the caller's transaction. Auto tickets carry no creator and point their
// source at the originating entity.
func createAutoTicket(tx *gorm.DB, ticket *model.Ticket) error {
	ticket.Status = model.TicketOpen
	if err := tx.Create(ticket).Error; err != nil {
		return fmt.Errorf("failed to auto-create ticket: %w", err)
	}
	return writeAudit(tx, nil, model.ActionAutoCreateTicket, model.EntityTicket, ticket.ID.String(), map[string]interface{}{
		"issue_type":    ticket.IssueType,
		"assigned_role": ticket.AssignedRole,
		"source_type":   ticket.SourceType,
	})
}

// --- DTOs ---

type CreateTicketRequest struct {
	TripID       *string `json:"trip_id"`
	IssueType    string  `json:"issue_type" binding:"required"`
	Title        string  `json:"title" binding:"required"`
	Description  string  `json:"description"`
	AssignedRole string  `json:"assigned_role"`
	AssignedTo   *string `json:"assigned_to"`
}

type UpdateTicketStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type TicketFilter struct {
	Status       string
	TripID       string
	AssignedRole string
	Page         int
	Limit        int
}

type TicketResponse struct {
	ID           string  `json:"id"`
	TripID       *string `json:"trip_id"`
	TripCode     string  `json:"trip_code,omitempty"`
	IssueType    string  `json:"issue_type"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Status       string  `json:"status"`
	AssignedRole string  `json:"assigned_role"`
	AssignedTo   *string `json:"assigned_to"`
	CreatedBy    *string `json:"created_by"`
	CreatorName  string  `json:"creator_name,omitempty"`
	ResolvedBy   *string `json:"resolved_by"`
	SourceType   string  `json:"source_type"`
	SourceID     *string `json:"source_id"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// --- Interface ---

type TicketService interface {
	CreateTicket(ctx context.Context, actor model.Actor, req CreateTicketRequest) (*TicketResponse, error)
	UpdateTicketStatus(ctx context.Context, actor model.Actor, id string, status string) (*TicketResponse, error)
	GetTicket(ctx context.Context, id string) (*TicketResponse, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]TicketResponse, int64, error)
}

type ticketService struct {
	db  *gorm.DB
	hub *websocket.Hub
}

func NewTicketService(db *gorm.DB, hub *websocket.Hub) TicketService {
	return &ticketService{db: db, hub: hub}
}

// --- Implementation ---

func (s *ticketService) CreateTicket(ctx context.Context, actor model.Actor, req CreateTicketRequest) (*TicketResponse, error) {
	if req.AssignedRole != "" && !authz.ValidRole(req.AssignedRole) {
		return nil, apperr.Validation("assigned_role_invalid", "assigned role is not a known role")
	}

	ticket := model.Ticket{
		IssueType:    req.IssueType,
		Title:        req.Title,
		Description:  req.Description,
		Status:       model.TicketOpen,
		AssignedRole: req.AssignedRole,
		CreatedBy:    &actor.ID,
		SourceType:   model.TicketSourceManual,
	}

	if req.TripID != nil && *req.TripID != "" {
		tripID, err := uuid.Parse(*req.TripID)
		if err != nil {
			return nil, apperr.Validation("trip_id_invalid", "invalid trip id")
		}
		ticket.TripID = &tripID
	}
	if req.AssignedTo != nil && *req.AssignedTo != "" {
		assignee, err := uuid.Parse(*req.AssignedTo)
		if err != nil {
			return nil, apperr.Validation("assignee_invalid", "invalid assignee id")
		}
		ticket.AssignedTo = &assignee
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ticket.TripID != nil {
			var trip model.Trip
			if err := tx.First(&trip, "id = ?", *ticket.TripID).Error; err != nil {
				return tripLoadError(err)
			}
		}

		if err := tx.Create(&ticket).Error; err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}

		return writeAudit(tx, &actor.ID, model.ActionCreateTicket, model.EntityTicket, ticket.ID.String(), map[string]interface{}{
			"issue_type": ticket.IssueType,
			"title":      ticket.Title,
		})
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish("ticket.created", model.EntityTicket, ticket.ID.String(), map[string]interface{}{
		"issue_type": ticket.IssueType,
	})
	return s.reload(ctx, ticket.ID)
}

// UpdateTicketStatus applies one status edge. The edge set is closed; no
// skips are accepted.
func (s *ticketService) UpdateTicketStatus(ctx context.Context, actor model.Actor, id string, status string) (*TicketResponse, error) {
	ticketID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("ticket_id_invalid", "invalid ticket id")
	}
	if !model.TicketStatusValid(status) {
		return nil, apperr.Validation("ticket_status_invalid", "unknown ticket status")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticket model.Ticket
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ticket, "id = ?", ticketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("ticket_not_found", "ticket does not exist")
			}
			return fmt.Errorf("failed to load ticket: %w", err)
		}

		if ticket.Status == status {
			return apperr.Precondition("already_in_status", "ticket is already "+status)
		}
		if !model.TicketCanTransition(ticket.Status, status) {
			return apperr.Precondition("ticket_transition_invalid",
				fmt.Sprintf("cannot move ticket from %s to %s", ticket.Status, status))
		}

		updates := map[string]interface{}{"status": status}
		switch status {
		case model.TicketResolved:
			updates["resolved_by"] = actor.ID
		case model.TicketOpen:
			// Reopen clears the resolver.
			updates["resolved_by"] = nil
		}

		res := tx.Model(&model.Ticket{}).Where("id = ? AND status = ?", ticket.ID, ticket.Status).Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update ticket status: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("ticket_status_conflict", "ticket status changed concurrently")
		}

		return writeAudit(tx, &actor.ID, model.ActionUpdateTicketStatus, model.EntityTicket, ticket.ID.String(), map[string]interface{}{
			"from": ticket.Status,
			"to":   status,
		})
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish("ticket.status_changed", model.EntityTicket, id, map[string]interface{}{"status": status})
	return s.reload(ctx, ticketID)
}

func (s *ticketService) GetTicket(ctx context.Context, id string) (*TicketResponse, error) {
	ticketID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("ticket_id_invalid", "invalid ticket id")
	}
	return s.reload(ctx, ticketID)
}

func (s *ticketService) ListTickets(ctx context.Context, filter TicketFilter) ([]TicketResponse, int64, error) {
	applyFilter := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.TripID != "" {
			q = q.Where("trip_id = ?", filter.TripID)
		}
		if filter.AssignedRole != "" {
			q = q.Where("assigned_role = ?", filter.AssignedRole)
		}
		return q
	}

	var total int64
	if err := applyFilter(s.db.WithContext(ctx).Model(&model.Ticket{})).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tickets: %w", err)
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	var tickets []model.Ticket
	if err := applyFilter(s.db.WithContext(ctx)).
		Preload("Trip").Preload("Creator").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&tickets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tickets: %w", err)
	}

	result := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, toTicketResponse(&tickets[i]))
	}
	return result, total, nil
}

func (s *ticketService) reload(ctx context.Context, id uuid.UUID) (*TicketResponse, error) {
	var ticket model.Ticket
	if err := s.db.WithContext(ctx).Preload("Trip").Preload("Creator").First(&ticket, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("ticket_not_found", "ticket does not exist")
		}
		return nil, fmt.Errorf("failed to reload ticket: %w", err)
	}
	resp := toTicketResponse(&ticket)
	return &resp, nil
}

func toTicketResponse(t *model.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:           t.ID.String(),
		IssueType:    t.IssueType,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		AssignedRole: t.AssignedRole,
		SourceType:   t.SourceType,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    t.UpdatedAt.Format(time.RFC3339),
	}
	if t.TripID != nil {
		s := t.TripID.String()
		resp.TripID = &s
	}
	if t.Trip != nil {
		resp.TripCode = t.Trip.Code
	}
	if t.AssignedTo != nil {
		s := t.AssignedTo.String()
		resp.AssignedTo = &s
	}
	if t.CreatedBy != nil {
		s := t.CreatedBy.String()
		resp.CreatedBy = &s
	}
	if t.Creator != nil {
		resp.CreatorName = t.Creator.Username
	}
	if t.ResolvedBy != nil {
		s := t.ResolvedBy.String()
		resp.ResolvedBy = &s
	}
	if t.SourceID != nil {
		s := t.SourceID.String()
		resp.SourceID = &s
	}
	return resp
}
