package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"freightops/internal/apperr"
	"freightops/internal/authz"
	"freightops/internal/model"
	"freightops/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTicketService is a mock implementation of service.TicketService
type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) CreateTicket(ctx context.Context, actor model.Actor, req service.CreateTicketRequest) (*service.TicketResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TicketResponse), args.Error(1)
}

func (m *MockTicketService) UpdateTicketStatus(ctx context.Context, actor model.Actor, id string, status string) (*service.TicketResponse, error) {
	args := m.Called(ctx, actor, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TicketResponse), args.Error(1)
}

func (m *MockTicketService) GetTicket(ctx context.Context, id string) (*service.TicketResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TicketResponse), args.Error(1)
}

func (m *MockTicketService) ListTickets(ctx context.Context, filter service.TicketFilter) ([]service.TicketResponse, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]service.TicketResponse), args.Get(1).(int64), args.Error(2)
}

func ticketRouter(h *TicketHandler, actor model.Actor) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set("actor", actor) })
	router.POST("/api/tickets", h.CreateTicket)
	router.GET("/api/tickets", h.ListTickets)
	router.PUT("/api/tickets/:id/status", h.UpdateTicketStatus)
	return router
}

func TestCreateTicket(t *testing.T) {
	actor := testActor(authz.RoleConsignerOps)

	mockTickets := new(MockTicketService)
	h := NewTicketHandler(mockTickets)

	resp := &service.TicketResponse{ID: uuid.NewString(), Status: "open"}
	mockTickets.On("CreateTicket", mock.Anything, actor, mock.AnythingOfType("service.CreateTicketRequest")).Return(resp, nil)

	body, _ := json.Marshal(map[string]string{
		"issue_type":    "delay_at_loading",
		"title":         "Truck held at loading point",
		"assigned_role": authz.RoleVehicleOps,
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/tickets", bytes.NewBuffer(body))
	ticketRouter(h, actor).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockTickets.AssertExpectations(t)
}

func TestUpdateTicketStatus(t *testing.T) {
	actor := testActor(authz.RoleVehicleOps)
	ticketID := uuid.NewString()

	t.Run("resolved", func(t *testing.T) {
		mockTickets := new(MockTicketService)
		h := NewTicketHandler(mockTickets)

		resp := &service.TicketResponse{ID: ticketID, Status: "resolved"}
		mockTickets.On("UpdateTicketStatus", mock.Anything, actor, ticketID, "resolved").Return(resp, nil)

		body, _ := json.Marshal(map[string]string{"status": "resolved"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/api/tickets/"+ticketID+"/status", bytes.NewBuffer(body))
		ticketRouter(h, actor).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockTickets.AssertExpectations(t)
	})

	t.Run("invalid edge", func(t *testing.T) {
		mockTickets := new(MockTicketService)
		h := NewTicketHandler(mockTickets)
		mockTickets.On("UpdateTicketStatus", mock.Anything, actor, ticketID, "waiting").
			Return(nil, apperr.Precondition("ticket_transition_invalid", "open -> waiting is not allowed"))

		body, _ := json.Marshal(map[string]string{"status": "waiting"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/api/tickets/"+ticketID+"/status", bytes.NewBuffer(body))
		ticketRouter(h, actor).ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "ticket_transition_invalid", env.Code)
	})

	t.Run("missing status", func(t *testing.T) {
		h := NewTicketHandler(new(MockTicketService))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/api/tickets/"+ticketID+"/status", bytes.NewBufferString("{}"))
		ticketRouter(h, actor).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListTicketsFilters(t *testing.T) {
	actor := testActor(authz.RoleAccounts)

	mockTickets := new(MockTicketService)
	h := NewTicketHandler(mockTickets)

	tickets := []service.TicketResponse{{ID: uuid.NewString(), Status: "open"}}
	mockTickets.On("ListTickets", mock.Anything, service.TicketFilter{
		Status:       "open",
		AssignedRole: authz.RoleAccounts,
		Page:         1,
		Limit:        20,
	}).Return(tickets, int64(1), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/tickets?status=open&assigned_role=accounts", nil)
	ticketRouter(h, actor).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.True(t, env.OK)
	mockTickets.AssertExpectations(t)
}
