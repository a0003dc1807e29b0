package handler

import (
	"net/http"

	"freightops/internal/authz"
	"freightops/internal/middleware"
	"freightops/internal/service"
	"freightops/pkg/pagination"
	"freightops/pkg/response"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	ticketService service.TicketService
}

func NewTicketHandler(ticketService service.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

func (h *TicketHandler) RegisterRoutes(router *gin.RouterGroup) {
	tickets := router.Group("/api/tickets")
	tickets.Use(middleware.RequireActor())
	{
		tickets.POST("", middleware.RequireOperation(authz.OpTicketCreate), h.CreateTicket)
		tickets.GET("", middleware.RequireOperation(authz.OpTicketRead), h.ListTickets)
		tickets.GET("/:id", middleware.RequireOperation(authz.OpTicketRead), h.GetTicket)
		tickets.PUT("/:id/status", middleware.RequireOperation(authz.OpTicketUpdate), h.UpdateTicketStatus)
	}
}

// CreateTicket handles POST /api/tickets
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var req service.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail("bad_request", err.Error()))
		return
	}

	ticket, err := h.ticketService.CreateTicket(c.Request.Context(), actor, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(ticket))
}

// UpdateTicketStatus handles PUT /api/tickets/:id/status
func (h *TicketHandler) UpdateTicketStatus(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var req service.UpdateTicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail("bad_request", err.Error()))
		return
	}

	ticket, err := h.ticketService.UpdateTicketStatus(c.Request.Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(ticket))
}

// GetTicket handles GET /api/tickets/:id
func (h *TicketHandler) GetTicket(c *gin.Context) {
	ticket, err := h.ticketService.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(ticket))
}

// ListTickets handles GET /api/tickets with status/trip/role filters
func (h *TicketHandler) ListTickets(c *gin.Context) {
	p := pagination.Parse(c)

	filter := service.TicketFilter{
		Status:       c.Query("status"),
		TripID:       c.Query("trip_id"),
		AssignedRole: c.Query("assigned_role"),
		Page:         p.Page,
		Limit:        p.Limit,
	}

	tickets, total, err := h.ticketService.ListTickets(c.Request.Context(), filter)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(p.ListData(tickets, total)))
}
