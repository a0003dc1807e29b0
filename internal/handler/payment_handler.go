package handler

import (
	"context"
	"net/http"

	"freightops/internal/authz"
	"freightops/internal/middleware"
	"freightops/internal/model"
	"freightops/internal/service"
	"freightops/pkg/pagination"
	"freightops/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	payments := router.Group("/api/payments")
	payments.Use(middleware.RequireActor())
	{
		payments.GET("", middleware.RequireOperation(authz.OpPaymentRead), h.ListPayments)
		payments.GET("/:id", middleware.RequireOperation(authz.OpPaymentRead), h.GetPayment)
		payments.PUT("/:id/approve", middleware.RequireOperation(authz.OpPaymentReview), h.ApprovePayment)
		payments.PUT("/:id/reject", middleware.RequireOperation(authz.OpPaymentReview), h.RejectPayment)
		payments.PUT("/:id/paid", middleware.RequireOperation(authz.OpPaymentMarkPaid), h.MarkPaymentPaid)
	}

	trips := router.Group("/api/trips")
	trips.Use(middleware.RequireActor())
	{
		trips.POST("/:id/payments/advance", middleware.RequireOperation(authz.OpPaymentCreate), h.CreateAdvanceRequest)
		trips.POST("/:id/payments/final", middleware.RequireOperation(authz.OpPaymentCreate), h.CreateFinalRequest)
	}
}

// CreateAdvanceRequest handles POST /api/trips/:id/payments/advance
func (h *PaymentHandler) CreateAdvanceRequest(c *gin.Context) {
	h.createPayment(c, h.paymentService.CreateAdvanceRequest)
}

// CreateFinalRequest handles POST /api/trips/:id/payments/final
func (h *PaymentHandler) CreateFinalRequest(c *gin.Context) {
	h.createPayment(c, h.paymentService.CreateFinalRequest)
}

func (h *PaymentHandler) createPayment(c *gin.Context, create func(ctx context.Context, actor model.Actor, tripID string, req service.CreatePaymentRequestDTO) (*service.PaymentResponse, error)) {
	actor, _ := middleware.ActorFrom(c)

	var req service.CreatePaymentRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail("bad_request", err.Error()))
		return
	}

	payment, err := create(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(payment))
}

// ApprovePayment handles PUT /api/payments/:id/approve
func (h *PaymentHandler) ApprovePayment(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	payment, err := h.paymentService.ApprovePayment(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(payment))
}

// RejectPayment handles PUT /api/payments/:id/reject
func (h *PaymentHandler) RejectPayment(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		// Reason is optional; an empty body is fine.
		req.Reason = ""
	}

	payment, err := h.paymentService.RejectPayment(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(payment))
}

// MarkPaymentPaid handles PUT /api/payments/:id/paid
func (h *PaymentHandler) MarkPaymentPaid(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	payment, err := h.paymentService.MarkPaymentPaid(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(payment))
}

// GetPayment handles GET /api/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(payment))
}

// ListPayments handles GET /api/payments with trip/type/status filters
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	p := pagination.Parse(c)

	filter := service.PaymentFilter{
		TripID: c.Query("trip_id"),
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Page:   p.Page,
		Limit:  p.Limit,
	}

	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), filter)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(p.ListData(payments, total)))
}
