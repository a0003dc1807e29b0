package handler

import (
	"net/http"

	"freightops/internal/authz"
	"freightops/internal/middleware"
	"freightops/internal/model"
	"freightops/internal/service"
	"freightops/pkg/pagination"
	"freightops/pkg/response"

	"github.com/gin-gonic/gin"
)

type TripHandler struct {
	tripService    service.TripService
	storageService service.StorageService
}

func NewTripHandler(tripService service.TripService, storageService service.StorageService) *TripHandler {
	return &TripHandler{tripService: tripService, storageService: storageService}
}

func (h *TripHandler) RegisterRoutes(router *gin.RouterGroup) {
	trips := router.Group("/api/trips")
	trips.Use(middleware.RequireActor())
	{
		trips.POST("", middleware.RequireOperation(authz.OpTripCreate), h.CreateTrip)
		trips.GET("", middleware.RequireOperation(authz.OpTripRead), h.ListTrips)
		trips.GET("/history", middleware.RequireOperation(authz.OpTripRead), h.TripHistory)
		trips.GET("/:id", middleware.RequireOperation(authz.OpTripRead), h.GetTrip)
		trips.PATCH("/:id", middleware.RequireOperation(authz.OpTripEdit), h.EditTrip)

		trips.PUT("/:id/quote", middleware.RequireOperation(authz.OpTripQuote), h.QuoteTrip)
		trips.PUT("/:id/confirm", middleware.RequireOperation(authz.OpTripConfirm), h.ConfirmTrip)
		trips.PUT("/:id/assign-vehicle", middleware.RequireOperation(authz.OpTripAssignVehicle), h.AssignVehicle)
		trips.PUT("/:id/at-loading", middleware.RequireOperation(authz.OpTripAtLoading), h.MarkAtLoading)
		trips.PUT("/:id/loading-docs-ok", middleware.RequireOperation(authz.OpTripLoadingDocs), h.MarkLoadingDocsOK)
		trips.PUT("/:id/advance-paid", middleware.RequireOperation(authz.OpTripAdvancePaid), h.MarkAdvancePaid)
		trips.PUT("/:id/start-transit", middleware.RequireOperation(authz.OpTripStartTransit), h.StartTransit)
		trips.PUT("/:id/delivered", middleware.RequireOperation(authz.OpTripDelivered), h.MarkDelivered)
		trips.PUT("/:id/pod-received", middleware.RequireOperation(authz.OpTripPODReceived), h.MarkPODReceived)
		trips.PUT("/:id/vendor-settled", middleware.RequireOperation(authz.OpTripVendorSettle), h.MarkVendorSettled)
		trips.PUT("/:id/customer-collected", middleware.RequireOperation(authz.OpTripCollect), h.MarkCustomerCollected)
		trips.PUT("/:id/close", middleware.RequireOperation(authz.OpTripClose), h.CloseTrip)

		trips.POST("/:id/loading-proof/prepare", middleware.RequireOperation(authz.OpProofUpload), h.PrepareLoadingProof)
		trips.POST("/:id/loading-proof/confirm", middleware.RequireOperation(authz.OpProofUpload), h.ConfirmLoadingProof)
	}
}

// CreateTrip handles POST /api/trips
// @Summary      Create a trip request
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTripRequest  true  "Trip request"
// @Success      201      {object}  response.Envelope
// @Router       /api/trips [post]
func (h *TripHandler) CreateTrip(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var req service.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail("bad_request", err.Error()))
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), actor, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(trip))
}

// EditTrip handles PATCH /api/trips/:id while the request is still unquoted
func (h *TripHandler) EditTrip(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var req service.EditTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail("bad_request", err.Error()))
		return
	}

	trip, err := h.tripService.EditTrip(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(trip))
}

// QuoteTrip handles PUT /api/trips/:id/quote
func (h *TripHandler) QuoteTrip(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var req service.QuoteTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail("bad_request", err.Error()))
		return
	}

	trip, err := h.tripService.QuoteTrip(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(trip))
}

// AssignVehicle handles PUT /api/trips/:id/assign-vehicle
func (h *TripHandler) AssignVehicle(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var req service.AssignVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail("bad_request", err.Error()))
		return
	}

	trip, err := h.tripService.AssignVehicle(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(trip))
}

// stageAction adapts the no-body stage transition endpoints.
func (h *TripHandler) stageAction(c *gin.Context, fn func(actor model.Actor, id string) (*service.TripResponse, error)) {
	actor, _ := middleware.ActorFrom(c)

	trip, err := fn(actor, c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(trip))
}

func (h *TripHandler) ConfirmTrip(c *gin.Context) {
	h.stageAction(c, func(actor model.Actor, id string) (*service.TripResponse, error) {
		return h.tripService.ConfirmTrip(c.Request.Context(), actor, id)
	})
}

func (h *TripHandler) MarkAtLoading(c *gin.Context) {
	h.stageAction(c, func(actor model.Actor, id string) (*service.TripResponse, error) {
		return h.tripService.MarkAtLoading(c.Request.Context(), actor, id)
	})
}

func (h *TripHandler) MarkLoadingDocsOK(c *gin.Context) {
	h.stageAction(c, func(actor model.Actor, id string) (*service.TripResponse, error) {
		return h.tripService.MarkLoadingDocsOK(c.Request.Context(), actor, id)
	})
}

func (h *TripHandler) MarkAdvancePaid(c *gin.Context) {
	h.stageAction(c, func(actor model.Actor, id string) (*service.TripResponse, error) {
		return h.tripService.MarkAdvancePaid(c.Request.Context(), actor, id)
	})
}

func (h *TripHandler) StartTransit(c *gin.Context) {
	h.stageAction(c, func(actor model.Actor, id string) (*service.TripResponse, error) {
		return h.tripService.StartTransit(c.Request.Context(), actor, id)
	})
}

func (h *TripHandler) MarkDelivered(c *gin.Context) {
	h.stageAction(c, func(actor model.Actor, id string) (*service.TripResponse, error) {
		return h.tripService.MarkDelivered(c.Request.Context(), actor, id)
	})
}

func (h *TripHandler) MarkPODReceived(c *gin.Context) {
	h.stageAction(c, func(actor model.Actor, id string) (*service.TripResponse, error) {
		return h.tripService.MarkPODReceived(c.Request.Context(), actor, id)
	})
}

func (h *TripHandler) MarkVendorSettled(c *gin.Context) {
	h.stageAction(c, func(actor model.Actor, id string) (*service.TripResponse, error) {
		return h.tripService.MarkVendorSettled(c.Request.Context(), actor, id)
	})
}

func (h *TripHandler) MarkCustomerCollected(c *gin.Context) {
	h.stageAction(c, func(actor model.Actor, id string) (*service.TripResponse, error) {
		return h.tripService.MarkCustomerCollected(c.Request.Context(), actor, id)
	})
}

func (h *TripHandler) CloseTrip(c *gin.Context) {
	h.stageAction(c, func(actor model.Actor, id string) (*service.TripResponse, error) {
		return h.tripService.CloseTrip(c.Request.Context(), actor, id)
	})
}

// GetTrip handles GET /api/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	trip, err := h.tripService.GetTrip(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(trip))
}

// ListTrips handles GET /api/trips, optionally filtered by stage
func (h *TripHandler) ListTrips(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)
	p := pagination.Parse(c)

	filter := service.TripFilter{
		Stage: c.Query("stage"),
		Page:  p.Page,
		Limit: p.Limit,
	}

	trips, total, err := h.tripService.ListTrips(c.Request.Context(), actor, filter)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(p.ListData(trips, total)))
}

// TripHistory handles GET /api/trips/history, closed trips only
func (h *TripHandler) TripHistory(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)
	p := pagination.Parse(c)

	filter := service.TripFilter{Page: p.Page, Limit: p.Limit}

	trips, total, err := h.tripService.TripHistory(c.Request.Context(), actor, filter)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(p.ListData(trips, total)))
}

// PrepareLoadingProof handles POST /api/trips/:id/loading-proof/prepare
func (h *TripHandler) PrepareLoadingProof(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var req service.PrepareUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail("bad_request", err.Error()))
		return
	}

	res, err := h.storageService.PrepareLoadingProof(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(res))
}

// ConfirmLoadingProof handles POST /api/trips/:id/loading-proof/confirm
func (h *TripHandler) ConfirmLoadingProof(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var req service.ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail("bad_request", err.Error()))
		return
	}

	doc, err := h.storageService.ConfirmLoadingProof(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(doc))
}
