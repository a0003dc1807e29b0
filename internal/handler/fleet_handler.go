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

type FleetHandler struct {
	fleetService service.FleetService
}

func NewFleetHandler(fleetService service.FleetService) *FleetHandler {
	return &FleetHandler{fleetService: fleetService}
}

func (h *FleetHandler) RegisterRoutes(router *gin.RouterGroup) {
	fleet := router.Group("/api/fleet")
	fleet.Use(middleware.RequireActor())
	{
		fleet.POST("/vehicles", middleware.RequireOperation(authz.OpFleetManage), h.CreateVehicle)
		fleet.GET("/vehicles", middleware.RequireOperation(authz.OpFleetRead), h.ListVehicles)
		fleet.GET("/vehicles/:id", middleware.RequireOperation(authz.OpFleetRead), h.GetVehicle)
		fleet.PUT("/vehicles/:id/status", middleware.RequireOperation(authz.OpFleetManage), h.UpdateVehicleStatus)

		fleet.POST("/drivers", middleware.RequireOperation(authz.OpFleetManage), h.CreateDriver)
		fleet.GET("/drivers", middleware.RequireOperation(authz.OpFleetRead), h.ListDrivers)
		fleet.PATCH("/drivers/:id", middleware.RequireOperation(authz.OpFleetManage), h.UpdateDriver)

		fleet.POST("/vendors", middleware.RequireOperation(authz.OpFleetManage), h.CreateVendor)
		fleet.GET("/vendors", middleware.RequireOperation(authz.OpFleetRead), h.ListVendors)

		fleet.GET("/vehicle-types", middleware.RequireOperation(authz.OpFleetRead), h.ListVehicleTypes)
	}
}

// CreateVehicle handles POST /api/fleet/vehicles
func (h *FleetHandler) CreateVehicle(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var req service.CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail("bad_request", err.Error()))
		return
	}

	vehicle, err := h.fleetService.CreateVehicle(c.Request.Context(), actor, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(vehicle))
}

// UpdateVehicleStatus handles PUT /api/fleet/vehicles/:id/status
func (h *FleetHandler) UpdateVehicleStatus(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var req service.UpdateVehicleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail("bad_request", err.Error()))
		return
	}

	vehicle, err := h.fleetService.UpdateVehicleStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(vehicle))
}

// ListVehicles handles GET /api/fleet/vehicles with status/ownership filters
func (h *FleetHandler) ListVehicles(c *gin.Context) {
	p := pagination.Parse(c)

	filter := service.VehicleFilter{
		Status:    c.Query("status"),
		Ownership: c.Query("ownership"),
		Page:      p.Page,
		Limit:     p.Limit,
	}

	vehicles, total, err := h.fleetService.ListVehicles(c.Request.Context(), filter)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(p.ListData(vehicles, total)))
}

// GetVehicle handles GET /api/fleet/vehicles/:id
func (h *FleetHandler) GetVehicle(c *gin.Context) {
	vehicle, err := h.fleetService.GetVehicle(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(vehicle))
}

// CreateDriver handles POST /api/fleet/drivers
func (h *FleetHandler) CreateDriver(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var req service.CreateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail("bad_request", err.Error()))
		return
	}

	driver, err := h.fleetService.CreateDriver(c.Request.Context(), actor, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(driver))
}

// UpdateDriver handles PATCH /api/fleet/drivers/:id
func (h *FleetHandler) UpdateDriver(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var req service.UpdateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail("bad_request", err.Error()))
		return
	}

	driver, err := h.fleetService.UpdateDriver(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(driver))
}

// ListDrivers handles GET /api/fleet/drivers
func (h *FleetHandler) ListDrivers(c *gin.Context) {
	p := pagination.Parse(c)

	drivers, total, err := h.fleetService.ListDrivers(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(p.ListData(drivers, total)))
}

// CreateVendor handles POST /api/fleet/vendors
func (h *FleetHandler) CreateVendor(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)

	var req service.CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Fail("bad_request", err.Error()))
		return
	}

	vendor, err := h.fleetService.CreateVendor(c.Request.Context(), actor, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(vendor))
}

// ListVendors handles GET /api/fleet/vendors
func (h *FleetHandler) ListVendors(c *gin.Context) {
	p := pagination.Parse(c)

	vendors, total, err := h.fleetService.ListVendors(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(p.ListData(vendors, total)))
}

// ListVehicleTypes handles GET /api/fleet/vehicle-types
func (h *FleetHandler) ListVehicleTypes(c *gin.Context) {
	types, err := h.fleetService.ListVehicleTypes(c.Request.Context())
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(types))
}
