package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idiarso/linux-park-sub001/internal/api/middleware"
	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/hardware"
)

type HardwareHandler struct {
	coordinator *hardware.Coordinator
}

func NewHardwareHandler(coordinator *hardware.Coordinator) *HardwareHandler {
	return &HardwareHandler{coordinator: coordinator}
}

// GET /api/v1/hardware/facilities
func (h *HardwareHandler) Facilities(c *gin.Context) {
	c.JSON(http.StatusOK, h.coordinator.Facilities())
}

// POST /api/v1/hardware/facilities/:id/initialize
func (h *HardwareHandler) Initialize(c *gin.Context) {
	facilityID := c.Param("id")
	if err := h.coordinator.Initialize(c.Request.Context(), facilityID); err != nil {
		if errors.Is(err, hardware.ErrUnknownFacility) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"facility_id": facilityID, "state": "ready"})
}

// POST /api/v1/hardware/actuate
// Manual gate control. Every use is an explicit, logged operator decision.
func (h *HardwareHandler) ManualActuate(c *gin.Context) {
	var dto domain.ManualActuateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	operator := c.GetString(middleware.UsernameKey)
	log.Printf("HardwareHandler: operator %s manually actuating gate %s (%s): %s", operator, dto.GateID, dto.Command, dto.Reason)

	err := h.coordinator.Actuate(c.Request.Context(), dto.GateID, domain.GateCommand(dto.Command))
	if err != nil {
		switch {
		case errors.Is(err, hardware.ErrUnknownFacility):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, hardware.ErrHardwareBusy):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "kind": kindRetryLater})
		case errors.Is(err, hardware.ErrActuationTimeout):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": kindOperatorAction})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"gate_id": dto.GateID, "command": dto.Command, "status": "acknowledged"})
}
