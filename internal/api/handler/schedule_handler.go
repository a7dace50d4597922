package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/idiarso/linux-park-sub001/internal/api/middleware"
	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/repository"
	"github.com/idiarso/linux-park-sub001/internal/service"
)

type ScheduleHandler struct {
	schedules *service.RateScheduleService
}

func NewScheduleHandler(schedules *service.RateScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// POST /api/v1/rate-schedules
// Referenced schedules are never edited; this always creates a new version
// and closes the previous open-ended one.
func (h *ScheduleHandler) Create(c *gin.Context) {
	var dto domain.RateScheduleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	createdBy := c.GetString(middleware.UsernameKey)
	schedule, err := h.schedules.Create(c.Request.Context(), dto, createdBy)
	if err != nil {
		if errors.Is(err, service.ErrInvalidVehicleClass) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create rate schedule", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, schedule)
}

// GET /api/v1/rate-schedules
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.schedules.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list rate schedules", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, schedules)
}

// GET /api/v1/rate-schedules/:id
func (h *ScheduleHandler) GetByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}
	schedule, err := h.schedules.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch rate schedule", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// GET /api/v1/rate-schedules/active?vehicle_class=car
func (h *ScheduleHandler) Active(c *gin.Context) {
	class := domain.VehicleClass(c.Query("vehicle_class"))
	if !class.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown vehicle class"})
		return
	}
	schedule, err := h.schedules.ActiveFor(c.Request.Context(), class, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveSchedule) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve active schedule", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, schedule)
}
