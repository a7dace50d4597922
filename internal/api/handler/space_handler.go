package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/repository"
	"github.com/idiarso/linux-park-sub001/internal/service"
)

type SpaceHandler struct {
	spaces *service.ParkingSpaceService
}

func NewSpaceHandler(spaces *service.ParkingSpaceService) *SpaceHandler {
	return &SpaceHandler{spaces: spaces}
}

// POST /api/v1/spaces
func (h *SpaceHandler) Create(c *gin.Context) {
	var dto domain.ParkingSpaceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	space, err := h.spaces.Create(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrInvalidVehicleClass) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create space", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, space)
}

// GET /api/v1/spaces
func (h *SpaceHandler) List(c *gin.Context) {
	spaces, err := h.spaces.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list spaces", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, spaces)
}

// GET /api/v1/spaces/:id
func (h *SpaceHandler) GetByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid space id"})
		return
	}
	space, err := h.spaces.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch space", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, space)
}

// PUT /api/v1/spaces/:id/active
func (h *SpaceHandler) SetActive(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid space id"})
		return
	}
	var body struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := h.spaces.SetActive(c.Request.Context(), id, *body.Active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update space", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "active": *body.Active})
}
