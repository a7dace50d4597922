package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/idiarso/linux-park-sub001/internal/api/middleware"
	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/hardware"
	"github.com/idiarso/linux-park-sub001/internal/rate"
	"github.com/idiarso/linux-park-sub001/internal/repository"
	"github.com/idiarso/linux-park-sub001/internal/service"
)

type SessionHandler struct {
	sessions *service.SessionService
}

func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Resolution kinds let the lane terminal pick its messaging without
// knowing which subsystem failed.
const (
	kindRetryLater     = "retry_later"
	kindNotPossible    = "not_possible"
	kindOperatorAction = "operator_action"
)

// POST /api/v1/sessions/entry
func (h *SessionHandler) RequestEntry(c *gin.Context) {
	var dto domain.EntryRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	session, err := h.sessions.RequestEntry(c.Request.Context(), dto)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// POST /api/v1/sessions/exit
func (h *SessionHandler) RequestExit(c *gin.Context) {
	var dto domain.ExitRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	quote, err := h.sessions.RequestExit(c.Request.Context(), dto)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// POST /api/v1/sessions/:id/payment
func (h *SessionHandler) ConfirmPayment(c *gin.Context) {
	var dto domain.PaymentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	session, err := h.sessions.ConfirmPayment(c.Request.Context(), c.Param("id"), dto)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// POST /api/v1/sessions/:id/cancel
func (h *SessionHandler) Cancel(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.Reason == "" {
		body.Reason = "operator cancel"
	}

	session, err := h.sessions.Cancel(c.Request.Context(), c.Param("id"), body.Reason)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// POST /api/v1/sessions/:id/force-complete
func (h *SessionHandler) ForceComplete(c *gin.Context) {
	operator := c.GetString(middleware.UsernameKey)
	session, err := h.sessions.ForceComplete(c.Request.Context(), c.Param("id"), operator)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GET /api/v1/sessions/:id
func (h *SessionHandler) GetByID(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GET /api/v1/sessions
func (h *SessionHandler) List(c *gin.Context) {
	var filter domain.SessionFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter: " + err.Error()})
		return
	}
	sessions, err := h.sessions.List(c.Request.Context(), filter)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// writeSessionError maps service and hardware faults to a status code plus
// a resolution kind the terminal UI switches on.
func writeSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPlate), errors.Is(err, service.ErrInvalidVehicleClass):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTicket), errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "kind": kindNotPossible})
	case errors.Is(err, repository.ErrDuplicateActiveSession),
		errors.Is(err, repository.ErrNoSpaceAvailable),
		errors.Is(err, service.ErrAlreadyCompleted),
		errors.Is(err, service.ErrWrongSessionState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": kindNotPossible})
	case errors.Is(err, service.ErrPaymentMismatch), errors.Is(err, rate.ErrInvalidInterval):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "kind": kindNotPossible})
	case errors.Is(err, repository.ErrNoActiveSchedule),
		errors.Is(err, hardware.ErrActuationTimeout),
		errors.Is(err, hardware.ErrActuationFailed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "kind": kindOperatorAction})
	case errors.Is(err, hardware.ErrHardwareBusy):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "kind": kindRetryLater})
	case errors.Is(err, hardware.ErrHardwareUnavailable),
		errors.Is(err, hardware.ErrCaptureTimeout),
		errors.Is(err, hardware.ErrCaptureFailed),
		errors.Is(err, hardware.ErrPrinterOffline),
		errors.Is(err, hardware.ErrPrintFailed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "kind": kindOperatorAction})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "details": err.Error()})
	}
}
