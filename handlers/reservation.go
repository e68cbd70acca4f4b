package handlers

import (
	"errors"
	"net/http"
	"time"

	"slothold/models"
	"slothold/services/realtime"
	"slothold/services/reservation"
	"slothold/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReservationHandler exposes the reservation engine to the checkout flow.
type ReservationHandler struct {
	Engine   reservation.ReservationEngine
	Realtime *realtime.RedisBroadcaster
	Logger   *zap.Logger
}

func NewReservationHandler(engine reservation.ReservationEngine, rt *realtime.RedisBroadcaster, logger *zap.Logger) *ReservationHandler {
	return &ReservationHandler{Engine: engine, Realtime: rt, Logger: logger}
}

type slotInput struct {
	DateTime    time.Time `json:"dateTime" binding:"required"`
	ServiceType string    `json:"serviceType" binding:"required"`
}

type holderInput struct {
	UserID string `json:"userId"`
	Email  string `json:"email" binding:"omitempty,email"`
}

func (h holderInput) identity() models.HolderIdentity {
	return models.HolderIdentity{UserID: h.UserID, Email: h.Email}
}

// respondEngineError maps typed engine errors onto HTTP statuses. Every
// failure crosses the boundary as a structured body, never a bare 500.
func respondEngineError(c *gin.Context, err error) {
	var ee *reservation.EngineError
	if !errors.As(err, &ee) {
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	status := http.StatusInternalServerError
	switch ee.Code {
	case reservation.CodeValidation:
		status = http.StatusBadRequest
	case reservation.CodeOwnership:
		status = http.StatusForbidden
	case reservation.CodeNotFound:
		status = http.StatusNotFound
	case reservation.CodeStoreUnavailable:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"success": false, "code": ee.Code, "message": ee.Message})
}

// Reserve places a hold on a slot for the duration of checkout.
func (h *ReservationHandler) Reserve(c *gin.Context) {
	var input struct {
		Slot                     slotInput         `json:"slot" binding:"required"`
		Holder                   holderInput       `json:"holder" binding:"required"`
		EstimatedDurationMinutes int               `json:"estimatedDurationMinutes" binding:"required"`
		Metadata                 map[string]string `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	slot, err := models.NewSlotKey(input.Slot.DateTime, input.Slot.ServiceType)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid slot", err.Error())
		return
	}

	result, err := h.Engine.Reserve(c.Request.Context(), slot, input.Holder.identity(), input.EstimatedDurationMinutes, input.Metadata)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Extend grants the single allowed extension on an active hold.
func (h *ReservationHandler) Extend(c *gin.Context) {
	var input struct {
		Holder holderInput `json:"holder" binding:"required"`
		Reason string      `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	result, err := h.Engine.Extend(c.Request.Context(), c.Param("id"), input.Holder.identity(), input.Reason)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	status := http.StatusOK
	switch result.Code {
	case reservation.CodeNotFound:
		status = http.StatusNotFound
	case reservation.CodeOwnership:
		status = http.StatusForbidden
	case reservation.CodeMaxExtensions:
		status = http.StatusConflict
	}
	c.JSON(status, result)
}

// Status reports the remaining lifetime of a hold.
func (h *ReservationHandler) Status(c *gin.Context) {
	result, err := h.Engine.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Convert links a hold to a persisted booking id.
func (h *ReservationHandler) Convert(c *gin.Context) {
	var input struct {
		BookingID string `json:"bookingId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	converted, err := h.Engine.ConvertToBooking(c.Request.Context(), c.Param("id"), input.BookingID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"converted": converted})
}

// Release drops a hold on behalf of its holder; releasing an already-gone
// hold is still a success.
func (h *ReservationHandler) Release(c *gin.Context) {
	holder := models.HolderIdentity{
		UserID: c.Query("userId"),
		Email:  c.Query("email"),
	}
	if holder.IsZero() {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "userId or email query parameter is required")
		return
	}
	released, err := h.Engine.Release(c.Request.Context(), c.Param("id"), holder)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": released})
}

// Availability reports whether a slot can currently be claimed and tracks
// the caller as a viewer of that slot.
func (h *ReservationHandler) Availability(c *gin.Context) {
	dateTime, err := time.Parse(time.RFC3339, c.Query("dateTime"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid dateTime", "expected RFC3339, e.g. 2026-09-01T10:00:00Z")
		return
	}
	slot, err := models.NewSlotKey(dateTime, c.Query("serviceType"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid slot", err.Error())
		return
	}

	available, err := h.Engine.IsSlotAvailable(c.Request.Context(), slot)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	var viewers int64
	if h.Realtime != nil {
		if n, err := h.Realtime.TrackViewer(c.Request.Context(), slot); err == nil {
			viewers = n
		} else {
			h.Logger.Debug("viewer tracking failed", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"slot":        slot,
		"available":   available,
		"viewerCount": viewers,
	})
}

// GetByHolder returns the caller's single active reservation, if any.
func (h *ReservationHandler) GetByHolder(c *gin.Context) {
	holder := models.HolderIdentity{
		UserID: c.Query("userId"),
		Email:  c.Query("email"),
	}
	if holder.IsZero() {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", "userId or email query parameter is required")
		return
	}

	res, err := h.Engine.GetByHolder(c.Request.Context(), holder)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservation": res})
}
