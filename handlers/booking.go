package handlers

import (
	"net/http"
	"time"

	bookingRepo "slothold/database/repository/booking"
	"slothold/models"
	"slothold/services/reservation"
	"slothold/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingHandler bridges a successful checkout to the relational store: it
// persists the final booking record and links the hold to it. The relational
// store, not the reservation engine, is authoritative for finished bookings.
type BookingHandler struct {
	Engine reservation.ReservationEngine
	Repo   bookingRepo.BookingRepository
	Logger *zap.Logger
}

func NewBookingHandler(engine reservation.ReservationEngine, repo bookingRepo.BookingRepository, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Engine: engine, Repo: repo, Logger: logger}
}

// ConfirmBooking persists the booking for a held slot, then links the hold.
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	var input struct {
		ReservationID string `json:"reservationId" binding:"required"`
		Notes         string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	res, err := h.Engine.Get(c.Request.Context(), input.ReservationID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	if res == nil {
		utils.JSONError(c, http.StatusNotFound, "reservation not found",
			"the hold has expired or was released; re-check availability before booking")
		return
	}

	booking := &models.Booking{
		ID:                       uuid.New().String(),
		ReservationID:            res.ID,
		ServiceType:              res.Slot.ServiceType,
		SlotDateTime:             res.Slot.DateTime,
		Holder:                   res.Holder,
		EstimatedDurationMinutes: res.EstimatedDurationMinutes,
		Status:                   "Confirmed",
		Notes:                    input.Notes,
		CreatedAt:                time.Now(),
	}
	if err := h.Repo.Insert(c.Request.Context(), booking); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to persist booking", err.Error())
		return
	}

	linked, err := h.Engine.ConvertToBooking(c.Request.Context(), res.ID, booking.ID)
	if err != nil {
		// The booking exists; a failed link is logged, not fatal.
		h.Logger.Warn("failed to link reservation to booking",
			zap.String("reservation", res.ID),
			zap.String("booking", booking.ID),
			zap.Error(err))
		linked = false
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking, "linked": linked})
}
