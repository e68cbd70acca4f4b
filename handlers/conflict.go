package handlers

import (
	"net/http"
	"strconv"
	"time"

	"slothold/models"
	"slothold/services/conflict"
	"slothold/services/reservation"
	"slothold/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ConflictHandler exposes conflict resolution to the booking flow.
type ConflictHandler struct {
	Resolver conflict.ConflictResolver
	Logger   *zap.Logger
}

func NewConflictHandler(resolver conflict.ConflictResolver, logger *zap.Logger) *ConflictHandler {
	return &ConflictHandler{Resolver: resolver, Logger: logger}
}

type contenderInput struct {
	Holder              holderInput       `json:"holder" binding:"required"`
	ClaimedAt           time.Time         `json:"claimedAt" binding:"required"`
	Priority            int               `json:"priority" binding:"min=0,max=10"`
	HasPaymentIntent    bool              `json:"hasPaymentIntent"`
	IsReturningCustomer bool              `json:"isReturningCustomer"`
	Metadata            map[string]string `json:"metadata"`
}

// Resolve validates a detected conflict and applies the requested strategy.
func (h *ConflictHandler) Resolve(c *gin.Context) {
	var input struct {
		Slot         slotInput        `json:"slot" binding:"required"`
		ConflictType string           `json:"conflictType" binding:"required"`
		Contenders   []contenderInput `json:"contenders" binding:"required,min=1"`
		Strategy     string           `json:"strategy" binding:"required"`
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
	strategy, err := models.ParseStrategy(input.Strategy)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid strategy", err.Error())
		return
	}

	contenders := make([]models.Contender, 0, len(input.Contenders))
	for _, in := range input.Contenders {
		contenders = append(contenders, models.Contender{
			Holder:              in.Holder.identity(),
			ClaimedAt:           in.ClaimedAt,
			Priority:            in.Priority,
			HasPaymentIntent:    in.HasPaymentIntent,
			IsReturningCustomer: in.IsReturningCustomer,
			Metadata:            in.Metadata,
		})
	}

	result, err := h.Resolver.Resolve(c.Request.Context(), slot, input.ConflictType, contenders, strategy)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	if !result.Success && result.Code == reservation.CodeStaleConflict {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// History returns the most recent resolutions for diagnostics.
func (h *ConflictHandler) History(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit <= 0 {
		utils.JSONError(c, http.StatusBadRequest, "invalid limit", "limit must be a positive integer")
		return
	}

	records, err := h.Resolver.History(c.Request.Context(), limit)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": records})
}
