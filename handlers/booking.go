package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tripnest/database/repository"
	"tripnest/models"
	"tripnest/services/booking"
	"tripnest/services/payment"
	"tripnest/services/telemetry"
	"tripnest/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// BookingHandler exposes the booking flow over HTTP. It is thin glue:
// all correctness lives in the services it delegates to.
type BookingHandler struct {
	Store       *booking.FlowStore
	NewFlow     func(hotelID, userID string) *booking.Flow
	Repo        repository.BookingRepository
	DetailCache *redis.Client
	DetailTTL   time.Duration
	Sink        *telemetry.Sink
}

// StartFlow begins a fresh booking flow for the session, replacing any
// previous one.
func (h *BookingHandler) StartFlow(c *gin.Context) {
	var input struct {
		HotelID string `json:"hotelId" binding:"required"`
		UserID  string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	sessionID := uuid.New().String()
	flow := h.NewFlow(input.HotelID, input.UserID)
	h.Store.Put(c.Request.Context(), sessionID, flow)

	c.JSON(http.StatusOK, gin.H{
		"sessionID": sessionID,
		"step":      flow.Step(),
	})
}

// SetDates records the stay dates on the draft.
func (h *BookingHandler) SetDates(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	var input struct {
		CheckIn  string `json:"checkInDate" binding:"required"`
		CheckOut string `json:"checkOutDate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	checkIn, err := time.Parse(dateLayout, input.CheckIn)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid check-in date", err.Error())
		return
	}
	checkOut, err := time.Parse(dateLayout, input.CheckOut)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid check-out date", err.Error())
		return
	}

	if err := flow.SetDates(checkIn, checkOut); err != nil {
		h.respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"step": flow.Step(), "canProceed": flow.CanProceed()})
}

// SelectRoom commits a room choice from the current availability result.
func (h *BookingHandler) SelectRoom(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	var input struct {
		RoomID string `json:"roomId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if err := flow.SelectRoom(input.RoomID); err != nil {
		h.respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"step": flow.Step(), "canProceed": flow.CanProceed()})
}

// SetGuestInfo records the guest details on the draft.
func (h *BookingHandler) SetGuestInfo(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	var input struct {
		Guest models.GuestInfo `json:"guestInfo"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if err := flow.SetGuestInfo(input.Guest); err != nil {
		h.respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"step": flow.Step(), "canProceed": flow.CanProceed()})
}

// ValidateGuestField runs the advisory blur-time validation for one field.
func (h *BookingHandler) ValidateGuestField(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	var input struct {
		Field string `json:"field" binding:"required"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	msg, valid := flow.ValidateGuestField(input.Field, input.Value)
	c.JSON(http.StatusOK, gin.H{"valid": valid, "message": msg})
}

// Next drives the guarded forward transition for the current step.
func (h *BookingHandler) Next(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	if err := flow.Next(c.Request.Context()); err != nil {
		h.respondFlowError(c, err)
		return
	}
	draft := flow.Draft()
	c.JSON(http.StatusOK, gin.H{"step": draft.Step, "draft": draft})
}

// ConfirmPayment confirms the payment and finalizes the booking.
func (h *BookingHandler) ConfirmPayment(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	if err := flow.ConfirmPayment(c.Request.Context()); err != nil {
		h.respondFlowError(c, err)
		return
	}

	h.persistRecord(c.Request.Context(), flow)
	c.JSON(http.StatusOK, gin.H{
		"step":      flow.Step(),
		"bookingId": flow.BookingID(),
	})
}

// Back moves the flow one step backward.
func (h *BookingHandler) Back(c *gin.Context) {
	flow, ok := h.flow(c)
	if !ok {
		return
	}
	if err := flow.Back(c.Request.Context()); err != nil {
		h.respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"step": flow.Step()})
}

// CancelFlow abandons the booking flow.
func (h *BookingHandler) CancelFlow(c *gin.Context) {
	sessionID := c.Param("sessionID")
	flow, ok := h.Store.Get(sessionID)
	if !ok {
		utils.JSONError(c, http.StatusNotFound, "booking flow not found", "")
		return
	}
	if err := flow.Cancel(c.Request.Context()); err != nil {
		h.respondFlowError(c, err)
		return
	}
	h.Store.Remove(sessionID)
	c.JSON(http.StatusOK, gin.H{"step": flow.Step()})
}

// GetBooking returns a completed booking, served from the detail cache
// when fresh.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID := c.Param("bookingID")
	ctx := c.Request.Context()
	cacheKey := "booking:detail:" + bookingID

	if h.DetailCache != nil {
		if data, err := h.DetailCache.Get(ctx, cacheKey).Bytes(); err == nil {
			var record models.BookingRecord
			if json.Unmarshal(data, &record) == nil {
				c.JSON(http.StatusOK, record)
				return
			}
		}
	}

	record, err := h.Repo.GetByID(ctx, bookingID)
	if errors.Is(err, repository.ErrBookingNotFound) {
		utils.JSONError(c, http.StatusNotFound, "booking not found", "")
		return
	}
	if err != nil {
		h.Sink.LogAPIError(err, telemetry.Context{
			Component: "booking-records",
			Action:    "get-booking",
		})
		utils.JSONError(c, http.StatusInternalServerError, "failed to load booking", "")
		return
	}

	if h.DetailCache != nil {
		if data, err := json.Marshal(record); err == nil {
			h.DetailCache.Set(ctx, cacheKey, data, h.DetailTTL)
		}
	}
	c.JSON(http.StatusOK, record)
}

func (h *BookingHandler) flow(c *gin.Context) (*booking.Flow, bool) {
	sessionID := c.Param("sessionID")
	flow, ok := h.Store.Get(sessionID)
	if !ok {
		utils.JSONError(c, http.StatusNotFound, "booking flow not found", "")
		return nil, false
	}
	return flow, true
}

// persistRecord stores the completed booking and warms the detail cache.
// Failures here never undo a confirmed booking; they are logged only.
func (h *BookingHandler) persistRecord(ctx context.Context, flow *booking.Flow) {
	record, err := flow.Record()
	if err != nil {
		return
	}
	if h.Repo != nil {
		if err := h.Repo.Save(ctx, record); err != nil {
			h.Sink.LogAPIError(err, telemetry.Context{
				Component: "booking-records",
				Step:      string(models.StepCompleted),
				Action:    "save-booking",
			})
			return
		}
	}
	if h.DetailCache != nil {
		if data, err := json.Marshal(record); err == nil {
			h.DetailCache.Set(ctx, "booking:detail:"+record.BookingID, data, h.DetailTTL)
		}
	}
}

func (h *BookingHandler) respondFlowError(c *gin.Context, err error) {
	var validationErr *booking.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":       "guest information invalid",
			"fieldErrors": validationErr.Fields,
		})
		return
	}

	var declined *payment.DeclinedError
	if errors.As(err, &declined) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": declined.Message,
			"code":  declined.Code,
		})
		return
	}

	var unrecoverable *payment.UnrecoverableError
	if errors.As(err, &unrecoverable) {
		c.JSON(http.StatusBadGateway, gin.H{"error": unrecoverable.Error()})
		return
	}

	switch {
	case errors.Is(err, booking.ErrCancelled):
		c.JSON(http.StatusConflict, gin.H{"cancelled": true})
	case errors.Is(err, booking.ErrFlowClosed):
		c.JSON(http.StatusGone, gin.H{"error": "booking flow already finished"})
	case errors.Is(err, booking.ErrProcessingLocked):
		c.JSON(http.StatusConflict, gin.H{"error": "booking submission in progress"})
	case errors.Is(err, payment.ErrStaleQuote):
		c.JSON(http.StatusConflict, gin.H{"error": "pricing changed; please review before paying"})
	case errors.Is(err, payment.ErrNoIntent):
		c.JSON(http.StatusConflict, gin.H{"error": "no payment is set up; go back and try again"})
	case errors.Is(err, payment.ErrAlreadyConfirmed):
		c.JSON(http.StatusConflict, gin.H{"error": "payment already confirmed; the booking is finalizing"})
	default:
		var stepErr *booking.StepError
		if errors.As(err, &stepErr) {
			c.JSON(http.StatusConflict, gin.H{"error": stepErr.Message, "code": stepErr.Code})
			return
		}
		zap.L().Error("unhandled flow error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Something went wrong on our side. Please try again.",
		})
	}
}
