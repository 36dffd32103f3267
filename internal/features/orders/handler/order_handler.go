package handler

import (
	"errors"
	"net/http"

	"github.com/shax201/ecommerce-backend-sub001/internal/core/logger"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/orders/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for the fulfillment pipeline.
type OrderHandler struct {
	service *service.FulfillmentService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(s *service.FulfillmentService) *OrderHandler {
	return &OrderHandler{
		service: s,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

func rayID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return "unknown"
}

// BookCourierRequest is the body for booking a consignment.
type BookCourierRequest struct {
	// Provider is the courier to book with (e.g., pathao, steadfast).
	Provider string `json:"provider"`
}

// BookCourier godoc
// @Summary Book a courier for an order
// @Description Creates a consignment with the requested provider and persists it onto the order. On provider failure the order is left unchanged.
// @Tags fulfillment
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body BookCourierRequest true "Courier selection"
// @Success 200 {object} domain.BookingResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/courier [post]
func (h *OrderHandler) BookCourier(c *fiber.Ctx) error {
	var req BookCourierRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}
	if req.Provider == "" {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "provider is required",
			RayID:   rayID(c),
		})
	}

	result, err := h.service.BookCourier(c.Context(), c.Params("id"), req.Provider)
	if err != nil {
		return h.fulfillmentError(c, err)
	}
	return c.JSON(result)
}

// RefreshCourierStatus godoc
// @Summary Refresh an order's delivery status from the courier
// @Tags fulfillment
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.StatusResult
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/courier/refresh [post]
func (h *OrderHandler) RefreshCourierStatus(c *fiber.Ctx) error {
	result, err := h.service.RefreshCourierStatus(c.Context(), c.Params("id"))
	if err != nil {
		return h.fulfillmentError(c, err)
	}
	return c.JSON(result)
}

// TrackOrder godoc
// @Summary Get tracking info for an order
// @Description Attempts a live courier lookup and falls back to the last-known state when the provider is unavailable.
// @Tags fulfillment
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} service.TrackingInfo
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id}/tracking [get]
func (h *OrderHandler) TrackOrder(c *fiber.Ctx) error {
	info, err := h.service.TrackOrder(c.Context(), c.Params("id"))
	if err != nil {
		return h.fulfillmentError(c, err)
	}
	return c.JSON(info)
}

// CourierOptions godoc
// @Summary List courier options for an order
// @Tags fulfillment
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} service.CourierOptions
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id}/couriers [get]
func (h *OrderHandler) CourierOptions(c *fiber.Ctx) error {
	options, err := h.service.AvailableCouriersForOrder(c.Context(), c.Params("id"))
	if err != nil {
		return h.fulfillmentError(c, err)
	}
	return c.JSON(options)
}

// EstimatePrice godoc
// @Summary Estimate the delivery fee for an order
// @Tags fulfillment
// @Produce json
// @Param id path string true "Order ID"
// @Param provider query string true "Courier provider"
// @Success 200 {object} domain.PriceResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id}/courier/price [get]
func (h *OrderHandler) EstimatePrice(c *fiber.Ctx) error {
	provider := c.Query("provider")
	if provider == "" {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "provider query parameter is required",
			RayID:   rayID(c),
		})
	}

	result, err := h.service.EstimateDeliveryPrice(c.Context(), provider, c.Params("id"))
	if err != nil {
		return h.fulfillmentError(c, err)
	}
	return c.JSON(result)
}

// RemoveCourierBooking godoc
// @Summary Remove an order's courier booking
// @Description Permitted only while the consignment is pending or cancelled.
// @Tags fulfillment
// @Produce json
// @Param id path string true "Order ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/courier [delete]
func (h *OrderHandler) RemoveCourierBooking(c *fiber.Ctx) error {
	if err := h.service.RemoveCourierBooking(c.Context(), c.Params("id")); err != nil {
		return h.fulfillmentError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// BulkRemoveRequest is the body for bulk booking removal.
type BulkRemoveRequest struct {
	// OrderIDs are the orders whose bookings should be removed.
	OrderIDs []string `json:"order_ids"`
}

// BulkRemoveCourierBookings godoc
// @Summary Remove courier bookings from a batch of orders
// @Description Clears the eligible subset and reports how many were removed.
// @Tags fulfillment
// @Accept json
// @Produce json
// @Param request body BulkRemoveRequest true "Order ids"
// @Success 200 {object} service.BulkRemovalResult
// @Failure 400 {object} ErrorResponse
// @Router /orders/courier/bulk-remove [post]
func (h *OrderHandler) BulkRemoveCourierBookings(c *fiber.Ctx) error {
	var req BulkRemoveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	result, err := h.service.BulkRemoveCourierBookings(c.Context(), req.OrderIDs)
	if err != nil {
		return h.fulfillmentError(c, err)
	}
	return c.JSON(result)
}

// RefreshAll godoc
// @Summary Refresh delivery status for a batch of orders
// @Tags fulfillment
// @Accept json
// @Produce json
// @Param request body BulkRemoveRequest true "Order ids"
// @Success 200 {array} service.RefreshOutcome
// @Failure 400 {object} ErrorResponse
// @Router /orders/courier/refresh-all [post]
func (h *OrderHandler) RefreshAll(c *fiber.Ctx) error {
	var req BulkRemoveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	return c.JSON(h.service.RefreshAll(c.Context(), req.OrderIDs))
}

// fulfillmentError maps fulfillment failures to HTTP statuses.
func (h *OrderHandler) fulfillmentError(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrNoTrackingAvailable):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrMissingShippingAddress):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrAlreadyBooked),
		errors.Is(err, service.ErrNoCourierInfo),
		errors.Is(err, service.ErrBookingNotRemovable):
		status = http.StatusConflict
	default:
		logger.Get().Error("Fulfillment operation failed",
			zap.String("order_id", c.Params("id")),
			zap.String("ray_id", rayID(c)),
			zap.Error(err),
		)
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: err.Error(),
		RayID:   rayID(c),
	})
}
