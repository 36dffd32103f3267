package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/shax201/ecommerce-backend-sub001/internal/core/logger"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/coupons/domain"
	"github.com/shax201/ecommerce-backend-sub001/internal/features/coupons/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CouponHandler handles HTTP requests for coupon operations.
type CouponHandler struct {
	service *service.CouponService
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(s *service.CouponService) *CouponHandler {
	return &CouponHandler{
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

// CreateCouponRequest is the body for coupon creation.
type CreateCouponRequest struct {
	Code                  string    `json:"code"`
	DiscountType          string    `json:"discount_type"`
	DiscountValue         float64   `json:"discount_value"`
	MinimumOrderValue     float64   `json:"minimum_order_value"`
	MaximumDiscountAmount float64   `json:"maximum_discount_amount"`
	UsageLimit            int       `json:"usage_limit"`
	ValidFrom             time.Time `json:"valid_from"`
	ValidTo               time.Time `json:"valid_to"`
	ApplicableProducts    []string  `json:"applicable_products"`
	ApplicableCategories  []string  `json:"applicable_categories"`
	FirstUseOnly          bool      `json:"first_use_only"`
	AllowedUsers          []string  `json:"allowed_users"`
	BlockedUsers          []string  `json:"blocked_users"`
}

// CreateCoupon godoc
// @Summary Create a coupon
// @Description Creates a coupon definition. Percentage coupons must carry a maximum discount amount.
// @Tags coupons
// @Accept json
// @Produce json
// @Param coupon body CreateCouponRequest true "Coupon definition"
// @Success 201 {object} domain.Coupon
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /coupons [post]
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req CreateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	coupon, err := domain.NewCoupon(req.Code, domain.DiscountType(req.DiscountType),
		req.DiscountValue, req.MinimumOrderValue, req.MaximumDiscountAmount,
		req.UsageLimit, req.ValidFrom, req.ValidTo)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   rayID(c),
		})
	}

	coupon.ApplicableProducts = req.ApplicableProducts
	coupon.ApplicableCategories = req.ApplicableCategories
	coupon.Restrictions = domain.UserRestrictions{
		FirstUseOnly: req.FirstUseOnly,
		AllowedUsers: req.AllowedUsers,
		BlockedUsers: req.BlockedUsers,
	}

	if err := h.service.Create(c.Context(), coupon); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrCodeTaken) {
			status = http.StatusConflict
		}
		return c.Status(status).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   rayID(c),
		})
	}

	return c.Status(http.StatusCreated).JSON(coupon)
}

// ListCoupons godoc
// @Summary List coupons
// @Tags coupons
// @Produce json
// @Success 200 {array} domain.Coupon
// @Failure 500 {object} ErrorResponse
// @Router /coupons [get]
func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	coupons, err := h.service.List(c.Context())
	if err != nil {
		logger.Get().Error("Failed to list coupons", zap.String("ray_id", rayID(c)), zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "failed to list coupons",
			RayID:   rayID(c),
		})
	}
	return c.JSON(coupons)
}

// ValidateCoupon godoc
// @Summary Validate a coupon against an order context
// @Tags coupons
// @Accept json
// @Produce json
// @Param request body service.ValidationRequest true "Order context"
// @Success 200 {object} domain.Coupon
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /coupons/validate [post]
func (h *CouponHandler) ValidateCoupon(c *fiber.Ctx) error {
	var req service.ValidationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	coupon, err := h.service.Validate(c.Context(), req)
	if err != nil {
		return h.couponError(c, err)
	}
	return c.JSON(coupon)
}

// ApplyCoupon godoc
// @Summary Apply a coupon and compute the discount
// @Tags coupons
// @Accept json
// @Produce json
// @Param request body service.ValidationRequest true "Order context"
// @Success 200 {object} service.Discount
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /coupons/apply [post]
func (h *CouponHandler) ApplyCoupon(c *fiber.Ctx) error {
	var req service.ValidationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   rayID(c),
		})
	}

	discount, err := h.service.Apply(c.Context(), req)
	if err != nil {
		return h.couponError(c, err)
	}
	return c.JSON(discount)
}

// DeactivateCoupon godoc
// @Summary Deactivate a coupon
// @Description Soft-disables a coupon. Used coupons are never hard-deleted.
// @Tags coupons
// @Produce json
// @Param code path string true "Coupon code"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /coupons/{code} [delete]
func (h *CouponHandler) DeactivateCoupon(c *fiber.Ctx) error {
	if err := h.service.Deactivate(c.Context(), c.Params("code")); err != nil {
		return h.couponError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// couponError maps coupon failures to HTTP statuses.
func (h *CouponHandler) couponError(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrCouponInactive),
		errors.Is(err, service.ErrCouponExpired),
		errors.Is(err, service.ErrCouponNotYetValid),
		errors.Is(err, service.ErrUsageLimitReached),
		errors.Is(err, service.ErrBelowMinimumOrder),
		errors.Is(err, service.ErrUserRestricted),
		errors.Is(err, service.ErrProductNotApplicable),
		errors.Is(err, service.ErrCategoryNotApplicable):
		status = http.StatusUnprocessableEntity
	default:
		logger.Get().Error("Coupon operation failed", zap.String("ray_id", rayID(c)), zap.Error(err))
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: err.Error(),
		RayID:   rayID(c),
	})
}
