package handlers

import (
	"errors"
	"strconv"
	"time"

	"mooringhub/internal/core/domain"
	"mooringhub/internal/core/services"
	"mooringhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// FeeHandler handles fee schedule administration endpoints
type FeeHandler struct {
	feeService *services.FeeService
}

// NewFeeHandler creates a new fee handler
func NewFeeHandler(feeService *services.FeeService) *FeeHandler {
	return &FeeHandler{feeService: feeService}
}

// GetSchedule returns the current and future fee schedules for an
// application type
func (h *FeeHandler) GetSchedule(c *fiber.Ctx) error {
	appType := domain.ApplicationType(c.Query("type"))
	switch appType {
	case domain.ApplicationTypeWaitingList, domain.ApplicationTypeAnnualAdmission,
		domain.ApplicationTypeAuthorisedUser, domain.ApplicationTypeMooringLicence,
		domain.ApplicationTypeDCVPermit, domain.ApplicationTypeDCVAdmission:
	default:
		return response.BadRequest(c, "Invalid application type")
	}

	targetDate := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return response.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		}
		targetDate = parsed
	}

	constructors, err := h.feeService.ResolveCurrentAndFuture(c.Context(), appType, targetDate)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return response.NotFound(c, "No fee schedule configured for this application type and date")
		}
		return response.InternalServerError(c, "Failed to resolve fee schedule")
	}

	return response.Success(c, "Fee schedule retrieved", constructors)
}

// GetConstructor gets one fee constructor with its priced rows (Admin only)
func (h *FeeHandler) GetConstructor(c *fiber.Ctx) error {
	id, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid constructor ID")
	}

	fc, err := h.feeService.GetConstructor(c.Context(), id)
	if err != nil {
		return response.NotFound(c, "Fee constructor not found")
	}

	return response.Success(c, "Fee constructor retrieved", fc)
}

// CreateConstructor sets up a fee schedule (Admin only)
func (h *FeeHandler) CreateConstructor(c *fiber.Ctx) error {
	var input services.CreateConstructorInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	fc, err := h.feeService.CreateConstructor(c.Context(), &input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateEnabled):
			return response.Conflict(c, "An enabled fee schedule already exists for this application type and season")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Season and size category group are required")
		default:
			return response.InternalServerError(c, "Failed to create fee constructor")
		}
	}

	return response.Created(c, "Fee constructor created", fc)
}

// EnableConstructor enables a fee schedule and regenerates its priced rows
// (Admin only)
func (h *FeeHandler) EnableConstructor(c *fiber.Ctx) error {
	id, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid constructor ID")
	}

	fc, err := h.feeService.EnableConstructor(c.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConstructorNotFound):
			return response.NotFound(c, "Fee constructor not found")
		case errors.Is(err, services.ErrDuplicateEnabled):
			return response.Conflict(c, "An enabled fee schedule already exists for this application type and season")
		default:
			return response.InternalServerError(c, "Failed to enable fee constructor")
		}
	}

	return response.Success(c, "Fee constructor enabled", fc)
}

// ReconstructFeeItems regenerates the priced-row cross-product of a fee
// schedule (Admin only)
func (h *FeeHandler) ReconstructFeeItems(c *fiber.Ctx) error {
	id, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid constructor ID")
	}

	if err := h.feeService.ReconstructFeeItems(c.Context(), id); err != nil {
		switch {
		case errors.Is(err, services.ErrConstructorNotFound):
			return response.NotFound(c, "Fee constructor not found")
		case errors.Is(err, domain.ErrNotConfigured):
			return response.BadRequest(c, "Constructor is missing its season or size category group")
		default:
			return response.InternalServerError(c, "Failed to regenerate fee items")
		}
	}

	return response.Success(c, "Fee items regenerated", nil)
}

// UpdateFeeItemRequest represents a priced-row amount change
type UpdateFeeItemRequest struct {
	Amount      string `json:"amount"`
	Incremental bool   `json:"incremental"`
}

// UpdateFeeItem sets the amount of one priced row (Admin only)
func (h *FeeHandler) UpdateFeeItem(c *fiber.Ctx) error {
	id, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid fee item ID")
	}

	var req UpdateFeeItemRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		return response.BadRequest(c, "Invalid amount")
	}

	item, err := h.feeService.UpdateFeeItemAmount(c.Context(), id, amount, req.Incremental)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingFeeItem):
			return response.NotFound(c, "Fee item not found")
		case errors.Is(err, domain.ErrScheduleFrozen):
			return response.Conflict(c, "Fee schedule has funded payments and can no longer be edited")
		default:
			return response.InternalServerError(c, "Failed to update fee item")
		}
	}

	return response.Success(c, "Fee item updated", item)
}

func (h *FeeHandler) paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err
}
