package handlers

import (
	"errors"
	"strconv"
	"time"

	"mooringhub/internal/core/services"
	"mooringhub/internal/pkg/pagination"
	"mooringhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ComplianceHandler handles compliance requirement endpoints
type ComplianceHandler struct {
	complianceService *services.ComplianceService
}

// NewComplianceHandler creates a new compliance handler
func NewComplianceHandler(complianceService *services.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{complianceService: complianceService}
}

// List lists compliances, optionally filtered by status (Officer/Admin)
func (h *ComplianceHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	status := c.Query("status")

	compliances, total, err := h.complianceService.List(c.Context(), status, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list compliances")
	}

	return response.Success(c, "Compliances retrieved", pagination.NewResponse(compliances, params, total))
}

// SubmitComplianceRequest represents a compliance submission body
type SubmitComplianceRequest struct {
	Text string `json:"text"`
}

// Submit lodges a due or overdue compliance for assessment
func (h *ComplianceHandler) Submit(c *fiber.Ctx) error {
	complianceID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid compliance ID")
	}

	var req SubmitComplianceRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	compliance, err := h.complianceService.Submit(c.Context(), complianceID, req.Text, time.Now())
	if err != nil {
		return h.complianceError(c, err)
	}

	return response.Success(c, "Compliance submitted", compliance)
}

// Accept approves a submitted compliance (Officer/Admin)
func (h *ComplianceHandler) Accept(c *fiber.Ctx) error {
	complianceID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid compliance ID")
	}

	compliance, err := h.complianceService.Accept(c.Context(), complianceID)
	if err != nil {
		return h.complianceError(c, err)
	}

	return response.Success(c, "Compliance accepted", compliance)
}

// Discard discards a compliance (Officer/Admin)
func (h *ComplianceHandler) Discard(c *fiber.Ctx) error {
	complianceID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid compliance ID")
	}

	compliance, err := h.complianceService.Discard(c.Context(), complianceID)
	if err != nil {
		return h.complianceError(c, err)
	}

	return response.Success(c, "Compliance discarded", compliance)
}

func (h *ComplianceHandler) paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err
}

func (h *ComplianceHandler) complianceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrComplianceNotFound):
		return response.NotFound(c, "Compliance not found")
	case errors.Is(err, services.ErrComplianceNotActionable):
		return response.Conflict(c, "Compliance is not in an actionable status")
	default:
		return response.InternalServerError(c, "Operation failed")
	}
}
