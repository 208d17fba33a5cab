package handlers

import (
	"errors"
	"strconv"

	"mooringhub/internal/core/domain"
	"mooringhub/internal/core/services"
	"mooringhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ApprovalHandler handles entitlement endpoints
type ApprovalHandler struct {
	approvalService   *services.ApprovalService
	complianceService *services.ComplianceService
	stickerService    *services.StickerService
	documents         services.DocumentGenerator
}

// NewApprovalHandler creates a new approval handler
func NewApprovalHandler(
	approvalService *services.ApprovalService,
	complianceService *services.ComplianceService,
	stickerService *services.StickerService,
	documents services.DocumentGenerator,
) *ApprovalHandler {
	return &ApprovalHandler{
		approvalService:   approvalService,
		complianceService: complianceService,
		stickerService:    stickerService,
		documents:         documents,
	}
}

// GetByID gets one entitlement with its relations
func (h *ApprovalHandler) GetByID(c *fiber.Ctx) error {
	approvalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid approval ID")
	}

	approval, err := h.approvalService.GetByID(c.Context(), approvalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "Approval not found")
		}
		return response.InternalServerError(c, "Failed to get approval")
	}

	// Applicants may only read their own entitlements.
	userID, _ := c.Locals("userID").(uint)
	role, _ := c.Locals("role").(string)
	if role == string(domain.RoleApplicant) && approval.SubmitterID != userID {
		return response.Forbidden(c, "You don't have permission to access this approval")
	}

	return response.Success(c, "Approval retrieved", approval)
}

// ListWaitingList returns the waiting-list queue in order (Officer/Admin)
func (h *ApprovalHandler) ListWaitingList(c *fiber.Ctx) error {
	allocations, err := h.approvalService.ListWaitingListAllocations(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list waiting list allocations")
	}

	return response.Success(c, "Waiting list retrieved", allocations)
}

// ListCompliances lists the compliance requirements of one entitlement
func (h *ApprovalHandler) ListCompliances(c *fiber.Ctx) error {
	approvalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid approval ID")
	}

	compliances, err := h.complianceService.ListByApproval(c.Context(), approvalID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list compliances")
	}

	return response.Success(c, "Compliances retrieved", compliances)
}

// ListStickers lists the stickers of one entitlement
func (h *ApprovalHandler) ListStickers(c *fiber.Ctx) error {
	approvalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid approval ID")
	}

	stickers, err := h.stickerService.ListByApproval(c.Context(), approvalID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list stickers")
	}

	return response.Success(c, "Stickers retrieved", stickers)
}

// GenerateLicence renders the licence document for an entitlement
func (h *ApprovalHandler) GenerateLicence(c *fiber.Ctx) error {
	approvalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid approval ID")
	}

	approval, err := h.approvalService.GetByID(c.Context(), approvalID)
	if err != nil {
		return response.NotFound(c, "Approval not found")
	}

	path, err := h.documents.GenerateLicenceDocument(c.Context(), approval)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate licence document")
	}

	return response.Success(c, "Licence document generated", fiber.Map{
		"path": path,
	})
}

// GenerateSummary renders the one-page summary for an entitlement
func (h *ApprovalHandler) GenerateSummary(c *fiber.Ctx) error {
	approvalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid approval ID")
	}

	approval, err := h.approvalService.GetByID(c.Context(), approvalID)
	if err != nil {
		return response.NotFound(c, "Approval not found")
	}

	path, err := h.documents.GenerateSummaryDocument(c.Context(), approval)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate summary document")
	}

	return response.Success(c, "Summary document generated", fiber.Map{
		"path": path,
	})
}

func (h *ApprovalHandler) paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err
}
