package handlers

import (
	"errors"
	"strconv"
	"time"

	"mooringhub/internal/core/domain"
	"mooringhub/internal/core/services"
	"mooringhub/internal/pkg/pagination"
	"mooringhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ProposalHandler handles application lifecycle endpoints
type ProposalHandler struct {
	proposalService *services.ProposalService
	pricingService  *services.PricingService
}

// NewProposalHandler creates a new proposal handler
func NewProposalHandler(proposalService *services.ProposalService, pricingService *services.PricingService) *ProposalHandler {
	return &ProposalHandler{
		proposalService: proposalService,
		pricingService:  pricingService,
	}
}

// Create opens a draft application for the authenticated user
func (h *ProposalHandler) Create(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.CreateProposalInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	input.SubmitterID = userID

	proposal, err := h.proposalService.Create(c.Context(), input)
	if err != nil {
		return h.proposalError(c, err)
	}

	return response.Created(c, "Application created", proposal)
}

// List lists applications. Officers see everything; applicants see their own.
func (h *ProposalHandler) List(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	role, _ := c.Locals("role").(string)

	params := pagination.GetParams(c)

	if role == string(domain.RoleApplicant) {
		proposals, total, err := h.proposalService.ListBySubmitter(c.Context(), userID, params.Offset, params.Limit)
		if err != nil {
			return response.InternalServerError(c, "Failed to list applications")
		}
		return response.Success(c, "Applications retrieved", pagination.NewResponse(proposals, params, total))
	}

	proposals, total, err := h.proposalService.List(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list applications")
	}
	return response.Success(c, "Applications retrieved", pagination.NewResponse(proposals, params, total))
}

// GetByID gets one application
func (h *ProposalHandler) GetByID(c *fiber.Ctx) error {
	proposalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid application ID")
	}

	proposal, err := h.proposalService.GetByID(c.Context(), proposalID)
	if err != nil {
		return h.proposalError(c, err)
	}

	// Applicants may only read their own applications.
	userID, _ := c.Locals("userID").(uint)
	role, _ := c.Locals("role").(string)
	if role == string(domain.RoleApplicant) && proposal.SubmitterID != userID {
		return response.Forbidden(c, "You don't have permission to access this application")
	}

	return response.Success(c, "Application retrieved", proposal)
}

// Quote prices an application without lodging it
func (h *ProposalHandler) Quote(c *fiber.Ctx) error {
	proposalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid application ID")
	}

	proposal, err := h.proposalService.GetByID(c.Context(), proposalID)
	if err != nil {
		return h.proposalError(c, err)
	}

	userID, _ := c.Locals("userID").(uint)
	role, _ := c.Locals("role").(string)
	if role == string(domain.RoleApplicant) && proposal.SubmitterID != userID {
		return response.Forbidden(c, "You don't have permission to access this application")
	}

	quote, err := h.pricingService.FeeLines(c.Context(), proposal, time.Now())
	if err != nil {
		return h.proposalError(c, err)
	}

	return response.Success(c, "Fee quote calculated", quote)
}

// Submit lodges a draft application
func (h *ProposalHandler) Submit(c *fiber.Ctx) error {
	proposalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid application ID")
	}
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	proposal, err := h.proposalService.Submit(c.Context(), proposalID, userID, time.Now())
	if err != nil {
		return h.proposalError(c, err)
	}

	return response.Success(c, "Application submitted", proposal)
}

// Withdraw discards an application, by its submitter or an assessor
func (h *ProposalHandler) Withdraw(c *fiber.Ctx) error {
	proposalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid application ID")
	}
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	proposal, err := h.proposalService.Withdraw(c.Context(), proposalID, userID, time.Now())
	if err != nil {
		return h.proposalError(c, err)
	}

	return response.Success(c, "Application withdrawn", proposal)
}

// EndorseRequest represents an endorsement decision
type EndorseRequest struct {
	Endorsed bool   `json:"endorsed"`
	Reason   string `json:"reason"`
}

// Endorse records a site licensee endorsement decision
func (h *ProposalHandler) Endorse(c *fiber.Ctx) error {
	proposalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid application ID")
	}
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req EndorseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	proposal, err := h.proposalService.Endorse(c.Context(), proposalID, userID, req.Endorsed, req.Reason)
	if err != nil {
		return h.proposalError(c, err)
	}

	return response.Success(c, "Endorsement recorded", proposal)
}

// MoveStatusRequest represents an assessor workflow move
type MoveStatusRequest struct {
	Status string `json:"status"`
}

// MoveToStatus moves an application between assessor workflow statuses
func (h *ProposalHandler) MoveToStatus(c *fiber.Ctx) error {
	proposalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid application ID")
	}
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req MoveStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	proposal, err := h.proposalService.MoveToStatus(c.Context(), proposalID, userID, domain.ProcessingStatus(req.Status))
	if err != nil {
		return h.proposalError(c, err)
	}

	return response.Success(c, "Application status updated", proposal)
}

// AddRequirement attaches a condition to an application under assessment
func (h *ProposalHandler) AddRequirement(c *fiber.Ctx) error {
	proposalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid application ID")
	}
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.AddRequirementInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.Requirement == "" {
		return response.BadRequest(c, "Requirement text is required")
	}

	requirement, err := h.proposalService.AddRequirement(c.Context(), proposalID, userID, input)
	if err != nil {
		return h.proposalError(c, err)
	}

	return response.Created(c, "Requirement added", requirement)
}

// ProposeApproval puts a recommendation to approve before the approver
func (h *ProposalHandler) ProposeApproval(c *fiber.Ctx) error {
	proposalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid application ID")
	}
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.ProposeApprovalInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	proposal, err := h.proposalService.ProposeApproval(c.Context(), proposalID, userID, input)
	if err != nil {
		return h.proposalError(c, err)
	}

	return response.Success(c, "Approval proposed", proposal)
}

// DeclineRequest represents a decline decision
type DeclineRequest struct {
	Reason string `json:"reason"`
}

// ProposeDecline puts a recommendation to decline before the approver
func (h *ProposalHandler) ProposeDecline(c *fiber.Ctx) error {
	proposalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid application ID")
	}
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req DeclineRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	proposal, err := h.proposalService.ProposeDecline(c.Context(), proposalID, userID, req.Reason)
	if err != nil {
		return h.proposalError(c, err)
	}

	return response.Success(c, "Decline proposed", proposal)
}

// FinalApproval finally approves an application, raising the final invoice
// or issuing the entitlement
func (h *ProposalHandler) FinalApproval(c *fiber.Ctx) error {
	proposalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid application ID")
	}
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	proposal, err := h.proposalService.FinalApproval(c.Context(), proposalID, userID, time.Now())
	if err != nil {
		return h.proposalError(c, err)
	}

	return response.Success(c, "Application approved", proposal)
}

// FinalDecline finally declines an application
func (h *ProposalHandler) FinalDecline(c *fiber.Ctx) error {
	proposalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid application ID")
	}
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req DeclineRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	proposal, err := h.proposalService.FinalDecline(c.Context(), proposalID, userID, req.Reason, time.Now())
	if err != nil {
		return h.proposalError(c, err)
	}

	return response.Success(c, "Application declined", proposal)
}

// Reissue reopens an approved application for reassessment
func (h *ProposalHandler) Reissue(c *fiber.Ctx) error {
	proposalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid application ID")
	}
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	proposal, err := h.proposalService.Reissue(c.Context(), proposalID, userID)
	if err != nil {
		return h.proposalError(c, err)
	}

	return response.Success(c, "Application reopened for reassessment", proposal)
}

// DocumentsReceived records that awaited documents have arrived
func (h *ProposalHandler) DocumentsReceived(c *fiber.Ctx) error {
	proposalID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid application ID")
	}
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	proposal, err := h.proposalService.DocumentsReceived(c.Context(), proposalID, userID)
	if err != nil {
		return h.proposalError(c, err)
	}

	return response.Success(c, "Documents received", proposal)
}

func (h *ProposalHandler) paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err
}

// proposalError maps service errors to HTTP responses
func (h *ProposalHandler) proposalError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, "Application not found")
	case errors.Is(err, domain.ErrNotAuthorized):
		return response.Forbidden(c, "Not authorized to perform this action")
	case errors.Is(err, domain.ErrInvalidState):
		return response.Conflict(c, "Action not permitted from the current status")
	case errors.Is(err, domain.ErrBlockingProposal):
		return response.Conflict(c, "Another active application references the same vessel")
	case errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, "Invalid input")
	case errors.Is(err, domain.ErrNotConfigured):
		return response.BadRequest(c, "No fee schedule configured for this application type and date")
	case errors.Is(err, domain.ErrNoMatchingCategory):
		return response.BadRequest(c, "No vessel size category matches the vessel length")
	case errors.Is(err, domain.ErrMissingFeeItem):
		return response.BadRequest(c, "Fee item not configured")
	case errors.Is(err, domain.ErrPaymentGateway):
		return response.Error(c, fiber.StatusBadGateway, "Payment gateway request failed")
	default:
		return response.InternalServerError(c, "Operation failed")
	}
}
