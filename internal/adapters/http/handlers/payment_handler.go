package handlers

import (
	"errors"
	"time"

	"mooringhub/internal/core/domain"
	"mooringhub/internal/core/services"
	"mooringhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles payment gateway callbacks
type PaymentHandler struct {
	proposalService *services.ProposalService
	gateway         services.PaymentGateway
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(proposalService *services.ProposalService, gateway services.PaymentGateway) *PaymentHandler {
	return &PaymentHandler{
		proposalService: proposalService,
		gateway:         gateway,
	}
}

// CallbackRequest represents a payment gateway callback body
type CallbackRequest struct {
	InvoiceReference string `json:"invoice_reference"`
}

// Callback completes payment for an invoice. The reported status is never
// trusted: the invoice is re-checked against the gateway before the
// application moves on.
func (h *PaymentHandler) Callback(c *fiber.Ctx) error {
	var req CallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.InvoiceReference == "" {
		return response.BadRequest(c, "Invoice reference is required")
	}

	status, err := h.gateway.GetPaymentStatus(c.Context(), req.InvoiceReference)
	if err != nil {
		return response.Error(c, fiber.StatusBadGateway, "Failed to verify payment with gateway")
	}
	if status != "paid" {
		return response.Conflict(c, "Invoice is not paid")
	}

	proposal, err := h.proposalService.CompletePayment(c.Context(), req.InvoiceReference, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return response.NotFound(c, "No application found for this invoice")
		default:
			return response.InternalServerError(c, "Failed to complete payment")
		}
	}

	return response.Success(c, "Payment recorded", proposal)
}
