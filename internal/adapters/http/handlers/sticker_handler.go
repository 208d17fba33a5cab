package handlers

import (
	"errors"
	"strconv"
	"time"

	"mooringhub/internal/core/services"
	"mooringhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// StickerHandler handles vessel sticker endpoints
type StickerHandler struct {
	stickerService *services.StickerService
}

// NewStickerHandler creates a new sticker handler
func NewStickerHandler(stickerService *services.StickerService) *StickerHandler {
	return &StickerHandler{stickerService: stickerService}
}

// MarkPrintedRequest represents a sticker printing confirmation
type MarkPrintedRequest struct {
	Number string `json:"number"`
}

// MarkPrinted records that a sticker was printed and mailed (Officer/Admin)
func (h *StickerHandler) MarkPrinted(c *fiber.Ctx) error {
	stickerID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid sticker ID")
	}

	var req MarkPrintedRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Number == "" {
		return response.BadRequest(c, "Sticker number is required")
	}

	sticker, err := h.stickerService.MarkPrinted(c.Context(), stickerID, req.Number, time.Now())
	if err != nil {
		return h.stickerError(c, err)
	}

	return response.Success(c, "Sticker marked as printed", sticker)
}

// RecordReturn records that a recalled sticker came back (Officer/Admin)
func (h *StickerHandler) RecordReturn(c *fiber.Ctx) error {
	stickerID, err := h.paramID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid sticker ID")
	}

	sticker, err := h.stickerService.RecordReturn(c.Context(), stickerID)
	if err != nil {
		return h.stickerError(c, err)
	}

	return response.Success(c, "Sticker return recorded", sticker)
}

func (h *StickerHandler) paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err
}

func (h *StickerHandler) stickerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrStickerNotFound):
		return response.NotFound(c, "Sticker not found")
	case errors.Is(err, services.ErrStickerNotActionable):
		return response.Conflict(c, "Sticker is not in an actionable status")
	default:
		return response.InternalServerError(c, "Operation failed")
	}
}
