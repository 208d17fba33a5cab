package handlers

import (
	"mooringhub/internal/core/domain"
	"mooringhub/internal/core/services"
	"mooringhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetMyDashboard returns the dashboard matching the caller's role
func (h *DashboardHandler) GetMyDashboard(c *fiber.Ctx) error {
	role, _ := c.Locals("role").(string)

	switch domain.Role(role) {
	case domain.RoleAdmin:
		return h.GetAdminDashboard(c)
	case domain.RoleOfficer:
		return h.GetOfficerDashboard(c)
	default:
		return h.GetUserDashboard(c)
	}
}

// GetAdminDashboard returns admin dashboard data (Admin only)
func (h *DashboardHandler) GetAdminDashboard(c *fiber.Ctx) error {
	data, err := h.dashboardService.GetAdminDashboard(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to load dashboard")
	}
	return response.Success(c, "Dashboard retrieved", data)
}

// GetOfficerDashboard returns officer dashboard data (Officer/Admin)
func (h *DashboardHandler) GetOfficerDashboard(c *fiber.Ctx) error {
	data, err := h.dashboardService.GetOfficerDashboard(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to load dashboard")
	}
	return response.Success(c, "Dashboard retrieved", data)
}

// GetUserDashboard returns the caller's applicant dashboard
func (h *DashboardHandler) GetUserDashboard(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	data, err := h.dashboardService.GetUserDashboard(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load dashboard")
	}
	return response.Success(c, "Dashboard retrieved", data)
}
