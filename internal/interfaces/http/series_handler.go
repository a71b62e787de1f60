package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/xcruz-intermega/factu365-sub000/internal/application/dto"
	"github.com/xcruz-intermega/factu365-sub000/internal/application/ledger"
)

// SeriesHandler administración de contadores de serie (protegido, solo admin).
type SeriesHandler struct {
	uc *ledger.SeriesUseCase
}

// NewSeriesHandler construye el handler.
func NewSeriesHandler(uc *ledger.SeriesUseCase) *SeriesHandler {
	return &SeriesHandler{uc: uc}
}

// Create da de alta un contador de serie.
// POST /api/series
func (h *SeriesHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreateSeriesRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	series, err := h.uc.Create(c.Context(), companyID, &in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(series)
}

// List contadores de la empresa.
// GET /api/series
func (h *SeriesHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	series, err := h.uc.List(c.Context(), companyID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(series)
}
