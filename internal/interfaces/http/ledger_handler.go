package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/xcruz-intermega/factu365-sub000/internal/application/dto"
	"github.com/xcruz-intermega/factu365-sub000/internal/application/ledger"
)

// LedgerHandler maneja las consultas del ledger encadenado y sus envíos
// (protegido). El ledger no tiene endpoints de escritura: los registros solo
// nacen vía finalize/cancel.
type LedgerHandler struct {
	queryUC  *ledger.LedgerQueryUseCase
	verifyUC *ledger.VerifyChainUseCase
	tracker  *ledger.SubmissionTracker
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(queryUC *ledger.LedgerQueryUseCase, verifyUC *ledger.VerifyChainUseCase, tracker *ledger.SubmissionTracker) *LedgerHandler {
	return &LedgerHandler{queryUC: queryUC, verifyUC: verifyUC, tracker: tracker}
}

// ListEntries lista los registros de un emisor en orden de cadena.
// GET /api/ledger/entries?issuer=&limit=&offset=
func (h *LedgerHandler) ListEntries(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	issuer := c.Query("issuer")
	if issuer == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "issuer requerido"})
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	entries, err := h.queryUC.ListEntries(c.Context(), companyID, issuer, page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}

// GetEntry devuelve un registro con su último resultado de envío.
// GET /api/ledger/entries/:id
func (h *LedgerHandler) GetEntry(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	entry, err := h.queryUC.GetEntry(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entry)
}

// ListAttempts historial de intentos de envío de un registro.
// GET /api/ledger/entries/:id/attempts
func (h *LedgerHandler) ListAttempts(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	attempts, err := h.queryUC.ListAttempts(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(attempts)
}

// Retry fuerza un reintento de envío inmediato de un registro.
// POST /api/ledger/entries/:id/retry
func (h *LedgerHandler) Retry(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	// La pertenencia a la empresa se valida antes de tocar el tracker.
	if _, err := h.queryUC.GetEntry(c.Context(), companyID, id); err != nil {
		return respondError(c, err)
	}
	attempt, err := h.tracker.Submit(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SubmissionAttemptResponse{
		AttemptNumber: attempt.AttemptNumber,
		Outcome:       attempt.Outcome,
		HTTPStatus:    attempt.HTTPStatus,
		AuthorityRef:  attempt.AuthorityRef,
		ErrorCode:     attempt.ErrorCode,
		ErrorDesc:     attempt.ErrorDesc,
		StartedAt:     attempt.StartedAt,
		CompletedAt:   attempt.CompletedAt,
	})
}

// Verify recorre la cadena completa del emisor recalculando huellas y enlaces.
// GET /api/ledger/verify?issuer=
func (h *LedgerHandler) Verify(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	issuer := c.Query("issuer")
	if issuer == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "issuer requerido"})
	}
	report, err := h.verifyUC.Verify(c.Context(), issuer)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}
