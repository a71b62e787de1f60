package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/xcruz-intermega/factu365-sub000/internal/application/ledger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	DocumentUC *ledger.DocumentUseCase
	FinalizeUC *ledger.FinalizeUseCase
	SeriesUC   *ledger.SeriesUseCase
	QueryUC    *ledger.LedgerQueryUseCase
	VerifyUC   *ledger.VerifyChainUseCase
	Tracker    *ledger.SubmissionTracker
	JWTSecret  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Documentos fiscales
	documents := protected.Group("/documents")
	documentHandler := NewDocumentHandler(deps.DocumentUC, deps.FinalizeUC)
	documents.Post("/", documentHandler.Create)
	documents.Get("/", documentHandler.List)
	documents.Get("/:id", documentHandler.GetByID)
	documents.Post("/:id/finalize", documentHandler.Finalize)
	documents.Post("/:id/cancel", RequireRole("admin", "contable"), documentHandler.Cancel)
	documents.Patch("/:id/status", documentHandler.UpdateStatus)

	// Ledger encadenado (solo lectura + reintento manual)
	ledgerGroup := protected.Group("/ledger")
	ledgerHandler := NewLedgerHandler(deps.QueryUC, deps.VerifyUC, deps.Tracker)
	ledgerGroup.Get("/entries", ledgerHandler.ListEntries)
	ledgerGroup.Get("/entries/:id", ledgerHandler.GetEntry)
	ledgerGroup.Get("/entries/:id/attempts", ledgerHandler.ListAttempts)
	ledgerGroup.Post("/entries/:id/retry", RequireRole("admin", "contable"), ledgerHandler.Retry)
	ledgerGroup.Get("/verify", ledgerHandler.Verify)

	// Contadores de serie (solo admin)
	series := protected.Group("/series", RequireRole("admin"))
	seriesHandler := NewSeriesHandler(deps.SeriesUC)
	series.Post("/", seriesHandler.Create)
	series.Get("/", seriesHandler.List)
}
