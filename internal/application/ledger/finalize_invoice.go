package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xcruz-intermega/factu365-sub000/internal/application/dto"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/repository"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/tax"
	domvf "github.com/xcruz-intermega/factu365-sub000/internal/domain/verifactu"
	infravf "github.com/xcruz-intermega/factu365-sub000/internal/infrastructure/verifactu"
	pkgvf "github.com/xcruz-intermega/factu365-sub000/pkg/verifactu"
)

// Config parámetros VERI*FACTU del caso de uso (emisor obligado, bloque de
// sistema informático, entorno y URL base del QR).
type Config struct {
	IssuerName    string
	Sistema       infravf.SistemaInformatico
	AppEnv        string // dev | test | prod
	QRBaseURL     string
	SubmitTimeout time.Duration
}

// FinalizeUseCase ejecuta la transición draft → numerado+encadenado.
//
// Finalize es una única transacción: asignar número de serie, congelarlo en el
// documento, leer la última huella del emisor bajo el mismo bloqueo y
// persistir el registro inmutable. Si cualquier paso falla, todo revierte: el
// documento nunca queda "numerado pero no encadenado" ni al revés.
type FinalizeUseCase struct {
	txRunner FinalizeTxRunner
	docRepo  repository.DocumentRepository
	tracker  *SubmissionTracker // nil desactiva el envío automático
	cfg      Config
	now      func() time.Time
}

// NewFinalizeUseCase construye el caso de uso.
func NewFinalizeUseCase(
	txRunner FinalizeTxRunner,
	docRepo repository.DocumentRepository,
	tracker *SubmissionTracker,
	cfg Config,
) *FinalizeUseCase {
	return &FinalizeUseCase{
		txRunner: txRunner,
		docRepo:  docRepo,
		tracker:  tracker,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Finalize numera y encadena el documento. seriesID vacío usa el contador por
// defecto de (categoría, ejercicio). Errores tipados: domain.ErrNotFound,
// domain.ErrNotFinalizable, domain.ErrSeriesNotFound, domain.ErrLockTimeout.
func (uc *FinalizeUseCase) Finalize(ctx context.Context, companyID, documentID, seriesID string) (*dto.FinalizeResponse, error) {
	doc, err := uc.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	if !doc.IsFinalizable() {
		return nil, domain.ErrNotFinalizable
	}

	// El desglose por tipo se recalcula de las líneas con la misma política de
	// redondeo con la que se congelaron los totales del borrador.
	lines, err := uc.docRepo.GetLines(ctx, documentID)
	if err != nil {
		return nil, err
	}
	totals := tax.CalculateDocument(lineInputs(lines), doc.GlobalDiscount)

	var entry *entity.LedgerEntry
	var alloc *entity.SequenceAllocation

	err = uc.txRunner.RunFinalize(ctx, func(
		seqRepo repository.SequenceCounterRepository,
		docRepo repository.DocumentRepository,
		ledgerRepo repository.LedgerEntryRepository,
	) error {
		// 1) Número de serie bajo bloqueo de fila del contador.
		alloc, err = seqRepo.AllocateNext(ctx, companyID, doc.Category, doc.IssueDate.Year(), seriesID)
		if err != nil {
			return err
		}

		// 2) Congelar serie y número en el documento (DRAFT → REGISTERED).
		if err := docRepo.AssignNumber(ctx, doc.ID, alloc.SeriesID, alloc.FormattedNumber); err != nil {
			return err
		}

		// 3) Última huella del emisor, bajo bloqueo de la cabeza de cadena.
		// Un solo escritor por emisor: dos finalize concurrentes del mismo
		// emisor no pueden leer la misma "última huella".
		prevHash, err := ledgerRepo.LockChainHead(ctx, doc.IssuerTaxID)
		if err != nil {
			return err
		}

		// 4) Cadena canónica y huella.
		generatedAt := uc.now()
		params := domvf.RegistroParams{
			IssuerTaxID:      doc.IssuerTaxID,
			SeriesNumber:     alloc.FormattedNumber,
			ExpeditionDate:   doc.IssueDate,
			DocumentTypeCode: documentTypeCode(doc.Category),
			VatQuota:         totals.TotalVat,
			TotalAmount:      totals.Total,
			PreviousHash:     prevHash,
			GeneratedAt:      generatedAt,
		}
		input := domvf.CanonicalInput(params)

		// 5) Registro inmutable con su desglose, avanzando la cabeza de cadena.
		entry = &entity.LedgerEntry{
			ID:               uuid.New().String(),
			CompanyID:        companyID,
			IssuerTaxID:      doc.IssuerTaxID,
			SeriesNumber:     alloc.FormattedNumber,
			ExpeditionDate:   doc.IssueDate,
			EntryType:        entity.LedgerEntryAlta,
			DocumentTypeCode: params.DocumentTypeCode,
			VatQuota:         totals.TotalVat,
			TotalAmount:      totals.Total,
			PreviousHash:     prevHash,
			Hash:             domvf.ComputeHash(input),
			GeneratedAt:      generatedAt,
			CanonicalPayload: input,
			DocumentID:       doc.ID,
		}
		return ledgerRepo.Insert(ctx, entry, breakdownLines(entry.ID, totals))
	})
	if err != nil {
		return nil, err
	}

	// El envío al WS queda fuera de la transacción: es una llamada de red
	// reintentable que no debe mantener abierta la transacción de finalize.
	if uc.tracker != nil {
		uc.tracker.SubmitAsync(entry.ID)
	}

	return &dto.FinalizeResponse{
		DocumentID:   doc.ID,
		SeriesID:     alloc.SeriesID,
		Number:       alloc.FormattedNumber,
		EntryID:      entry.ID,
		Hash:         entry.Hash,
		PreviousHash: entry.PreviousHash,
		ValidationURL: infravf.BuildValidationURL(
			uc.cfg.QRBaseURL, doc.IssuerTaxID, alloc.FormattedNumber, doc.IssueDate, totals.Total),
	}, nil
}

// Cancel anula un documento REGISTERED añadiendo un registro de anulación a la
// misma cadena del emisor. El registro de alta original no se toca jamás.
func (uc *FinalizeUseCase) Cancel(ctx context.Context, companyID, documentID string) (*dto.FinalizeResponse, error) {
	doc, err := uc.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	if doc.Status != entity.DocStatusRegistered && doc.Status != entity.DocStatusSent {
		return nil, fmt.Errorf("anular %s: %w", doc.Status, domain.ErrConflict)
	}

	var entry *entity.LedgerEntry
	err = uc.txRunner.RunFinalize(ctx, func(
		_ repository.SequenceCounterRepository,
		docRepo repository.DocumentRepository,
		ledgerRepo repository.LedgerEntryRepository,
	) error {
		prevHash, err := ledgerRepo.LockChainHead(ctx, doc.IssuerTaxID)
		if err != nil {
			return err
		}
		generatedAt := uc.now()
		params := domvf.RegistroParams{
			IssuerTaxID:      doc.IssuerTaxID,
			SeriesNumber:     doc.Number,
			ExpeditionDate:   doc.IssueDate,
			DocumentTypeCode: documentTypeCode(doc.Category),
			VatQuota:         doc.TotalVat,
			TotalAmount:      doc.GrandTotal,
			PreviousHash:     prevHash,
			GeneratedAt:      generatedAt,
		}
		input := domvf.CanonicalInput(params)
		entry = &entity.LedgerEntry{
			ID:               uuid.New().String(),
			CompanyID:        companyID,
			IssuerTaxID:      doc.IssuerTaxID,
			SeriesNumber:     doc.Number,
			ExpeditionDate:   doc.IssueDate,
			EntryType:        entity.LedgerEntryAnulacion,
			DocumentTypeCode: params.DocumentTypeCode,
			VatQuota:         doc.TotalVat,
			TotalAmount:      doc.GrandTotal,
			PreviousHash:     prevHash,
			Hash:             domvf.ComputeHash(input),
			GeneratedAt:      generatedAt,
			CanonicalPayload: input,
			DocumentID:       doc.ID,
		}
		if err := ledgerRepo.Insert(ctx, entry, nil); err != nil {
			return err
		}
		return docRepo.UpdateStatus(ctx, doc.ID, entity.DocStatusCancelled)
	})
	if err != nil {
		return nil, err
	}

	if uc.tracker != nil {
		uc.tracker.SubmitAsync(entry.ID)
	}
	return &dto.FinalizeResponse{
		DocumentID:   doc.ID,
		SeriesID:     doc.SeriesID,
		Number:       doc.Number,
		EntryID:      entry.ID,
		Hash:         entry.Hash,
		PreviousHash: entry.PreviousHash,
	}, nil
}

// documentTypeCode mapea la categoría del documento al TipoFactura del registro.
func documentTypeCode(category string) string {
	switch category {
	case entity.DocCategoryRectification:
		return pkgvf.TipoRectificativaResto
	default:
		return pkgvf.TipoFacturaCompleta
	}
}

func lineInputs(lines []*entity.FiscalDocumentLine) []tax.LineInput {
	inputs := make([]tax.LineInput, len(lines))
	for i, l := range lines {
		inputs[i] = tax.LineInput{
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			VatRate:         l.VatRate,
			WithholdingRate: l.WithholdingRate,
			SurchargeRate:   l.SurchargeRate,
		}
	}
	return inputs
}

func breakdownLines(entryID string, totals tax.DocumentTotals) []entity.VatBreakdownLine {
	out := make([]entity.VatBreakdownLine, 0, len(totals.Breakdown))
	for _, b := range totals.Breakdown {
		out = append(out, entity.VatBreakdownLine{
			EntryID:  entryID,
			VatRate:  b.VatRate,
			TaxBase:  b.TaxBase,
			VatQuota: b.VatQuota,
		})
	}
	return out
}
