package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xcruz-intermega/factu365-sub000/internal/application/dto"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/repository"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/tax"
	"github.com/xcruz-intermega/factu365-sub000/pkg/logger"
)

const issueDateLayout = "2006-01-02"

var validCategories = map[string]bool{
	entity.DocCategoryInvoice:       true,
	entity.DocCategoryRectification: true,
	entity.DocCategoryPurchase:      true,
}

var validDirections = map[string]bool{
	entity.DocDirectionIssued:   true,
	entity.DocDirectionReceived: true,
}

// DocumentUseCase gestiona el ciclo de borrador de documentos fiscales:
// creación con totales calculados, consulta y listado. La numeración y el
// encadenamiento pertenecen a FinalizeUseCase.
type DocumentUseCase struct {
	docRepo    repository.DocumentRepository
	surcharges tax.SurchargeTable
	log        *logger.Logger
}

// NewDocumentUseCase crea el caso de uso.
func NewDocumentUseCase(docRepo repository.DocumentRepository, surcharges tax.SurchargeTable, log *logger.Logger) *DocumentUseCase {
	return &DocumentUseCase{docRepo: docRepo, surcharges: surcharges, log: log}
}

// CreateDraft valida la petición, calcula líneas y totales con la política de
// redondeo temprano y persiste el documento en estado DRAFT. Las cantidades
// negativas se admiten (rectificativas por diferencias).
func (uc *DocumentUseCase) CreateDraft(ctx context.Context, companyID string, req *dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	if err := uc.validate(req); err != nil {
		return nil, err
	}

	issueDate, err := parseDateOrToday(req.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("issue_date inválida %q: %w", req.IssueDate, domain.ErrInvalidInput)
	}
	opDate := issueDate
	if req.OperationDate != "" {
		if opDate, err = parseDateOrToday(req.OperationDate); err != nil {
			return nil, fmt.Errorf("operation_date inválida %q: %w", req.OperationDate, domain.ErrInvalidInput)
		}
	}

	inputs := make([]tax.LineInput, len(req.Lines))
	for i, l := range req.Lines {
		surcharge := decimal.Zero
		if l.ApplySurcharge {
			surcharge = uc.surcharges.Lookup(l.VatRate)
		}
		inputs[i] = tax.LineInput{
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			VatRate:         l.VatRate,
			WithholdingRate: l.WithholdingRate,
			SurchargeRate:   surcharge,
		}
	}
	totals := tax.CalculateDocument(inputs, req.GlobalDiscount)

	now := time.Now()
	doc := &entity.FiscalDocument{
		ID:                uuid.New().String(),
		CompanyID:         companyID,
		IssuerTaxID:       req.IssuerTaxID,
		CounterpartyTaxID: req.CounterpartyTaxID,
		CounterpartyName:  req.CounterpartyName,
		Category:          req.Category,
		Direction:         req.Direction,
		IssueDate:         issueDate,
		OperationDate:     opDate,
		Subtotal:          totals.Subtotal,
		TaxBase:           totals.TaxBase,
		TotalVat:          totals.TotalVat,
		TotalWithholding:  totals.TotalWithholding,
		TotalSurcharge:    totals.TotalSurcharge,
		GrandTotal:        totals.Total,
		GlobalDiscount:    req.GlobalDiscount,
		Status:            entity.DocStatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	lines := make([]*entity.FiscalDocumentLine, len(req.Lines))
	for i, l := range req.Lines {
		r := tax.CalculateLine(inputs[i])
		lines[i] = &entity.FiscalDocumentLine{
			ID:              uuid.New().String(),
			DocumentID:      doc.ID,
			Position:        i + 1,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			VatRate:         l.VatRate,
			WithholdingRate: l.WithholdingRate,
			SurchargeRate:   inputs[i].SurchargeRate,
			Subtotal:        r.Subtotal,
			DiscountAmount:  r.DiscountAmount,
			TaxableAmount:   r.TaxableAmount,
			VatAmount:       r.VatAmount,
		}
	}

	if err := uc.docRepo.Create(ctx, doc, lines); err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("document_id", doc.ID).
		Str("category", doc.Category).
		Str("total", doc.GrandTotal.StringFixed(2)).
		Msg("borrador creado")
	return toDocumentResponse(doc), nil
}

// Get devuelve un documento de la empresa.
func (uc *DocumentUseCase) Get(ctx context.Context, companyID, documentID string) (*dto.DocumentResponse, error) {
	doc, err := uc.load(ctx, companyID, documentID)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

// List pagina los documentos de la empresa.
func (uc *DocumentUseCase) List(ctx context.Context, companyID string, page dto.PageRequest) ([]*dto.DocumentResponse, error) {
	page.DefaultPage()
	docs, err := uc.docRepo.ListByCompany(ctx, companyID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.DocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = toDocumentResponse(d)
	}
	return out, nil
}

// UpdateStatus aplica transiciones de ciclo de cobro (SENT, PAID, OVERDUE).
// CANCELLED no pasa por aquí: la anulación exige registro encadenado y la
// gestiona FinalizeUseCase.Cancel.
func (uc *DocumentUseCase) UpdateStatus(ctx context.Context, companyID, documentID, status string) error {
	switch status {
	case entity.DocStatusSent, entity.DocStatusPaid, entity.DocStatusOverdue:
	default:
		return fmt.Errorf("estado %q no admitido: %w", status, domain.ErrInvalidInput)
	}
	doc, err := uc.load(ctx, companyID, documentID)
	if err != nil {
		return err
	}
	if doc.Status == entity.DocStatusDraft || doc.Status == entity.DocStatusCancelled {
		return fmt.Errorf("transición %s→%s no permitida: %w", doc.Status, status, domain.ErrConflict)
	}
	return uc.docRepo.UpdateStatus(ctx, documentID, status)
}

func (uc *DocumentUseCase) load(ctx context.Context, companyID, documentID string) (*entity.FiscalDocument, error) {
	doc, err := uc.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (uc *DocumentUseCase) validate(req *dto.CreateDocumentRequest) error {
	if req == nil || len(req.Lines) == 0 {
		return fmt.Errorf("el documento necesita al menos una línea: %w", domain.ErrInvalidInput)
	}
	if req.IssuerTaxID == "" {
		return fmt.Errorf("issuer_tax_id es obligatorio: %w", domain.ErrInvalidInput)
	}
	if !validCategories[req.Category] {
		return fmt.Errorf("categoría %q no admitida: %w", req.Category, domain.ErrInvalidInput)
	}
	if !validDirections[req.Direction] {
		return fmt.Errorf("dirección %q no admitida: %w", req.Direction, domain.ErrInvalidInput)
	}
	for i, l := range req.Lines {
		if l.VatRate.IsNegative() || l.WithholdingRate.IsNegative() {
			return fmt.Errorf("línea %d: tipos negativos: %w", i+1, domain.ErrInvalidInput)
		}
	}
	if req.GlobalDiscount.IsNegative() || req.GlobalDiscount.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("descuento global fuera de rango: %w", domain.ErrInvalidInput)
	}
	return nil
}

func parseDateOrToday(s string) (time.Time, error) {
	if s == "" {
		// Día natural en la zona local, no el día UTC: cerca de medianoche
		// difieren y la fecha de expedición entra en la cadena canónica.
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}
	return time.Parse(issueDateLayout, s)
}

func toDocumentResponse(d *entity.FiscalDocument) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		ID:               d.ID,
		Category:         d.Category,
		Direction:        d.Direction,
		IssuerTaxID:      d.IssuerTaxID,
		SeriesID:         d.SeriesID,
		Number:           d.Number,
		IssueDate:        d.IssueDate.Format(issueDateLayout),
		Status:           d.Status,
		Subtotal:         d.Subtotal,
		TaxBase:          d.TaxBase,
		TotalVat:         d.TotalVat,
		TotalWithholding: d.TotalWithholding,
		TotalSurcharge:   d.TotalSurcharge,
		GrandTotal:       d.GrandTotal,
	}
}
