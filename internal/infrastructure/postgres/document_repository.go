package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

// Create persiste la cabecera y las líneas del documento.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.FiscalDocument, lines []*entity.FiscalDocumentLine) error {
	query := `
		INSERT INTO fiscal_documents (id, company_id, issuer_tax_id, counterparty_tax_id, counterparty_name,
		                              category, direction, series_id, number, issue_date, operation_date,
		                              subtotal, tax_base, total_vat, total_withholding, total_surcharge,
		                              grand_total, global_discount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.CompanyID, doc.IssuerTaxID, nullIfEmpty(doc.CounterpartyTaxID), nullIfEmpty(doc.CounterpartyName),
		doc.Category, doc.Direction, nullIfEmpty(doc.SeriesID), nullIfEmpty(doc.Number), doc.IssueDate, doc.OperationDate,
		doc.Subtotal, doc.TaxBase, doc.TotalVat, doc.TotalWithholding, doc.TotalSurcharge,
		doc.GrandTotal, doc.GlobalDiscount, doc.Status, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fiscal document: %w", err)
	}
	for _, l := range lines {
		_, err := r.q.Exec(ctx, `
			INSERT INTO fiscal_document_lines (id, document_id, position, description, quantity, unit_price,
			                                   discount_percent, vat_rate, withholding_rate, surcharge_rate,
			                                   subtotal, discount_amount, taxable_amount, vat_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			l.ID, l.DocumentID, l.Position, l.Description, l.Quantity, l.UnitPrice,
			l.DiscountPercent, l.VatRate, l.WithholdingRate, l.SurchargeRate,
			l.Subtotal, l.DiscountAmount, l.TaxableAmount, l.VatAmount,
		)
		if err != nil {
			return fmt.Errorf("insert document line: %w", err)
		}
	}
	return nil
}

// GetByID obtiene la cabecera de un documento.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	return r.scanOne(r.q.QueryRow(ctx, documentSelect+` WHERE id = $1`, id))
}

// GetLines devuelve las líneas en orden de posición.
func (r *DocumentRepo) GetLines(ctx context.Context, documentID string) ([]*entity.FiscalDocumentLine, error) {
	query := `
		SELECT id, document_id, position, description, quantity, unit_price, discount_percent,
		       vat_rate, withholding_rate, surcharge_rate, subtotal, discount_amount, taxable_amount, vat_amount
		FROM fiscal_document_lines WHERE document_id = $1 ORDER BY position`
	rows, err := r.q.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.FiscalDocumentLine
	for rows.Next() {
		var l entity.FiscalDocumentLine
		if err := rows.Scan(
			&l.ID, &l.DocumentID, &l.Position, &l.Description, &l.Quantity, &l.UnitPrice, &l.DiscountPercent,
			&l.VatRate, &l.WithholdingRate, &l.SurchargeRate, &l.Subtotal, &l.DiscountAmount, &l.TaxableAmount, &l.VatAmount,
		); err != nil {
			return nil, fmt.Errorf("scan document line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// ListByCompany pagina los documentos de la empresa, más recientes primero.
func (r *DocumentRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.FiscalDocument, error) {
	query := documentSelect + ` WHERE company_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list fiscal documents: %w", err)
	}
	defer rows.Close()
	var list []*entity.FiscalDocument
	for rows.Next() {
		d, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// AssignNumber congela serie y número sobre un documento DRAFT y lo pasa a
// REGISTERED. La condición de status en el WHERE hace la transición atómica:
// si otro finalize llegó antes, RowsAffected es 0 y se devuelve
// ErrNotFinalizable.
func (r *DocumentRepo) AssignNumber(ctx context.Context, documentID, seriesID, number string) error {
	ct, err := r.q.Exec(ctx, `
		UPDATE fiscal_documents
		SET series_id = $2, number = $3, status = $4, updated_at = now()
		WHERE id = $1 AND status = $5`,
		documentID, seriesID, number, entity.DocStatusRegistered, entity.DocStatusDraft)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("número %s ya asignado: %w", number, domain.ErrDuplicate)
		}
		return fmt.Errorf("assign number: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return domain.ErrNotFinalizable
	}
	return nil
}

// UpdateStatus aplica una transición de ciclo de vida. Nunca toca número,
// líneas ni totales.
func (r *DocumentRepo) UpdateStatus(ctx context.Context, documentID, status string) error {
	ct, err := r.q.Exec(ctx,
		`UPDATE fiscal_documents SET status = $2, updated_at = now() WHERE id = $1`,
		documentID, status)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return domain.ErrNotFound
	}
	return nil
}

const documentSelect = `
	SELECT id, company_id, issuer_tax_id, COALESCE(counterparty_tax_id, ''), COALESCE(counterparty_name, ''),
	       category, direction, COALESCE(series_id::text, ''), COALESCE(number, ''), issue_date, operation_date,
	       subtotal, tax_base, total_vat, total_withholding, total_surcharge,
	       grand_total, global_discount, status, created_at, updated_at
	FROM fiscal_documents`

func (r *DocumentRepo) scanOne(row pgx.Row) (*entity.FiscalDocument, error) {
	var d entity.FiscalDocument
	err := row.Scan(
		&d.ID, &d.CompanyID, &d.IssuerTaxID, &d.CounterpartyTaxID, &d.CounterpartyName,
		&d.Category, &d.Direction, &d.SeriesID, &d.Number, &d.IssueDate, &d.OperationDate,
		&d.Subtotal, &d.TaxBase, &d.TotalVat, &d.TotalWithholding, &d.TotalSurcharge,
		&d.GrandTotal, &d.GlobalDiscount, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan fiscal document: %w", err)
	}
	return &d, nil
}
