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

var _ repository.LedgerEntryRepository = (*LedgerEntryRepo)(nil)

// LedgerEntryRepo implementación de LedgerEntryRepository (usable con pool o tx).
//
// ledger_entries es append-only: este adaptador solo inserta y lee; el esquema
// instala además un trigger que rechaza UPDATE y DELETE sobre la tabla.
type LedgerEntryRepo struct {
	q Querier
}

// NewLedgerEntryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerEntryRepository(q Querier) *LedgerEntryRepo {
	return &LedgerEntryRepo{q: q}
}

// LockChainHead bloquea la fila de cabeza de cadena del emisor (FOR UPDATE),
// creándola si es el primer registro, y devuelve la última huella escrita.
// El bloqueo vive hasta el commit de la transacción: serializa a todos los
// escritores del mismo emisor.
func (r *LedgerEntryRepo) LockChainHead(ctx context.Context, issuerTaxID string) (string, error) {
	// ON CONFLICT DO NOTHING: dos primeras facturas concurrentes del mismo
	// emisor no deben fallar por el INSERT; la que pierda la carrera bloquea
	// en el SELECT siguiente.
	_, err := r.q.Exec(ctx,
		`INSERT INTO ledger_chain_heads (issuer_tax_id, last_hash) VALUES ($1, '')
		 ON CONFLICT (issuer_tax_id) DO NOTHING`, issuerTaxID)
	if err != nil {
		return "", fmt.Errorf("init chain head: %w", err)
	}

	var lastHash string
	err = r.q.QueryRow(ctx,
		`SELECT last_hash FROM ledger_chain_heads WHERE issuer_tax_id = $1 FOR UPDATE`,
		issuerTaxID).Scan(&lastHash)
	if err != nil {
		return "", fmt.Errorf("lock chain head: %w", err)
	}
	return lastHash, nil
}

// Insert persiste el registro con su desglose y avanza la cabeza de cadena a
// entry.Hash. Requiere haber tomado LockChainHead en la misma transacción.
func (r *LedgerEntryRepo) Insert(ctx context.Context, entry *entity.LedgerEntry, breakdown []entity.VatBreakdownLine) error {
	query := `
		INSERT INTO ledger_entries (id, company_id, issuer_tax_id, series_number, expedition_date, entry_type,
		                            document_type_code, vat_quota, total_amount, previous_hash, hash,
		                            generated_at, canonical_payload, document_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())`
	_, err := r.q.Exec(ctx, query,
		entry.ID, entry.CompanyID, entry.IssuerTaxID, entry.SeriesNumber, entry.ExpeditionDate, entry.EntryType,
		entry.DocumentTypeCode, entry.VatQuota, entry.TotalAmount, nullIfEmpty(entry.PreviousHash), entry.Hash,
		entry.GeneratedAt, entry.CanonicalPayload, entry.DocumentID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("registro duplicado: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	for _, b := range breakdown {
		_, err := r.q.Exec(ctx,
			`INSERT INTO ledger_entry_breakdown (entry_id, vat_rate, tax_base, vat_quota) VALUES ($1, $2, $3, $4)`,
			b.EntryID, b.VatRate, b.TaxBase, b.VatQuota)
		if err != nil {
			return fmt.Errorf("insert breakdown line: %w", err)
		}
	}

	ct, err := r.q.Exec(ctx,
		`UPDATE ledger_chain_heads SET last_hash = $2, updated_at = now() WHERE issuer_tax_id = $1`,
		entry.IssuerTaxID, entry.Hash)
	if err != nil {
		return fmt.Errorf("advance chain head: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("advance chain head: cabeza de cadena no encontrada para %s", entry.IssuerTaxID)
	}
	return nil
}

// GetByID obtiene un registro por ID.
func (r *LedgerEntryRepo) GetByID(ctx context.Context, id string) (*entity.LedgerEntry, error) {
	return r.scanOne(r.q.QueryRow(ctx, entrySelect+` WHERE id = $1`, id))
}

// GetByDocumentID devuelve el registro de alta de un documento.
func (r *LedgerEntryRepo) GetByDocumentID(ctx context.Context, documentID string) (*entity.LedgerEntry, error) {
	query := entrySelect + ` WHERE document_id = $1 AND entry_type = $2 ORDER BY generated_at LIMIT 1`
	return r.scanOne(r.q.QueryRow(ctx, query, documentID, entity.LedgerEntryAlta))
}

// FindLastByIssuer devuelve el último registro del emisor en orden de cadena.
func (r *LedgerEntryRepo) FindLastByIssuer(ctx context.Context, issuerTaxID string) (*entity.LedgerEntry, error) {
	query := entrySelect + ` WHERE issuer_tax_id = $1 ORDER BY seq DESC LIMIT 1`
	return r.scanOne(r.q.QueryRow(ctx, query, issuerTaxID))
}

// ListByIssuer devuelve los registros del emisor en orden de cadena ascendente.
func (r *LedgerEntryRepo) ListByIssuer(ctx context.Context, issuerTaxID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	query := entrySelect + ` WHERE issuer_tax_id = $1 ORDER BY seq LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, issuerTaxID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		e, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// ListByCompanyAndIssuer pagina la cadena del emisor acotada a la empresa. El
// filtro de tenant va en el SQL: si se filtrara después, las páginas saldrían
// cortas cuando dos empresas comparten NIF emisor.
func (r *LedgerEntryRepo) ListByCompanyAndIssuer(ctx context.Context, companyID, issuerTaxID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	query := entrySelect + ` WHERE company_id = $1 AND issuer_tax_id = $2 ORDER BY seq LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, companyID, issuerTaxID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries by company: %w", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		e, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// GetBreakdown devuelve el desglose por tipo impositivo, ordenado por tipo.
func (r *LedgerEntryRepo) GetBreakdown(ctx context.Context, entryID string) ([]entity.VatBreakdownLine, error) {
	rows, err := r.q.Query(ctx,
		`SELECT entry_id, vat_rate, tax_base, vat_quota FROM ledger_entry_breakdown WHERE entry_id = $1 ORDER BY vat_rate`,
		entryID)
	if err != nil {
		return nil, fmt.Errorf("get breakdown: %w", err)
	}
	defer rows.Close()
	var list []entity.VatBreakdownLine
	for rows.Next() {
		var b entity.VatBreakdownLine
		if err := rows.Scan(&b.EntryID, &b.VatRate, &b.TaxBase, &b.VatQuota); err != nil {
			return nil, fmt.Errorf("scan breakdown line: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// seq es un BIGSERIAL: da el orden total de inserción por emisor sin depender
// de la resolución del reloj de generated_at.
const entrySelect = `
	SELECT id, company_id, issuer_tax_id, series_number, expedition_date, entry_type,
	       document_type_code, vat_quota, total_amount, COALESCE(previous_hash, ''), hash,
	       generated_at, canonical_payload, document_id, created_at
	FROM ledger_entries`

func (r *LedgerEntryRepo) scanOne(row pgx.Row) (*entity.LedgerEntry, error) {
	var e entity.LedgerEntry
	err := row.Scan(
		&e.ID, &e.CompanyID, &e.IssuerTaxID, &e.SeriesNumber, &e.ExpeditionDate, &e.EntryType,
		&e.DocumentTypeCode, &e.VatQuota, &e.TotalAmount, &e.PreviousHash, &e.Hash,
		&e.GeneratedAt, &e.CanonicalPayload, &e.DocumentID, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	return &e, nil
}
