package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/repository"
)

var _ repository.SequenceCounterRepository = (*SequenceCounterRepo)(nil)

// SequenceCounterRepo implementación de SequenceCounterRepository (usable con pool o tx).
type SequenceCounterRepo struct {
	q Querier
}

// NewSequenceCounterRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSequenceCounterRepository(q Querier) *SequenceCounterRepo {
	return &SequenceCounterRepo{q: q}
}

// Create persiste el contador. El índice parcial de "default único por
// (empresa, categoría, ejercicio)" convierte el duplicado en ErrDuplicate.
func (r *SequenceCounterRepo) Create(ctx context.Context, c *entity.SequenceCounter) error {
	query := `
		INSERT INTO sequence_counters (id, company_id, category, fiscal_year, series_label, prefix, next_number, padding, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.CompanyID, c.Category, c.FiscalYear, c.SeriesLabel, c.Prefix,
		c.NextNumber, c.Padding, c.IsDefault, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("contador duplicado: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert sequence counter: %w", err)
	}
	return nil
}

// GetByID obtiene un contador por ID.
func (r *SequenceCounterRepo) GetByID(ctx context.Context, id string) (*entity.SequenceCounter, error) {
	query := counterSelect + ` WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

// ListByCompany devuelve los contadores de la empresa.
func (r *SequenceCounterRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.SequenceCounter, error) {
	query := counterSelect + ` WHERE company_id = $1 ORDER BY fiscal_year DESC, category, series_label`
	rows, err := r.q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list sequence counters: %w", err)
	}
	defer rows.Close()
	var list []*entity.SequenceCounter
	for rows.Next() {
		c, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// AllocateNext asigna el siguiente número bajo SELECT ... FOR UPDATE e
// incrementa el contador en la misma transacción. El bloqueo de fila es lo que
// hace la numeración sin huecos: leer-formatear-incrementar es atómico frente
// a cualquier otro finalize de la misma serie.
func (r *SequenceCounterRepo) AllocateNext(ctx context.Context, companyID, category string, fiscalYear int, seriesID string) (*entity.SequenceAllocation, error) {
	var (
		query string
		args  []any
	)
	if seriesID != "" {
		// El contador explícito también debe casar en categoría y ejercicio:
		// una factura no puede numerarse con la serie de rectificativas ni
		// con el contador de otro año.
		query = counterSelect + ` WHERE id = $1 AND company_id = $2 AND category = $3 AND fiscal_year = $4 FOR UPDATE`
		args = []any{seriesID, companyID, category, fiscalYear}
	} else {
		query = counterSelect + ` WHERE company_id = $1 AND category = $2 AND fiscal_year = $3 AND is_default FOR UPDATE`
		args = []any{companyID, category, fiscalYear}
	}

	c, err := r.scanOne(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrSeriesNotFound
	}

	ct, err := r.q.Exec(ctx,
		`UPDATE sequence_counters SET next_number = next_number + 1, updated_at = now() WHERE id = $1`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("increment sequence counter: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return nil, fmt.Errorf("increment sequence counter: fila no encontrada")
	}

	return &entity.SequenceAllocation{
		SeriesID:        c.ID,
		SeriesLabel:     c.SeriesLabel,
		RawNumber:       c.NextNumber,
		FormattedNumber: formatNumber(c.Prefix, c.NextNumber, c.Padding),
	}, nil
}

const counterSelect = `
	SELECT id, company_id, category, fiscal_year, series_label, prefix, next_number, padding, is_default, created_at, updated_at
	FROM sequence_counters`

// formatNumber compone prefijo + número con cero-padding (ej. "F-2025-" + 7,
// padding 5 -> "F-2025-00007").
func formatNumber(prefix string, n int64, padding int) string {
	num := strconv.FormatInt(n, 10)
	if pad := padding - len(num); pad > 0 {
		num = strings.Repeat("0", pad) + num
	}
	return prefix + num
}

func (r *SequenceCounterRepo) scanOne(row pgx.Row) (*entity.SequenceCounter, error) {
	var c entity.SequenceCounter
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.Category, &c.FiscalYear, &c.SeriesLabel, &c.Prefix,
		&c.NextNumber, &c.Padding, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan sequence counter: %w", err)
	}
	return &c, nil
}
