package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/repository"
)

var _ repository.SubmissionRepository = (*SubmissionRepo)(nil)

// SubmissionRepo implementación de SubmissionRepository (usable con pool o tx).
//
// submission_attempts es append-only: Insert abre el intento y Complete lo
// cierra una única vez; submission_states es el único puntero mutable.
type SubmissionRepo struct {
	q Querier
}

// NewSubmissionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSubmissionRepository(q Querier) *SubmissionRepo {
	return &SubmissionRepo{q: q}
}

// NextAttemptNumber devuelve 1 + el mayor AttemptNumber del registro.
func (r *SubmissionRepo) NextAttemptNumber(ctx context.Context, entryID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(attempt_number), 0) + 1 FROM submission_attempts WHERE entry_id = $1`,
		entryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next attempt number: %w", err)
	}
	return n, nil
}

// Insert persiste el intento recién abierto (outcome PENDING).
func (r *SubmissionRepo) Insert(ctx context.Context, a *entity.SubmissionAttempt) error {
	query := `
		INSERT INTO submission_attempts (id, entry_id, attempt_number, request_payload, outcome, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		a.ID, a.EntryID, a.AttemptNumber, a.RequestPayload, a.Outcome, a.StartedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("intento %d ya registrado: %w", a.AttemptNumber, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert submission attempt: %w", err)
	}
	return nil
}

// Complete cierra el intento. El WHERE sobre completed_at garantiza una única
// escritura de cierre: un intento ya cerrado devuelve ErrConflict.
func (r *SubmissionRepo) Complete(ctx context.Context, a *entity.SubmissionAttempt) error {
	ct, err := r.q.Exec(ctx, `
		UPDATE submission_attempts
		SET response_payload = $2, http_status = $3, authority_ref = $4,
		    error_code = $5, error_desc = $6, outcome = $7, completed_at = $8
		WHERE id = $1 AND completed_at IS NULL`,
		a.ID, nullIfEmpty(a.ResponsePayload), a.HTTPStatus, nullIfEmpty(a.AuthorityRef),
		nullIfEmpty(a.ErrorCode), nullIfEmpty(a.ErrorDesc), a.Outcome, a.CompletedAt)
	if err != nil {
		return fmt.Errorf("complete submission attempt: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("intento %s ya cerrado: %w", a.ID, domain.ErrConflict)
	}
	return nil
}

// ListByEntry devuelve los intentos del registro en orden de intento.
func (r *SubmissionRepo) ListByEntry(ctx context.Context, entryID string) ([]*entity.SubmissionAttempt, error) {
	query := `
		SELECT id, entry_id, attempt_number, request_payload, COALESCE(response_payload, ''),
		       http_status, COALESCE(authority_ref, ''), COALESCE(error_code, ''), COALESCE(error_desc, ''),
		       outcome, started_at, completed_at
		FROM submission_attempts WHERE entry_id = $1 ORDER BY attempt_number`
	rows, err := r.q.Query(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("list submission attempts: %w", err)
	}
	defer rows.Close()
	var list []*entity.SubmissionAttempt
	for rows.Next() {
		var a entity.SubmissionAttempt
		if err := rows.Scan(
			&a.ID, &a.EntryID, &a.AttemptNumber, &a.RequestPayload, &a.ResponsePayload,
			&a.HTTPStatus, &a.AuthorityRef, &a.ErrorCode, &a.ErrorDesc,
			&a.Outcome, &a.StartedAt, &a.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan submission attempt: %w", err)
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}

// UpsertState actualiza el puntero "último resultado" del registro.
func (r *SubmissionRepo) UpsertState(ctx context.Context, s *entity.SubmissionState) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO submission_states (entry_id, outcome, attempts, authority_ref, next_retry_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entry_id) DO UPDATE
		SET outcome = EXCLUDED.outcome, attempts = EXCLUDED.attempts,
		    authority_ref = EXCLUDED.authority_ref, next_retry_at = EXCLUDED.next_retry_at,
		    updated_at = EXCLUDED.updated_at`,
		s.EntryID, s.Outcome, s.Attempts, nullIfEmpty(s.AuthorityRef), s.NextRetryAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert submission state: %w", err)
	}
	return nil
}

// GetState devuelve el último resultado del registro, o nil si nunca se envió.
func (r *SubmissionRepo) GetState(ctx context.Context, entryID string) (*entity.SubmissionState, error) {
	var s entity.SubmissionState
	err := r.q.QueryRow(ctx, `
		SELECT entry_id, outcome, attempts, COALESCE(authority_ref, ''), next_retry_at, updated_at
		FROM submission_states WHERE entry_id = $1`, entryID).Scan(
		&s.EntryID, &s.Outcome, &s.Attempts, &s.AuthorityRef, &s.NextRetryAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission state: %w", err)
	}
	return &s, nil
}

// ListRetryable devuelve estados reenviables con NextRetryAt vencido, los más
// antiguos primero.
func (r *SubmissionRepo) ListRetryable(ctx context.Context, now time.Time, limit int) ([]*entity.SubmissionState, error) {
	rows, err := r.q.Query(ctx, `
		SELECT entry_id, outcome, attempts, COALESCE(authority_ref, ''), next_retry_at, updated_at
		FROM submission_states
		WHERE outcome IN ($1, $2) AND (next_retry_at IS NULL OR next_retry_at <= $3)
		ORDER BY updated_at
		LIMIT $4`,
		entity.SubmissionPending, entity.SubmissionError, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list retryable states: %w", err)
	}
	defer rows.Close()
	var list []*entity.SubmissionState
	for rows.Next() {
		var s entity.SubmissionState
		if err := rows.Scan(&s.EntryID, &s.Outcome, &s.Attempts, &s.AuthorityRef, &s.NextRetryAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan submission state: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
