package repository

import (
	"context"
	"time"

	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
)

// SubmissionRepository define el puerto de persistencia de intentos de envío.
//
// Los intentos son append-only: Insert crea la fila antes de la llamada de
// red (outcome PENDING) y Complete la cierra una única vez. No existe método
// para editar un intento ya cerrado.
type SubmissionRepository interface {
	// NextAttemptNumber devuelve 1 + el mayor AttemptNumber del registro.
	NextAttemptNumber(ctx context.Context, entryID string) (int, error)

	// Insert persiste el intento recién creado (outcome PENDING, payload de
	// petición ya serializado). Se ejecuta en su propia transacción, antes de
	// tocar la red: un fallo parcial (petición enviada, respuesta perdida)
	// deja rastro.
	Insert(ctx context.Context, a *entity.SubmissionAttempt) error

	// Complete cierra el intento: respuesta literal, status HTTP, CSV,
	// código/descripción de error y outcome final. Falla si el intento ya
	// estaba cerrado.
	Complete(ctx context.Context, a *entity.SubmissionAttempt) error

	ListByEntry(ctx context.Context, entryID string) ([]*entity.SubmissionAttempt, error)

	// UpsertState actualiza el puntero derivado "último resultado" del registro.
	UpsertState(ctx context.Context, s *entity.SubmissionState) error
	GetState(ctx context.Context, entryID string) (*entity.SubmissionState, error)

	// ListRetryable devuelve estados reenviables (PENDING/ERROR) cuyo
	// NextRetryAt ya venció, para el worker de reintentos.
	ListRetryable(ctx context.Context, now time.Time, limit int) ([]*entity.SubmissionState, error)
}
