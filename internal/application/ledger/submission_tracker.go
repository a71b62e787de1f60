package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/repository"
	infravf "github.com/xcruz-intermega/factu365-sub000/internal/infrastructure/verifactu"
	pkgvf "github.com/xcruz-intermega/factu365-sub000/pkg/verifactu"
	"github.com/xcruz-intermega/factu365-sub000/pkg/logger"
)

// Parámetros de backoff de reintentos.
const (
	retryBackoffBase = time.Minute
	retryBackoffMax  = time.Hour
)

// SubmissionTracker gestiona el ciclo de entrega de registros al WS de la AEAT:
//
//	PENDING → SUBMITTED → {ACCEPTED, PARTIALLY_ACCEPTED, REJECTED, ERROR}
//
// ERROR y los fallos de red se reintentan con AttemptNumber creciente y
// backoff exponencial; REJECTED es terminal y queda para el operador. El
// tracker nunca toca el LedgerEntry: solo añade intentos y actualiza el
// puntero derivado de último resultado.
//
// Modos (Config.AppEnv): "dev" no envía y simula aceptación; "test"/"prod"
// llaman al WS real a través del Submitter inyectado.
type SubmissionTracker struct {
	ledgerRepo repository.LedgerEntryRepository
	subRepo    repository.SubmissionRepository
	builder    *infravf.EnvelopeBuilder
	submitter  infravf.Submitter // nil solo en dev
	cfg        Config
	log        *logger.Logger
	now        func() time.Time
}

// NewSubmissionTracker construye el tracker. submitter puede ser nil: en ese
// caso solo funciona el modo dev.
func NewSubmissionTracker(
	ledgerRepo repository.LedgerEntryRepository,
	subRepo repository.SubmissionRepository,
	builder *infravf.EnvelopeBuilder,
	submitter infravf.Submitter,
	cfg Config,
	log *logger.Logger,
) *SubmissionTracker {
	return &SubmissionTracker{
		ledgerRepo: ledgerRepo,
		subRepo:    subRepo,
		builder:    builder,
		submitter:  submitter,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// SubmitAsync dispara el envío en una goroutine independiente, desacoplada del
// ciclo HTTP de finalize, con su propio timeout.
func (t *SubmissionTracker) SubmitAsync(entryID string) {
	go func() {
		timeout := t.cfg.SubmitTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout+5*time.Second)
		defer cancel()
		if _, err := t.Submit(ctx, entryID); err != nil {
			t.log.Error().Err(err).Str("entry_id", entryID).Msg("envío asíncrono fallido")
		}
	}()
}

// Submit ejecuta un intento de envío del registro. El intento se inserta
// (PENDING, payload de petición) antes de tocar la red; una única escritura de
// cierre rellena la respuesta. Devuelve el intento cerrado.
//
// Un resultado terminal previo (ACCEPTED/PARTIALLY_ACCEPTED/REJECTED) hace que
// Submit falle con domain.ErrConflict: no se reenvía lo ya resuelto.
func (t *SubmissionTracker) Submit(ctx context.Context, entryID string) (*entity.SubmissionAttempt, error) {
	state, err := t.subRepo.GetState(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if state != nil && !state.IsRetryable() {
		return nil, fmt.Errorf("envío del registro %s ya resuelto (%s): %w", entryID, state.Outcome, domain.ErrConflict)
	}

	entry, err := t.ledgerRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrNotFound
	}
	breakdown, err := t.ledgerRepo.GetBreakdown(ctx, entryID)
	if err != nil {
		return nil, err
	}

	envelope, err := t.builder.Build(&infravf.EnvelopeContext{
		IssuerName:  t.cfg.IssuerName,
		IssuerTaxID: entry.IssuerTaxID,
		Entries:     []infravf.EntryWithBreakdown{{Entry: entry, Breakdown: breakdown}},
		Sistema:     t.cfg.Sistema,
	})
	if err != nil {
		return nil, err
	}

	n, err := t.subRepo.NextAttemptNumber(ctx, entryID)
	if err != nil {
		return nil, err
	}

	// El intento existe en DB antes de la llamada de red: una petición enviada
	// cuya respuesta se pierda deja rastro en vez de desaparecer en silencio.
	attempt := &entity.SubmissionAttempt{
		ID:             uuid.New().String(),
		EntryID:        entryID,
		AttemptNumber:  n,
		RequestPayload: string(envelope),
		Outcome:        entity.SubmissionPending,
		StartedAt:      t.now(),
	}
	if err := t.subRepo.Insert(ctx, attempt); err != nil {
		return nil, err
	}

	result, submitErr := t.deliver(ctx, envelope)

	completed := t.now()
	attempt.CompletedAt = &completed
	switch {
	case submitErr != nil:
		// Fallo de transporte (red, timeout): reintentable.
		attempt.Outcome = entity.SubmissionError
		attempt.ErrorDesc = submitErr.Error()
	default:
		attempt.HTTPStatus = result.HTTPStatus
		attempt.ResponsePayload = result.ResponsePayload
		attempt.AuthorityRef = result.CSV
		attempt.ErrorCode = result.ErrorCode
		attempt.ErrorDesc = result.ErrorDesc
		attempt.Outcome = outcomeFromEstado(result.Estado)
	}
	if err := t.subRepo.Complete(ctx, attempt); err != nil {
		return nil, err
	}

	if err := t.subRepo.UpsertState(ctx, t.stateAfter(attempt)); err != nil {
		return nil, err
	}

	t.log.Info().
		Str("entry_id", entryID).
		Int("attempt", n).
		Str("outcome", attempt.Outcome).
		Str("csv", attempt.AuthorityRef).
		Msg("intento de envío registrado")
	return attempt, nil
}

// deliver ejecuta la llamada real o la simulación dev.
func (t *SubmissionTracker) deliver(ctx context.Context, envelope []byte) (*infravf.SubmitResult, error) {
	if t.cfg.AppEnv == infravf.AppEnvDev || t.cfg.AppEnv == "" || t.submitter == nil {
		// Modo desarrollo: no se envía al WS, aceptación simulada.
		return &infravf.SubmitResult{
			HTTPStatus: 200,
			Estado:     pkgvf.EstadoEnvioCorrecto,
			CSV:        "DEV-" + uuid.New().String()[:8],
		}, nil
	}
	timeout := t.cfg.SubmitTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return t.submitter.Submit(callCtx, envelope)
}

// stateAfter deriva el puntero de último resultado tras cerrar un intento.
func (t *SubmissionTracker) stateAfter(a *entity.SubmissionAttempt) *entity.SubmissionState {
	s := &entity.SubmissionState{
		EntryID:      a.EntryID,
		Outcome:      a.Outcome,
		Attempts:     a.AttemptNumber,
		AuthorityRef: a.AuthorityRef,
		UpdatedAt:    t.now(),
	}
	if s.IsRetryable() {
		next := t.now().Add(retryBackoff(a.AttemptNumber))
		s.NextRetryAt = &next
	}
	return s
}

// retryBackoff backoff exponencial acotado: 1m, 2m, 4m… hasta 1h.
func retryBackoff(attempt int) time.Duration {
	d := retryBackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= retryBackoffMax {
			return retryBackoffMax
		}
	}
	return d
}

// outcomeFromEstado mapea EstadoEnvio del WS al resultado del intento.
func outcomeFromEstado(estado string) string {
	switch estado {
	case pkgvf.EstadoEnvioCorrecto:
		return entity.SubmissionAccepted
	case pkgvf.EstadoEnvioParcial:
		return entity.SubmissionPartiallyAccepted
	case pkgvf.EstadoEnvioIncorrecto:
		return entity.SubmissionRejected
	default:
		return entity.SubmissionError
	}
}
