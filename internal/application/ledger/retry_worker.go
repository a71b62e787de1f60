package ledger

import (
	"context"
	"time"

	"github.com/xcruz-intermega/factu365-sub000/internal/domain/repository"
	"github.com/xcruz-intermega/factu365-sub000/pkg/logger"
)

// RetryWorker recorre periódicamente los registros con envío pendiente de
// reintento (outcome ERROR/PENDING con NextRetryAt vencido) y los reenvía a
// través del tracker. Un solo worker por proceso es suficiente: el tracker
// rechaza con ErrConflict los registros ya resueltos entre el listado y el
// envío.
type RetryWorker struct {
	subRepo  repository.SubmissionRepository
	tracker  *SubmissionTracker
	interval time.Duration
	batch    int
	log      *logger.Logger
}

// NewRetryWorker construye el worker. interval <= 0 usa 1 minuto; batch <= 0
// usa 20.
func NewRetryWorker(subRepo repository.SubmissionRepository, tracker *SubmissionTracker, interval time.Duration, batch int, log *logger.Logger) *RetryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 20
	}
	return &RetryWorker{subRepo: subRepo, tracker: tracker, interval: interval, batch: batch, log: log}
}

// Run bloquea hasta que ctx se cancele. Pensado para ejecutarse en su propia
// goroutine desde main.
func (w *RetryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.log.Info().Dur("interval", w.interval).Msg("worker de reintentos iniciado")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker de reintentos detenido")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce procesa un lote de envíos reintentables y devuelve el control.
func (w *RetryWorker) RunOnce(ctx context.Context) {
	states, err := w.subRepo.ListRetryable(ctx, time.Now(), w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("no se pudo listar envíos reintentables")
		return
	}
	for _, s := range states {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.tracker.Submit(ctx, s.EntryID); err != nil {
			// El propio intento queda registrado como ERROR; aquí solo traza.
			w.log.Warn().Err(err).Str("entry_id", s.EntryID).Msg("reintento fallido")
		}
	}
}
