package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xcruz-intermega/factu365-sub000/internal/application/ledger"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/repository"
)

// Ensure TxRunner implements ledger.FinalizeTxRunner.
var _ ledger.FinalizeTxRunner = (*TxRunner)(nil)

// lockTimeout espera máxima por los bloqueos de fila (contador de serie y
// cabeza de cadena). Vencido el plazo la transacción falla con 55P03, que los
// repos traducen a domain.ErrLockTimeout: mejor un error acotado que un
// finalize colgado indefinidamente detrás de otro.
const lockTimeout = "5s"

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunFinalize inicia una transacción con lock_timeout fijado, ejecuta fn con
// los repos del flujo de finalización atados a la tx y hace Commit o Rollback.
func (r *TxRunner) RunFinalize(ctx context.Context, fn func(
	seqRepo repository.SequenceCounterRepository,
	docRepo repository.DocumentRepository,
	ledgerRepo repository.LedgerEntryRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SET LOCAL lock_timeout = '"+lockTimeout+"'"); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	seqRepo := NewSequenceCounterRepository(tx)
	docRepo := NewDocumentRepository(tx)
	ledgerRepo := NewLedgerEntryRepository(tx)

	if err := fn(seqRepo, docRepo, ledgerRepo); err != nil {
		if isLockTimeout(err) {
			return fmt.Errorf("bloqueo de numeración/cadena no disponible: %w", domain.ErrLockTimeout)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
