package ledger

import (
	"context"

	"github.com/xcruz-intermega/factu365-sub000/internal/domain/repository"
)

// FinalizeTxRunner ejecuta una función dentro de una transacción que incluye
// los repositorios del flujo de finalización. Es el límite de unidad de
// trabajo explícito: numeración, asignación al documento y alta en el ledger
// comparten transacción y se confirman o revierten juntos.
type FinalizeTxRunner interface {
	RunFinalize(ctx context.Context, fn func(
		seqRepo repository.SequenceCounterRepository,
		docRepo repository.DocumentRepository,
		ledgerRepo repository.LedgerEntryRepository,
	) error) error
}
