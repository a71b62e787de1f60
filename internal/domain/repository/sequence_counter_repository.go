package repository

import (
	"context"

	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
)

// SequenceCounterRepository define el puerto de persistencia para contadores de serie.
type SequenceCounterRepository interface {
	Create(ctx context.Context, c *entity.SequenceCounter) error
	GetByID(ctx context.Context, id string) (*entity.SequenceCounter, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.SequenceCounter, error)

	// AllocateNext asigna el siguiente número de la serie bajo bloqueo exclusivo
	// de fila (SELECT ... FOR UPDATE): lee NextNumber, formatea prefijo +
	// cero-padding e incrementa el contador en la misma transacción. Si
	// seriesID va vacío usa el contador marcado por defecto para
	// (categoría, ejercicio). Sin contador aplicable: domain.ErrSeriesNotFound.
	//
	// Solo tiene sentido sobre un repositorio atado a transacción (TxRunner);
	// el bloqueo de fila es el contrato de concurrencia de toda la numeración.
	AllocateNext(ctx context.Context, companyID, category string, fiscalYear int, seriesID string) (*entity.SequenceAllocation, error)
}
