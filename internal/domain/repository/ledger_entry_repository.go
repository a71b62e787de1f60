package repository

import (
	"context"

	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
)

// LedgerEntryRepository define el puerto de persistencia del ledger encadenado.
//
// La interfaz no tiene Update ni Delete a propósito: la inmutabilidad de los
// registros se impone estructuralmente, no con una excepción en runtime. El
// esquema refuerza lo mismo con un trigger que rechaza UPDATE/DELETE sobre
// ledger_entries.
type LedgerEntryRepository interface {
	// LockChainHead bloquea (FOR UPDATE) la fila de cabeza de cadena del
	// emisor y devuelve la última huella escrita ("" si el emisor aún no
	// tiene registros). Crea la fila de cabeza si no existe. Serializa a los
	// escritores concurrentes del mismo emisor: nadie puede leer la "última
	// huella" mientras otro finalize del mismo emisor está en vuelo.
	LockChainHead(ctx context.Context, issuerTaxID string) (string, error)

	// Insert persiste el registro con su desglose por tipo y avanza la cabeza
	// de cadena del emisor a entry.Hash. Debe ejecutarse en la transacción
	// que tomó LockChainHead.
	Insert(ctx context.Context, entry *entity.LedgerEntry, breakdown []entity.VatBreakdownLine) error

	GetByID(ctx context.Context, id string) (*entity.LedgerEntry, error)
	GetByDocumentID(ctx context.Context, documentID string) (*entity.LedgerEntry, error)

	// FindLastByIssuer devuelve el último registro del emisor en orden de
	// generación, o nil si no hay ninguno.
	FindLastByIssuer(ctx context.Context, issuerTaxID string) (*entity.LedgerEntry, error)

	// ListByIssuer devuelve los registros del emisor en orden de generación
	// ascendente (orden de cadena).
	ListByIssuer(ctx context.Context, issuerTaxID string, limit, offset int) ([]*entity.LedgerEntry, error)

	// ListByCompanyAndIssuer es la variante acotada al tenant: mismo orden de
	// cadena, pero paginando solo sobre los registros de la empresa (dos
	// empresas pueden compartir NIF emisor).
	ListByCompanyAndIssuer(ctx context.Context, companyID, issuerTaxID string, limit, offset int) ([]*entity.LedgerEntry, error)

	// GetBreakdown devuelve el desglose por tipo impositivo de un registro.
	GetBreakdown(ctx context.Context, entryID string) ([]entity.VatBreakdownLine, error)
}
