package repository

import (
	"context"

	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
)

// DocumentRepository define el puerto de persistencia para documentos fiscales.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.FiscalDocument, lines []*entity.FiscalDocumentLine) error
	GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error)
	GetLines(ctx context.Context, documentID string) ([]*entity.FiscalDocumentLine, error)
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.FiscalDocument, error)

	// AssignNumber congela serie y número sobre un documento DRAFT y lo pasa a
	// REGISTERED. Se ejecuta dentro de la transacción de finalize; a partir de
	// aquí el contenido fiscal del documento es inmutable.
	AssignNumber(ctx context.Context, documentID, seriesID, number string) error

	// UpdateStatus aplica transiciones de ciclo de vida no fiscales
	// (SENT, PAID, OVERDUE, CANCELLED). Nunca toca número, líneas ni totales.
	UpdateStatus(ctx context.Context, documentID, status string) error
}
