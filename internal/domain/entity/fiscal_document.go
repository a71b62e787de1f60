package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Categorías de documento fiscal.
const (
	DocCategoryInvoice       = "invoice"       // Factura de venta
	DocCategoryRectification = "rectification" // Factura rectificativa
	DocCategoryPurchase      = "purchase"      // Factura recibida (compra)
)

// Dirección del documento respecto a la empresa.
const (
	DocDirectionIssued   = "issued"
	DocDirectionReceived = "received"
)

// Estados de ciclo de vida de un documento fiscal.
// DRAFT es el único estado mutable en contenido fiscal; a partir de REGISTERED
// el número de serie, las líneas y los totales quedan congelados (el registro
// encadenado ya los referencia). Los estados posteriores solo marcan cobro.
const (
	DocStatusDraft      = "DRAFT"
	DocStatusRegistered = "REGISTERED" // numerado y encadenado en el ledger
	DocStatusSent       = "SENT"
	DocStatusPaid       = "PAID"
	DocStatusOverdue    = "OVERDUE"
	DocStatusCancelled  = "CANCELLED" // anulado vía registro de anulación, nunca borrado
)

// FiscalDocument cabecera de una factura/rectificativa/compra.
// Los totales se calculan siempre con tax.CalculateDocument al crear o editar
// el borrador; finalize no recalcula, congela.
type FiscalDocument struct {
	ID                string
	CompanyID         string
	IssuerTaxID       string // NIF del emisor
	CounterpartyTaxID string
	CounterpartyName  string
	Category          string // DocCategory*
	Direction         string // DocDirection*
	SeriesID          string // contador asignado en finalize; vacío en DRAFT
	Number            string // número formateado (prefijo + cero-padding); vacío en DRAFT
	IssueDate         time.Time
	OperationDate     time.Time
	Subtotal          decimal.Decimal
	TaxBase           decimal.Decimal
	TotalVat          decimal.Decimal
	TotalWithholding  decimal.Decimal
	TotalSurcharge    decimal.Decimal
	GrandTotal        decimal.Decimal
	GlobalDiscount    decimal.Decimal // porcentaje de descuento global aplicado
	Status            string          // DocStatus*
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FiscalDocumentLine línea de documento con sus tipos impositivos propios.
type FiscalDocumentLine struct {
	ID              string
	DocumentID      string
	Position        int
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	VatRate         decimal.Decimal
	WithholdingRate decimal.Decimal
	SurchargeRate   decimal.Decimal
	Subtotal        decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxableAmount   decimal.Decimal
	VatAmount       decimal.Decimal
}

// IsFinalizable indica si el documento admite la transición finalize.
func (d *FiscalDocument) IsFinalizable() bool {
	return d.Status == DocStatusDraft
}

// SeriesNumber devuelve el identificador serie+número usado en la cadena
// (NumSerieFactura). Vacío mientras el documento es borrador.
func (d *FiscalDocument) SeriesNumber() string {
	return d.Number
}
