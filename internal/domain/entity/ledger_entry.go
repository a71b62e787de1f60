package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de registro del ledger fiscal.
const (
	LedgerEntryAlta      = "ALTA"      // alta de factura (RegistroAlta)
	LedgerEntryAnulacion = "ANULACION" // anulación de factura (RegistroAnulacion)
)

// LedgerEntry nodo inmutable de la cadena de registros de facturación.
//
// Invariantes:
//   - Hash = SHA-256(CanonicalPayload) en hexadecimal minúscula.
//   - PreviousHash = Hash del registro inmediatamente anterior del mismo
//     emisor; cadena vacía solo en el primer registro del emisor.
//   - Una vez persistido, ningún campo cambia jamás. El repositorio no expone
//     Update ni Delete y el esquema instala un trigger que rechaza ambos.
//
// Se crea exactamente una vez, dentro de la misma transacción que la
// asignación de número de serie.
type LedgerEntry struct {
	ID               string
	CompanyID        string
	IssuerTaxID      string          // IDEmisorFactura
	SeriesNumber     string          // NumSerieFactura (serie+número formateado)
	ExpeditionDate   time.Time       // FechaExpedicionFactura (dd-mm-yyyy en el canónico)
	EntryType        string          // LedgerEntry*
	DocumentTypeCode string          // TipoFactura (F1, F2, R1..R5)
	VatQuota         decimal.Decimal // CuotaTotal
	TotalAmount      decimal.Decimal // ImporteTotal
	PreviousHash     string          // Huella del registro anterior; "" si es el primero
	Hash             string          // Huella de este registro
	GeneratedAt      time.Time       // FechaHoraHusoGenRegistro
	CanonicalPayload string          // cadena canónica exacta que produjo Hash
	DocumentID       string          // referencia al FiscalDocument origen
	CreatedAt        time.Time
}

// IsFirst indica si el registro abre la cadena de su emisor.
func (e *LedgerEntry) IsFirst() bool {
	return e.PreviousHash == ""
}

// VatBreakdownLine par base/cuota por tipo impositivo, persistido junto al
// registro para reconstruir el Desglose del envío sin releer el documento.
type VatBreakdownLine struct {
	EntryID  string
	VatRate  decimal.Decimal
	TaxBase  decimal.Decimal
	VatQuota decimal.Decimal
}
