// Package verifactu implementa la capa de cable del envío VERI*FACTU:
// construcción del sobre SOAP RegFactuSistemaFacturacion, cliente HTTP del WS
// de la AEAT, parseo de respuestas y URL de validación (QR).
package verifactu

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
)

// SistemaInformatico bloque identificativo del software emisor, obligatorio
// en cada registro enviado.
type SistemaInformatico struct {
	NombreRazon       string // razón social del productor del software
	NIF               string
	NombreSistema     string // nombre comercial del producto
	IDSistema         string // código de 2 caracteres asignado al producto
	Version           string
	NumeroInstalacion string
}

// EnvelopeContext datos necesarios para construir un envío: emisor obligado y
// registros con su desglose por tipo.
type EnvelopeContext struct {
	IssuerName  string // NombreRazon del ObligadoEmision
	IssuerTaxID string // NIF del ObligadoEmision
	Entries     []EntryWithBreakdown
	Sistema     SistemaInformatico
}

// EntryWithBreakdown registro del ledger más su desglose persistido.
type EntryWithBreakdown struct {
	Entry     *entity.LedgerEntry
	Breakdown []entity.VatBreakdownLine
}

// SubmitResult resultado de la entrega al WS de la AEAT.
type SubmitResult struct {
	HTTPStatus      int
	ResponsePayload string // cuerpo de la respuesta, literal (ya en UTF-8)
	Estado          string // EstadoEnvio: Correcto | ParcialmenteCorrecto | Incorrecto
	CSV             string // referencia asignada por la AEAT en caso de aceptación
	ErrorCode       string // primer código de error de línea, si lo hay
	ErrorDesc       string // primera descripción de error de línea, si la hay
}

// Submitter define el puerto de salida hacia el WS de la AEAT.
// La implementación concreta usa SOAP sobre HTTP; para tests se inyecta un
// servidor httptest o un mock.
type Submitter interface {
	// Submit entrega el XML del envío y devuelve el resultado interpretado
	// junto con la respuesta literal. Un error de transporte (red, timeout)
	// se devuelve como error; las respuestas de rechazo NO son error: llegan
	// interpretadas en SubmitResult.
	Submit(ctx context.Context, envelope []byte) (*SubmitResult, error)
}

// DesgloseLine par base/cuota de un tipo impositivo extraído de un envío.
type DesgloseLine struct {
	TipoImpositivo decimal.Decimal
	BaseImponible  decimal.Decimal
	Cuota          decimal.Decimal
}

// ParsedRegistro registro extraído de un sobre ya construido (inspección de
// payloads almacenados en los intentos de envío).
type ParsedRegistro struct {
	SeriesNumber string
	Huella       string
	Desglose     []DesgloseLine
}
