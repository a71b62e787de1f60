// Package verifactu: cálculo de la huella de los registros de facturación
// según el sistema VERI*FACTU (AEAT). Algoritmo: SHA-256 sobre la cadena
// canónica de pares clave=valor en el orden estricto definido por la agencia.
package verifactu

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Formatos de fecha del registro canónico.
const (
	// ExpeditionDateLayout formato de FechaExpedicionFactura (dd-mm-yyyy).
	ExpeditionDateLayout = "02-01-2006"
	// GenerationTimeLayout formato ISO con huso de FechaHoraHusoGenRegistro.
	GenerationTimeLayout = "2006-01-02T15:04:05-07:00"
)

// RegistroParams contiene los datos del registro en el orden exigido para la huella.
type RegistroParams struct {
	IssuerTaxID      string          // IDEmisorFactura (NIF del emisor)
	SeriesNumber     string          // NumSerieFactura (serie + número, sin espacios)
	ExpeditionDate   time.Time       // FechaExpedicionFactura
	DocumentTypeCode string          // TipoFactura (F1, F2, R1..R5)
	VatQuota         decimal.Decimal // CuotaTotal
	TotalAmount      decimal.Decimal // ImporteTotal
	PreviousHash     string          // Huella del registro anterior; "" en el primero
	GeneratedAt      time.Time       // FechaHoraHusoGenRegistro
}

// CanonicalInput construye la cadena canónica: pares clave=valor unidos con
// "&" en orden fijo. Cualquier desviación de orden o formato produce una
// huella distinta e incompatible con la verificación externa.
func CanonicalInput(p RegistroParams) string {
	pairs := []string{
		"IDEmisorFactura=" + strings.TrimSpace(p.IssuerTaxID),
		"NumSerieFactura=" + strings.TrimSpace(p.SeriesNumber),
		"FechaExpedicionFactura=" + p.ExpeditionDate.Format(ExpeditionDateLayout),
		"TipoFactura=" + p.DocumentTypeCode,
		"CuotaTotal=" + FormatAmount(p.VatQuota),
		"ImporteTotal=" + FormatAmount(p.TotalAmount),
		"Huella=" + p.PreviousHash,
		"FechaHoraHusoGenRegistro=" + p.GeneratedAt.Format(GenerationTimeLayout),
	}
	return strings.Join(pairs, "&")
}

// ComputeHash devuelve SHA-256(UTF-8(input)) en hexadecimal minúscula (64 caracteres).
func ComputeHash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// FormatAmount formatea importes para la cadena canónica y la URL de
// validación: redondeo a 2 decimales, sin separador de miles, ceros
// fraccionarios finales eliminados y sin punto si la fracción es cero
// (100.00 -> "100", 21.10 -> "21.1", -10.50 -> "-10.5").
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).String()
}
