// Package tax implementa el cálculo de impuestos de documento: IVA, retención
// IRPF y recargo de equivalencia, con redondeo a 2 decimales en cada paso
// intermedio (no solo al final). Esa política de "redondeo temprano" es la
// exigida legalmente y se reproduce tal cual, incluida su acumulación de error
// de redondeo. Funciones puras, sin efectos.
package tax

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// round2 redondea a 2 decimales mitad-lejos-de-cero.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineInput línea de entrada del cálculo. Tipos en porcentaje (21 = 21%).
type LineInput struct {
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	VatRate         decimal.Decimal
	WithholdingRate decimal.Decimal
	SurchargeRate   decimal.Decimal
}

// LineResult importes calculados de una línea.
type LineResult struct {
	Subtotal          decimal.Decimal
	DiscountAmount    decimal.Decimal
	TaxableAmount     decimal.Decimal
	VatAmount         decimal.Decimal
	WithholdingAmount decimal.Decimal
	SurchargeAmount   decimal.Decimal
}

// VatBreakdownEntry base y cuotas acumuladas de un tipo de IVA.
type VatBreakdownEntry struct {
	VatRate     decimal.Decimal
	TaxBase     decimal.Decimal
	VatQuota    decimal.Decimal
	Withholding decimal.Decimal
	Surcharge   decimal.Decimal
}

// DocumentTotals totales de documento con desglose por tipo de IVA.
type DocumentTotals struct {
	Subtotal         decimal.Decimal // suma de subtotales de línea (antes de descuentos)
	LineDiscounts    decimal.Decimal
	GlobalDiscount   decimal.Decimal // importe del descuento global
	TaxBase          decimal.Decimal
	TotalVat         decimal.Decimal
	TotalWithholding decimal.Decimal
	TotalSurcharge   decimal.Decimal
	Total            decimal.Decimal
	Breakdown        []VatBreakdownEntry // ordenado por tipo ascendente
}

// CalculateLine calcula una línea redondeando tras cada operación:
// subtotal, descuento, base y cada cuota se redondean a 2 decimales en el
// momento en que se producen.
func CalculateLine(in LineInput) LineResult {
	subtotal := round2(in.Quantity.Mul(in.UnitPrice))
	discount := round2(subtotal.Mul(in.DiscountPercent).Div(hundred))
	taxable := subtotal.Sub(discount)
	return LineResult{
		Subtotal:          subtotal,
		DiscountAmount:    discount,
		TaxableAmount:     taxable,
		VatAmount:         round2(taxable.Mul(in.VatRate).Div(hundred)),
		WithholdingAmount: round2(taxable.Mul(in.WithholdingRate).Div(hundred)),
		SurchargeAmount:   round2(taxable.Mul(in.SurchargeRate).Div(hundred)),
	}
}

// CalculateDocument calcula los totales del documento en dos pasadas:
//
//  1. Cada línea se calcula con CalculateLine (redondeo real por línea).
//  2. El descuento global se reparte proporcionalmente: cada base de línea se
//     reescala por factor = taxBase / taxBaseBeforeGlobal, se redondea, y las
//     cuotas se recalculan sobre la base ajustada con los tipos de su línea.
//
// Una aplicación ingenua del descuento en una sola pasada produce totales
// distintos y no debe usarse. El desglose se agrupa por tipo de IVA usando el
// tipo como cadena fija de 2 decimales (evita colisiones de clave por
// representaciones distintas del mismo tipo).
func CalculateDocument(lines []LineInput, globalDiscountPercent decimal.Decimal) DocumentTotals {
	totals := DocumentTotals{Breakdown: []VatBreakdownEntry{}}
	if len(lines) == 0 {
		return totals
	}

	// Primera pasada: cálculo real por línea.
	results := make([]LineResult, len(lines))
	for i, in := range lines {
		results[i] = CalculateLine(in)
		totals.Subtotal = totals.Subtotal.Add(results[i].Subtotal)
		totals.LineDiscounts = totals.LineDiscounts.Add(results[i].DiscountAmount)
	}

	baseBeforeGlobal := totals.Subtotal.Sub(totals.LineDiscounts)
	totals.GlobalDiscount = round2(baseBeforeGlobal.Mul(globalDiscountPercent).Div(hundred))
	totals.TaxBase = baseBeforeGlobal.Sub(totals.GlobalDiscount)

	// Factor de proporcionalidad (0 si la base previa es 0).
	factor := decimal.Zero
	if !baseBeforeGlobal.IsZero() {
		factor = totals.TaxBase.Div(baseBeforeGlobal)
	}

	// Segunda pasada: bases ajustadas y cuotas recalculadas por tipo.
	byRate := make(map[string]*VatBreakdownEntry)
	for i, in := range lines {
		adjustedBase := round2(results[i].TaxableAmount.Mul(factor))
		vat := round2(adjustedBase.Mul(in.VatRate).Div(hundred))
		withholding := round2(adjustedBase.Mul(in.WithholdingRate).Div(hundred))
		surcharge := round2(adjustedBase.Mul(in.SurchargeRate).Div(hundred))

		key := in.VatRate.StringFixed(2)
		entry, ok := byRate[key]
		if !ok {
			entry = &VatBreakdownEntry{VatRate: in.VatRate}
			byRate[key] = entry
		}
		entry.TaxBase = entry.TaxBase.Add(adjustedBase)
		entry.VatQuota = entry.VatQuota.Add(vat)
		entry.Withholding = entry.Withholding.Add(withholding)
		entry.Surcharge = entry.Surcharge.Add(surcharge)

		totals.TotalVat = totals.TotalVat.Add(vat)
		totals.TotalWithholding = totals.TotalWithholding.Add(withholding)
		totals.TotalSurcharge = totals.TotalSurcharge.Add(surcharge)
	}

	for _, entry := range byRate {
		totals.Breakdown = append(totals.Breakdown, *entry)
	}
	sort.Slice(totals.Breakdown, func(i, j int) bool {
		return totals.Breakdown[i].VatRate.LessThan(totals.Breakdown[j].VatRate)
	})

	totals.Total = totals.TaxBase.
		Add(totals.TotalVat).
		Sub(totals.TotalWithholding).
		Add(totals.TotalSurcharge)
	return totals
}
