package tax

import "github.com/shopspring/decimal"

// SurchargeTable tabla de recargo de equivalencia: tipo de IVA -> tipo de
// recargo. Se construye explícitamente y se pasa por parámetro al contexto de
// cada petición o trabajo; no existe caché estática de proceso.
type SurchargeTable struct {
	rates map[string]decimal.Decimal
}

// NewSurchargeTable construye la tabla a partir de pares (IVA, recargo).
func NewSurchargeTable(pairs map[string]string) (SurchargeTable, error) {
	rates := make(map[string]decimal.Decimal, len(pairs))
	for vat, sur := range pairs {
		v, err := decimal.NewFromString(vat)
		if err != nil {
			return SurchargeTable{}, err
		}
		s, err := decimal.NewFromString(sur)
		if err != nil {
			return SurchargeTable{}, err
		}
		rates[v.StringFixed(2)] = s
	}
	return SurchargeTable{rates: rates}, nil
}

// DefaultSurchargeTable tipos de recargo de equivalencia vigentes en España.
func DefaultSurchargeTable() SurchargeTable {
	t, _ := NewSurchargeTable(map[string]string{
		"21": "5.2",
		"10": "1.4",
		"4":  "0.5",
		"0":  "0",
	})
	return t
}

// Lookup devuelve el recargo aplicable al tipo de IVA dado; cero si el tipo
// no figura en la tabla.
func (t SurchargeTable) Lookup(vatRate decimal.Decimal) decimal.Decimal {
	if r, ok := t.rates[vatRate.StringFixed(2)]; ok {
		return r
	}
	return decimal.Zero
}
