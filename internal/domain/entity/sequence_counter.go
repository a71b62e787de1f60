package entity

import "time"

// SequenceCounter contador de numeración por (categoría, ejercicio fiscal, serie).
// Solo lo muta el asignador de números bajo bloqueo de fila: NextNumber es
// monótono creciente, nunca se decrementa ni se reutiliza. Como máximo hay un
// contador por defecto por (categoría, ejercicio).
type SequenceCounter struct {
	ID          string
	CompanyID   string
	Category    string // DocCategory*
	FiscalYear  int
	SeriesLabel string // etiqueta legible de la serie (ej: "A", "RECT")
	Prefix      string // prefijo del número formateado (ej: "F-2025-")
	NextNumber  int64
	Padding     int  // ancho de cero-padding del número
	IsDefault   bool // contador usado cuando finalize no indica serie explícita
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SequenceAllocation resultado de una asignación de número.
type SequenceAllocation struct {
	SeriesID        string
	SeriesLabel     string
	RawNumber       int64
	FormattedNumber string
}
