// seedseries genera un script SQL con los contadores de serie iniciales de
// una empresa para un ejercicio fiscal: serie por defecto de facturas, serie
// de rectificativas y serie de compras.
//
// Uso: go run ./cmd/seedseries -company <uuid> -year 2025
// Escribe: internal/infrastructure/postgres/migrations/900_seed_series.sql
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type seed struct {
	category  string
	label     string
	prefix    string
	padding   int
	isDefault bool
}

func main() {
	company := flag.String("company", "", "UUID de la empresa")
	year := flag.Int("year", time.Now().Year(), "ejercicio fiscal")
	out := flag.String("out", "internal/infrastructure/postgres/migrations/900_seed_series.sql", "ruta del SQL generado")
	flag.Parse()
	if *company == "" {
		fmt.Fprintln(os.Stderr, "uso: seedseries -company <uuid> [-year 2025]")
		os.Exit(2)
	}
	if _, err := uuid.Parse(*company); err != nil {
		fmt.Fprintf(os.Stderr, "company no es un UUID válido: %v\n", err)
		os.Exit(2)
	}

	seeds := []seed{
		{category: "invoice", label: "A", prefix: fmt.Sprintf("F-%d-", *year), padding: 5, isDefault: true},
		{category: "rectification", label: "R", prefix: fmt.Sprintf("R-%d-", *year), padding: 5, isDefault: true},
		{category: "purchase", label: "C", prefix: fmt.Sprintf("C-%d-", *year), padding: 5, isDefault: true},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- Contadores de serie iniciales (%d) para la empresa %s.\n", *year, *company)
	fmt.Fprintf(&b, "-- Generado por cmd/seedseries; idempotente por el UNIQUE de (empresa, categoría, ejercicio, serie).\n\n")
	for _, s := range seeds {
		fmt.Fprintf(&b,
			"INSERT INTO sequence_counters (id, company_id, category, fiscal_year, series_label, prefix, next_number, padding, is_default, created_at, updated_at)\n"+
				"VALUES ('%s', '%s', '%s', %d, '%s', '%s', 1, %d, %t, now(), now())\n"+
				"ON CONFLICT (company_id, category, fiscal_year, series_label) DO NOTHING;\n\n",
			uuid.New().String(), *company, s.category, *year, s.label, s.prefix, s.padding, s.isDefault)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "crear directorio: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, []byte(b.String()), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("generado %s (%d contadores)\n", *out, len(seeds))
}
