// verifyledger recorre la cadena de registros de un emisor recalculando cada
// huella y cada enlace, y termina con código 1 si encuentra manipulación.
// Pensado para auditoría periódica (cron) y para inspección manual.
//
// Uso: go run ./cmd/verifyledger -issuer B12345678
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/xcruz-intermega/factu365-sub000/internal/application/ledger"
	"github.com/xcruz-intermega/factu365-sub000/internal/infrastructure/postgres"
	"github.com/xcruz-intermega/factu365-sub000/pkg/config"
	"github.com/xcruz-intermega/factu365-sub000/pkg/logger"
)

func main() {
	issuer := flag.String("issuer", "", "NIF del emisor cuya cadena se verifica")
	flag.Parse()
	if *issuer == "" {
		fmt.Fprintln(os.Stderr, "uso: verifyledger -issuer <NIF>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: "warn"})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "conexión a PostgreSQL: %v\n", err)
		os.Exit(2)
	}
	defer pool.Close()

	verifyUC := ledger.NewVerifyChainUseCase(postgres.NewLedgerEntryRepository(pool), log)
	report, err := verifyUC.Verify(ctx, *issuer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verificación: %v\n", err)
		os.Exit(2)
	}

	if report.Intact {
		fmt.Printf("cadena íntegra: %d registros verificados para %s\n", report.Verified, *issuer)
		return
	}
	fmt.Printf("CADENA ROTA para %s: %d registros verificados, fallo en la posición %d (registro %s)\n",
		*issuer, report.Verified, report.BrokenAt, report.BrokenID)
	fmt.Println(report.Description)
	os.Exit(1)
}
