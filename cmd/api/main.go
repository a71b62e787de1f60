package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/xcruz-intermega/factu365-sub000/internal/application/ledger"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/tax"
	"github.com/xcruz-intermega/factu365-sub000/internal/infrastructure/postgres"
	infravf "github.com/xcruz-intermega/factu365-sub000/internal/infrastructure/verifactu"
	httpRouter "github.com/xcruz-intermega/factu365-sub000/internal/interfaces/http"
	"github.com/xcruz-intermega/factu365-sub000/pkg/config"
	"github.com/xcruz-intermega/factu365-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("verifactu_env", cfg.VeriFactu.Env).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	docRepo := postgres.NewDocumentRepository(pool)
	seqRepo := postgres.NewSequenceCounterRepository(pool)
	ledgerRepo := postgres.NewLedgerEntryRepository(pool)
	subRepo := postgres.NewSubmissionRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	surcharges := tax.DefaultSurchargeTable()
	if len(cfg.VeriFactu.SurchargeRates) > 0 {
		surcharges, err = tax.NewSurchargeTable(cfg.VeriFactu.SurchargeRates)
		if err != nil {
			log.Fatal().Err(err).Msg("tabla de recargo de equivalencia inválida")
		}
	}

	ledgerCfg := ledger.Config{
		IssuerName: cfg.VeriFactu.IssuerName,
		Sistema: infravf.SistemaInformatico{
			NombreRazon:       cfg.VeriFactu.ProducerName,
			NIF:               cfg.VeriFactu.ProducerTaxID,
			NombreSistema:     cfg.VeriFactu.SystemName,
			IDSistema:         cfg.VeriFactu.SystemID,
			Version:           cfg.VeriFactu.SystemVersion,
			NumeroInstalacion: cfg.VeriFactu.InstallNumber,
		},
		AppEnv:        cfg.VeriFactu.Env,
		QRBaseURL:     cfg.VeriFactu.QRBaseURL,
		SubmitTimeout: cfg.VeriFactu.SubmitTimeout,
	}
	if ledgerCfg.QRBaseURL == "" {
		if cfg.VeriFactu.Env == infravf.AppEnvProd {
			ledgerCfg.QRBaseURL = infravf.QRValidationURLProd
		} else {
			ledgerCfg.QRBaseURL = infravf.QRValidationURLTest
		}
	}

	// Cliente SOAP AEAT — solo se usa fuera de "dev"; en dev el tracker simula
	// la aceptación sin tocar la red.
	var submitter infravf.Submitter
	if cfg.VeriFactu.Env != infravf.AppEnvDev && cfg.VeriFactu.Env != "" {
		submitter, err = infravf.NewSOAPClient(cfg.VeriFactu.Env, cfg.VeriFactu.SubmitTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("cliente SOAP VERI*FACTU")
		}
	}

	builder := infravf.NewEnvelopeBuilder()
	tracker := ledger.NewSubmissionTracker(ledgerRepo, subRepo, builder, submitter, ledgerCfg, log)

	documentUC := ledger.NewDocumentUseCase(docRepo, surcharges, log)
	finalizeUC := ledger.NewFinalizeUseCase(txRunner, docRepo, tracker, ledgerCfg)
	seriesUC := ledger.NewSeriesUseCase(seqRepo, log)
	queryUC := ledger.NewLedgerQueryUseCase(ledgerRepo, subRepo)
	verifyUC := ledger.NewVerifyChainUseCase(ledgerRepo, log)

	// Worker de reintentos: recoge envíos en ERROR/PENDING con backoff vencido.
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	retryWorker := ledger.NewRetryWorker(subRepo, tracker, cfg.VeriFactu.RetryInterval, cfg.VeriFactu.RetryBatch, log)
	go retryWorker.Run(workerCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		DocumentUC: documentUC,
		FinalizeUC: finalizeUC,
		SeriesUC:   seriesUC,
		QueryUC:    queryUC,
		VerifyUC:   verifyUC,
		Tracker:    tracker,
		JWTSecret:  cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
