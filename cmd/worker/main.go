// Package main is the entry point for the pharmacore background worker.
// Runs the periodic inventory sweeps: expiry status refresh, aggregate
// reconciliation and ledger retention purge.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"pharmacore/internal/core/actor"
	"pharmacore/internal/core/id"
	"pharmacore/internal/domain/lots"
	"pharmacore/internal/domain/reconcile"
	"pharmacore/internal/domain/registers/ledger"
	"pharmacore/internal/infrastructure/config"
	"pharmacore/internal/infrastructure/storage/postgres"
	"pharmacore/internal/infrastructure/storage/postgres/catalog_repo"
	"pharmacore/internal/infrastructure/storage/postgres/ledger_repo"
	"pharmacore/internal/infrastructure/storage/postgres/lot_repo"
	"pharmacore/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.App.Env == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx = logger.WithLogger(ctx, log)
	ctx = actor.WithActor(ctx, actor.System("worker"))

	log.Info("starting pharmacore worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)
	lotRepo := lot_repo.NewLotRepo(txm)
	medicineRepo := catalog_repo.NewMedicineRepo(txm)
	ledgerRepo, err := ledger_repo.NewLedgerRepo(txm)
	if err != nil {
		log.Fatalw("failed to create ledger repository", "error", err)
	}

	lotService := lots.NewService(lotRepo)
	reconciler := reconcile.NewReconciler(txm, lotRepo, medicineRepo)
	ledgerService := ledger.NewService(ledgerRepo)

	var storeID *id.ID
	if cfg.App.StoreID != "" {
		parsed, err := id.Parse(cfg.App.StoreID)
		if err != nil {
			log.Fatalw("invalid store id in config", "store_id", cfg.App.StoreID, "error", err)
		}
		storeID = &parsed
	}

	w := &worker{
		cfg:        cfg,
		storeID:    storeID,
		lots:       lotService,
		reconciler: reconciler,
		ledger:     ledgerService,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

type worker struct {
	cfg        *config.Config
	storeID    *id.ID
	lots       *lots.Service
	reconciler *reconcile.Reconciler
	ledger     *ledger.Service
}

func (w *worker) run(ctx context.Context) {
	expiryTicker := time.NewTicker(w.cfg.Sweep.ExpiryInterval)
	defer expiryTicker.Stop()

	reconcileTicker := time.NewTicker(w.cfg.Sweep.ReconcileInterval)
	defer reconcileTicker.Stop()

	purgeTicker := time.NewTicker(w.cfg.Ledger.PurgeInterval)
	defer purgeTicker.Stop()

	// run the expiry sweep once at startup so a long-stopped worker
	// catches up immediately
	w.refreshExpired(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-expiryTicker.C:
			w.refreshExpired(ctx)
		case <-reconcileTicker.C:
			w.reconcileStores(ctx)
		case <-purgeTicker.C:
			w.purgeLedger(ctx)
		}
	}
}

func (w *worker) refreshExpired(ctx context.Context) {
	flipped, err := w.lots.RefreshExpiredStatus(ctx, w.storeID)
	if err != nil {
		logger.Error(ctx, "expiry sweep failed", "error", err)
		return
	}
	logger.Debug(ctx, "expiry sweep done", "lots_flipped", flipped)
}

func (w *worker) reconcileStores(ctx context.Context) {
	if w.storeID == nil {
		logger.Debug(ctx, "reconcile sweep skipped, no store configured")
		return
	}
	corrected, err := w.reconciler.SynchronizeStore(ctx, *w.storeID)
	if err != nil {
		logger.Error(ctx, "reconcile sweep failed", "error", err)
		return
	}
	logger.Debug(ctx, "reconcile sweep done", "corrected", corrected)
}

func (w *worker) purgeLedger(ctx context.Context) {
	removed, err := w.ledger.Purge(ctx, w.cfg.Ledger.Retention)
	if err != nil {
		logger.Error(ctx, "ledger purge failed", "error", err)
		return
	}
	logger.Debug(ctx, "ledger purge done", "removed", removed)
}
