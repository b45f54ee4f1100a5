package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/peepeespace/easy-ledger/params"
	"github.com/peepeespace/easy-ledger/pkg/api"
	"github.com/peepeespace/easy-ledger/pkg/ledger"
	"github.com/peepeespace/easy-ledger/pkg/storage"
	"github.com/peepeespace/easy-ledger/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLogger(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.LogFile)

	// ---- Snapshot store ----
	var snap ledger.Snapshotter
	var lister api.KeyLister
	if cfg.Store.Persist {
		store, err := storage.NewPebbleStore(cfg.Store.DataDir)
		if err != nil {
			sugar.Fatalw("store_init_failed", "data_dir", cfg.Store.DataDir, "err", err)
		}
		defer store.Close()
		snap = store
		lister = store
		sugar.Infow("store_opened", "data_dir", cfg.Store.DataDir)
	} else {
		sugar.Info("persistence disabled - ledgers are in-memory only")
	}

	// ---- Ledger manager ----
	manager := ledger.NewManager(snap)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	apiServer := api.NewServer(manager, sugar, api.Options{
		CORSOrigins:  cfg.API.CORSOrigins,
		WriteTimeout: cfg.API.WriteTimeout,
		Lister:       lister,
	})

	go func() {
		if err := apiServer.Start(cfg.API.Addr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("ledgerd_started", "addr", cfg.API.Addr, "persist", cfg.Store.Persist)

	<-ctx.Done()
	sugar.Info("ledgerd_stopping")
}
