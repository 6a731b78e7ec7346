package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SKALEZ-A/stablecoin-escrow-sub000/config"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/core/events"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/native/escrow"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/native/token"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/observability/logging"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/rpc"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/state"
	"github.com/SKALEZ-A/stablecoin-escrow-sub000/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "escrowd.toml", "path to the TOML configuration file")
	flag.Parse()

	logger := logging.Setup("escrowd", os.Getenv("ESCROWD_ENV"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("validate config", "error", err)
		os.Exit(1)
	}

	admin, err := cfg.AdminAddress()
	if err != nil {
		logger.Error("resolve admin address", "error", err)
		os.Exit(1)
	}
	tokenAddr, err := cfg.TokenAddress()
	if err != nil {
		logger.Error("resolve token address", "error", err)
		os.Exit(1)
	}
	authority, err := cfg.TokenAuthority()
	if err != nil {
		logger.Error("resolve token authority", "error", err)
		os.Exit(1)
	}
	feeBps, err := cfg.PlatformFeeBps()
	if err != nil {
		logger.Error("resolve platform fee", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open database", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	ledger := token.NewLedger(cfg.Token.Symbol, cfg.Token.Decimals, authority)
	ledger.SetState(manager)

	recorder := events.NewRecorder(0)
	engine, err := escrow.NewEngine(admin, feeBps)
	if err != nil {
		logger.Error("construct engine", "error", err)
		os.Exit(1)
	}
	engine.SetState(manager)
	engine.SetLedger(ledger)
	engine.SetEmitter(recorder)

	server := rpc.NewServer(engine, ledger, recorder, rpc.ServerConfig{
		TokenAddress: tokenAddr,
		AuthToken:    cfg.RPCAuthToken,
	}, logger)

	srv := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: server.Router(),
	}

	go func() {
		logger.Info("escrow settlement service listening",
			"address", cfg.ListenAddress,
			"network", cfg.NetworkName,
			"feeBps", feeBps,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
