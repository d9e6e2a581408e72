// Command ripd runs one router instance of the router-id distance-vector
// protocol described in spec.md. It takes a single positional argument:
// the path to a directive-file configuration (spec.md §6).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/routesim/ripd/internal/config"
	"github.com/routesim/ripd/internal/engine"
	"github.com/routesim/ripd/internal/httpstatus"
	"github.com/routesim/ripd/internal/metrics"
	"github.com/routesim/ripd/internal/neighbour"
	"github.com/routesim/ripd/internal/socketbank"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: ripd <config-file>")
		os.Exit(1)
	}

	logger := initLogger()
	defer logger.Sync()

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	neighbours, err := neighbour.NewSet(cfg.Neighbours)
	if err != nil {
		logger.Fatal("failed to build neighbour set", zap.Error(err))
	}

	metrics.Register()

	bank, err := socketbank.Open(cfg.InputPorts, logger.Named("socketbank"))
	if err != nil {
		logger.Fatal("failed to open socket bank", zap.Error(err))
	}
	bank.Serve()

	observer := newLogObserver(logger.Named("table"))
	eng := engine.New(
		cfg.RouterID, neighbours, bank,
		cfg.RouteTimeout, cfg.GarbageTime, cfg.PeriodicUpdateTime,
		logger.Named("engine"), observer,
	)

	// The status server listens on the router's first input port + 10000,
	// so that multiple simulated router instances can run
	// side-by-side on localhost without an extra configuration directive.
	statusAddr := fmt.Sprintf("127.0.0.1:%d", cfg.InputPorts[0]+10000)
	status := httpstatus.NewServer(statusAddr, eng, logger.Named("http"))
	if err := status.Start(); err != nil {
		logger.Fatal("failed to start status server", zap.Error(err))
	}

	logger.Info("ripd starting",
		zap.Int("router_id", cfg.RouterID),
		zap.Ints("input_ports", cfg.InputPorts),
		zap.Int("neighbours", len(cfg.Neighbours)),
		zap.String("status_addr", statusAddr),
	)

	ctx, cancel := context.WithCancel(context.Background())

	engineErr := make(chan error, 1)
	go func() { engineErr <- eng.Run(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		<-engineErr

	case err := <-engineErr:
		// A fatal engine error (spec.md §7: only send failures reach here)
		// terminates the daemon with a diagnostic.
		cancel()
		if err != nil {
			logger.Error("engine stopped with a fatal error", zap.Error(err))
			shutdown(status, bank, logger)
			os.Exit(1)
		}
	}

	shutdown(status, bank, logger)
	logger.Info("ripd stopped")
}

func shutdown(status *httpstatus.Server, bank *socketbank.Bank, logger *zap.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := status.Shutdown(shutdownCtx); err != nil {
		logger.Warn("status server shutdown error", zap.Error(err))
	}
	bank.Close()
}

func initLogger() *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
