package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/abci/server"
	tmos "github.com/tendermint/tendermint/libs/os"
	dbm "github.com/tendermint/tm-db"

	"github.com/ali-3-3-3/EcoXChange/app"
	cfg "github.com/ali-3-3-3/EcoXChange/config"
	"github.com/ali-3-3-3/EcoXChange/libs/log"
)

const dbName = "ecoxchange"

// StartCmd runs the application server until it is interrupted.
var StartCmd = &cobra.Command{
	Use:     "start",
	Aliases: []string{"node", "run"},
	Short:   "Run the ABCI application server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startApp(config)
	},
}

func init() {
	AddStartFlags(StartCmd)
}

// AddStartFlags exposes configuration options for starting the server.
func AddStartFlags(cmd *cobra.Command) {
	cmd.Flags().String("abci.laddr", config.ABCI.ListenAddress, "address the ABCI server listens on")
	cmd.Flags().String("abci.transport", config.ABCI.Transport, "ABCI transport (socket or grpc)")
	cmd.Flags().String("db_backend", config.DBBackend, "database backend: goleveldb | memdb")
	cmd.Flags().Bool("instrumentation.prometheus", config.Instrumentation.Prometheus, "serve Prometheus metrics")
}

func startApp(config *cfg.Config) (err error) {
	db, err := dbm.NewDB(dbName, dbm.BackendType(config.DBBackend), config.DBDir())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if cerr := db.Close(); cerr != nil {
			logger.Error("Error closing database", "err", cerr)
		}
	}()

	metrics := app.NopMetrics()
	if config.Instrumentation.Prometheus {
		metrics = app.PrometheusMetrics(config.Instrumentation.Namespace)
	}

	application, err := app.NewApplication(db,
		app.WithLogger(logger),
		app.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(config.ABCI.ListenAddress, config.ABCI.Transport, application)
	if err != nil {
		return err
	}
	srv.SetLogger(log.NewTMLogger(logger.With("module", "abci-server")))
	if err := srv.Start(); err != nil {
		return err
	}

	var promSrv *http.Server
	if config.Instrumentation.Prometheus {
		promSrv = startPrometheusServer(config.Instrumentation)
	}
	logger.Info("Server listening", "addr", config.ABCI.ListenAddress, "transport", config.ABCI.Transport)

	done := make(chan struct{})
	tmos.TrapSignal(logger, func() {
		if err := srv.Stop(); err != nil {
			logger.Error("Error stopping server", "err", err)
		}
		if promSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := promSrv.Shutdown(ctx); err != nil {
				logger.Error("Prometheus HTTP server Shutdown", "err", err)
			}
		}
		if err := application.Close(); err != nil {
			logger.Error("Error closing database", "err", err)
		}
		close(done)
	})
	<-done
	return nil
}

// startPrometheusServer starts a Prometheus HTTP server, listening for
// metrics collectors on the configured address.
func startPrometheusServer(cfg *cfg.InstrumentationConfig) *http.Server {
	srv := &http.Server{
		Addr: cfg.PrometheusListenAddr,
		Handler: promhttp.InstrumentMetricHandler(
			stdprometheus.DefaultRegisterer, promhttp.HandlerFor(
				stdprometheus.DefaultGatherer,
				promhttp.HandlerOpts{MaxRequestsInFlight: cfg.MaxOpenConnections},
			),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// Error starting or closing listener:
			logger.Error("Prometheus HTTP server ListenAndServe", "err", err)
		}
	}()
	return srv
}
