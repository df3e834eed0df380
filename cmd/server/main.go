package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eph-processor/internal/config"
	"eph-processor/internal/handlers"
	"eph-processor/internal/logging"
	"eph-processor/internal/models"
	"eph-processor/internal/services"
)

const (
	AppVersion = "1.0.0"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:           "eph-server",
		Short:         "Serve EPH survey indicators over HTTP",
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("eph-server: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting EPH processor", zap.String("version", AppVersion))
	logger.Info("Using raw survey directory", zap.String("path", cfg.RawDir()))
	logger.Info("Using fusion directory", zap.String("path", cfg.FusionPath("")))

	catalog, err := services.LoadCatalog(cfg.CoordinatesPath())
	if err != nil {
		logger.Warn("Coordinates unavailable, using built-in aglomerado catalog",
			zap.String("path", cfg.CoordinatesPath()), zap.Error(err))
		catalog = models.NewCatalog(nil)
	}
	income, err := services.NewIncomeService(cfg.IncomePath())
	if err != nil {
		logger.Warn("Income reference unavailable, poverty reports disabled",
			zap.String("path", cfg.IncomePath()), zap.Error(err))
		income = nil
	}

	datasets := services.NewDatasetService(cfg, logger)
	h := handlers.NewHandler(datasets, services.NewAglomeradoService(catalog), income, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "error starting server")
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "error stopping server")
}
