package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"aggregation-gateway/internal/api"
	"aggregation-gateway/internal/common/config"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   CmdServe,
	Short: "Start the gateway HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := Bootstrap(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", map[string]interface{}{"error": err.Error()})
		return err
	}
	defer app.Close()

	srv := api.NewServer(cfg.Server, app.Router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("gateway listening", map[string]interface{}{
			"address":       cfg.Server.Address,
			"self_base_url": cfg.Server.SelfBaseURL,
			"mode":          cfg.Aggregate.Mode,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", map[string]interface{}{"error": err.Error()})
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown incomplete", map[string]interface{}{"error": err.Error()})
		return err
	}
	return nil
}
