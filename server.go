package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/saqibullah/spam-filter-gateway/api"
	"github.com/saqibullah/spam-filter-gateway/config"
	"github.com/saqibullah/spam-filter-gateway/mlclient"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	client := mlclient.New(cfg.UpstreamURL, mlclient.Options{
		HealthTimeout:  cfg.HealthTimeout,
		PredictTimeout: cfg.PredictTimeout,
		Logger:         log,
	})
	defer client.Close()

	router := api.NewRouter(api.NewHandler(client, log), cfg.AllowedOrigins, log)

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return err
	}

	cors := "allow-all"
	if !cfg.AllowAllOrigins() {
		cors = "allow-list"
	}
	log.WithField("ml_api_url", cfg.UpstreamURL).Info("ML API URL: " + cfg.UpstreamURL)
	log.WithFields(logrus.Fields{
		"addr":    ln.Addr().String(),
		"env":     cfg.Env,
		"cors":    cors,
		"origins": cfg.AllowedOrigins,
	}).Infof("Server is running on port %d", cfg.Port)

	return serve(ctx, &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}, ln, log)
}

// serve runs srv on ln until ctx is done, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, log logrus.FieldLogger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
