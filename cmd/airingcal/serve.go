package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airingcal/api"
	"airingcal/handlers"
	"airingcal/utils"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the calendar HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		svc := newCalendarService(cfg)
		if err := svc.StartBackgroundRefresh(); err != nil {
			return err
		}
		defer svc.Stop()

		limiter := api.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
		defer limiter.Stop()

		router := utils.NewRouter(cfg.Server.AllowedOrigins)
		router.Use(limiter.Middleware())
		handlers.NewCalendarHandler(svc, loc).Register(router)
		handlers.NewVersionHandler().Register(router)

		srv := &http.Server{
			Addr:              cfg.Server.Listen,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Printf("[server] airingcal %s listening on %s (upstream %s, tz %s)", handlers.BuildVersion(), cfg.Server.Listen, cfg.Upstream.BaseURL, loc)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Println("[server] shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
