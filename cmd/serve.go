package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tindralencia/barrio-match/internal/api"
	"github.com/tindralencia/barrio-match/internal/demand"
	"github.com/tindralencia/barrio-match/internal/listing"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the matching HTTP API",
	Long:  "Serves POST /v1/match, the listing and yield endpoints and the supporting read endpoints. SIGHUP drops the cached datasets so the next request reloads them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initMatchEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		srv := api.NewServer(env.Service, api.Options{
			RateLimit:   cfg.Server.RateLimit,
			RateBurst:   cfg.Server.RateBurst,
			CORSOrigins: cfg.Server.CORSOrigins,
			Demand:      summaryRecorder(env.Recorder),
			Listings:    listing.NewPostgresStore(env.Pool),
		})

		httpSrv := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      srv.Routes(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-hup:
					env.Cache.Invalidate("")
					zap.L().Info("dataset cache invalidated")
				}
			}
		}()

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		stats := env.Cache.Stats()
		zap.L().Info("server stopped",
			zap.Int64("cache_hits", stats.Hits),
			zap.Int64("cache_misses", stats.Misses),
			zap.Float64("cache_hit_rate", stats.HitRate),
			zap.Bool("breaker_open", env.Breaker.Open()),
		)
		return nil
	},
}

// summaryRecorder hides the no-op recorder so the demand summary route stays
// unmounted when nothing is recorded.
func summaryRecorder(rec demand.Recorder) demand.Recorder {
	if _, nop := rec.(demand.NopRecorder); nop || rec == nil {
		return nil
	}
	return rec
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
