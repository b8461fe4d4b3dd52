package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/kittclouds/babylog/internal/api"
	"github.com/kittclouds/babylog/internal/auth"
	"github.com/kittclouds/babylog/internal/metrics"
	"github.com/kittclouds/babylog/pkg/tracker"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Addr = addr
			}
			log := newLogger(cfg)
			slog.SetDefault(log)
			ctx := cmd.Context()

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			users, err := auth.LoadUsers(cfg.Users, cfg.UsersFile)
			if err != nil {
				return err
			}
			if len(users) == 0 {
				log.Warn("no users configured, every login will be rejected")
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			svc := tracker.New(st, tracker.Options{Log: log, Metrics: metrics.NewTracker(reg)})
			defer svc.Close()

			repaired, err := svc.RepairIntervals(ctx)
			if err != nil {
				return fmt.Errorf("repair intervals: %w", err)
			}
			if repaired > 0 {
				log.Warn("closed stale open intervals at startup", slog.Int("closed", repaired))
			}

			sessions := auth.NewSessions(cfg.SessionTTL, nil)
			go sweepSessions(ctx, sessions, log)

			srv := api.NewServer(api.Config{
				Addr:         cfg.Addr,
				ReadTimeout:  cfg.ReadTimeout,
				WriteTimeout: cfg.WriteTimeout,
			}, api.Deps{
				Tracker:  svc,
				Auth:     auth.New(users, sessions),
				Exporter: st,
				Gatherer: reg,
				Log:      log,
			})
			return srv.Run(ctx)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides BABYLOG_ADDR)")

	return cmd
}

func sweepSessions(ctx context.Context, sessions *auth.Sessions, log *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(); n > 0 {
				log.Debug("expired sessions removed", slog.Int("count", n))
			}
		}
	}
}
