package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/BG-Companion/internal/daemon"
	"github.com/ramonehamilton/BG-Companion/internal/version"
)

func watchCmd() *cobra.Command {
	var (
		logPath   string
		fromStart bool
		noAPI     bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow Power.log and record matches until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			cfg, err := daemon.ConfigFrom(a.cfg)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log") {
				cfg.LogPath = logPath
			}
			if cmd.Flags().Changed("from-start") {
				cfg.ReadFromStart = fromStart
			}
			if noAPI {
				cfg.ServeAPI = false
			}

			live := daemon.NewLiveState()
			deps := daemon.Deps{
				Session:    a.newSession(live),
				Live:       live,
				Metrics:    a.metrics,
				Gatherer:   a.registry,
				Dispatcher: a.dispatcher,
				Logger:     a.log,
			}
			if a.matches != nil {
				deps.Matches = a.matches
			}
			svc := daemon.New(cfg, deps)

			a.log.Info("starting", zap.String("service", version.Service), zap.String("version", version.GetVersion()))
			if err := svc.Start(); err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}

			<-ctx.Done()
			a.log.Info("shutdown signal received")
			return svc.Stop()
		},
	}
	cmd.Flags().StringVar(&logPath, "log", "", "Power.log path (overrides the config file)")
	cmd.Flags().BoolVar(&fromStart, "from-start", false, "Process the existing log content before following it")
	cmd.Flags().BoolVar(&noAPI, "no-api", false, "Do not serve the HTTP API and websocket")
	return cmd
}
