package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/BG-Companion/internal/events"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/powerlog"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
)

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <Power.log>",
		Short: "Record every match in a saved Power.log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(context.Background())
			if err != nil {
				return err
			}
			defer a.close()

			var written, failed int
			a.dispatcher.Register(&events.FuncObserver{
				Name:  "replay",
				Types: []string{events.TypeMatchComplete},
				Fn: func(e events.Event) error {
					if done, ok := events.GetTypedData[events.MatchCompletedEvent](e); ok {
						if done.Written {
							written++
						} else {
							failed++
						}
						cmd.Printf("match %s: %d turns, result %q\n", done.MatchID, done.Turns, done.Result)
					}
					return nil
				},
			})

			reader, err := powerlog.NewReader(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = reader.Close() }()

			session := a.newSession(recorder.NoLiveGame{})
			lines := 0
			err = reader.Each(func(entry *powerlog.LogEntry) error {
				session.ProcessLine(entry.Raw)
				lines++
				return nil
			})
			session.Flush()
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			stats := a.metrics.Snapshot()
			a.log.Info("replay complete",
				zap.Int("lines", lines),
				zap.Int("matches_written", written),
				zap.Int("matches_failed", failed),
				zap.Uint64("decode_failures", stats.DecodeFailures))
			if failed > 0 {
				return fmt.Errorf("%d match(es) could not be written", failed)
			}
			return nil
		},
	}
}
