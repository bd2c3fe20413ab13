package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
	"github.com/ramonehamilton/BG-Companion/internal/output"
	"github.com/ramonehamilton/BG-Companion/internal/stats"
)

func matchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "Browse matches saved in the SQLite store",
	}
	cmd.AddCommand(matchesListCmd())
	cmd.AddCommand(matchesShowCmd())
	cmd.AddCommand(matchesExportCmd())
	cmd.AddCommand(matchesDeleteCmd())
	cmd.AddCommand(matchesStatsCmd())
	return cmd
}

// withStore runs fn against the configured match store.
func withStore(fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	if _, err := a.requireStore(); err != nil {
		return err
	}
	return fn(ctx, a)
}

func matchesListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, a *app) error {
				matches, err := a.matches.RecentMatches(ctx, limit)
				if err != nil {
					return err
				}
				if len(matches) == 0 {
					cmd.Println("No matches recorded yet.")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tTURNS\tW-L-T\tRESULT")
				for _, m := range matches {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d-%d-%d\t%s\n",
						m.ID,
						m.StartTime.Local().Format("2006-01-02 15:04"),
						m.EndTime.Sub(m.StartTime).Round(time.Second),
						m.Turns, m.Wins, m.Losses, m.Ties,
						m.Result)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of matches to list")
	return cmd
}

func matchesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <match-id>",
		Short: "Show the turns of a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, a *app) error {
				m, err := a.matches.GetMatch(ctx, args[0])
				if err != nil {
					return err
				}
				cmd.Printf("Match %s (%s)\n", m.ID, m.GameType)
				cmd.Printf("Started %s, ended %s\n",
					m.StartTime.Local().Format(time.DateTime), m.EndTime.Local().Format(time.DateTime))
				if m.Result != "" {
					cmd.Printf("Result: %s\n", m.Result)
				}
				cmd.Println()

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "TURN\tOUTCOME\tHERO\tOPPONENT\tHEALTH\tDEALT\tTAKEN\tTIERS")
				for _, row := range output.TurnRows(m.Turns) {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d->%d\t%d\t%d\t%d/%d\n",
						row.Turn, row.Outcome, row.PlayerHero, row.OpponentHero,
						row.PlayerStartHealth, row.PlayerEndHealth,
						row.DamageToOpponent, row.DamageToPlayer,
						row.PlayerTechLevel, row.OpponentTechLevel)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				if len(m.ShopEvents) > 0 {
					cmd.Printf("\n%d shop events recorded\n", len(m.ShopEvents))
				}
				return nil
			})
		},
	}
}

func matchesExportCmd() *cobra.Command {
	var (
		format  string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export <match-id>",
		Short: "Export a match as JSON or per-turn CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			return withStore(func(ctx context.Context, a *app) error {
				m, err := a.matches.GetMatch(ctx, args[0])
				if err != nil {
					return err
				}
				if outPath == "" {
					return exportMatch(cmd.OutOrStdout(), f, m)
				}
				return exportMatchFile(outPath, f, m)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Export format: json or csv")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write to a file instead of stdout")
	return cmd
}

func exportMatch(w io.Writer, f output.Format, m *recorder.MatchRecord) error {
	var data any = m
	if f == output.FormatCSV {
		data = output.TurnRows(m.Turns)
	}
	return output.Encode(w, f, data)
}

// exportMatchFile writes the export to path. A failed close is reported,
// since buffered data may not have reached the disk.
func exportMatchFile(path string, f output.Format, m *recorder.MatchRecord) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close export file: %w", cerr)
		}
	}()
	return exportMatch(file, f, m)
}

func matchesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <match-id>",
		Short: "Delete a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, a *app) error {
				if err := a.matches.DeleteMatch(ctx, args[0]); err != nil {
					return err
				}
				cmd.Printf("Deleted match %s\n", args[0])
				return nil
			})
		},
	}
}

func matchesStatsCmd() *cobra.Command {
	var (
		period string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize combat results over a period",
		Long:  "Periods: all, week, month, last-week, last-month.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := stats.ParsePeriod(period, time.Now())
			if err != nil {
				return err
			}
			return withStore(func(ctx context.Context, a *app) error {
				matches, err := stats.LoadRecent(ctx, a.matches, limit)
				if err != nil {
					return err
				}
				s := stats.Summarize(matches, tr)

				cmd.Printf("Period:   %s\n", s.Period)
				cmd.Printf("Matches:  %d\n", s.Matches)
				cmd.Printf("Combats:  %d (%d-%d-%d, %.1f%% won)\n",
					s.Combats, s.Wins, s.Losses, s.Ties, s.WinRate()*100)
				cmd.Printf("Damage:   %d dealt, %d taken\n", s.DamageDealt, s.DamageTaken)
				cmd.Printf("Streak:   %s (best %d, worst %d)\n",
					stats.FormatCurrentStreak(s.Streaks.CurrentStreak),
					s.Streaks.LongestWinStreak, s.Streaks.LongestLossStreak)

				if len(s.Heroes) == 0 {
					return nil
				}
				cmd.Println()
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "HERO\tMATCHES\tCOMBATS\tWIN RATE")
				for _, h := range s.Heroes {
					name := h.Name
					if name == "" {
						name = h.CardID
					}
					fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\n", name, h.Matches, h.Combats, h.WinRate()*100)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", "all", "Period to summarize")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Number of recent matches to load")
	return cmd
}
