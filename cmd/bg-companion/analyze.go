package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/powerlog"
)

func analyzeCmd() *cobra.Command {
	var (
		outPath string
		topTags int
	)
	cmd := &cobra.Command{
		Use:   "analyze [Power.log]",
		Short: "Summarize the records in a Power.log as Markdown",
		Long: "Counts every record kind, source and tag in a Power.log and lists the lines " +
			"that failed to decode. Without an argument the game's default log is read.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				detected, err := powerlog.DefaultLogPath()
				if err != nil {
					return fmt.Errorf("failed to find Power.log: %w", err)
				}
				path = detected
			}

			reader, err := powerlog.NewReader(path)
			if err != nil {
				return err
			}
			defer func() { _ = reader.Close() }()

			analyzer := powerlog.NewAnalyzer()
			if err := reader.Each(func(entry *powerlog.LogEntry) error {
				analyzer.Add(entry.Raw)
				return nil
			}); err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			report := analyzer.Report(topTags)

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create report: %w", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			if err := report.WriteMarkdown(w); err != nil {
				return err
			}
			if outPath != "" {
				failures := 0
				for _, c := range report.Failures {
					failures += c.Count
				}
				cmd.PrintErrf("Report written to %s (%d lines, %d decode failures)\n",
					outPath, report.Lines, failures)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().IntVar(&topTags, "top-tags", 40, "Number of tags to list; 0 lists all")
	return cmd
}
