package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/BG-Companion/internal/storage"
)

func backupCmd() *cobra.Command {
	var (
		dir  string
		keep int
		list bool
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the SQLite match store",
		Long: "Copies the match database into the backup directory and verifies the copy. " +
			"With --keep, older backups beyond that count are removed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, a *app) error {
				if dir == "" {
					dir = a.db.BackupDir()
				}
				if list {
					return listBackups(cmd, dir)
				}

				path, err := a.db.Backup(ctx, dir)
				if err != nil {
					return err
				}
				a.log.Info("backup created", zap.String("path", path))
				cmd.Printf("Backup written to %s\n", path)

				if keep > 0 {
					removed, err := storage.PruneBackups(dir, keep)
					if err != nil {
						return err
					}
					for _, p := range removed {
						a.log.Info("old backup removed", zap.String("path", p))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Backup directory (default: backups next to the database)")
	cmd.Flags().IntVar(&keep, "keep", 0, "Keep only the newest N backups; 0 keeps all")
	cmd.Flags().BoolVar(&list, "list", false, "List existing backups instead of creating one")
	return cmd
}

func listBackups(cmd *cobra.Command, dir string) error {
	backups, err := storage.ListBackups(dir)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		cmd.Printf("No backups in %s\n", dir)
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tCREATED\tSHA256")
	for _, b := range backups {
		sum := b.Checksum
		if len(sum) > 12 {
			sum = sum[:12]
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", b.Name, b.Size, b.ModTime.Format("2006-01-02 15:04:05"), sum)
	}
	return tw.Flush()
}
