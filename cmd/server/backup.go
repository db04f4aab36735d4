package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"proxy-config-guard/internal/config"
	"proxy-config-guard/internal/model"
)

var backupActor string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list and restore configuration snapshots",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create [description]",
	Short: "Take a manual snapshot of the configuration tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			description := ""
			if len(args) == 1 {
				description = args[0]
			}
			backup, err := a.config.CreateBackup(cmd.Context(), cliActor(), description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created backup %s (%d files, %d bytes)\n", backup.ID, len(backup.Files), backup.SizeBytes)
			return nil
		})
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			backups, err := a.config.ListBackups()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tFILES\tSIZE\tREASON")
			for _, b := range backups {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", b.ID, b.Kind, len(b.Files), b.SizeBytes, b.Reason)
			}
			return tw.Flush()
		})
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a snapshot, taking a safety snapshot first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			result, _, err := a.config.Restore(cmd.Context(), cliActor(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s: %d files written, %d removed. Safety backup %s\n",
				result.RestoredID, result.FilesRestored, result.FilesRemoved, result.SafetyBackupID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd)
	backupCmd.PersistentFlags().StringVar(&backupActor, "actor", "", "actor recorded in the audit log (defaults to $USER)")
}

func cliActor() model.Actor {
	id := backupActor
	if id == "" {
		id = os.Getenv("USER")
	}
	if id == "" {
		id = "cli"
	}
	return model.Actor{ID: "cli:" + id, Role: model.RoleAdmin}
}

func withApp(fn func(a *app) error) error {
	a, err := newApp(config.Load())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

