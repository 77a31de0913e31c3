package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the local database",
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the database location and pending drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "DBStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.Service().DraftBuilds()
		if err != nil {
			return err
		}
		fmt.Printf("Database: %s\n", a.DatabasePath())
		fmt.Printf("Drafts:   %d\n", len(ids))
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Copy the local database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "DBBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDatabase(args[0]); err != nil {
			return err
		}
		out().Success("Database copied to %s", args[0])
		return nil
	},
}

// ops command
var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "View the local operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}
		out().Operations(ops)
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbBackupCmd)
	opsCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
