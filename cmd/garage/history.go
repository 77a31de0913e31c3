package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and restore build snapshots",
}

var historyListCmd = &cobra.Command{
	Use:   "list BUILD",
	Short: "Show the version history of a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID("build", args[0])
		if err != nil {
			return err
		}
		a, err := newApp(ctx, "ListSnapshots")
		if err != nil {
			return err
		}
		defer a.Close()

		h := a.Service().History(id)
		if err := h.Load(ctx); err != nil {
			return err
		}
		out().History(h)
		return nil
	},
}

var historyDiffCmd = &cobra.Command{
	Use:   "diff BUILD [ENTRY]",
	Short: "Show what changed at a history entry",
	Long: `Show what changed at a history entry compared to the entry before it.
ENTRY is the index printed by garage history list (0 is the newest). Use
--before and --after to compare any two snapshot ids instead.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID("build", args[0])
		if err != nil {
			return err
		}
		before, _ := cmd.Flags().GetInt64("before")
		after, _ := cmd.Flags().GetInt64("after")

		a, err := newApp(ctx, "DiffSnapshots")
		if err != nil {
			return err
		}
		defer a.Close()

		h := a.Service().History(id)
		r := out()
		switch {
		case before > 0 && after > 0:
			err = h.Compare(ctx, before, after)
		case len(args) == 2:
			entry, convErr := strconv.Atoi(args[1])
			if convErr != nil {
				return fmt.Errorf("invalid entry %q", args[1])
			}
			if err := h.Load(ctx); err != nil {
				return err
			}
			err = h.ViewChanges(ctx, entry)
		default:
			return fmt.Errorf("give an ENTRY or both --before and --after")
		}
		r.Changes(h)
		return err
	},
}

var historyRestoreCmd = &cobra.Command{
	Use:   "restore BUILD SNAPSHOT",
	Short: "Restore a build to a snapshot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		buildID, err := parseID("build", args[0])
		if err != nil {
			return err
		}
		snapID, err := parseID("snapshot", args[1])
		if err != nil {
			return err
		}

		a, err := newApp(ctx, "RestoreSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[0] + " " + args[1]); err != nil {
			return err
		}

		h := a.Service().History(buildID)
		d, err := a.Service().RestoreSnapshot(ctx, buildID, snapID, confirmer(cmd), h)
		if d == nil {
			return a.Finish(err)
		}
		a.Finish(nil)
		r := out()
		r.Success("Restored build %d to snapshot %d", buildID, snapID)
		r.Build(d)
		if err != nil {
			r.Warn("History could not be reloaded: %v", err)
		} else {
			fmt.Println()
			r.History(h)
		}
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyDiffCmd)
	historyDiffCmd.Flags().Int64("before", 0, "Snapshot id of the older side")
	historyDiffCmd.Flags().Int64("after", 0, "Snapshot id of the newer side")
	historyCmd.AddCommand(historyRestoreCmd)
	addYesFlag(historyRestoreCmd)
}
