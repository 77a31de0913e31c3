package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"garage-go/internal/app"
	"garage-go/internal/garage"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Read and write component notes",
}

func openNotes(cmd *cobra.Command, operation string, args []string) (*app.GarageApp, *garage.NoteBoard, error) {
	ct, err := parseComponentType(args[1])
	if err != nil {
		return nil, nil, err
	}
	a, err := newApp(cmd.Context(), operation)
	if err != nil {
		return nil, nil, err
	}
	board, err := a.Service().NoteBoard(cmd.Context(), args[0], ct)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, board, nil
}

var notesListCmd = &cobra.Command{
	Use:   "list BUILD COMPONENT",
	Short: "Show the notes on a component",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, board, err := openNotes(cmd, "ListNotes", args)
		if err != nil {
			return err
		}
		defer a.Close()
		out().Notes(board)
		return nil
	},
}

var notesAddCmd = &cobra.Command{
	Use:   "add BUILD COMPONENT TEXT...",
	Short: "Add a note to a component",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, board, err := openNotes(cmd, "AddNote", args)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[0] + " " + args[1]); err != nil {
			return err
		}

		note, err := board.Add(cmd.Context(), strings.Join(args[2:], " "))
		if err := a.Finish(err); err != nil {
			return err
		}
		out().Success("Added note %s", note.ID)
		return nil
	},
}

var notesEditCmd = &cobra.Command{
	Use:   "edit BUILD COMPONENT NOTE TEXT...",
	Short: "Replace the text of your note",
	Args:  cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, board, err := openNotes(cmd, "EditNote", args)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[2]); err != nil {
			return err
		}

		_, err = board.Edit(cmd.Context(), args[2], strings.Join(args[3:], " "))
		if err := a.Finish(err); err != nil {
			return err
		}
		out().Notes(board)
		return nil
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete BUILD COMPONENT NOTE",
	Short: "Delete your note",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, board, err := openNotes(cmd, "DeleteNote", args)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[2]); err != nil {
			return err
		}

		if err := a.Finish(board.Delete(cmd.Context(), args[2], confirmer(cmd))); err != nil {
			return err
		}
		fmt.Printf("Deleted note %s\n", args[2])
		return nil
	},
}

func init() {
	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesAddCmd)
	notesCmd.AddCommand(notesEditCmd)
	notesCmd.AddCommand(notesDeleteCmd)
	addYesFlag(notesDeleteCmd)
}
