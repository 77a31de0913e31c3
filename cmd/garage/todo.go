package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"garage-go/internal/app"
	"garage-go/internal/garage"
	"garage-go/internal/model"
)

var todoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Manage the todo list of a build",
}

// loadBoard opens the app and loads the todo board of args[0]. The caller
// must defer app.Close().
func loadBoard(cmd *cobra.Command, operation string, buildArg string) (*app.GarageApp, *garage.TodoBoard, error) {
	ctx := cmd.Context()
	id, err := parseID("build", buildArg)
	if err != nil {
		return nil, nil, err
	}
	a, err := newApp(ctx, operation)
	if err != nil {
		return nil, nil, err
	}
	board := a.Service().TodoBoard(id)
	if f := cmd.Flags().Lookup("status"); f != nil && f.Value.String() != "" {
		st, err := model.ParseTodoStatus(f.Value.String())
		if err != nil {
			a.Close()
			return nil, nil, err
		}
		board.Filter.Status = st
	}
	if category, _ := cmd.Flags().GetString("category"); category != "" {
		board.Filter.Category = category
	}
	if err := board.Load(ctx); err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, board, nil
}

// todoMutation runs fn against the loaded board of args[0] and prints the
// board afterwards.
func todoMutation(operation string, fn func(ctx context.Context, b *garage.TodoBoard, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, board, err := loadBoard(cmd, operation, args[0])
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(fmt.Sprint(args)); err != nil {
			return err
		}
		if err := a.Finish(fn(cmd.Context(), board, cmd, args)); err != nil {
			return err
		}
		out().TodoBoard(board)
		return nil
	}
}

func todoID(args []string) (int64, error) {
	return parseID("todo", args[1])
}

// floatFlag returns nil when the flag was not given.
func floatFlag(cmd *cobra.Command, name string) (*float64, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("--%s must be a number, got %q", name, s)
	}
	return &v, nil
}

var todoListCmd = &cobra.Command{
	Use:   "list BUILD",
	Short: "Show the todos of a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, board, err := loadBoard(cmd, "ListTodos", args[0])
		if err != nil {
			return err
		}
		defer a.Close()
		out().TodoBoard(board)
		return nil
	},
}

var todoAddCmd = &cobra.Command{
	Use:   "add BUILD TITLE",
	Short: "Add a todo",
	Args:  cobra.ExactArgs(2),
	RunE: todoMutation("CreateTodo", func(ctx context.Context, b *garage.TodoBoard, cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		category, _ := cmd.Flags().GetString("category-name")
		priority, _ := cmd.Flags().GetString("priority")
		due, _ := cmd.Flags().GetString("due")
		estimate, err := floatFlag(cmd, "estimate")
		if err != nil {
			return err
		}
		p, err := model.ParseTodoPriority(priority)
		if err != nil {
			return err
		}
		_, err = b.Create(ctx, model.TodoInput{
			Title: args[1], Description: description, Category: category,
			Priority: p, DueDate: due, EstimatedCost: estimate,
		})
		return err
	}),
}

var todoStartCmd = &cobra.Command{
	Use:   "start BUILD TODO",
	Short: "Start working on a todo",
	Args:  cobra.ExactArgs(2),
	RunE: todoMutation("StartTodo", func(ctx context.Context, b *garage.TodoBoard, _ *cobra.Command, args []string) error {
		id, err := todoID(args)
		if err != nil {
			return err
		}
		return b.Start(ctx, id)
	}),
}

var todoPauseCmd = &cobra.Command{
	Use:   "pause BUILD TODO",
	Short: "Move an in-progress todo back to pending",
	Args:  cobra.ExactArgs(2),
	RunE: todoMutation("PauseTodo", func(ctx context.Context, b *garage.TodoBoard, _ *cobra.Command, args []string) error {
		id, err := todoID(args)
		if err != nil {
			return err
		}
		return b.Pause(ctx, id)
	}),
}

var todoCompleteCmd = &cobra.Command{
	Use:   "complete BUILD TODO",
	Short: "Complete a todo",
	Args:  cobra.ExactArgs(2),
	RunE: todoMutation("CompleteTodo", func(ctx context.Context, b *garage.TodoBoard, cmd *cobra.Command, args []string) error {
		id, err := todoID(args)
		if err != nil {
			return err
		}
		notes, _ := cmd.Flags().GetString("notes")
		record, _ := cmd.Flags().GetBool("maintenance")
		c := model.TodoCompletion{CompletionNotes: notes, CreateMaintenanceRecord: record}
		if c.OdometerAtCompletion, err = floatFlag(cmd, "odometer"); err != nil {
			return err
		}
		if c.EngineHoursAtCompletion, err = floatFlag(cmd, "engine-hours"); err != nil {
			return err
		}
		if c.ActualCost, err = floatFlag(cmd, "cost"); err != nil {
			return err
		}
		res, err := b.Complete(ctx, id, c)
		if err != nil {
			return err
		}
		if res != nil && res.MaintenanceRecordID != nil {
			fmt.Printf("Created maintenance record #%d\n", *res.MaintenanceRecordID)
		}
		return nil
	}),
}

var todoReopenCmd = &cobra.Command{
	Use:   "reopen BUILD TODO",
	Short: "Move a completed or cancelled todo back to pending",
	Args:  cobra.ExactArgs(2),
	RunE: todoMutation("ReopenTodo", func(ctx context.Context, b *garage.TodoBoard, _ *cobra.Command, args []string) error {
		id, err := todoID(args)
		if err != nil {
			return err
		}
		return b.Reopen(ctx, id)
	}),
}

var todoCancelCmd = &cobra.Command{
	Use:   "cancel BUILD TODO",
	Short: "Cancel an open todo",
	Args:  cobra.ExactArgs(2),
	RunE: todoMutation("CancelTodo", func(ctx context.Context, b *garage.TodoBoard, _ *cobra.Command, args []string) error {
		id, err := todoID(args)
		if err != nil {
			return err
		}
		return b.Cancel(ctx, id)
	}),
}

var todoEditCmd = &cobra.Command{
	Use:   "edit BUILD TODO",
	Short: "Change the fields of a todo",
	Args:  cobra.ExactArgs(2),
	RunE: todoMutation("UpdateTodo", func(ctx context.Context, b *garage.TodoBoard, cmd *cobra.Command, args []string) error {
		id, err := todoID(args)
		if err != nil {
			return err
		}
		var patch model.TodoPatch
		flags := cmd.Flags()
		if flags.Changed("title") {
			v, _ := flags.GetString("title")
			patch.Title = &v
		}
		if flags.Changed("description") {
			v, _ := flags.GetString("description")
			patch.Description = &v
		}
		if flags.Changed("category-name") {
			v, _ := flags.GetString("category-name")
			patch.Category = &v
		}
		if flags.Changed("priority") {
			v, _ := flags.GetString("priority")
			p := model.TodoPriority(v)
			patch.Priority = &p
		}
		if flags.Changed("due") {
			v, _ := flags.GetString("due")
			patch.DueDate = &v
		}
		if patch.EstimatedCost, err = floatFlag(cmd, "estimate"); err != nil {
			return err
		}
		return b.Update(ctx, id, patch)
	}),
}

var todoDeleteCmd = &cobra.Command{
	Use:   "delete BUILD TODO",
	Short: "Delete a todo",
	Args:  cobra.ExactArgs(2),
	RunE: todoMutation("DeleteTodo", func(ctx context.Context, b *garage.TodoBoard, cmd *cobra.Command, args []string) error {
		id, err := todoID(args)
		if err != nil {
			return err
		}
		return b.Delete(ctx, id, confirmer(cmd))
	}),
}

var todoReorderCmd = &cobra.Command{
	Use:   "reorder BUILD TODO...",
	Short: "Set the display order of todos",
	Args:  cobra.MinimumNArgs(2),
	RunE: todoMutation("ReorderTodos", func(ctx context.Context, b *garage.TodoBoard, _ *cobra.Command, args []string) error {
		ids := make([]int64, 0, len(args)-1)
		for _, s := range args[1:] {
			id, err := parseID("todo", s)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return b.Reorder(ctx, ids)
	}),
}

var todoCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the todo categories",
	Run: func(cmd *cobra.Command, args []string) {
		for _, c := range model.TodoCategories {
			fmt.Println(c)
		}
	},
}

func addTodoFields(cmd *cobra.Command) {
	cmd.Flags().String("description", "", "Description")
	cmd.Flags().String("category-name", "", "Category, see garage todo categories")
	cmd.Flags().String("priority", "", "low, medium, high or urgent")
	cmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().String("estimate", "", "Estimated cost")
}

func init() {
	todoCmd.AddCommand(todoListCmd)
	todoListCmd.Flags().String("status", "", "Only show todos with this status")
	todoListCmd.Flags().String("category", "", "Only show todos in this category")

	todoCmd.AddCommand(todoAddCmd)
	addTodoFields(todoAddCmd)

	todoCmd.AddCommand(todoEditCmd)
	addTodoFields(todoEditCmd)
	todoEditCmd.Flags().String("title", "", "Title")

	todoCmd.AddCommand(todoStartCmd)
	todoCmd.AddCommand(todoPauseCmd)
	todoCmd.AddCommand(todoCompleteCmd)
	todoCompleteCmd.Flags().String("notes", "", "Completion notes")
	todoCompleteCmd.Flags().String("odometer", "", "Odometer reading")
	todoCompleteCmd.Flags().String("engine-hours", "", "Engine hours")
	todoCompleteCmd.Flags().String("cost", "", "Actual cost")
	todoCompleteCmd.Flags().Bool("maintenance", false, "Also create a maintenance record")
	todoCmd.AddCommand(todoReopenCmd)
	todoCmd.AddCommand(todoCancelCmd)
	todoCmd.AddCommand(todoDeleteCmd)
	addYesFlag(todoDeleteCmd)
	todoCmd.AddCommand(todoReorderCmd)
	todoCmd.AddCommand(todoCategoriesCmd)
}
