package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"garage-go/internal/app"
	"garage-go/internal/garage"
	"garage-go/internal/model"
	"garage-go/internal/render"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(1)
	}
}

// describe turns an error into the one line shown to the user.
func describe(err error) string {
	switch {
	case errors.Is(err, garage.ErrUnauthorized):
		return "not logged in: run garage auth login"
	case errors.Is(err, garage.ErrDeclined):
		return "cancelled"
	}
	return err.Error()
}

// newApp reads the config and creates a GarageApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "SaveDraft", "Login").
func newApp(ctx context.Context, operation string) (*app.GarageApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := app.LoadConfig(defaults)
	if err != nil {
		return nil, fmt.Errorf("reading config (run garage config init): %w", err)
	}

	a, err := app.NewGarageApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

func out() *render.Renderer {
	return render.New(os.Stdout)
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func parseComponentType(s string) (model.ComponentType, error) {
	t, err := model.ParseComponentType(s)
	if err != nil {
		return "", fmt.Errorf("%w (one of %v)", err, model.ComponentTypes)
	}
	return t, nil
}

var rootCmd = &cobra.Command{
	Use:           "garage",
	Short:         "Track engine and vehicle builds",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(buildsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(todoCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(maintenanceCmd)
	rootCmd.AddCommand(componentsCmd)
	rootCmd.AddCommand(subscriptionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(opsCmd)
}
