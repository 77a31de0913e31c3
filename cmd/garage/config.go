package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"garage-go/internal/app"
	"garage-go/internal/config"
)

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		url, _ := cmd.Flags().GetString("base-url")
		if url == "" {
			url = defaults.APIURL
		}
		if url != "" {
			cfg.API.BaseURL = url
		}

		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Backend:  %s\n", cfg.API.BaseURL)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := app.LoadConfig(defaults)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Backend:     %s (timeout %s)\n", cfg.API.BaseURL, cfg.API.Timeout)
		fmt.Printf("Credentials: %s %s\n", cfg.Credentials.Type, cfg.Credentials.TokenPath)
		fmt.Printf("Database:    %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		switch cfg.Archive.Type {
		case "s3":
			fmt.Printf("Archive:     s3://%s/%s (%s)\n", cfg.Archive.S3Bucket, cfg.Archive.S3Prefix, cfg.Archive.S3Region)
		default:
			fmt.Printf("Archive:     %s %s\n", cfg.Archive.Type, cfg.Archive.FSRoot)
		}
		fmt.Printf("Ignore:      %s\n", strings.Join(cfg.Uploads.Ignore, ", "))
		return nil
	},
}

var configArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the export archive",
}

var configArchiveCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the export archive is reachable and writable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "CheckArchive")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CheckArchive(cmd.Context()); err != nil {
			return err
		}
		out().Success("Archive %s is ready", a.Config().Archive.Name)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("base-url", "", "Backend URL")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configArchiveCmd)
	configArchiveCmd.AddCommand(configArchiveCheckCmd)
}
