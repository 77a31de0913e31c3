package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Show and change your plan",
}

var subscriptionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show plan usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "SubscriptionStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Service().Subscription(ctx)
		if err != nil {
			return err
		}
		out().Subscription(st)
		return nil
	},
}

var subscriptionUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Start a checkout for the premier plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "Checkout")
		if err != nil {
			return err
		}
		defer a.Close()

		url, err := a.Service().UpgradeURL(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Open this link to upgrade:\n%s\n", url)
		return nil
	},
}

var subscriptionPortalCmd = &cobra.Command{
	Use:   "portal",
	Short: "Open the billing portal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "Portal")
		if err != nil {
			return err
		}
		defer a.Close()

		url, err := a.Service().PortalURL(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Open this link to manage billing:\n%s\n", url)
		return nil
	},
}

func init() {
	subscriptionCmd.AddCommand(subscriptionStatusCmd)
	subscriptionCmd.AddCommand(subscriptionUpgradeCmd)
	subscriptionCmd.AddCommand(subscriptionPortalCmd)
}
