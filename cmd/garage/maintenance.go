package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"garage-go/internal/garage"
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Record maintenance and upload receipts",
}

// parsePart reads DESCRIPTION[|BRAND|PART_NUMBER|QUANTITY|COST_PER_UNIT].
func parsePart(s string) garage.PartLine {
	fields := strings.Split(s, "|")
	for len(fields) < 5 {
		fields = append(fields, "")
	}
	return garage.PartLine{
		Description: strings.TrimSpace(fields[0]),
		Brand:       strings.TrimSpace(fields[1]),
		PartNumber:  strings.TrimSpace(fields[2]),
		Quantity:    strings.TrimSpace(fields[3]),
		CostPerUnit: strings.TrimSpace(fields[4]),
	}
}

var maintenanceAddCmd = &cobra.Command{
	Use:   "add BUILD [ATTACHMENT...]",
	Short: "Record a maintenance event",
	Long: `Record a maintenance event. Each --part is
DESCRIPTION|BRAND|PART_NUMBER|QUANTITY|COST_PER_UNIT; trailing fields may be
left out. Attachments may be files or directories.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID("build", args[0])
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		form := &garage.MaintenanceForm{}
		form.MaintenanceType, _ = flags.GetString("type")
		form.EventDate, _ = flags.GetString("date")
		form.Notes, _ = flags.GetString("notes")
		form.OdometerMiles, _ = flags.GetString("odometer")
		form.EngineHours, _ = flags.GetString("engine-hours")
		labor, _ := flags.GetString("labor")
		form.SetLabor(labor)
		parts, _ := flags.GetStringArray("part")
		for _, p := range parts {
			form.Parts = append(form.Parts, parsePart(p))
		}
		recursive, _ := flags.GetBool("recursive")

		a, err := newApp(ctx, "RecordMaintenance")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[0] + " " + form.MaintenanceType); err != nil {
			return err
		}

		r := out()
		r.MaintenanceForm(form)
		res, err := a.RecordMaintenance(ctx, id, form, args[1:], recursive)
		if res != nil && res.Record != nil {
			r.Success("Recorded maintenance #%d", res.Record.ID)
			for _, att := range res.Attachments {
				fmt.Printf("Attached %s\n", att.FileName)
			}
		}
		return a.Finish(err)
	},
}

var maintenanceAttachCmd = &cobra.Command{
	Use:   "attach RECORD PATH...",
	Short: "Upload files to a maintenance record",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID("maintenance record", args[0])
		if err != nil {
			return err
		}
		recursive, _ := cmd.Flags().GetBool("recursive")
		description, _ := cmd.Flags().GetString("description")

		a, err := newApp(ctx, "AttachFiles")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(strings.Join(args, " ")); err != nil {
			return err
		}

		atts, err := a.AttachFiles(ctx, id, args[1:], recursive, description)
		for _, att := range atts {
			fmt.Printf("Attached %s\n", att.FileName)
		}
		return a.Finish(err)
	},
}

var maintenanceAttachmentsCmd = &cobra.Command{
	Use:   "attachments RECORD",
	Short: "List the files of a maintenance record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID("maintenance record", args[0])
		if err != nil {
			return err
		}
		a, err := newApp(ctx, "ListAttachments")
		if err != nil {
			return err
		}
		defer a.Close()

		atts, err := a.Service().Attachments(ctx, id)
		if err != nil {
			return err
		}
		out().Attachments(atts)
		return nil
	},
}

func init() {
	maintenanceCmd.AddCommand(maintenanceAddCmd)
	f := maintenanceAddCmd.Flags()
	f.String("type", "", "Maintenance type, e.g. \"Oil Change\" (required)")
	f.String("date", time.Now().Format("2006-01-02"), "Event date")
	f.String("notes", "", "Notes")
	f.String("odometer", "", "Odometer reading in miles")
	f.String("engine-hours", "", "Engine hours")
	f.String("labor", "", "Labor cost")
	f.StringArray("part", nil, "Part line, repeatable")
	f.BoolP("recursive", "r", false, "Recurse into attachment directories")

	maintenanceCmd.AddCommand(maintenanceAttachCmd)
	maintenanceAttachCmd.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories")
	maintenanceAttachCmd.Flags().String("description", "", "Description stored with each file")

	maintenanceCmd.AddCommand(maintenanceAttachmentsCmd)
}
