package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"garage-go/internal/model"
)

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "Manage the reusable component library",
}

// componentArgs parses TYPE [ID] from args.
func componentArgs(args []string) (model.ComponentType, int64, error) {
	ct, err := parseComponentType(args[0])
	if err != nil {
		return "", 0, err
	}
	if len(args) < 2 {
		return ct, 0, nil
	}
	id, err := parseID("component", args[1])
	return ct, id, err
}

// componentInput reads the name, description, template and data flags. data
// is inline JSON or @FILE.
func componentInput(cmd *cobra.Command, name string) (model.ComponentInput, error) {
	description, _ := cmd.Flags().GetString("description")
	template, _ := cmd.Flags().GetBool("template")
	data, _ := cmd.Flags().GetString("data")

	in := model.ComponentInput{Name: name, Description: description, IsTemplate: template}
	if strings.HasPrefix(data, "@") {
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return in, fmt.Errorf("reading component data: %w", err)
		}
		data = string(b)
	}
	if data == "" {
		data = "{}"
	}
	in.ComponentData = json.RawMessage(data)
	return in, nil
}

var componentsCreateCmd = &cobra.Command{
	Use:   "create TYPE NAME",
	Short: "Create a component",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ct, _, err := componentArgs(args[:1])
		if err != nil {
			return err
		}
		in, err := componentInput(cmd, args[1])
		if err != nil {
			return err
		}

		a, err := newApp(ctx, "CreateComponent")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[0] + " " + args[1]); err != nil {
			return err
		}

		c, err := a.Service().CreateComponent(ctx, ct, in)
		if err := a.Finish(err); err != nil {
			return err
		}
		out().Component(c)
		return nil
	},
}

var componentsGetCmd = &cobra.Command{
	Use:   "get TYPE ID",
	Short: "Show a component",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ct, id, err := componentArgs(args)
		if err != nil {
			return err
		}
		a, err := newApp(ctx, "GetComponent")
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.Service().Component(ctx, ct, id)
		if err != nil {
			return err
		}
		out().Component(c)
		return nil
	},
}

var componentsUpdateCmd = &cobra.Command{
	Use:   "update TYPE ID NAME",
	Short: "Replace a component",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ct, id, err := componentArgs(args)
		if err != nil {
			return err
		}
		in, err := componentInput(cmd, args[2])
		if err != nil {
			return err
		}

		a, err := newApp(ctx, "UpdateComponent")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[0] + " " + args[1]); err != nil {
			return err
		}

		c, err := a.Service().UpdateComponent(ctx, ct, id, in)
		if err := a.Finish(err); err != nil {
			return err
		}
		out().Component(c)
		return nil
	},
}

var componentsDeleteCmd = &cobra.Command{
	Use:   "delete TYPE ID",
	Short: "Delete a component",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ct, id, err := componentArgs(args)
		if err != nil {
			return err
		}
		a, err := newApp(ctx, "DeleteComponent")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[0] + " " + args[1]); err != nil {
			return err
		}

		if err := a.Finish(a.Service().DeleteComponent(ctx, ct, id, confirmer(cmd))); err != nil {
			return err
		}
		fmt.Printf("Deleted %s component %d\n", ct, id)
		return nil
	},
}

var componentsTemplatesCmd = &cobra.Command{
	Use:   "templates TYPE",
	Short: "List template components",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ct, _, err := componentArgs(args)
		if err != nil {
			return err
		}
		a, err := newApp(ctx, "ListTemplates")
		if err != nil {
			return err
		}
		defer a.Close()

		cs, err := a.Service().Templates(ctx, ct)
		if err != nil {
			return err
		}
		out().Components(cs)
		return nil
	},
}

var componentsCloneCmd = &cobra.Command{
	Use:   "clone TYPE ID NEW_NAME",
	Short: "Copy a component under a new name",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ct, id, err := componentArgs(args)
		if err != nil {
			return err
		}
		a, err := newApp(ctx, "CloneComponent")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(strings.Join(args, " ")); err != nil {
			return err
		}

		c, err := a.Service().CloneComponent(ctx, ct, id, args[2])
		if err := a.Finish(err); err != nil {
			return err
		}
		out().Component(c)
		return nil
	},
}

var componentsExportCmd = &cobra.Command{
	Use:   "export TYPE ID",
	Short: "Write a component to the export archive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ct, id, err := componentArgs(args)
		if err != nil {
			return err
		}
		a, err := newApp(ctx, "ExportComponent")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[0] + " " + args[1]); err != nil {
			return err
		}

		key, err := a.Service().ExportComponent(ctx, ct, id)
		if err := a.Finish(err); err != nil {
			return err
		}
		out().Success("Exported to %s", key)
		return nil
	},
}

var componentsExportsCmd = &cobra.Command{
	Use:   "exports TYPE",
	Short: "List archived exports of a type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ct, _, err := componentArgs(args)
		if err != nil {
			return err
		}
		a, err := newApp(ctx, "ListExports")
		if err != nil {
			return err
		}
		defer a.Close()

		keys, err := a.Service().Exports(ctx, ct)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Println("No exports.")
			return nil
		}
		out().Lines(keys)
		return nil
	},
}

var componentsImportCmd = &cobra.Command{
	Use:   "import TYPE KEY|FILE",
	Short: "Create a component from an export envelope",
	Long: `Create a component from an export envelope. The source is an archive key
as printed by garage components exports, or a local file with --file.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ct, _, err := componentArgs(args[:1])
		if err != nil {
			return err
		}
		fromFile, _ := cmd.Flags().GetBool("file")

		a, err := newApp(ctx, "ImportComponent")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[0] + " " + args[1]); err != nil {
			return err
		}

		var c *model.Component
		if fromFile {
			f, openErr := os.Open(args[1])
			if openErr != nil {
				return a.Finish(fmt.Errorf("opening envelope: %w", openErr))
			}
			defer f.Close()
			c, err = a.Service().ImportEnvelope(ctx, ct, f)
		} else {
			c, err = a.Service().ImportComponent(ctx, ct, args[1])
		}
		if err := a.Finish(err); err != nil {
			return err
		}
		out().Component(c)
		return nil
	},
}

func addComponentFields(cmd *cobra.Command) {
	cmd.Flags().String("description", "", "Description")
	cmd.Flags().Bool("template", false, "Mark as a template")
	cmd.Flags().String("data", "", "Component data as JSON, or @FILE")
}

func init() {
	componentsCmd.AddCommand(componentsCreateCmd)
	addComponentFields(componentsCreateCmd)
	componentsCmd.AddCommand(componentsGetCmd)
	componentsCmd.AddCommand(componentsUpdateCmd)
	addComponentFields(componentsUpdateCmd)
	componentsCmd.AddCommand(componentsDeleteCmd)
	addYesFlag(componentsDeleteCmd)
	componentsCmd.AddCommand(componentsTemplatesCmd)
	componentsCmd.AddCommand(componentsCloneCmd)
	componentsCmd.AddCommand(componentsExportCmd)
	componentsCmd.AddCommand(componentsExportsCmd)
	componentsCmd.AddCommand(componentsImportCmd)
	componentsImportCmd.Flags().Bool("file", false, "Read the envelope from a local file")
}
