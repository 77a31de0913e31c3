package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"garage-go/internal/garage"
)

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "List, inspect and edit builds",
}

var buildsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your builds",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "ListBuilds")
		if err != nil {
			return err
		}
		defer a.Close()

		builds, err := a.Service().Builds(ctx)
		if err != nil {
			return err
		}
		r := out()
		r.UsageBanner(a.Service().UsageBanner(ctx))
		r.Builds(builds)
		return nil
	},
}

var buildsShowCmd = &cobra.Command{
	Use:   "show ID|SLUG",
	Short: "Show one build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "GetBuild")
		if err != nil {
			return err
		}
		defer a.Close()

		d, err := a.Service().Build(ctx, args[0])
		if err != nil {
			return err
		}
		out().Build(d)
		return nil
	},
}

var buildsCreateCmd = &cobra.Command{
	Use:   "create NAME [FIELD=VALUE...]",
	Short: "Create a build",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fields := map[string]any{}
		for _, kv := range args[1:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("expected FIELD=VALUE, got %q", kv)
			}
			fields[k] = v
		}

		a, err := newApp(ctx, "CreateBuild")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[0]); err != nil {
			return err
		}

		b, err := a.Service().CreateBuild(ctx, args[0], fields)
		if err := a.Finish(err); err != nil {
			return err
		}
		out().Success("Created build #%d %s", b.ID, b.Name)
		return nil
	},
}

var buildsSetCmd = &cobra.Command{
	Use:   "set BUILD KEY VALUE",
	Short: "Stage a change to a build field or section path",
	Long: `Stage a change in the local draft of a build. KEY is a scalar field
(vehicle_make) or a dotted path into a section (suspension.front.springs).
Nothing is sent until garage builds save.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("build", args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), "StageChange")
		if err != nil {
			return err
		}
		defer a.Close()

		key := args[1]
		if err := a.Service().StageChange(id, key, garage.ParseValue(key, args[2])); err != nil {
			return err
		}
		fmt.Printf("Staged %s\n", key)
		return nil
	},
}

var buildsUnsetCmd = &cobra.Command{
	Use:   "unset BUILD KEY",
	Short: "Drop a staged change",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("build", args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), "UnstageChange")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().UnstageChange(id, args[1]); err != nil {
			return err
		}
		fmt.Printf("Unstaged %s\n", args[1])
		return nil
	},
}

var buildsPendingCmd = &cobra.Command{
	Use:   "pending BUILD",
	Short: "Show the staged changes of a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("build", args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), "LoadDraft")
		if err != nil {
			return err
		}
		defer a.Close()

		cs, err := a.Service().LoadDraft(id)
		if err != nil {
			return err
		}
		out().Changeset(cs)
		return nil
	},
}

var buildsSaveCmd = &cobra.Command{
	Use:   "save BUILD",
	Short: "Send the staged changes of a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID("build", args[0])
		if err != nil {
			return err
		}
		a, err := newApp(ctx, "SaveDraft")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[0]); err != nil {
			return err
		}

		keys, err := a.Service().SaveDraft(ctx, id)
		r := out()
		for _, k := range keys {
			fmt.Printf("Saved %s\n", k)
		}
		if err := a.Finish(err); err != nil {
			if len(keys) > 0 {
				r.Warn("Unsaved changes remain in the draft; fix the error and run save again.")
			}
			return err
		}
		if len(keys) == 0 {
			fmt.Println("Nothing to save.")
			return nil
		}
		r.Success("Saved %d change(s) to build %d", len(keys), id)
		return nil
	},
}

var buildsDiscardCmd = &cobra.Command{
	Use:   "discard BUILD",
	Short: "Drop every staged change of a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("build", args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), "DiscardDraft")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[0]); err != nil {
			return err
		}

		if err := a.Finish(a.Service().DiscardDraft(id)); err != nil {
			return err
		}
		fmt.Printf("Discarded draft for build %d\n", id)
		return nil
	},
}

var buildsDraftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List builds with staged changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "DraftBuilds")
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.Service().DraftBuilds()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No drafts.")
			return nil
		}
		for _, id := range ids {
			fmt.Println(strconv.FormatInt(id, 10))
		}
		return nil
	},
}

var buildsPhotoCmd = &cobra.Command{
	Use:   "photo BUILD COMPONENT FILE",
	Short: "Upload a component photo",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := parseID("build", args[0])
		if err != nil {
			return err
		}
		ct, err := parseComponentType(args[1])
		if err != nil {
			return err
		}
		a, err := newApp(ctx, "UploadPhoto")
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Track(args[2]); err != nil {
			return err
		}

		up, err := a.UploadPhoto(ctx, id, ct, args[2])
		if err := a.Finish(err); err != nil {
			return err
		}
		out().Success("Uploaded %s (%d bytes)", up.FilePath, up.FileSize)
		return nil
	},
}

func init() {
	buildsCmd.AddCommand(buildsListCmd)
	buildsCmd.AddCommand(buildsShowCmd)
	buildsCmd.AddCommand(buildsCreateCmd)
	buildsCmd.AddCommand(buildsSetCmd)
	buildsCmd.AddCommand(buildsUnsetCmd)
	buildsCmd.AddCommand(buildsPendingCmd)
	buildsCmd.AddCommand(buildsSaveCmd)
	buildsCmd.AddCommand(buildsDiscardCmd)
	buildsCmd.AddCommand(buildsDraftsCmd)
	buildsCmd.AddCommand(buildsPhotoCmd)
}
