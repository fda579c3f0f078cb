package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kvisser/tempo/internal/core/model"
	"github.com/kvisser/tempo/internal/core/timer"
	"github.com/kvisser/tempo/internal/util"
)

var (
	amendProject string
	amendTask    string
	amendStart   string
	amendEnd     string
	amendTags    []string
	amendNote    string

	amendCmd = &cobra.Command{
		Use:   "amend [frame-id]",
		Short: "Edit a frame, by default the running one",
		Long: `Amend changes fields of a recorded frame. Without an id the running
frame is edited. Only the flags you pass change; --task "" clears the
task and --tag with no value clears the tags.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAmend,
	}
)

func init() {
	amendCmd.Flags().StringVarP(&amendProject, "project", "p", "",
		"Move the frame to another project")
	amendCmd.Flags().StringVarP(&amendTask, "task", "k", "",
		"Reassign the task")
	amendCmd.Flags().StringVar(&amendStart, "start", "",
		"New start time")
	amendCmd.Flags().StringVar(&amendEnd, "end", "",
		"New end time")
	amendCmd.Flags().StringSliceVarP(&amendTags, "tag", "t", nil,
		"Replace the tag set (repeatable)")
	amendCmd.Flags().StringVarP(&amendNote, "note", "n", "",
		"Replace the note")

	rootCmd.AddCommand(amendCmd)
}

func runAmend(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}

	patch, err := buildPatch(cmd)
	if err != nil {
		return err
	}

	var f *model.Frame
	if len(args) == 1 {
		id, err := resolveFrame(s, args[0])
		if err != nil {
			return err
		}
		f, err = s.AmendFrame(id, patch)
		if err != nil {
			return err
		}
	} else {
		f, err = timer.NewTracker(s).AmendRunning(patch)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "amended %s on %s\n",
		util.ShortID(f.ID), frameTarget(f.Project, f.Task))
	return nil
}

// buildPatch converts changed flags into a partial edit. Unchanged flags
// leave their fields alone, so clearing and leaving-untouched stay distinct.
func buildPatch(cmd *cobra.Command) (model.FramePatch, error) {
	var patch model.FramePatch
	flags := cmd.Flags()

	if flags.Changed("project") {
		patch.Project = &amendProject
	}
	if flags.Changed("task") {
		patch.Task = &amendTask
	}
	if flags.Changed("start") {
		at, err := parseTimeArg(amendStart)
		if err != nil {
			return patch, err
		}
		patch.Start = &at
	}
	if flags.Changed("end") {
		at, err := parseTimeArg(amendEnd)
		if err != nil {
			return patch, err
		}
		patch.End = &at
	}
	if flags.Changed("tag") {
		patch.Tags = &amendTags
	}
	if flags.Changed("note") {
		patch.Note = &amendNote
	}
	return patch, nil
}
