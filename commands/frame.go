package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvisser/tempo/internal/util"
)

var (
	frameCmd = &cobra.Command{
		Use:   "frame",
		Short: "Inspect and delete recorded frames",
	}

	frameListCmd = &cobra.Command{
		Use:   "list",
		Short: "List frames, newest last",
		Args:  cobra.NoArgs,
		RunE:  runFrameList,
	}

	frameShowCmd = &cobra.Command{
		Use:   "show <frame-id>",
		Short: "Show one frame in full",
		Args:  cobra.ExactArgs(1),
		RunE:  runFrameShow,
	}

	frameRemoveCmd = &cobra.Command{
		Use:   "remove <frame-id>",
		Short: "Delete a frame",
		Args:  cobra.ExactArgs(1),
		RunE:  runFrameRemove,
	}
)

func init() {
	addFilterFlags(frameListCmd)

	frameCmd.AddCommand(frameListCmd, frameShowCmd, frameRemoveCmd)
	rootCmd.AddCommand(frameCmd)
}

func runFrameList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	pred, err := buildPredicate()
	if err != nil {
		return err
	}

	now := util.GetTimeProvider().Now()
	count := 0
	for f := range s.Frames(pred.Match) {
		end := "..."
		if !f.Running() {
			end = f.End.Format("2006-01-02 15:04")
		}
		line := fmt.Sprintf("%s  %s  %s -> %s  %s",
			util.ShortID(f.ID), util.FormatDuration(f.Duration(now)),
			f.Start.Format("2006-01-02 15:04"), end,
			frameTarget(f.Project, f.Task))
		if len(f.Tags) > 0 {
			line += "  [" + strings.Join(f.Tags, ", ") + "]"
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
		count++
	}
	if count == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no frames match")
	}
	return nil
}

func runFrameShow(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	id, err := resolveFrame(s, args[0])
	if err != nil {
		return err
	}
	f, err := s.Frame(id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:      %s\n", f.ID)
	fmt.Fprintf(out, "project: %s\n", f.Project)
	if f.Task != "" {
		fmt.Fprintf(out, "task:    %s\n", f.Task)
	}
	fmt.Fprintf(out, "start:   %s\n", f.Start.Format(time.RFC3339))
	if f.Running() {
		fmt.Fprintf(out, "end:     (running)\n")
	} else {
		fmt.Fprintf(out, "end:     %s\n", f.End.Format(time.RFC3339))
	}
	fmt.Fprintf(out, "worked:  %s\n", util.FormatDuration(f.Duration(util.GetTimeProvider().Now())))
	if len(f.Tags) > 0 {
		fmt.Fprintf(out, "tags:    %s\n", strings.Join(f.Tags, ", "))
	}
	if f.Note != "" {
		fmt.Fprintf(out, "note:    %s\n", f.Note)
	}
	return nil
}

func runFrameRemove(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	id, err := resolveFrame(s, args[0])
	if err != nil {
		return err
	}
	if err := s.DeleteFrame(id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed frame %s\n", util.ShortID(id))
	return nil
}
