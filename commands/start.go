package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvisser/tempo/internal/core/timer"
	"github.com/kvisser/tempo/internal/util"
)

var (
	startTask string
	startTags []string
	startNote string
	startAt   string

	startCmd = &cobra.Command{
		Use:   "start [project]",
		Short: "Start the timer on a project",
		Long: `Start opens a running frame on the given project. Only one timer can run
at a time; stop or cancel it before starting another. Without a project
argument the configured default project is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStart,
	}
)

func init() {
	startCmd.Flags().StringVarP(&startTask, "task", "k", "",
		"Task within the project")
	startCmd.Flags().StringSliceVarP(&startTags, "tag", "t", nil,
		"Tag for the frame (repeatable)")
	startCmd.Flags().StringVarP(&startNote, "note", "n", "",
		"Free-form note")
	startCmd.Flags().StringVar(&startAt, "at", "",
		"Start time instead of now (e.g., 9:30, 2025-03-10T09:30)")

	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	project := cfg.DefaultProject
	if len(args) == 1 {
		project = args[0]
	}
	if project == "" {
		return fmt.Errorf("no project given and no default_project configured")
	}

	s, err := openStore()
	if err != nil {
		return err
	}

	at := util.GetTimeProvider().Now()
	if startAt != "" {
		at, err = parseTimeArg(startAt)
		if err != nil {
			return err
		}
	}

	f, err := timer.NewTracker(s).Start(project, startTask, at, startTags, startNote)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "started %s on %s at %s\n",
		util.ShortID(f.ID), frameTarget(f.Project, f.Task), f.Start.Format(time.Kitchen))
	return nil
}

func frameTarget(project, task string) string {
	if task == "" {
		return project
	}
	return project + "/" + task
}
