package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvisser/tempo/internal/util"
)

var (
	logTask string
	logTags []string
	logNote string

	logCmd = &cobra.Command{
		Use:   "log <project> <start> <end>",
		Short: "Record past work directly, without running a timer",
		Long: `Log records a finished interval of work. The times take the same forms
as --at on start: a bare clock time is resolved on today's date.

Examples:
  tempo log website 9:00 12:30
  tempo log website 2025-03-07T20:00 2025-03-07T22:15 -k deploy -t ops`,
		Args: cobra.ExactArgs(3),
		RunE: runLog,
	}
)

func init() {
	logCmd.Flags().StringVarP(&logTask, "task", "k", "",
		"Task within the project")
	logCmd.Flags().StringSliceVarP(&logTags, "tag", "t", nil,
		"Tag for the frame (repeatable)")
	logCmd.Flags().StringVarP(&logNote, "note", "n", "",
		"Free-form note")

	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}

	start, err := parseTimeArg(args[1])
	if err != nil {
		return err
	}
	end, err := parseTimeArg(args[2])
	if err != nil {
		return err
	}

	f, err := s.LogFrame(args[0], logTask, start, end, logTags, logNote)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged %s on %s, %s\n",
		util.ShortID(f.ID), frameTarget(f.Project, f.Task),
		util.FormatDuration(f.Duration(time.Time{})))
	return nil
}
