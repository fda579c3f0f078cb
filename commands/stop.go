package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvisser/tempo/internal/core/timer"
	"github.com/kvisser/tempo/internal/util"
)

var (
	stopAt string

	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop the running timer and record the frame",
		Args:  cobra.NoArgs,
		RunE:  runStop,
	}

	cancelCmd = &cobra.Command{
		Use:   "cancel",
		Short: "Discard the running timer without recording time",
		Args:  cobra.NoArgs,
		RunE:  runCancel,
	}
)

func init() {
	stopCmd.Flags().StringVar(&stopAt, "at", "",
		"Stop time instead of now (e.g., 17:30)")

	rootCmd.AddCommand(stopCmd, cancelCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	at, err := parseTimeArg(stopAt)
	if err != nil {
		return err
	}

	f, err := timer.NewTracker(s).Stop(at)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stopped %s on %s, worked %s\n",
		util.ShortID(f.ID), frameTarget(f.Project, f.Task),
		util.FormatDuration(f.Duration(time.Time{})))
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	f, err := timer.NewTracker(s).Cancel()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cancelled %s on %s, nothing recorded\n",
		util.ShortID(f.ID), frameTarget(f.Project, f.Task))
	return nil
}
