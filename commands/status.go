package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/kvisser/tempo/internal/core/timer"
	"github.com/kvisser/tempo/internal/util"
)

var (
	statusWatch bool

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the running timer",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
)

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false,
		"Keep refreshing as the data directory changes")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	printStatus(cmd, timer.NewTracker(s).Status(util.GetTimeProvider().Now()))
	if !statusWatch {
		return nil
	}
	return watchStatus(cmd, s.Dir())
}

func printStatus(cmd *cobra.Command, st timer.Status) {
	if !st.Running {
		fmt.Fprintln(cmd.OutOrStdout(), "no timer running")
		return
	}
	f := st.Frame
	fmt.Fprintf(cmd.OutOrStdout(), "%s on %s for %s (since %s)\n",
		util.ShortID(f.ID), frameTarget(f.Project, f.Task),
		util.FormatDuration(st.Elapsed), f.Start.Format(time.RFC3339))
}

// watchStatus reprints the status whenever the data directory changes, and
// once a second while a timer runs so the elapsed time ticks. Ctrl-C exits.
func watchStatus(cmd *cobra.Command, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		tick := false
		select {
		case <-sig:
			return nil
		case err := <-watcher.Errors:
			return fmt.Errorf("watch %s: %w", dir, err)
		case ev := <-watcher.Events:
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
		case <-ticker.C:
			tick = true
		}

		s, err := openStore()
		if err != nil {
			// A writer may hold the lock or be mid-rename; try again on
			// the next event.
			util.LogDebugf("status refresh skipped: %v", err)
			continue
		}
		st := timer.NewTracker(s).Status(util.GetTimeProvider().Now())
		// Ticks only matter while a timer runs; file events always reprint.
		if tick && !st.Running {
			continue
		}
		printStatus(cmd, st)
	}
}
