package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvisser/tempo/internal/core/model"
	"github.com/kvisser/tempo/internal/data/aggregator"
	"github.com/kvisser/tempo/internal/presentation/formatter"
	"github.com/kvisser/tempo/internal/util"
)

var (
	// Filtering, shared with frame list
	filterProject  string
	filterTask     string
	filterTags     []string
	filterFrom     string
	filterTo       string
	filterLookback string

	// Report shaping
	reportGroupBy string
	reportOutput  string
	reportFrames  bool

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Aggregate worked time",
		Long: `Report filters the recorded frames and totals their durations, optionally
grouped by project, task or day. A running frame counts up to now.

Examples:
  tempo report --lookback 7d --group-by day
  tempo report --project website --from 2025-03-01 --to 2025-04-01
  tempo report --tag ops -o json`,
		Args: cobra.NoArgs,
		RunE: runReport,
	}

	overlapsCmd = &cobra.Command{
		Use:   "overlaps",
		Short: "List pairs of frames that overlap within a project",
		Args:  cobra.NoArgs,
		RunE:  runOverlaps,
	}

	gapsCmd = &cobra.Command{
		Use:   "gaps",
		Short: "List idle stretches between consecutive frames",
		Args:  cobra.NoArgs,
		RunE:  runGaps,
	}

	gapsMin string
)

func init() {
	addFilterFlags(reportCmd)
	reportCmd.Flags().StringVarP(&reportGroupBy, "group-by", "g", "none",
		"Group by field (project, task, day, none)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "table",
		"Output format (table, json, csv)")
	reportCmd.Flags().BoolVar(&reportFrames, "frames", false,
		"Include individual frames in the output")

	addFilterFlags(overlapsCmd)
	addFilterFlags(gapsCmd)
	gapsCmd.Flags().StringVar(&gapsMin, "min", "",
		"Only report gaps of at least this length (e.g., 30m, 2h)")

	rootCmd.AddCommand(reportCmd, overlapsCmd, gapsCmd)
}

// addFilterFlags attaches the frame filter flags shared by report, frame
// list, overlaps and gaps.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&filterProject, "project", "p", "",
		"Restrict to one project")
	cmd.Flags().StringVarP(&filterTask, "task", "k", "",
		"Restrict to one task")
	cmd.Flags().StringSliceVarP(&filterTags, "tag", "t", nil,
		"Match frames carrying any of these tags (repeatable)")
	cmd.Flags().StringVar(&filterFrom, "from", "",
		"Only frames starting at or after this time")
	cmd.Flags().StringVar(&filterTo, "to", "",
		"Only frames starting before this time")
	cmd.Flags().StringVarP(&filterLookback, "lookback", "l", "",
		"Shorthand window ending now (e.g., 12h, 7d, 2w)")
}

// buildPredicate assembles the filter from the flags. --lookback sets the
// window start relative to now and loses to an explicit --from.
func buildPredicate() (aggregator.Predicate, error) {
	tags, err := model.NormalizeTags(filterTags)
	if err != nil {
		return aggregator.Predicate{}, err
	}
	pred := aggregator.Predicate{
		Project: filterProject,
		Task:    filterTask,
		Tags:    tags,
	}
	if pred.From, err = parseTimeArg(filterFrom); err != nil {
		return pred, err
	}
	if pred.To, err = parseTimeArg(filterTo); err != nil {
		return pred, err
	}
	if filterLookback != "" && pred.From.IsZero() {
		d, err := util.ParseLookback(filterLookback)
		if err != nil {
			return pred, err
		}
		pred.From = util.GetTimeProvider().Now().Add(-d)
	}
	if !pred.From.IsZero() && !pred.To.IsZero() && !pred.From.Before(pred.To) {
		return pred, fmt.Errorf("empty time window: --from %s is not before --to %s",
			pred.From.Format(time.RFC3339), pred.To.Format(time.RFC3339))
	}
	return pred, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	pred, err := buildPredicate()
	if err != nil {
		return err
	}
	group, err := aggregator.ParseGroupBy(reportGroupBy)
	if err != nil {
		return err
	}

	now := util.GetTimeProvider().Now()
	// CSV is frame-per-row, so it always needs the frames.
	includeFrames := reportFrames || reportOutput == "csv"
	report := aggregator.Aggregate(s.Frames(nil), pred, group, now, includeFrames)

	var f formatter.Formatter
	switch reportOutput {
	case "table":
		f = formatter.NewTableFormatter(cmd.OutOrStdout())
	case "json":
		f = formatter.NewJSONFormatter(cmd.OutOrStdout(), now)
	case "csv":
		f = formatter.NewCSVFormatter(cmd.OutOrStdout(), now)
	default:
		return fmt.Errorf("unknown output format %q (want table, json or csv)", reportOutput)
	}
	return f.Format(report)
}

func runOverlaps(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	pred, err := buildPredicate()
	if err != nil {
		return err
	}

	now := util.GetTimeProvider().Now()
	overlaps := aggregator.FindOverlaps(s.Frames(nil), pred, now)
	if len(overlaps) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no overlapping frames")
		return nil
	}
	for _, o := range overlaps {
		fmt.Fprintf(cmd.OutOrStdout(), "%s overlaps %s on %s (%s vs %s)\n",
			util.ShortID(o.A.ID), util.ShortID(o.B.ID), o.A.Project,
			o.A.Start.Format(time.RFC3339), o.B.Start.Format(time.RFC3339))
	}
	return nil
}

func runGaps(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	pred, err := buildPredicate()
	if err != nil {
		return err
	}
	var min time.Duration
	if gapsMin != "" {
		if min, err = util.ParseLookback(gapsMin); err != nil {
			return err
		}
	}

	now := util.GetTimeProvider().Now()
	gaps := aggregator.FindGaps(s.Frames(nil), pred, now, min)
	if len(gaps) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no gaps found")
		return nil
	}
	for _, g := range gaps {
		fmt.Fprintf(cmd.OutOrStdout(), "%s idle between %s and %s\n",
			util.FormatDuration(g.Duration), util.ShortID(g.After.ID), util.ShortID(g.Before.ID))
	}
	return nil
}
