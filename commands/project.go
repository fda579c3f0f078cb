package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvisser/tempo/internal/util"
)

var (
	projectDescription string
	projectDefaultTags []string

	projectCmd = &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	projectAddCmd = &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectAdd,
	}

	projectListCmd = &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE:  runProjectList,
	}

	projectRemoveCmd = &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a project without tasks or frames",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectRemove,
	}
)

func init() {
	projectAddCmd.Flags().StringVarP(&projectDescription, "description", "d", "",
		"Project description")
	projectAddCmd.Flags().StringSliceVarP(&projectDefaultTags, "tag", "t", nil,
		"Default tag applied to every new frame (repeatable)")

	projectCmd.AddCommand(projectAddCmd, projectListCmd, projectRemoveCmd)
	rootCmd.AddCommand(projectCmd)
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	p, err := s.CreateProject(args[0], projectDescription, projectDefaultTags)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created project %q\n", p.Name)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	projects := s.Projects()
	if len(projects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no projects yet")
		return nil
	}

	now := util.GetTimeProvider().Now()
	for _, p := range projects {
		var total time.Duration
		count := 0
		for f := range s.Frames(nil) {
			if f.Project == p.Name {
				total += f.Duration(now)
				count++
			}
		}
		line := fmt.Sprintf("%-20s %8s  %d frames", p.Name,
			util.FormatDuration(total), count)
		if len(p.DefaultTags) > 0 {
			line += "  [" + strings.Join(p.DefaultTags, ", ") + "]"
		}
		if p.Description != "" {
			line += "  " + p.Description
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

func runProjectRemove(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	if err := s.DeleteProject(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed project %q\n", args[0])
	return nil
}
