package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	taskDescription string
	taskProject     string

	taskCmd = &cobra.Command{
		Use:   "task",
		Short: "Manage tasks within a project",
	}

	taskAddCmd = &cobra.Command{
		Use:   "add <project> <name>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(2),
		RunE:  runTaskAdd,
	}

	taskListCmd = &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally for one project",
		Args:  cobra.NoArgs,
		RunE:  runTaskList,
	}

	taskRemoveCmd = &cobra.Command{
		Use:   "remove <project> <name>",
		Short: "Remove a task no frame references",
		Args:  cobra.ExactArgs(2),
		RunE:  runTaskRemove,
	}
)

func init() {
	taskAddCmd.Flags().StringVarP(&taskDescription, "description", "d", "",
		"Task description")
	taskListCmd.Flags().StringVarP(&taskProject, "project", "p", "",
		"Restrict to one project")

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskRemoveCmd)
	rootCmd.AddCommand(taskCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	t, err := s.CreateTask(args[0], args[1], taskDescription)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created task %q in project %q\n", t.Name, t.Project)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	tasks := s.Tasks(taskProject)
	if len(tasks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no tasks yet")
		return nil
	}
	for _, t := range tasks {
		line := fmt.Sprintf("%s/%s", t.Project, t.Name)
		if t.Description != "" {
			line += "  " + t.Description
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

func runTaskRemove(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	if err := s.DeleteTask(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed task %q from project %q\n", args[1], args[0])
	return nil
}
