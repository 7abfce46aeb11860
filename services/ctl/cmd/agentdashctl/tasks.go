package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"agentdash/pkg/platform"
)

const taskHeader = "ID\tAGENT ID\tTYPE\tSTATUS\tCREATED\tUPDATED"

func newTasksCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Create and inspect remote tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newTasksCreateCommand(g))
	cmd.AddCommand(newTasksListCommand(g))

	cmd.AddCommand(&cobra.Command{
		Use:   "get ID",
		Short: "Show one task including its script and result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			client, err := g.client()
			if err != nil {
				return err
			}
			task, err := client.GetTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), g.output, task, taskHeader, func(w io.Writer) {
				printTask(w, task)
				fmt.Fprintf(w, "\nSCRIPT\n%s\n\nRESULT\n%s\n", task.Script, task.Result)
			})
		},
	})

	return cmd
}

func newTasksCreateCommand(g *globals) *cobra.Command {
	var (
		params     platform.CreateTaskParams
		scriptFile string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task for an agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if scriptFile != "" {
				data, err := os.ReadFile(scriptFile)
				if err != nil {
					return fmt.Errorf("read script: %w", err)
				}
				params.Script = string(data)
			}
			if params.Script == "" {
				return errors.New("--script or --script-file is required")
			}
			client, err := g.client()
			if err != nil {
				return err
			}
			task, err := client.CreateTask(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), g.output, task, taskHeader, func(w io.Writer) {
				printTask(w, task)
			})
		},
	}

	cmd.Flags().StringVar(&params.AgentID, "agent-id", "", "Agent that runs the task")
	cmd.Flags().StringVar(&params.Type, "type", "shell", "Task type (shell or python)")
	cmd.Flags().StringVar(&params.Script, "script", "", "Script body")
	cmd.Flags().StringVar(&scriptFile, "script-file", "", "Read the script body from a file")
	cmd.Flags().IntVar(&params.Timeout, "timeout-seconds", 0, "Execution timeout in seconds; 0 leaves it to the platform")
	_ = cmd.MarkFlagRequired("agent-id")
	cmd.MarkFlagsMutuallyExclusive("script", "script-file")
	return cmd
}

func newTasksListCommand(g *globals) *cobra.Command {
	var agentID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally for one agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			tasks, err := client.ListTasks(cmd.Context(), agentID)
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), g.output, tasks, taskHeader, func(w io.Writer) {
				for _, t := range tasks {
					printTask(w, t)
				}
			})
		},
	}

	cmd.Flags().StringVar(&agentID, "agent-id", "", "Only list tasks for this agent")
	return cmd
}

func printTask(w io.Writer, t platform.Task) {
	fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.AgentID, t.Type, t.Status, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
}
