package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"agentdash/pkg/platform"
)

const agentHeader = "ID\tAGENT ID\tHOSTNAME\tIP\tOS\tSTATUS\tLAST HEARTBEAT"

func newAgentsCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List, inspect and delete agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			agents, err := client.ListAgents(cmd.Context())
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), g.output, agents, agentHeader, func(w io.Writer) {
				for _, a := range agents {
					printAgent(w, a)
				}
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get ID",
		Short: "Show one agent",
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
			agent, err := client.GetAgent(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), g.output, agent, agentHeader, func(w io.Writer) {
				printAgent(w, agent)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete an agent",
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
			if err := client.DeleteAgent(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted agent %d\n", id)
			return nil
		},
	})

	return cmd
}

func printAgent(w io.Writer, a platform.Agent) {
	status := "Offline"
	if a.Online() {
		status = "Online"
	}
	fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", a.ID, a.AgentID, a.Hostname, a.IP, a.OS, status, formatTime(a.LastHeartbeat))
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}
