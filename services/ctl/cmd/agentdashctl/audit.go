package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"agentdash/services/audit"
)

const auditHeader = "TIME\tACTION\tRESOURCE\tSTATUS\tIP\tREQUEST ID"

func newAuditCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the dashboard audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var (
		dsn    string
		filter audit.Filter
	)

	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded operator actions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return errors.New("--dsn or AUDIT_DSN is required")
			}
			store, err := audit.Open(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), g.output, entries, auditHeader, func(w io.Writer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", formatTime(e.CreatedAt), e.Action, e.Resource, e.Status, e.IP, e.RequestID)
				}
			})
		},
	}

	list.Flags().StringVar(&dsn, "dsn", os.Getenv("AUDIT_DSN"), "Audit database (postgres URL or sqlite:<path>)")
	list.Flags().StringVar(&filter.Action, "action", "", "Only entries for this action, e.g. agent.delete")
	list.Flags().IntVar(&filter.Limit, "limit", audit.DefaultLimit, "Maximum number of entries")

	cmd.AddCommand(list)
	return cmd
}
