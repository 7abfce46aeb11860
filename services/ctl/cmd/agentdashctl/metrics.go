package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"agentdash/pkg/platform"
	gos3 "agentdash/pkg/s3"
	"agentdash/services/exporter"
)

const metricHeader = "TIME\tAGENT ID\tNAME\tVALUE\tLABELS"

type queryFlags struct {
	agentID string
	name    string
	start   string
	end     string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.agentID, "agent-id", "", "Only metrics reported by this agent")
	cmd.Flags().StringVar(&f.name, "name", "", "Only metrics with this name")
	cmd.Flags().StringVar(&f.start, "start", "", "Earliest timestamp (RFC 3339)")
	cmd.Flags().StringVar(&f.end, "end", "", "Latest timestamp (RFC 3339)")
}

func (f *queryFlags) query() (platform.MetricQuery, error) {
	q := platform.MetricQuery{AgentID: f.agentID, Name: f.name}
	var err error
	if f.start != "" {
		if q.Start, err = time.Parse(time.RFC3339, f.start); err != nil {
			return q, fmt.Errorf("--start: %w", err)
		}
	}
	if f.end != "" {
		if q.End, err = time.Parse(time.RFC3339, f.end); err != nil {
			return q, fmt.Errorf("--end: %w", err)
		}
	}
	return q, nil
}

func newMetricsCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Query and export agent metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newMetricsQueryCommand(g))
	cmd.AddCommand(newMetricsExportCommand(g))
	return cmd
}

func newMetricsQueryCommand(g *globals) *cobra.Command {
	var qf queryFlags

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.query()
			if err != nil {
				return err
			}
			client, err := g.client()
			if err != nil {
				return err
			}
			metrics, err := client.QueryMetrics(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), g.output, metrics, metricHeader, func(w io.Writer) {
				for _, m := range metrics {
					fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%s\n", formatTime(m.Timestamp), m.AgentID, m.Name, m.Value, m.Labels)
				}
			})
		},
	}

	qf.register(cmd)
	return cmd
}

func newMetricsExportCommand(g *globals) *cobra.Command {
	var (
		qf         queryFlags
		output     string
		bucket     string
		key        string
		recipients []string
		presignTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export metrics to a zstd archive on disk or in S3",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.query()
			if err != nil {
				return err
			}
			client, err := g.client()
			if err != nil {
				return err
			}

			cfg := exporter.Config{
				Source:     client,
				Query:      q,
				Recipients: recipients,
				Output:     output,
				Bucket:     bucket,
				Key:        key,
				PresignTTL: presignTTL,
				Stdout:     cmd.ErrOrStderr(),
			}
			if bucket != "" {
				s3Client, err := gos3.NewClientFromEnv(cmd.Context())
				if err != nil {
					return fmt.Errorf("s3 client: %w", err)
				}
				cfg.Uploader = s3Client
			}

			res, err := exporter.Export(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if g.output != formatTable {
				return printOut(cmd.OutOrStdout(), g.output, res.Manifest, "", nil)
			}
			if res.URL != "" {
				fmt.Fprintln(cmd.OutOrStdout(), res.URL)
			}
			return nil
		},
	}

	qf.register(cmd)
	cmd.Flags().StringVar(&output, "file", "", "Write the archive to this path")
	cmd.Flags().StringVar(&bucket, "bucket", "", "Upload the archive to this S3 bucket (S3_* environment)")
	cmd.Flags().StringVar(&key, "key", "", "Object key; generated when empty")
	cmd.Flags().StringSliceVar(&recipients, "recipient", nil, "age X25519 recipient to encrypt for (repeatable)")
	cmd.Flags().DurationVar(&presignTTL, "presign-ttl", time.Hour, "Lifetime of the download link")
	cmd.MarkFlagsOneRequired("file", "bucket")
	return cmd
}
