package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tindralencia/barrio-match/internal/db"
	"github.com/tindralencia/barrio-match/internal/demand"
)

var demandJSON bool

var demandCmd = &cobra.Command{
	Use:   "demand",
	Short: "Inspect recorded demand",
}

var demandStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show match counts per neighborhood and intent",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("demand"); err != nil {
			return err
		}

		var pool *pgxpool.Pool
		if cfg.Recorder.Driver == "postgres" {
			p, err := db.NewPool(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
			if err != nil {
				return eris.Wrap(err, "connect store")
			}
			defer p.Close()
			pool = p
		}

		rec, err := initRecorder(ctx, cfg.Recorder, pool)
		if err != nil {
			return err
		}
		defer func() { _ = rec.Close() }()

		rows, err := rec.Summary(ctx)
		if err != nil {
			return eris.Wrap(err, "demand status")
		}

		if demandJSON {
			if rows == nil {
				rows = []demand.SummaryRow{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		if len(rows) == 0 {
			zap.L().Info("no demand recorded yet")
			return nil
		}
		formatSummary(os.Stdout, rows)
		return nil
	},
}

func init() {
	demandStatusCmd.Flags().BoolVar(&demandJSON, "json", false, "print JSON instead of a table")
	demandCmd.AddCommand(demandStatusCmd)
	rootCmd.AddCommand(demandCmd)
}

// formatSummary writes a tabular representation of demand rows to out.
func formatSummary(out io.Writer, rows []demand.SummaryRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NEIGHBORHOOD\tINTENT\tREQUESTS\tLAST SEEN")
	_, _ = fmt.Fprintln(w, "------------\t------\t--------\t---------")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			r.Neighborhood,
			r.Intent,
			r.Requests,
			r.LastSeen.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}
