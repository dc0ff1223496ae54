package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lotmap/internal/batch"
	"github.com/sells-group/lotmap/internal/export"
	"github.com/sells-group/lotmap/internal/ingest"
	"github.com/sells-group/lotmap/internal/merge"
	"github.com/sells-group/lotmap/internal/model"
	"github.com/sells-group/lotmap/internal/store"
)

var (
	resolveLimit   int
	resolveWorkers int
	resolveOut     []string
	resolveStore   bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <file>",
	Short: "Resolve every lot in a register export to map coordinates",
	Long: `Reads an XLSX or CSV register export, keeps rows with a cadastral number,
and resolves each lot through the cadastral registry, the geocoder, and the
regional centroid table, in that order.

Outputs are chosen by extension: .json, .geojson, .xlsx, .shp. Without --out
the resolved lots are printed to stdout as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		for _, out := range resolveOut {
			if _, err := export.FormatFor(out); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("workers") {
			cfg.Batch.Workers = resolveWorkers
		}
		limit := cfg.Batch.Limit
		if cmd.Flags().Changed("limit") {
			limit = resolveLimit
		}

		env, err := initPipeline(ctx, "resolve", resolveStore)
		if err != nil {
			return err
		}
		defer env.Close()

		path := args[0]
		rows, err := ingest.ReadFile(path, ingestOptions())
		if err != nil {
			return err
		}
		lots := merge.FromRows(rows)
		if len(lots) == 0 {
			return eris.Errorf("no lots with cadastral numbers in %s", path)
		}

		run := store.NewRun(path)
		res, runErr := env.Driver.ResolveAll(ctx, lots, limit)
		run.FinishedAt = time.Now().UTC()
		run.Total, run.Resolved, run.Failed = len(res.Lots), res.Resolved, res.Failed

		// Partial results are still written when the run was interrupted.
		if len(resolveOut) == 0 {
			if err := export.WriteJSON(cmd.OutOrStdout(), res.Lots); err != nil {
				return err
			}
		} else {
			for _, out := range resolveOut {
				if err := export.WriteFile(out, res.Lots); err != nil {
					return err
				}
			}
			printResolveSummary(cmd.OutOrStdout(), run, res)
		}

		if env.Store != nil {
			if err := env.Store.SaveRun(ctx, run, res.Lots); err != nil {
				return eris.Wrap(err, "save run")
			}
			zap.L().Info("run saved", zap.String("run_id", run.ID))
		}

		return runErr
	},
}

func printResolveSummary(w io.Writer, run store.Run, res batch.Result) {
	fmt.Fprintf(w, "Run %s: %d lots in %s\n", run.ID, len(res.Lots), res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  resolved:  %d\n", res.Resolved)
	fmt.Fprintf(w, "  failed:    %d\n", res.Failed)
	for _, p := range model.Precisions {
		fmt.Fprintf(w, "  %-22s %d\n", p+":", res.ByPrecision[p])
	}
	fmt.Fprintf(w, "  address cache: %d hits, %d misses\n", res.CacheHits, res.CacheMisses)
	for _, out := range resolveOut {
		fmt.Fprintf(w, "  wrote %s\n", out)
	}
}

func init() {
	resolveCmd.Flags().IntVar(&resolveLimit, "limit", 0, "resolve only the first N lots (0 = all)")
	resolveCmd.Flags().IntVar(&resolveWorkers, "workers", 1, "lots resolved concurrently")
	resolveCmd.Flags().StringArrayVar(&resolveOut, "out", nil, "output file; repeat for several formats")
	resolveCmd.Flags().BoolVar(&resolveStore, "store", false, "save the run to the configured store")
	rootCmd.AddCommand(resolveCmd)
}
