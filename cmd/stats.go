package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lotmap/internal/ingest"
	"github.com/sells-group/lotmap/internal/merge"
	"github.com/sells-group/lotmap/internal/model"
	"github.com/sells-group/lotmap/internal/stats"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Summarize lots from a resolved JSON output or a raw register export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lots, err := loadLots(args[0])
		if err != nil {
			return err
		}
		summary := stats.Compute(lots)

		if statsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(summary)
		}
		printStats(cmd.OutOrStdout(), summary)
		return nil
	},
}

// loadLots reads resolved lots from a .json file, or builds unresolved lots
// from a raw export.
func loadLots(path string) ([]model.LotRecord, error) {
	if strings.ToLower(filepath.Ext(path)) != ".json" {
		rows, err := ingest.ReadFile(path, ingestOptions())
		if err != nil {
			return nil, err
		}
		return merge.FromRows(rows), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	var lots []model.LotRecord
	if err := json.Unmarshal(data, &lots); err != nil {
		return nil, eris.Wrapf(err, "parse %s", path)
	}
	return lots, nil
}

func printStats(w io.Writer, s stats.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Lots\t%d\n", s.Total)
	fmt.Fprintf(tw, "Located\t%d\n", s.Located)
	for _, p := range model.Precisions {
		fmt.Fprintf(tw, "  %s\t%d\n", p, s.ByPrecision[p])
	}
	printNumeric(tw, "Start price", s.Price)
	printNumeric(tw, "Area, m²", s.Area)
	_ = tw.Flush()

	printBreakdown(w, "By status", s.ByStatus)
	printBreakdown(w, "By region", s.ByRegion)
	printBreakdown(w, "By ownership", s.ByOwnership)
}

func printNumeric(w io.Writer, label string, n stats.Numeric) {
	if n.Count == 0 {
		fmt.Fprintf(w, "%s\t-\n", label)
		return
	}
	fmt.Fprintf(w, "%s\tmin %.2f  max %.2f  mean %.2f  total %.2f  (n=%d)\n",
		label, n.Min, n.Max, n.Mean, n.Total, n.Count)
}

func printBreakdown(w io.Writer, title string, m map[string]int) {
	fmt.Fprintf(w, "\n%s\n", title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range stats.Ranked(m) {
		fmt.Fprintf(tw, "  %s\t%d\n", c.Label, c.N)
	}
	_ = tw.Flush()
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(statsCmd)
}
