package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lotmap/internal/extract"
	"github.com/sells-group/lotmap/internal/ingest"
	"github.com/sells-group/lotmap/internal/merge"
)

type extractLine struct {
	Row              int      `json:"row"`
	CadastralNumbers []string `json:"cadastral_numbers"`
	Area             *float64 `json:"area"`
	UsageClass       string   `json:"usage_class"`
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the features extracted from each row's characteristics text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("extract"); err != nil {
			return err
		}
		rows, err := ingest.ReadFile(args[0], ingestOptions())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		for i, row := range rows {
			f := extract.Extract(row.Get(merge.ColumnCharacteristics))
			line := extractLine{
				Row:              i,
				CadastralNumbers: f.CadastralNumbers,
				Area:             f.Area,
				UsageClass:       f.UsageClass,
			}
			if err := enc.Encode(line); err != nil {
				return eris.Wrap(err, "encode row")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
