package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lotmap/internal/model"
)

// WriteJSON writes lots as an indented JSON array. Unresolved lots carry a
// null location.
func WriteJSON(w io.Writer, lots []model.LotRecord) error {
	if lots == nil {
		lots = []model.LotRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(lots); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}
