// Package stats summarizes a set of lots for reporting.
package stats

import (
	"math"
	"sort"

	"github.com/sells-group/lotmap/internal/model"
)

// Unknown labels lots with an empty grouping field.
const Unknown = "—"

// Summary holds the counts and numeric summaries over a lot set.
type Summary struct {
	Total       int                     `json:"total"`
	Located     int                     `json:"located"`
	ByStatus    map[string]int          `json:"by_status"`
	ByRegion    map[string]int          `json:"by_region"`
	ByOwnership map[string]int          `json:"by_ownership"`
	ByPrecision map[model.Precision]int `json:"by_precision"`
	Price       Numeric                 `json:"price"`
	Area        Numeric                 `json:"area"`
}

// Numeric summarizes the present values of one field.
type Numeric struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Total float64 `json:"total"`
}

func (n *Numeric) add(v *float64) {
	if v == nil {
		return
	}
	if n.Count == 0 {
		n.Min, n.Max = *v, *v
	} else {
		n.Min = math.Min(n.Min, *v)
		n.Max = math.Max(n.Max, *v)
	}
	n.Count++
	n.Total += *v
	n.Mean = n.Total / float64(n.Count)
}

// Compute builds the Summary for lots. Price is the starting price.
func Compute(lots []model.LotRecord) Summary {
	s := Summary{
		Total:       len(lots),
		ByStatus:    make(map[string]int),
		ByRegion:    make(map[string]int),
		ByOwnership: make(map[string]int),
		ByPrecision: make(map[model.Precision]int),
	}
	for _, lot := range lots {
		s.ByStatus[label(lot.Status)]++
		s.ByRegion[label(lot.SubjectRF)]++
		s.ByOwnership[label(lot.OwnershipForm)]++
		if lot.Resolved() {
			s.Located++
			s.ByPrecision[lot.Location.Precision]++
		}
		s.Price.add(lot.PriceStart)
		s.Area.add(lot.Area)
	}
	return s
}

func label(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

// Count is one row of a ranked breakdown.
type Count struct {
	Label string
	N     int
}

// Ranked orders a breakdown by count descending, then label.
func Ranked(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Label: k, N: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		return out[i].Label < out[j].Label
	})
	return out
}
