// Package merge builds LotRecords from ingested rows and attaches resolved
// locations to them.
package merge

import (
	"go.uber.org/zap"

	"github.com/sells-group/lotmap/internal/extract"
	"github.com/sells-group/lotmap/internal/ingest"
	"github.com/sells-group/lotmap/internal/model"
)

// FromRow builds the record for the row at source index id. It reports false
// when the characteristics text has no cadastral number; such rows never
// enter a batch.
func FromRow(id int, row ingest.Row) (model.LotRecord, bool) {
	features := extract.Extract(row.Get(ColumnCharacteristics))
	cadastral := features.Cadastral()
	if cadastral == "" {
		return model.LotRecord{}, false
	}

	return model.LotRecord{
		ID:              id,
		CadastralNumber: cadastral,
		Area:            features.Area,
		UsageClass:      features.UsageClass,
		Address:         row.Get(ColumnAddress),
		Description:     truncateRunes(row.Get(ColumnDescription), model.DescriptionLimit),

		PriceStart:  money(row.Get(ColumnPriceStart)),
		PriceFinal:  money(row.Get(ColumnPriceFinal)),
		Deposit:     money(row.Get(ColumnDeposit)),
		AuctionStep: money(row.Get(ColumnAuctionStep)),

		Status:        row.Get(ColumnStatus),
		LotNumber:     row.Get(ColumnLotNumber),
		NoticeNumber:  row.Get(ColumnNoticeNumber),
		AuctionType:   row.Get(ColumnAuctionType),
		OwnershipForm: row.Get(ColumnOwnershipForm),
		SubjectRF:     row.Get(ColumnSubjectRF),
		Organizer:     row.Get(ColumnOrganizer),
		OrganizerINN:  row.Get(ColumnOrganizerINN),
		Holder:        row.Get(ColumnHolder),
		HolderINN:     row.Get(ColumnHolderINN),
		LotURL:        row.Get(ColumnLotURL),
	}, true
}

// FromRows builds records for every row with a cadastral number. IDs are
// source row positions, so they stay stable when rows are dropped.
func FromRows(rows []ingest.Row) []model.LotRecord {
	lots := make([]model.LotRecord, 0, len(rows))
	dropped := 0
	for i, row := range rows {
		rec, ok := FromRow(i, row)
		if !ok {
			dropped++
			continue
		}
		lots = append(lots, rec)
	}
	zap.L().Info("merge: built lot records",
		zap.Int("rows", len(rows)),
		zap.Int("lots", len(lots)),
		zap.Int("dropped_no_cadastral", dropped),
	)
	return lots
}

// Attach returns rec with loc as its location. A nil loc leaves the record
// unresolved.
func Attach(rec model.LotRecord, loc *model.ResolvedLocation) model.LotRecord {
	rec.Location = loc
	return rec
}

func money(s string) *float64 {
	v, ok := extract.ParseNumber(s)
	if !ok {
		return nil
	}
	return &v
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
