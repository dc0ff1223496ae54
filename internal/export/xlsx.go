package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lotmap/internal/model"
)

// SheetName is the worksheet WriteXLSX creates.
const SheetName = "Лоты"

var xlsxHeader = []string{
	"Кадастровый номер",
	"Номер лота",
	"Номер извещения",
	"Статус лота",
	"Субъект РФ",
	"Местонахождение имущества",
	"Площадь",
	"Вид разрешённого использования",
	"Начальная цена",
	"Итоговая цена",
	"Широта",
	"Долгота",
	"Точность",
	"Ссылка на лот",
}

// WriteXLSX writes one row per lot below a header row. Coordinates and
// precision are blank for unresolved lots.
func WriteXLSX(path string, lots []model.LotRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().SetString(h)
	}

	for _, lot := range lots {
		row := sheet.AddRow()
		addString(row, lot.CadastralNumber)
		addString(row, lot.LotNumber)
		addString(row, lot.NoticeNumber)
		addString(row, lot.Status)
		addString(row, lot.SubjectRF)
		addString(row, lot.Address)
		addFloat(row, lot.Area)
		addString(row, lot.UsageClass)
		addFloat(row, lot.PriceStart)
		addFloat(row, lot.PriceFinal)
		if loc := lot.Location; loc != nil {
			addFloat(row, &loc.Lat)
			addFloat(row, &loc.Lng)
			addString(row, string(loc.Precision))
		} else {
			addString(row, "")
			addString(row, "")
			addString(row, "")
		}
		addString(row, lot.LotURL)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addString(row *xlsx.Row, s string) {
	row.AddCell().SetString(s)
}

func addFloat(row *xlsx.Row, v *float64) {
	cell := row.AddCell()
	if v == nil {
		cell.SetString("")
		return
	}
	cell.SetFloat(*v)
}
