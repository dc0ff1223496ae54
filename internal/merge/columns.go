package merge

// Source column labels of the lot register export. The second organization
// and INN pair repeat the first labels, and ingest suffixes them with ".1".
const (
	ColumnCharacteristics = "Характеристики имущества"
	ColumnAddress         = "Местонахождение имущества"
	ColumnDescription     = "Описание лота"
	ColumnPriceStart      = "Начальная цена"
	ColumnPriceFinal      = "Итоговая цена"
	ColumnDeposit         = "Размер задатка"
	ColumnAuctionStep     = "Шаг аукциона"
	ColumnStatus          = "Статус лота"
	ColumnLotNumber       = "Номер лота"
	ColumnNoticeNumber    = "Номер извещения"
	ColumnAuctionType     = "Вид торгов"
	ColumnOwnershipForm   = "Форма собственности"
	ColumnSubjectRF       = "Субъект РФ"
	ColumnOrganizer       = "Наименование организации"
	ColumnOrganizerINN    = "ИНН"
	ColumnHolder          = "Наименование организации.1"
	ColumnHolderINN       = "ИНН.1"
	ColumnLotURL          = "Ссылка на лот в ОЧ Реестра лотов"
)
