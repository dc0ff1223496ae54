// Package model defines the lot and location types shared across the pipeline.
package model

// DescriptionLimit caps the stored lot description, in runes.
const DescriptionLimit = 500

// LotRecord is one auction lot with its extracted identifiers and, after
// resolution, its location.
type LotRecord struct {
	ID              int      `json:"id"`
	CadastralNumber string   `json:"cadastral_number"`
	Area            *float64 `json:"area"`
	UsageClass      string   `json:"usage_class,omitempty"`
	Address         string   `json:"address,omitempty"`
	Description     string   `json:"description,omitempty"`

	PriceStart  *float64 `json:"price_start"`
	PriceFinal  *float64 `json:"price_final"`
	Deposit     *float64 `json:"deposit"`
	AuctionStep *float64 `json:"auction_step"`

	Status        string `json:"status,omitempty"`
	LotNumber     string `json:"lot_number,omitempty"`
	NoticeNumber  string `json:"notice_number,omitempty"`
	AuctionType   string `json:"auction_type,omitempty"`
	OwnershipForm string `json:"ownership_form,omitempty"`
	SubjectRF     string `json:"subject_rf,omitempty"`
	Organizer     string `json:"organizer,omitempty"`
	OrganizerINN  string `json:"organizer_inn,omitempty"`
	Holder        string `json:"holder,omitempty"`
	HolderINN     string `json:"holder_inn,omitempty"`
	LotURL        string `json:"lot_url,omitempty"`

	Location *ResolvedLocation `json:"location"`
}

// Resolved reports whether a location has been attached.
func (l LotRecord) Resolved() bool {
	return l.Location != nil
}

// RegionCode returns the region segment of a cadastral number, or "" if the
// number has no colon-delimited structure.
func RegionCode(cadastral string) string {
	for i := 0; i < len(cadastral); i++ {
		if cadastral[i] == ':' {
			return cadastral[:i]
		}
	}
	return ""
}
