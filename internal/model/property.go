package model

import "time"

// Target identifies one property to process, as supplied by the CLI.
type Target struct {
	AddressNumber string `json:"address_number" yaml:"address_number"`
	StreetName    string `json:"street_name" yaml:"street_name"`
}

// Address returns the target formatted for search forms and logs.
func (t Target) Address() string {
	return t.AddressNumber + " " + t.StreetName
}

// LegalDescription is the structured decomposition of a free-text legal
// description. All fields are optional; an empty string means the source
// text did not yield that field.
type LegalDescription struct {
	Subdivision string `json:"subdivision,omitempty"`
	Block       string `json:"block,omitempty"`
	CityBlock   string `json:"city_block,omitempty"`
	Lot1        string `json:"lot1,omitempty"`
	Lot2        string `json:"lot2,omitempty"`
}

// HasLotBlock reports whether the description carries enough structure to
// drive a records search. Lot plus block is the effective unique key;
// subdivision alone is not reliable.
func (l LegalDescription) HasLotBlock() bool {
	return l.Lot1 != "" && l.Block != ""
}

// Property is one assessed parcel, keyed by account number. Reruns
// overwrite the row by upsert.
type Property struct {
	AccountNumber    string           `json:"account_number"`
	SiteAddress      string           `json:"site_address"`
	LandValue        int64            `json:"land_value"`
	ImprovementValue int64            `json:"improvement_value"`
	TotalMarketValue int64            `json:"total_market_value"`
	Legal            LegalDescription `json:"legal"`
}

// Owner is one resolved owner identity. ID is assigned by the persistence
// gateway and is stable across upserts keyed by RawName.
type Owner struct {
	ID             int64  `json:"id"`
	RawName        string `json:"raw_name"`
	Name           string `json:"name"` // normalized form
	MailingAddress string `json:"mailing_address,omitempty"`
}

// OwnershipInterval is a maximal run of consecutive years during which one
// owner held the property. Within one (property, owner) group intervals
// never overlap and cover every observed year exactly once.
type OwnershipInterval struct {
	AccountNumber string `json:"account_number"`
	OwnerID       int64  `json:"owner_id"`
	OwnerRawName  string `json:"owner_raw_name"`
	StartYear     int    `json:"start_year"`
	EndYear       int    `json:"end_year"`
	DeedReference string `json:"deed_reference,omitempty"`
}

// ExemptionInterval is the exemption-code analogue of OwnershipInterval.
type ExemptionInterval struct {
	AccountNumber string `json:"account_number"`
	Code          string `json:"code"`
	StartYear     int    `json:"start_year"`
	EndYear       int    `json:"end_year"`
}

// ValueSnapshot is one observed assessment year. Snapshots are never
// compacted; one row per observed year.
type ValueSnapshot struct {
	AccountNumber    string `json:"account_number"`
	Year             int    `json:"year"`
	TotalMarketValue int64  `json:"total_market_value"`
}

// DocumentRecord is one recorded document matched against the property.
// Exactly one record exists per matched listing entry, capture failure
// included; a failed capture carries the sentinel summary instead of
// generated text.
type DocumentRecord struct {
	AccountNumber    string `json:"account_number"`
	InstrumentNumber string `json:"instrument_number"`
	DocumentType     string `json:"document_type,omitempty"`
	Grantor          string `json:"grantor,omitempty"`
	Grantee          string `json:"grantee,omitempty"`
	FilingDate       string `json:"filing_date,omitempty"`
	Summary          string `json:"summary"`
	SourceURL        string `json:"source_url,omitempty"`
}

// ListingEntry is one raw row of a records search listing, before the
// lot/block match filter runs.
type ListingEntry struct {
	InstrumentNumber string `json:"instrument_number"`
	DocumentType     string `json:"document_type,omitempty"`
	Grantor          string `json:"grantor,omitempty"`
	Grantee          string `json:"grantee,omitempty"`
	FilingDate       string `json:"filing_date,omitempty"`
	LegalDescription string `json:"legal_description"`
	ViewerURL        string `json:"viewer_url,omitempty"`
}

// Assessment is the structured-extraction result for one assessment page.
// Extraction is best effort: any field may be zero and downstream stages
// must treat missing data as "skip dependent work", never as an error.
type Assessment struct {
	AccountNumber        string            `json:"account_number"`
	SiteAddress          string            `json:"site_address"`
	LandValue            int64             `json:"land_value"`
	ImprovementValue     int64             `json:"improvement_value"`
	TotalMarketValue     int64             `json:"total_market_value"`
	LegalDescriptionText string            `json:"legal_description_text"`
	OwnerName            string            `json:"owner_name"`
	OwnerMailingAddress  string            `json:"owner_mailing_address"`
	History              []YearObservation `json:"history"`
	FetchedAt            time.Time         `json:"fetched_at"`
	SourceURL            string            `json:"source_url"`
}

// Empty reports whether extraction produced nothing usable. An assessment
// without an account number cannot be persisted at all.
func (a *Assessment) Empty() bool {
	return a == nil || a.AccountNumber == ""
}

// YearObservation is one row of the assessment history table: who owned
// the property that year, what it was valued at, and which exemption
// codes applied. OwnerBlock is the raw combined name/address block; the
// first line is the owner name.
type YearObservation struct {
	Year             int      `json:"year"`
	OwnerBlock       string   `json:"owner_block"`
	TotalMarketValue int64    `json:"total_market_value"`
	ExemptionCodes   []string `json:"exemption_codes,omitempty"`
	DeedReference    string   `json:"deed_reference,omitempty"`
}
