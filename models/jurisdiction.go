package models

import "sort"

// JurisdictionKind classifies a jurisdiction.
type JurisdictionKind string

const (
	KindFederal  JurisdictionKind = "federal"
	KindState    JurisdictionKind = "state"
	KindNational JurisdictionKind = "national"
)

// Jurisdiction describes one statute source jurisdiction.
type Jurisdiction struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Kind     JurisdictionKind `json:"kind"`
	CodesURL string           `json:"codes_url,omitempty"`
}

// jurisdictions maps jurisdiction ID to metadata. US states use "us-XX";
// national systems use their country code.
var jurisdictions = map[string]Jurisdiction{
	"us":      {ID: "us", Name: "United States", Kind: KindFederal, CodesURL: "https://uscode.house.gov"},
	"us-ecfr": {ID: "us-ecfr", Name: "United States (CFR)", Kind: KindFederal, CodesURL: "https://www.ecfr.gov"},
	"us-irs":  {ID: "us-irs", Name: "United States (IRS guidance)", Kind: KindFederal, CodesURL: "https://www.irs.gov"},

	"us-ak": {ID: "us-ak", Name: "Alaska", Kind: KindState, CodesURL: "https://www.akleg.gov"},
	"us-al": {ID: "us-al", Name: "Alabama", Kind: KindState},
	"us-ar": {ID: "us-ar", Name: "Arkansas", Kind: KindState},
	"us-az": {ID: "us-az", Name: "Arizona", Kind: KindState},
	"us-ca": {ID: "us-ca", Name: "California", Kind: KindState, CodesURL: "https://leginfo.legislature.ca.gov"},
	"us-co": {ID: "us-co", Name: "Colorado", Kind: KindState},
	"us-ct": {ID: "us-ct", Name: "Connecticut", Kind: KindState},
	"us-de": {ID: "us-de", Name: "Delaware", Kind: KindState},
	"us-fl": {ID: "us-fl", Name: "Florida", Kind: KindState, CodesURL: "https://www.leg.state.fl.us"},
	"us-ga": {ID: "us-ga", Name: "Georgia", Kind: KindState},
	"us-hi": {ID: "us-hi", Name: "Hawaii", Kind: KindState},
	"us-ia": {ID: "us-ia", Name: "Iowa", Kind: KindState},
	"us-id": {ID: "us-id", Name: "Idaho", Kind: KindState},
	"us-il": {ID: "us-il", Name: "Illinois", Kind: KindState, CodesURL: "https://www.ilga.gov"},
	"us-in": {ID: "us-in", Name: "Indiana", Kind: KindState},
	"us-ks": {ID: "us-ks", Name: "Kansas", Kind: KindState},
	"us-ky": {ID: "us-ky", Name: "Kentucky", Kind: KindState},
	"us-la": {ID: "us-la", Name: "Louisiana", Kind: KindState},
	"us-ma": {ID: "us-ma", Name: "Massachusetts", Kind: KindState},
	"us-md": {ID: "us-md", Name: "Maryland", Kind: KindState},
	"us-me": {ID: "us-me", Name: "Maine", Kind: KindState},
	"us-mi": {ID: "us-mi", Name: "Michigan", Kind: KindState, CodesURL: "https://www.legislature.mi.gov"},
	"us-mn": {ID: "us-mn", Name: "Minnesota", Kind: KindState, CodesURL: "https://www.revisor.mn.gov"},
	"us-mo": {ID: "us-mo", Name: "Missouri", Kind: KindState},
	"us-ms": {ID: "us-ms", Name: "Mississippi", Kind: KindState},
	"us-mt": {ID: "us-mt", Name: "Montana", Kind: KindState},
	"us-nc": {ID: "us-nc", Name: "North Carolina", Kind: KindState, CodesURL: "https://www.ncleg.gov"},
	"us-nd": {ID: "us-nd", Name: "North Dakota", Kind: KindState},
	"us-ne": {ID: "us-ne", Name: "Nebraska", Kind: KindState},
	"us-nh": {ID: "us-nh", Name: "New Hampshire", Kind: KindState},
	"us-nj": {ID: "us-nj", Name: "New Jersey", Kind: KindState},
	"us-nm": {ID: "us-nm", Name: "New Mexico", Kind: KindState},
	"us-nv": {ID: "us-nv", Name: "Nevada", Kind: KindState},
	"us-ny": {ID: "us-ny", Name: "New York", Kind: KindState, CodesURL: "https://legislation.nysenate.gov"},
	"us-oh": {ID: "us-oh", Name: "Ohio", Kind: KindState, CodesURL: "https://codes.ohio.gov"},
	"us-ok": {ID: "us-ok", Name: "Oklahoma", Kind: KindState},
	"us-or": {ID: "us-or", Name: "Oregon", Kind: KindState},
	"us-pa": {ID: "us-pa", Name: "Pennsylvania", Kind: KindState, CodesURL: "https://www.palegis.us"},
	"us-ri": {ID: "us-ri", Name: "Rhode Island", Kind: KindState},
	"us-sc": {ID: "us-sc", Name: "South Carolina", Kind: KindState},
	"us-sd": {ID: "us-sd", Name: "South Dakota", Kind: KindState},
	"us-tn": {ID: "us-tn", Name: "Tennessee", Kind: KindState},
	"us-tx": {ID: "us-tx", Name: "Texas", Kind: KindState, CodesURL: "https://statutes.capitol.texas.gov"},
	"us-ut": {ID: "us-ut", Name: "Utah", Kind: KindState},
	"us-va": {ID: "us-va", Name: "Virginia", Kind: KindState},
	"us-vt": {ID: "us-vt", Name: "Vermont", Kind: KindState},
	"us-wa": {ID: "us-wa", Name: "Washington", Kind: KindState},
	"us-wi": {ID: "us-wi", Name: "Wisconsin", Kind: KindState},
	"us-wv": {ID: "us-wv", Name: "West Virginia", Kind: KindState},
	"us-wy": {ID: "us-wy", Name: "Wyoming", Kind: KindState},

	"uk": {ID: "uk", Name: "United Kingdom", Kind: KindNational, CodesURL: "https://www.legislation.gov.uk"},
	"ca": {ID: "ca", Name: "Canada", Kind: KindNational, CodesURL: "https://laws-lois.justice.gc.ca"},
	"nz": {ID: "nz", Name: "New Zealand", Kind: KindNational, CodesURL: "https://www.legislation.govt.nz"},
}

// LookupJurisdiction returns the jurisdiction for an ID.
func LookupJurisdiction(id string) (Jurisdiction, bool) {
	j, ok := jurisdictions[id]
	return j, ok
}

// Jurisdictions returns all known jurisdictions sorted by ID.
func Jurisdictions() []Jurisdiction {
	out := make([]Jurisdiction, 0, len(jurisdictions))
	for _, j := range jurisdictions {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
