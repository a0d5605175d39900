package converters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/RulesFoundation/atlas/models"
	"github.com/RulesFoundation/atlas/pkg/fetcher"
	"github.com/RulesFoundation/atlas/pkg/hier"
)

// New York consolidated laws via the NY Senate Open Legislation API.
// Citations use "LAWID/locationId", e.g. "TAX/606" for Tax Law section
// 606. The API needs a free key, read from NY_LEGISLATION_API_KEY.
const nyBaseURL = "https://legislation.nysenate.gov/api/3"

const nyAPIKeyEnv = "NY_LEGISLATION_API_KEY"

var nyScheme = hier.Scheme{Levels: []hier.Kind{hier.ParenLower, hier.ParenDigit, hier.ParenRomanLower}}

var nyLawNames = map[string]string{
	"TAX": "Tax Law",
	"SOS": "Social Services Law",
	"LAB": "Labor Law",
	"EDN": "Education Law",
	"PBH": "Public Health Law",
	"RPT": "Real Property Tax Law",
	"WKC": "Workers' Compensation Law",
}

func init() {
	Register("us-ny", "json", func(f *fetcher.Fetcher) Converter {
		return &NewYork{fetcher: f, apiKey: os.Getenv(nyAPIKeyEnv)}
	})
}

type NewYork struct {
	fetcher *fetcher.Fetcher
	baseURL string
	apiKey  string
}

func (c *NewYork) Jurisdiction() string { return "us-ny" }
func (c *NewYork) Format() string       { return "json" }

func (c *NewYork) base() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return nyBaseURL
}

// API response envelopes. The law document endpoint wraps the section in
// "result"; law trees nest under "result.documents".
type nyEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type nyDocument struct {
	LawID      string       `json:"lawId"`
	LocationID string       `json:"locationId"`
	Title      string       `json:"title"`
	Text       string       `json:"text"`
	DocType    string       `json:"docType"`
	DocLevelID string       `json:"docLevelId"`
	ActiveDate string       `json:"activeDate"`
	Documents  *nyChildList `json:"documents"`
}

type nyChildList struct {
	Items []nyDocument `json:"items"`
}

type nyLawTree struct {
	Info struct {
		LawID string `json:"lawId"`
		Name  string `json:"name"`
	} `json:"info"`
	Documents nyDocument `json:"documents"`
}

func (c *NewYork) get(ctx context.Context, endpoint string, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("missing %s; get a free key at legislation.nysenate.gov", nyAPIKeyEnv)
	}
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	url := c.base() + endpoint + sep + "key=" + c.apiKey

	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return err
	}

	var env nyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode API response: %w", err)
	}
	if !env.Success {
		if strings.Contains(strings.ToLower(env.Message), "not found") {
			return ErrSectionNotFound
		}
		return fmt.Errorf("API error: %s", env.Message)
	}
	return json.Unmarshal(env.Result, out)
}

func splitNewYorkCitation(citation string) (lawID, locationID string, err error) {
	lawID, locationID, ok := strings.Cut(citation, "/")
	if !ok {
		return "", "", fmt.Errorf("New York citation %q needs the form LAWID/section, e.g. TAX/606", citation)
	}
	return strings.ToUpper(lawID), locationID, nil
}

func (c *NewYork) Section(ctx context.Context, citation string) (*models.Section, error) {
	lawID, locationID, err := splitNewYorkCitation(citation)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-ny", Citation: citation, Err: err}
	}

	var doc nyDocument
	endpoint := fmt.Sprintf("/laws/%s/%s/", lawID, locationID)
	if err := c.get(ctx, endpoint, &doc); err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: "us-ny", Citation: citation, URL: c.base() + endpoint, Err: err}
	}

	return c.toSection(&doc, lawID), nil
}

func (c *NewYork) toSection(doc *nyDocument, lawID string) *models.Section {
	lawName := nyLawNames[lawID]
	if lawName == "" {
		lawName = lawID + " Law"
	}

	text := normalizeText(doc.Text)
	subsections, intro := hier.Parse(text, nyScheme)

	var titleNum int
	if fields := strings.FieldsFunc(doc.LocationID, func(r rune) bool {
		return r < '0' || r > '9'
	}); len(fields) > 0 {
		titleNum, _ = strconv.Atoi(fields[0])
	}

	return &models.Section{
		Citation:      models.Citation{Title: titleNum, Section: lawID + "/" + doc.LocationID},
		Jurisdiction:  "us-ny",
		TitleName:     "New York " + lawName,
		SectionTitle:  doc.Title,
		Text:          intro,
		Subsections:   subsections,
		EffectiveDate: doc.ActiveDate,
		SourceURL:     fmt.Sprintf("%s/laws/%s/%s/", c.base(), lawID, doc.LocationID),
		RetrievedAt:   time.Now().UTC(),
	}
}

// SectionNumbers walks the law's document tree and returns the location
// IDs of its SECTION leaves, prefixed with the law ID.
func (c *NewYork) SectionNumbers(ctx context.Context, unit string) ([]string, error) {
	lawID := strings.ToUpper(unit)

	var tree nyLawTree
	if err := c.get(ctx, "/laws/"+lawID, &tree); err != nil {
		return nil, &ConvertError{Jurisdiction: "us-ny", Citation: unit, Err: err}
	}

	var numbers []string
	var walk func(d *nyDocument)
	walk = func(d *nyDocument) {
		if d.DocType == "SECTION" {
			numbers = append(numbers, lawID+"/"+d.LocationID)
			return
		}
		if d.Documents == nil {
			return
		}
		for i := range d.Documents.Items {
			walk(&d.Documents.Items[i])
		}
	}
	walk(&tree.Documents)
	return numbers, nil
}
