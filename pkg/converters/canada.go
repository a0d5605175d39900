package converters

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/RulesFoundation/atlas/models"
	"github.com/RulesFoundation/atlas/pkg/fetcher"
	"github.com/RulesFoundation/atlas/pkg/langtag"
)

// Canadian federal legislation from the justicecanada/laws-lois-xml
// repository: consolidated acts as XML, one file per act, published in
// English (eng/) and French (fra/). Citations pair the consolidated
// number with the section: "I-3.3:122.6" is Income Tax Act s. 122.6.
// An act file carries every section, so parsed acts are cached.
const caLawsBaseURL = "https://raw.githubusercontent.com/justicecanada/laws-lois-xml/main"

func init() {
	Register("ca", "laws-xml", func(f *fetcher.Fetcher) Converter {
		return &Canada{fetcher: f, acts: make(map[string]*caAct)}
	})
}

type Canada struct {
	fetcher *fetcher.Fetcher
	baseURL string

	mu   sync.Mutex
	acts map[string]*caAct
}

func (c *Canada) Jurisdiction() string { return "ca" }
func (c *Canada) Format() string       { return "laws-xml" }

func (c *Canada) base() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return caLawsBaseURL
}

// actURL builds the raw XML URL, e.g. {base}/eng/acts/I-3.3.xml. The
// lang segment is "eng" or "fra".
func (c *Canada) actURL(consNum, lang string) string {
	return fmt.Sprintf("%s/%s/acts/%s.xml", c.base(), lang, consNum)
}

func splitCanadaCitation(citation string) (consNum, section string, err error) {
	parts := strings.SplitN(strings.TrimSpace(citation), ":", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid Canada citation %q", citation)
	}
	if len(parts) == 2 {
		section = parts[1]
	}
	return parts[0], section, nil
}

// caText flattens one Text element, keeping the content of inline
// markup such as XRefExternal and DefinedTermEn.
type caText string

func (t *caText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(v)
		}
	}
	*t = caText(strings.Join(strings.Fields(b.String()), " "))
	return nil
}

// Provision levels nest Subsection > Paragraph > Subparagraph > Clause,
// each with a Label and Text. Continued* elements carry text that
// resumes after a nested list.
type caProvision struct {
	Label         string        `xml:"Label"`
	MarginalNote  caText        `xml:"MarginalNote"`
	Texts         []caText      `xml:"Text"`
	Subsections   []caProvision `xml:"Subsection"`
	Paragraphs    []caProvision `xml:"Paragraph"`
	Subparagraphs []caProvision `xml:"Subparagraph"`
	Clauses       []caProvision `xml:"Clause"`

	// Text resuming after a nested list.
	ContinuedSub  []caText `xml:"ContinuedSectionSubsection>Text"`
	ContinuedPara []caText `xml:"ContinuedParagraph>Text"`
}

type caSection struct {
	InForceDate  string   `xml:"inforce-start-date,attr"`
	LastAmended  string   `xml:"lastAmendedDate,attr"`
	Label        string   `xml:"Label"`
	MarginalNote caText   `xml:"MarginalNote"`
	Texts        []caText `xml:"Text"`
	Subsections  []caProvision `xml:"Subsection"`
	Paragraphs   []caProvision `xml:"Paragraph"`
	History      []caText      `xml:"HistoricalNote>HistoricalNoteSubItem"`
}

type caStatute struct {
	LastAmended        string `xml:"lastAmendedDate,attr"`
	ShortTitle         caText `xml:"Identification>ShortTitle"`
	LongTitle          caText `xml:"Identification>LongTitle"`
	ConsolidatedNumber caText `xml:"Identification>Chapter>ConsolidatedNumber"`
	Sections           []caSection `xml:"Body>Section"`
}

type caAct struct {
	consNum    string
	shortTitle string
	sections   map[string]*caSection
	numbers    []string
}

func (c *Canada) loadAct(ctx context.Context, consNum string) (*caAct, error) {
	c.mu.Lock()
	cached := c.acts[consNum]
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	body, err := c.fetcher.Get(ctx, c.actURL(consNum, "eng"))
	if err != nil {
		return nil, err
	}

	var statute caStatute
	if err := xml.Unmarshal(body, &statute); err != nil {
		return nil, fmt.Errorf("failed to parse act %s: %w", consNum, err)
	}

	act := &caAct{
		consNum:    consNum,
		shortTitle: string(statute.ShortTitle),
		sections:   make(map[string]*caSection, len(statute.Sections)),
	}
	if act.shortTitle == "" {
		act.shortTitle = string(statute.LongTitle)
	}
	for i := range statute.Sections {
		s := &statute.Sections[i]
		num := strings.TrimSpace(s.Label)
		if num == "" {
			continue
		}
		act.sections[num] = s
		act.numbers = append(act.numbers, num)
	}

	c.mu.Lock()
	c.acts[consNum] = act
	c.mu.Unlock()
	return act, nil
}

func caConvertProvisions(provs []caProvision) []models.Subsection {
	var out []models.Subsection
	for i := range provs {
		p := &provs[i]

		var texts []string
		for _, t := range p.Texts {
			if t != "" {
				texts = append(texts, string(t))
			}
		}
		for _, t := range append(append([]caText{}, p.ContinuedSub...), p.ContinuedPara...) {
			if t != "" {
				texts = append(texts, string(t))
			}
		}

		var children []models.Subsection
		children = append(children, caConvertProvisions(p.Subsections)...)
		children = append(children, caConvertProvisions(p.Paragraphs)...)
		children = append(children, caConvertProvisions(p.Subparagraphs)...)
		children = append(children, caConvertProvisions(p.Clauses)...)

		id := strings.Trim(strings.TrimSpace(p.Label), "()")
		if id == "" && len(texts) == 0 {
			continue
		}
		out = append(out, models.Subsection{
			Identifier: id,
			Heading:    string(p.MarginalNote),
			Text:       strings.Join(texts, " "),
			Children:   children,
		})
	}
	return out
}

func (c *Canada) toSection(act *caAct, src *caSection) *models.Section {
	var intro []string
	for _, t := range src.Texts {
		if t != "" {
			intro = append(intro, string(t))
		}
	}

	var subsections []models.Subsection
	subsections = append(subsections, caConvertProvisions(src.Subsections)...)
	subsections = append(subsections, caConvertProvisions(src.Paragraphs)...)

	var history []string
	for _, h := range src.History {
		note := string(h)
		if note != "" && !strings.HasPrefix(note, "[NOTE:") {
			history = append(history, note)
		}
	}

	text := strings.Join(intro, " ")
	num := strings.TrimSpace(src.Label)

	section := &models.Section{
		Citation:      models.Citation{Section: act.consNum + ":" + num},
		Jurisdiction:  "ca",
		TitleName:     act.shortTitle,
		SectionTitle:  string(src.MarginalNote),
		Text:          text,
		Subsections:   subsections,
		History:       strings.Join(history, "; "),
		Language:      langtag.Detect(text),
		EffectiveDate: src.InForceDate,
		SourceURL:     fmt.Sprintf("https://laws-lois.justice.gc.ca/eng/acts/%s/section-%s.html", act.consNum, num),
		RetrievedAt:   time.Now().UTC(),
	}
	return section
}

// Section resolves citations like "I-3.3:122.6".
func (c *Canada) Section(ctx context.Context, citation string) (*models.Section, error) {
	consNum, number, err := splitCanadaCitation(citation)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "ca", Citation: citation, Err: err}
	}
	if number == "" {
		return nil, &ConvertError{Jurisdiction: "ca", Citation: citation,
			Err: fmt.Errorf("citation %q names no section", citation)}
	}

	act, err := c.loadAct(ctx, consNum)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: "ca", Citation: citation,
			URL: c.actURL(consNum, "eng"), Err: err}
	}

	src := act.sections[number]
	if src == nil {
		return nil, &ConvertError{Jurisdiction: "ca", Citation: citation, Err: ErrSectionNotFound}
	}
	return c.toSection(act, src), nil
}

// SectionFrench fetches the French version of a section. French acts
// live under fra/ with the same consolidated numbers; text is tagged
// with the detected language so mixed documents surface.
func (c *Canada) SectionFrench(ctx context.Context, citation string) (*models.Section, error) {
	consNum, number, err := splitCanadaCitation(citation)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "ca", Citation: citation, Err: err}
	}

	url := c.actURL(consNum, "fra")
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: "ca", Citation: citation, URL: url, Err: err}
	}

	var statute caStatute
	if err := xml.Unmarshal(body, &statute); err != nil {
		return nil, &ConvertError{Jurisdiction: "ca", Citation: citation, URL: url, Err: err}
	}

	act := &caAct{consNum: consNum, shortTitle: string(statute.ShortTitle), sections: make(map[string]*caSection)}
	for i := range statute.Sections {
		s := &statute.Sections[i]
		if strings.TrimSpace(s.Label) == number {
			out := c.toSection(act, s)
			out.SourceURL = fmt.Sprintf("https://laws-lois.justice.gc.ca/fra/lois/%s/section-%s.html", consNum, number)
			return out, nil
		}
	}
	return nil, &ConvertError{Jurisdiction: "ca", Citation: citation, Err: ErrSectionNotFound}
}

// SectionNumbers lists the sections of an act; the unit is the
// consolidated number, e.g. "I-3.3".
func (c *Canada) SectionNumbers(ctx context.Context, unit string) ([]string, error) {
	consNum, _, err := splitCanadaCitation(unit)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "ca", Citation: unit, Err: err}
	}

	act, err := c.loadAct(ctx, consNum)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: "ca", Citation: unit,
			URL: c.actURL(consNum, "eng"), Err: err}
	}

	citations := make([]string, 0, len(act.numbers))
	for _, num := range act.numbers {
		citations = append(citations, consNum+":"+num)
	}
	return citations, nil
}
