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
)

// New Zealand legislation from legislation.govt.nz. The Subscribe
// endpoint serves whole acts as XML; provisions nest prov > subprov >
// label-para, giving the (1)(a)(i) scheme. Citations pair the act path
// with the section label: "act/public/2007/97:MA 1". One act download
// carries every section, so parsed acts are cached.
const nzBaseURL = "https://www.legislation.govt.nz"

func init() {
	Register("nz", "xml", func(f *fetcher.Fetcher) Converter {
		return &NewZealand{fetcher: f, acts: make(map[string]*nzAct)}
	})
}

type NewZealand struct {
	fetcher *fetcher.Fetcher
	baseURL string

	mu   sync.Mutex
	acts map[string]*nzAct
}

func (c *NewZealand) Jurisdiction() string { return "nz" }
func (c *NewZealand) Format() string       { return "xml" }

func (c *NewZealand) base() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return nzBaseURL
}

// actURL pads the act number to four digits: act/public/2007/97 →
// {base}/Subscribe/act/public/2007/0097/latest/wholeof.xml.
func (c *NewZealand) actURL(unit string) (string, error) {
	parts := strings.Split(strings.Trim(unit, "/"), "/")
	if len(parts) != 4 {
		return "", fmt.Errorf("invalid NZ act reference %q (want type/subtype/year/number)", unit)
	}
	num := parts[3]
	for len(num) < 4 {
		num = "0" + num
	}
	return fmt.Sprintf("%s/Subscribe/%s/%s/%s/%s/latest/wholeof.xml",
		c.base(), parts[0], parts[1], parts[2], num), nil
}

func splitNZCitation(citation string) (unit, label string, err error) {
	parts := strings.SplitN(strings.TrimSpace(citation), ":", 2)
	if len(parts) == 2 {
		label = strings.TrimSpace(parts[1])
	}
	if strings.Count(strings.Trim(parts[0], "/"), "/") != 3 {
		return "", "", fmt.Errorf("invalid NZ citation %q", citation)
	}
	return parts[0], label, nil
}

// nzText flattens one element, keeping text inside inline markup such
// as <def-term> and <citation>.
type nzText string

func (t *nzText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
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
	*t = nzText(strings.Join(strings.Fields(b.String()), " "))
	return nil
}

type nzLabelPara struct {
	Label     string        `xml:"label"`
	Texts     []nzText      `xml:"text"`
	ParaTexts []nzText      `xml:"para>text"`
	Children  []nzLabelPara `xml:"para>label-para"`
}

type nzSubprov struct {
	ID         string        `xml:"id,attr"`
	Label      string        `xml:"label"`
	ParaTexts  []nzText      `xml:"para>text"`
	LabelParas []nzLabelPara `xml:"para>label-para"`
}

type nzProv struct {
	ID      string `xml:"id,attr"`
	Label   string `xml:"label"`
	Heading nzText `xml:"heading"`
	Body    struct {
		Subprovs   []nzSubprov   `xml:"subprov"`
		ParaTexts  []nzText      `xml:"para>text"`
		LabelParas []nzLabelPara `xml:"para>label-para"`
	} `xml:"prov.body"`
}

// Root element is <act>, <bill> or <regulation>; the numbering
// attribute follows the element name.
type nzDocument struct {
	ID           string   `xml:"id,attr"`
	Year         string   `xml:"year,attr"`
	ActNo        string   `xml:"act.no,attr"`
	RegulationNo string   `xml:"regulation.no,attr"`
	AssentDate   string   `xml:"date.assent,attr"`
	AsAtDate     string   `xml:"date.as.at,attr"`
	Title        nzText   `xml:"cover>title"`
	Provs        []nzProv `xml:"body>prov"`
}

type nzAct struct {
	unit     string
	title    string
	assent   string
	sections map[string]*nzProv
	labels   []string
}

func (c *NewZealand) loadAct(ctx context.Context, unit string) (*nzAct, error) {
	unit = strings.Trim(unit, "/")

	c.mu.Lock()
	cached := c.acts[unit]
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	url, err := c.actURL(unit)
	if err != nil {
		return nil, err
	}
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	var doc nzDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse act %s: %w", unit, err)
	}

	act := &nzAct{
		unit:     unit,
		title:    string(doc.Title),
		assent:   doc.AssentDate,
		sections: make(map[string]*nzProv, len(doc.Provs)),
	}
	for i := range doc.Provs {
		p := &doc.Provs[i]
		label := strings.TrimSpace(p.Label)
		if label == "" {
			continue
		}
		act.sections[label] = p
		act.labels = append(act.labels, label)
	}

	c.mu.Lock()
	c.acts[unit] = act
	c.mu.Unlock()
	return act, nil
}

func nzConvertLabelParas(paras []nzLabelPara) []models.Subsection {
	var out []models.Subsection
	for i := range paras {
		p := &paras[i]

		var texts []string
		for _, t := range append(append([]nzText{}, p.Texts...), p.ParaTexts...) {
			if t != "" {
				texts = append(texts, string(t))
			}
		}

		id := strings.Trim(strings.TrimSpace(p.Label), "()")
		if id == "" && len(texts) == 0 {
			continue
		}
		out = append(out, models.Subsection{
			Identifier: id,
			Text:       strings.Join(texts, " "),
			Children:   nzConvertLabelParas(p.Children),
		})
	}
	return out
}

func (c *NewZealand) toSection(act *nzAct, prov *nzProv) *models.Section {
	var intro []string
	for _, t := range prov.Body.ParaTexts {
		if t != "" {
			intro = append(intro, string(t))
		}
	}

	var subsections []models.Subsection
	for i := range prov.Body.Subprovs {
		sp := &prov.Body.Subprovs[i]
		var texts []string
		for _, t := range sp.ParaTexts {
			if t != "" {
				texts = append(texts, string(t))
			}
		}
		subsections = append(subsections, models.Subsection{
			Identifier: strings.Trim(strings.TrimSpace(sp.Label), "()"),
			Text:       strings.Join(texts, " "),
			Children:   nzConvertLabelParas(sp.LabelParas),
		})
	}
	subsections = append(subsections, nzConvertLabelParas(prov.Body.LabelParas)...)

	return &models.Section{
		Citation:      models.Citation{Section: act.unit + ":" + strings.TrimSpace(prov.Label)},
		Jurisdiction:  "nz",
		TitleName:     act.title,
		SectionTitle:  string(prov.Heading),
		Text:          strings.Join(intro, " "),
		Subsections:   subsections,
		EffectiveDate: act.assent,
		SourceURL:     nzBaseURL + "/" + act.unit + "/latest/whole.html",
		RetrievedAt:   time.Now().UTC(),
	}
}

// Section resolves citations like "act/public/2007/97:MA 1".
func (c *NewZealand) Section(ctx context.Context, citation string) (*models.Section, error) {
	unit, label, err := splitNZCitation(citation)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "nz", Citation: citation, Err: err}
	}
	if label == "" {
		return nil, &ConvertError{Jurisdiction: "nz", Citation: citation,
			Err: fmt.Errorf("citation %q names no section", citation)}
	}

	act, err := c.loadAct(ctx, unit)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		url, _ := c.actURL(unit)
		return nil, &ConvertError{Jurisdiction: "nz", Citation: citation, URL: url, Err: err}
	}

	prov := act.sections[label]
	if prov == nil {
		return nil, &ConvertError{Jurisdiction: "nz", Citation: citation, Err: ErrSectionNotFound}
	}
	return c.toSection(act, prov), nil
}

// SectionNumbers lists the provisions of an act; the unit is the act
// path, e.g. "act/public/2007/97".
func (c *NewZealand) SectionNumbers(ctx context.Context, unit string) ([]string, error) {
	act, err := c.loadAct(ctx, strings.TrimSpace(unit))
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		url, _ := c.actURL(unit)
		return nil, &ConvertError{Jurisdiction: "nz", Citation: unit, URL: url, Err: err}
	}

	citations := make([]string, 0, len(act.labels))
	for _, label := range act.labels {
		citations = append(citations, act.unit+":"+label)
	}
	return citations, nil
}
