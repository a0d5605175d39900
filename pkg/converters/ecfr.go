package converters

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/RulesFoundation/atlas/models"
	"github.com/RulesFoundation/atlas/pkg/fetcher"
)

// Code of Federal Regulations via the eCFR versioner API, which serves
// point-in-time title XML. Citations are "title:part.section", e.g.
// "26:1.32-1" for 26 CFR 1.32-1; units for listing are "title:part".
// Sections are DIV8 elements; the nesting inside a section is already
// paragraph-structured, so markers are read off the leading "(a)" of
// each P element rather than re-split.
const ecfrBaseURL = "https://www.ecfr.gov/api/versioner/v1"

func init() {
	Register("us-ecfr", "xml", func(f *fetcher.Fetcher) Converter {
		return &ECFR{fetcher: f}
	})
}

type ECFR struct {
	fetcher *fetcher.Fetcher
	baseURL string
	// AsOf pins the point-in-time date; empty means current.
	AsOf string
}

func (c *ECFR) Jurisdiction() string { return "us-ecfr" }
func (c *ECFR) Format() string       { return "xml" }

func (c *ECFR) base() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return ecfrBaseURL
}

func (c *ECFR) partURL(title, part int) string {
	asOf := c.AsOf
	if asOf == "" {
		asOf = time.Now().UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("%s/full/%s/title-%d.xml?part=%d", c.base(), asOf, title, part)
}

func splitECFRCitation(citation string) (title, part int, section string, err error) {
	titleStr, rest, ok := strings.Cut(citation, ":")
	if !ok {
		return 0, 0, "", fmt.Errorf("eCFR citation %q needs the form title:part.section", citation)
	}
	title, err = strconv.Atoi(titleStr)
	if err != nil {
		return 0, 0, "", fmt.Errorf("malformed eCFR title in %q", citation)
	}
	partStr, section, ok := strings.Cut(rest, ".")
	if !ok {
		// Unit form "title:part" for listings.
		partStr, section = rest, ""
	}
	part, err = strconv.Atoi(partStr)
	if err != nil {
		return 0, 0, "", fmt.Errorf("malformed eCFR part in %q", citation)
	}
	return title, part, section, nil
}

func (c *ECFR) Section(ctx context.Context, citation string) (*models.Section, error) {
	title, part, sectionNum, err := splitECFRCitation(citation)
	if err != nil || sectionNum == "" {
		if err == nil {
			err = fmt.Errorf("eCFR citation %q missing section", citation)
		}
		return nil, &ConvertError{Jurisdiction: "us-ecfr", Citation: citation, Err: err}
	}

	url := c.partURL(title, part)
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: "us-ecfr", Citation: citation, URL: url, Err: err}
	}

	sections, err := parseECFRPart(body, title, url)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-ecfr", Citation: citation, URL: url, Err: err}
	}

	want := fmt.Sprintf("%d.%s", part, sectionNum)
	for _, s := range sections {
		if s.Citation.Section == want {
			return s, nil
		}
	}
	return nil, &ConvertError{Jurisdiction: "us-ecfr", Citation: citation, URL: url, Err: ErrSectionNotFound}
}

// SectionNumbers lists the sections of one part, unit "title:part".
func (c *ECFR) SectionNumbers(ctx context.Context, unit string) ([]string, error) {
	title, part, _, err := splitECFRCitation(unit)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-ecfr", Citation: unit, Err: err}
	}

	url := c.partURL(title, part)
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-ecfr", Citation: unit, URL: url, Err: err}
	}

	sections, err := parseECFRPart(body, title, url)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-ecfr", Citation: unit, URL: url, Err: err}
	}

	var numbers []string
	for _, s := range sections {
		numbers = append(numbers, fmt.Sprintf("%d:%s", title, s.Citation.Section))
	}
	return numbers, nil
}

// ecfrText flattens an element's character data, dropping markup such as
// <I> and <E> but keeping their text.
type ecfrText struct {
	Text   string
	Italic string
}

func (t *ecfrText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	var italic strings.Builder
	depth := 1
	inItalic := false
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.StartElement:
			depth++
			if v.Name.Local == "I" && t.Italic == "" && italic.Len() == 0 {
				inItalic = true
			}
		case xml.EndElement:
			depth--
			if inItalic && v.Name.Local == "I" {
				inItalic = false
				t.Italic = strings.TrimSuffix(strings.TrimSpace(italic.String()), ".")
			}
		case xml.CharData:
			b.Write(v)
			if inItalic {
				italic.Write(v)
			}
		}
	}
	t.Text = strings.Join(strings.Fields(b.String()), " ")
	return nil
}

type ecfrDiv8 struct {
	N    string     `xml:"N,attr"`
	Head ecfrText   `xml:"HEAD"`
	Ps   []ecfrText `xml:"P"`
	Cita ecfrText   `xml:"CITA"`
}

var (
	ecfrSectionN = regexp.MustCompile(`(\d+)\.(\d+(?:-\d+)?[a-zA-Z]?)`)
	ecfrMarker   = regexp.MustCompile(`^\s*\(([a-zA-Z0-9]+)\)`)
	ecfrHeadNum  = regexp.MustCompile(`^§\s*[\d.\-]+\s*`)
	ecfrUSC      = regexp.MustCompile(`(\d+)\s*U\.?S\.?C\.?\s*(\d+)`)
)

// parseECFRPart walks the title XML and converts every DIV8 section,
// carrying the nearest preceding AUTH statement as the authority.
func parseECFRPart(raw []byte, title int, sourceURL string) ([]*models.Section, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var sections []*models.Section
	authority := ""

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "AUTH":
			var auth ecfrText
			if err := dec.DecodeElement(&auth, &start); err == nil {
				authority = strings.TrimPrefix(auth.Text, "Authority:")
				authority = strings.TrimSpace(authority)
			}
		case "DIV8":
			if attrValue(start, "TYPE") != "SECTION" {
				dec.Skip()
				continue
			}
			var div ecfrDiv8
			if err := dec.DecodeElement(&div, &start); err != nil {
				continue
			}
			if s := div.toSection(title, authority, sourceURL); s != nil {
				sections = append(sections, s)
			}
		}
	}

	return sections, nil
}

func attrValue(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (d *ecfrDiv8) toSection(title int, authority, sourceURL string) *models.Section {
	m := ecfrSectionN.FindStringSubmatch(d.N)
	if m == nil {
		return nil
	}
	part := m[1]
	number := part + "." + m[2]

	heading := strings.TrimSuffix(ecfrHeadNum.ReplaceAllString(d.Head.Text, ""), ".")

	var subsections []models.Subsection
	var intro []string
	for _, p := range d.Ps {
		marker := ecfrMarker.FindStringSubmatch(p.Text)
		if marker == nil {
			if len(subsections) == 0 {
				intro = append(intro, p.Text)
			}
			continue
		}
		subsections = append(subsections, models.Subsection{
			Identifier: marker[1],
			Heading:    p.Italic,
			Text:       p.Text,
		})
	}

	history := strings.Trim(d.Cita.Text, "[] ")

	if authority == "" {
		authority = fmt.Sprintf("%d U.S.C. 7805", title)
	}
	titleName := fmt.Sprintf("%d CFR", title)
	if m := ecfrUSC.FindStringSubmatch(authority); m != nil {
		titleName = fmt.Sprintf("%d CFR (auth. %s USC %s)", title, m[1], m[2])
	}

	return &models.Section{
		Citation:     models.Citation{Title: title, Section: number},
		Jurisdiction: "us-ecfr",
		TitleName:    titleName,
		SectionTitle: heading,
		Text:         strings.Join(intro, " "),
		Subsections:  subsections,
		Part:         "Part " + part,
		History:      history,
		SourceURL:    sourceURL,
		RetrievedAt:  time.Now().UTC(),
	}
}
