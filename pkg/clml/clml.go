// Package clml parses Crown Legislation Markup Language, the XML format
// legislation.gov.uk serves at .../data.xml. Provision nesting is
// explicit: P1 elements are sections, P2 subsections, P3 paragraphs,
// each with a Pnumber marker.
package clml

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/RulesFoundation/atlas/models"
)

// CLML namespaces, for reference; parsing below matches local names.
const (
	NamespaceLegislation = "http://www.legislation.gov.uk/namespaces/legislation"
	NamespaceMetadata    = "http://www.legislation.gov.uk/namespaces/metadata"
)

// flatText gathers all character data under an element, keeping the
// text of inline markup such as Citation and Addition.
type flatText string

func (t *flatText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
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
	*t = flatText(strings.Join(strings.Fields(b.String()), " "))
	return nil
}

type p3 struct {
	Pnumber string `xml:"Pnumber"`
	Para    struct {
		Texts []flatText `xml:"Text"`
	} `xml:"P3para"`
}

type p2 struct {
	ID      string `xml:"id,attr"`
	Pnumber string `xml:"Pnumber"`
	Para    struct {
		Texts []flatText `xml:"Text"`
		P3s   []p3       `xml:"P3"`
	} `xml:"P2para"`
}

type p1 struct {
	DocumentURI string `xml:"DocumentURI,attr"`
	Pnumber     string `xml:"Pnumber"`
	Para        struct {
		Texts []flatText `xml:"Text"`
		P2s   []p2       `xml:"P2"`
	} `xml:"P1para"`
}

type p1group struct {
	Title flatText `xml:"Title"`
	P1s   []p1     `xml:"P1"`
}

type legislationDoc struct {
	DocumentURI    string `xml:"DocumentURI,attr"`
	RestrictExtent string `xml:"RestrictExtent,attr"`
	Primary        struct {
		Body struct {
			Groups []p1group `xml:"P1group"`
		} `xml:"Body"`
	} `xml:"Primary"`
}

// Citation identifies UK legislation: type code (ukpga, uksi, asp),
// year, number, and optionally a section.
type Citation struct {
	Type    string
	Year    int
	Number  int
	Section string
}

// Ref is the citation in legislation.gov.uk path form, with the section
// suffix when present: "ukpga/2003/1/section/62".
func (c Citation) Ref() string {
	ref := fmt.Sprintf("%s/%d/%d", c.Type, c.Year, c.Number)
	if c.Section != "" {
		ref += "/section/" + c.Section
	}
	return ref
}

// Document is one parsed CLML section document.
type Document struct {
	Citation   Citation
	Section    *models.Section
	Extent     []string
	References []string
}

var (
	citationURIRe = regexp.MustCompile(`legislation\.gov\.uk/(?:id/)?([a-z]+)/(\d+)/(\d+)(?:/section/(\d+[A-Za-z]?))?`)
	crossRefRe    = regexp.MustCompile(`URI="[^"]*legislation\.gov\.uk/(?:id/)?([a-z]+/\d+/\d+)`)
	yearAttrRe    = regexp.MustCompile(`<\w+:Year[^>]*Value="(\d{4})"`)
	numberAttrRe  = regexp.MustCompile(`<\w+:Number[^>]*Value="(\d+)"`)
	enactedRe     = regexp.MustCompile(`<\w+:EnactmentDate[^>]*Date="(\d{4}-\d{2}-\d{2})"`)
	dcTitleRe     = regexp.MustCompile(`<dc:title>([^<]+)</dc:title>`)
)

func parseCitationURI(uri string) (Citation, bool) {
	m := citationURIRe.FindStringSubmatch(uri)
	if m == nil {
		return Citation{}, false
	}
	year, _ := strconv.Atoi(m[2])
	number, _ := strconv.Atoi(m[3])
	return Citation{Type: m[1], Year: year, Number: number, Section: m[4]}, true
}

// ParseSection reads one section-level CLML document.
func ParseSection(raw []byte) (*Document, error) {
	var doc legislationDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse CLML: %w", err)
	}

	var sectionElem *p1
	heading := ""
	for gi := range doc.Primary.Body.Groups {
		g := &doc.Primary.Body.Groups[gi]
		if len(g.P1s) > 0 {
			sectionElem = &g.P1s[0]
			heading = string(g.Title)
			break
		}
	}
	if sectionElem == nil {
		return nil, fmt.Errorf("no P1 provision in document")
	}

	uri := sectionElem.DocumentURI
	if uri == "" {
		uri = doc.DocumentURI
	}

	citation, ok := parseCitationURI(uri)
	if !ok {
		// Metadata fallback when the URI is absent.
		citation = Citation{Type: "ukpga", Section: sectionElem.Pnumber}
		if m := yearAttrRe.FindSubmatch(raw); m != nil {
			citation.Year, _ = strconv.Atoi(string(m[1]))
		}
		if m := numberAttrRe.FindSubmatch(raw); m != nil {
			citation.Number, _ = strconv.Atoi(string(m[1]))
		}
	}
	if citation.Section == "" {
		citation.Section = sectionElem.Pnumber
	}

	actTitle := ""
	if m := dcTitleRe.FindSubmatch(raw); m != nil {
		actTitle = strings.TrimSpace(string(m[1]))
	}
	if heading == "" {
		heading = "Section " + citation.Section
	}

	var intro []string
	for _, t := range sectionElem.Para.Texts {
		if t != "" {
			intro = append(intro, string(t))
		}
	}

	var subsections []models.Subsection
	for i := range sectionElem.Para.P2s {
		subsections = append(subsections, convertP2(&sectionElem.Para.P2s[i]))
	}

	enacted := ""
	if m := enactedRe.FindSubmatch(raw); m != nil {
		enacted = string(m[1])
	}

	section := &models.Section{
		Citation:      models.Citation{Title: citation.Year, Section: citation.Ref()},
		Jurisdiction:  "uk",
		TitleName:     actTitle,
		SectionTitle:  heading,
		Text:          strings.Join(intro, " "),
		Subsections:   subsections,
		EffectiveDate: enacted,
		SourceURL:     uri,
	}

	return &Document{
		Citation:   citation,
		Section:    section,
		Extent:     parseExtent(doc.RestrictExtent),
		References: extractReferences(raw, citation),
	}, nil
}

func convertP2(elem *p2) models.Subsection {
	id := elem.Pnumber
	if id == "" && elem.ID != "" {
		id = elem.ID[strings.LastIndex(elem.ID, "-")+1:]
	}

	var texts []string
	for _, t := range elem.Para.Texts {
		if t != "" {
			texts = append(texts, string(t))
		}
	}

	var children []models.Subsection
	for i := range elem.Para.P3s {
		c := &elem.Para.P3s[i]
		var ctexts []string
		for _, t := range c.Para.Texts {
			if t != "" {
				ctexts = append(ctexts, string(t))
			}
		}
		if len(ctexts) == 0 {
			continue
		}
		children = append(children, models.Subsection{
			Identifier: c.Pnumber,
			Text:       strings.Join(ctexts, " "),
		})
	}

	return models.Subsection{
		Identifier: id,
		Text:       strings.Join(texts, " "),
		Children:   children,
	}
}

// parseExtent splits a territorial extent code like "E+W+S+N.I.".
func parseExtent(extent string) []string {
	if extent == "" {
		return nil
	}
	parts := strings.Split(extent, "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Act holds act-level metadata from a full-document CLML response.
type Act struct {
	Citation     Citation
	Title        string
	EnactedDate  string
	SectionCount int
	Extent       []string
	Sections     []string // section numbers in document order
}

var (
	provisionsRe = regexp.MustCompile(`NumberOfProvisions="(\d+)"`)
	sectionURIRe = regexp.MustCompile(`<(?:\w+:)?P1\s[^>]*DocumentURI="[^"]*/section/(\d+[A-Za-z]?)"`)
)

// ParseAct reads act-level metadata and the list of section numbers
// from a full act CLML document.
func ParseAct(raw []byte) (*Act, error) {
	var doc legislationDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse CLML: %w", err)
	}

	citation, ok := parseCitationURI(doc.DocumentURI)
	if !ok {
		citation = Citation{Type: "ukpga"}
		if m := yearAttrRe.FindSubmatch(raw); m != nil {
			citation.Year, _ = strconv.Atoi(string(m[1]))
		}
		if m := numberAttrRe.FindSubmatch(raw); m != nil {
			citation.Number, _ = strconv.Atoi(string(m[1]))
		}
	}

	act := &Act{
		Citation: citation,
		Extent:   parseExtent(doc.RestrictExtent),
	}
	if m := dcTitleRe.FindSubmatch(raw); m != nil {
		act.Title = strings.TrimSpace(string(m[1]))
	}
	if m := enactedRe.FindSubmatch(raw); m != nil {
		act.EnactedDate = string(m[1])
	}
	if m := provisionsRe.FindSubmatch(raw); m != nil {
		act.SectionCount, _ = strconv.Atoi(string(m[1]))
	}

	seen := make(map[string]bool)
	for _, m := range sectionURIRe.FindAllSubmatch(raw, -1) {
		num := string(m[1])
		if seen[num] {
			continue
		}
		seen[num] = true
		act.Sections = append(act.Sections, num)
	}
	return act, nil
}

// extractReferences lists the legislation.gov.uk acts cited by the
// document, excluding the document's own act.
func extractReferences(raw []byte, self Citation) []string {
	own := fmt.Sprintf("%s/%d/%d", self.Type, self.Year, self.Number)
	seen := make(map[string]bool)
	var refs []string
	for _, m := range crossRefRe.FindAllSubmatch(raw, -1) {
		ref := string(m[1])
		if ref == own || seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}
