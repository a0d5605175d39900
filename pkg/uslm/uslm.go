// Package uslm parses United States Code titles published as USLM XML
// by uscode.house.gov. The hierarchy is explicit in the markup, so
// subsections come straight from the element tree rather than from
// marker splitting.
package uslm

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/RulesFoundation/atlas/models"
)

// Published USLM namespaces. Both appear in the wild; element matching
// below is by local name, so either works.
const (
	NamespaceGPO   = "http://schemas.gpo.gov/xml/uslm"
	NamespaceHouse = "http://xml.house.gov/schemas/uslm/1.0"
)

// flatText accumulates all character data under an element, including
// inline children such as <ref>.
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

// node is one level of the USLM hierarchy. The same shape nests through
// subsection -> paragraph -> subparagraph -> clause -> subclause.
type node struct {
	Identifier    string   `xml:"identifier,attr"`
	Heading       flatText `xml:"heading"`
	Chapeau       flatText `xml:"chapeau"`
	Content       flatText `xml:"content"`
	Continuation  flatText `xml:"continuation"`
	Subsections   []node   `xml:"subsection"`
	Paragraphs    []node   `xml:"paragraph"`
	Subparagraphs []node   `xml:"subparagraph"`
	Clauses       []node   `xml:"clause"`
	Subclauses    []node   `xml:"subclause"`
}

func (n *node) children() []node {
	var out []node
	out = append(out, n.Subsections...)
	out = append(out, n.Paragraphs...)
	out = append(out, n.Subparagraphs...)
	out = append(out, n.Clauses...)
	out = append(out, n.Subclauses...)
	return out
}

func (n *node) localID() string {
	if n.Identifier == "" {
		return ""
	}
	return n.Identifier[strings.LastIndex(n.Identifier, "/")+1:]
}

func (n *node) directText() string {
	var parts []string
	for _, t := range []flatText{n.Chapeau, n.Content, n.Continuation} {
		if t != "" {
			parts = append(parts, string(t))
		}
	}
	return strings.Join(parts, " ")
}

type titleDoc struct {
	DocNumber string `xml:"meta>docNumber"`
	Main      struct {
		Title struct {
			Identifier string   `xml:"identifier,attr"`
			Heading    flatText `xml:"heading"`
		} `xml:"title"`
	} `xml:"main"`
}

// Title is a parsed US Code title.
type Title struct {
	Number   int
	Name     string
	Sections []*models.Section

	refs map[string][]string
}

// References lists the "26 USC 7703"-style citations a section links to.
func (t *Title) References(sectionNumber string) []string {
	return t.refs[sectionNumber]
}

// Section returns one section by number, nil when absent.
func (t *Title) Section(number string) *models.Section {
	for _, s := range t.Sections {
		if s.Citation.Section == number {
			return s
		}
	}
	return nil
}

var (
	titleIDPattern = regexp.MustCompile(`/us/usc/t(\d+[A-Za-z]?)`)
	refHrefRe      = regexp.MustCompile(`href="/us/usc/t(\d+[A-Za-z]?)/s([^/"#]+)`)
)

// ParseTitle reads a whole USLM title document.
func ParseTitle(raw []byte) (*Title, error) {
	var doc titleDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse USLM XML: %w", err)
	}

	titleNum := 0
	if m := titleIDPattern.FindStringSubmatch(doc.Main.Title.Identifier); m != nil {
		titleNum, _ = strconv.Atoi(strings.TrimRight(m[1], "ABab"))
	} else if doc.DocNumber != "" {
		titleNum, _ = strconv.Atoi(doc.DocNumber)
	}
	if titleNum == 0 {
		return nil, fmt.Errorf("could not determine title number")
	}

	titleName := string(doc.Main.Title.Heading)
	if titleName == "" {
		titleName = fmt.Sprintf("Title %d", titleNum)
	}

	title := &Title{
		Number: titleNum,
		Name:   titleName,
		refs:   make(map[string][]string),
	}

	// Sections are decoded one by one so a malformed section does not
	// abort the whole title.
	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "section" {
			continue
		}

		identifier := attrValue(start, "identifier")
		if identifier == "" || !strings.Contains(identifier, "/s") {
			dec.Skip()
			continue
		}

		subtree, err := captureElement(dec, start)
		if err != nil {
			continue
		}
		var elem node
		if err := xml.Unmarshal(subtree, &elem); err != nil {
			continue
		}
		elem.Identifier = identifier

		section := buildSection(&elem, titleNum, titleName)
		if section == nil {
			continue
		}
		title.Sections = append(title.Sections, section)
		title.refs[section.Citation.Section] = extractRefs(subtree)
	}

	return title, nil
}

func attrValue(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// captureElement re-serializes one element subtree so it can be
// unmarshalled in isolation.
func captureElement(dec *xml.Decoder, start xml.StartElement) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	// Strip the namespace so the re-parse matches by local name only.
	start.Name.Space = ""
	var attrs []xml.Attr
	for _, a := range start.Attr {
		if a.Name.Local != "xmlns" && a.Name.Space != "xmlns" {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: a.Name.Local}, Value: a.Value})
		}
	}
	start.Attr = attrs

	if err := enc.EncodeToken(start); err != nil {
		return nil, err
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch v := tok.(type) {
		case xml.StartElement:
			depth++
			v.Name.Space = ""
			var as []xml.Attr
			for _, a := range v.Attr {
				if a.Name.Local != "xmlns" && a.Name.Space != "xmlns" {
					as = append(as, xml.Attr{Name: xml.Name{Local: a.Name.Local}, Value: a.Value})
				}
			}
			v.Attr = as
			if err := enc.EncodeToken(v); err != nil {
				return nil, err
			}
		case xml.EndElement:
			depth--
			v.Name.Space = ""
			if err := enc.EncodeToken(v); err != nil {
				return nil, err
			}
		default:
			if err := enc.EncodeToken(tok); err != nil {
				return nil, err
			}
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildSection(elem *node, titleNum int, titleName string) *models.Section {
	// Identifiers look like /us/usc/t26/s32.
	_, after, ok := strings.Cut(elem.Identifier, "/s")
	if !ok || after == "" {
		return nil
	}
	number := after

	return &models.Section{
		Citation:     models.Citation{Title: titleNum, Section: number},
		Jurisdiction: "us",
		TitleName:    titleName,
		SectionTitle: string(elem.Heading),
		Text:         elem.directText(),
		Subsections:  convertNodes(elem.children()),
		SourceURL:    fmt.Sprintf("https://uscode.house.gov/view.xhtml?req=%d+USC+%s", titleNum, number),
	}
}

func convertNodes(nodes []node) []models.Subsection {
	var out []models.Subsection
	for i := range nodes {
		n := &nodes[i]
		id := n.localID()
		if id == "" {
			continue
		}
		out = append(out, models.Subsection{
			Identifier: id,
			Heading:    string(n.Heading),
			Text:       n.directText(),
			Children:   convertNodes(n.children()),
		})
	}
	return out
}

func extractRefs(raw []byte) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, m := range refHrefRe.FindAllSubmatch(raw, -1) {
		cite := fmt.Sprintf("%s USC %s", m[1], m[2])
		if !seen[cite] {
			seen[cite] = true
			refs = append(refs, cite)
		}
	}
	return refs
}
