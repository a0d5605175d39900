// Package akn serializes normalized statute sections into Akoma Ntoso 3.0
// XML, the OASIS standard for legislative documents.
package akn

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/RulesFoundation/atlas/models"
)

// Namespace is the Akoma Ntoso 3.0 XML namespace.
const Namespace = "http://docs.oasis-open.org/legaldocml/ns/akn/3.0"

// paragraphLimit caps one <p> body; statute paragraphs past this are
// truncated the same way the scrapers cap raw text.
const paragraphLimit = 10000

type Document struct {
	XMLName xml.Name `xml:"akomaNtoso"`
	Xmlns   string   `xml:"xmlns,attr"`
	Act     Act      `xml:"act"`
}

type Act struct {
	Name string `xml:"name,attr"`
	Meta Meta   `xml:"meta"`
	Body Body   `xml:"body"`
}

type Meta struct {
	Identification Identification `xml:"identification"`
	References     References     `xml:"references"`
}

type Identification struct {
	Source        string    `xml:"source,attr"`
	Work          FRBRGroup `xml:"FRBRWork"`
	Expression    FRBRGroup `xml:"FRBRExpression"`
	Manifestation FRBRGroup `xml:"FRBRManifestation"`
}

type FRBRGroup struct {
	This     ValueAttr  `xml:"FRBRthis"`
	URI      ValueAttr  `xml:"FRBRuri"`
	Date     DateAttr   `xml:"FRBRdate"`
	Author   HrefAttr   `xml:"FRBRauthor"`
	Country  *ValueAttr `xml:"FRBRcountry,omitempty"`
	Language *LangAttr  `xml:"FRBRlanguage,omitempty"`
}

type ValueAttr struct {
	Value string `xml:"value,attr"`
}

type DateAttr struct {
	Date string `xml:"date,attr"`
	Name string `xml:"name,attr"`
}

type HrefAttr struct {
	Href string `xml:"href,attr"`
}

type LangAttr struct {
	Language string `xml:"language,attr"`
}

type References struct {
	Source       string          `xml:"source,attr"`
	Organization TLCOrganization `xml:"TLCOrganization"`
}

type TLCOrganization struct {
	EID    string `xml:"eId,attr"`
	Href   string `xml:"href,attr"`
	ShowAs string `xml:"showAs,attr"`
}

type Body struct {
	Section SectionElem `xml:"section"`
}

type SectionElem struct {
	EID         string           `xml:"eId,attr"`
	Num         string           `xml:"num"`
	Heading     string           `xml:"heading,omitempty"`
	Content     *Content         `xml:"content,omitempty"`
	Subsections []SubsectionElem `xml:"subsection,omitempty"`
}

type SubsectionElem struct {
	EID      string           `xml:"eId,attr"`
	Num      string           `xml:"num"`
	Heading  string           `xml:"heading,omitempty"`
	Content  *Content         `xml:"content,omitempty"`
	Children []SubsectionElem `xml:"subsection,omitempty"`
}

type Content struct {
	Paragraphs []string `xml:"p"`
}

// eid flattens a citation token into a valid AKN eId fragment.
func eid(s string) string {
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, "/", "__")
}

// FromSection builds an Akoma Ntoso document for one statute section.
func FromSection(section *models.Section) *Document {
	jur := section.Jurisdiction
	sectionID := section.Citation.Section
	today := time.Now().Format("2006-01-02")

	workURI := fmt.Sprintf("/akn/%s/act/statute/sec-%s", jur, sectionID)
	exprURI := fmt.Sprintf("%s/eng@%s", workURI, today)
	legislature := "#" + jur + "-legislature"

	lang := section.Language
	if lang == "" {
		lang = "eng"
	}

	doc := &Document{
		Xmlns: Namespace,
		Act: Act{
			Name: "section",
			Meta: Meta{
				Identification: Identification{
					Source: legislature,
					Work: FRBRGroup{
						This:    ValueAttr{Value: workURI},
						URI:     ValueAttr{Value: workURI},
						Date:    DateAttr{Date: today, Name: "enacted"},
						Author:  HrefAttr{Href: legislature},
						Country: &ValueAttr{Value: jur},
					},
					Expression: FRBRGroup{
						This:     ValueAttr{Value: exprURI},
						URI:      ValueAttr{Value: exprURI},
						Date:     DateAttr{Date: today, Name: "publication"},
						Author:   HrefAttr{Href: "#rules-foundation"},
						Language: &LangAttr{Language: lang},
					},
					Manifestation: FRBRGroup{
						This:   ValueAttr{Value: exprURI + "/main.xml"},
						URI:    ValueAttr{Value: exprURI + "/main.xml"},
						Date:   DateAttr{Date: today, Name: "generation"},
						Author: HrefAttr{Href: "#rules-foundation"},
					},
				},
				References: References{
					Source: "#rules-foundation",
					Organization: TLCOrganization{
						EID:    "rules-foundation",
						Href:   "https://rules.foundation",
						ShowAs: "Rules Foundation",
					},
				},
			},
			Body: Body{
				Section: SectionElem{
					EID:         "sec_" + eid(sectionID),
					Num:         sectionID,
					Heading:     section.SectionTitle,
					Content:     contentFor(section.Text),
					Subsections: subsectionElems(section.Subsections, "sec_"+eid(sectionID)),
				},
			},
		},
	}
	return doc
}

func contentFor(text string) *Content {
	var paragraphs []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > paragraphLimit {
			para = para[:paragraphLimit]
		}
		paragraphs = append(paragraphs, para)
	}
	if paragraphs == nil {
		return nil
	}
	return &Content{Paragraphs: paragraphs}
}

func subsectionElems(subs []models.Subsection, parentEID string) []SubsectionElem {
	if len(subs) == 0 {
		return nil
	}
	out := make([]SubsectionElem, 0, len(subs))
	for i := range subs {
		sub := &subs[i]
		subEID := parentEID + "__subsec_" + eid(sub.Identifier)
		out = append(out, SubsectionElem{
			EID:      subEID,
			Num:      "(" + sub.Identifier + ")",
			Heading:  sub.Heading,
			Content:  contentFor(sub.Text),
			Children: subsectionElems(sub.Children, subEID),
		})
	}
	return out
}

// Write serializes the section as indented Akoma Ntoso XML.
func Write(w io.Writer, section *models.Section) error {
	doc := FromSection(section)
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode AKN document: %w", err)
	}
	return enc.Close()
}

// Bytes returns the serialized document.
func Bytes(section *models.Section) ([]byte, error) {
	var sb strings.Builder
	if err := Write(&sb, section); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}
