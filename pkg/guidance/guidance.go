// Package guidance extracts IRS guidance documents (Revenue Procedures
// and similar) from Internal Revenue Bulletin pages. An IRB page holds
// several documents back to back; readability strips the site chrome,
// then the requested document is located by its heading and split into
// its numbered sections (SECTION 1. PURPOSE, .01 subsections).
package guidance

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/RulesFoundation/atlas/models"
)

var (
	docHeadPattern    = regexp.MustCompile(`(?i)^(Rev\.\s*Proc\.|Rev\.\s*Rul\.|Notice|T\.?\s*D\.?)\s*(\d{4}-\d+)`)
	sectionPattern    = regexp.MustCompile(`(?i)^SECTION\s+(\d+)\.\s*(.+)`)
	subsectionPattern = regexp.MustCompile(`^\.(\d{2})\s+(.+)`)
	irbPattern        = regexp.MustCompile(`/irb/(\d{4}-\d+)_IRB`)
	yearPattern       = regexp.MustCompile(`\b(20\d{2})\b`)
)

// Document is one guidance document extracted from an IRB page.
type Document struct {
	DocNumber   string // "2023-34"
	DocType     string // "Rev. Proc.", "Rev. Rul.", "Notice"
	Title       string
	IRBCitation string // "2023-48 IRB"
	SourceURL   string
	Text        string
	Sections    []models.Subsection
	TaxYears    []int
}

// Extract pulls one document out of an IRB page by its number.
func Extract(rawURL string, html []byte, docNumber string) (*Document, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(html), pageURL)
	if err != nil {
		return nil, fmt.Errorf("readability extraction failed: %w", err)
	}

	gq, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil, err
	}

	var blocks []string
	gq.Find("h1,h2,h3,h4,h5,p,li").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" {
			blocks = append(blocks, text)
		}
	})

	docType, body := sliceDocument(blocks, docNumber)
	if body == nil {
		return nil, fmt.Errorf("document %s not found in %s", docNumber, rawURL)
	}

	doc := &Document{
		DocNumber: docNumber,
		DocType:   docType,
		SourceURL: rawURL,
		Text:      strings.Join(body, "\n\n"),
		Sections:  parseSections(body),
	}
	if len(body) > 0 && !sectionPattern.MatchString(body[0]) {
		doc.Title = body[0]
	}
	if m := irbPattern.FindStringSubmatch(rawURL); m != nil {
		doc.IRBCitation = m[1] + " IRB"
	}
	doc.TaxYears = extractTaxYears(doc.Text, docNumber)
	return doc, nil
}

// sliceDocument returns the blocks between the heading that names
// docNumber and the next document heading.
func sliceDocument(blocks []string, docNumber string) (docType string, body []string) {
	start := -1
	for i, b := range blocks {
		m := docHeadPattern.FindStringSubmatch(b)
		if m == nil {
			continue
		}
		if start >= 0 {
			return docType, blocks[start:i]
		}
		if m[2] == docNumber {
			docType = normalizeDocType(m[1])
			start = i + 1
		}
	}
	if start < 0 {
		return "", nil
	}
	return docType, blocks[start:]
}

func normalizeDocType(raw string) string {
	switch strings.ToLower(strings.Join(strings.Fields(raw), "")) {
	case "rev.proc.", "revproc":
		return "Rev. Proc."
	case "rev.rul.", "revrul":
		return "Rev. Rul."
	case "notice":
		return "Notice"
	default:
		return "T.D."
	}
}

// parseSections builds the SECTION n. / .01 hierarchy. Text between
// markers accumulates on the most recent subsection, or section.
func parseSections(blocks []string) []models.Subsection {
	var sections []models.Subsection
	for _, b := range blocks {
		if m := sectionPattern.FindStringSubmatch(b); m != nil {
			sections = append(sections, models.Subsection{
				Identifier: m[1],
				Heading:    strings.TrimSpace(m[2]),
			})
			continue
		}
		if len(sections) == 0 {
			continue
		}
		cur := &sections[len(sections)-1]
		if m := subsectionPattern.FindStringSubmatch(b); m != nil {
			cur.Children = append(cur.Children, models.Subsection{
				Identifier: m[1],
				Text:       strings.TrimSpace(m[2]),
			})
			continue
		}
		if len(cur.Children) > 0 {
			child := &cur.Children[len(cur.Children)-1]
			child.Text = joinBlocks(child.Text, b)
		} else {
			cur.Text = joinBlocks(cur.Text, b)
		}
	}
	return sections
}

func joinBlocks(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + "\n" + next
}

// extractTaxYears lists the years the document applies to; annual
// inflation-adjustment procedures name the following year.
func extractTaxYears(text, docNumber string) []int {
	docYear := 0
	if len(docNumber) >= 4 {
		docYear, _ = strconv.Atoi(docNumber[:4])
	}

	seen := make(map[int]bool)
	for _, m := range yearPattern.FindAllStringSubmatch(text, -1) {
		y, _ := strconv.Atoi(m[1])
		if docYear == 0 || (y >= docYear && y <= docYear+2) {
			seen[y] = true
		}
	}

	if len(seen) == 0 {
		if docYear > 0 {
			return []int{docYear + 1}
		}
		return nil
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
