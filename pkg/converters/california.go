package converters

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/RulesFoundation/atlas/models"
	"github.com/RulesFoundation/atlas/pkg/fetcher"
	"github.com/RulesFoundation/atlas/pkg/hier"
)

// California codes on leginfo.legislature.ca.gov. Citations carry a code
// prefix: "RTC:17052" is Revenue and Taxation Code section 17052.
const caBaseURL = "https://leginfo.legislature.ca.gov/faces"

var caScheme = hier.Scheme{Levels: []hier.Kind{hier.ParenLower, hier.ParenDigit, hier.ParenUpper, hier.ParenRomanLower}}

var caCodes = map[string]string{
	"RTC":  "Revenue and Taxation Code",
	"WIC":  "Welfare and Institutions Code",
	"UIC":  "Unemployment Insurance Code",
	"LAB":  "Labor Code",
	"HSC":  "Health and Safety Code",
	"GOV":  "Government Code",
	"EDC":  "Education Code",
	"FAM":  "Family Code",
	"INS":  "Insurance Code",
	"CIV":  "Civil Code",
	"CORP": "Corporations Code",
	"PEN":  "Penal Code",
	"VEH":  "Vehicle Code",
	"WAT":  "Water Code",
}

func init() {
	Register("us-ca", "html", func(f *fetcher.Fetcher) Converter {
		return &California{fetcher: f}
	})
}

type California struct {
	fetcher *fetcher.Fetcher
	baseURL string
}

func (c *California) Jurisdiction() string { return "us-ca" }
func (c *California) Format() string       { return "html" }

func (c *California) base() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return caBaseURL
}

func splitCaliforniaCitation(citation string) (code, number string, err error) {
	code, number, ok := strings.Cut(citation, ":")
	if !ok {
		return "", "", fmt.Errorf("California citation %q needs a CODE: prefix, e.g. RTC:17052", citation)
	}
	code = strings.ToUpper(code)
	if _, ok := caCodes[code]; !ok {
		return "", "", fmt.Errorf("unknown California code %q", code)
	}
	return code, number, nil
}

func (c *California) Section(ctx context.Context, citation string) (*models.Section, error) {
	code, number, err := splitCaliforniaCitation(citation)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-ca", Citation: citation, Err: err}
	}

	url := fmt.Sprintf("%s/codes_displaySection.xhtml?lawCode=%s&sectionNum=%s", c.base(), code, number)
	doc, err := c.fetcher.GetDocument(ctx, url)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: "us-ca", Citation: citation, URL: url, Err: err}
	}

	section, err := c.parse(doc, code, number, url)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-ca", Citation: citation, URL: url, Err: err}
	}
	return section, nil
}

// History notes read "(Amended by Stats. 2022, Ch. 482, Sec. 1.)".
var caHistoryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)\((?:Added|Amended|Repealed)[^)]*?Stats\.\s*\d{4}[^)]*\)`),
	regexp.MustCompile(`(?is)\((?:Added|Amended|Repealed) by[^)]*?Effective[^)]*\)`),
}

func (c *California) parse(doc *goquery.Document, code, number, sourceURL string) (*models.Section, error) {
	content := doc.Find("div#codeLawSectionNoHead, div.displaycodeleftmargin, div#codeLawContent").First()
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}

	text := normalizeText(content.Text())
	if text == "" || strings.Contains(strings.ToLower(text), "code section not found") {
		return nil, ErrSectionNotFound
	}

	// Structural headings read "DIVISION 2. OTHER TAXES", "CHAPTER 1. ...".
	structure := func(level string) string {
		pattern := regexp.MustCompile(level + `\s+(\d+)`)
		found := ""
		content.Find("h4, h5").EachWithBreak(func(_ int, h *goquery.Selection) bool {
			if m := pattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(h.Text()))); m != nil {
				found = m[1]
				return false
			}
			return true
		})
		return found
	}
	chapter := structure("CHAPTER")
	part := structure("PART")

	// Section heading is an h6 with the number; title is the first
	// sentence of the following paragraph when it is short enough.
	sectionTitle := "Section " + number
	h6 := content.Find("h6").First()
	if h6.Length() > 0 {
		para := strings.TrimSpace(h6.NextFiltered("p").Text())
		if para != "" {
			first, _, _ := strings.Cut(para, ".")
			if len(first) > 0 && len(first) < 200 {
				sectionTitle = strings.TrimSpace(first)
			}
		}
	}

	var history string
	for _, p := range caHistoryPatterns {
		if m := p.FindString(text); m != "" {
			history = m
			break
		}
	}

	subsections, intro := hier.Parse(text, caScheme)

	var titleNum int
	if fields := strings.FieldsFunc(number, func(r rune) bool {
		return r < '0' || r > '9'
	}); len(fields) > 0 {
		titleNum, _ = strconv.Atoi(fields[0])
	}

	var chapterName, partName string
	if chapter != "" {
		chapterName = "Chapter " + chapter
	}
	if part != "" {
		partName = "Part " + part
	}

	return &models.Section{
		Citation:     models.Citation{Title: titleNum, Section: code + ":" + number},
		Jurisdiction: "us-ca",
		TitleName:    "California " + caCodes[code],
		SectionTitle: sectionTitle,
		Text:         intro,
		Subsections:  subsections,
		Chapter:      chapterName,
		Part:         partName,
		History:      history,
		SourceURL:    sourceURL,
		RetrievedAt:  time.Now().UTC(),
	}, nil
}

// SectionNumbers is not supported for California: leginfo's table of
// contents is rendered client side, so section lists must be supplied
// explicitly in the ingest config.
func (c *California) SectionNumbers(ctx context.Context, unit string) ([]string, error) {
	return nil, fmt.Errorf("california: section listing for %q not supported, list sections explicitly", unit)
}
