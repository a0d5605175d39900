package converters

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/RulesFoundation/atlas/models"
	"github.com/RulesFoundation/atlas/pkg/fetcher"
	"github.com/RulesFoundation/atlas/pkg/hier"
)

// Texas Statutes via texas.public.law. Citations carry a code prefix:
// "TX:151.001" is Tax Code section 151.001, "HR:31.001" is Human
// Resources Code. Markers run (a) -> (1) -> (A) -> (i).
const txBaseURL = "https://texas.public.law/statutes"

var txScheme = hier.Scheme{Levels: []hier.Kind{hier.ParenLower, hier.ParenDigit, hier.ParenUpper, hier.ParenRomanLower}}

// txCodes maps code abbreviations to the names texas.public.law uses in
// URL slugs.
var txCodes = map[string]string{
	"TX": "tax_code",
	"HR": "human_resources_code",
	"FA": "family_code",
	"GV": "government_code",
	"HS": "health_and_safety_code",
	"ED": "education_code",
	"LA": "labor_code",
	"IN": "insurance_code",
	"PR": "property_code",
}

var txTaxChapters = map[int]string{
	151: "Limited Sales, Excise, and Use Tax",
	152: "Taxes on Sale, Rental, and Use of Motor Vehicles",
	171: "Franchise Tax",
}

var txWelfareChapters = map[int]string{
	31: "Financial Assistance and Service Programs",
	32: "Medical Assistance Program",
	33: "Nutritional Assistance Programs",
}

func init() {
	Register("us-tx", "html", func(f *fetcher.Fetcher) Converter {
		return &Texas{fetcher: f}
	})
}

type Texas struct {
	fetcher *fetcher.Fetcher
	baseURL string
}

func (c *Texas) Jurisdiction() string { return "us-tx" }
func (c *Texas) Format() string       { return "html" }

func (c *Texas) base() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return txBaseURL
}

// splitTexasCitation resolves "TX:151.001" into the URL code name and the
// bare section number. A missing prefix defaults to the Tax Code.
func splitTexasCitation(citation string) (code, codeName, number string, err error) {
	code, number, ok := strings.Cut(citation, ":")
	if !ok {
		code, number = "TX", citation
	}
	code = strings.ToUpper(code)
	codeName, ok = txCodes[code]
	if !ok {
		return "", "", "", fmt.Errorf("unknown Texas code %q", code)
	}
	return code, codeName, number, nil
}

func (c *Texas) Section(ctx context.Context, citation string) (*models.Section, error) {
	code, codeName, number, err := splitTexasCitation(citation)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-tx", Citation: citation, Err: err}
	}

	url := fmt.Sprintf("%s/tex._%s_section_%s", c.base(), codeName, number)
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: "us-tx", Citation: citation, URL: url, Err: err}
	}

	section, err := c.parse(body, code, number, url)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-tx", Citation: citation, URL: url, Err: err}
	}
	return section, nil
}

var (
	txActsPattern    = regexp.MustCompile(`(?is)(Acts\s+\d{4}.*?)(?:\n\n|\z)`)
	txAmendedPattern = regexp.MustCompile(`(?is)Amended by:\s*(.+?)(?:\n\n|\z)`)
)

func (c *Texas) parse(raw []byte, code, number, sourceURL string) (*models.Section, error) {
	doc, err := newDocument(raw)
	if err != nil {
		return nil, err
	}

	// public.law serves a real 404 page with an error title; body text
	// alone is unreliable because script URLs contain digits.
	pageTitle := strings.ToLower(doc.Find("title").First().Text())
	if strings.Contains(pageTitle, "not found") || strings.Contains(pageTitle, "404") ||
		strings.Contains(pageTitle, "error") {
		return nil, ErrSectionNotFound
	}

	chapterStr, _, _ := strings.Cut(number, ".")
	chapter, err := strconv.Atoi(chapterStr)
	if err != nil {
		return nil, fmt.Errorf("malformed Texas section number %q", number)
	}

	var chapterTitle string
	switch code {
	case "TX":
		chapterTitle = txTaxChapters[chapter]
	case "HR":
		chapterTitle = txWelfareChapters[chapter]
	}
	if chapterTitle == "" {
		chapterTitle = fmt.Sprintf("Chapter %d", chapter)
	}

	// h1 reads "Tex. Tax Code Section 151.001 Short Title".
	sectionTitle := ""
	h1 := strings.TrimSpace(doc.Find("h1").First().Text())
	if m := regexp.MustCompile(`(?i)Section\s+` + regexp.QuoteMeta(number) + `\s+(.+)`).FindStringSubmatch(h1); m != nil {
		sectionTitle = strings.TrimSpace(m[1])
	} else if m := regexp.MustCompile(regexp.QuoteMeta(number) + `\s+(.+)`).FindStringSubmatch(h1); m != nil {
		sectionTitle = strings.TrimSpace(m[1])
	}
	if sectionTitle == "" {
		sectionTitle = "Section " + number
	}

	content := doc.Find("main, article, div.content").First()
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}
	content.Find("nav,script,style,header,footer,aside").Remove()
	rawText := content.Text()
	text := normalizeText(rawText)

	var history string
	if m := txActsPattern.FindStringSubmatch(rawText); m != nil {
		history = strings.TrimSpace(m[1])
		if len(history) > 2000 {
			history = history[:2000]
		}
	}
	if m := txAmendedPattern.FindStringSubmatch(rawText); m != nil {
		amended := strings.TrimSpace(m[1])
		if len(amended) > 1000 {
			amended = amended[:1000]
		}
		if history != "" {
			history += "\n" + amended
		} else {
			history = amended
		}
	}

	subsections, intro := hier.Parse(text, txScheme)

	codeDisplay := titleCase(strings.ReplaceAll(txCodes[code], "_", " "))

	return &models.Section{
		Citation:     models.Citation{Title: chapter, Section: code + ":" + number},
		Jurisdiction: "us-tx",
		TitleName:    "Texas " + codeDisplay,
		SectionTitle: sectionTitle,
		Text:         intro,
		Subsections:  subsections,
		Chapter:      chapterTitle,
		History:      history,
		SourceURL:    sourceURL,
		RetrievedAt:  time.Now().UTC(),
	}, nil
}

// SectionNumbers lists the sections in a chapter. The unit is
// "CODE:chapter", e.g. "TX:151".
func (c *Texas) SectionNumbers(ctx context.Context, unit string) ([]string, error) {
	code, codeName, chapter, err := splitTexasCitation(unit)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-tx", Citation: unit, Err: err}
	}

	url := fmt.Sprintf("%s/tex._%s_chapter_%s", c.base(), codeName, chapter)
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-tx", Citation: unit, URL: url, Err: err}
	}

	pattern := regexp.MustCompile(`tex\._` + regexp.QuoteMeta(codeName) + `_section_(\d+\.\d+[A-Za-z]?)`)
	seen := make(map[string]bool)
	var numbers []string
	for _, m := range pattern.FindAllStringSubmatch(string(body), -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			numbers = append(numbers, code+":"+m[1])
		}
	}
	sort.Strings(numbers)
	return numbers, nil
}
