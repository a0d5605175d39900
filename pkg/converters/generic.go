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

// StateConfig drives the generic HTML state converter. Most state
// legislature sites differ only in URL shape, heading pattern, and
// subsection marker order; everything else is shared.
type StateConfig struct {
	Jurisdiction string
	TitleName    string
	Scheme       hier.Scheme

	// SectionURL builds the page URL for a section number.
	SectionURL func(base, section string) (string, error)
	// ListURL builds the listing URL for a unit (usually a chapter).
	ListURL func(base, unit string) (string, error)
	// ListPattern extracts section numbers from the listing page. The
	// unit is substituted for {unit} before compiling.
	ListPattern string
	// ListTransform maps a listing match to a full citation. Nil keeps
	// the match as is.
	ListTransform func(unit, match string) string

	// SectionLabel is the number as it appears in page headings, when
	// that differs from the citation form. Nil uses the citation.
	SectionLabel func(section string) string

	// TitlePatterns locate the section heading; {section} is replaced
	// with the quoted section number. First submatch wins.
	TitlePatterns []string

	// ContentSelector narrows the page to statute text. Empty means the
	// usual main/article/body fallback chain.
	ContentSelector string

	// NotFoundMarkers flag soft-404 pages.
	NotFoundMarkers []string

	// ChapterOf derives the chapter identifier from a section number.
	// Nil means everything before the first dot.
	ChapterOf func(section string) string

	baseURL string
}

// GenericState is the shared implementation behind the config-driven
// state converters.
type GenericState struct {
	fetcher *fetcher.Fetcher
	cfg     StateConfig
}

// RegisterState wires a StateConfig into the converter registry.
func RegisterState(cfg StateConfig) {
	Register(cfg.Jurisdiction, "html", func(f *fetcher.Fetcher) Converter {
		return &GenericState{fetcher: f, cfg: cfg}
	})
}

func (c *GenericState) Jurisdiction() string { return c.cfg.Jurisdiction }
func (c *GenericState) Format() string       { return "html" }

func (c *GenericState) chapterOf(section string) string {
	if c.cfg.ChapterOf != nil {
		return c.cfg.ChapterOf(section)
	}
	chapter, _, _ := strings.Cut(section, ".")
	return chapter
}

func (c *GenericState) Section(ctx context.Context, sectionNumber string) (*models.Section, error) {
	url, err := c.cfg.SectionURL(c.cfg.baseURL, sectionNumber)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: c.cfg.Jurisdiction, Citation: sectionNumber, Err: err}
	}

	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: c.cfg.Jurisdiction, Citation: sectionNumber, URL: url, Err: err}
	}

	section, err := c.Parse(body, sectionNumber, url)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: c.cfg.Jurisdiction, Citation: sectionNumber, URL: url, Err: err}
	}
	return section, nil
}

func (c *GenericState) Parse(raw []byte, sectionNumber, sourceURL string) (*models.Section, error) {
	page := strings.ToLower(string(raw))
	for _, marker := range c.cfg.NotFoundMarkers {
		if strings.Contains(page, marker) {
			return nil, ErrSectionNotFound
		}
	}

	doc, err := newDocument(raw)
	if err != nil {
		return nil, err
	}

	selector := c.cfg.ContentSelector
	if selector == "" {
		selector = "main, article, div.content"
	}
	content := doc.Find(selector).First()
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}
	content.Find("nav,script,style,header,footer,aside").Remove()
	text := normalizeText(content.Text())

	label := sectionNumber
	if c.cfg.SectionLabel != nil {
		label = c.cfg.SectionLabel(sectionNumber)
	}
	quoted := regexp.QuoteMeta(label)

	// Headings are tried before the flattened text, which tends to run
	// the title into the first sentence of the body.
	var candidates []string
	doc.Find("h1, h2, h3").Each(func(_ int, h *goquery.Selection) {
		if t := normalizeText(h.Text()); t != "" {
			candidates = append(candidates, t)
		}
	})
	candidates = append(candidates, text)

	sectionTitle := ""
	for _, tmpl := range c.cfg.TitlePatterns {
		p, err := regexp.Compile(strings.ReplaceAll(tmpl, "{section}", quoted))
		if err != nil {
			return nil, fmt.Errorf("bad title pattern %q: %w", tmpl, err)
		}
		for _, candidate := range candidates {
			if m := p.FindStringSubmatch(candidate); m != nil {
				sectionTitle = strings.TrimSpace(m[1])
				break
			}
		}
		if sectionTitle != "" {
			break
		}
	}
	if sectionTitle == "" {
		sectionTitle = "Section " + sectionNumber
	}

	subsections, intro := hier.Parse(text, c.cfg.Scheme)

	chapter := c.chapterOf(sectionNumber)
	titleNum, _ := strconv.Atoi(strings.TrimFunc(chapter, func(r rune) bool {
		return r < '0' || r > '9'
	}))

	return &models.Section{
		Citation:     models.Citation{Title: titleNum, Section: sectionNumber},
		Jurisdiction: c.cfg.Jurisdiction,
		TitleName:    c.cfg.TitleName,
		SectionTitle: sectionTitle,
		Text:         intro,
		Subsections:  subsections,
		Chapter:      "Chapter " + chapter,
		SourceURL:    sourceURL,
		RetrievedAt:  time.Now().UTC(),
	}, nil
}

func (c *GenericState) SectionNumbers(ctx context.Context, unit string) ([]string, error) {
	if c.cfg.ListURL == nil || c.cfg.ListPattern == "" {
		return nil, fmt.Errorf("%s: section listing not supported", c.cfg.Jurisdiction)
	}

	url, err := c.cfg.ListURL(c.cfg.baseURL, unit)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: c.cfg.Jurisdiction, Citation: unit, Err: err}
	}

	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: c.cfg.Jurisdiction, Citation: unit, URL: url, Err: err}
	}

	pattern, err := regexp.Compile(strings.ReplaceAll(c.cfg.ListPattern, "{unit}", regexp.QuoteMeta(unit)))
	if err != nil {
		return nil, fmt.Errorf("bad list pattern: %w", err)
	}

	seen := make(map[string]bool)
	var numbers []string
	for _, m := range pattern.FindAllStringSubmatch(string(body), -1) {
		citation := m[1]
		if c.cfg.ListTransform != nil {
			citation = c.cfg.ListTransform(unit, citation)
		}
		if !seen[citation] {
			seen[citation] = true
			numbers = append(numbers, citation)
		}
	}
	return numbers, nil
}

// Configs for the states whose sites fit the generic shape.

func ohioConfig() StateConfig {
	return StateConfig{
		Jurisdiction: "us-oh",
		TitleName:    "Ohio Revised Code",
		Scheme:       hier.Scheme{Levels: []hier.Kind{hier.ParenUpper, hier.ParenDigit, hier.ParenLower, hier.ParenRomanLower}},
		baseURL:      "https://codes.ohio.gov",
		SectionURL: func(base, section string) (string, error) {
			return base + "/ohio-revised-code/section-" + section, nil
		},
		ListURL: func(base, unit string) (string, error) {
			return base + "/ohio-revised-code/chapter-" + unit, nil
		},
		ListPattern: `/ohio-revised-code/section-({unit}\.\d+[A-Za-z]?)`,
		TitlePatterns: []string{
			`Section {section}\s*\|\s*([^.]+)`,
			`{section}\s+([^.]+)`,
		},
		NotFoundMarkers: []string{"page not found", "the section you requested"},
	}
}

func northCarolinaConfig() StateConfig {
	return StateConfig{
		Jurisdiction: "us-nc",
		TitleName:    "North Carolina General Statutes",
		Scheme:       hier.Scheme{Levels: []hier.Kind{hier.ParenLower, hier.ParenDigit, hier.ParenLower}},
		baseURL:      "https://www.ncleg.gov/EnactedLegislation/Statutes/HTML",
		SectionURL: func(base, section string) (string, error) {
			chapter, _, ok := strings.Cut(section, "-")
			if !ok {
				return "", fmt.Errorf("malformed North Carolina section number %q", section)
			}
			return fmt.Sprintf("%s/BySection/Chapter_%s/GS_%s.html", base, chapter, section), nil
		},
		ListURL: func(base, unit string) (string, error) {
			return fmt.Sprintf("%s/ByChapter/Chapter_%s.html", base, unit), nil
		},
		ListPattern: `§\s*({unit}-[\d]+(?:\.[\d]+)?)`,
		TitlePatterns: []string{
			`§\s*{section}\.\s+([^.]+)`,
		},
		NotFoundMarkers: []string{"repealed by session laws", "file not found"},
		ChapterOf: func(section string) string {
			chapter, _, _ := strings.Cut(section, "-")
			return chapter
		},
	}
}

func pennsylvaniaConfig() StateConfig {
	return StateConfig{
		Jurisdiction: "us-pa",
		TitleName:    "Pennsylvania Consolidated Statutes",
		Scheme:       hier.Scheme{Levels: []hier.Kind{hier.ParenLower, hier.ParenDigit, hier.ParenRomanLower}},
		baseURL:      "https://www.palegis.us/statutes/consolidated",
		// Citations are "title:section", e.g. "72:3116".
		SectionURL: func(base, section string) (string, error) {
			title, num, ok := strings.Cut(section, ":")
			if !ok {
				return "", fmt.Errorf("Pennsylvania citation %q needs the form title:section", section)
			}
			return fmt.Sprintf("%s/view-statute?txtType=HTM&ttl=%s&sctn=%s&iFrame=true", base, title, num), nil
		},
		ListURL: func(base, unit string) (string, error) {
			return fmt.Sprintf("%s/view-statute?txtType=HTM&ttl=%s&iFrame=true", base, unit), nil
		},
		ListPattern: `§\s*(\d+[A-Za-z]?(?:\.\d+)?)\.\s`,
		ListTransform: func(unit, match string) string {
			return unit + ":" + match
		},
		SectionLabel: func(section string) string {
			_, num, ok := strings.Cut(section, ":")
			if !ok {
				return section
			}
			return num
		},
		TitlePatterns: []string{
			`§\s*{section}\.\s+([^.]+)`,
		},
		NotFoundMarkers: []string{"no statute text found"},
		ChapterOf: func(section string) string {
			title, _, ok := strings.Cut(section, ":")
			if !ok {
				return section
			}
			return title
		},
	}
}

func illinoisConfig() StateConfig {
	return StateConfig{
		Jurisdiction: "us-il",
		TitleName:    "Illinois Compiled Statutes",
		Scheme:       hier.Scheme{Levels: []hier.Kind{hier.ParenLower, hier.ParenDigit, hier.ParenUpper}},
		baseURL:      "https://www.ilga.gov",
		// Citations are "chapter/act/section", e.g. "35/5/201" for
		// 35 ILCS 5/201.
		SectionURL: func(base, section string) (string, error) {
			parts := strings.SplitN(section, "/", 3)
			if len(parts) != 3 {
				return "", fmt.Errorf("Illinois citation %q needs the form chapter/act/section", section)
			}
			doc := fmt.Sprintf("%03d%04d0K%s", mustAtoi(parts[0]), mustAtoi(parts[1]), parts[2])
			return base + "/Documents/legislation/ilcs/documents/" + doc + ".htm", nil
		},
		SectionLabel: func(section string) string {
			if i := strings.LastIndex(section, "/"); i >= 0 {
				return section[i+1:]
			}
			return section
		},
		TitlePatterns: []string{
			`Sec\.\s*{section}\.\s+([^.]+)`,
		},
		NotFoundMarkers: []string{"document not found"},
		ChapterOf: func(section string) string {
			chapter, _, _ := strings.Cut(section, "/")
			return chapter
		},
	}
}

func michiganConfig() StateConfig {
	return StateConfig{
		Jurisdiction: "us-mi",
		TitleName:    "Michigan Compiled Laws",
		Scheme:       hier.Scheme{Levels: []hier.Kind{hier.ParenDigit, hier.ParenLower, hier.ParenRomanLower}},
		baseURL:      "https://www.legislature.mi.gov",
		// MCL citations are "206.30"; page slugs replace the dot.
		SectionURL: func(base, section string) (string, error) {
			chapter, num, ok := strings.Cut(section, ".")
			if !ok {
				return "", fmt.Errorf("malformed Michigan section number %q", section)
			}
			return fmt.Sprintf("%s/Laws/MCL?objectName=mcl-%s-%s", base, chapter, num), nil
		},
		ListURL: func(base, unit string) (string, error) {
			return fmt.Sprintf("%s/Laws/MCL?objectName=mcl-chap%s", base, unit), nil
		},
		ListPattern: `mcl-({unit}-\d+[a-z]?)\b`,
		ListTransform: func(unit, match string) string {
			return strings.Replace(match, "-", ".", 1)
		},
		TitlePatterns: []string{
			`{section}\s+([^;.]+)`,
		},
		NotFoundMarkers: []string{"object not found"},
	}
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func init() {
	RegisterState(ohioConfig())
	RegisterState(northCarolinaConfig())
	RegisterState(pennsylvaniaConfig())
	RegisterState(illinoisConfig())
	RegisterState(michiganConfig())
}
