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

// Florida Statutes, leg.state.fl.us ("Online Sunshine"). Chapters live in
// 100-chapter URL range folders; section pages carry Catchline /
// SectionBody / History CSS classes. Markers run (1) -> (a) -> 1.
const flBaseURL = "https://www.leg.state.fl.us/statutes"

var flScheme = hier.Scheme{Levels: []hier.Kind{hier.ParenDigit, hier.ParenLower, hier.DigitDot}}

// flChapterTitles names the chapters this archive tracks; anything else
// renders as "Chapter N".
var flChapterTitles = map[int]string{
	192: "Taxation: General Provisions",
	196: "Exemption",
	198: "Estate Taxes",
	212: "Tax on Sales, Use, and Other Transactions",
	220: "Income Tax Code",
	409: "Social and Economic Assistance",
	414: "Family Self-Sufficiency",
	420: "Housing",
}

func init() {
	Register("us-fl", "html", func(f *fetcher.Fetcher) Converter {
		return &Florida{fetcher: f}
	})
}

type Florida struct {
	fetcher *fetcher.Fetcher
	baseURL string
}

func (c *Florida) Jurisdiction() string { return "us-fl" }
func (c *Florida) Format() string       { return "html" }

func (c *Florida) base() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return flBaseURL
}

// urlRange returns the 100-chapter folder for a chapter: 220 -> 0200-0299.
func urlRange(chapter int) string {
	lower := (chapter / 100) * 100
	return fmt.Sprintf("%04d-%04d", lower, lower+99)
}

func (c *Florida) sectionURL(sectionNumber string) (string, error) {
	chapterStr, suffix, ok := strings.Cut(sectionNumber, ".")
	if !ok {
		return "", fmt.Errorf("malformed Florida section number %q", sectionNumber)
	}
	chapter, err := strconv.Atoi(chapterStr)
	if err != nil {
		return "", fmt.Errorf("malformed Florida section number %q", sectionNumber)
	}

	return fmt.Sprintf(
		"%s/index.cfm?App_mode=Display_Statute&URL=%s/%04d/Sections/%04d.%s.html",
		c.base(), urlRange(chapter), chapter, chapter, suffix,
	), nil
}

func (c *Florida) chapterContentsURL(chapter int) string {
	return fmt.Sprintf(
		"%s/index.cfm?App_mode=Display_Statute&URL=%s/%04d/%04dContentsIndex.html",
		c.base(), urlRange(chapter), chapter, chapter,
	)
}

func (c *Florida) Section(ctx context.Context, sectionNumber string) (*models.Section, error) {
	url, err := c.sectionURL(sectionNumber)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-fl", Citation: sectionNumber, Err: err}
	}

	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: "us-fl", Citation: sectionNumber, URL: url, Err: err}
	}

	section, err := c.Parse(body, sectionNumber, url)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-fl", Citation: sectionNumber, URL: url, Err: err}
	}
	return section, nil
}

var flHistoryPattern = regexp.MustCompile(`History\.[-—–](.+)`)

// Parse converts an Online Sunshine section page into a Section.
func (c *Florida) Parse(raw []byte, sectionNumber, sourceURL string) (*models.Section, error) {
	lower := strings.ToLower(string(raw))
	if strings.Contains(lower, "cannot be found") || strings.Contains(lower, "not found") {
		return nil, ErrSectionNotFound
	}

	doc, err := newDocument(raw)
	if err != nil {
		return nil, err
	}

	chapterStr, _, _ := strings.Cut(sectionNumber, ".")
	chapter, err := strconv.Atoi(chapterStr)
	if err != nil {
		return nil, fmt.Errorf("malformed Florida section number %q", sectionNumber)
	}
	chapterTitle := flChapterTitles[chapter]
	if chapterTitle == "" {
		chapterTitle = fmt.Sprintf("Chapter %d", chapter)
	}

	content := doc.Find("div.Section").First()
	if content.Length() == 0 {
		// Older chapter pages render everything in the body.
		content = doc.Find("body").First()
	}
	content.Find("nav,script,style,header,footer").Remove()

	sectionTitle := normalizeText(content.Find("span.Catchline span.CatchlineText").First().Text())
	if sectionTitle == "" {
		// Heading pattern "220.02 Legislative intent.--" outside a catchline.
		titlePattern := regexp.MustCompile(regexp.QuoteMeta(sectionNumber) + `\s+(.+?)\.?\s*[-—–]`)
		if m := titlePattern.FindStringSubmatch(content.Text()); m != nil {
			sectionTitle = strings.TrimSpace(m[1])
		}
	}
	if sectionTitle == "" {
		sectionTitle = "Section " + sectionNumber
	}

	var text string
	var subsections []models.Subsection
	sectionBody := content.Find("span.SectionBody").First()
	if sectionBody.Length() > 0 {
		subsections = c.parseStructured(sectionBody)
		text = normalizeText(sectionBody.Find("span.Text").First().Text())
		if len(subsections) == 0 {
			subsections, text = hier.Parse(normalizeText(sectionBody.Text()), flScheme)
		}
	} else {
		subsections, text = hier.Parse(normalizeText(content.Text()), flScheme)
	}

	history := normalizeText(doc.Find("span.History, p.History").First().Text())
	if history == "" {
		if m := flHistoryPattern.FindStringSubmatch(content.Text()); m != nil {
			history = strings.TrimSpace(m[1])
		}
	}
	if len(history) > 1000 {
		history = history[:1000]
	}

	var titleName string
	switch {
	case 192 <= chapter && chapter <= 220:
		titleName = "Taxation and Finance"
	case 409 <= chapter && chapter <= 430:
		titleName = "Social Welfare"
	}

	return &models.Section{
		Citation:     models.Citation{Title: chapter, Section: sectionNumber},
		Jurisdiction: "us-fl",
		TitleName:    titleName,
		SectionTitle: sectionTitle,
		Text:         text,
		Subsections:  subsections,
		Chapter:      chapterTitle,
		History:      strings.TrimPrefix(history, "History."),
		SourceURL:    sourceURL,
		RetrievedAt:  time.Now().UTC(),
	}, nil
}

// flLevelClasses maps nesting depth to the CSS class Online Sunshine uses
// for that level's divs.
var flLevelClasses = []string{"Subsection", "Paragraph", "SubParagraph", "SubSubParagraph"}

var flMarkerToken = regexp.MustCompile(`^\(?([a-zA-Z0-9]+)[).\s]`)

// parseStructured walks the CSS-classed subsection divs when the page has
// them; the text fallback only runs for legacy markup.
func (c *Florida) parseStructured(body *goquery.Selection) []models.Subsection {
	return c.parseLevelDivs(body, 0)
}

func (c *Florida) parseLevelDivs(parent *goquery.Selection, level int) []models.Subsection {
	class := flLevelClasses[min(level, len(flLevelClasses)-1)]

	var subs []models.Subsection
	parent.ChildrenFiltered("div." + class).Each(func(_ int, div *goquery.Selection) {
		num := strings.TrimSpace(div.Find("span.Number").First().Text())
		m := flMarkerToken.FindStringSubmatch(num)
		if m == nil {
			return
		}

		text := normalizeText(div.Find("span.Text").First().Text())
		if text == "" {
			text = normalizeText(div.Find("span.Content").First().Text())
		}
		if len(text) > hier.DefaultTextLimit {
			text = text[:hier.DefaultTextLimit]
		}

		subs = append(subs, models.Subsection{
			Identifier: m[1],
			Text:       text,
			Children:   c.parseLevelDivs(div, level+1),
		})
	})
	return subs
}

var flSectionLink = regexp.MustCompile(`Sections/(\d{4}\.\d+[A-Za-z]*)\.html`)

// SectionNumbers lists the sections in a chapter from its contents index.
func (c *Florida) SectionNumbers(ctx context.Context, unit string) ([]string, error) {
	chapter, err := strconv.Atoi(unit)
	if err != nil {
		return nil, fmt.Errorf("malformed Florida chapter %q", unit)
	}

	url := c.chapterContentsURL(chapter)
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-fl", Citation: unit, URL: url, Err: err}
	}

	seen := make(map[string]bool)
	var numbers []string
	for _, m := range flSectionLink.FindAllStringSubmatch(string(body), -1) {
		// Links use zero-padded chapters: 0220.02 -> 220.02.
		num := strings.TrimLeft(m[1], "0")
		if !seen[num] {
			seen[num] = true
			numbers = append(numbers, num)
		}
	}
	return numbers, nil
}
