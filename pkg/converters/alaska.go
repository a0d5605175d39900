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

// Alaska Statutes, akleg.gov. Sections come from the print API
// (statutes.asp?media=print) and chapter listings from the TOC AJAX
// endpoint. Markers run (a) -> (1) -> (A).
const akBaseURL = "https://www.akleg.gov/basis"

var akScheme = hier.Scheme{Levels: []hier.Kind{hier.ParenLower, hier.ParenDigit, hier.ParenUpper}}

var akTitles = map[int]string{
	43: "Revenue and Taxation",
	44: "State Government",
	45: "Trade and Commerce",
	47: "Welfare, Social Services, and Institutions",
}

var akChapterTitles = map[string]string{
	"43.05": "Administration of Revenue Laws",
	"43.20": "Alaska Net Income Tax Act",
	"43.23": "Permanent Fund Dividends",
	"47.07": "Medical Assistance for Needy Persons",
	"47.12": "Alaska Temporary Assistance Program",
	"47.25": "Child Support Services Agency",
}

func init() {
	Register("us-ak", "html", func(f *fetcher.Fetcher) Converter {
		return &Alaska{fetcher: f}
	})
}

type Alaska struct {
	fetcher *fetcher.Fetcher
	baseURL string
}

func (c *Alaska) Jurisdiction() string { return "us-ak" }
func (c *Alaska) Format() string       { return "html" }

func (c *Alaska) base() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return akBaseURL
}

// splitSectionNumber breaks "43.05.010" into title, chapter, suffix.
func splitSectionNumber(sectionNumber string) (int, string, string, error) {
	parts := strings.SplitN(sectionNumber, ".", 3)
	if len(parts) < 3 {
		return 0, "", "", fmt.Errorf("malformed Alaska section number %q", sectionNumber)
	}
	title, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", "", fmt.Errorf("malformed Alaska section number %q", sectionNumber)
	}
	return title, parts[1], parts[2], nil
}

func (c *Alaska) sectionURL(sectionNumber string) string {
	return fmt.Sprintf("%s/statutes.asp?media=print&secStart=%s&secEnd=%s",
		c.base(), sectionNumber, sectionNumber)
}

func (c *Alaska) Section(ctx context.Context, sectionNumber string) (*models.Section, error) {
	url := c.sectionURL(sectionNumber)
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: "us-ak", Citation: sectionNumber, URL: url, Err: err}
	}

	section, err := c.Parse(body, sectionNumber, url)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-ak", Citation: sectionNumber, URL: url, Err: err}
	}
	return section, nil
}

var akHistoryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`History[.:]\s*(.+?)(?:\n|$)`),
	regexp.MustCompile(`\(([Ss]ec\.\s+\d+.*?ch\.\s+\d+.*?SLA[^)]*)\)`),
}

func (c *Alaska) Parse(raw []byte, sectionNumber, sourceURL string) (*models.Section, error) {
	lower := strings.ToLower(string(raw))
	if strings.Contains(lower, "cannot be found") || strings.Contains(lower, "not found") {
		return nil, ErrSectionNotFound
	}

	titleNum, chapter, _, err := splitSectionNumber(sectionNumber)
	if err != nil {
		return nil, err
	}

	doc, err := newDocument(raw)
	if err != nil {
		return nil, err
	}
	content := doc.Find("div.statute, div.section, div#content, article, main").First()
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}
	content.Find("nav,script,style,header,footer").Remove()
	text := normalizeText(content.Text())

	// Heading pattern "Sec. 43.05.010. Duties of the department."
	sectionTitle := ""
	titlePatterns := []*regexp.Regexp{
		regexp.MustCompile(`Sec\.\s*` + regexp.QuoteMeta(sectionNumber) + `\.\s*([^.]+)`),
		regexp.MustCompile(`AS\s*` + regexp.QuoteMeta(sectionNumber) + `\s*[.:]\s*([^.]+)`),
		regexp.MustCompile(regexp.QuoteMeta(sectionNumber) + `\s+([^.]+)`),
	}
	for _, p := range titlePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			sectionTitle = strings.TrimSpace(m[1])
			break
		}
	}
	if sectionTitle == "" {
		sectionTitle = "Section " + sectionNumber
	}

	var history string
	for _, p := range akHistoryPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			history = strings.TrimSpace(m[1])
			break
		}
	}
	if len(history) > 1000 {
		history = history[:1000]
	}

	titleName := akTitles[titleNum]
	if titleName == "" {
		titleName = fmt.Sprintf("Title %d", titleNum)
	}
	chapterTitle := akChapterTitles[fmt.Sprintf("%d.%s", titleNum, chapter)]
	if chapterTitle == "" {
		chapterTitle = "Chapter " + chapter
	}

	subsections, intro := hier.Parse(text, akScheme)

	return &models.Section{
		Citation:     models.Citation{Title: titleNum, Section: sectionNumber},
		Jurisdiction: "us-ak",
		TitleName:    "Alaska Statutes - " + titleName,
		SectionTitle: sectionTitle,
		Text:         intro,
		Subsections:  subsections,
		Chapter:      chapterTitle,
		History:      history,
		SourceURL:    sourceURL,
		RetrievedAt:  time.Now().UTC(),
	}, nil
}

// TOC entries look like: #43.23.005 >Sec. 43.23.005.   Eligibility.<
var akTOCEntry = regexp.MustCompile(`#(\d+\.\d+\.\d+[A-Za-z]?)[^>]*>Sec\.\s+[\d.]+[A-Za-z]?\.\s+([^<]+)<`)

// SectionNumbers lists sections in a chapter ("43.05") via the TOC API.
// Repealed and renumbered entries are skipped.
func (c *Alaska) SectionNumbers(ctx context.Context, unit string) ([]string, error) {
	url := fmt.Sprintf("%s/statutes.asp?media=js&type=TOC&title=%s", c.base(), unit)
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-ak", Citation: unit, URL: url, Err: err}
	}

	seen := make(map[string]bool)
	var numbers []string
	for _, m := range akTOCEntry.FindAllStringSubmatch(string(body), -1) {
		title := strings.TrimSpace(m[2])
		if strings.Contains(title, "[Repealed") || strings.Contains(title, "[Renumbered") {
			continue
		}
		if !seen[m[1]] {
			seen[m[1]] = true
			numbers = append(numbers, m[1])
		}
	}
	sort.Strings(numbers)
	return numbers, nil
}
