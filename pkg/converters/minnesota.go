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

// Minnesota Statutes, revisor.mn.gov. Sections are numbered "290.01" and
// divided into subdivisions; each subdivision div carries its number in
// the element id ("stat.290.01.19" -> subdivision 19) and paragraph
// markers (a)/(1)/(i) inside.
const mnBaseURL = "https://www.revisor.mn.gov/statutes"

var mnScheme = hier.Scheme{Levels: []hier.Kind{hier.ParenLower, hier.ParenDigit, hier.ParenRomanLower}}

func init() {
	Register("us-mn", "html", func(f *fetcher.Fetcher) Converter {
		return &Minnesota{fetcher: f}
	})
}

type Minnesota struct {
	fetcher *fetcher.Fetcher
	baseURL string
}

func (c *Minnesota) Jurisdiction() string { return "us-mn" }
func (c *Minnesota) Format() string       { return "html" }

func (c *Minnesota) base() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return mnBaseURL
}

func (c *Minnesota) Section(ctx context.Context, sectionNumber string) (*models.Section, error) {
	url := fmt.Sprintf("%s/cite/%s", c.base(), sectionNumber)
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: "us-mn", Citation: sectionNumber, URL: url, Err: err}
	}

	section, err := c.Parse(body, sectionNumber, url)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-mn", Citation: sectionNumber, URL: url, Err: err}
	}
	return section, nil
}

var mnSubdID = regexp.MustCompile(`\.(\d+[a-z]?)$`)

func (c *Minnesota) Parse(raw []byte, sectionNumber, sourceURL string) (*models.Section, error) {
	doc, err := newDocument(raw)
	if err != nil {
		return nil, err
	}

	xtend := doc.Find("div#xtend.statute").First()
	if xtend.Length() == 0 {
		xtend = doc.Find("div#xtend").First()
	}
	if xtend.Length() == 0 {
		return nil, ErrSectionNotFound
	}

	// "609.75 DEFINITIONS." style heading.
	sectionTitle := strings.TrimSpace(xtend.Find("h1.shn").First().Text())
	sectionTitle = strings.TrimPrefix(sectionTitle, sectionNumber)
	sectionTitle = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sectionTitle), "."))
	if sectionTitle == "" {
		sectionTitle = "Section " + sectionNumber
	}

	if sr := xtend.Find("div.sr").First(); sr.Length() > 0 {
		if strings.Contains(sr.Text(), "Repealed") {
			return nil, fmt.Errorf("section %s repealed: %w", sectionNumber, ErrSectionNotFound)
		}
	}

	sectionDiv := xtend.Find("div.section").First()
	if sectionDiv.Length() == 0 {
		sectionDiv = xtend
	}

	// Direct text: paragraphs outside any subdivision.
	var introParts []string
	sectionDiv.ChildrenFiltered("p").Each(func(_ int, p *goquery.Selection) {
		if !p.HasClass("subd") {
			if t := normalizeText(p.Text()); t != "" {
				introParts = append(introParts, t)
			}
		}
	})

	var subsections []models.Subsection
	sectionDiv.Find("div.subd").Each(func(_ int, div *goquery.Selection) {
		id, _ := div.Attr("id")
		m := mnSubdID.FindStringSubmatch(id)
		if m == nil {
			return
		}

		headnote := strings.TrimSpace(div.Find("h2.subd_no span.headnote").First().Text())
		headnote = strings.TrimSuffix(headnote, ".")

		var paras []string
		div.Find("p").Each(func(_ int, p *goquery.Selection) {
			if t := normalizeText(p.Text()); t != "" {
				paras = append(paras, t)
			}
		})
		body := strings.Join(paras, " ")
		if strings.Contains(body, "[Repealed,") {
			return
		}

		children, direct := hier.Parse(body, mnScheme)
		subsections = append(subsections, models.Subsection{
			Identifier: m[1],
			Heading:    headnote,
			Text:       direct,
			Children:   children,
		})
	})

	var history string
	if h := xtend.Find("div.history p.first").First(); h.Length() > 0 {
		history = normalizeText(h.Text())
	}

	chapterStr, _, _ := strings.Cut(sectionNumber, ".")
	chapter, _ := strconv.Atoi(chapterStr)

	var part string
	doc.Find("div#breadcrumb a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if href, _ := a.Attr("href"); strings.Contains(href, "/statutes/part/") {
			part = strings.TrimSpace(a.Text())
			return false
		}
		return true
	})

	return &models.Section{
		Citation:     models.Citation{Title: chapter, Section: sectionNumber},
		Jurisdiction: "us-mn",
		TitleName:    "Minnesota Statutes",
		SectionTitle: sectionTitle,
		Text:         strings.Join(introParts, " "),
		Subsections:  subsections,
		Chapter:      "Chapter " + chapterStr,
		Part:         part,
		History:      history,
		SourceURL:    sourceURL,
		RetrievedAt:  time.Now().UTC(),
	}, nil
}

var mnCiteLink = regexp.MustCompile(`/statutes/cite/(\d+[A-Z]?\.\d+[a-z]?)`)

// SectionNumbers lists the sections in a chapter from its contents page.
func (c *Minnesota) SectionNumbers(ctx context.Context, unit string) ([]string, error) {
	url := fmt.Sprintf("%s/cite/%s", c.base(), unit)
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-mn", Citation: unit, URL: url, Err: err}
	}

	seen := make(map[string]bool)
	var numbers []string
	for _, m := range mnCiteLink.FindAllStringSubmatch(string(body), -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			numbers = append(numbers, m[1])
		}
	}
	return numbers, nil
}
