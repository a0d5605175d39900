package converters

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/RulesFoundation/atlas/models"
	"github.com/RulesFoundation/atlas/pkg/fetcher"
	"github.com/RulesFoundation/atlas/pkg/guidance"
)

// IRS guidance from Internal Revenue Bulletin pages on irs.gov. A
// bulletin page carries several documents; pkg/guidance isolates the
// one cited. Citations are Revenue Procedure numbers like "2023-34".
//
// The IRB issue that carries a given document is not discoverable from
// the document number alone, so the converter keeps a table of the
// annual inflation-adjustment procedures it ingests.
const irsBaseURL = "https://www.irs.gov"

// irbIssues maps document number to the IRB issue that published it.
var irbIssues = map[string]string{
	"2020-45": "2020-46",
	"2021-45": "2021-48",
	"2022-38": "2022-45",
	"2023-34": "2023-48",
	"2024-40": "2024-50",
}

func init() {
	Register("us-irs", "html", func(f *fetcher.Fetcher) Converter {
		return &IRS{fetcher: f}
	})
}

type IRS struct {
	fetcher *fetcher.Fetcher
	baseURL string
}

func (c *IRS) Jurisdiction() string { return "us-irs" }
func (c *IRS) Format() string       { return "html" }

func (c *IRS) base() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return irsBaseURL
}

func (c *IRS) bulletinURL(docNumber string) (string, error) {
	issue := irbIssues[docNumber]
	if issue == "" {
		return "", fmt.Errorf("no known IRB issue for document %q", docNumber)
	}
	return fmt.Sprintf("%s/irb/%s_IRB", c.base(), issue), nil
}

// Section fetches a guidance document by number, e.g. "2023-34".
func (c *IRS) Section(ctx context.Context, citation string) (*models.Section, error) {
	docNumber := strings.TrimSpace(citation)
	url, err := c.bulletinURL(docNumber)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-irs", Citation: citation, Err: ErrSectionNotFound}
	}

	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: "us-irs", Citation: citation, URL: url, Err: err}
	}

	doc, err := guidance.Extract(url, body, docNumber)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us-irs", Citation: citation, URL: url, Err: err}
	}

	title := doc.Title
	if title == "" {
		title = doc.DocType + " " + doc.DocNumber
	}
	return &models.Section{
		Citation:     models.Citation{Section: doc.DocType + " " + doc.DocNumber},
		Jurisdiction: "us-irs",
		TitleName:    doc.IRBCitation,
		SectionTitle: title,
		Text:         doc.Text,
		Subsections:  doc.Sections,
		SourceURL:    url,
		RetrievedAt:  time.Now().UTC(),
	}, nil
}

// SectionNumbers lists the documents the converter knows how to place
// in a bulletin. The unit is ignored; the table is small.
func (c *IRS) SectionNumbers(ctx context.Context, unit string) ([]string, error) {
	nums := make([]string, 0, len(irbIssues))
	for n := range irbIssues {
		nums = append(nums, n)
	}
	sort.Strings(nums)
	return nums, nil
}
