package converters

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/RulesFoundation/atlas/models"
	"github.com/RulesFoundation/atlas/pkg/clml"
	"github.com/RulesFoundation/atlas/pkg/fetcher"
)

// United Kingdom legislation from legislation.gov.uk, which serves CLML
// XML for any provision at {ref}/data.xml. References use the site's
// path form: ukpga/2003/1/section/62. The API is rate limited to 3000
// requests per 5 minutes per IP.
const ukBaseURL = "https://www.legislation.gov.uk"

func init() {
	Register("uk", "clml", func(f *fetcher.Fetcher) Converter {
		return &UK{fetcher: f, refs: make(map[string][]string)}
	})
}

type UK struct {
	fetcher *fetcher.Fetcher
	baseURL string

	mu   sync.Mutex
	refs map[string][]string
}

func (c *UK) Jurisdiction() string { return "uk" }
func (c *UK) Format() string       { return "clml" }

func (c *UK) base() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return ukBaseURL
}

var ukRefPattern = regexp.MustCompile(`^([a-z]+)/(\d{4})/(\d+)(?:/(?:section/)?(\d+[A-Za-z]?))?$`)

// normalizeUKRef accepts "ukpga/2003/1/section/62" and the shorthand
// "ukpga/2003/1/62", returning the canonical path form.
func normalizeUKRef(citation string) (string, error) {
	ref := strings.Trim(strings.TrimSpace(citation), "/")
	m := ukRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", fmt.Errorf("invalid UK legislation reference %q", citation)
	}
	if m[4] == "" {
		return fmt.Sprintf("%s/%s/%s", m[1], m[2], m[3]), nil
	}
	return fmt.Sprintf("%s/%s/%s/section/%s", m[1], m[2], m[3], m[4]), nil
}

func (c *UK) dataURL(ref string) string {
	return c.base() + "/" + ref + "/data.xml"
}

// Section fetches a single provision, e.g. "ukpga/2003/1/section/62".
func (c *UK) Section(ctx context.Context, citation string) (*models.Section, error) {
	ref, err := normalizeUKRef(citation)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "uk", Citation: citation, Err: err}
	}

	url := c.dataURL(ref)
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: "uk", Citation: citation, URL: url, Err: err}
	}

	doc, err := clml.ParseSection(body)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "uk", Citation: citation, URL: url, Err: err}
	}

	section := doc.Section
	if section.SourceURL == "" {
		section.SourceURL = c.base() + "/" + ref
	}
	section.Extent = doc.Extent
	section.RetrievedAt = time.Now().UTC()

	if len(doc.References) > 0 {
		paths := make([]string, len(doc.References))
		for i, r := range doc.References {
			paths[i] = "uk/" + r
		}
		c.mu.Lock()
		if c.refs == nil {
			c.refs = make(map[string][]string)
		}
		c.refs[ref] = paths
		c.mu.Unlock()
	}
	return section, nil
}

// SectionReferences returns the citation paths of acts cited by a
// previously fetched provision.
func (c *UK) SectionReferences(citation string) []string {
	ref, err := normalizeUKRef(citation)
	if err != nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs[ref]
}

// Act fetches act-level metadata, e.g. for unit "ukpga/2003/1".
func (c *UK) Act(ctx context.Context, unit string) (*clml.Act, error) {
	ref, err := normalizeUKRef(unit)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "uk", Citation: unit, Err: err}
	}

	url := c.dataURL(ref)
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: "uk", Citation: unit, URL: url, Err: err}
	}

	act, err := clml.ParseAct(body)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "uk", Citation: unit, URL: url, Err: err}
	}
	return act, nil
}

// SectionNumbers lists the provisions of an act. The unit is an act
// reference like "ukpga/2003/1"; returned citations carry the full
// section path form.
func (c *UK) SectionNumbers(ctx context.Context, unit string) ([]string, error) {
	act, err := c.Act(ctx, unit)
	if err != nil {
		return nil, err
	}

	citations := make([]string, 0, len(act.Sections))
	for _, num := range act.Sections {
		citations = append(citations, act.Citation.Ref()+"/section/"+num)
	}
	return citations, nil
}
