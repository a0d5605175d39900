package converters

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RulesFoundation/atlas/models"
	"github.com/RulesFoundation/atlas/pkg/fetcher"
	"github.com/RulesFoundation/atlas/pkg/uslm"
)

// United States Code from uscode.house.gov USLM release points. Titles
// download as zipped XML; a parsed title is cached on the converter so
// bulk ingestion of one title costs a single fetch.
const (
	usBaseURL = "https://uscode.house.gov/download/releasepoints/us/pl/119/46"
	usRelease = "119-46"
)

func init() {
	Register("us", "uslm", func(f *fetcher.Fetcher) Converter {
		return &USCode{fetcher: f, titles: make(map[int]*uslm.Title)}
	})
}

type USCode struct {
	fetcher *fetcher.Fetcher
	baseURL string

	mu     sync.Mutex
	titles map[int]*uslm.Title
}

func (c *USCode) Jurisdiction() string { return "us" }
func (c *USCode) Format() string       { return "uslm" }

func (c *USCode) base() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return usBaseURL
}

func (c *USCode) titleURL(titleNum int) string {
	return fmt.Sprintf("%s/xml_usc%02d@%s.zip", c.base(), titleNum, usRelease)
}

func (c *USCode) loadTitle(ctx context.Context, titleNum int) (*uslm.Title, error) {
	c.mu.Lock()
	cached := c.titles[titleNum]
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	url := c.titleURL(titleNum)
	body, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	xmlRaw, err := unzipFirstXML(body)
	if err != nil {
		return nil, fmt.Errorf("title %d archive: %w", titleNum, err)
	}

	title, err := uslm.ParseTitle(xmlRaw)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.titles[titleNum] = title
	c.mu.Unlock()
	return title, nil
}

func unzipFirstXML(raw []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("no XML file in archive")
}

// Section resolves citations like "26 USC 32" or "26/32".
func (c *USCode) Section(ctx context.Context, citation string) (*models.Section, error) {
	titleNum, number, err := splitUSCitation(citation)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us", Citation: citation, Err: err}
	}

	title, err := c.loadTitle(ctx, titleNum)
	if err != nil {
		if fetcher.IsNotFound(err) {
			err = ErrSectionNotFound
		}
		return nil, &ConvertError{Jurisdiction: "us", Citation: citation, URL: c.titleURL(titleNum), Err: err}
	}

	section := title.Section(number)
	if section == nil {
		return nil, &ConvertError{Jurisdiction: "us", Citation: citation, Err: ErrSectionNotFound}
	}

	out := *section
	out.RetrievedAt = time.Now().UTC()
	return &out, nil
}

// References lists the USC citations a section links to, for the
// cross-reference table. The title must have been loaded already.
func (c *USCode) References(titleNum int, number string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t := c.titles[titleNum]; t != nil {
		return t.References(number)
	}
	return nil
}

// SectionReferences resolves a citation's outbound references by
// whatever titles are already cached, as cross-reference citation paths
// ("us/statute/26/7703").
func (c *USCode) SectionReferences(citation string) []string {
	titleNum, number, err := splitUSCitation(citation)
	if err != nil {
		return nil
	}
	var paths []string
	for _, ref := range c.References(titleNum, number) {
		cite, err := models.ParseCitation(ref)
		if err != nil {
			continue
		}
		paths = append(paths, "us/"+cite.Path())
	}
	return paths
}

// SectionNumbers lists every section in a title, in document order.
func (c *USCode) SectionNumbers(ctx context.Context, unit string) ([]string, error) {
	titleNum, err := strconv.Atoi(unit)
	if err != nil {
		return nil, fmt.Errorf("malformed US Code title %q", unit)
	}

	title, err := c.loadTitle(ctx, titleNum)
	if err != nil {
		return nil, &ConvertError{Jurisdiction: "us", Citation: unit, URL: c.titleURL(titleNum), Err: err}
	}

	numbers := make([]string, 0, len(title.Sections))
	for _, s := range title.Sections {
		numbers = append(numbers, fmt.Sprintf("%d/%s", titleNum, s.Citation.Section))
	}
	return numbers, nil
}

func splitUSCitation(citation string) (int, string, error) {
	if cite, err := models.ParseCitation(citation); err == nil {
		return cite.Title, cite.Section, nil
	}
	titleStr, number, ok := strings.Cut(citation, "/")
	if !ok {
		return 0, "", fmt.Errorf("malformed US Code citation %q, want \"26 USC 32\" or \"26/32\"", citation)
	}
	titleNum, err := strconv.Atoi(titleStr)
	if err != nil {
		return 0, "", fmt.Errorf("malformed US Code citation %q", citation)
	}
	return titleNum, number, nil
}
