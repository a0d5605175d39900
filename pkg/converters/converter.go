// Package converters maps per-jurisdiction statute sources into the
// shared Section model. Each converter knows one government site's URL
// scheme, HTML/XML dialect, and subsection marker convention; the
// structural work is delegated to pkg/hier.
package converters

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/RulesFoundation/atlas/models"
	"github.com/RulesFoundation/atlas/pkg/fetcher"
)

// ErrSectionNotFound reports that the source has no such section.
var ErrSectionNotFound = errors.New("section not found")

// ConvertError wraps a converter failure with source context.
type ConvertError struct {
	Jurisdiction string
	Citation     string
	URL          string
	Err          error
}

func (e *ConvertError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s: convert %q (%s): %v", e.Jurisdiction, e.Citation, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: convert %q: %v", e.Jurisdiction, e.Citation, e.Err)
}

func (e *ConvertError) Unwrap() error { return e.Err }

// Converter fetches and normalizes statute sections for one jurisdiction.
type Converter interface {
	// Jurisdiction returns the registry ID, e.g. "us-fl".
	Jurisdiction() string
	// Format names the source dialect: "html", "clml", "uslm", "json", "xml".
	Format() string
	// Section fetches and parses one section by its jurisdiction-specific
	// citation form ("220.02", "rtc/17052", "ukpga/2003/1/s/9").
	Section(ctx context.Context, citation string) (*models.Section, error)
	// SectionNumbers lists the section citations within one unit (a
	// chapter, title, or act), for bulk downloads.
	SectionNumbers(ctx context.Context, unit string) ([]string, error)
}

// Factory builds a converter around a shared fetcher.
type Factory func(f *fetcher.Fetcher) Converter

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

func key(jurisdiction, format string) string {
	return jurisdiction + ":" + format
}

// Register adds a converter factory under "jurisdiction:format". Converter
// files call it from init.
func Register(jurisdiction, format string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[key(jurisdiction, format)] = factory
}

// New returns a converter for a jurisdiction. When format is empty, any
// registered format for the jurisdiction matches.
func New(jurisdiction, format string, f *fetcher.Fetcher) (Converter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if format != "" {
		factory, ok := registry[key(jurisdiction, format)]
		if !ok {
			return nil, fmt.Errorf("no converter registered for %s:%s", jurisdiction, format)
		}
		return factory(f), nil
	}

	// Any format for this jurisdiction; prefer a stable order.
	var keys []string
	for k := range registry {
		if strings.HasPrefix(k, jurisdiction+":") {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no converter registered for jurisdiction %s", jurisdiction)
	}
	sort.Strings(keys)
	return registry[keys[0]](f), nil
}

// Registered lists all "jurisdiction:format" keys.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalizeText collapses a block of extracted HTML text into single-space
// separated lines.
func normalizeText(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			b.WriteString(line)
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}

// titleCase capitalizes the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// newDocument parses raw HTML into a goquery document.
func newDocument(raw []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
