// Package models defines the normalized statute data model shared by all
// converters and the storage layer.
package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Citation identifies a specific statute section, optionally down to a
// nested subsection path.
type Citation struct {
	// Title is the code/title number, e.g. 26 for the Internal Revenue Code.
	Title int `json:"title"`
	// Section is the section identifier within the title, e.g. "32" or "32A".
	// State converters use composite forms such as "FL-220.02".
	Section string `json:"section"`
	// Subsection is a slash-separated path into the subsection tree,
	// e.g. "a/1/A" for (a)(1)(A). Empty when the citation is section-level.
	Subsection string `json:"subsection,omitempty"`
}

var citationPattern = regexp.MustCompile(`(?i)^(\d+)\s*(?:U\.?S\.?C\.?|USC)\s*(?:§\s*)?(\d+[A-Za-z]?)`)

var subsectionPattern = regexp.MustCompile(`\(([^)]+)\)`)

// ParseCitation parses a citation string like "26 USC 32" or
// "26 USC 32(a)(1)(A)".
func ParseCitation(cite string) (Citation, error) {
	trimmed := strings.TrimSpace(cite)
	match := citationPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return Citation{}, fmt.Errorf("cannot parse citation: %q", cite)
	}

	title, err := strconv.Atoi(match[1])
	if err != nil {
		return Citation{}, fmt.Errorf("cannot parse citation title: %q", cite)
	}

	c := Citation{
		Title:   title,
		Section: match[2],
	}

	// Parenthesized segments after the section number form the subsection
	// path: (a)(1)(A) -> a/1/A.
	remainder := trimmed[len(match[0]):]
	if subs := subsectionPattern.FindAllStringSubmatch(remainder, -1); len(subs) > 0 {
		parts := make([]string, len(subs))
		for i, s := range subs {
			parts[i] = s[1]
		}
		c.Subsection = strings.Join(parts, "/")
	}

	return c, nil
}

// USCite returns the standard USC citation format, e.g. "26 USC 32(a)(1)".
func (c Citation) USCite() string {
	base := fmt.Sprintf("%d USC %s", c.Title, c.Section)
	if c.Subsection == "" {
		return base
	}
	var sb strings.Builder
	sb.WriteString(base)
	for _, part := range strings.Split(c.Subsection, "/") {
		sb.WriteString("(")
		sb.WriteString(part)
		sb.WriteString(")")
	}
	return sb.String()
}

// Path returns the filesystem-style citation path used as the canonical
// record key, e.g. "statute/26/32/a/1".
func (c Citation) Path() string {
	if c.Subsection == "" {
		return fmt.Sprintf("statute/%d/%s", c.Title, c.Section)
	}
	return fmt.Sprintf("statute/%d/%s/%s", c.Title, c.Section, c.Subsection)
}
