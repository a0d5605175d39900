package models

import (
	"strings"
	"time"
)

// Subsection is one nested lettered/numbered part of a statute section.
type Subsection struct {
	// Identifier is the marker token without parentheses: "a", "1", "A", "iv".
	Identifier string `json:"identifier"`
	// Heading is the subsection heading when the source carries one.
	Heading string `json:"heading,omitempty"`
	// Text is the direct text of this subsection, excluding children.
	Text string `json:"text"`
	// Children holds nested subsections in document order.
	Children []Subsection `json:"children,omitempty"`
}

// FullText recursively aggregates heading, text, and all descendant text.
func (s *Subsection) FullText() string {
	var parts []string
	if s.Heading != "" {
		parts = append(parts, "("+s.Identifier+") "+s.Heading)
	}
	if s.Text != "" {
		parts = append(parts, s.Text)
	}
	for i := range s.Children {
		parts = append(parts, s.Children[i].FullText())
	}
	return strings.Join(parts, "\n")
}

// Section is a complete statute section normalized from any source.
type Section struct {
	Citation     Citation     `json:"citation"`
	Jurisdiction string       `json:"jurisdiction"`
	TitleName    string       `json:"title_name"`
	SectionTitle string       `json:"section_title"`
	Text         string       `json:"text"`
	Subsections  []Subsection `json:"subsections,omitempty"`

	// Hierarchy context, filled as far as the source exposes it.
	Chapter string `json:"chapter,omitempty"`
	Part    string `json:"part,omitempty"`

	// History is the legislative history note, when the source carries one.
	History string `json:"history,omitempty"`

	// Language is an ISO 639-1 code; empty means English.
	Language string `json:"language,omitempty"`

	// Extent lists the territorial units a UK provision applies to,
	// e.g. ["E", "W", "S", "N.I."].
	Extent []string `json:"extent,omitempty"`

	EffectiveDate string    `json:"effective_date,omitempty"`
	SourceURL     string    `json:"source_url"`
	RetrievedAt   time.Time `json:"retrieved_at"`
}

// Subsection walks the subsection tree by slash-separated path, e.g.
// "b/1/A". Returns nil when any segment is missing.
func (s *Section) Subsection(path string) *Subsection {
	if path == "" {
		return nil
	}
	children := s.Subsections
	var node *Subsection
	for _, seg := range strings.Split(path, "/") {
		node = nil
		for i := range children {
			if children[i].Identifier == seg {
				node = &children[i]
				break
			}
		}
		if node == nil {
			return nil
		}
		children = node.Children
	}
	return node
}

// SubsectionText returns the full recursive text for a subsection path,
// or empty string when the path does not resolve.
func (s *Section) SubsectionText(path string) string {
	sub := s.Subsection(path)
	if sub == nil {
		return ""
	}
	return sub.FullText()
}
