package models

import (
	"strings"
	"testing"
)

func sampleSection() *Section {
	return &Section{
		Citation:     Citation{Title: 26, Section: "32"},
		Jurisdiction: "us",
		SectionTitle: "Earned income",
		Text:         "In the case of an eligible individual...",
		Subsections: []Subsection{
			{
				Identifier: "a",
				Heading:    "Allowance of credit",
				Text:       "In the case of an eligible individual, there shall be allowed...",
				Children: []Subsection{
					{
						Identifier: "1",
						Text:       "In general.",
						Children: []Subsection{
							{Identifier: "A", Text: "the credit percentage of earned income"},
						},
					},
				},
			},
			{Identifier: "b", Text: "Percentages and amounts."},
		},
	}
}

func TestSectionSubsectionWalk(t *testing.T) {
	s := sampleSection()

	tests := []struct {
		path     string
		wantID   string
		wantText string
	}{
		{path: "a", wantID: "a"},
		{path: "a/1", wantID: "1", wantText: "In general."},
		{path: "a/1/A", wantID: "A", wantText: "the credit percentage of earned income"},
		{path: "b", wantID: "b"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			sub := s.Subsection(tt.path)
			if sub == nil {
				t.Fatalf("Subsection(%q) = nil", tt.path)
			}
			if sub.Identifier != tt.wantID {
				t.Errorf("Identifier = %q, want %q", sub.Identifier, tt.wantID)
			}
			if tt.wantText != "" && sub.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", sub.Text, tt.wantText)
			}
		})
	}
}

func TestSectionSubsectionMissing(t *testing.T) {
	s := sampleSection()
	for _, path := range []string{"", "z", "a/9", "a/1/A/i"} {
		if sub := s.Subsection(path); sub != nil {
			t.Errorf("Subsection(%q) = %v, want nil", path, sub)
		}
	}
}

func TestSubsectionFullText(t *testing.T) {
	s := sampleSection()
	full := s.SubsectionText("a")
	for _, want := range []string{
		"(a) Allowance of credit",
		"In general.",
		"credit percentage of earned income",
	} {
		if !strings.Contains(full, want) {
			t.Errorf("FullText missing %q:\n%s", want, full)
		}
	}
}
