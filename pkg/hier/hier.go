// Package hier reconstructs the nested subsection structure of flat
// statutory text. Every statute source numbers its subdivisions with some
// ordered combination of marker styles — (1), (a), (A), (i), "1." — and
// this package splits text on those markers level by level, producing the
// models.Subsection tree the converters share.
package hier

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/RulesFoundation/atlas/models"
)

// Kind identifies one marker style.
type Kind int

const (
	// ParenDigit matches (1), (2), ...
	ParenDigit Kind = iota
	// ParenLower matches (a), (b), ...
	ParenLower
	// ParenUpper matches (A), (B), ...
	ParenUpper
	// ParenRomanLower matches (i), (ii), (iv), ...
	ParenRomanLower
	// ParenRomanUpper matches (I), (II), ...
	ParenRomanUpper
	// DigitDot matches "1." at the start of a line.
	DigitDot
	// LowerDot matches "a." at the start of a line.
	LowerDot
	// UpperDot matches "A." at the start of a line.
	UpperDot
)

var kindPatterns = map[Kind]*regexp.Regexp{
	ParenDigit:      regexp.MustCompile(`\((\d{1,3})\)\s`),
	ParenLower:      regexp.MustCompile(`\(([a-z]{1,2})\)\s`),
	ParenUpper:      regexp.MustCompile(`\(([A-Z]{1,2})\)\s`),
	ParenRomanLower: regexp.MustCompile(`\(([ivxl]+)\)\s`),
	ParenRomanUpper: regexp.MustCompile(`\(([IVXL]+)\)\s`),
	DigitDot:        regexp.MustCompile(`(?m)^\s*(\d{1,3})\.\s`),
	LowerDot:        regexp.MustCompile(`(?m)^\s*([a-z])\.\s`),
	UpperDot:        regexp.MustCompile(`(?m)^\s*([A-Z])\.\s`),
}

// DefaultTextLimit caps the direct text kept per subsection, matching the
// truncation the per-state scrapers apply.
const DefaultTextLimit = 2000

// Scheme describes one jurisdiction's marker hierarchy, outermost level
// first. A Florida scheme is {ParenDigit, ParenLower, DigitDot}; the US
// Code uses {ParenLower, ParenDigit, ParenUpper, ParenRomanLower}.
type Scheme struct {
	Levels    []Kind
	TextLimit int
}

func (s Scheme) limit() int {
	if s.TextLimit > 0 {
		return s.TextLimit
	}
	return DefaultTextLimit
}

// marker is one matched subdivision token within a text block.
type marker struct {
	start, end int // byte offsets of the full marker match
	identifier string
}

// findMarkers locates all plausible markers of the given kind, applying
// roman/letter disambiguation for the (a)(i) collision.
func findMarkers(text string, kind Kind) []marker {
	pattern := kindPatterns[kind]
	raw := pattern.FindAllStringSubmatchIndex(text, -1)
	if raw == nil {
		return nil
	}

	markers := make([]marker, 0, len(raw))
	var prev string
	for _, m := range raw {
		tok := text[m[2]:m[3]]
		if kind == ParenLower && !letterNotRoman(prev, tok) {
			continue
		}
		if kind == ParenRomanLower && !romanNotLetter(prev, tok) {
			continue
		}
		markers = append(markers, marker{start: m[0], end: m[1], identifier: tok})
		prev = tok
	}
	return markers
}

// Parse splits text into a subsection tree per the scheme. The returned
// intro is the text preceding the first top-level marker; sources keep
// their lead-in paragraph there.
func Parse(text string, scheme Scheme) (subs []models.Subsection, intro string) {
	if len(scheme.Levels) == 0 {
		return nil, strings.TrimSpace(text)
	}
	subs, intro = parseLevel(text, scheme.Levels, scheme.limit())
	return subs, intro
}

func parseLevel(text string, levels []Kind, limit int) ([]models.Subsection, string) {
	markers := findMarkers(text, levels[0])
	if len(markers) == 0 {
		// No markers at this level; try the next one down. Sources
		// skip levels (a section may go straight to (1) children).
		if len(levels) > 1 {
			return parseLevel(text, levels[1:], limit)
		}
		return nil, strings.TrimSpace(text)
	}

	intro := strings.TrimSpace(text[:markers[0].start])
	subs := make([]models.Subsection, 0, len(markers))

	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1].start
		}
		body := text[m.end:end]

		var children []models.Subsection
		direct := body
		if len(levels) > 1 {
			children, direct = parseLevel(body, levels[1:], limit)
		}

		direct = strings.TrimSpace(direct)
		if len(direct) > limit {
			cut := limit
			// Back up so the cut never lands inside a multi-byte rune.
			for cut > 0 && !utf8.RuneStart(direct[cut]) {
				cut--
			}
			direct = direct[:cut]
		}

		subs = append(subs, models.Subsection{
			Identifier: m.identifier,
			Text:       direct,
			Children:   children,
		})
	}

	return subs, intro
}

// Render writes a subsection tree back to flat text with parenthesized
// markers, one node per line. Parsing the rendered form of a tree yields
// the same tree; the fixture tests rely on that.
func Render(subs []models.Subsection) string {
	var sb strings.Builder
	renderInto(&sb, subs)
	return sb.String()
}

func renderInto(sb *strings.Builder, subs []models.Subsection) {
	for i := range subs {
		sb.WriteString("(")
		sb.WriteString(subs[i].Identifier)
		sb.WriteString(") ")
		sb.WriteString(subs[i].Text)
		sb.WriteString("\n")
		renderInto(sb, subs[i].Children)
	}
}
