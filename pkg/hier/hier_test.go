package hier

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/RulesFoundation/atlas/models"
)

var uscScheme = Scheme{Levels: []Kind{ParenLower, ParenDigit, ParenUpper, ParenRomanLower}}

var floridaScheme = Scheme{Levels: []Kind{ParenDigit, ParenLower, DigitDot}}

func TestParseFlatDigits(t *testing.T) {
	text := "It is the intent of the Legislature. (1) First item text. (2) Second item text. (3) Third item text."

	subs, intro := Parse(text, floridaScheme)

	if intro != "It is the intent of the Legislature." {
		t.Errorf("intro = %q", intro)
	}
	if len(subs) != 3 {
		t.Fatalf("got %d subsections, want 3", len(subs))
	}
	for i, want := range []string{"1", "2", "3"} {
		if subs[i].Identifier != want {
			t.Errorf("subs[%d].Identifier = %q, want %q", i, subs[i].Identifier, want)
		}
	}
	if subs[1].Text != "Second item text." {
		t.Errorf("subs[1].Text = %q", subs[1].Text)
	}
}

func TestParseNested(t *testing.T) {
	text := "(1) General rule. (a) The tax is imposed annually. (b) The rate is set by schedule. (2) Exceptions apply."

	subs, _ := Parse(text, floridaScheme)

	if len(subs) != 2 {
		t.Fatalf("got %d top-level subsections, want 2", len(subs))
	}
	if len(subs[0].Children) != 2 {
		t.Fatalf("got %d children of (1), want 2", len(subs[0].Children))
	}
	if subs[0].Text != "General rule." {
		t.Errorf("direct text of (1) = %q", subs[0].Text)
	}
	if subs[0].Children[1].Identifier != "b" {
		t.Errorf("second child = %q, want b", subs[0].Children[1].Identifier)
	}
	if subs[1].Text != "Exceptions apply." {
		t.Errorf("text of (2) = %q", subs[1].Text)
	}
}

func TestParseSkipsMissingLevel(t *testing.T) {
	// Section with no (a)-level markers goes straight to digits.
	text := "(1) First. (2) Second."
	subs, _ := Parse(text, uscScheme)
	if len(subs) != 2 || subs[0].Identifier != "1" {
		t.Fatalf("unexpected parse: %+v", subs)
	}
}

func TestParseRomanAfterUpper(t *testing.T) {
	text := "(a) In general. (1) Limitation. (A) Threshold amount. (i) joint returns, (ii) surviving spouses."

	subs, _ := Parse(text, uscScheme)

	if len(subs) != 1 {
		t.Fatalf("got %d top-level, want 1", len(subs))
	}
	a := subs[0]
	if len(a.Children) != 1 || a.Children[0].Identifier != "1" {
		t.Fatalf("unexpected children of (a): %+v", a.Children)
	}
	upper := a.Children[0].Children
	if len(upper) != 1 || upper[0].Identifier != "A" {
		t.Fatalf("unexpected (A) level: %+v", upper)
	}
	roman := upper[0].Children
	if len(roman) != 2 {
		t.Fatalf("got %d roman children, want 2: %+v", len(roman), roman)
	}
	if roman[0].Identifier != "i" || roman[1].Identifier != "ii" {
		t.Errorf("roman identifiers = %q, %q", roman[0].Identifier, roman[1].Identifier)
	}
}

func TestParseLetterIAfterH(t *testing.T) {
	// (i) following (h) is the ninth letter, not a roman numeral.
	text := "(g) seventh. (h) eighth. (i) ninth. (j) tenth."

	subs, _ := Parse(text, uscScheme)

	var ids []string
	for _, s := range subs {
		ids = append(ids, s.Identifier)
	}
	want := []string{"g", "h", "i", "j"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("identifiers = %v, want %v", ids, want)
	}
	if len(subs[2].Children) != 0 {
		t.Errorf("(i) should have no children, got %+v", subs[2].Children)
	}
}

func TestParseRomanRunNotLetters(t *testing.T) {
	// A fresh (i)(ii)(iii) run must not be mistaken for letters.
	text := "(i) first clause, (ii) second clause, (iii) third clause."

	subs, _ := Parse(text, Scheme{Levels: []Kind{ParenLower, ParenRomanLower}})

	if len(subs) != 3 {
		t.Fatalf("got %d subsections, want 3: %+v", len(subs), subs)
	}
	for i, want := range []string{"i", "ii", "iii"} {
		if subs[i].Identifier != want {
			t.Errorf("subs[%d] = %q, want %q", i, subs[i].Identifier, want)
		}
	}
}

func TestParseDottedMarkers(t *testing.T) {
	text := "(1) Primary.\n(a) Secondary.\n1. Tertiary one.\n2. Tertiary two.\n"

	subs, _ := Parse(text, floridaScheme)

	if len(subs) != 1 {
		t.Fatalf("got %d top-level, want 1", len(subs))
	}
	a := subs[0].Children
	if len(a) != 1 || a[0].Identifier != "a" {
		t.Fatalf("unexpected letter level: %+v", a)
	}
	dotted := a[0].Children
	if len(dotted) != 2 || dotted[0].Identifier != "1" || dotted[1].Identifier != "2" {
		t.Errorf("dotted level = %+v", dotted)
	}
}

func TestParseTextLimit(t *testing.T) {
	long := strings.Repeat("x", 3000)
	subs, _ := Parse("(1) "+long, Scheme{Levels: []Kind{ParenDigit}, TextLimit: 100})
	if len(subs) != 1 {
		t.Fatalf("got %d subsections", len(subs))
	}
	if len(subs[0].Text) != 100 {
		t.Errorf("text length = %d, want 100", len(subs[0].Text))
	}
}

func TestParseTextLimitRuneBoundary(t *testing.T) {
	// A limit landing mid-rune must back up to the previous boundary
	// rather than keep a broken byte sequence.
	long := strings.Repeat("é", 60) // two bytes each
	subs, _ := Parse("(1) "+long, Scheme{Levels: []Kind{ParenDigit}, TextLimit: 101})
	if len(subs) != 1 {
		t.Fatalf("got %d subsections", len(subs))
	}
	if !utf8.ValidString(subs[0].Text) {
		t.Errorf("truncated text is not valid UTF-8: %q", subs[0].Text)
	}
	if len(subs[0].Text) != 100 {
		t.Errorf("text length = %d, want 100", len(subs[0].Text))
	}
}

func TestParseEmptyAndUnmarked(t *testing.T) {
	subs, intro := Parse("", floridaScheme)
	if subs != nil || intro != "" {
		t.Errorf("empty input: subs=%v intro=%q", subs, intro)
	}

	subs, intro = Parse("No markers here at all.", floridaScheme)
	if subs != nil {
		t.Errorf("unmarked input produced subsections: %v", subs)
	}
	if intro != "No markers here at all." {
		t.Errorf("intro = %q", intro)
	}
}

// Parsing the rendered form of a parse must reproduce the same tree.
func TestParseRenderStable(t *testing.T) {
	text := "(a) General rule. (1) First limit. (A) Sub-limit. (2) Second limit. (b) Definitions."

	first, _ := Parse(text, uscScheme)
	second, _ := Parse(Render(first), uscScheme)

	if !reflect.DeepEqual(stripText(first), stripText(second)) {
		t.Errorf("structure changed across render round trip:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

// stripText reduces a tree to identifiers only, since Render reflows
// whitespace inside text bodies.
func stripText(subs []models.Subsection) []models.Subsection {
	out := make([]models.Subsection, len(subs))
	for i, s := range subs {
		out[i] = models.Subsection{Identifier: s.Identifier, Children: stripText(s.Children)}
	}
	return out
}
