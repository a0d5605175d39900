package converters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RulesFoundation/atlas/pkg/fetcher"
)

const akSectionHTML = `<html><body><div class="statute">
Sec. 43.23.005. Eligibility.
(a) An individual is eligible to receive one permanent fund dividend each year if the individual
(1) applies to the department;
(2) is a state resident on the date of application; and
(3) was a state resident during the entire qualifying year.
(b) The department shall adopt regulations.
History: Sec. 2 ch 102 SLA 1980.
</div></body></html>`

func TestAlaskaParse(t *testing.T) {
	conv := &Alaska{}
	section, err := conv.Parse([]byte(akSectionHTML), "43.23.005", "http://example.test/ak")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if section.Citation.Title != 43 {
		t.Errorf("expected title 43, got %d", section.Citation.Title)
	}
	if section.SectionTitle != "Eligibility" {
		t.Errorf("unexpected section title %q", section.SectionTitle)
	}
	if !strings.Contains(section.TitleName, "Revenue and Taxation") {
		t.Errorf("unexpected title name %q", section.TitleName)
	}
	if section.Chapter != "Permanent Fund Dividends" {
		t.Errorf("unexpected chapter %q", section.Chapter)
	}
	if !strings.Contains(section.History, "SLA 1980") {
		t.Errorf("expected history note, got %q", section.History)
	}

	if len(section.Subsections) != 2 {
		t.Fatalf("expected subsections a and b, got %d", len(section.Subsections))
	}
	a := section.Subsections[0]
	if a.Identifier != "a" || len(a.Children) != 3 {
		t.Fatalf("expected (a) with 3 children, got %q with %d", a.Identifier, len(a.Children))
	}
	if a.Children[1].Identifier != "2" {
		t.Errorf("expected child marker 2, got %q", a.Children[1].Identifier)
	}
}

func TestAlaskaSplitSectionNumber(t *testing.T) {
	title, chapter, suffix, err := splitSectionNumber("43.05.010")
	if err != nil {
		t.Fatal(err)
	}
	if title != 43 || chapter != "05" || suffix != "010" {
		t.Errorf("got %d %q %q", title, chapter, suffix)
	}

	if _, _, _, err := splitSectionNumber("43.05"); err == nil {
		t.Error("expected error for two-part section number")
	}
}

func TestAlaskaSectionNumbers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="#43.23.008 ">Sec. 43.23.008.   Payments for certain individuals.</a>
<a href="#43.23.005 ">Sec. 43.23.005.   Eligibility.</a>
<a href="#43.23.010 ">Sec. 43.23.010.   [Repealed, sec. 7 ch 4 SLA 1982].</a>`))
	}))
	defer srv.Close()

	conv := &Alaska{fetcher: fetcher.NewFetcher(fetcher.WithRate(1000)), baseURL: srv.URL}
	numbers, err := conv.SectionNumbers(context.Background(), "43.23")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"43.23.005", "43.23.008"}
	if len(numbers) != len(want) {
		t.Fatalf("got %v, want %v", numbers, want)
	}
	for i := range want {
		if numbers[i] != want[i] {
			t.Errorf("numbers[%d] = %q, want %q", i, numbers[i], want[i])
		}
	}
}
