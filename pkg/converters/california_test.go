package converters

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RulesFoundation/atlas/pkg/fetcher"
)

const caSectionHTML = `<!DOCTYPE html>
<html>
<body>
<div id="codeLawSectionNoHead">
  <h4>DIVISION 2. OTHER TAXES</h4>
  <h5>PART 10. PERSONAL INCOME TAX</h5>
  <h5>CHAPTER 2. Imposition of Tax</h5>
  <h6>17052.</h6>
  <p>Earned income tax credit. (a) For each taxable year beginning on or after January 1, 2015, there shall be allowed against the net tax a credit.
(b) (1) In lieu of the table prescribed, the credit may be determined under tables prescribed by the Franchise Tax Board.
(2) The tables shall follow the federal schedule.
(c) For purposes of this section, the term eligible individual has the same meaning as in the federal provision.
(Amended by Stats. 2022, Ch. 482, Sec. 1. (AB 2589) Effective January 1, 2023.)</p>
</div>
</body>
</html>`

func californiaTestServer(t *testing.T, body string) (*httptest.Server, *California) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	conv := &California{
		fetcher: fetcher.NewFetcher(fetcher.WithRate(1000)),
		baseURL: srv.URL,
	}
	return srv, conv
}

func TestCaliforniaSection(t *testing.T) {
	srv, conv := californiaTestServer(t, caSectionHTML)
	defer srv.Close()

	section, err := conv.Section(context.Background(), "RTC:17052")
	if err != nil {
		t.Fatalf("Section failed: %v", err)
	}

	if section.Jurisdiction != "us-ca" {
		t.Errorf("jurisdiction = %q", section.Jurisdiction)
	}
	if section.Citation.Section != "RTC:17052" {
		t.Errorf("citation = %q", section.Citation.Section)
	}
	if section.TitleName != "California Revenue and Taxation Code" {
		t.Errorf("title name = %q", section.TitleName)
	}
	if section.Chapter != "Chapter 2" {
		t.Errorf("chapter = %q", section.Chapter)
	}
	if section.Part != "Part 10" {
		t.Errorf("part = %q", section.Part)
	}
	if !strings.Contains(section.History, "Stats. 2022") {
		t.Errorf("history = %q", section.History)
	}

	if len(section.Subsections) != 3 {
		t.Fatalf("got %d subsections: %+v", len(section.Subsections), section.Subsections)
	}
	b := section.Subsections[1]
	if b.Identifier != "b" || len(b.Children) != 2 {
		t.Errorf("subsection (b) = %+v", b)
	}
	if b.Children[0].Identifier != "1" || !strings.Contains(b.Children[0].Text, "In lieu of the table") {
		t.Errorf("subsection (b)(1) = %+v", b.Children[0])
	}
}

func TestCaliforniaSectionNotFound(t *testing.T) {
	srv, conv := californiaTestServer(t, `<html><body><div id="codeLawSectionNoHead"><p>Code section not found.</p></div></body></html>`)
	defer srv.Close()

	_, err := conv.Section(context.Background(), "RTC:99999")
	if !errors.Is(err, ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}
}

func TestCaliforniaBadCitation(t *testing.T) {
	conv := &California{fetcher: fetcher.NewFetcher()}

	if _, err := conv.Section(context.Background(), "17052"); err == nil {
		t.Error("expected error for citation without code prefix")
	}
	if _, err := conv.Section(context.Background(), "XYZ:17052"); err == nil {
		t.Error("expected error for unknown code")
	}
}

func TestCaliforniaSectionNumbersUnsupported(t *testing.T) {
	conv := &California{fetcher: fetcher.NewFetcher()}
	if _, err := conv.SectionNumbers(context.Background(), "RTC:17052"); err == nil {
		t.Error("expected unsupported error")
	}
}
