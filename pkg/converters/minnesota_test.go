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

const mnSectionHTML = `<!DOCTYPE html>
<html>
<body>
<div id="breadcrumb">
  <a href="/statutes/">Statutes</a>
  <a href="/statutes/part/INDIVIDUAL+INCOME">INDIVIDUAL INCOME</a>
  <a href="/statutes/chapter/290">Chapter 290</a>
</div>
<div id="xtend" class="statute">
  <div class="section">
    <h1 class="shn">290.0671 MINNESOTA WORKING FAMILY CREDIT.</h1>
    <div class="subd" id="stat.290.0671.1">
      <h2 class="subd_no">Subdivision 1.<span class="headnote">Credit allowed.</span></h2>
      <p>(a) An individual is allowed a credit against the tax imposed by this chapter equal to a percentage of earned income.</p>
      <p>(b) The credit phases out as provided in this subdivision, based on</p>
      <p>(1) earned income, or</p>
      <p>(2) adjusted gross income, whichever is greater.</p>
    </div>
    <div class="subd" id="stat.290.0671.6a">
      <h2 class="subd_no">Subd. 6a.<span class="headnote">Inflation adjustment.</span></h2>
      <p>The commissioner shall annually adjust the credit amounts for inflation.</p>
    </div>
    <div class="subd" id="stat.290.0671.2">
      <h2 class="subd_no">Subd. 2.<span class="headnote">[Repealed]</span></h2>
      <p>[Repealed, 2014 c 308 art 9 s 94]</p>
    </div>
  </div>
  <div class="history">
    <p class="first">1991 c 291 art 7 s 9; 2023 c 64 art 1 s 28</p>
  </div>
</div>
</body>
</html>`

func minnesotaTestServer(t *testing.T, body string) (*httptest.Server, *Minnesota) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	conv := &Minnesota{
		fetcher: fetcher.NewFetcher(fetcher.WithRate(1000)),
		baseURL: srv.URL,
	}
	return srv, conv
}

func TestMinnesotaSection(t *testing.T) {
	srv, conv := minnesotaTestServer(t, mnSectionHTML)
	defer srv.Close()

	section, err := conv.Section(context.Background(), "290.0671")
	if err != nil {
		t.Fatalf("Section failed: %v", err)
	}

	if section.SectionTitle != "MINNESOTA WORKING FAMILY CREDIT" {
		t.Errorf("section title = %q", section.SectionTitle)
	}
	if section.Chapter != "Chapter 290" {
		t.Errorf("chapter = %q", section.Chapter)
	}
	if section.Part != "INDIVIDUAL INCOME" {
		t.Errorf("part = %q", section.Part)
	}
	if !strings.Contains(section.History, "1991 c 291") {
		t.Errorf("history = %q", section.History)
	}

	// Repealed subdivision 2 is dropped.
	if len(section.Subsections) != 2 {
		t.Fatalf("got %d subdivisions: %+v", len(section.Subsections), section.Subsections)
	}

	subd1 := section.Subsections[0]
	if subd1.Identifier != "1" || subd1.Heading != "Credit allowed" {
		t.Errorf("subdivision 1 = %+v", subd1)
	}
	if len(subd1.Children) != 2 {
		t.Fatalf("got %d paragraphs in subdivision 1", len(subd1.Children))
	}
	b := subd1.Children[1]
	if b.Identifier != "b" || len(b.Children) != 2 || b.Children[0].Identifier != "1" {
		t.Errorf("paragraph (b) = %+v", b)
	}

	subd6a := section.Subsections[1]
	if subd6a.Identifier != "6a" {
		t.Errorf("subdivision identifier = %q", subd6a.Identifier)
	}
	if !strings.Contains(subd6a.Text, "adjust the credit amounts") {
		t.Errorf("subdivision 6a text = %q", subd6a.Text)
	}
}

func TestMinnesotaRepealedSection(t *testing.T) {
	repealed := `<html><body><div id="xtend" class="statute"><h1 class="shn">290.0672 REPEALED SECTION.</h1><div class="sr">Repealed, 2019 c 50 art 1 s 130</div></div></body></html>`
	srv, conv := minnesotaTestServer(t, repealed)
	defer srv.Close()

	_, err := conv.Section(context.Background(), "290.0672")
	if !errors.Is(err, ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}
}

func TestMinnesotaSectionNumbers(t *testing.T) {
	contents := `<html><body>
<a href="/statutes/cite/290.01">290.01</a>
<a href="/statutes/cite/290.0671">290.0671</a>
<a href="/statutes/cite/290.0671">290.0671 dup</a>
<a href="/statutes/cite/290A.03">290A.03</a>
</body></html>`
	srv, conv := minnesotaTestServer(t, contents)
	defer srv.Close()

	nums, err := conv.SectionNumbers(context.Background(), "290")
	if err != nil {
		t.Fatalf("SectionNumbers failed: %v", err)
	}
	want := []string{"290.01", "290.0671", "290A.03"}
	if len(nums) != 3 {
		t.Fatalf("got %v", nums)
	}
	for i := range want {
		if nums[i] != want[i] {
			t.Errorf("nums[%d] = %q, want %q", i, nums[i], want[i])
		}
	}
}
