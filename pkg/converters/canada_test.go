package converters

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/RulesFoundation/atlas/pkg/fetcher"
)

const caActXML = `<?xml version="1.0" encoding="UTF-8"?>
<Statute xmlns:lims="http://justice.gc.ca/lims" lims:lastAmendedDate="2025-06-26">
  <Identification>
    <LongTitle>An Act respecting income taxes</LongTitle>
    <ShortTitle>Income Tax Act</ShortTitle>
    <Chapter><ConsolidatedNumber>I-3.3</ConsolidatedNumber></Chapter>
  </Identification>
  <Body>
    <Section xmlns:lims="http://justice.gc.ca/lims" lims:inforce-start-date="1985-01-01">
      <MarginalNote>Canada child benefit</MarginalNote>
      <Label>122.6</Label>
      <Text>In this section and sections 122.61 to 122.63,</Text>
      <Subsection>
        <Label>(1)</Label>
        <Text>An overpayment on account of a person's liability is deemed to have arisen where</Text>
        <Paragraph>
          <Label>(a)</Label>
          <Text>the person is an <DefinedTermEn>eligible individual</DefinedTermEn> at the beginning of the month, and</Text>
        </Paragraph>
        <Paragraph>
          <Label>(b)</Label>
          <Text>the person files a return of income for the year.</Text>
        </Paragraph>
        <ContinuedSectionSubsection>
          <Text>and the overpayment is computed by the prescribed formula.</Text>
        </ContinuedSectionSubsection>
      </Subsection>
      <HistoricalNote>
        <HistoricalNoteSubItem>1994, c. 7, Sch. VII, s. 12</HistoricalNoteSubItem>
        <HistoricalNoteSubItem>2016, c. 12, s. 44</HistoricalNoteSubItem>
      </HistoricalNote>
    </Section>
    <Section>
      <MarginalNote>Definitions</MarginalNote>
      <Label>248</Label>
      <Text>In this Act, the following definitions apply.</Text>
    </Section>
  </Body>
</Statute>`

const caActXMLFrench = `<?xml version="1.0" encoding="UTF-8"?>
<Statute xmlns:lims="http://justice.gc.ca/lims" lims:lastAmendedDate="2025-06-26">
  <Identification>
    <LongTitle>Loi concernant les impôts sur le revenu</LongTitle>
    <ShortTitle>Loi de l'impôt sur le revenu</ShortTitle>
    <Chapter><ConsolidatedNumber>I-3.3</ConsolidatedNumber></Chapter>
  </Identification>
  <Body>
    <Section xmlns:lims="http://justice.gc.ca/lims" lims:inforce-start-date="1985-01-01">
      <MarginalNote>Allocation canadienne pour enfants</MarginalNote>
      <Label>122.6</Label>
      <Text>Les définitions qui suivent s'appliquent au présent article et aux articles 122.61 à 122.63.</Text>
      <Subsection>
        <Label>(1)</Label>
        <Text>Un paiement en trop au titre des sommes dont une personne est redevable est réputé se produire lorsque la personne est un particulier admissible au début du mois.</Text>
      </Subsection>
    </Section>
  </Body>
</Statute>`

func canadaTestServer(t *testing.T) (*httptest.Server, *Canada, *atomic.Int64) {
	t.Helper()
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		switch r.URL.Path {
		case "/eng/acts/I-3.3.xml":
			w.Write([]byte(caActXML))
		case "/fra/acts/I-3.3.xml":
			w.Write([]byte(caActXMLFrench))
		default:
			http.NotFound(w, r)
		}
	}))
	conv := &Canada{
		fetcher: fetcher.NewFetcher(fetcher.WithRate(1000)),
		baseURL: srv.URL,
		acts:    make(map[string]*caAct),
	}
	return srv, conv, &fetches
}

func TestCanadaSection(t *testing.T) {
	srv, conv, _ := canadaTestServer(t)
	defer srv.Close()

	section, err := conv.Section(context.Background(), "I-3.3:122.6")
	if err != nil {
		t.Fatalf("Section failed: %v", err)
	}

	if section.Jurisdiction != "ca" {
		t.Errorf("jurisdiction = %q", section.Jurisdiction)
	}
	if section.TitleName != "Income Tax Act" {
		t.Errorf("title = %q", section.TitleName)
	}
	if section.SectionTitle != "Canada child benefit" {
		t.Errorf("marginal note = %q", section.SectionTitle)
	}
	if section.EffectiveDate != "1985-01-01" {
		t.Errorf("effective date = %q", section.EffectiveDate)
	}
	if section.Language != "en" {
		t.Errorf("language = %q", section.Language)
	}
	if section.History != "1994, c. 7, Sch. VII, s. 12; 2016, c. 12, s. 44" {
		t.Errorf("history = %q", section.History)
	}

	if len(section.Subsections) != 1 {
		t.Fatalf("got %d subsections", len(section.Subsections))
	}
	sub := section.Subsections[0]
	if sub.Identifier != "1" {
		t.Errorf("subsection identifier = %q", sub.Identifier)
	}
	// Continued text after the paragraph list stays with the subsection.
	if got := sub.Text; !containsAll(got, "deemed to have arisen", "prescribed formula") {
		t.Errorf("subsection text = %q", got)
	}
	if len(sub.Children) != 2 {
		t.Fatalf("got %d paragraphs", len(sub.Children))
	}
	// Inline DefinedTermEn content survives flattening.
	if !containsAll(sub.Children[0].Text, "eligible individual") {
		t.Errorf("paragraph (a) = %q", sub.Children[0].Text)
	}
}

func TestCanadaActCaching(t *testing.T) {
	srv, conv, fetches := canadaTestServer(t)
	defer srv.Close()

	ctx := context.Background()
	if _, err := conv.Section(ctx, "I-3.3:122.6"); err != nil {
		t.Fatalf("first Section: %v", err)
	}
	if _, err := conv.Section(ctx, "I-3.3:248"); err != nil {
		t.Fatalf("second Section: %v", err)
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("act fetched %d times, want 1", n)
	}
}

func TestCanadaSectionNumbers(t *testing.T) {
	srv, conv, _ := canadaTestServer(t)
	defer srv.Close()

	nums, err := conv.SectionNumbers(context.Background(), "I-3.3")
	if err != nil {
		t.Fatalf("SectionNumbers failed: %v", err)
	}
	want := []string{"I-3.3:122.6", "I-3.3:248"}
	if len(nums) != 2 || nums[0] != want[0] || nums[1] != want[1] {
		t.Errorf("got %v, want %v", nums, want)
	}
}

func TestCanadaSectionNotFound(t *testing.T) {
	srv, conv, _ := canadaTestServer(t)
	defer srv.Close()

	_, err := conv.Section(context.Background(), "I-3.3:9999")
	if !errors.Is(err, ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}

	_, err = conv.Section(context.Background(), "Z-0:1")
	if !errors.Is(err, ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound for missing act, got %v", err)
	}
}

func TestCanadaSectionFrench(t *testing.T) {
	srv, conv, _ := canadaTestServer(t)
	defer srv.Close()

	section, err := conv.SectionFrench(context.Background(), "I-3.3:122.6")
	if err != nil {
		t.Fatalf("SectionFrench failed: %v", err)
	}

	if section.TitleName != "Loi de l'impôt sur le revenu" {
		t.Errorf("title name = %q", section.TitleName)
	}
	if section.SectionTitle != "Allocation canadienne pour enfants" {
		t.Errorf("section title = %q", section.SectionTitle)
	}
	if section.Language != "fr" {
		t.Errorf("language = %q, want fr", section.Language)
	}
	if !strings.Contains(section.SourceURL, "/fra/lois/") {
		t.Errorf("source URL = %q", section.SourceURL)
	}
	if len(section.Subsections) != 1 || !strings.Contains(section.Subsections[0].Text, "particulier admissible") {
		t.Errorf("subsections = %+v", section.Subsections)
	}
}

func TestCanadaSectionFrenchNotFound(t *testing.T) {
	srv, conv, _ := canadaTestServer(t)
	defer srv.Close()

	_, err := conv.SectionFrench(context.Background(), "I-3.3:999")
	if !errors.Is(err, ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
