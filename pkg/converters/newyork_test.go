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

func newYorkTestServer(t *testing.T) (*httptest.Server, *NewYork) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			w.Write([]byte(`{"success":false,"message":"invalid key"}`))
			return
		}
		switch {
		case strings.HasPrefix(r.URL.Path, "/laws/TAX/606"):
			w.Write([]byte(`{"success":true,"result":{
				"lawId":"TAX","locationId":"606","docType":"SECTION",
				"title":"Credits against tax",
				"activeDate":"2024-01-01",
				"text":"(a) Allowance of credit. (1) A taxpayer shall be allowed a credit as provided. (2) The credit is refundable. (b) Carryover. Unused credit may be carried over."}}`))
		case r.URL.Path == "/laws/TAX":
			w.Write([]byte(`{"success":true,"result":{
				"info":{"lawId":"TAX","name":"Tax Law"},
				"documents":{"lawId":"TAX","locationId":"","docType":"CHAPTER","documents":{"items":[
					{"lawId":"TAX","locationId":"A22","docType":"ARTICLE","documents":{"items":[
						{"lawId":"TAX","locationId":"601","docType":"SECTION"},
						{"lawId":"TAX","locationId":"606","docType":"SECTION"}]}}]}}}}`))
		default:
			w.Write([]byte(`{"success":false,"message":"document not found"}`))
		}
	}))
	conv := &NewYork{
		fetcher: fetcher.NewFetcher(fetcher.WithRate(1000)),
		baseURL: srv.URL,
		apiKey:  "test-key",
	}
	return srv, conv
}

func TestNewYorkSection(t *testing.T) {
	srv, conv := newYorkTestServer(t)
	defer srv.Close()

	section, err := conv.Section(context.Background(), "TAX/606")
	if err != nil {
		t.Fatalf("Section failed: %v", err)
	}

	if section.SectionTitle != "Credits against tax" {
		t.Errorf("unexpected section title %q", section.SectionTitle)
	}
	if section.TitleName != "New York Tax Law" {
		t.Errorf("unexpected title name %q", section.TitleName)
	}
	if section.EffectiveDate != "2024-01-01" {
		t.Errorf("unexpected effective date %q", section.EffectiveDate)
	}
	if section.Citation.Section != "TAX/606" {
		t.Errorf("unexpected citation %q", section.Citation.Section)
	}

	if len(section.Subsections) != 2 {
		t.Fatalf("expected subsections a and b, got %d", len(section.Subsections))
	}
	a := section.Subsections[0]
	if len(a.Children) != 2 || a.Children[0].Identifier != "1" {
		t.Fatalf("expected numbered children under (a), got %+v", a.Children)
	}
}

func TestNewYorkSectionNotFound(t *testing.T) {
	srv, conv := newYorkTestServer(t)
	defer srv.Close()

	_, err := conv.Section(context.Background(), "TAX/99999")
	if !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("expected ErrSectionNotFound, got %v", err)
	}
}

func TestNewYorkMissingAPIKey(t *testing.T) {
	conv := &NewYork{fetcher: fetcher.NewFetcher()}
	_, err := conv.Section(context.Background(), "TAX/606")
	if err == nil || !strings.Contains(err.Error(), nyAPIKeyEnv) {
		t.Errorf("expected missing key error, got %v", err)
	}
}

func TestNewYorkSectionNumbers(t *testing.T) {
	srv, conv := newYorkTestServer(t)
	defer srv.Close()

	numbers, err := conv.SectionNumbers(context.Background(), "tax")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"TAX/601", "TAX/606"}
	if len(numbers) != len(want) {
		t.Fatalf("got %v, want %v", numbers, want)
	}
	for i := range want {
		if numbers[i] != want[i] {
			t.Errorf("numbers[%d] = %q, want %q", i, numbers[i], want[i])
		}
	}
}
