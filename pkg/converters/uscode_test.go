package converters

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/RulesFoundation/atlas/pkg/fetcher"
	"github.com/RulesFoundation/atlas/pkg/uslm"
)

const usTitleXML = `<?xml version="1.0" encoding="UTF-8"?>
<uscDoc xmlns="http://xml.house.gov/schemas/uslm/1.0">
  <meta><docNumber>26</docNumber></meta>
  <main>
    <title identifier="/us/usc/t26">
      <heading>INTERNAL REVENUE CODE</heading>
      <section identifier="/us/usc/t26/s1">
        <heading>Tax imposed</heading>
        <subsection identifier="/us/usc/t26/s1/a">
          <content>There is hereby imposed on the taxable income of every married individual a tax.</content>
        </subsection>
      </section>
      <section identifier="/us/usc/t26/s32">
        <heading>Earned income</heading>
        <content>Credit allowed per <ref href="/us/usc/t26/s1">section 1</ref>.</content>
      </section>
    </title>
  </main>
</uscDoc>`

func zipXML(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("usc26.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func usCodeTestServer(t *testing.T) (*httptest.Server, *USCode, *atomic.Int64) {
	t.Helper()
	var fetches atomic.Int64
	archive := zipXML(t, usTitleXML)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Write(archive)
	}))
	conv := &USCode{
		fetcher: fetcher.NewFetcher(fetcher.WithRate(1000)),
		baseURL: srv.URL,
		titles:  make(map[int]*uslm.Title),
	}
	return srv, conv, &fetches
}

func TestUSCodeSection(t *testing.T) {
	srv, conv, fetches := usCodeTestServer(t)
	defer srv.Close()

	section, err := conv.Section(context.Background(), "26 USC 32")
	if err != nil {
		t.Fatalf("Section failed: %v", err)
	}
	if section.SectionTitle != "Earned income" {
		t.Errorf("unexpected heading %q", section.SectionTitle)
	}
	if section.Citation.Title != 26 || section.Citation.Section != "32" {
		t.Errorf("unexpected citation %+v", section.Citation)
	}

	// Slash form resolves the same section and reuses the cached title.
	again, err := conv.Section(context.Background(), "26/32")
	if err != nil {
		t.Fatal(err)
	}
	if again.SectionTitle != section.SectionTitle {
		t.Error("slash citation resolved differently")
	}
	if fetches.Load() != 1 {
		t.Errorf("expected 1 title download, got %d", fetches.Load())
	}
}

func TestUSCodeSectionNotFound(t *testing.T) {
	srv, conv, _ := usCodeTestServer(t)
	defer srv.Close()

	_, err := conv.Section(context.Background(), "26 USC 9999")
	if !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("expected ErrSectionNotFound, got %v", err)
	}
}

func TestUSCodeSectionNumbers(t *testing.T) {
	srv, conv, _ := usCodeTestServer(t)
	defer srv.Close()

	numbers, err := conv.SectionNumbers(context.Background(), "26")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"26/1", "26/32"}
	if len(numbers) != len(want) {
		t.Fatalf("got %v, want %v", numbers, want)
	}
	for i := range want {
		if numbers[i] != want[i] {
			t.Errorf("numbers[%d] = %q, want %q", i, numbers[i], want[i])
		}
	}
}

func TestUSCodeReferences(t *testing.T) {
	srv, conv, _ := usCodeTestServer(t)
	defer srv.Close()

	if _, err := conv.Section(context.Background(), "26 USC 32"); err != nil {
		t.Fatal(err)
	}
	refs := conv.References(26, "32")
	if len(refs) != 1 || refs[0] != "26 USC 1" {
		t.Errorf("unexpected references %v", refs)
	}
}

func TestUSCodeSectionReferences(t *testing.T) {
	srv, conv, _ := usCodeTestServer(t)
	defer srv.Close()

	if _, err := conv.Section(context.Background(), "26/32"); err != nil {
		t.Fatal(err)
	}
	paths := conv.SectionReferences("26/32")
	if len(paths) != 1 || paths[0] != "us/statute/26/1" {
		t.Errorf("unexpected reference paths %v", paths)
	}

	if paths := conv.SectionReferences("not-a-citation"); paths != nil {
		t.Errorf("malformed citation produced paths %v", paths)
	}
}
