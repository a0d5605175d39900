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

const ukSectionXML = `<?xml version="1.0" encoding="utf-8"?>
<Legislation xmlns="http://www.legislation.gov.uk/namespaces/legislation"
             xmlns:ukm="http://www.legislation.gov.uk/namespaces/metadata"
             xmlns:dc="http://purl.org/dc/elements/1.1/"
             DocumentURI="http://www.legislation.gov.uk/ukpga/2003/1/section/62"
             RestrictExtent="E+W+S+N.I.">
  <ukm:Metadata>
    <dc:title>Income Tax (Earnings and Pensions) Act 2003</dc:title>
    <ukm:PrimaryMetadata>
      <ukm:Year Value="2003"/>
      <ukm:Number Value="1"/>
      <ukm:EnactmentDate Date="2003-03-06"/>
    </ukm:PrimaryMetadata>
  </ukm:Metadata>
  <Primary>
    <Body>
      <P1group>
        <Title>Earnings</Title>
        <P1 DocumentURI="http://www.legislation.gov.uk/ukpga/2003/1/section/62">
          <Pnumber>62</Pnumber>
          <P1para>
            <Text>This section explains what is meant by "earnings".</Text>
            <P2>
              <Pnumber>2</Pnumber>
              <P2para>
                <Text>In those Parts "earnings" means any salary, wages or fee, subject to <Citation URI="http://www.legislation.gov.uk/id/ukpga/1992/12" Class="UnitedKingdomPublicGeneralAct">the 1992 Act</Citation>.</Text>
              </P2para>
            </P2>
          </P1para>
        </P1>
      </P1group>
    </Body>
  </Primary>
</Legislation>`

const ukActXML = `<?xml version="1.0" encoding="utf-8"?>
<Legislation xmlns="http://www.legislation.gov.uk/namespaces/legislation"
             xmlns:ukm="http://www.legislation.gov.uk/namespaces/metadata"
             xmlns:dc="http://purl.org/dc/elements/1.1/"
             DocumentURI="http://www.legislation.gov.uk/ukpga/2003/1"
             NumberOfProvisions="725">
  <ukm:Metadata>
    <dc:title>Income Tax (Earnings and Pensions) Act 2003</dc:title>
  </ukm:Metadata>
  <Primary>
    <Body>
      <P1group><Title>Overview</Title>
        <P1 DocumentURI="http://www.legislation.gov.uk/ukpga/2003/1/section/1"><Pnumber>1</Pnumber><P1para><Text>Overview of contents.</Text></P1para></P1>
      </P1group>
      <P1group><Title>Earnings</Title>
        <P1 DocumentURI="http://www.legislation.gov.uk/ukpga/2003/1/section/62"><Pnumber>62</Pnumber><P1para><Text>Meaning of earnings.</Text></P1para></P1>
      </P1group>
      <P1group><Title>Benefits code</Title>
        <P1 DocumentURI="http://www.legislation.gov.uk/ukpga/2003/1/section/63"><Pnumber>63</Pnumber><P1para><Text>The benefits code.</Text></P1para></P1>
      </P1group>
    </Body>
  </Primary>
</Legislation>`

func ukTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *UK) {
	t.Helper()
	srv := httptest.NewServer(handler)
	conv := &UK{
		fetcher: fetcher.NewFetcher(fetcher.WithRate(1000)),
		baseURL: srv.URL,
	}
	return srv, conv
}

func TestUKSection(t *testing.T) {
	var gotPath string
	srv, conv := ukTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(ukSectionXML))
	})
	defer srv.Close()

	section, err := conv.Section(context.Background(), "ukpga/2003/1/section/62")
	if err != nil {
		t.Fatalf("Section failed: %v", err)
	}

	if gotPath != "/ukpga/2003/1/section/62/data.xml" {
		t.Errorf("fetched %q", gotPath)
	}
	if section.Jurisdiction != "uk" {
		t.Errorf("jurisdiction = %q", section.Jurisdiction)
	}
	if section.Citation.Section != "ukpga/2003/1/section/62" {
		t.Errorf("citation = %q", section.Citation.Section)
	}
	if section.SectionTitle != "Earnings" {
		t.Errorf("section title = %q", section.SectionTitle)
	}
	if len(section.Subsections) != 1 || section.Subsections[0].Identifier != "2" {
		t.Errorf("subsections = %+v", section.Subsections)
	}
	if !strings.Contains(section.Subsections[0].Text, "salary, wages or fee") {
		t.Errorf("subsection text = %q", section.Subsections[0].Text)
	}
}

func TestUKSectionReferences(t *testing.T) {
	srv, conv := ukTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ukSectionXML))
	})
	defer srv.Close()

	if got := conv.SectionReferences("ukpga/2003/1/section/62"); got != nil {
		t.Errorf("references before fetch = %v", got)
	}

	section, err := conv.Section(context.Background(), "ukpga/2003/1/section/62")
	if err != nil {
		t.Fatalf("Section failed: %v", err)
	}

	refs := conv.SectionReferences("ukpga/2003/1/section/62")
	if len(refs) != 1 || refs[0] != "uk/ukpga/1992/12" {
		t.Errorf("references = %v", refs)
	}
	// Shorthand refs resolve to the same cached entry.
	refs = conv.SectionReferences("ukpga/2003/1/62")
	if len(refs) != 1 || refs[0] != "uk/ukpga/1992/12" {
		t.Errorf("shorthand references = %v", refs)
	}
	if conv.SectionReferences("not-a-reference") != nil {
		t.Error("expected nil for invalid reference")
	}

	wantExtent := []string{"E", "W", "S", "N.I."}
	if len(section.Extent) != len(wantExtent) {
		t.Fatalf("extent = %v", section.Extent)
	}
	for i, w := range wantExtent {
		if section.Extent[i] != w {
			t.Errorf("extent[%d] = %q, want %q", i, section.Extent[i], w)
		}
	}
}

func TestUKSectionShorthandRef(t *testing.T) {
	var gotPath string
	srv, conv := ukTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(ukSectionXML))
	})
	defer srv.Close()

	if _, err := conv.Section(context.Background(), "ukpga/2003/1/62"); err != nil {
		t.Fatalf("Section failed: %v", err)
	}
	if gotPath != "/ukpga/2003/1/section/62/data.xml" {
		t.Errorf("shorthand fetched %q", gotPath)
	}
}

func TestUKSectionBadReference(t *testing.T) {
	conv := &UK{fetcher: fetcher.NewFetcher()}
	_, err := conv.Section(context.Background(), "not-a-reference")
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *ConvertError
	if !errors.As(err, &ce) {
		t.Fatalf("error type %T", err)
	}
}

func TestUKSectionNotFound(t *testing.T) {
	srv, conv := ukTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	defer srv.Close()

	_, err := conv.Section(context.Background(), "ukpga/2003/1/section/9999")
	if !errors.Is(err, ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}
}

func TestUKSectionNumbers(t *testing.T) {
	srv, conv := ukTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ukpga/2003/1/data.xml" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(ukActXML))
	})
	defer srv.Close()

	nums, err := conv.SectionNumbers(context.Background(), "ukpga/2003/1")
	if err != nil {
		t.Fatalf("SectionNumbers failed: %v", err)
	}
	want := []string{
		"ukpga/2003/1/section/1",
		"ukpga/2003/1/section/62",
		"ukpga/2003/1/section/63",
	}
	if len(nums) != len(want) {
		t.Fatalf("got %v", nums)
	}
	for i := range want {
		if nums[i] != want[i] {
			t.Errorf("nums[%d] = %q, want %q", i, nums[i], want[i])
		}
	}
}

func TestUKAct(t *testing.T) {
	srv, conv := ukTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ukActXML))
	})
	defer srv.Close()

	act, err := conv.Act(context.Background(), "ukpga/2003/1")
	if err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	if act.Title != "Income Tax (Earnings and Pensions) Act 2003" {
		t.Errorf("title = %q", act.Title)
	}
	if act.SectionCount != 725 {
		t.Errorf("section count = %d", act.SectionCount)
	}
}
