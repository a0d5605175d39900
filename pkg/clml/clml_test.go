package clml

import (
	"strings"
	"testing"
)

const sampleCLML = `<?xml version="1.0" encoding="utf-8"?>
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
      <P1group RestrictExtent="E+W+S+N.I.">
        <Title>Earnings</Title>
        <P1 DocumentURI="http://www.legislation.gov.uk/ukpga/2003/1/section/62">
          <Pnumber>62</Pnumber>
          <P1para>
            <Text>This section explains what is meant by "earnings" in the employment income Parts.</Text>
            <P2>
              <Pnumber>2</Pnumber>
              <P2para>
                <Text>In those Parts "earnings", in relation to an employment, means&#8212;</Text>
                <P3>
                  <Pnumber>a</Pnumber>
                  <P3para>
                    <Text>any salary, wages or fee,</Text>
                  </P3para>
                </P3>
                <P3>
                  <Pnumber>b</Pnumber>
                  <P3para>
                    <Text>any gratuity or other profit or incidental benefit of any kind obtained by the employee if it is money or <Citation URI="http://www.legislation.gov.uk/id/ukpga/1992/12" Class="UnitedKingdomPublicGeneralAct">money's worth</Citation>, or</Text>
                  </P3para>
                </P3>
              </P2para>
            </P2>
            <P2>
              <Pnumber>3</Pnumber>
              <P2para>
                <Text>For the purposes of subsection (2) "money's worth" means something that is of direct monetary value to the employee.</Text>
              </P2para>
            </P2>
          </P1para>
        </P1>
      </P1group>
    </Body>
  </Primary>
</Legislation>`

func TestParseSection(t *testing.T) {
	doc, err := ParseSection([]byte(sampleCLML))
	if err != nil {
		t.Fatalf("ParseSection: %v", err)
	}

	if got := doc.Citation.Ref(); got != "ukpga/2003/1/section/62" {
		t.Errorf("citation ref = %q", got)
	}
	if doc.Citation.Year != 2003 || doc.Citation.Number != 1 {
		t.Errorf("citation = %+v", doc.Citation)
	}

	sec := doc.Section
	if sec.Jurisdiction != "uk" {
		t.Errorf("jurisdiction = %q", sec.Jurisdiction)
	}
	if sec.TitleName != "Income Tax (Earnings and Pensions) Act 2003" {
		t.Errorf("title name = %q", sec.TitleName)
	}
	if sec.SectionTitle != "Earnings" {
		t.Errorf("section title = %q", sec.SectionTitle)
	}
	if sec.EffectiveDate != "2003-03-06" {
		t.Errorf("effective date = %q", sec.EffectiveDate)
	}
	if want := `This section explains what is meant by "earnings" in the employment income Parts.`; sec.Text != want {
		t.Errorf("intro text = %q", sec.Text)
	}

	if len(sec.Subsections) != 2 {
		t.Fatalf("got %d subsections, want 2", len(sec.Subsections))
	}
	sub2 := sec.Subsections[0]
	if sub2.Identifier != "2" {
		t.Errorf("first subsection identifier = %q", sub2.Identifier)
	}
	if len(sub2.Children) != 2 {
		t.Fatalf("got %d paragraphs under (2), want 2", len(sub2.Children))
	}
	if sub2.Children[0].Identifier != "a" || sub2.Children[0].Text != "any salary, wages or fee," {
		t.Errorf("paragraph (a) = %+v", sub2.Children[0])
	}
	// Inline Citation element text stays in the paragraph text.
	if got := sub2.Children[1].Text; got == "" || !containsAll(got, "money's worth", "gratuity") {
		t.Errorf("paragraph (b) text lost inline content: %q", got)
	}
}

func TestParseSectionExtentAndReferences(t *testing.T) {
	doc, err := ParseSection([]byte(sampleCLML))
	if err != nil {
		t.Fatalf("ParseSection: %v", err)
	}

	wantExtent := []string{"E", "W", "S", "N.I."}
	if len(doc.Extent) != len(wantExtent) {
		t.Fatalf("extent = %v", doc.Extent)
	}
	for i, w := range wantExtent {
		if doc.Extent[i] != w {
			t.Errorf("extent[%d] = %q, want %q", i, doc.Extent[i], w)
		}
	}

	if len(doc.References) != 1 || doc.References[0] != "ukpga/1992/12" {
		t.Errorf("references = %v", doc.References)
	}
}

func TestParseCitationURI(t *testing.T) {
	tests := []struct {
		uri  string
		want Citation
	}{
		{"http://www.legislation.gov.uk/ukpga/2003/1/section/62", Citation{"ukpga", 2003, 1, "62"}},
		{"http://www.legislation.gov.uk/ukpga/2003/1/section/401A", Citation{"ukpga", 2003, 1, "401A"}},
		{"http://www.legislation.gov.uk/id/uksi/2006/246", Citation{"uksi", 2006, 246, ""}},
	}
	for _, tt := range tests {
		got, ok := parseCitationURI(tt.uri)
		if !ok {
			t.Errorf("parseCitationURI(%q): no match", tt.uri)
			continue
		}
		if got != tt.want {
			t.Errorf("parseCitationURI(%q) = %+v, want %+v", tt.uri, got, tt.want)
		}
	}
}

func TestParseSectionNoProvision(t *testing.T) {
	raw := `<Legislation xmlns="http://www.legislation.gov.uk/namespaces/legislation"><Primary><Body/></Primary></Legislation>`
	if _, err := ParseSection([]byte(raw)); err == nil {
		t.Fatal("expected error for document without P1")
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
