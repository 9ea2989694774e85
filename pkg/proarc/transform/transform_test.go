package transform

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
)

// canonical renders XML with resolved namespaces, sorted attributes and
// whitespace-normalized text so that prefix choice and indentation do not
// matter.
func canonical(t *testing.T, data []byte) string {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(data))
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		switch v := tok.(type) {
		case xml.StartElement:
			b.WriteString("<{" + v.Name.Space + "}" + v.Name.Local)
			var attrs []string
			for _, a := range v.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				attrs = append(attrs, "{"+a.Name.Space+"}"+a.Name.Local+"="+a.Value)
			}
			sort.Strings(attrs)
			for _, a := range attrs {
				b.WriteString(" " + a)
			}
			b.WriteString(">")
		case xml.EndElement:
			b.WriteString("</>")
		case xml.CharData:
			if text := strings.Join(strings.Fields(string(v)), " "); text != "" {
				b.WriteString(text)
			}
		}
	}
	return b.String()
}

func readFile(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestAlephChainMatchesGolden(t *testing.T) {
	engine := NewEngine()
	out, err := engine.Chain(readFile(t, "aleph_present.xml"), nil, AlephOaiMarcFix, OaimarcAsMarc21slim, MarcxmlAsMods3)
	require.NoError(t, err)
	assert.Equal(t, canonical(t, readFile(t, "aleph_present.mods.golden.xml")), canonical(t, out))

	again, err := engine.Chain(readFile(t, "aleph_present.xml"), nil, AlephOaiMarcFix, OaimarcAsMarc21slim, MarcxmlAsMods3)
	require.NoError(t, err)
	assert.Equal(t, out, again, "output is deterministic")
}

// elementSpaces returns the distinct namespaces of all elements in data.
func elementSpaces(t *testing.T, data []byte) map[string]bool {
	t.Helper()
	spaces := map[string]bool{}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return spaces
		}
		require.NoError(t, err)
		if se, ok := tok.(xml.StartElement); ok {
			spaces[se.Name.Space] = true
		}
	}
}

func TestGeneratedRecordsStayInTheirNamespace(t *testing.T) {
	engine := NewEngine()
	marc, err := engine.Chain(readFile(t, "aleph_present.xml"), nil, AlephOaiMarcFix, OaimarcAsMarc21slim)
	require.NoError(t, err)
	assert.NotContains(t, string(marc), `xmlns=""`)
	assert.Equal(t, map[string]bool{MarcNS: true}, elementSpaces(t, marc))

	mods, err := engine.Transform(marc, MarcxmlAsMods3, nil)
	require.NoError(t, err)
	assert.NotContains(t, string(mods), `xmlns=""`)
	assert.Equal(t, map[string]bool{ModsNS: true}, elementSpaces(t, mods))

	out, err := MarshalMods(Mods{Version: ModsVersion, TitleInfo: []TitleInfo{{Title: []string{"Zpravodaj"}}}})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{ModsNS: true}, elementSpaces(t, out))
}

func TestAlephFixDropsLocalFields(t *testing.T) {
	out, err := NewEngine().Transform(readFile(t, "aleph_present.xml"), AlephOaiMarcFix, nil)
	require.NoError(t, err)
	s := string(out)
	assert.NotContains(t, s, `id="SYS"`)
	assert.NotContains(t, s, `id="FMT"`)
	assert.NotContains(t, s, "^")
	assert.Contains(t, s, OaiMarcNS)

	marc, err := NewEngine().Transform(out, OaimarcAsMarc21slim, nil)
	require.NoError(t, err)
	records, err := parseMarc(marc)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "     nam a22      a 4500", records[0].Leader)
	assert.Equal(t, "nkc20081234567", records[0].Control("001"))
	require.Len(t, records[0].Fields("910"), 1)
	assert.Len(t, records[0].Fields("910")[0].Subfields, 1, "blank subfields are dropped")
}

func TestOaiMarcWithoutLeaderBuildsOne(t *testing.T) {
	src := `<oai_marc status="n" type="a" level="s"><fixfield id="001">x</fixfield></oai_marc>`
	out, err := NewEngine().Transform([]byte(src), OaimarcAsMarc21slim, nil)
	require.NoError(t, err)
	records, err := parseMarc(out)
	require.NoError(t, err)
	assert.Len(t, records[0].Leader, 24)
	assert.Equal(t, "     nas a22        4500", records[0].Leader)
}

func TestMalformedInputIsTransformError(t *testing.T) {
	engine := NewEngine()
	for _, f := range []Format{AlephOaiMarcFix, OaimarcAsMarc21slim, MarcxmlAsMods3, ModsAsHtml, ModsAsTitle, ModsAsFedoraLabel, ModsAsDublinCore} {
		_, err := engine.Transform([]byte("<broken"), f, nil)
		require.Error(t, err, f.String())
		assert.Equal(t, exception.KindTransform, exception.KindOf(err), f.String())
		assert.ErrorIs(t, err, exception.ErrTransform)
	}
}

func TestUnknownFormatPanics(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = NewEngine().Transform([]byte("<a/>"), Format(99), nil)
	})
}

const issueMods = `<mods:modsCollection xmlns:mods="http://www.loc.gov/mods/v3"><mods:mods>
<mods:titleInfo><mods:title>Věda &amp; technika</mods:title><mods:subTitle>měsíčník</mods:subTitle><mods:partNumber>12</mods:partNumber></mods:titleInfo>
<mods:name type="personal"><mods:namePart>Novák, Jan</mods:namePart><mods:namePart type="date">1950-</mods:namePart></mods:name>
<mods:originInfo><mods:dateIssued>1.12.1936</mods:dateIssued></mods:originInfo>
<mods:language><mods:languageTerm authority="iso639-2b" type="code">cze</mods:languageTerm></mods:language>
<mods:identifier type="issn">1234-5678</mods:identifier>
<mods:identifier type="urnnbn">urn:nbn:cz:aba001-000001</mods:identifier>
<mods:identifier type="isbn" invalid="yes">bad</mods:identifier>
</mods:mods></mods:modsCollection>`

const pageMods = `<mods xmlns="http://www.loc.gov/mods/v3"><part type="TitlePage"><detail type="pageNumber"><number>[1]</number></detail><detail type="pageIndex"><number>1</number></detail></part></mods>`

func TestFedoraLabelDependsOnModel(t *testing.T) {
	engine := NewEngine()
	cases := []struct {
		model, src, want string
	}{
		{model.ModelNdkPeriodicalIssue, issueMods, "12, 1.12.1936"},
		{model.ModelNdkPeriodicalVolume, issueMods, "1.12.1936, 12"},
		{model.ModelNdkPeriodical, issueMods, "Věda & technika"},
		{model.ModelNdkPage, pageMods, "[1], Titulní strana"},
		{model.ModelNdkArticle, `<mods xmlns="http://www.loc.gov/mods/v3"/>`, "?"},
	}
	for _, c := range cases {
		out, err := engine.Transform([]byte(c.src), ModsAsFedoraLabel, Params{ParamModel: c.model})
		require.NoError(t, err)
		assert.Equal(t, c.want, string(out), c.model)
	}
}

func TestTitleIsLocalized(t *testing.T) {
	engine := NewEngine()
	out, err := engine.Transform([]byte(pageMods), ModsAsTitle, Params{ParamModel: model.ModelPage, ParamLocale: "en"})
	require.NoError(t, err)
	assert.Equal(t, "Page [1], Title page", string(out))

	out, err = engine.Transform([]byte(issueMods), ModsAsTitle, nil)
	require.NoError(t, err)
	assert.Equal(t, "Věda & technika: měsíčník. 12", string(out))
}

func TestHTMLEscapesValues(t *testing.T) {
	out, err := NewEngine().Transform([]byte(issueMods), ModsAsHtml, Params{ParamLocale: "en"})
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "<tr><th>Title</th><td>Věda &amp; technika</td></tr>")
	assert.Contains(t, s, "<tr><th>Author</th><td>Novák, Jan</td></tr>")
	assert.Contains(t, s, "<tr><th>Identifier</th><td>issn: 1234-5678</td></tr>")
	assert.NotContains(t, s, "bad")
}

func TestModsAsDublinCore(t *testing.T) {
	out, err := NewEngine().Transform([]byte(issueMods), ModsAsDublinCore, Params{
		ParamModel: model.ModelNdkPeriodicalIssue, ParamPID: "uuid:1", ParamPolicy: "policy:public",
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), `xmlns:dc="http://purl.org/dc/elements/1.1/"`)

	dc, err := ParseDC(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"Věda & technika: měsíčník"}, dc.Title)
	assert.Equal(t, []string{"uuid:1", "issn:1234-5678", "urn:nbn:cz:aba001-000001"}, dc.Identifier)
	assert.Equal(t, []string{model.ModelNdkPeriodicalIssue}, dc.Type)
	assert.Equal(t, []string{"policy:public"}, dc.Rights)
	assert.Equal(t, []string{"cze"}, dc.Language)
}

func TestModsAccessors(t *testing.T) {
	m, err := ParseMods([]byte(issueMods))
	require.NoError(t, err)
	assert.Equal(t, "urn:nbn:cz:aba001-000001", m.URNNBN())
	assert.Equal(t, "1234-5678", m.IdentifierValue("ISSN"))
	assert.Empty(t, m.Identifiers("isbn"))
	assert.Equal(t, []string{"Novák, Jan"}, m.Authors())

	p, err := ParseMods([]byte(pageMods))
	require.NoError(t, err)
	assert.Equal(t, "[1]", p.PageNumber())
	assert.Equal(t, "1", p.PageIndex())
	assert.Equal(t, "TitlePage", p.PageType())

	_, err = ParseMods([]byte(`<modsCollection xmlns="http://www.loc.gov/mods/v3"/>`))
	assert.Error(t, err)
}
