package transform

import (
	"html"
	"strings"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
)

var labels = map[string]map[string]string{
	"cs": {
		"title": "Název", "subTitle": "Podnázev", "partNumber": "Číslo části", "partName": "Název části",
		"author": "Autor", "publisher": "Vydavatel", "dateIssued": "Datum vydání", "language": "Jazyk",
		"identifier": "Identifikátor", "extent": "Rozsah", "abstract": "Abstrakt", "note": "Poznámka",
		"page": "Strana", "NormalPage": "Normální strana", "TitlePage": "Titulní strana",
		"FrontCover": "Přední obálka", "BackCover": "Zadní obálka", "Blank": "Prázdná strana",
	},
	"en": {
		"title": "Title", "subTitle": "Subtitle", "partNumber": "Part number", "partName": "Part name",
		"author": "Author", "publisher": "Publisher", "dateIssued": "Date issued", "language": "Language",
		"identifier": "Identifier", "extent": "Extent", "abstract": "Abstract", "note": "Note",
		"page": "Page", "NormalPage": "Normal page", "TitlePage": "Title page",
		"FrontCover": "Front cover", "BackCover": "Back cover", "Blank": "Blank page",
	},
}

func label(locale, key string) string {
	if l, ok := labels[locale][key]; ok {
		return l
	}
	if l, ok := labels["en"][key]; ok {
		return l
	}
	return key
}

func parseForView(f Format, src []byte) (*Mods, error) {
	m, err := ParseMods(src)
	if err != nil {
		return nil, malformed(f, err)
	}
	return m, nil
}

func joinNonEmpty(sep string, values ...string) string {
	return strings.Join(nonEmpty(values...), sep)
}

// fullTitle is "title: subtitle. part number. part name".
func fullTitle(m *Mods) string {
	t := joinNonEmpty(": ", m.Title(), m.SubTitle())
	return joinNonEmpty(". ", t, m.PartNumber(), m.PartName())
}

func pageLabel(m *Mods, locale string) string {
	number := m.PageNumber()
	if number == "" {
		number = "?"
	}
	if t := m.PageType(); t != "NormalPage" {
		return number + ", " + label(locale, t)
	}
	return number
}

// objectLabel derives the repository label for a model.
func objectLabel(m *Mods, modelID, locale string) string {
	var out string
	switch {
	case model.IsPageModel(modelID):
		out = pageLabel(m, locale)
	case modelID == model.ModelNdkPeriodicalVolume:
		out = joinNonEmpty(", ", m.DateIssued(), m.PartNumber())
	case modelID == model.ModelNdkPeriodicalIssue, modelID == model.ModelNdkPeriodicalSupplement:
		out = joinNonEmpty(", ", m.PartNumber(), m.DateIssued())
	case modelID == model.ModelNdkMonographVolume, modelID == model.ModelOldPrintVolume:
		out = joinNonEmpty("; ", m.Title(), m.PartNumber())
	default:
		out = m.Title()
	}
	if out == "" {
		return "?"
	}
	return out
}

func modsAsFedoraLabel(src []byte, params Params) ([]byte, error) {
	m, err := parseForView(ModsAsFedoraLabel, src)
	if err != nil {
		return nil, err
	}
	return []byte(objectLabel(m, params[ParamModel], params.locale())), nil
}

func modsAsTitle(src []byte, params Params) ([]byte, error) {
	m, err := parseForView(ModsAsTitle, src)
	if err != nil {
		return nil, err
	}
	if model.IsPageModel(params[ParamModel]) {
		return []byte(label(params.locale(), "page") + " " + pageLabel(m, params.locale())), nil
	}
	t := fullTitle(m)
	if t == "" {
		t = "?"
	}
	return []byte(t), nil
}

func modsAsHTML(src []byte, params Params) ([]byte, error) {
	m, err := parseForView(ModsAsHtml, src)
	if err != nil {
		return nil, err
	}
	loc := params.locale()
	var b strings.Builder
	row := func(key string, values ...string) {
		for _, v := range values {
			if v == "" {
				continue
			}
			b.WriteString("<tr><th>")
			b.WriteString(html.EscapeString(label(loc, key)))
			b.WriteString("</th><td>")
			b.WriteString(html.EscapeString(v))
			b.WriteString("</td></tr>\n")
		}
	}
	b.WriteString("<html lang=\"" + html.EscapeString(loc) + "\">\n<body>\n<table class=\"mods\">\n")
	row("title", m.Title())
	row("subTitle", m.SubTitle())
	row("partNumber", m.PartNumber())
	row("partName", m.PartName())
	row("author", m.Authors()...)
	row("publisher", m.Publisher())
	row("dateIssued", m.DateIssued())
	row("language", m.Languages()...)
	for _, id := range m.Identifier {
		if id.Invalid != "yes" && strings.TrimSpace(id.Value) != "" {
			row("identifier", id.Type+": "+strings.TrimSpace(id.Value))
		}
	}
	for _, pd := range m.PhysicalDescription {
		row("extent", pd.Extent...)
	}
	if model.IsPageModel(params[ParamModel]) {
		row("page", pageLabel(m, loc))
	}
	row("abstract", m.Abstracts()...)
	row("note", m.Note...)
	b.WriteString("</table>\n</body>\n</html>\n")
	return []byte(b.String()), nil
}
