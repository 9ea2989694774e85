package transform

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	titleTrail = " /:;,.="
	nameTrail  = " ,"
	dateTrail  = " .;,"
)

func clean(s, trail string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), trail))
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// fixed returns a trimmed slice of a fixed-length control field.
func fixed(s string, from, to int) string {
	if len(s) < to {
		return ""
	}
	return strings.TrimSpace(s[from:to])
}

// marcxmlAsMods3 maps MARC21slim records onto MODS.
func marcxmlAsMods3(src []byte, _ Params) ([]byte, error) {
	records, err := parseMarc(src)
	if err != nil {
		return nil, malformed(MarcxmlAsMods3, err)
	}
	if len(records) == 0 {
		return nil, malformed(MarcxmlAsMods3, fmt.Errorf("no MARC record"))
	}
	out := make([]Mods, 0, len(records))
	for i := range records {
		out = append(out, marcToMods(&records[i]))
	}
	return MarshalMods(out...)
}

func marcToMods(r *MarcRecord) Mods {
	m := Mods{Version: ModsVersion}
	for _, f := range r.Fields("245") {
		m.TitleInfo = append(m.TitleInfo, mainTitleInfo(f))
	}
	for _, f := range r.Fields("246") {
		m.TitleInfo = append(m.TitleInfo, TitleInfo{
			Type:     "alternative",
			Title:    nonEmpty(clean(f.Sub("a"), titleTrail)),
			SubTitle: nonEmpty(clean(f.Sub("b"), titleTrail)),
		})
	}
	for _, f := range r.DataFields {
		switch f.Tag {
		case "100", "110", "700", "710":
			m.Name = append(m.Name, nameFrom(f))
		}
	}
	if t := resourceType(r.leaderAt(6)); t != "" {
		m.TypeOfResource = []string{t}
	}
	if oi, ok := originInfo(r); ok {
		m.OriginInfo = []OriginInfo{oi}
	}
	m.Language = languages(r)
	if pd, ok := physicalDescription(r); ok {
		m.PhysicalDescription = []PhysicalDescription{pd}
	}
	for _, f := range r.Fields("520") {
		m.Abstract = append(m.Abstract, nonEmpty(strings.TrimSpace(f.Sub("a")))...)
	}
	for _, f := range r.Fields("500") {
		m.Note = append(m.Note, nonEmpty(strings.TrimSpace(f.Sub("a")))...)
	}
	for _, f := range r.DataFields {
		switch f.Tag {
		case "650":
			s := Subject{Authority: f.Sub("2"), Topic: nonEmpty(clean(f.Sub("a"), " ."))}
			for _, z := range f.Subs("z") {
				s.Geographic = append(s.Geographic, nonEmpty(clean(z, " ."))...)
			}
			for _, y := range f.Subs("y") {
				s.Temporal = append(s.Temporal, nonEmpty(clean(y, " ."))...)
			}
			m.Subject = append(m.Subject, s)
		case "651":
			m.Subject = append(m.Subject, Subject{Authority: f.Sub("2"), Geographic: nonEmpty(clean(f.Sub("a"), " ."))})
		case "080":
			m.Classification = append(m.Classification, Term{Authority: "udc", Value: clean(f.Sub("a"), " ")})
		case "072":
			auth := f.Sub("2")
			if auth == "" {
				auth = "Konspekt"
			}
			m.Classification = append(m.Classification, Term{Authority: auth, Value: clean(f.Sub("a"), " ")})
		}
	}
	m.Identifier = identifiers(r)
	if ri, ok := recordInfo(r); ok {
		m.RecordInfo = []RecordInfo{ri}
	}
	return m
}

func mainTitleInfo(f DataField) TitleInfo {
	title := clean(f.Sub("a"), titleTrail)
	ti := TitleInfo{}
	if n := nonFiling(f.Ind2); n > 0 && utf8.RuneCountInString(title) > n {
		runes := []rune(title)
		ti.NonSort = nonEmpty(strings.TrimSpace(string(runes[:n])))
		title = strings.TrimSpace(string(runes[n:]))
	}
	ti.Title = nonEmpty(title)
	ti.SubTitle = nonEmpty(clean(f.Sub("b"), titleTrail))
	ti.PartNumber = nonEmpty(clean(f.Sub("n"), titleTrail))
	ti.PartName = nonEmpty(clean(f.Sub("p"), titleTrail))
	return ti
}

// nonFiling reads the count of non-filing characters from an indicator.
func nonFiling(ind string) int {
	if len(ind) != 1 || ind[0] < '1' || ind[0] > '9' {
		return 0
	}
	return int(ind[0] - '0')
}

func nameFrom(f DataField) Name {
	n := Name{Type: "personal"}
	if f.Tag == "110" || f.Tag == "710" {
		n.Type = "corporate"
	}
	if f.Tag == "100" || f.Tag == "110" {
		n.Usage = "primary"
	}
	if a := clean(f.Sub("a"), nameTrail); a != "" {
		n.NamePart = append(n.NamePart, NamePart{Value: a})
	}
	if n.Type == "corporate" {
		for _, b := range f.Subs("b") {
			if v := clean(b, " ,."); v != "" {
				n.NamePart = append(n.NamePart, NamePart{Value: v})
			}
		}
	} else if d := clean(f.Sub("d"), dateTrail); d != "" {
		n.NamePart = append(n.NamePart, NamePart{Type: "date", Value: d})
	}
	for _, code := range f.Subs("4") {
		n.Role = append(n.Role, Role{RoleTerm: []Term{{Authority: "marcrelator", Type: "code", Value: strings.TrimSpace(code)}}})
	}
	if len(n.Role) == 0 {
		for _, e := range f.Subs("e") {
			n.Role = append(n.Role, Role{RoleTerm: []Term{{Type: "text", Value: clean(e, " ,.")}}})
		}
	}
	return n
}

func resourceType(c byte) string {
	switch c {
	case 'a', 't':
		return "text"
	case 'e', 'f':
		return "cartographic"
	case 'c', 'd':
		return "notated music"
	case 'i':
		return "sound recording-nonmusical"
	case 'j':
		return "sound recording-musical"
	case 'k':
		return "still image"
	case 'g':
		return "moving image"
	case 'm':
		return "software, multimedia"
	case 'o', 'p':
		return "mixed material"
	case 'r':
		return "three dimensional object"
	}
	return ""
}

func originInfo(r *MarcRecord) (OriginInfo, bool) {
	oi := OriginInfo{}
	f008 := r.Control("008")
	if code := fixed(f008, 15, 18); code != "" && code != "xx" {
		oi.Place = append(oi.Place, Place{PlaceTerm: []Term{{Authority: "marccountry", Type: "code", Value: code}}})
	}
	var imprint []DataField
	imprint = append(imprint, r.Fields("260")...)
	for _, f := range r.Fields("264") {
		if f.Ind2 == "1" {
			imprint = append(imprint, f)
		}
	}
	for _, f := range imprint {
		for _, a := range f.Subs("a") {
			if v := clean(strings.Trim(a, "[]"), " :;[]"); v != "" {
				oi.Place = append(oi.Place, Place{PlaceTerm: []Term{{Type: "text", Value: v}}})
			}
		}
		for _, b := range f.Subs("b") {
			oi.Publisher = append(oi.Publisher, nonEmpty(clean(b, " ,:;"))...)
		}
		for _, c := range f.Subs("c") {
			if v := clean(c, dateTrail); v != "" {
				oi.DateIssued = append(oi.DateIssued, Date{Value: v})
			}
		}
	}
	if date1 := fixed(f008, 7, 11); date1 != "" {
		oi.DateIssued = append(oi.DateIssued, Date{Encoding: "marc", Value: date1})
	}
	for _, f := range r.Fields("250") {
		oi.Edition = append(oi.Edition, nonEmpty(clean(f.Sub("a"), " /."))...)
	}
	switch r.leaderAt(7) {
	case 'a', 'c', 'd', 'm':
		oi.Issuance = []string{"monographic"}
	case 'b', 'i', 's':
		oi.Issuance = []string{"continuing"}
	}
	ok := len(oi.Place)+len(oi.Publisher)+len(oi.DateIssued)+len(oi.Edition)+len(oi.Issuance) > 0
	return oi, ok
}

func languageTerm(code string) Language {
	return Language{LanguageTerm: []Term{{Authority: "iso639-2b", Type: "code", Value: code}}}
}

func languages(r *MarcRecord) []Language {
	var out []Language
	seen := map[string]bool{}
	add := func(code string) {
		code = strings.TrimSpace(code)
		if code == "" || seen[code] {
			return
		}
		seen[code] = true
		out = append(out, languageTerm(code))
	}
	add(fixed(r.Control("008"), 35, 38))
	for _, f := range r.Fields("041") {
		for _, a := range f.Subs("a") {
			for i := 0; i+3 <= len(a); i += 3 {
				add(a[i : i+3])
			}
		}
	}
	return out
}

var itemForms = map[byte]string{
	'a': "microfilm",
	'b': "microfiche",
	'o': "online",
	'q': "direct electronic",
	'r': "regular print reproduction",
	's': "electronic",
}

func physicalDescription(r *MarcRecord) (PhysicalDescription, bool) {
	pd := PhysicalDescription{}
	if f008 := r.Control("008"); len(f008) > 23 {
		if form, ok := itemForms[f008[23]]; ok {
			pd.Form = []Term{{Authority: "marcform", Value: form}}
		}
	}
	for _, f := range r.Fields("300") {
		extent := clean(f.Sub("a"), " :;+")
		if b := clean(f.Sub("b"), " :;+"); b != "" {
			extent += " : " + b
		}
		if c := clean(f.Sub("c"), " :;+"); c != "" {
			extent += " ; " + c
		}
		pd.Extent = append(pd.Extent, nonEmpty(strings.TrimSpace(extent))...)
	}
	return pd, len(pd.Form)+len(pd.Extent) > 0
}

func identifiers(r *MarcRecord) []Identifier {
	var out []Identifier
	add := func(typ, value string, invalid bool) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		id := Identifier{Type: typ, Value: value}
		if invalid {
			id.Invalid = "yes"
		}
		out = append(out, id)
	}
	for _, f := range r.DataFields {
		switch f.Tag {
		case "015":
			for _, v := range f.Subs("a") {
				add("ccnb", v, false)
			}
			for _, v := range f.Subs("z") {
				add("ccnb", v, true)
			}
		case "020":
			for _, v := range f.Subs("a") {
				add("isbn", firstToken(v), false)
			}
			for _, v := range f.Subs("z") {
				add("isbn", firstToken(v), true)
			}
		case "022":
			for _, v := range f.Subs("a") {
				add("issn", firstToken(v), false)
			}
			for _, v := range f.Subs("z") {
				add("issn", firstToken(v), true)
			}
		case "024":
			switch f.Ind1 {
			case "7":
				if typ := strings.ToLower(strings.TrimSpace(f.Sub("2"))); typ != "" {
					add(typ, f.Sub("a"), false)
				}
			case "2":
				add("ismn", f.Sub("a"), false)
			case "3":
				add("ean", f.Sub("a"), false)
			}
		}
	}
	return out
}

func firstToken(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func recordInfo(r *MarcRecord) (RecordInfo, bool) {
	ri := RecordInfo{}
	f040 := r.Fields("040")
	if len(f040) > 0 {
		ri.DescriptionStandard = nonEmpty(strings.TrimSpace(f040[0].Sub("e")))
	}
	if len(ri.DescriptionStandard) == 0 && r.leaderAt(18) == 'a' {
		ri.DescriptionStandard = []string{"aacr"}
	}
	switch {
	case len(f040) > 0 && f040[0].Sub("a") != "":
		ri.RecordContentSource = []Term{{Authority: "marcorg", Value: strings.TrimSpace(f040[0].Sub("a"))}}
	case r.Control("003") != "":
		ri.RecordContentSource = []Term{{Authority: "marcorg", Value: r.Control("003")}}
	}
	if created := fixed(r.Control("008"), 0, 6); created != "" {
		ri.RecordCreationDate = []Date{{Encoding: "marc", Value: created}}
	}
	if changed := strings.TrimSpace(r.Control("005")); changed != "" {
		ri.RecordChangeDate = []Date{{Encoding: "iso8601", Value: changed}}
	}
	if id := strings.TrimSpace(r.Control("001")); id != "" {
		ri.RecordIdentifier = []RecordIdentifier{{Source: r.Control("003"), Value: id}}
	}
	if len(f040) > 0 {
		if lang := strings.TrimSpace(f040[0].Sub("b")); lang != "" {
			ri.LanguageOfCataloging = []Language{languageTerm(lang)}
		}
	}
	ok := len(ri.DescriptionStandard)+len(ri.RecordContentSource)+len(ri.RecordCreationDate)+
		len(ri.RecordChangeDate)+len(ri.RecordIdentifier)+len(ri.LanguageOfCataloging) > 0
	return ri, ok
}
