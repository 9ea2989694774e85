package transform

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Namespaces of the MARC dialects.
const (
	OaiMarcNS = "http://www.openarchives.org/OAI/1.1/oai_marc"
	MarcNS    = "http://www.loc.gov/MARC21/slim"
)

// OaiMarc is an OAI-MARC record as served by Aleph X-Server.
type OaiMarc struct {
	XMLName   xml.Name
	Status    string        `xml:"status,attr,omitempty"`
	Type      string        `xml:"type,attr,omitempty"`
	Level     string        `xml:"level,attr,omitempty"`
	Fixfields []OaiFixfield `xml:"fixfield"`
	Varfields []OaiVarfield `xml:"varfield"`
}

type OaiFixfield struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type OaiVarfield struct {
	ID        string        `xml:"id,attr"`
	I1        string        `xml:"i1,attr"`
	I2        string        `xml:"i2,attr"`
	Subfields []OaiSubfield `xml:"subfield"`
}

type OaiSubfield struct {
	Label string `xml:"label,attr"`
	Value string `xml:",chardata"`
}

// MarcCollection is a MARC21slim collection.
type MarcCollection struct {
	XMLName xml.Name
	Records []MarcRecord `xml:"record"`
}

// MarcRecord is a MARC21slim record.
type MarcRecord struct {
	XMLName       xml.Name
	Leader        string         `xml:"leader"`
	ControlFields []ControlField `xml:"controlfield"`
	DataFields    []DataField    `xml:"datafield"`
}

type ControlField struct {
	Tag   string `xml:"tag,attr"`
	Value string `xml:",chardata"`
}

type DataField struct {
	Tag       string     `xml:"tag,attr"`
	Ind1      string     `xml:"ind1,attr"`
	Ind2      string     `xml:"ind2,attr"`
	Subfields []Subfield `xml:"subfield"`
}

type Subfield struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",chardata"`
}

// Control returns the value of a control field.
func (r *MarcRecord) Control(tag string) string {
	for _, f := range r.ControlFields {
		if f.Tag == tag {
			return f.Value
		}
	}
	return ""
}

// Fields returns the data fields with tag, in record order.
func (r *MarcRecord) Fields(tag string) []DataField {
	var out []DataField
	for _, f := range r.DataFields {
		if f.Tag == tag {
			out = append(out, f)
		}
	}
	return out
}

// Sub returns the first subfield value with code.
func (d DataField) Sub(code string) string {
	for _, s := range d.Subfields {
		if s.Code == code {
			return s.Value
		}
	}
	return ""
}

// Subs returns every subfield value with code.
func (d DataField) Subs(code string) []string {
	var out []string
	for _, s := range d.Subfields {
		if s.Code == code {
			out = append(out, s.Value)
		}
	}
	return out
}

// leaderAt returns the leader character at pos or a blank.
func (r *MarcRecord) leaderAt(pos int) byte {
	if pos < len(r.Leader) {
		return r.Leader[pos]
	}
	return ' '
}

// findOaiMarc locates the first oai_marc element, also inside an X-Server
// present/find response envelope.
func findOaiMarc(data []byte) (*OaiMarc, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "oai_marc" {
			continue
		}
		var rec OaiMarc
		if err := dec.DecodeElement(&rec, &se); err != nil {
			return nil, err
		}
		return &rec, nil
	}
}

// parseMarc accepts a MARC21slim collection or a single record.
func parseMarc(data []byte) ([]MarcRecord, error) {
	root, err := rootName(data)
	if err != nil {
		return nil, err
	}
	switch root.Local {
	case "collection":
		var c MarcCollection
		if err := xml.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return c.Records, nil
	case "record":
		var r MarcRecord
		if err := xml.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		return []MarcRecord{r}, nil
	}
	return nil, fmt.Errorf("unexpected root element %q", root.Local)
}

func isNumericTag(id string) bool {
	if len(id) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

func indicator(s string) string {
	if s == "" {
		return " "
	}
	return s[:1]
}

// alephOaiMarcFix cleans X-Server output: local Aleph fields are dropped,
// '^' placeholders in fixed fields become blanks and subfields are trimmed.
func alephOaiMarcFix(src []byte, _ Params) ([]byte, error) {
	rec, err := findOaiMarc(src)
	if err != nil {
		return nil, malformed(AlephOaiMarcFix, err)
	}
	out := OaiMarc{
		XMLName: xml.Name{Space: OaiMarcNS, Local: "oai_marc"},
		Status:  rec.Status, Type: rec.Type, Level: rec.Level,
	}
	for _, f := range rec.Fixfields {
		if f.ID != "LDR" && !isNumericTag(f.ID) {
			continue
		}
		out.Fixfields = append(out.Fixfields, OaiFixfield{ID: f.ID, Value: strings.ReplaceAll(f.Value, "^", " ")})
	}
	for _, v := range rec.Varfields {
		if !isNumericTag(v.ID) {
			continue
		}
		field := OaiVarfield{ID: v.ID, I1: indicator(v.I1), I2: indicator(v.I2)}
		for _, s := range v.Subfields {
			value := strings.TrimSpace(s.Value)
			if value == "" {
				continue
			}
			field.Subfields = append(field.Subfields, OaiSubfield{Label: s.Label, Value: value})
		}
		if len(field.Subfields) > 0 {
			out.Varfields = append(out.Varfields, field)
		}
	}
	return encode(out)
}

// oaimarcAsMarc21slim converts OAI-MARC into a MARC21slim collection.
func oaimarcAsMarc21slim(src []byte, _ Params) ([]byte, error) {
	rec, err := findOaiMarc(src)
	if err != nil {
		return nil, malformed(OaimarcAsMarc21slim, err)
	}
	out := MarcRecord{XMLName: xml.Name{Space: MarcNS, Local: "record"}}
	for _, f := range rec.Fixfields {
		switch {
		case f.ID == "LDR":
			out.Leader = f.Value
		case isNumericTag(f.ID) && f.ID < "010":
			out.ControlFields = append(out.ControlFields, ControlField{Tag: f.ID, Value: f.Value})
		}
	}
	if out.Leader == "" {
		out.Leader = "     " + pad1(rec.Status) + pad1(rec.Type) + pad1(rec.Level) + " a22        4500"
	}
	for _, v := range rec.Varfields {
		if !isNumericTag(v.ID) || v.ID < "010" {
			continue
		}
		df := DataField{Tag: v.ID, Ind1: indicator(v.I1), Ind2: indicator(v.I2)}
		for _, s := range v.Subfields {
			df.Subfields = append(df.Subfields, Subfield{Code: s.Label, Value: s.Value})
		}
		out.DataFields = append(out.DataFields, df)
	}
	return encode(MarcCollection{XMLName: xml.Name{Space: MarcNS, Local: "collection"}, Records: []MarcRecord{out}})
}

func pad1(s string) string {
	if s == "" {
		return " "
	}
	return s[:1]
}
