package transform

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// ModsNS is the MODS v3 namespace.
const ModsNS = "http://www.loc.gov/mods/v3"

// ModsVersion is written into generated records.
const ModsVersion = "3.6"

type ModsCollection struct {
	XMLName xml.Name
	Mods    []Mods `xml:"mods"`
}

// Mods is the subset of MODS 3 read and written by the pipeline.
type Mods struct {
	XMLName             xml.Name
	ID                  string                `xml:"ID,attr,omitempty"`
	Version             string                `xml:"version,attr,omitempty"`
	TitleInfo           []TitleInfo           `xml:"titleInfo"`
	Name                []Name                `xml:"name"`
	TypeOfResource      []string              `xml:"typeOfResource"`
	Genre               []Term                `xml:"genre"`
	OriginInfo          []OriginInfo          `xml:"originInfo"`
	Language            []Language            `xml:"language"`
	PhysicalDescription []PhysicalDescription `xml:"physicalDescription"`
	Abstract            []string              `xml:"abstract"`
	Note                []string              `xml:"note"`
	Subject             []Subject             `xml:"subject"`
	Classification      []Term                `xml:"classification"`
	Identifier          []Identifier          `xml:"identifier"`
	Part                []Part                `xml:"part"`
	RecordInfo          []RecordInfo          `xml:"recordInfo"`
}

type TitleInfo struct {
	Type       string   `xml:"type,attr,omitempty"`
	NonSort    []string `xml:"nonSort"`
	Title      []string `xml:"title"`
	SubTitle   []string `xml:"subTitle"`
	PartNumber []string `xml:"partNumber"`
	PartName   []string `xml:"partName"`
}

type Name struct {
	Type     string     `xml:"type,attr,omitempty"`
	Usage    string     `xml:"usage,attr,omitempty"`
	NamePart []NamePart `xml:"namePart"`
	Role     []Role     `xml:"role"`
}

type NamePart struct {
	Type  string `xml:"type,attr,omitempty"`
	Value string `xml:",chardata"`
}

type Role struct {
	RoleTerm []Term `xml:"roleTerm"`
}

// Term is a value with optional authority and type attributes.
type Term struct {
	Authority string `xml:"authority,attr,omitempty"`
	Type      string `xml:"type,attr,omitempty"`
	Value     string `xml:",chardata"`
}

type OriginInfo struct {
	Place       []Place  `xml:"place"`
	Publisher   []string `xml:"publisher"`
	DateIssued  []Date   `xml:"dateIssued"`
	DateCreated []Date   `xml:"dateCreated"`
	Edition     []string `xml:"edition"`
	Issuance    []string `xml:"issuance"`
}

type Place struct {
	PlaceTerm []Term `xml:"placeTerm"`
}

type Date struct {
	Encoding  string `xml:"encoding,attr,omitempty"`
	Point     string `xml:"point,attr,omitempty"`
	Qualifier string `xml:"qualifier,attr,omitempty"`
	Value     string `xml:",chardata"`
}

type Language struct {
	LanguageTerm []Term `xml:"languageTerm"`
}

type PhysicalDescription struct {
	Form   []Term   `xml:"form"`
	Extent []string `xml:"extent"`
}

type Subject struct {
	Authority  string   `xml:"authority,attr,omitempty"`
	Topic      []string `xml:"topic"`
	Geographic []string `xml:"geographic"`
	Temporal   []string `xml:"temporal"`
}

type Identifier struct {
	Type    string `xml:"type,attr,omitempty"`
	Invalid string `xml:"invalid,attr,omitempty"`
	Value   string `xml:",chardata"`
}

type Part struct {
	Type   string   `xml:"type,attr,omitempty"`
	Detail []Detail `xml:"detail"`
	Date   []Date   `xml:"date"`
}

type Detail struct {
	Type   string   `xml:"type,attr,omitempty"`
	Number []string `xml:"number"`
	Title  []string `xml:"title"`
}

type RecordInfo struct {
	DescriptionStandard  []string           `xml:"descriptionStandard"`
	RecordContentSource  []Term             `xml:"recordContentSource"`
	RecordCreationDate   []Date             `xml:"recordCreationDate"`
	RecordChangeDate     []Date             `xml:"recordChangeDate"`
	RecordIdentifier     []RecordIdentifier `xml:"recordIdentifier"`
	LanguageOfCataloging []Language         `xml:"languageOfCataloging"`
}

type RecordIdentifier struct {
	Source string `xml:"source,attr,omitempty"`
	Value  string `xml:",chardata"`
}

// ParseMods reads a MODS record or the first record of a collection.
func ParseMods(data []byte) (*Mods, error) {
	root, err := rootName(data)
	if err != nil {
		return nil, err
	}
	switch root.Local {
	case "modsCollection":
		var c ModsCollection
		if err := xml.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		if len(c.Mods) == 0 {
			return nil, fmt.Errorf("empty modsCollection")
		}
		return &c.Mods[0], nil
	case "mods":
		var m Mods
		if err := xml.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		return &m, nil
	}
	return nil, fmt.Errorf("unexpected root element %q", root.Local)
}

// MarshalMods renders records as a modsCollection.
func MarshalMods(records ...Mods) ([]byte, error) {
	c := ModsCollection{XMLName: xml.Name{Space: ModsNS, Local: "modsCollection"}}
	for _, m := range records {
		m.XMLName = xml.Name{Space: ModsNS, Local: "mods"}
		c.Mods = append(c.Mods, m)
	}
	return encode(c)
}

func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// mainTitle returns the titleInfo without a type, or the first one.
func (m *Mods) mainTitle() *TitleInfo {
	for i := range m.TitleInfo {
		if m.TitleInfo[i].Type == "" {
			return &m.TitleInfo[i]
		}
	}
	if len(m.TitleInfo) > 0 {
		return &m.TitleInfo[0]
	}
	return nil
}

// Title returns nonSort and title of the main titleInfo.
func (m *Mods) Title() string {
	ti := m.mainTitle()
	if ti == nil {
		return ""
	}
	return strings.TrimSpace(first(ti.NonSort) + " " + first(ti.Title))
}

// SubTitle returns the subtitle of the main titleInfo.
func (m *Mods) SubTitle() string {
	if ti := m.mainTitle(); ti != nil {
		return first(ti.SubTitle)
	}
	return ""
}

// PartNumber returns the titleInfo part number, falling back to the first
// numbered part detail.
func (m *Mods) PartNumber() string {
	if ti := m.mainTitle(); ti != nil {
		if n := first(ti.PartNumber); n != "" {
			return n
		}
	}
	for _, p := range m.Part {
		for _, d := range p.Detail {
			if d.Type == "pageNumber" || d.Type == "pageIndex" {
				continue
			}
			if n := first(d.Number); n != "" {
				return n
			}
		}
	}
	return ""
}

// PartName returns the titleInfo part name.
func (m *Mods) PartName() string {
	if ti := m.mainTitle(); ti != nil {
		return first(ti.PartName)
	}
	return ""
}

// Identifiers returns the valid identifiers of a type.
func (m *Mods) Identifiers(typ string) []string {
	var out []string
	for _, id := range m.Identifier {
		if strings.EqualFold(id.Type, typ) && id.Invalid != "yes" && strings.TrimSpace(id.Value) != "" {
			out = append(out, strings.TrimSpace(id.Value))
		}
	}
	return out
}

// IdentifierValue returns the first valid identifier of a type.
func (m *Mods) IdentifierValue(typ string) string {
	if ids := m.Identifiers(typ); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// URNNBN returns the urn:nbn identifier.
func (m *Mods) URNNBN() string { return m.IdentifierValue("urnnbn") }

// DateIssued returns the first issue date, then the part date.
func (m *Mods) DateIssued() string {
	for _, oi := range m.OriginInfo {
		for _, d := range oi.DateIssued {
			if v := strings.TrimSpace(d.Value); v != "" {
				return v
			}
		}
	}
	for _, p := range m.Part {
		for _, d := range p.Date {
			if v := strings.TrimSpace(d.Value); v != "" {
				return v
			}
		}
	}
	return ""
}

// Publisher returns the first publisher.
func (m *Mods) Publisher() string {
	for _, oi := range m.OriginInfo {
		if p := first(oi.Publisher); p != "" {
			return p
		}
	}
	return ""
}

// Languages returns language codes in document order.
func (m *Mods) Languages() []string {
	var out []string
	for _, l := range m.Language {
		for _, t := range l.LanguageTerm {
			if v := strings.TrimSpace(t.Value); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// Authors returns the display names of personal and corporate names.
func (m *Mods) Authors() []string {
	var out []string
	for _, n := range m.Name {
		var parts []string
		for _, p := range n.NamePart {
			if p.Type == "date" {
				continue
			}
			if v := strings.TrimSpace(p.Value); v != "" {
				parts = append(parts, v)
			}
		}
		if len(parts) > 0 {
			out = append(out, strings.Join(parts, " "))
		}
	}
	return out
}

// detail returns the first number of a part detail type.
func (m *Mods) detail(typ string) string {
	for _, p := range m.Part {
		for _, d := range p.Detail {
			if d.Type == typ {
				if n := first(d.Number); n != "" {
					return n
				}
			}
		}
	}
	return ""
}

// PageNumber returns the printed page number of a page record.
func (m *Mods) PageNumber() string { return m.detail("pageNumber") }

// PageIndex returns the page index of a page record.
func (m *Mods) PageIndex() string { return m.detail("pageIndex") }

// PageType returns the part type of a page record, "NormalPage" by default.
func (m *Mods) PageType() string {
	for _, p := range m.Part {
		if p.Type != "" {
			return p.Type
		}
	}
	return "NormalPage"
}

// Abstracts returns the non-empty abstracts.
func (m *Mods) Abstracts() []string {
	var out []string
	for _, a := range m.Abstract {
		if v := strings.TrimSpace(a); v != "" {
			out = append(out, v)
		}
	}
	return out
}
