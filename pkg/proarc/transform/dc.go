package transform

import (
	"encoding/xml"
	"strings"
)

// Dublin Core namespaces.
const (
	DcNS    = "http://purl.org/dc/elements/1.1/"
	OaiDcNS = "http://www.openarchives.org/OAI/2.0/oai_dc/"
)

// Extra parameters of ModsAsDublinCore.
const (
	ParamPID    = "PID"
	ParamPolicy = "POLICY"
)

// DublinCore is an oai_dc record.
type DublinCore struct {
	Title       []string
	Creator     []string
	Subject     []string
	Description []string
	Publisher   []string
	Date        []string
	Type        []string
	Identifier  []string
	Language    []string
	Rights      []string
}

type dcOut struct {
	XMLName     xml.Name `xml:"oai_dc:dc"`
	XmlnsOaiDc  string   `xml:"xmlns:oai_dc,attr"`
	XmlnsDc     string   `xml:"xmlns:dc,attr"`
	Title       []string `xml:"dc:title"`
	Creator     []string `xml:"dc:creator"`
	Subject     []string `xml:"dc:subject"`
	Description []string `xml:"dc:description"`
	Publisher   []string `xml:"dc:publisher"`
	Date        []string `xml:"dc:date"`
	Type        []string `xml:"dc:type"`
	Identifier  []string `xml:"dc:identifier"`
	Language    []string `xml:"dc:language"`
	Rights      []string `xml:"dc:rights"`
}

type dcIn struct {
	Title       []string `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creator     []string `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Subject     []string `xml:"http://purl.org/dc/elements/1.1/ subject"`
	Description []string `xml:"http://purl.org/dc/elements/1.1/ description"`
	Publisher   []string `xml:"http://purl.org/dc/elements/1.1/ publisher"`
	Date        []string `xml:"http://purl.org/dc/elements/1.1/ date"`
	Type        []string `xml:"http://purl.org/dc/elements/1.1/ type"`
	Identifier  []string `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Language    []string `xml:"http://purl.org/dc/elements/1.1/ language"`
	Rights      []string `xml:"http://purl.org/dc/elements/1.1/ rights"`
}

// ParseDC reads an oai_dc record.
func ParseDC(data []byte) (*DublinCore, error) {
	var in dcIn
	if err := xml.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	dc := DublinCore(in)
	return &dc, nil
}

// Marshal renders the record with the conventional prefixes.
func (dc *DublinCore) Marshal() ([]byte, error) {
	out := dcOut{
		XmlnsOaiDc: OaiDcNS, XmlnsDc: DcNS,
		Title: dc.Title, Creator: dc.Creator, Subject: dc.Subject, Description: dc.Description,
		Publisher: dc.Publisher, Date: dc.Date, Type: dc.Type, Identifier: dc.Identifier,
		Language: dc.Language, Rights: dc.Rights,
	}
	return encode(out)
}

// DublinCoreFromMods maps MODS onto DC.
func DublinCoreFromMods(m *Mods, params Params) *DublinCore {
	dc := &DublinCore{}
	dc.Title = nonEmpty(joinNonEmpty(": ", m.Title(), m.SubTitle()))
	dc.Creator = m.Authors()
	for _, s := range m.Subject {
		dc.Subject = append(dc.Subject, nonEmpty(s.Topic...)...)
		dc.Subject = append(dc.Subject, nonEmpty(s.Geographic...)...)
	}
	dc.Description = m.Abstracts()
	dc.Publisher = nonEmpty(m.Publisher())
	dc.Date = nonEmpty(m.DateIssued())
	if mdl := params[ParamModel]; mdl != "" {
		dc.Type = []string{mdl}
	} else {
		dc.Type = nonEmpty(m.TypeOfResource...)
	}
	if pid := params[ParamPID]; pid != "" {
		dc.Identifier = append(dc.Identifier, pid)
	}
	for _, id := range m.Identifier {
		v := strings.TrimSpace(id.Value)
		if id.Invalid == "yes" || v == "" {
			continue
		}
		if id.Type == "urnnbn" || id.Type == "" || strings.HasPrefix(v, id.Type+":") {
			dc.Identifier = append(dc.Identifier, v)
		} else {
			dc.Identifier = append(dc.Identifier, id.Type+":"+v)
		}
	}
	dc.Language = m.Languages()
	if policy := params[ParamPolicy]; policy != "" {
		dc.Rights = []string{policy}
	}
	return dc
}

func modsAsDublinCore(src []byte, params Params) ([]byte, error) {
	m, err := parseForView(ModsAsDublinCore, src)
	if err != nil {
		return nil, err
	}
	return DublinCoreFromMods(m, params).Marshal()
}
