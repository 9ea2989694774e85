package mets

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"time"
)

// Namespaces used in METS packages.
const (
	MetsNS   = "http://www.loc.gov/METS/"
	XlinkNS  = "http://www.w3.org/1999/xlink"
	PremisNS = "info:lc/xmlns/premis-v2"
)

// Mets is a METS 1.x document.
type Mets struct {
	XMLName    xml.Name    `xml:"http://www.loc.gov/METS/ mets"`
	ObjID      string      `xml:"OBJID,attr,omitempty"`
	Label      string      `xml:"LABEL,attr,omitempty"`
	Type       string      `xml:"TYPE,attr,omitempty"`
	Header     *Header     `xml:"metsHdr"`
	DmdSecs    []MdSec     `xml:"dmdSec"`
	AmdSecs    []AmdSec    `xml:"amdSec"`
	FileSec    *FileSec    `xml:"fileSec"`
	StructMaps []StructMap `xml:"structMap"`
}

type Header struct {
	CreateDate  string  `xml:"CREATEDATE,attr,omitempty"`
	LastModDate string  `xml:"LASTMODDATE,attr,omitempty"`
	Agents      []Agent `xml:"agent"`
}

type Agent struct {
	Role string `xml:"ROLE,attr"`
	Type string `xml:"TYPE,attr"`
	Name string `xml:"name"`
}

// MdSec is a dmdSec, techMD or digiprovMD.
type MdSec struct {
	ID     string `xml:"ID,attr"`
	MdWrap MdWrap `xml:"mdWrap"`
}

type MdWrap struct {
	MimeType    string  `xml:"MIMETYPE,attr,omitempty"`
	MdType      string  `xml:"MDTYPE,attr"`
	OtherMdType string  `xml:"OTHERMDTYPE,attr,omitempty"`
	MdTypeVer   string  `xml:"MDTYPEVERSION,attr,omitempty"`
	Label       string  `xml:"LABEL,attr,omitempty"`
	XMLData     XMLData `xml:"xmlData"`
}

// XMLData embeds a metadata document verbatim.
type XMLData struct {
	Inner []byte `xml:",innerxml"`
}

type AmdSec struct {
	ID         string  `xml:"ID,attr"`
	TechMD     []MdSec `xml:"techMD"`
	DigiprovMD []MdSec `xml:"digiprovMD"`
}

type FileSec struct {
	Groups []FileGrp `xml:"fileGrp"`
}

type FileGrp struct {
	ID    string `xml:"ID,attr"`
	Use   string `xml:"USE,attr,omitempty"`
	Files []File `xml:"file"`
}

type File struct {
	ID           string `xml:"ID,attr"`
	Seq          int    `xml:"SEQ,attr,omitempty"`
	MimeType     string `xml:"MIMETYPE,attr,omitempty"`
	Size         int64  `xml:"SIZE,attr,omitempty"`
	Created      string `xml:"CREATED,attr,omitempty"`
	Checksum     string `xml:"CHECKSUM,attr,omitempty"`
	ChecksumType string `xml:"CHECKSUMTYPE,attr,omitempty"`
	FLocat       FLocat `xml:"FLocat"`
}

type FLocat struct {
	LocType string `xml:"LOCTYPE,attr"`
	Href    string `xml:"http://www.w3.org/1999/xlink href,attr"`
}

type StructMap struct {
	Type  string `xml:"TYPE,attr"`
	Label string `xml:"LABEL,attr,omitempty"`
	Div   Div    `xml:"div"`
}

type Div struct {
	ID         string `xml:"ID,attr,omitempty"`
	Type       string `xml:"TYPE,attr,omitempty"`
	Label      string `xml:"LABEL,attr,omitempty"`
	Order      string `xml:"ORDER,attr,omitempty"`
	OrderLabel string `xml:"ORDERLABEL,attr,omitempty"`
	DmdID      string `xml:"DMDID,attr,omitempty"`
	AdmID      string `xml:"ADMID,attr,omitempty"`
	ContentIDs string `xml:"CONTENTIDS,attr,omitempty"`
	Fptrs      []Fptr `xml:"fptr"`
	Divs       []Div  `xml:"div"`
}

type Fptr struct {
	FileID string `xml:"FILEID,attr"`
}

// NewDocument starts a METS document for a package root.
func NewDocument(root *Element, creator, archivist string, created time.Time) *Mets {
	ts := created.UTC().Format("2006-01-02T15:04:05")
	m := &Mets{
		ObjID:  root.Context().PackageID(),
		Label:  root.Label,
		Type:   string(root.Type),
		Header: &Header{CreateDate: ts, LastModDate: ts},
	}
	if creator != "" {
		m.Header.Agents = append(m.Header.Agents, Agent{Role: "CREATOR", Type: "ORGANIZATION", Name: creator})
	}
	if archivist != "" {
		m.Header.Agents = append(m.Header.Agents, Agent{Role: "ARCHIVIST", Type: "ORGANIZATION", Name: archivist})
	}
	return m
}

// AddDmd appends a descriptive metadata section.
func (m *Mets) AddDmd(id, mdType string, data []byte) {
	m.DmdSecs = append(m.DmdSecs, MdSec{ID: id, MdWrap: MdWrap{
		MimeType: "text/xml", MdType: mdType, XMLData: XMLData{Inner: stripDeclaration(data)},
	}})
}

// FileGroup returns the group with id, creating it.
func (m *Mets) FileGroup(id, use string) *FileGrp {
	if m.FileSec == nil {
		m.FileSec = &FileSec{}
	}
	for i := range m.FileSec.Groups {
		if m.FileSec.Groups[i].ID == id {
			return &m.FileSec.Groups[i]
		}
	}
	m.FileSec.Groups = append(m.FileSec.Groups, FileGrp{ID: id, Use: use})
	return &m.FileSec.Groups[len(m.FileSec.Groups)-1]
}

// Marshal encodes the document with an XML declaration.
func (m *Mets) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func stripDeclaration(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("<?xml")) {
		if end := bytes.Index(trimmed, []byte("?>")); end >= 0 {
			return bytes.TrimSpace(trimmed[end+2:])
		}
	}
	return trimmed
}

// StructMapHooks supply identifiers for the structural maps.
type StructMapHooks struct {
	// DmdID returns the dmdSec id of a logical element or "".
	DmdID func(*Element) string
	// FileIDs returns the file ids of a page.
	FileIDs func(*Element) []string
	// PageLabel returns the ORDERLABEL of a page.
	PageLabel func(*Element) string
}

// BuildStructMaps creates the LOGICAL map of non-page elements and the
// PHYSICAL map of pages, both in member order.
func BuildStructMaps(root *Element, hooks StructMapHooks) []StructMap {
	var logical func(e *Element) Div
	logical = func(e *Element) Div {
		d := Div{ID: divID(e), Type: string(e.Type), Label: e.Label}
		if hooks.DmdID != nil {
			d.DmdID = hooks.DmdID(e)
		}
		for _, c := range e.ChildElements() {
			if c.Type.IsPage() {
				continue
			}
			d.Divs = append(d.Divs, logical(c))
		}
		return d
	}

	physical := Div{ID: "DIV_P_0000", Type: "periodical", Label: root.Label}
	order := 0
	_ = root.Walk(func(e *Element) error {
		if !e.Type.IsPage() {
			return nil
		}
		order++
		p := Div{ID: "DIV_P_PAGE_" + pad4(order), Type: "page", Order: strconv.Itoa(order)}
		if hooks.PageLabel != nil {
			p.OrderLabel = hooks.PageLabel(e)
		}
		if hooks.FileIDs != nil {
			for _, id := range hooks.FileIDs(e) {
				p.Fptrs = append(p.Fptrs, Fptr{FileID: id})
			}
		}
		physical.Divs = append(physical.Divs, p)
		return nil
	})
	if root.Type != TypeTitle && root.Type != TypeVolume && root.Type != TypeIssue {
		physical.Type = "monograph"
	}
	return []StructMap{
		{Type: "LOGICAL", Label: "Logical_Structure", Div: logical(root)},
		{Type: "PHYSICAL", Label: "Physical_Structure", Div: physical},
	}
}

func divID(e *Element) string {
	return "DIV_" + string(e.Type) + "_" + pad4(e.indexInParent())
}

// indexInParent is the 1-based position among siblings of the same type.
func (e *Element) indexInParent() int {
	p := e.Parent()
	if p == nil {
		return 1
	}
	n := 0
	for _, c := range p.ChildElements() {
		if c.Type == e.Type {
			n++
		}
		if c.PID == e.PID {
			return n
		}
	}
	return 1
}

func pad4(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}
