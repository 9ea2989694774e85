package fedora

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"time"
)

// FoxmlNS is the FOXML 1.1 namespace.
const FoxmlNS = "info:fedora/fedora-system:def/foxml#"

// Object property names.
const (
	PropState        = "info:fedora/fedora-system:def/model#state"
	PropLabel        = "info:fedora/fedora-system:def/model#label"
	PropOwner        = "info:fedora/fedora-system:def/model#ownerId"
	PropCreated      = "info:fedora/fedora-system:def/model#createdDate"
	PropLastModified = "info:fedora/fedora-system:def/view#lastModifiedDate"
)

// TimeLayout is the repository timestamp format (UTC, milliseconds).
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a repository timestamp; empty input yields the zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC(), err
}

// DigitalObject is a FOXML 1.1 document.
type DigitalObject struct {
	XMLName     xml.Name         `xml:"info:fedora/fedora-system:def/foxml# digitalObject"`
	Version     string           `xml:"VERSION,attr"`
	PID         string           `xml:"PID,attr"`
	Properties  ObjectProperties `xml:"objectProperties"`
	Datastreams []Datastream     `xml:"datastream"`
}

// ObjectProperties is the property list of an object.
type ObjectProperties struct {
	Properties []Property `xml:"property"`
}

// Property is a NAME/VALUE pair.
type Property struct {
	Name  string `xml:"NAME,attr"`
	Value string `xml:"VALUE,attr"`
}

// Datastream holds the versions of one datastream.
type Datastream struct {
	ID           string              `xml:"ID,attr"`
	State        string              `xml:"STATE,attr,omitempty"`
	ControlGroup string              `xml:"CONTROL_GROUP,attr"`
	Versionable  bool                `xml:"VERSIONABLE,attr"`
	Versions     []DatastreamVersion `xml:"datastreamVersion"`
}

// DatastreamVersion is one version with exactly one content element.
type DatastreamVersion struct {
	ID              string           `xml:"ID,attr"`
	Label           string           `xml:"LABEL,attr"`
	Created         string           `xml:"CREATED,attr,omitempty"`
	MimeType        string           `xml:"MIMETYPE,attr"`
	FormatURI       string           `xml:"FORMAT_URI,attr,omitempty"`
	Size            int64            `xml:"SIZE,attr,omitempty"`
	ContentDigest   *ContentDigest   `xml:"contentDigest"`
	XMLContent      *XMLContent      `xml:"xmlContent"`
	BinaryContent   *BinaryContent   `xml:"binaryContent"`
	ContentLocation *ContentLocation `xml:"contentLocation"`
}

// ContentDigest is an optional checksum.
type ContentDigest struct {
	Type   string `xml:"TYPE,attr"`
	Digest string `xml:"DIGEST,attr"`
}

// XMLContent keeps inline XML verbatim.
type XMLContent struct {
	Inner []byte `xml:",innerxml"`
}

// BinaryContent is base64 encoded content.
type BinaryContent struct {
	Data string `xml:",chardata"`
}

// ContentLocation references content outside the document.
type ContentLocation struct {
	Type string `xml:"TYPE,attr"`
	Ref  string `xml:"REF,attr"`
}

// Content location types.
const (
	LocationInternal = "INTERNAL_ID"
	LocationURL      = "URL"
)

// ParseFOXML decodes a FOXML document.
func ParseFOXML(data []byte) (*DigitalObject, error) {
	var obj DigitalObject
	if err := xml.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("invalid FOXML: %w", err)
	}
	if obj.PID == "" {
		return nil, fmt.Errorf("invalid FOXML: missing PID")
	}
	return &obj, nil
}

// Marshal encodes the object with an XML declaration.
func (o *DigitalObject) Marshal() ([]byte, error) {
	if o.Version == "" {
		o.Version = "1.1"
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(o); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Property returns the value of the named object property.
func (o *DigitalObject) Property(name string) string {
	for _, p := range o.Properties.Properties {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// SetProperty sets or adds an object property.
func (o *DigitalObject) SetProperty(name, value string) {
	for i := range o.Properties.Properties {
		if o.Properties.Properties[i].Name == name {
			o.Properties.Properties[i].Value = value
			return
		}
	}
	o.Properties.Properties = append(o.Properties.Properties, Property{Name: name, Value: value})
}

// Label returns the object label.
func (o *DigitalObject) Label() string { return o.Property(PropLabel) }

// Datastream returns the datastream with id, or nil.
func (o *DigitalObject) Datastream(id string) *Datastream {
	for i := range o.Datastreams {
		if o.Datastreams[i].ID == id {
			return &o.Datastreams[i]
		}
	}
	return nil
}

// RemoveDatastream drops a datastream; it reports whether it existed.
func (o *DigitalObject) RemoveDatastream(id string) bool {
	for i := range o.Datastreams {
		if o.Datastreams[i].ID == id {
			o.Datastreams = append(o.Datastreams[:i], o.Datastreams[i+1:]...)
			return true
		}
	}
	return false
}

// Latest returns the newest version of the datastream.
func (d *Datastream) Latest() *DatastreamVersion {
	if len(d.Versions) == 0 {
		return nil
	}
	latest := &d.Versions[0]
	for i := 1; i < len(d.Versions); i++ {
		if d.Versions[i].Created > latest.Created {
			latest = &d.Versions[i]
		}
	}
	return latest
}

// Active reports whether the datastream is not deleted.
func (d *Datastream) Active() bool {
	return d.State == "" || d.State == "A" || d.State == "I"
}

// Profile derives the DatastreamProfile of the latest version.
func (d *Datastream) Profile() DatastreamProfile {
	p := DatastreamProfile{ID: d.ID, ControlGroup: d.ControlGroup}
	if v := d.Latest(); v != nil {
		p.Label = v.Label
		p.MimeType = v.MimeType
		p.FormatURI = v.FormatURI
		p.Version = v.ID
	}
	return p
}

// Profiles lists the active datastreams sorted by id.
func (o *DigitalObject) Profiles() []DatastreamProfile {
	out := make([]DatastreamProfile, 0, len(o.Datastreams))
	for i := range o.Datastreams {
		if o.Datastreams[i].Active() {
			out = append(out, o.Datastreams[i].Profile())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InlineContent returns the bytes of a version stored in the document itself.
// ok is false when the content lives elsewhere (contentLocation).
func (v *DatastreamVersion) InlineContent() (data []byte, ok bool, err error) {
	switch {
	case v.XMLContent != nil:
		return bytes.TrimSpace(v.XMLContent.Inner), true, nil
	case v.BinaryContent != nil:
		clean := strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, v.BinaryContent.Data)
		b, err := base64.StdEncoding.DecodeString(clean)
		return b, true, err
	}
	return nil, false, nil
}

// SetContent stores data inline according to the control group.
func (v *DatastreamVersion) SetContent(controlGroup string, data []byte) {
	v.XMLContent, v.BinaryContent, v.ContentLocation = nil, nil, nil
	if controlGroup == ControlInline {
		v.XMLContent = &XMLContent{Inner: stripXMLDeclaration(data)}
	} else {
		v.BinaryContent = &BinaryContent{Data: base64.StdEncoding.EncodeToString(data)}
	}
	v.Size = int64(len(data))
}

func stripXMLDeclaration(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("<?xml")) {
		if end := bytes.Index(trimmed, []byte("?>")); end >= 0 {
			return bytes.TrimSpace(trimmed[end+2:])
		}
	}
	return trimmed
}
