package mets

import (
	"bytes"
	"encoding/xml"
)

type premisObject struct {
	XMLName    xml.Name `xml:"info:lc/xmlns/premis-v2 object"`
	XmlnsXsi   string   `xml:"xmlns:xsi,attr"`
	Type       string   `xml:"xsi:type,attr"`
	Version    string   `xml:"version,attr"`
	Identifier struct {
		Type  string `xml:"objectIdentifierType"`
		Value string `xml:"objectIdentifierValue"`
	} `xml:"objectIdentifier"`
	Characteristics struct {
		CompositionLevel int `xml:"compositionLevel"`
		Fixity           struct {
			Algorithm string `xml:"messageDigestAlgorithm"`
			Digest    string `xml:"messageDigest"`
		} `xml:"fixity"`
		Size   int64 `xml:"size"`
		Format struct {
			Name string `xml:"formatDesignation>formatName"`
		} `xml:"format"`
	} `xml:"objectCharacteristics"`
	OriginalName string `xml:"originalName,omitempty"`
}

// PremisFile describes one package file for its techMD section.
type PremisFile struct {
	ID           string
	MD5          string
	Size         int64
	MimeType     string
	OriginalName string
}

// Premis renders a PREMIS 2 file object.
func Premis(f PremisFile) []byte {
	var o premisObject
	o.XmlnsXsi = "http://www.w3.org/2001/XMLSchema-instance"
	o.Type = "file"
	o.Version = "2.2"
	o.Identifier.Type = "ProArc_URI"
	o.Identifier.Value = f.ID
	o.Characteristics.Fixity.Algorithm = "MD5"
	o.Characteristics.Fixity.Digest = f.MD5
	o.Characteristics.Size = f.Size
	o.Characteristics.Format.Name = f.MimeType
	o.OriginalName = f.OriginalName
	var buf bytes.Buffer
	_ = xml.NewEncoder(&buf).Encode(o)
	return buf.Bytes()
}
