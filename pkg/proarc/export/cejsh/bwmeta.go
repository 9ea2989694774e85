package cejsh

import "encoding/xml"

// BwmetaNS is the namespace of bwmeta 2.1 documents.
const BwmetaNS = "http://yadda.icm.edu.pl/bwmeta-2.1.0#"

const (
	hierarchyClass = "bwmeta1.hierarchy-class.hierarchy_Journal"
	levelJournal   = "bwmeta1.level.hierarchy_Journal_Journal"
	levelVolume    = "bwmeta1.level.hierarchy_Journal_Volume"
	levelNumber    = "bwmeta1.level.hierarchy_Journal_Number"
	levelArticle   = "bwmeta1.level.hierarchy_Journal_Article"
)

type bwmeta struct {
	XMLName  xml.Name    `xml:"http://yadda.icm.edu.pl/bwmeta-2.1.0# bwmeta"`
	Elements []bwElement `xml:"element"`
}

type bwElement struct {
	ID           string          `xml:"id,attr"`
	Langs        string          `xml:"langs,attr,omitempty"`
	Names        []bwText        `xml:"name"`
	Hierarchy    bwHierarchy     `xml:"hierarchy"`
	Identifiers  []bwIdentifier  `xml:"id"`
	Descriptions []bwText        `xml:"description"`
	Contributors []bwContributor `xml:"contributor"`
	Attributes   []bwAttribute   `xml:"attribute"`
}

type bwText struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Type  string `xml:"type,attr,omitempty"`
	Value string `xml:",chardata"`
}

type bwHierarchy struct {
	Class string  `xml:"class,attr"`
	Level string  `xml:"level,attr"`
	Ref   *bwLink `xml:"element-ref"`
}

type bwLink struct {
	Ref string `xml:"ref,attr"`
}

type bwIdentifier struct {
	Scheme string `xml:"scheme,attr"`
	Value  string `xml:"value,attr"`
}

type bwContributor struct {
	Role  string        `xml:"role,attr"`
	Index int           `xml:"index,attr"`
	Name  bwContribName `xml:"attribute"`
}

type bwContribName struct {
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}

type bwAttribute struct {
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}
