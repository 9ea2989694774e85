package ndk

import "encoding/xml"

// info is the info_<id>.xml package descriptor.
type info struct {
	XMLName         xml.Name     `xml:"info"`
	Created         string       `xml:"created"`
	MetadataVersion string       `xml:"metadataversion"`
	PackageID       string       `xml:"packageid"`
	MainMets        string       `xml:"mainmets"`
	TitleIDs        []titleID    `xml:"titleid"`
	Creator         string       `xml:"creator"`
	Size            int64        `xml:"size"`
	ItemList        itemList     `xml:"itemlist"`
	Checksum        infoChecksum `xml:"checksum"`
}

type titleID struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type itemList struct {
	Total int      `xml:"itemtotal,attr"`
	Items []string `xml:"item"`
}

type infoChecksum struct {
	Type     string `xml:"type,attr"`
	Checksum string `xml:"checksum,attr"`
	Path     string `xml:",chardata"`
}
