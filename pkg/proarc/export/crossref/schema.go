package crossref

import "encoding/xml"

// SchemaVersion of the generated deposits.
const SchemaVersion = "4.4.2"

type doiBatch struct {
	XMLName xml.Name `xml:"http://www.crossref.org/schema/4.4.2 doi_batch"`
	Version string   `xml:"version,attr"`
	Head    head     `xml:"head"`
	Body    body     `xml:"body"`
}

type head struct {
	BatchID    string    `xml:"doi_batch_id"`
	Timestamp  string    `xml:"timestamp"`
	Depositor  depositor `xml:"depositor"`
	Registrant string    `xml:"registrant"`
}

type depositor struct {
	Name  string `xml:"depositor_name"`
	Email string `xml:"email_address"`
}

type body struct {
	Journal journal `xml:"journal"`
}

type journal struct {
	Metadata journalMetadata `xml:"journal_metadata"`
	Issue    *journalIssue   `xml:"journal_issue,omitempty"`
	Articles []article       `xml:"journal_article"`
}

type journalMetadata struct {
	Language  string   `xml:"language,attr,omitempty"`
	FullTitle string   `xml:"full_title"`
	ISSN      []issn   `xml:"issn"`
	DOIData   *doiData `xml:"doi_data,omitempty"`
}

type issn struct {
	MediaType string `xml:"media_type,attr"`
	Value     string `xml:",chardata"`
}

type journalIssue struct {
	PublicationDate *publicationDate `xml:"publication_date,omitempty"`
	Volume          *journalVolume   `xml:"journal_volume,omitempty"`
	Issue           string           `xml:"issue,omitempty"`
}

type journalVolume struct {
	Volume string `xml:"volume"`
}

type publicationDate struct {
	MediaType string `xml:"media_type,attr"`
	Year      string `xml:"year"`
}

type article struct {
	PublicationType string           `xml:"publication_type,attr"`
	Language        string           `xml:"language,attr,omitempty"`
	Titles          titles           `xml:"titles"`
	Contributors    *contributors    `xml:"contributors,omitempty"`
	PublicationDate *publicationDate `xml:"publication_date,omitempty"`
	DOIData         doiData          `xml:"doi_data"`
}

type titles struct {
	Title    string `xml:"title"`
	Subtitle string `xml:"subtitle,omitempty"`
}

type contributors struct {
	Persons []personName `xml:"person_name"`
}

type personName struct {
	Sequence string `xml:"sequence,attr"`
	Role     string `xml:"contributor_role,attr"`
	Surname  string `xml:"surname"`
}

type doiData struct {
	DOI      string `xml:"doi"`
	Resource string `xml:"resource"`
}
