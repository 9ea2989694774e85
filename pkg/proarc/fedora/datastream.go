package fedora

import (
	"mime"
	"strings"
)

// Well-known datastream ids.
const (
	DC           = "DC"
	RelsExt      = "RELS-EXT"
	BiblioMods   = "BIBLIO_MODS"
	Full         = "FULL"
	Preview      = "PREVIEW"
	Thumbnail    = "THUMBNAIL"
	Raw          = "RAW"
	NdkArchival  = "NDK_ARCHIVAL"
	NdkUser      = "NDK_USER"
	TextOCR      = "TEXT_OCR"
	Alto         = "ALTO"
	AudioRaw     = "AUDIO_RAW"
	AudioArchive = "NDK_AUDIO_ARCHIVAL"
	AudioUser    = "NDK_AUDIO_USER"
)

// Control groups of datastreams.
const (
	ControlInline     = "X" // inline XML
	ControlManaged    = "M" // managed content
	ControlExternal   = "E" // external reference
	ControlRedirected = "R"
)

// DatastreamProfile describes one datastream of an object.
type DatastreamProfile struct {
	ID           string
	Label        string
	MimeType     string
	FormatURI    string
	ControlGroup string
	// Version is the datastream version id, e.g. "FULL.2".
	Version string
}

// XMLProfile returns a profile for an inline XML datastream.
func XMLProfile(id, label, formatURI string) DatastreamProfile {
	return DatastreamProfile{ID: id, Label: label, MimeType: "text/xml", FormatURI: formatURI, ControlGroup: ControlInline}
}

// ManagedProfile returns a profile for a managed binary datastream.
func ManagedProfile(id, label, mimeType string) DatastreamProfile {
	return DatastreamProfile{ID: id, Label: label, MimeType: mimeType, ControlGroup: ControlManaged}
}

var extensions = map[string]string{
	"image/jpeg":          "jpeg",
	"image/jp2":           "jp2",
	"image/tiff":          "tiff",
	"image/png":           "png",
	"text/plain":          "txt",
	"text/xml":            "xml",
	"application/xml":     "xml",
	"application/rdf+xml": "xml",
	"application/pdf":     "pdf",
	"audio/wav":           "wav",
	"audio/x-wav":         "wav",
	"audio/mpeg":          "mp3",
	"audio/flac":          "flac",
	"audio/ogg":           "ogg",
}

// ExtensionFor maps a MIME type to the file extension used by exports.
// Unknown types fall back to their subtype ("image/x-foo" -> "foo").
func ExtensionFor(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}
	if ext, ok := extensions[mt]; ok {
		return ext
	}
	if i := strings.IndexByte(mt, '/'); i >= 0 && i < len(mt)-1 {
		sub := strings.TrimPrefix(mt[i+1:], "x-")
		if strings.HasSuffix(sub, "+xml") {
			return "xml"
		}
		return sub
	}
	return "bin"
}

// UUID strips the "uuid:" prefix of a PID for use in file names.
func UUID(pid string) string {
	if i := strings.IndexByte(pid, ':'); i >= 0 {
		return pid[i+1:]
	}
	return pid
}
