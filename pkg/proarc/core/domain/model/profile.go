package model

import (
	"fmt"
	"strings"
)

// Profile identifies the kind of work a batch performs. The export profiles
// form a closed set; every one of them must be served by a producer.
type Profile string

const (
	ProfileKramerius  Profile = "KRAMERIUS"
	ProfileDatastream Profile = "DATASTREAM"
	ProfileNDK        Profile = "NDK"
	ProfileDESA       Profile = "DESA"
	ProfileCEJSH      Profile = "CEJSH"
	ProfileCrossref   Profile = "CROSSREF"
	ProfileArchive    Profile = "ARCHIVE"
	ProfileKWIS       Profile = "KWIS"

	// ProfileImport marks FedoraImport batches.
	ProfileImport Profile = "IMPORT"
)

var exportProfiles = []Profile{
	ProfileKramerius,
	ProfileDatastream,
	ProfileNDK,
	ProfileDESA,
	ProfileCEJSH,
	ProfileCrossref,
	ProfileArchive,
	ProfileKWIS,
}

// ExportProfiles lists every export profile.
func ExportProfiles() []Profile {
	out := make([]Profile, len(exportProfiles))
	copy(out, exportProfiles)
	return out
}

// IsExport reports whether p is one of the export profiles.
func (p Profile) IsExport() bool {
	for _, e := range exportProfiles {
		if e == p {
			return true
		}
	}
	return false
}

// ParseProfile accepts a profile id case-insensitively.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToUpper(strings.TrimSpace(s)))
	if p.IsExport() || p == ProfileImport {
		return p, nil
	}
	return "", fmt.Errorf("Unknown export profile '%s'", s)
}
