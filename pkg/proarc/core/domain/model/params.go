package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// NDK package variants.
const (
	NdkVariantPSP = "psp"
	NdkVariantSIP = "sip"
	NdkVariantSTT = "stt"
)

// BatchParams is the serialized request of a batch.
type BatchParams struct {
	PIDs      []string `json:"pids,omitempty"`
	Hierarchy bool     `json:"hierarchy"`
	// DatastreamIDs selects streams for the DATASTREAM profile.
	DatastreamIDs []string `json:"dsIds,omitempty"`
	// TargetInstance names the Kramerius instance a package is meant for.
	TargetInstance string `json:"krameriusInstance,omitempty"`
	DryRun         bool   `json:"dryRun,omitempty"`
	Policy         string `json:"policy,omitempty"`
	Bagit          bool   `json:"bagit,omitempty"`
	LtpUpload      bool   `json:"ltpUpload,omitempty"`
	LtpToken       string `json:"token,omitempty"`
	// NdkVariant is one of psp, sip, stt. Empty means psp.
	NdkVariant      string `json:"ndkVariant,omitempty"`
	ArchiveOldPrint bool   `json:"archiveOldPrint,omitempty"`
	// IgnoreMissingURNNBN overrides the configured NDK tolerance for one batch.
	IgnoreMissingURNNBN bool `json:"ignoreMissingUrnNbn,omitempty"`
	// ParentPID is the repository object import roots are appended to.
	ParentPID string `json:"parent,omitempty"`
	// Owner is recorded on ingested objects.
	Owner string `json:"owner,omitempty"`
}

// AsMap renders the parameters as a generic map for masking and reporting.
func (p BatchParams) AsMap() map[string]interface{} {
	data, _ := json.Marshal(p)
	m := map[string]interface{}{}
	_ = json.Unmarshal(data, &m)
	return m
}

// Value implements driver.Valuer.
func (p BatchParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (p *BatchParams) Scan(value interface{}) error {
	*p = BatchParams{}
	var b []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for BatchParams: %T", value)
	}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return json.Unmarshal(b, p)
}
