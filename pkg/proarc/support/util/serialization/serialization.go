// Package serialization converts batch parameter maps to and from the JSON
// stored with each batch record.
package serialization

import (
	"encoding/json"

	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	logger "github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// Mask is written in place of sensitive parameter values.
const Mask = "********"

// MaskParams returns a copy of params with the given keys masked.
func MaskParams(params map[string]interface{}, maskedKeys []string) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		out[k] = v
	}
	for _, k := range maskedKeys {
		if _, ok := out[k]; ok {
			out[k] = Mask
		}
	}
	return out
}

// MarshalParams serializes params for persistence, masking maskedKeys.
func MarshalParams(params map[string]interface{}, maskedKeys []string) ([]byte, error) {
	if len(params) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(MaskParams(params, maskedKeys))
	if err != nil {
		logger.Errorf("Failed to serialize batch parameters: %v", err)
		return nil, exception.NewProArcError(exception.KindInternal, "serialization", "", "failed to serialize batch parameters", err)
	}
	return data, nil
}

// UnmarshalParams decodes a persisted parameter blob. Empty input yields an empty map.
func UnmarshalParams(data []byte) (map[string]interface{}, error) {
	params := map[string]interface{}{}
	if len(data) == 0 || string(data) == "null" {
		return params, nil
	}
	if err := json.Unmarshal(data, &params); err != nil {
		logger.Errorf("Failed to deserialize batch parameters: %v", err)
		return nil, exception.NewProArcError(exception.KindInternal, "serialization", "", "failed to deserialize batch parameters", err)
	}
	return params, nil
}
