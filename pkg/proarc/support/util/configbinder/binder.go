// Package configbinder decodes loosely typed property maps (adapter settings
// from YAML or environment) into typed structs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindProperties decodes properties into target, which must be a pointer.
// Field names are matched via `yaml` tags; string values are converted to
// numbers, booleans and durations where the target field requires it.
func BindProperties(properties map[string]interface{}, target interface{}) error {
	if len(properties) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create property decoder: %w", err)
	}
	if err := decoder.Decode(properties); err != nil {
		t := reflect.TypeOf(target)
		if t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		return fmt.Errorf("failed to bind properties to %s: %w", t.Name(), err)
	}
	return nil
}

// BindStringProperties is BindProperties for environment-style string maps.
func BindStringProperties(properties map[string]string, target interface{}) error {
	m := make(map[string]interface{}, len(properties))
	for k, v := range properties {
		m[k] = v
	}
	return BindProperties(m, target)
}
