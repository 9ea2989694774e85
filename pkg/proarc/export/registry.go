package export

import (
	"fmt"
	"sort"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
)

// Registry maps every export profile to its producer.
type Registry struct {
	producers map[model.Profile]Producer
}

// NewRegistry refuses a mapping that leaves an export profile unserved or
// names a profile that is not an export profile.
func NewRegistry(producers map[model.Profile]Producer) (*Registry, error) {
	var missing []string
	for _, p := range model.ExportProfiles() {
		if producers[p] == nil {
			missing = append(missing, string(p))
		}
	}
	for p := range producers {
		if !p.IsExport() {
			return nil, exception.NewConfigurationError("export", fmt.Sprintf("'%s' is not an export profile", p), nil)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, exception.NewConfigurationError("export", fmt.Sprintf("no producer for profiles %v", missing), nil)
	}
	m := make(map[model.Profile]Producer, len(producers))
	for k, v := range producers {
		m[k] = v
	}
	return &Registry{producers: m}, nil
}

// Producer returns the producer of profile.
func (r *Registry) Producer(profile model.Profile) (Producer, error) {
	if p, ok := r.producers[profile]; ok {
		return p, nil
	}
	return nil, exception.NewProArcError(exception.KindConfiguration, "export", "",
		fmt.Sprintf("Unknown export profile '%s'", profile), exception.ErrUnknownProfile)
}
