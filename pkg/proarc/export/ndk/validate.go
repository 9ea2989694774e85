package ndk

import (
	"fmt"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/export"
	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/mets"
)

var titleMembers = map[mets.ElementType]bool{
	mets.TypeVolume:     true,
	mets.TypeSupplement: true,
}

type rules struct {
	variant             Variant
	allowMissingURNNBN  bool
	allowMissingStreams bool
}

// validate checks the requested element and the package around it.
func (r rules) validate(elem *mets.Element) (*export.ValidationError, error) {
	v := &export.ValidationError{}
	root := elem.Root()

	oldPrint := model.IsOldPrintModel(root.Model)
	switch {
	case r.variant.OldPrint && !oldPrint:
		v.Add(root.PID, fmt.Sprintf("Model %s cannot be exported as %s", root.Model, r.variant.Name), false)
	case !r.variant.OldPrint && oldPrint:
		v.Add(root.PID, fmt.Sprintf("Old print %s must be exported as %s", root.PID, model.NdkVariantSTT), false)
	}

	if !r.allowMissingURNNBN {
		m, err := elem.ParsedMods()
		if err != nil {
			return nil, err
		}
		if m.URNNBN() == "" {
			v.Add(elem.PID, export.MissingURNNBN, false)
		}
	}

	err := root.Walk(func(e *mets.Element) error {
		if e.Type == mets.TypeUnknown {
			v.Add(e.PID, fmt.Sprintf("Unsupported model %s", e.Model), false)
		}
		if e.Type == mets.TypeTitle && e.Resolved() {
			for _, c := range e.ChildElements() {
				if !titleMembers[c.Type] {
					v.Add(c.PID, fmt.Sprintf("Model %s is not allowed as a member of %s", c.Model, e.Model), false)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !r.allowMissingStreams {
		for _, page := range export.Pages(elem) {
			for _, spec := range r.variant.Files {
				if spec.Required && findSource(page, spec) == "" {
					v.Add(page.PID, fmt.Sprintf("Missing datastream %s", spec.Sources[0]), false)
				}
			}
		}
	}

	if len(v.Issues) == 0 {
		return nil, nil
	}
	return v, nil
}

func findSource(e *mets.Element, spec fileSpec) string {
	for _, id := range spec.Sources {
		if _, ok := fedora.FindProfile(e.Datastreams, id); ok {
			return id
		}
	}
	return ""
}
