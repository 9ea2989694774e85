// Package fedoratest seeds temporary object stores for tests.
package fedoratest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/fedora"
)

// NewStore returns an empty local store in a temp dir.
func NewStore(t testing.TB) *fedora.LocalStorage {
	t.Helper()
	s, err := fedora.NewLocalStorage(t.TempDir(), 1)
	require.NoError(t, err)
	return s
}

// Ingest stores every built object.
func Ingest(t testing.TB, s fedora.Storage, builders ...*fedora.ObjectBuilder) {
	t.Helper()
	for _, b := range builders {
		data, err := b.FOXML()
		require.NoError(t, err)
		require.NoError(t, s.Ingest(context.Background(), data, "test", "fixture"))
	}
}

// Mods returns a minimal MODS record with optional identifiers given as
// type/value pairs.
func Mods(title string, identifiers ...string) []byte {
	out := `<mods:modsCollection xmlns:mods="http://www.loc.gov/mods/v3"><mods:mods version="3.6">` +
		`<mods:titleInfo><mods:title>` + title + `</mods:title></mods:titleInfo>`
	for i := 0; i+1 < len(identifiers); i += 2 {
		out += `<mods:identifier type="` + identifiers[i] + `">` + identifiers[i+1] + `</mods:identifier>`
	}
	return []byte(out + `</mods:mods></mods:modsCollection>`)
}
