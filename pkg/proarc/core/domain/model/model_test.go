package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchTransitions(t *testing.T) {
	b := NewExportBatch(ProfileNDK, BatchParams{PIDs: []string{"uuid:1"}}, 7)
	require.Equal(t, BatchWaitingExport, b.State)

	require.NoError(t, b.TransitionTo(BatchExporting))
	require.NoError(t, b.TransitionTo(BatchExportDoneWithWarning))
	assert.True(t, b.State.IsTerminal())
	assert.Error(t, b.TransitionTo(BatchExporting))
}

func TestImportRepairTransition(t *testing.T) {
	assert.True(t, BatchIngestingFailed.CanTransitionTo(BatchIngesting))
	assert.False(t, BatchExportDone.CanTransitionTo(BatchWaitingExport))
	assert.False(t, BatchIngestingFailed.IsTerminal())
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile("ndk")
	require.NoError(t, err)
	assert.Equal(t, ProfileNDK, p)

	_, err = ParseProfile("mobi")
	assert.EqualError(t, err, "Unknown export profile 'mobi'")
	assert.Len(t, ExportProfiles(), 8)
	assert.False(t, ProfileImport.IsExport())
}

func TestBatchParamsScan(t *testing.T) {
	in := BatchParams{PIDs: []string{"uuid:a", "uuid:b"}, Hierarchy: true, NdkVariant: NdkVariantSTT}
	v, err := in.Value()
	require.NoError(t, err)

	var out BatchParams
	require.NoError(t, out.Scan([]byte(v.(string))))
	assert.Equal(t, in, out)

	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out.PIDs)
	assert.Error(t, out.Scan(42))
}
