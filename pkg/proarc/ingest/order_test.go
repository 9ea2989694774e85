package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
)

func items(pids ...string) []*model.BatchItem {
	out := make([]*model.BatchItem, 0, len(pids))
	for i, pid := range pids {
		out = append(out, &model.BatchItem{ID: int64(i + 1), PID: pid, Type: model.ItemTypeObject})
	}
	return out
}

func pidsOf(items []*model.BatchItem) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.PID)
	}
	return out
}

func TestSortItemsFollowsMemberOrder(t *testing.T) {
	sorted, err := SortItems([]string{"A", "B", "C"}, items("B", "A", "C"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, pidsOf(sorted))
}

func TestSortItemsAllowsUnstagedMembers(t *testing.T) {
	sorted, err := SortItems([]string{"A", "B", "C"}, items("C", "A"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, pidsOf(sorted))
}

func TestSortItemsRejectsUnknownItem(t *testing.T) {
	_, err := SortItems([]string{"A", "B"}, items("B", "X", "A"))
	require.Error(t, err)
	assert.Equal(t, exception.KindDigitalObject, exception.KindOf(err))
	assert.Contains(t, err.Error(), "X")
}

func TestMergeMembers(t *testing.T) {
	tests := []struct {
		name     string
		local    []string
		remote   []string
		expected []string
		conflict bool
	}{
		{name: "equal", local: []string{"A", "B"}, remote: []string{"A", "B"}, expected: []string{"A", "B"}},
		{name: "appended locally", local: []string{"A", "B", "C"}, remote: []string{"A", "B"}, expected: []string{"A", "B", "C"}},
		{name: "inserted locally goes last", local: []string{"A", "X", "B"}, remote: []string{"A", "B"}, expected: []string{"A", "B", "X"}},
		{name: "empty remote", local: []string{"A"}, remote: nil, expected: []string{"A"}},
		{name: "remote only member", local: []string{"A"}, remote: []string{"A", "Z"}, conflict: true},
		{name: "same set reordered", local: []string{"A", "C", "B"}, remote: []string{"A", "B", "C"}, conflict: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, err := MergeMembers("uuid:vol", tt.local, tt.remote)
			if tt.conflict {
				require.Error(t, err)
				assert.Equal(t, exception.KindDigitalObject, exception.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, merged)
		})
	}
}
