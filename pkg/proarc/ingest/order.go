package ingest

import (
	"fmt"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
)

// SortItems orders items by the position of their PID in members. Every
// item must be listed; an unlisted item is a digital_object error naming it.
func SortItems(members []string, items []*model.BatchItem) ([]*model.BatchItem, error) {
	index := make(map[string]int, len(members))
	for i, pid := range members {
		if _, dup := index[pid]; !dup {
			index[pid] = i
		}
	}
	slots := make([][]*model.BatchItem, len(members))
	for _, it := range items {
		i, ok := index[it.PID]
		if !ok {
			return nil, exception.NewDigitalObjectError(it.PID, fmt.Sprintf("%s is not a member of the batch", it.PID), nil)
		}
		slots[i] = append(slots[i], it)
	}
	out := make([]*model.BatchItem, 0, len(items))
	for _, s := range slots {
		out = append(out, s...)
	}
	return out, nil
}

// MergeMembers reconciles the staged member list of an object with the one
// already stored remotely. The remote list must be an ordered subsequence of
// local; members only known locally are appended after it. Anything else
// means the object changed underneath the import.
func MergeMembers(pid string, local, remote []string) ([]string, error) {
	pos := make(map[string]int, len(local))
	for i, m := range local {
		pos[m] = i
	}
	last := -1
	inRemote := make(map[string]bool, len(remote))
	for _, m := range remote {
		i, ok := pos[m]
		if !ok {
			return nil, exception.NewDigitalObjectError(pid, fmt.Sprintf("members changed: %s is not among the imported members", m), nil)
		}
		if i < last {
			return nil, exception.NewDigitalObjectError(pid, fmt.Sprintf("members changed: %s is out of order", m), nil)
		}
		last = i
		inRemote[m] = true
	}
	merged := append([]string(nil), remote...)
	for _, m := range local {
		if !inRemote[m] {
			merged = append(merged, m)
		}
	}
	return merged, nil
}

func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
