// Package workflow links finished exports to the human workflow: every
// export profile completes a task of the job opened for the exported root.
package workflow

import (
	"time"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
)

// JobState is the lifecycle state of a workflow job.
type JobState string

const (
	JobOpen     JobState = "OPEN"
	JobFinished JobState = "FINISHED"
	JobCanceled JobState = "CANCELED"
)

// TaskState is the lifecycle state of a workflow task.
type TaskState string

const (
	TaskWaiting  TaskState = "WAITING"
	TaskReady    TaskState = "READY"
	TaskStarted  TaskState = "STARTED"
	TaskFinished TaskState = "FINISHED"
	TaskCanceled TaskState = "CANCELED"
)

// Task types completed by exports.
const (
	TaskExportNdkPsp    = "task.exportNdkPsp"
	TaskExportNdkSip    = "task.exportNdkSip"
	TaskExportNdkStt    = "task.exportNdkStt"
	TaskExportArchive   = "task.exportArchive"
	TaskExportKramerius = "task.exportKramerius"
	TaskExportKwis      = "task.exportKwis"
	TaskExportCrossref  = "task.exportCrossref"
	TaskExportCejsh     = "task.exportCejsh"
	TaskExportDesa      = "task.exportDesa"
)

// TaskType returns the workflow task completed by an export, or "" when the
// profile has none.
func TaskType(profile model.Profile, params model.BatchParams) string {
	switch profile {
	case model.ProfileNDK:
		switch params.NdkVariant {
		case model.NdkVariantSIP:
			return TaskExportNdkSip
		case model.NdkVariantSTT:
			return TaskExportNdkStt
		}
		return TaskExportNdkPsp
	case model.ProfileArchive:
		return TaskExportArchive
	case model.ProfileKramerius:
		return TaskExportKramerius
	case model.ProfileKWIS:
		return TaskExportKwis
	case model.ProfileCrossref:
		return TaskExportCrossref
	case model.ProfileCEJSH:
		return TaskExportCejsh
	case model.ProfileDESA:
		return TaskExportDesa
	}
	return ""
}

// Job is the workflow opened for one root object.
type Job struct {
	ID          int64
	RootPID     string
	ProfileName string
	State       JobState
	Created     time.Time
	Updated     time.Time
}

// Task is one step of a job.
type Task struct {
	ID      int64
	JobID   int64
	TypeRef string
	State   TaskState
	// Param carries the task result, the page count for exports.
	Param   *int
	Note    string
	Updated time.Time
}
