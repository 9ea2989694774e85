package workflow

import "time"

type jobEntity struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RootPID     string    `gorm:"column:root_pid"`
	ProfileName string    `gorm:"column:profile_name"`
	State       string    `gorm:"column:state"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (jobEntity) TableName() string { return "workflow_job" }

func (e *jobEntity) toDomain() *Job {
	return &Job{
		ID:          e.ID,
		RootPID:     e.RootPID,
		ProfileName: e.ProfileName,
		State:       JobState(e.State),
		Created:     e.CreatedAt,
		Updated:     e.UpdatedAt,
	}
}

type taskEntity struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	JobID     int64     `gorm:"column:job_id"`
	TypeRef   string    `gorm:"column:type_ref"`
	State     string    `gorm:"column:state"`
	Param     *int      `gorm:"column:param"`
	Note      string    `gorm:"column:note"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (taskEntity) TableName() string { return "workflow_task" }

func (e *taskEntity) toDomain() *Task {
	return &Task{
		ID:      e.ID,
		JobID:   e.JobID,
		TypeRef: e.TypeRef,
		State:   TaskState(e.State),
		Param:   e.Param,
		Note:    e.Note,
		Updated: e.UpdatedAt,
	}
}
