package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/proarc/proarc/pkg/proarc/adapter/database"
	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/support/util/exception"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

const module = "workflow"

// TaskFinisher completes the workflow task of an exported root.
type TaskFinisher interface {
	FinishTask(ctx context.Context, rootPID, taskType string, param *int) error
}

// ActionHandler reacts to a finished task inside the same transaction.
type ActionHandler interface {
	TaskFinished(ctx context.Context, tx database.DBExecutor, job *Job, task *Task) error
}

// Service stores jobs and tasks through a named DBConnection.
type Service struct {
	resolver database.DBConnectionResolver
	dbName   string
	handler  ActionHandler
	now      func() time.Time
}

var _ TaskFinisher = (*Service)(nil)

// NewService creates the service. A nil handler defaults to NextTaskHandler.
func NewService(resolver database.DBConnectionResolver, dbName string, handler ActionHandler) *Service {
	if handler == nil {
		handler = NextTaskHandler{}
	}
	return &Service{resolver: resolver, dbName: dbName, handler: handler, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) conn(ctx context.Context) (database.DBConnection, error) {
	c, err := s.resolver.ResolveDBConnection(ctx, s.dbName)
	if err != nil {
		return nil, exception.NewProArcError(exception.KindLinkage, module, "", fmt.Sprintf("failed to resolve connection '%s'", s.dbName), err)
	}
	return c, nil
}

// CreateJob opens a job for rootPID with the given task types in order. The
// first task is READY.
func (s *Service) CreateJob(ctx context.Context, rootPID, profileName string, taskTypes ...string) (*Job, []*Task, error) {
	c, err := s.conn(ctx)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	var job *Job
	var tasks []*Task
	err = c.Transaction(ctx, func(tx database.DBExecutor) error {
		je := &jobEntity{RootPID: rootPID, ProfileName: profileName, State: string(JobOpen), CreatedAt: now, UpdatedAt: now}
		if _, err := tx.ExecuteUpdate(ctx, je, "CREATE", je.TableName(), nil); err != nil {
			return err
		}
		job = je.toDomain()
		for i, typ := range taskTypes {
			state := TaskWaiting
			if i == 0 {
				state = TaskReady
			}
			te := &taskEntity{JobID: je.ID, TypeRef: typ, State: string(state), UpdatedAt: now}
			if _, err := tx.ExecuteUpdate(ctx, te, "CREATE", te.TableName(), nil); err != nil {
				return err
			}
			tasks = append(tasks, te.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, nil, exception.NewProArcError(exception.KindLinkage, module, rootPID, "failed to create workflow job", err)
	}
	return job, tasks, nil
}

// FindJob returns the newest open job of rootPID or nil.
func (s *Service) FindJob(ctx context.Context, rootPID string) (*Job, error) {
	c, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return findOpenJob(ctx, c, rootPID)
}

// FindTasks lists the tasks of a job in creation order.
func (s *Service) FindTasks(ctx context.Context, jobID int64) ([]*Task, error) {
	c, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return findTasks(ctx, c, map[string]interface{}{"job_id": jobID})
}

func findOpenJob(ctx context.Context, ex database.DBExecutor, rootPID string) (*Job, error) {
	var rows []jobEntity
	q := map[string]interface{}{"root_pid": rootPID, "state": string(JobOpen)}
	if err := ex.ExecuteQueryAdvanced(ctx, &rows, q, "id desc", 1); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

func findTasks(ctx context.Context, ex database.DBExecutor, q map[string]interface{}) ([]*Task, error) {
	var rows []taskEntity
	if err := ex.ExecuteQueryAdvanced(ctx, &rows, q, "id asc", 0); err != nil {
		return nil, err
	}
	out := make([]*Task, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// FinishTask marks the first unfinished task of taskType in the open job of
// rootPID as FINISHED with param and runs the action handler. A root without
// an open job has no workflow and is skipped.
func (s *Service) FinishTask(ctx context.Context, rootPID, taskType string, param *int) error {
	c, err := s.conn(ctx)
	if err != nil {
		return err
	}
	err = c.Transaction(ctx, func(tx database.DBExecutor) error {
		job, err := findOpenJob(ctx, tx, rootPID)
		if err != nil {
			return err
		}
		if job == nil {
			logger.Debugf("No open workflow job for %s; skipping %s.", rootPID, taskType)
			return nil
		}
		tasks, err := findTasks(ctx, tx, map[string]interface{}{"job_id": job.ID, "type_ref": taskType})
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return fmt.Errorf("job %d has no task %s", job.ID, taskType)
		}
		var task *Task
		for _, t := range tasks {
			if t.State != TaskFinished && t.State != TaskCanceled {
				task = t
				break
			}
		}
		if task == nil {
			logger.Debugf("Task %s of job %d is already finished.", taskType, job.ID)
			return nil
		}
		now := s.now()
		cols := map[string]interface{}{"state": string(TaskFinished), "param": param, "updated_at": now}
		if _, err := tx.ExecuteUpdateColumns(ctx, taskEntity{}.TableName(), cols, map[string]interface{}{"id": task.ID}); err != nil {
			return err
		}
		task.State = TaskFinished
		task.Param = param
		task.Updated = now
		return s.handler.TaskFinished(ctx, tx, job, task)
	})
	if err != nil {
		return exception.NewProArcError(exception.KindLinkage, module, rootPID, fmt.Sprintf("cannot finish task %s", taskType), err)
	}
	return nil
}

// NextTaskHandler readies the next waiting task of the job and closes the job
// once nothing is left to do.
type NextTaskHandler struct{}

func (NextTaskHandler) TaskFinished(ctx context.Context, tx database.DBExecutor, job *Job, task *Task) error {
	tasks, err := findTasks(ctx, tx, map[string]interface{}{"job_id": job.ID})
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	open := false
	for _, t := range tasks {
		switch t.State {
		case TaskReady, TaskStarted:
			open = true
		case TaskWaiting:
			if !open {
				if _, err := tx.ExecuteUpdateColumns(ctx, taskEntity{}.TableName(),
					map[string]interface{}{"state": string(TaskReady), "updated_at": now},
					map[string]interface{}{"id": t.ID}); err != nil {
					return err
				}
			}
			open = true
		}
		if open {
			break
		}
	}
	if open {
		return nil
	}
	_, err = tx.ExecuteUpdateColumns(ctx, jobEntity{}.TableName(),
		map[string]interface{}{"state": string(JobFinished), "updated_at": now},
		map[string]interface{}{"id": job.ID})
	return err
}

// Module provides the service as the TaskFinisher of exports.
var Module = fx.Provide(
	func(resolver database.DBConnectionResolver, cfg *config.Config) *Service {
		return NewService(resolver, cfg.ProArc.Infrastructure.WorkflowDBRef, nil)
	},
	func(s *Service) TaskFinisher { return s },
)
