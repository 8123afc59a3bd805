package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"pulse-tracker-report/internal/errs"
	"pulse-tracker-report/internal/models"
)

// TaskStore tracks async report tasks. Implementations must enforce the
// pending -> processing -> completed|failed lifecycle: a terminal task never
// changes again. Tasks are kept for the life of the process; nothing evicts
// them.
type TaskStore interface {
	// Create registers a new pending task and returns it.
	Create(request models.GenerateReportRequest) *models.Task

	// Get returns a snapshot of the task, or errs.ErrNotFound.
	Get(taskID string) (*models.Task, error)

	// MarkProcessing moves a pending task to processing.
	MarkProcessing(taskID string) error

	// Complete moves a task to completed and attaches the report.
	Complete(taskID string, report *models.Report) error

	// Fail moves a task to failed and records the error message.
	Fail(taskID string, taskErr error) error

	// Count returns the number of tracked tasks.
	Count() int
}

// InMemoryTaskStore is the default TaskStore: a mutex-guarded map keyed by
// task id. Identical requests submitted twice get two independent tasks; only
// the report cache deduplicates work.
type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
}

// NewInMemoryTaskStore creates an empty task store.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{tasks: make(map[string]*models.Task)}
}

// Create registers a new pending task.
func (s *InMemoryTaskStore) Create(request models.GenerateReportRequest) *models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	task := &models.Task{
		ID:        uuid.New().String(),
		Status:    models.TaskStatusPending,
		Request:   request,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks[task.ID] = task

	log.Printf("Created task %s (%d tracked)", task.ID, len(s.tasks))
	snapshot := *task
	return &snapshot
}

// Get returns a copy of the task so callers cannot mutate stored state.
func (s *InMemoryTaskStore) Get(taskID string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, errs.ErrNotFound)
	}
	snapshot := *task
	return &snapshot, nil
}

// MarkProcessing moves a pending task to processing.
func (s *InMemoryTaskStore) MarkProcessing(taskID string) error {
	return s.transition(taskID, models.TaskStatusProcessing, func(task *models.Task) error {
		if task.Status != models.TaskStatusPending {
			return fmt.Errorf("task %s is %s, cannot start processing", taskID, task.Status)
		}
		return nil
	}, nil)
}

// Complete moves a task to completed and attaches its report.
func (s *InMemoryTaskStore) Complete(taskID string, report *models.Report) error {
	return s.transition(taskID, models.TaskStatusCompleted, nil, func(task *models.Task) {
		task.Report = report
	})
}

// Fail moves a task to failed and records the error message.
func (s *InMemoryTaskStore) Fail(taskID string, taskErr error) error {
	return s.transition(taskID, models.TaskStatusFailed, nil, func(task *models.Task) {
		if taskErr != nil {
			task.Error = taskErr.Error()
		}
	})
}

// Count returns the number of tracked tasks.
func (s *InMemoryTaskStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// transition applies one status change under the lock. Terminal tasks are
// immutable; any transition against one is rejected.
func (s *InMemoryTaskStore) transition(taskID string, to models.TaskStatus, check func(*models.Task) error, apply func(*models.Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, errs.ErrNotFound)
	}
	if task.Status.Terminal() {
		return fmt.Errorf("task %s is already %s", taskID, task.Status)
	}
	if check != nil {
		if err := check(task); err != nil {
			return err
		}
	}

	task.Status = to
	task.UpdatedAt = time.Now()
	if apply != nil {
		apply(task)
	}
	return nil
}
