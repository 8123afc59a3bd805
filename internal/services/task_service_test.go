package services

import (
	"errors"
	"sync"
	"testing"

	"pulse-tracker-report/internal/errs"
	"pulse-tracker-report/internal/models"
)

func TestTaskLifecycle(t *testing.T) {
	store := NewInMemoryTaskStore()

	task := store.Create(adhocRequest())
	if task.Status != models.TaskStatusPending {
		t.Fatalf("new task status = %s, want pending", task.Status)
	}
	if task.ID == "" {
		t.Fatal("new task has no id")
	}

	if err := store.MarkProcessing(task.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	got, err := store.Get(task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.TaskStatusProcessing {
		t.Fatalf("status = %s, want processing", got.Status)
	}

	report := &models.Report{GeneratedAt: "2025-11-19T12:00:00Z"}
	if err := store.Complete(task.ID, report); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, _ = store.Get(task.ID)
	if got.Status != models.TaskStatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.Report == nil {
		t.Fatal("completed task has no report")
	}
}

func TestTerminalTaskIsImmutable(t *testing.T) {
	store := NewInMemoryTaskStore()

	task := store.Create(adhocRequest())
	if err := store.MarkProcessing(task.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := store.Fail(task.ID, errors.New("engine down")); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	if err := store.Complete(task.ID, &models.Report{}); err == nil {
		t.Fatal("Complete on a failed task must be rejected")
	}
	if err := store.MarkProcessing(task.ID); err == nil {
		t.Fatal("MarkProcessing on a failed task must be rejected")
	}
	if err := store.Fail(task.ID, errors.New("again")); err == nil {
		t.Fatal("Fail on a failed task must be rejected")
	}

	got, _ := store.Get(task.ID)
	if got.Status != models.TaskStatusFailed || got.Error != "engine down" {
		t.Fatalf("terminal task changed: status=%s error=%q", got.Status, got.Error)
	}
}

func TestProcessingRequiresPending(t *testing.T) {
	store := NewInMemoryTaskStore()
	task := store.Create(adhocRequest())

	if err := store.MarkProcessing(task.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := store.MarkProcessing(task.ID); err == nil {
		t.Fatal("MarkProcessing twice must be rejected")
	}
}

func TestGetUnknownTaskIsNotFound(t *testing.T) {
	store := NewInMemoryTaskStore()

	_, err := store.Get("no-such-task")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if err := store.MarkProcessing("no-such-task"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("MarkProcessing error = %v, want ErrNotFound", err)
	}
}

func TestIdenticalRequestsGetDistinctTasks(t *testing.T) {
	store := NewInMemoryTaskStore()
	req := adhocRequest()

	const n = 32
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- store.Create(req).ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate task id %s", id)
		}
		seen[id] = true
	}
	if store.Count() != n {
		t.Fatalf("store count = %d, want %d", store.Count(), n)
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	store := NewInMemoryTaskStore()
	task := store.Create(adhocRequest())

	got, _ := store.Get(task.ID)
	got.Status = models.TaskStatusCompleted

	again, _ := store.Get(task.ID)
	if again.Status != models.TaskStatusPending {
		t.Fatal("mutating a Get result must not affect stored state")
	}
}
