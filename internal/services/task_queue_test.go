package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/huangang/ideaforge/backend/internal/config"
)

func TestNotificationTask_JSON(t *testing.T) {
	task := NotificationTask{
		Type:           NotifyRoleChanged,
		ProjectID:      4,
		ProjectName:    "Acme",
		RecipientID:    9,
		RecipientEmail: "dev@example.com",
		Role:           "admin",
		PreviousRole:   "member",
	}
	data, err := json.Marshal(task)
	if err != nil {
		t.Fatal(err)
	}
	var decoded NotificationTask
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != task {
		t.Errorf("decoded = %+v, expected %+v", decoded, task)
	}
}

func TestSyncQueue_IsAsync(t *testing.T) {
	if NewSyncQueue().IsAsync() {
		t.Error("SyncQueue.IsAsync() should return false")
	}
	if !(&AsyncQueue{}).IsAsync() {
		t.Error("AsyncQueue.IsAsync() should return true")
	}
}

func TestSyncQueue_EnqueueWithoutProcessor(t *testing.T) {
	queue := NewSyncQueue()
	if err := queue.Enqueue(&NotificationTask{Type: NotifyInvitation}); err != nil {
		t.Errorf("Enqueue without processor should not error, got %v", err)
	}
	if err := queue.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestSyncQueue_RunsProcessor(t *testing.T) {
	queue := NewSyncQueue()
	var calls atomic.Int32
	queue.SetProcessor(func(ctx context.Context, task *NotificationTask) error {
		calls.Add(1)
		if task.Type == NotifyRemoved {
			return errors.New("smtp down")
		}
		return nil
	})

	for _, kind := range []string{NotifyInvitation, NotifyRemoved, NotifyRoleChanged} {
		if err := queue.Enqueue(&NotificationTask{Type: kind}); err != nil {
			t.Fatalf("Enqueue(%s) = %v, failures must not surface", kind, err)
		}
	}
	queue.Wait()

	if calls.Load() != 3 {
		t.Errorf("processor called %d times, expected 3", calls.Load())
	}
}

func TestWorker_DisabledRedis(t *testing.T) {
	if w := NewWorker(&config.RedisConfig{Enabled: false}); w != nil {
		t.Error("NewWorker should return nil when Redis is disabled")
	}
}

func TestWorker_MalformedPayloadSkipsRetry(t *testing.T) {
	w := &Worker{}
	err := w.handleNotification(context.Background(), asynq.NewTask(TaskTypeNotification, []byte("{not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("expected SkipRetry, got %v", err)
	}
}

func TestWorker_DispatchesToProcessor(t *testing.T) {
	w := &Worker{}
	var got *NotificationTask
	w.SetProcessor(func(ctx context.Context, task *NotificationTask) error {
		got = task
		return nil
	})

	payload, _ := json.Marshal(NotificationTask{Type: NotifyInvitation, ProjectID: 2})
	if err := w.handleNotification(context.Background(), asynq.NewTask(TaskTypeNotification, payload)); err != nil {
		t.Fatalf("handleNotification() = %v", err)
	}
	if got == nil || got.ProjectID != 2 {
		t.Errorf("processor got %+v", got)
	}
}
