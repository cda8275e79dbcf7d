package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/creatorclub/backend/internal/config"
)

func TestSyncQueue(t *testing.T) {
	q := NewSyncQueue()
	if q.IsAsync() {
		t.Error("IsAsync() = true, expected false")
	}

	var mu sync.Mutex
	var got []WaitlistWelcomeTask
	q.Handle(TaskTypeWaitlistWelcome, func(ctx context.Context, payload []byte) error {
		var task WaitlistWelcomeTask
		if err := json.Unmarshal(payload, &task); err != nil {
			return err
		}
		mu.Lock()
		got = append(got, task)
		mu.Unlock()
		return nil
	})

	for _, email := range []string{"a@example.com", "b@example.com"} {
		if err := q.Enqueue(TaskTypeWaitlistWelcome, &WaitlistWelcomeTask{Email: email}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	q.Wait()

	if len(got) != 2 {
		t.Errorf("handled %d tasks, expected 2", len(got))
	}
}

func TestSyncQueue_NoHandler(t *testing.T) {
	q := NewSyncQueue()
	if err := q.Enqueue("unknown:task", map[string]string{"a": "b"}); err != nil {
		t.Errorf("Enqueue() without handler error = %v, expected nil", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewTaskQueue_FallsBackToSync(t *testing.T) {
	q := NewTaskQueue(&config.RedisConfig{Enabled: false})
	if _, ok := q.(*SyncQueue); !ok {
		t.Errorf("NewTaskQueue() = %T, expected *SyncQueue", q)
	}
}

func TestNewWorker_Disabled(t *testing.T) {
	if w := NewWorker(&config.RedisConfig{Enabled: false}); w != nil {
		t.Error("NewWorker() with Redis disabled returned a worker")
	}
}
