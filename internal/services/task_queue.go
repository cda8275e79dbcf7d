package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/creatorclub/backend/internal/config"
	"github.com/creatorclub/backend/pkg/logger"
	"github.com/hibiken/asynq"
)

const (
	TaskTypeWaitlistWelcome = "waitlist:welcome"
	TaskTypeCheckoutFulfill = "checkout:fulfill"
)

// WaitlistWelcomeTask asks the mailer to greet a new waitlist entry.
type WaitlistWelcomeTask struct {
	EntryID  string `json:"entry_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Interest string `json:"interest"`
}

// CheckoutFulfillTask turns a completed provider session into a membership.
type CheckoutFulfillTask struct {
	ProviderSessionID string `json:"provider_session_id"`
	CommunityID       string `json:"community_id"`
	UserID            string `json:"user_id"`
	EventID           string `json:"event_id"`
}

// TaskHandler processes one raw task payload.
type TaskHandler func(ctx context.Context, payload []byte) error

// TaskQueue defines the interface for background task processing
type TaskQueue interface {
	// Enqueue marshals payload and schedules it under taskType
	Enqueue(taskType string, payload interface{}) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// NewTaskQueue picks the Redis-backed queue when Redis is enabled and
// reachable, the in-process queue otherwise.
func NewTaskQueue(cfg *config.RedisConfig) TaskQueue {
	if !cfg.Enabled {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
		return NewSyncQueue()
	}
	queue, err := NewAsyncQueue(cfg)
	if err != nil {
		logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
		return NewSyncQueue()
	}
	logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
	return queue
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := redisClientOpt(cfg)
	client := asynq.NewClient(redisOpt)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(taskType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	info, err := q.client.Enqueue(asynq.NewTask(taskType, data),
		asynq.Queue("default"),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return err
	}

	logger.Debug().Str("task_id", info.ID).Str("type", taskType).Str("queue", info.Queue).Msg("[AsyncQueue] Task enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool { return true }

func (q *AsyncQueue) Close() error { return q.client.Close() }

// SyncQueue runs tasks in-process when Redis is not available.
type SyncQueue struct {
	mu       sync.RWMutex
	handlers map[string]TaskHandler
	wg       sync.WaitGroup
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{handlers: make(map[string]TaskHandler)}
}

// Handle registers the handler for taskType.
func (q *SyncQueue) Handle(taskType string, h TaskHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[taskType] = h
}

// Enqueue runs the handler in a goroutine so the caller's response is not delayed.
func (q *SyncQueue) Enqueue(taskType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	q.mu.RLock()
	h := q.handlers[taskType]
	q.mu.RUnlock()
	if h == nil {
		logger.Warnf("[SyncQueue] No handler for %s, task dropped", taskType)
		return nil
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := h(context.Background(), data); err != nil {
			logger.Error().Err(err).Str("type", taskType).Msg("[SyncQueue] Task processing failed")
		}
	}()
	return nil
}

// Wait blocks until every running task has returned.
func (q *SyncQueue) Wait() { q.wg.Wait() }

func (q *SyncQueue) IsAsync() bool { return false }

// Close waits for in-flight tasks.
func (q *SyncQueue) Close() error {
	q.wg.Wait()
	return nil
}
