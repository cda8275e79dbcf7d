package services

import (
	"context"
	"sync"

	"github.com/creatorclub/backend/internal/config"
	"github.com/creatorclub/backend/pkg/logger"
	"github.com/hibiken/asynq"
)

// Worker processes async tasks from the queue
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	running bool
	mu      sync.Mutex
}

// NewWorker returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig) *Worker {
	if !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisClientOpt(cfg),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error().Err(err).Str("type", task.Type()).Msg("[Worker] Error processing task")
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

// Handle registers the handler for taskType. Call before Start.
func (w *Worker) Handle(taskType string, h TaskHandler) {
	w.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		logger.Debug().Str("type", t.Type()).Msg("[Worker] Processing task")
		return h(ctx, t.Payload())
	})
}

// Start begins processing tasks
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.running = true
	logger.Infof("[Worker] Async worker started")
	return nil
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	logger.Infof("[Worker] Shutdown complete")
}

// TaskRegistrar is implemented by both the in-process queue and the worker.
type TaskRegistrar interface {
	Handle(taskType string, h TaskHandler)
}
