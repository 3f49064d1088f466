package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/huangang/ideaforge/backend/internal/config"
	"github.com/huangang/ideaforge/backend/pkg/logger"
)

const (
	TaskTypeNotification = "notification:send"
)

// Notification types
const (
	NotifyInvitation  = "invitation"
	NotifyRoleChanged = "role_changed"
	NotifyRemoved     = "removed"
)

// NotificationTask is a best-effort message to a collaborator.
type NotificationTask struct {
	Type           string `json:"type"`
	ProjectID      uint   `json:"project_id"`
	ProjectName    string `json:"project_name"`
	ActorName      string `json:"actor_name"`
	RecipientID    uint   `json:"recipient_id"`
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name"`
	Role           string `json:"role,omitempty"`
	PreviousRole   string `json:"previous_role,omitempty"`
}

// TaskQueue accepts notification tasks for background delivery.
type TaskQueue interface {
	Enqueue(task *NotificationTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	Close() error
}

var (
	globalTaskQueue TaskQueue
	taskQueueOnce   sync.Once
)

// InitTaskQueue picks the Redis-backed queue when Redis is enabled and reachable,
// otherwise the in-process one.
func InitTaskQueue(cfg *config.Config) TaskQueue {
	taskQueueOnce.Do(func() {
		log := logger.Module("queue")
		if cfg.Redis.Enabled {
			queue, err := NewAsyncQueue(&cfg.Redis)
			if err != nil {
				log.Warn().Err(err).Msg("Redis unavailable, falling back to in-process queue")
				globalTaskQueue = NewSyncQueue()
			} else {
				log.Info().Str("addr", cfg.Redis.Addr).Msg("async queue initialized")
				globalTaskQueue = queue
			}
		} else {
			log.Info().Msg("in-process queue initialized (Redis disabled)")
			globalTaskQueue = NewSyncQueue()
		}
	})
	return globalTaskQueue
}

// GetTaskQueue returns the global task queue instance
func GetTaskQueue() TaskQueue {
	return globalTaskQueue
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewAsyncQueue connects to Redis and verifies the connection.
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(task *NotificationTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	// notifications are fire-and-forget: no retries
	info, err := q.client.Enqueue(asynq.NewTask(TaskTypeNotification, payload),
		asynq.Queue("notifications"),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return err
	}

	logger.Module("queue").Debug().Str("id", info.ID).Str("type", task.Type).Msg("notification enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue runs each task on its own goroutine inside this process.
type SyncQueue struct {
	mu        sync.RWMutex
	processor func(context.Context, *NotificationTask) error
	wg        sync.WaitGroup
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

func (q *SyncQueue) SetProcessor(processor func(context.Context, *NotificationTask) error) {
	q.mu.Lock()
	q.processor = processor
	q.mu.Unlock()
}

func (q *SyncQueue) Enqueue(task *NotificationTask) error {
	q.mu.RLock()
	processor := q.processor
	q.mu.RUnlock()

	if processor == nil {
		logger.Module("queue").Warn().Str("type", task.Type).Msg("no processor set, notification dropped")
		return nil
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := processor(context.Background(), task); err != nil {
			logger.Module("queue").Warn().Err(err).Str("type", task.Type).Msg("notification failed")
		}
	}()
	return nil
}

// Wait blocks until every enqueued task has finished.
func (q *SyncQueue) Wait() {
	q.wg.Wait()
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

// Close waits for in-flight tasks.
func (q *SyncQueue) Close() error {
	q.wg.Wait()
	return nil
}
