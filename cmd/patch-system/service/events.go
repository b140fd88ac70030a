package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/queue"
)

const (
	// TopicResults is the queue topic carrying RunEvents
	TopicResults = "patch.results"

	// EventChannel is the Redis pub/sub channel RunEvents are forwarded to
	EventChannel = "patchsystem:events"
)

// RunEvent announces that a patch result reached a terminal status
type RunEvent struct {
	ID        string             `json:"id"` // ULID, sortable by time
	Source    string             `json:"source"`
	PatchPath string             `json:"patch_path"`
	ResultID  string             `json:"result_id"`
	Status    models.PatchStatus `json:"status"`
	Timestamp time.Time          `json:"timestamp"`
}

// QueueEventPublisher publishes RunEvents on the in-process queue
type QueueEventPublisher struct {
	queue queue.Queue
	log   *logger.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewQueueEventPublisher creates a publisher on q
func NewQueueEventPublisher(q queue.Queue, log *logger.Logger) *QueueEventPublisher {
	return &QueueEventPublisher{
		queue:   q,
		log:     log,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (p *QueueEventPublisher) newID(t time.Time) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), p.entropy).String()
}

// PublishResult publishes a RunEvent for result, keyed by its patch path
func (p *QueueEventPublisher) PublishResult(ctx context.Context, source string, result *models.PatchResult) error {
	ts := time.Now()
	if result.EndDate != nil {
		ts = *result.EndDate
	}

	event := RunEvent{
		ID:        p.newID(ts),
		Source:    source,
		PatchPath: result.PatchPath,
		ResultID:  result.ID.String(),
		Status:    result.Status,
		Timestamp: ts,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	if err := p.queue.Publish(ctx, TopicResults, result.PatchPath, data); err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}

	p.log.Debug("run event published", "event_id", event.ID, "patch_path", result.PatchPath)
	return nil
}

// EventSink receives forwarded events; *redis.Client from common/redis satisfies it
type EventSink interface {
	PublishEvent(ctx context.Context, channel string, message string) error
}

// ForwardEvents relays every RunEvent from q to sink until ctx is done or q closes
func ForwardEvents(ctx context.Context, q queue.Queue, sink EventSink, log *logger.Logger) error {
	return q.Subscribe(ctx, TopicResults, func(ctx context.Context, key string, value []byte) error {
		if err := sink.PublishEvent(ctx, EventChannel, string(value)); err != nil {
			return fmt.Errorf("failed to forward run event for %s: %w", key, err)
		}
		log.Debug("run event forwarded", "patch_path", key, "channel", EventChannel)
		return nil
	})
}
