package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/models"
	"github.com/ida-mediafoundry/jetpack-patch-system/common/queue"
)

type channelSink struct {
	mu       sync.Mutex
	channels []string
	messages chan string
	err      error
}

func (s *channelSink) PublishEvent(ctx context.Context, channel string, message string) error {
	s.mu.Lock()
	s.channels = append(s.channels, channel)
	s.mu.Unlock()
	s.messages <- message
	return s.err
}

func TestQueueEventPublisher_ForwardsToSink(t *testing.T) {
	defer goleak.VerifyNone(t)

	log := logger.Discard()
	q := queue.NewMemoryQueue(10, log)
	sink := &channelSink{messages: make(chan string, 2)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, ForwardEvents(ctx, q, sink, log))

	pub := NewQueueEventPublisher(q, log)
	patch := &models.Patch{Path: "/etc/patches/p/001.groovy", Fingerprint: "100"}
	first := models.NewRunningResult(patch, t0)
	first.Finish(models.StatusSuccess, t1)
	second := models.NewRunningResult(patch, t1)
	second.Finish(models.StatusError, t1)

	require.NoError(t, pub.PublishResult(ctx, "groovy", first))
	require.NoError(t, pub.PublishResult(ctx, "groovy", second))

	var events []RunEvent
	for i := 0; i < 2; i++ {
		select {
		case msg := <-sink.messages:
			var event RunEvent
			require.NoError(t, json.Unmarshal([]byte(msg), &event))
			events = append(events, event)
		case <-time.After(2 * time.Second):
			t.Fatal("event not forwarded")
		}
	}

	assert.Equal(t, first.ID.String(), events[0].ResultID)
	assert.Equal(t, models.StatusSuccess, events[0].Status)
	assert.Equal(t, "groovy", events[0].Source)
	assert.Equal(t, patch.Path, events[0].PatchPath)
	assert.True(t, t1.Equal(events[0].Timestamp))

	id1, err := ulid.Parse(events[0].ID)
	require.NoError(t, err)
	id2, err := ulid.Parse(events[1].ID)
	require.NoError(t, err)
	assert.Equal(t, -1, id1.Compare(id2))

	sink.mu.Lock()
	assert.Equal(t, []string{EventChannel, EventChannel}, sink.channels)
	sink.mu.Unlock()

	cancel()
	require.NoError(t, q.Close())
}

func TestQueueEventPublisher_ClosedQueue(t *testing.T) {
	log := logger.Discard()
	q := queue.NewMemoryQueue(1, log)
	require.NoError(t, q.Close())

	pub := NewQueueEventPublisher(q, log)
	result := models.NewRunningResult(&models.Patch{Path: "/p.groovy"}, t0)

	err := pub.PublishResult(context.Background(), "groovy", result)
	assert.True(t, errors.Is(err, queue.ErrClosed))
}
