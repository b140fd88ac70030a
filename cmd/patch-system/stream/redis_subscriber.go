package stream

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
)

// RedisSubscriber relays run events published on a Redis channel to the hub,
// so every instance streams runs executed by any instance
type RedisSubscriber struct {
	redis   *redis.Client
	hub     *Hub
	channel string
	log     *logger.Logger
}

// NewRedisSubscriber creates a subscriber for channel
func NewRedisSubscriber(redisClient *redis.Client, hub *Hub, channel string, log *logger.Logger) *RedisSubscriber {
	return &RedisSubscriber{
		redis:   redisClient,
		hub:     hub,
		channel: channel,
		log:     log,
	}
}

// Start subscribes and forwards messages until ctx is done
func (s *RedisSubscriber) Start(ctx context.Context) error {
	pubsub := s.redis.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	// Wait for confirmation that subscription was successful
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	s.log.Info("redis event subscription confirmed", "channel", s.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("redis event subscriber stopping", "channel", s.channel)
			return nil

		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.hub.PublishEvent(ctx, msg.Channel, msg.Payload); err != nil {
				return nil
			}
		}
	}
}
