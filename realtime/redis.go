// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jpenzell/deck-live/auth"
	"github.com/jpenzell/deck-live/models"
)

// ChannelPrefix is prepended to the session id to form a Redis channel.
const ChannelPrefix = "deck:session:"

// ConnectRedis parses url and verifies the server answers.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// RedisRelay shares events between server instances. Publish delivers to
// the local hub and to Redis; Run feeds events from other instances into
// the local hub.
type RedisRelay struct {
	client *redis.Client
	local  *Hub
	origin string
}

// envelope tags an event with the instance that produced it so Run can
// drop its own messages.
type envelope struct {
	Origin string       `json:"origin"`
	Event  models.Event `json:"event"`
}

func NewRedisRelay(client *redis.Client, local *Hub) *RedisRelay {
	origin, err := auth.GenerateID(8)
	if err != nil {
		origin = auth.GenerateParticipantID()
	}
	return &RedisRelay{client: client, local: local, origin: origin}
}

func (r *RedisRelay) Publish(ctx context.Context, e models.Event) error {
	if err := r.local.Publish(ctx, e); err != nil {
		return err
	}

	payload, err := json.Marshal(envelope{Origin: r.origin, Event: e})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := r.client.Publish(ctx, ChannelPrefix+e.SessionID, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event to redis: %w", err)
	}
	return nil
}

// Run subscribes to every session channel until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to redis: %w", err)
	}
	slog.Info("redis relay subscribed", "pattern", ChannelPrefix+"*")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(ctx, msg.Channel, []byte(msg.Payload))
		}
	}
}

func (r *RedisRelay) handle(ctx context.Context, channel string, payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		slog.Warn("dropping malformed relay message", "channel", channel, "error", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	if sessionID := strings.TrimPrefix(channel, ChannelPrefix); sessionID != env.Event.SessionID {
		slog.Warn("dropping relay message for mismatched channel", "channel", channel, "session_id", env.Event.SessionID)
		return
	}
	if err := r.local.Publish(ctx, env.Event); err != nil {
		slog.Warn("failed to deliver relayed event", "session_id", env.Event.SessionID, "error", err)
	}
}
