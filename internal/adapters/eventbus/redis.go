package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Amund211/eliteseller-gateway/internal/logging"
	"github.com/Amund211/eliteseller-gateway/internal/reporting"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "eliteseller:events"

// NewRedisClient connects to redis and makes sure the server answers
func NewRedisClient(ctx context.Context, addr string, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

type envelope struct {
	Event  Event  `json:"event"`
	Origin string `json:"origin"`
}

// RedisBridge broadcasts events to every gateway instance over a redis pub/sub channel.
//
// Events are dispatched to local handlers immediately, and to other instances through redis.
// Run must be running for events from other instances to be received.
type RedisBridge struct {
	client   redis.UniversalClient
	channel  string
	local    *Local
	originID string
}

func NewRedisBridge(client redis.UniversalClient, channel string, local *Local) *RedisBridge {
	return &RedisBridge{
		client:   client,
		channel:  channel,
		local:    local,
		originID: uuid.NewString(),
	}
}

func (b *RedisBridge) On(name string, handler Handler) func() {
	return b.local.On(name, handler)
}

func (b *RedisBridge) Emit(ctx context.Context, event Event) {
	b.local.Emit(ctx, event)

	data, err := json.Marshal(envelope{Event: event, Origin: b.originID})
	if err != nil {
		reporting.Report(ctx, fmt.Errorf("failed to marshal event: %w", err))
		return
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		// Other instances keep their entries until the next refresh
		reporting.Report(ctx, fmt.Errorf("failed to publish event: %w", err), map[string]string{
			"event":   event.Name,
			"channel": b.channel,
		})
	}
}

// Run relays events published by other instances to the local handlers until ctx is done
func (b *RedisBridge) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx).With(slog.String("channel", b.channel))

	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	logger.InfoContext(ctx, "Listening for events")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("redis subscription closed")
			}
			b.handleMessage(ctx, msg.Payload)
		}
	}
}

func (b *RedisBridge) handleMessage(ctx context.Context, payload string) {
	var received envelope
	if err := json.Unmarshal([]byte(payload), &received); err != nil {
		reporting.Report(ctx, fmt.Errorf("failed to parse event: %w", err), map[string]string{
			"payload": payload,
		})
		return
	}

	if received.Origin == b.originID {
		return
	}

	if received.Event.Name == "" {
		logging.FromContext(ctx).WarnContext(ctx, "Ignoring event without name", slog.String("origin", received.Origin))
		return
	}

	b.local.Emit(ctx, received.Event)
}

var _ Emitter = (*RedisBridge)(nil)
