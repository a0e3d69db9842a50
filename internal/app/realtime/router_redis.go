package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wavechat/internal/pkg/logx"
)

// routerTopicPrefix namespaces the Redis pub/sub channels used for group
// fan-out, keeping them apart from other applications on a shared instance.
const routerTopicPrefix = "wavechat:group:"

// RedisRouter implements Router on Redis pub/sub. Each process holds one
// PubSub connection and a local registry of which of its sessions belong to
// which group. Publishing goes through Redis, so sessions on every process
// receive the event; the local registry narrows delivery to the sessions of
// this process.
type RedisRouter struct {
	client *redis.Client
	pubsub *redis.PubSub

	mu     sync.RWMutex
	groups map[string]map[string]Subscriber

	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewRedisRouter constructs the router and starts its receive loop. The
// context only bounds construction; the receive loop runs until Close.
func NewRedisRouter(ctx context.Context, client *redis.Client) *RedisRouter {
	r := &RedisRouter{
		client: client,
		pubsub: client.Subscribe(ctx),
		groups: make(map[string]map[string]Subscriber),
		logger: logx.Logger().With().Str("component", "RedisRouter").Logger(),
	}

	r.wg.Add(1)
	go r.receiveLoop()

	return r
}

func topic(group string) string {
	return routerTopicPrefix + group
}

// Subscribe registers the session locally and, for the first local subscriber
// of a group, subscribes the process to the group's Redis channel.
func (r *RedisRouter) Subscribe(ctx context.Context, group string, sub Subscriber) error {
	r.mu.Lock()
	subs := r.groups[group]
	first := subs == nil
	if first {
		subs = make(map[string]Subscriber)
		r.groups[group] = subs
	}
	subs[sub.SessionID()] = sub
	r.mu.Unlock()

	if !first {
		return nil
	}

	if err := r.pubsub.Subscribe(ctx, topic(group)); err != nil {
		r.mu.Lock()
		delete(subs, sub.SessionID())
		if len(subs) == 0 {
			delete(r.groups, group)
		}
		r.mu.Unlock()
		return err
	}
	return nil
}

// Unsubscribe removes the session locally and drops the Redis channel
// subscription once the last local session leaves the group.
func (r *RedisRouter) Unsubscribe(ctx context.Context, group string, sub Subscriber) error {
	r.mu.Lock()
	subs := r.groups[group]
	if subs == nil {
		r.mu.Unlock()
		return nil
	}
	delete(subs, sub.SessionID())
	last := len(subs) == 0
	if last {
		delete(r.groups, group)
	}
	r.mu.Unlock()

	if !last {
		return nil
	}
	return r.pubsub.Unsubscribe(ctx, topic(group))
}

// Publish sends the event through Redis so every process sharing the instance
// fans it out to its local subscribers of the group.
func (r *RedisRouter) Publish(ctx context.Context, group string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, topic(group), payload).Err()
}

// receiveLoop dispatches incoming Redis messages to the local subscribers of
// the addressed group. It exits when the PubSub connection is closed.
func (r *RedisRouter) receiveLoop() {
	defer r.wg.Done()

	for msg := range r.pubsub.Channel() {
		group := strings.TrimPrefix(msg.Channel, routerTopicPrefix)

		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			r.logger.Error().Err(err).Str("group", group).Msg("Dropping undecodable group event")
			continue
		}

		r.mu.RLock()
		snapshot := make([]Subscriber, 0, len(r.groups[group]))
		for _, sub := range r.groups[group] {
			snapshot = append(snapshot, sub)
		}
		r.mu.RUnlock()

		for _, sub := range snapshot {
			sub.HandleEvent(event)
		}
	}

	r.logger.Info().Msg("Router receive loop stopped.")
}

// Close shuts down the PubSub connection and waits for the receive loop.
func (r *RedisRouter) Close() error {
	err := r.pubsub.Close()
	r.wg.Wait()
	return err
}
