// Package events delivers live feed updates over Redis pub/sub to websocket
// subscribers.
package events

import (
	"context"
	"encoding/json"
	"log"
	"runtime/debug"
	"time"

	"github.com/redis/go-redis/v9"
)

// FeedChannel is the Redis channel every feed mutation is published on.
const FeedChannel = "feed:events"

// Feed event types.
const (
	EventGameCreated = "game_created"
	EventGameDeleted = "game_deleted"
	EventPostCreated = "post_created"
	EventPostDeleted = "post_deleted"
	EventLikeToggled = "like_toggled"
)

// FeedEvent is the wire form of a feed mutation. Payload carries the
// type-specific body (the created game, the new like state).
type FeedEvent struct {
	Type    string          `json:"type"`
	GameID  uint            `json:"game_id,omitempty"`
	PostID  uint            `json:"post_id,omitempty"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewFeedEvent builds an event with v marshaled into the payload.
func NewFeedEvent(eventType string, gameID, postID uint, v any) (*FeedEvent, error) {
	ev := &FeedEvent{
		Type:   eventType,
		GameID: gameID,
		PostID: postID,
		At:     time.Now().UTC(),
	}
	if v != nil {
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		ev.Payload = payload
	}
	return ev, nil
}

// Notifier publishes feed events into Redis. A nil client turns publishing
// into a no-op so the API keeps working without Redis.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishFeed sends the event to every subscriber across all instances.
func (n *Notifier) PublishFeed(ctx context.Context, ev *FeedEvent) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, FeedChannel, payload).Err()
}

// StartFeedSubscriber subscribes to the feed channel and calls onMessage for
// each payload until ctx is done.
func (n *Notifier) StartFeedSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, FeedChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in FeedSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
