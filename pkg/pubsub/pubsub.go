// Package pubsub fans session events out to presenters. Publishing never
// blocks the session loop: a subscriber that falls behind loses messages.
package pubsub

import (
	"context"
	"errors"
	"sync"
)

// Topics published by a session
const (
	TopicFrames    = "frames"
	TopicExpansion = "expansion"
)

// DefaultBuffer is the per-subscription queue length
const DefaultBuffer = 100

var ErrShutdown = errors.New("pubsub is shut down")

// Mode controls what a full subscription does with a new message
type Mode int

const (
	// DropNewest discards the incoming message when the queue is full.
	// Use it for events where every message counts until the queue overflows.
	DropNewest Mode = iota
	// KeepLatest evicts the oldest queued message to make room. Frames use
	// it: a slow presenter skips to the newest layout instead of replaying
	// stale ones.
	KeepLatest
)

// PubSub provides publish/subscribe functionality for real-time updates
type PubSub struct {
	subscribers map[string]map[*Subscription]struct{}
	mu          sync.RWMutex
	shutdown    chan struct{}
	isShutdown  bool
	onDrop      func(topic string)
}

// Subscription is one consumer of a topic
type Subscription struct {
	topic   string
	mode    Mode
	channel chan any
	ps      *PubSub
	cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// SubscribeOption configures a subscription
type SubscribeOption func(*Subscription)

// WithMode sets the overflow behaviour
func WithMode(m Mode) SubscribeOption {
	return func(s *Subscription) { s.mode = m }
}

// WithBuffer sets the queue length
func WithBuffer(n int) SubscribeOption {
	return func(s *Subscription) { s.channel = make(chan any, max(n, 1)) }
}

// NewPubSub creates a new PubSub instance
func NewPubSub() *PubSub {
	return &PubSub{
		subscribers: make(map[string]map[*Subscription]struct{}),
		shutdown:    make(chan struct{}),
	}
}

// OnDrop registers a callback invoked for every message a subscriber
// misses. Set it before publishing.
func (ps *PubSub) OnDrop(fn func(topic string)) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.onDrop = fn
}

// Subscribe creates a subscription that ends when ctx is done
func (ps *PubSub) Subscribe(ctx context.Context, topic string, opts ...SubscribeOption) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:   topic,
		channel: make(chan any, DefaultBuffer),
		ps:      ps,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(sub)
	}

	ps.mu.Lock()
	if ps.isShutdown {
		ps.mu.Unlock()
		cancel()
		return nil, ErrShutdown
	}
	if ps.subscribers[topic] == nil {
		ps.subscribers[topic] = make(map[*Subscription]struct{})
	}
	ps.subscribers[topic][sub] = struct{}{}
	ps.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-ps.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish offers message to every subscriber of topic and returns how many
// accepted it
func (ps *PubSub) Publish(topic string, message any) int {
	ps.mu.RLock()
	if ps.isShutdown {
		ps.mu.RUnlock()
		return 0
	}
	subs := make([]*Subscription, 0, len(ps.subscribers[topic]))
	for sub := range ps.subscribers[topic] {
		subs = append(subs, sub)
	}
	onDrop := ps.onDrop
	ps.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		ok, dropped := sub.offer(message)
		if ok {
			delivered++
		}
		if dropped && onDrop != nil {
			onDrop(topic)
		}
	}
	return delivered
}

// GetSubscriberCount returns the number of subscribers for a topic
func (ps *PubSub) GetSubscriberCount(topic string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[topic])
}

// Shutdown closes all subscriptions. Later publishes are ignored.
func (ps *PubSub) Shutdown() {
	ps.mu.Lock()
	if ps.isShutdown {
		ps.mu.Unlock()
		return
	}
	ps.isShutdown = true
	close(ps.shutdown)

	var subs []*Subscription
	for topic, set := range ps.subscribers {
		for sub := range set {
			subs = append(subs, sub)
		}
		delete(ps.subscribers, topic)
	}
	ps.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

// Channel returns the subscription's message channel. It is closed when
// the subscription ends.
func (s *Subscription) Channel() <-chan any {
	return s.channel
}

// Topic returns the subscribed topic
func (s *Subscription) Topic() string {
	return s.topic
}

// Unsubscribe removes the subscription
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.ps.mu.Lock()
	if set := s.ps.subscribers[s.topic]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(s.ps.subscribers, s.topic)
		}
	}
	s.ps.mu.Unlock()

	s.close()
}

// offer enqueues message without blocking. The subscription lock keeps a
// concurrent close from racing the send.
func (s *Subscription) offer(message any) (delivered, dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, false
	}

	select {
	case s.channel <- message:
		return true, false
	default:
	}

	if s.mode == DropNewest {
		return false, true
	}

	// KeepLatest: evict the oldest and retry once
	select {
	case <-s.channel:
	default:
	}
	select {
	case s.channel <- message:
		return true, true
	default:
		return false, true
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.channel)
	}
}
