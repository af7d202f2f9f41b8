// Package events provides a small in-process, topic-based publish/subscribe
// bus used to serialize delivery of messages to a single consumer (such as
// one WebSocket connection) through one dispatch goroutine.
package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// HandlerFunc is called when an event is emitted on a subscribed topic.
type HandlerFunc func(context.Context, any) error

// SubjectOption configures a Subject.
type SubjectOption func(*subjectConfig)

type subjectConfig struct {
	bufferSize   int
	syncDelivery bool
}

// WithBufferSize sets the event channel buffer size.
func WithBufferSize(size int) SubjectOption {
	return func(cfg *subjectConfig) { cfg.bufferSize = size }
}

// WithSyncDelivery forces synchronous (inline) event delivery, serializing
// all handler calls within the single eventLoop goroutine. Required when
// handlers must not run concurrently with each other, such as writes to a
// single WebSocket connection.
func WithSyncDelivery() SubjectOption {
	return func(cfg *subjectConfig) { cfg.syncDelivery = true }
}

type event struct {
	topic   string
	message any
}

// Subscription represents a handler subscribed to a specific topic.
type Subscription struct {
	Topic       string
	ID          string
	handler     HandlerFunc
	Unsubscribe func()
}

type subscriberMap map[string]map[string]Subscription

// Subject is a topic-addressed event bus with a single dispatch goroutine.
type Subject struct {
	subscribers atomic.Pointer[subscriberMap]
	nextSubID   int64

	events   chan event
	shutdown chan struct{}

	config subjectConfig

	closed int32
	wg     sync.WaitGroup
}

// NewSubject creates a new Subject with optional configuration.
func NewSubject(opts ...SubjectOption) *Subject {
	cfg := subjectConfig{bufferSize: 512}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Subject{
		events:   make(chan event, cfg.bufferSize),
		shutdown: make(chan struct{}),
		config:   cfg,
	}

	empty := make(subscriberMap)
	s.subscribers.Store(&empty)

	go s.eventLoop()
	return s
}

// Emit emits an event to the given topic. Blocks briefly if the dispatch
// channel is full; fails rather than hang forever on a stuck consumer.
func Emit[T any](subject *Subject, topic string, value T) error {
	evt := event{topic: topic, message: value}
	select {
	case subject.events <- evt:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("events: timed out emitting to topic %q", topic)
	}
}

// Subscribe subscribes a typed handler to the given topic. The returned
// Subscription's Unsubscribe must be called to stop receiving events.
func Subscribe[T any](subject *Subject, topic string, handler func(context.Context, T) error) Subscription {
	wrapped := HandlerFunc(func(ctx context.Context, data any) error {
		typed, ok := data.(T)
		if !ok {
			return fmt.Errorf("events: type assertion failed for %T, expected %T", data, *new(T))
		}
		return handler(ctx, typed)
	})

	subID := atomic.AddInt64(&subject.nextSubID, 1)
	sub := Subscription{
		Topic:   topic,
		ID:      fmt.Sprintf("%s-%d", topic, subID),
		handler: wrapped,
	}
	subject.addSubscription(sub)

	sub.Unsubscribe = func() { subject.removeSubscription(sub.Topic, sub.ID) }
	return sub
}

// Complete shuts down the event system, stopping the dispatch goroutine.
// Idempotent and safe to call multiple times.
func Complete(s *Subject) {
	if s == nil {
		return
	}
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return
	}
	close(s.shutdown)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

func (s *Subject) eventLoop() {
	s.wg.Add(1)
	defer s.wg.Done()

	for {
		select {
		case <-s.shutdown:
			return
		case evt := <-s.events:
			subs := s.subscribers.Load()
			if topicSubs, ok := (*subs)[evt.topic]; ok {
				for _, sub := range topicSubs {
					s.deliver(sub, evt)
				}
			}
		}
	}
}

func (s *Subject) deliver(sub Subscription, evt event) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = sub.handler(ctx, evt.message)
	}

	if s.config.syncDelivery {
		run()
	} else {
		go run()
	}
}

func (s *Subject) addSubscription(sub Subscription) {
	for {
		oldSubs := s.subscribers.Load()
		newSubs := copySubscribers(*oldSubs)

		if _, ok := newSubs[sub.Topic]; !ok {
			newSubs[sub.Topic] = make(map[string]Subscription)
		}
		newSubs[sub.Topic][sub.ID] = sub

		if s.subscribers.CompareAndSwap(oldSubs, &newSubs) {
			return
		}
	}
}

func (s *Subject) removeSubscription(topic, subID string) {
	for {
		oldSubs := s.subscribers.Load()
		newSubs := copySubscribers(*oldSubs)

		topicSubs, ok := newSubs[topic]
		if !ok {
			return
		}
		if _, ok := topicSubs[subID]; !ok {
			return
		}
		delete(topicSubs, subID)
		if len(topicSubs) == 0 {
			delete(newSubs, topic)
		}

		if s.subscribers.CompareAndSwap(oldSubs, &newSubs) {
			return
		}
	}
}

func copySubscribers(original subscriberMap) subscriberMap {
	cp := make(subscriberMap, len(original))
	for topic, topicSubs := range original {
		cp[topic] = make(map[string]Subscription, len(topicSubs))
		for id, sub := range topicSubs {
			cp[topic][id] = sub
		}
	}
	return cp
}
