package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/graph-explorer/pkg/logging"
)

// TopicConfig configures buffering behavior for a topic
type TopicConfig struct {
	BufferSize int  // Number of events to buffer (0 = no buffering)
	ReplayAll  bool // If true, replay all buffered events; if false, only replay last event
}

// SSEPublisher implements Publisher using Server-Sent Events
type SSEPublisher struct {
	mu            sync.RWMutex
	subscriptions map[string]map[*sseSubscription]bool // topic -> set of subscriptions
	version       map[string]int                       // topic -> version counter
	eventBuffer   map[string][]Event                   // topic -> ring buffer of events
	topicConfig   map[string]TopicConfig               // topic -> configuration
	defaultConfig TopicConfig                          // for topics without their own configuration
	recorder      Recorder
	subscribers   int
	closed        bool
}

// NewSSEPublisher creates a new SSE-based publisher
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{
		subscriptions: make(map[string]map[*sseSubscription]bool),
		version:       make(map[string]int),
		eventBuffer:   make(map[string][]Event),
		topicConfig:   make(map[string]TopicConfig),
	}
}

// SetRecorder installs a recorder for published events and subscriber counts
func (p *SSEPublisher) SetRecorder(r Recorder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recorder = r
}

// ConfigureTopic sets buffering configuration for a topic
func (p *SSEPublisher) ConfigureTopic(topic string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topicConfig[topic] = config
}

// ConfigureDefault sets the buffering of topics that were not configured,
// such as the per-session topics created on demand.
func (p *SSEPublisher) ConfigureDefault(config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defaultConfig = config
}

func (p *SSEPublisher) configFor(topic string) TopicConfig {
	if config, ok := p.topicConfig[topic]; ok {
		return config
	}
	return p.defaultConfig
}

// setSubscribers must be called with p.mu held
func (p *SSEPublisher) setSubscribers(delta int) {
	p.subscribers += delta
	if p.recorder != nil {
		p.recorder.SetSubscribers(p.subscribers)
	}
}

// Subscribe creates a new subscription to a topic
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("publisher is closed")
	}

	// Create subscription
	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, 100), // Buffered to prevent blocking publishers
		publisher: p,
	}

	// Register subscription
	if p.subscriptions[topic] == nil {
		p.subscriptions[topic] = make(map[*sseSubscription]bool)
	}
	p.subscriptions[topic][sub] = true
	p.setSubscribers(1)

	// Replay while holding the lock so a concurrent Publish cannot slip in
	// ahead of the buffered events
	config := p.configFor(topic)
	eventsToReplay := p.eventBuffer[topic]
	if !config.ReplayAll && len(eventsToReplay) > 0 {
		eventsToReplay = eventsToReplay[len(eventsToReplay)-1:]
	}
	for _, event := range eventsToReplay {
		select {
		case sub.events <- event:
		default:
			logging.Warn("could not replay event to new subscriber", "topic", topic)
		}
	}
	p.mu.Unlock()

	if len(eventsToReplay) > 0 {
		logging.Debug("replayed events to new subscriber", "topic", topic, "count", len(eventsToReplay))
	}

	// Handle context cancellation
	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// Publish sends an event to all subscribers of a topic
func (p *SSEPublisher) Publish(topic string, eventType string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	// Marshal data to JSON
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	// Increment version for this topic
	p.version[topic]++
	event := Event{
		Topic:   topic,
		Type:    eventType,
		Data:    jsonData,
		Version: p.version[topic],
	}

	// Add to buffer if configured
	config := p.configFor(topic)
	if config.BufferSize > 0 {
		buffer := append(p.eventBuffer[topic], event)

		// Trim buffer to configured size (keep most recent events)
		if len(buffer) > config.BufferSize {
			buffer = buffer[len(buffer)-config.BufferSize:]
		}
		p.eventBuffer[topic] = buffer
	}

	// Send to all subscribers (non-blocking)
	for sub := range p.subscriptions[topic] {
		select {
		case sub.events <- event:
		default:
			logging.Warn("subscription channel full, dropping event", "topic", topic, "type", eventType)
		}
	}

	if p.recorder != nil {
		p.recorder.RecordEvent(eventType)
	}
	return nil
}

// RemoveTopic closes every subscription to a topic and forgets its buffer
// and version counter
func (p *SSEPublisher) RemoveTopic(topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for sub := range p.subscriptions[topic] {
		sub.markClosed()
		close(sub.events)
		p.setSubscribers(-1)
	}
	delete(p.subscriptions, topic)
	delete(p.eventBuffer, topic)
	delete(p.version, topic)
	delete(p.topicConfig, topic)
}

// Close shuts down the publisher and all subscriptions
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true

	// Close all subscriptions
	for _, subs := range p.subscriptions {
		for sub := range subs {
			sub.markClosed()
			close(sub.events)
			p.setSubscribers(-1)
		}
	}

	// Clear subscriptions
	p.subscriptions = make(map[string]map[*sseSubscription]bool)

	return nil
}

// unsubscribe removes a subscription (called by subscription.Close())
func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if subs := p.subscriptions[sub.topic]; subs != nil && subs[sub] {
		delete(subs, sub)
		p.setSubscribers(-1)
		if len(subs) == 0 {
			delete(p.subscriptions, sub.topic)
		}
	}
}

// sseSubscription implements Subscription
type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	closed    bool
	mu        sync.Mutex
}

// Topic returns the subscription topic
func (s *sseSubscription) Topic() string {
	return s.topic
}

// Events returns a channel for receiving events. The channel is closed when
// the publisher or the topic goes away.
func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// markClosed reports whether the subscription was open
func (s *sseSubscription) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasOpen := !s.closed
	s.closed = true
	return wasOpen
}

// Close closes the subscription
func (s *sseSubscription) Close() error {
	if s.markClosed() {
		s.publisher.unsubscribe(s)
	}
	return nil
}

// WriteSSE writes an event to an SSE response writer
// Format: "id: {version}\nevent: {type}\ndata: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Version, event.Type, jsonData)
	return err
}
