package mqtt

import (
	"strings"
	"sync"
)

// Message is a publish recorded by FakeClient.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// FakeClient records publishes and lets tests deliver messages to subscribers.
type FakeClient struct {
	mu       sync.Mutex
	messages []Message
	handlers map[string]MessageHandler

	// PublishError, if set, is returned by Publish.
	PublishError error
	Closed       bool
}

func NewFakeClient() *FakeClient {
	return &FakeClient{handlers: map[string]MessageHandler{}}
}

func (f *FakeClient) Publish(topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.messages = append(f.messages, Message{Topic: topic, Payload: payload, Retained: retained})
	return nil
}

func (f *FakeClient) Subscribe(filter string, handler MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[filter] = handler
	return nil
}

func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Deliver hands a message to every subscription whose filter matches topic.
// It reports whether any handler was called.
func (f *FakeClient) Deliver(topic string, payload []byte) bool {
	f.mu.Lock()
	var matched []MessageHandler
	for filter, h := range f.handlers {
		if topicMatches(filter, topic) {
			matched = append(matched, h)
		}
	}
	f.mu.Unlock()

	for _, h := range matched {
		h(topic, payload)
	}
	return len(matched) > 0
}

// Messages returns the publishes made so far, optionally only those on topic.
func (f *FakeClient) Messages(topic ...string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []Message{}
	for _, m := range f.messages {
		if len(topic) == 0 || m.Topic == topic[0] {
			out = append(out, m)
		}
	}
	return out
}

func topicMatches(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}
