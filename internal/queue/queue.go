package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	TopicCampaignEvents = "campaign_events"
	TopicTrackingEvents = "tracking_events"
)

// ErrNoSubscribers is returned by the in-memory queue when nobody listens on a topic.
var ErrNoSubscribers = errors.New("no subscribers for topic")

// Queue carries JSON-encoded payloads between publishers and subscribers.
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(body []byte) error) error
}

// InMemoryQueue delivers every message to each subscriber in its own
// goroutine and retries failed handlers with a linear backoff.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(body []byte) error

	MaxRetries int
	RetryDelay time.Duration
	Log        *zap.Logger
}

func NewInMemoryQueue(logger *zap.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]func(body []byte) error),
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
		Log:        logger,
	}
}

type job struct {
	topic      string
	body       []byte
	retryCount int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}

	q.mu.Lock()
	handlers := append([]func(body []byte) error(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("%w %s", ErrNoSubscribers, topic)
	}

	for _, handler := range handlers {
		go q.processJob(handler, job{topic: topic, body: body})
	}
	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(body []byte) error, j job) {
	for {
		err := handler(j.body)
		if err == nil {
			return
		}

		j.retryCount++
		q.log().Warn("queue handler failed",
			zap.String("topic", j.topic),
			zap.Int("attempt", j.retryCount),
			zap.Error(err),
		)
		if j.retryCount > q.MaxRetries {
			q.log().Error("queue message dropped after retries",
				zap.String("topic", j.topic),
				zap.Int("attempts", j.retryCount),
			)
			return
		}
		time.Sleep(time.Duration(j.retryCount) * q.RetryDelay)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(body []byte) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

func (q *InMemoryQueue) log() *zap.Logger {
	if q.Log == nil {
		return zap.NewNop()
	}
	return q.Log
}

var _ Queue = (*InMemoryQueue)(nil)
