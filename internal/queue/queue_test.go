package queue

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishWithoutSubscribers(t *testing.T) {
	q := NewInMemoryQueue(zap.NewNop())
	err := q.Publish(TopicCampaignEvents, CampaignEvent{CampaignID: "c1"})
	assert.ErrorIs(t, err, ErrNoSubscribers)
}

func TestPublishDeliversJSON(t *testing.T) {
	q := NewInMemoryQueue(zap.NewNop())
	got := make(chan CampaignEvent, 1)
	require.NoError(t, q.Subscribe(TopicCampaignEvents, func(body []byte) error {
		var ev CampaignEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return err
		}
		got <- ev
		return nil
	}))

	require.NoError(t, q.Publish(TopicCampaignEvents, CampaignEvent{Type: "campaign.sent", CampaignID: "c1"}))

	select {
	case ev := <-got:
		assert.Equal(t, "c1", ev.CampaignID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestFailedHandlerIsRetried(t *testing.T) {
	q := NewInMemoryQueue(zap.NewNop())
	q.RetryDelay = time.Millisecond

	var calls int32
	done := make(chan struct{})
	require.NoError(t, q.Subscribe(TopicTrackingEvents, func([]byte) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}))
	require.NoError(t, q.Publish(TopicTrackingEvents, TrackingEvent{CampaignID: "c1"}))

	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(time.Second):
		t.Fatal("handler was not retried")
	}
}
