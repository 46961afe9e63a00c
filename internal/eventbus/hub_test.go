package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/agentrt/pkg/models"
)

func TestSessionSubscriberReceivesOwnTopicOnly(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("sess-1")
	defer cancel()

	h.Publish(models.NewEvent(models.EventAgentResponse, "sess-1", nil))
	h.Publish(models.NewEvent(models.EventAgentResponse, "sess-2", nil))

	select {
	case evt := <-ch:
		assert.Equal(t, "sess-1", evt.SessionID)
	case <-time.After(time.Second):
		t.Fatal("expected event on session topic")
	}

	select {
	case evt := <-ch:
		t.Fatalf("unexpected second event: %+v", evt)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestFirehoseReceivesAllEvents(t *testing.T) {
	h := NewHub(nil)
	fh, cancel := h.SubscribeFirehose()
	defer cancel()

	h.Publish(models.NewEvent(models.EventSessionEnded, "sess-1", nil))
	h.Publish(models.NewEvent(models.EventBudgetWarning, "", nil))

	for i := 0; i < 2; i++ {
		select {
		case <-fh:
		case <-time.After(time.Second):
			t.Fatalf("expected %d events on firehose, missing some", 2)
		}
	}
}

func TestUnsubscribeRemovesListener(t *testing.T) {
	h := NewHub(nil)
	_, cancel := h.Subscribe("sess-1")
	require.Equal(t, 1, h.SessionSubscriberCount("sess-1"))
	cancel()
	assert.Equal(t, 0, h.SessionSubscriberCount("sess-1"))
}

func TestSlowSubscriberIsDroppedNotBlocked(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("sess-1")
	defer cancel()

	for i := 0; i < subscriberBacklog+10; i++ {
		h.Publish(models.NewEvent(models.EventAgentResponse, "sess-1", nil))
	}

	assert.LessOrEqual(t, len(ch), subscriberBacklog)
}

func TestEventWithNoSessionIDOnlyReachesFirehose(t *testing.T) {
	h := NewHub(nil)
	sessCh, cancelSess := h.Subscribe("sess-1")
	defer cancelSess()
	fh, cancelFh := h.SubscribeFirehose()
	defer cancelFh()

	h.Publish(models.NewEvent(models.EventBudgetExceeded, "", nil))

	select {
	case <-fh:
	case <-time.After(time.Second):
		t.Fatal("expected event on firehose")
	}
	select {
	case evt := <-sessCh:
		t.Fatalf("session topic should not receive session-less event: %+v", evt)
	case <-time.After(20 * time.Millisecond):
	}
}
