package sqs

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolling_StartStop(t *testing.T) {
	api := &mockAPI{}
	var receives atomic.Int32
	api.receiveFunc = func(*awssqs.ReceiveMessageInput) (*awssqs.ReceiveMessageOutput, error) {
		receives.Add(1)
		return &awssqs.ReceiveMessageOutput{}, nil
	}
	m := newTestMessenger(api)

	require.NoError(t, m.StartPolling("q", HandlerFunc(func(*Message) error { return nil }), nil))
	assert.True(t, m.PollingActive("q"))

	m.StopPolling("q")
	assert.False(t, m.PollingActive("q"), "stop removes bookkeeping immediately")

	// After stop returns plus one loop-check interval, no further receive
	// may start.
	time.Sleep(50 * time.Millisecond)
	settled := receives.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, receives.Load())
}

func TestPolling_DuplicateStartIsNoop(t *testing.T) {
	api := &mockAPI{}
	m := newTestMessenger(api)
	defer m.StopPolling("q")

	handler := HandlerFunc(func(*Message) error { return nil })
	require.NoError(t, m.StartPolling("q", handler, nil))
	require.NoError(t, m.StartPolling("q", handler, nil), "second start on the same name is a no-op")
	assert.True(t, m.PollingActive("q"))
}

func TestPolling_ProcessesAndDeletes(t *testing.T) {
	api := &mockAPI{}
	var once sync.Once
	api.receiveFunc = func(*awssqs.ReceiveMessageInput) (*awssqs.ReceiveMessageOutput, error) {
		out := &awssqs.ReceiveMessageOutput{}
		once.Do(func() { out = receivedMessages(2) })
		return out, nil
	}
	m := newTestMessenger(api)

	var handled atomic.Int32
	require.NoError(t, m.StartPolling("q", HandlerFunc(func(*Message) error {
		handled.Add(1)
		return nil
	}), nil))
	defer m.StopPolling("q")

	require.Eventually(t, func() bool { return handled.Load() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return api.deletedCount() == 2 }, time.Second, 5*time.Millisecond)
}

func TestPolling_MessageErrorDoesNotStopLoop(t *testing.T) {
	api := &mockAPI{}
	var once sync.Once
	api.receiveFunc = func(*awssqs.ReceiveMessageInput) (*awssqs.ReceiveMessageOutput, error) {
		out := &awssqs.ReceiveMessageOutput{}
		once.Do(func() { out = receivedMessages(2) })
		return out, nil
	}
	m := newTestMessenger(api)

	var handled atomic.Int32
	require.NoError(t, m.StartPolling("q", HandlerFunc(func(msg *Message) error {
		handled.Add(1)
		if msg.ID == "id-0" {
			return errors.New("bad message")
		}
		return nil
	}), nil))
	defer m.StopPolling("q")

	require.Eventually(t, func() bool { return handled.Load() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return api.deletedCount() == 1 }, time.Second, 5*time.Millisecond,
		"only the successfully processed message is deleted")
	assert.True(t, m.PollingActive("q"), "the loop outlives a bad message")
}

func TestPolling_ReceiveErrorRetriesAfterBackoff(t *testing.T) {
	api := &mockAPI{}
	var receives atomic.Int32
	api.receiveFunc = func(*awssqs.ReceiveMessageInput) (*awssqs.ReceiveMessageOutput, error) {
		receives.Add(1)
		return nil, errors.New("transport down")
	}
	m := newTestMessenger(api)

	require.NoError(t, m.StartPolling("q", HandlerFunc(func(*Message) error { return nil }), nil))
	defer m.StopPolling("q")

	require.Eventually(t, func() bool { return receives.Load() >= 3 }, time.Second, 5*time.Millisecond,
		"a failed iteration is retried, the session never dies")
}

func TestPolling_RestartAfterStop(t *testing.T) {
	api := &mockAPI{}
	m := newTestMessenger(api)

	handler := HandlerFunc(func(*Message) error { return nil })
	require.NoError(t, m.StartPolling("q", handler, nil))
	m.StopPolling("q")

	require.NoError(t, m.StartPolling("q", handler, nil), "a stopped name may start a fresh session")
	assert.True(t, m.PollingActive("q"))
	m.StopPolling("q")
}

func TestPolling_StopUnknownQueueIsNoop(t *testing.T) {
	m := newTestMessenger(&mockAPI{})
	m.StopPolling("never-started")
}

func TestPolling_QueueNameIsTrimmed(t *testing.T) {
	m := newTestMessenger(&mockAPI{})

	require.NoError(t, m.StartPolling("  q  ", HandlerFunc(func(*Message) error { return nil }), nil))
	assert.True(t, m.PollingActive("q"), "a padded name resolves to the same session")

	m.StopPolling("q")
	assert.False(t, m.PollingActive("  q  "))
}
