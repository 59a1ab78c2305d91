package sqs

import (
	"context"
	"sync/atomic"
	"time"

	"go-queue/pkg/log"
)

// Polling session states. A session moves RUNNING -> STOPPING -> STOPPED;
// no transition skips STOPPING. Once stopped its bookkeeping is removed and
// the queue name may start a fresh session.
const (
	sessionRunning int32 = iota + 1
	sessionStopping
	sessionStopped
)

// pollSession is the per-queue-name polling state: a cooperative stop flag
// and the handle of the background loop.
type pollSession struct {
	queue  string
	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
}

// stop requests cancellation. It returns once the request is made, not once
// the loop has drained.
func (s *pollSession) stop() {
	if s.state.CompareAndSwap(sessionRunning, sessionStopping) {
		s.cancel()
	}
}

// PollOptions overrides the configured receive settings for one session.
type PollOptions struct {
	MaxMessages     int32
	WaitTimeSeconds int32
}

// StartPolling starts one continuous background loop for the queue:
// long-poll receive, process each message synchronously, delete on success.
// Per-message errors are logged and the loop continues; receive errors are
// logged and retried after a fixed backoff. Starting an already-polled
// queue is a no-op with a warning.
func (m *Messenger) StartPolling(queue string, handler Handler, opts *PollOptions) error {
	resolved, err := m.resolveQueue(queue)
	if err != nil {
		return err
	}
	if handler == nil {
		return newCallerError("poll", "handler is required")
	}

	max := m.config.MaxMessages
	wait := m.config.WaitTimeSeconds
	if opts != nil {
		if opts.MaxMessages > 0 {
			max = opts.MaxMessages
		}
		if opts.WaitTimeSeconds > 0 {
			wait = opts.WaitTimeSeconds
		}
	}

	m.mu.Lock()
	if _, active := m.sessions[resolved]; active {
		m.mu.Unlock()
		log.Warnf("polling is already active for queue %s, ignoring start", resolved)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := &pollSession{
		queue:  resolved,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	session.state.Store(sessionRunning)
	m.sessions[resolved] = session
	m.mu.Unlock()

	go m.pollLoop(ctx, session, handler, max, wait)

	log.Infof("started polling queue %s", resolved)
	return nil
}

// StopPolling requests the queue's polling session to stop and removes its
// bookkeeping. Stopping an absent or already-stopped session is a no-op.
// It returns once cancellation is requested, not once the loop has drained.
func (m *Messenger) StopPolling(queue string) {
	resolved, err := m.resolveQueue(queue)
	if err != nil {
		return
	}

	m.mu.Lock()
	session, ok := m.sessions[resolved]
	if ok {
		delete(m.sessions, resolved)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	session.stop()
	log.Infof("stop requested for polling on queue %s", resolved)
}

func (m *Messenger) pollLoop(ctx context.Context, session *pollSession, handler Handler, max, wait int32) {
	defer close(session.done)
	defer session.state.Store(sessionStopped)
	defer m.removeSession(session)

	for {
		if ctx.Err() != nil {
			return
		}

		// A stalled provider call is bounded per iteration, not aborted
		// forcibly; a timed-out iteration is retried after backoff.
		iterCtx, cancel := context.WithTimeout(ctx, m.config.ReceiveTimeout)
		messages, err := m.client.ReceiveMessage(iterCtx, session.queue, max, wait)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorf("polling receive failed on queue %s: %v", session.queue, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.config.RetryBackoff):
			}
			continue
		}

		for _, msg := range messages {
			if ctx.Err() != nil {
				return
			}
			if err := handler.HandleMessage(msg); err != nil {
				log.Errorf("failed to process message %s from queue %s: %v", msg.ID, session.queue, err)
				continue
			}
			if err := m.client.DeleteMessage(ctx, session.queue, msg.ReceiptHandle); err != nil {
				log.Errorf("failed to delete message %s from queue %s: %v", msg.ID, session.queue, err)
			}
		}
	}
}

// removeSession drops the session's bookkeeping unless a newer session has
// already replaced it under the same name.
func (m *Messenger) removeSession(session *pollSession) {
	m.mu.Lock()
	if current, ok := m.sessions[session.queue]; ok && current == session {
		delete(m.sessions, session.queue)
	}
	m.mu.Unlock()
}

// PollingActive reports whether a polling session is registered for the
// queue.
func (m *Messenger) PollingActive(queue string) bool {
	resolved, err := m.resolveQueue(queue)
	if err != nil {
		return false
	}

	m.mu.Lock()
	_, ok := m.sessions[resolved]
	m.mu.Unlock()
	return ok
}
