package sqs

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"go-queue/pkg/log"
	"go-queue/pkg/worker"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
)

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(msg *Message) error

// HandleMessage implements the Handler interface for HandlerFunc.
func (f HandlerFunc) HandleMessage(msg *Message) error {
	return f(msg)
}

// Handler processes a single received queue message.
type Handler interface {
	HandleMessage(msg *Message) error
}

// MaxDelaySeconds is the provider ceiling on a single-send delay.
const MaxDelaySeconds = 900

// Messenger is the queue orchestration service. It owns the shared worker
// pool and the polling-session registry; all provider access goes through
// the low-level Client.
type Messenger struct {
	client     *Client
	serializer Serializer
	config     *Config
	pool       *worker.Pool

	mu       sync.Mutex
	sessions map[string]*pollSession
}

// NewMessenger creates a Messenger over the given provider API. A nil
// config uses the documented defaults.
func NewMessenger(api API, cfg *Config) *Messenger {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	serializer := Serializer(JSONSerializer{})
	return &Messenger{
		client:     NewClient(api, serializer),
		serializer: serializer,
		config:     cfg,
		pool:       worker.NewPool(cfg.PoolSize),
		sessions:   make(map[string]*pollSession),
	}
}

// UseSerializer replaces the payload serializer. Call before any traffic.
func (m *Messenger) UseSerializer(serializer Serializer) {
	if serializer == nil {
		return
	}
	m.serializer = serializer
	m.client.serializer = serializer
}

// Client exposes the low-level queue client for callers that need the
// primitive surface directly.
func (m *Messenger) Client() *Client {
	return m.client
}

// resolveQueue trims the name and applies the configured queue-name prefix.
// Every lookup keyed by queue name goes through here, so a name resolves
// identically no matter which operation carries it. An unresolvable name is
// a terminal validation failure, never defaulted.
func (m *Messenger) resolveQueue(queue string) (string, error) {
	queue = strings.TrimSpace(queue)
	if queue == "" {
		return "", ErrEmptyQueueName
	}
	return m.config.QueuePrefix + queue, nil
}

// submit runs one task on the shared pool and exposes it as a Future.
func (m *Messenger) submit(task func() (any, error)) *Future {
	fut := newFuture()
	if err := m.pool.Submit(func() { fut.complete(task()) }); err != nil {
		fut.complete(nil, err)
	}
	return fut
}

// Send serializes body and sends it as one plain message. The Future
// resolves to the provider-assigned message id.
func (m *Messenger) Send(ctx context.Context, queue string, body any) *Future {
	return m.send(ctx, "send", queue, body, &SendRequest{})
}

// SendWithAttributes sends one message carrying user attributes.
func (m *Messenger) SendWithAttributes(ctx context.Context, queue string, body any, attrs map[string]MessageAttribute) *Future {
	return m.send(ctx, "send", queue, body, &SendRequest{Attributes: attrs})
}

// SendDelayed sends one message that becomes visible after delaySeconds.
func (m *Messenger) SendDelayed(ctx context.Context, queue string, body any, delaySeconds int32) *Future {
	if delaySeconds < 0 || delaySeconds > MaxDelaySeconds {
		return resolvedFuture(nil, newCallerError("send", "delay must be between 0 and %d seconds, got %d", MaxDelaySeconds, delaySeconds))
	}
	return m.send(ctx, "send", queue, body, &SendRequest{DelaySeconds: delaySeconds})
}

// SendFifo sends one message to a FIFO queue. The group id is required; a
// fresh deduplication id is generated when the caller supplies none, and is
// never reused across calls.
func (m *Messenger) SendFifo(ctx context.Context, queue string, body any, groupID, deduplicationID string) *Future {
	if strings.TrimSpace(groupID) == "" {
		return resolvedFuture(nil, newCallerError("send", "fifo send requires a message group id"))
	}
	if deduplicationID == "" {
		deduplicationID = uuid.NewString()
	}
	return m.send(ctx, "send", queue, body, &SendRequest{GroupID: groupID, DeduplicationID: deduplicationID})
}

func (m *Messenger) send(ctx context.Context, op, queue string, body any, req *SendRequest) *Future {
	resolved, err := m.resolveQueue(queue)
	if err != nil {
		return resolvedFuture(nil, err)
	}
	if body == nil {
		return resolvedFuture(nil, newCallerError(op, "message body is required"))
	}

	serialized, err := m.serializer.Serialize(body)
	if err != nil {
		return resolvedFuture(nil, err)
	}
	req.Body = serialized

	return m.submit(func() (any, error) {
		return m.client.SendMessage(ctx, resolved, req)
	})
}

// SendBatch sends payloads to a queue. Lists above the configured ceiling
// are split into ceiling-sized chunks submitted concurrently; the final
// result preserves the original input order regardless of chunk completion
// order. Custom ids, when non-nil, must be unique, non-blank, and match the
// payload count; otherwise sequential ids are assigned.
func (m *Messenger) SendBatch(ctx context.Context, queue string, payloads []any, ids []string) *Future {
	return m.sendBatch(ctx, queue, payloads, ids, m.config.BatchSize)
}

func (m *Messenger) sendBatch(ctx context.Context, queue string, payloads []any, ids []string, ceiling int) *Future {
	if ceiling <= 0 || ceiling > MaxBatchSize {
		ceiling = m.config.BatchSize
	}

	resolved, err := m.resolveQueue(queue)
	if err != nil {
		return resolvedFuture(nil, err)
	}
	if len(payloads) == 0 {
		return resolvedFuture(nil, newCallerError("sendBatch", "payload cannot be empty"))
	}

	entryIDs, err := buildEntryIDs(len(payloads), ids)
	if err != nil {
		return resolvedFuture(nil, err)
	}

	entries := make([]BatchEntry, len(payloads))
	for i, payload := range payloads {
		if payload == nil {
			return resolvedFuture(nil, newCallerError("sendBatch", "payload element %d is nil", i))
		}
		body, err := m.serializer.Serialize(payload)
		if err != nil {
			return resolvedFuture(nil, err)
		}
		entries[i] = BatchEntry{ID: entryIDs[i], Body: body}
	}

	chunks := chunkSlice(entries, ceiling)
	for _, chunk := range chunks {
		if err := validateBatchSize(len(chunk), ceiling, false); err != nil {
			return resolvedFuture(nil, err)
		}
	}

	if len(chunks) == 1 {
		return m.submit(func() (any, error) {
			return m.client.SendMessageBatch(ctx, resolved, chunks[0])
		})
	}

	fut := newFuture()
	go func() {
		results := make([]*BatchResult, len(chunks))
		errs := make([]error, len(chunks))
		var wg sync.WaitGroup

		for i, chunk := range chunks {
			wg.Add(1)
			i, chunk := i, chunk
			submitErr := m.pool.Submit(func() {
				defer wg.Done()
				results[i], errs[i] = m.client.SendMessageBatch(ctx, resolved, chunk)
			})
			if submitErr != nil {
				errs[i] = submitErr
				wg.Done()
			}
		}
		wg.Wait()

		if err := errors.Join(errs...); err != nil {
			fut.complete(nil, err)
			return
		}

		combined := &BatchResult{Entries: make([]BatchEntryResult, 0, len(entries))}
		for _, result := range results {
			combined.Entries = append(combined.Entries, result.Entries...)
		}
		fut.complete(combined, nil)
	}()
	return fut
}

// ReceiveAndDelete receives up to max messages and hands each to the
// handler; a message is deleted only when its handler returns nil. One
// message's failure is logged, leaves it eligible for redelivery, and never
// affects its siblings. The Future resolves to the number of messages
// processed and deleted.
func (m *Messenger) ReceiveAndDelete(ctx context.Context, queue string, max int32, handler Handler) *Future {
	return m.receiveAndDelete(ctx, queue, max, 0, handler)
}

// receiveAndDelete is ReceiveAndDelete with a per-call receive wait; a wait
// of zero or less falls back to the configured default.
func (m *Messenger) receiveAndDelete(ctx context.Context, queue string, max, wait int32, handler Handler) *Future {
	resolved, err := m.resolveQueue(queue)
	if err != nil {
		return resolvedFuture(nil, err)
	}
	if handler == nil {
		return resolvedFuture(nil, newCallerError("receive", "handler is required"))
	}
	if max <= 0 {
		max = m.config.MaxMessages
	}
	if wait <= 0 {
		wait = m.config.WaitTimeSeconds
	}

	return m.submit(func() (any, error) {
		messages, err := m.client.ReceiveMessage(ctx, resolved, max, wait)
		if err != nil {
			return 0, err
		}

		processed := 0
		for _, msg := range messages {
			if err := handler.HandleMessage(msg); err != nil {
				log.Errorf("failed to process message %s from queue %s: %v", msg.ID, resolved, err)
				continue
			}
			if err := m.client.DeleteMessage(ctx, resolved, msg.ReceiptHandle); err != nil {
				log.Errorf("failed to delete message %s from queue %s: %v", msg.ID, resolved, err)
				continue
			}
			processed++
		}
		return processed, nil
	})
}

// ReceiveAndProcess receives up to max messages and processes them
// concurrently on the shared pool without deleting any of them. Handler
// failures are aggregated into one error; a failure does not cancel
// already-started siblings.
func (m *Messenger) ReceiveAndProcess(ctx context.Context, queue string, max int32, handler Handler) *Future {
	return m.receiveAndProcess(ctx, queue, max, 0, handler)
}

// receiveAndProcess is ReceiveAndProcess with a per-call receive wait; a
// wait of zero or less falls back to the configured default.
func (m *Messenger) receiveAndProcess(ctx context.Context, queue string, max, wait int32, handler Handler) *Future {
	resolved, err := m.resolveQueue(queue)
	if err != nil {
		return resolvedFuture(nil, err)
	}
	if handler == nil {
		return resolvedFuture(nil, newCallerError("receive", "handler is required"))
	}
	if max <= 0 {
		max = m.config.MaxMessages
	}
	if wait <= 0 {
		wait = m.config.WaitTimeSeconds
	}

	fut := newFuture()
	go func() {
		messages, err := m.client.ReceiveMessage(ctx, resolved, max, wait)
		if err != nil {
			fut.complete(0, err)
			return
		}

		errs := make([]error, len(messages))
		var wg sync.WaitGroup
		for i, msg := range messages {
			wg.Add(1)
			i, msg := i, msg
			submitErr := m.pool.Submit(func() {
				defer wg.Done()
				errs[i] = handler.HandleMessage(msg)
			})
			if submitErr != nil {
				errs[i] = submitErr
				wg.Done()
			}
		}
		wg.Wait()

		fut.complete(len(messages), errors.Join(errs...))
	}()
	return fut
}

// DeleteBatch deletes messages by receipt handle, chunking lists above the
// provider ceiling. Per-entry outcomes are reported in input order.
func (m *Messenger) DeleteBatch(ctx context.Context, queue string, receiptHandles []string) (*BatchResult, error) {
	resolved, err := m.resolveQueue(queue)
	if err != nil {
		return nil, err
	}
	if err := validateReceiptHandles(receiptHandles); err != nil {
		return nil, err
	}

	combined := &BatchResult{Entries: make([]BatchEntryResult, 0, len(receiptHandles))}
	for _, chunk := range chunkSlice(receiptHandles, m.config.BatchSize) {
		result, err := m.client.DeleteMessageBatch(ctx, resolved, chunk)
		if err != nil {
			return nil, err
		}
		combined.Entries = append(combined.Entries, result.Entries...)
	}
	return combined, nil
}

// ChangeVisibility resets the visibility timeout of one received message.
func (m *Messenger) ChangeVisibility(ctx context.Context, queue, receiptHandle string, timeoutSeconds int32) error {
	resolved, err := m.resolveQueue(queue)
	if err != nil {
		return err
	}
	return m.client.ChangeMessageVisibility(ctx, resolved, receiptHandle, timeoutSeconds)
}

// MoveToDeadLetter receives one message from src, forwards its body to dst,
// then deletes it from src by the original receipt handle. The two queues
// are not updated atomically: a crash between send and delete leaves the
// message in both.
func (m *Messenger) MoveToDeadLetter(ctx context.Context, src, dst string) error {
	srcResolved, err := m.resolveQueue(src)
	if err != nil {
		return err
	}
	dstResolved, err := m.resolveQueue(dst)
	if err != nil {
		return err
	}

	messages, err := m.client.ReceiveMessage(ctx, srcResolved, 1, 0)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return ErrNoMessages
	}

	msg := messages[0]
	if _, err := m.client.SendMessage(ctx, dstResolved, &SendRequest{Body: msg.Body}); err != nil {
		return err
	}
	return m.client.DeleteMessage(ctx, srcResolved, msg.ReceiptHandle)
}

// CreateQueue creates a queue with the given attributes, or the default
// attribute preset when attrs is empty.
func (m *Messenger) CreateQueue(ctx context.Context, queue string, attrs map[string]string) error {
	resolved, err := m.resolveQueue(queue)
	if err != nil {
		return err
	}
	return m.client.CreateQueue(ctx, resolved, attrs)
}

// DeleteQueue deletes a queue by name.
func (m *Messenger) DeleteQueue(ctx context.Context, queue string) error {
	resolved, err := m.resolveQueue(queue)
	if err != nil {
		return err
	}
	return m.client.DeleteQueue(ctx, resolved)
}

// QueueExists reports whether the queue exists.
func (m *Messenger) QueueExists(ctx context.Context, queue string) (bool, error) {
	resolved, err := m.resolveQueue(queue)
	if err != nil {
		return false, err
	}
	return m.client.QueueExists(ctx, resolved)
}

// QueueSize probes the approximate number of visible messages on the queue.
func (m *Messenger) QueueSize(ctx context.Context, queue string) (int, error) {
	resolved, err := m.resolveQueue(queue)
	if err != nil {
		return 0, err
	}

	attrs, err := m.client.GetQueueAttributes(ctx, resolved, types.QueueAttributeNameApproximateNumberOfMessages)
	if err != nil {
		return 0, err
	}

	size, err := strconv.Atoi(attrs[string(types.QueueAttributeNameApproximateNumberOfMessages)])
	if err != nil {
		return 0, newProviderError("getQueueAttributes", resolved, err)
	}
	return size, nil
}

// Purge drains the queue by repeated receive-and-delete cycles until a
// receive comes back empty. Messages hidden by a visibility timeout during
// the purge survive it; this is not an atomic purge.
func (m *Messenger) Purge(ctx context.Context, queue string) error {
	resolved, err := m.resolveQueue(queue)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		messages, err := m.client.ReceiveMessage(ctx, resolved, MaxBatchSize, 0)
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}

		handles := make([]string, len(messages))
		for i, msg := range messages {
			handles[i] = msg.ReceiptHandle
		}
		if _, err := m.client.DeleteMessageBatch(ctx, resolved, handles); err != nil {
			return err
		}
	}
}

// Shutdown requests every active polling session to stop, then drains the
// worker pool within the context deadline.
func (m *Messenger) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*pollSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*pollSession)
	m.mu.Unlock()

	for _, s := range sessions {
		s.stop()
	}
	return m.pool.Shutdown(ctx)
}
