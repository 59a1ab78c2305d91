package sqs

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

var (
	// ErrEmptyQueueName is returned when no queue name could be resolved for an operation.
	ErrEmptyQueueName = errors.New("queue name cannot be empty")

	// ErrEmptyReceiptHandle is returned when a delete or visibility change carries a blank receipt handle.
	ErrEmptyReceiptHandle = errors.New("receipt handle cannot be blank")

	// ErrQueueNotFound is returned when a queue cannot be found by name.
	ErrQueueNotFound = errors.New("queue not found")

	// ErrNoMessages is returned by MoveToDeadLetter when the source queue is empty.
	ErrNoMessages = errors.New("no messages available")
)

// ConfigError reports an invalid client declaration or attribute set. It is
// raised at construction or first-call validation, always before any
// provider call.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "sqs configuration error: " + e.Reason
}

func newConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// CallerError reports a missing or invalid argument for a resolved
// operation. It is raised synchronously, before dispatch.
type CallerError struct {
	Op     string
	Reason string
}

func (e *CallerError) Error() string {
	return fmt.Sprintf("invalid %s call: %s", e.Op, e.Reason)
}

func newCallerError(op, format string, args ...any) *CallerError {
	return &CallerError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// ProviderError wraps a provider failure with the operation and queue it
// occurred on. Code carries the provider's own error code when one is
// available.
type ProviderError struct {
	Op    string
	Queue string
	Code  string
	Err   error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s on queue %s failed (%s): %v", e.Op, e.Queue, e.Code, e.Err)
	}
	return fmt.Sprintf("%s on queue %s failed: %v", e.Op, e.Queue, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func newProviderError(op, queue string, err error) *ProviderError {
	var apiErr smithy.APIError
	code := ""
	if errors.As(err, &apiErr) {
		code = apiErr.ErrorCode()
	}
	return &ProviderError{Op: op, Queue: queue, Code: code, Err: err}
}
