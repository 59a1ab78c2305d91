package sqs

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// OperationKind identifies the four declarative operation kinds.
type OperationKind int

const (
	OperationUnknown OperationKind = iota
	OperationSend
	OperationSendBatch
	OperationReceive
	OperationPoll
)

func (k OperationKind) String() string {
	switch k {
	case OperationSend:
		return "send"
	case OperationSendBatch:
		return "sendBatch"
	case OperationReceive:
		return "receive"
	case OperationPoll:
		return "poll"
	default:
		return "unknown"
	}
}

var operationKinds = map[string]OperationKind{
	"send":      OperationSend,
	"sendBatch": OperationSendBatch,
	"receive":   OperationReceive,
	"poll":      OperationPoll,
}

// Descriptor is the static per-operation configuration resolved once at
// client construction and reused on every call.
type Descriptor struct {
	Kind            OperationKind
	Queue           string
	DelaySeconds    int32
	Fifo            bool
	MaxMessages     int32
	AutoDelete      bool
	WaitTimeSeconds int32
	BatchSize       int
}

// parseDescriptor parses an operation tag of the form
// "kind,key=value,flag,...". Field is the declared field name, used for
// error context only.
func parseDescriptor(field, tag string) (*Descriptor, error) {
	parts := strings.Split(tag, ",")
	kind, ok := operationKinds[strings.TrimSpace(parts[0])]
	if !ok {
		return nil, newConfigError("field %s declares unrecognized operation kind %q", field, parts[0])
	}

	desc := &Descriptor{Kind: kind}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, hasValue := strings.Cut(part, "=")
		switch key {
		case "queue":
			desc.Queue = value
		case "fifo":
			desc.Fifo = true
		case "autoDelete":
			desc.AutoDelete = true
		case "delay", "maxMessages", "waitTime", "batchSize":
			if !hasValue {
				return nil, newConfigError("field %s setting %q requires a value", field, key)
			}
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, newConfigError("field %s setting %q must be a non-negative integer, got %q", field, key, value)
			}
			switch key {
			case "delay":
				desc.DelaySeconds = int32(n)
			case "maxMessages":
				desc.MaxMessages = int32(n)
			case "waitTime":
				desc.WaitTimeSeconds = int32(n)
			case "batchSize":
				desc.BatchSize = n
			}
		default:
			return nil, newConfigError("field %s has unknown setting %q", field, key)
		}
	}

	if err := desc.validate(field); err != nil {
		return nil, err
	}
	return desc, nil
}

func (d *Descriptor) validate(field string) error {
	if d.DelaySeconds > MaxDelaySeconds {
		return newConfigError("field %s delay %d exceeds the ceiling of %d seconds", field, d.DelaySeconds, MaxDelaySeconds)
	}
	if d.WaitTimeSeconds > 20 {
		return newConfigError("field %s waitTime %d exceeds the ceiling of 20 seconds", field, d.WaitTimeSeconds)
	}
	if d.MaxMessages > 10 {
		return newConfigError("field %s maxMessages %d exceeds the ceiling of 10", field, d.MaxMessages)
	}
	if d.BatchSize > MaxBatchSize {
		return newConfigError("field %s batchSize %d exceeds the ceiling of %d", field, d.BatchSize, MaxBatchSize)
	}
	if d.Kind != OperationSend && (d.Fifo || d.DelaySeconds > 0) {
		return newConfigError("field %s: fifo and delay apply only to send operations", field)
	}
	if d.Kind != OperationReceive && d.Kind != OperationPoll && (d.MaxMessages > 0 || d.WaitTimeSeconds > 0) {
		return newConfigError("field %s: maxMessages and waitTime apply only to receive and poll operations", field)
	}
	if d.Kind != OperationSendBatch && d.BatchSize > 0 {
		return newConfigError("field %s: batchSize applies only to sendBatch operations", field)
	}
	return nil
}

// Parameter roles bindable from a params tag.
type paramRole int

const (
	roleNone paramRole = iota
	roleQueue
	roleBody
	roleGroup
	roleDedup
	roleAttrs
	roleMax
	roleHandler
)

var paramRoles = map[string]paramRole{
	"queue":   roleQueue,
	"body":    roleBody,
	"group":   roleGroup,
	"dedup":   roleDedup,
	"attrs":   roleAttrs,
	"max":     roleMax,
	"handler": roleHandler,
}

// parseParamRoles parses a params tag ("body,group,..."). An empty tag
// returns nil, meaning roles are inferred from parameter types.
func parseParamRoles(field, tag string) ([]paramRole, error) {
	if tag == "" {
		return nil, nil
	}

	parts := strings.Split(tag, ",")
	roles := make([]paramRole, len(parts))
	for i, part := range parts {
		role, ok := paramRoles[strings.TrimSpace(part)]
		if !ok {
			return nil, newConfigError("field %s declares unknown parameter role %q", field, part)
		}
		roles[i] = role
	}
	return roles, nil
}

// ClientBase marks a struct as a declarative queue client and carries its
// reflective identity. Identity queries never touch the network; equality
// between clients is pointer identity.
type ClientBase struct {
	name string
}

func (b *ClientBase) setName(name string) {
	b.name = name
}

// Name returns the client's declared name.
func (b *ClientBase) Name() string {
	return b.name
}

// String returns a stable display string for the client.
func (b *ClientBase) String() string {
	return fmt.Sprintf("queue client %q", b.name)
}

// Hash returns a stable hash derived from the declared client name.
func (b *ClientBase) Hash() uint32 {
	h := fnv.New32a()
	h.Write([]byte(b.name))
	return h.Sum32()
}
