package sqs

import (
	"strconv"
	"strings"
)

// MaxBatchSize is the provider ceiling on entries per send or delete batch
// call. Larger caller lists are chunked before per-chunk validation.
const MaxBatchSize = 10

// BatchEntry is one payload of a batch call, identified by a stable id that
// the provider echoes back in per-entry results.
type BatchEntry struct {
	ID   string
	Body string
}

// BatchEntryResult is the outcome of a single batch entry.
type BatchEntryResult struct {
	ID          string
	MessageID   string
	Code        string
	Message     string
	SenderFault bool
	OK          bool
}

// BatchResult lists the outcome of every entry of a batch call, in the
// original input order.
type BatchResult struct {
	Entries []BatchEntryResult
}

// Successful returns the ids of entries the provider accepted.
func (r *BatchResult) Successful() []string {
	ids := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		if e.OK {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Failed returns the ids of entries the provider rejected.
func (r *BatchResult) Failed() []string {
	ids := make([]string, 0)
	for _, e := range r.Entries {
		if !e.OK {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// validateBatchSize checks an entry count against the given ceiling. The
// allowEmpty policy decides whether zero entries is acceptable.
func validateBatchSize(count, ceiling int, allowEmpty bool) error {
	if count == 0 && !allowEmpty {
		return newCallerError("sendBatch", "payload cannot be empty")
	}
	if ceiling <= 0 || ceiling > MaxBatchSize {
		ceiling = MaxBatchSize
	}
	if count > ceiling {
		return newCallerError("sendBatch", "batch size %d exceeds the ceiling of %d", count, ceiling)
	}
	return nil
}

// buildEntryIDs produces sequential string ids for count entries, or
// validates caller-supplied ids: they must be non-blank, unique, and match
// the payload count.
func buildEntryIDs(count int, custom []string) ([]string, error) {
	if custom == nil {
		ids := make([]string, count)
		for i := range ids {
			ids[i] = strconv.Itoa(i)
		}
		return ids, nil
	}

	if len(custom) != count {
		return nil, newConfigError("custom id count %d does not match payload count %d", len(custom), count)
	}

	seen := make(map[string]struct{}, len(custom))
	for _, id := range custom {
		if strings.TrimSpace(id) == "" {
			return nil, newConfigError("custom batch ids cannot be blank")
		}
		if _, dup := seen[id]; dup {
			return nil, newConfigError("duplicate custom batch id %q", id)
		}
		seen[id] = struct{}{}
	}
	return custom, nil
}

// validateReceiptHandles rejects empty handle lists and blank handles.
func validateReceiptHandles(handles []string) error {
	if len(handles) == 0 {
		return newCallerError("deleteBatch", "receipt handles cannot be empty")
	}
	for _, h := range handles {
		if strings.TrimSpace(h) == "" {
			return ErrEmptyReceiptHandle
		}
	}
	return nil
}

// chunkSlice splits items into chunks of at most size elements, preserving
// order.
func chunkSlice[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = MaxBatchSize
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
