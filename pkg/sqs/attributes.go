package sqs

import (
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Provider limits for numeric queue attributes, in seconds or bytes.
type attributeRange struct {
	min int64
	max int64
}

var numericQueueAttributes = map[string]attributeRange{
	string(types.QueueAttributeNameDelaySeconds):                  {0, 900},
	string(types.QueueAttributeNameMaximumMessageSize):            {1024, 262144},
	string(types.QueueAttributeNameMessageRetentionPeriod):        {60, 1209600},
	string(types.QueueAttributeNameReceiveMessageWaitTimeSeconds): {0, 20},
	string(types.QueueAttributeNameVisibilityTimeout):             {0, 43200},
}

var textQueueAttributes = map[string]struct{}{
	string(types.QueueAttributeNamePolicy):        {},
	string(types.QueueAttributeNameRedrivePolicy): {},
}

var booleanQueueAttributes = map[string]struct{}{
	string(types.QueueAttributeNameFifoQueue):                 {},
	string(types.QueueAttributeNameContentBasedDeduplication): {},
}

// TranslateQueueAttributes validates a string-keyed attribute map against
// the provider's attribute set. An unrecognized key is a hard error, never
// silently dropped. Numeric attributes are range-checked; policy documents
// only need to be non-blank.
func TranslateQueueAttributes(attrs map[string]string) (map[string]string, error) {
	if len(attrs) == 0 {
		return map[string]string{}, nil
	}

	translated := make(map[string]string, len(attrs))
	for key, value := range attrs {
		if bounds, ok := numericQueueAttributes[key]; ok {
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, newConfigError("queue attribute %s must be numeric, got %q", key, value)
			}
			if n < bounds.min || n > bounds.max {
				return nil, newConfigError("queue attribute %s must be between %d and %d, got %d", key, bounds.min, bounds.max, n)
			}
			translated[key] = value
			continue
		}

		if _, ok := textQueueAttributes[key]; ok {
			if strings.TrimSpace(value) == "" {
				return nil, newConfigError("queue attribute %s cannot be blank", key)
			}
			translated[key] = value
			continue
		}

		if _, ok := booleanQueueAttributes[key]; ok {
			if value != "true" && value != "false" {
				return nil, newConfigError("queue attribute %s must be true or false, got %q", key, value)
			}
			translated[key] = value
			continue
		}

		return nil, newConfigError("unknown queue attribute %q", key)
	}

	return translated, nil
}

// DefaultQueueAttributes returns the attribute preset applied when creating
// a queue without explicit attributes.
func DefaultQueueAttributes() map[string]string {
	return map[string]string{
		string(types.QueueAttributeNameVisibilityTimeout):      "30",
		string(types.QueueAttributeNameMessageRetentionPeriod): "345600",
	}
}

// LongPollingQueueAttributes returns the attribute preset enabling long
// polling with the given receive wait.
func LongPollingQueueAttributes(waitSeconds int32) (map[string]string, error) {
	attrs := DefaultQueueAttributes()
	attrs[string(types.QueueAttributeNameReceiveMessageWaitTimeSeconds)] = strconv.Itoa(int(waitSeconds))
	return TranslateQueueAttributes(attrs)
}
