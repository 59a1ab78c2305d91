package sqs

import (
	"encoding/json"
	"fmt"
)

// Serializer converts message payloads to and from their wire representation.
// The rest of the package never inspects the wire format.
type Serializer interface {
	Serialize(v any) (string, error)
	Deserialize(data string, v any) error
}

// JSONSerializer serializes payloads with encoding/json. Strings and byte
// slices pass through unchanged.
type JSONSerializer struct{}

func (JSONSerializer) Serialize(v any) (string, error) {
	switch body := v.(type) {
	case string:
		return body, nil
	case []byte:
		return string(body), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize message body to JSON: %w", err)
	}
	return string(data), nil
}

func (JSONSerializer) Deserialize(data string, v any) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("failed to deserialize message body: %w", err)
	}
	return nil
}
