package sqs

import (
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Attribute data types understood by the provider.
const (
	DataTypeString = "String"
	DataTypeNumber = "Number"
	DataTypeBinary = "Binary"
)

// MessageAttribute is a tagged union over string, number, and binary values.
// Binary values are copied on construction and on every read, so an
// attribute is effectively immutable regardless of what the caller does with
// the backing slice.
type MessageAttribute struct {
	dataType    string
	stringValue string
	binaryValue []byte
}

// StringAttribute builds a string-typed attribute.
func StringAttribute(value string) MessageAttribute {
	return MessageAttribute{dataType: DataTypeString, stringValue: value}
}

// NumberAttribute builds a number-typed attribute. The provider transports
// numbers as strings.
func NumberAttribute(value string) MessageAttribute {
	return MessageAttribute{dataType: DataTypeNumber, stringValue: value}
}

// IntAttribute builds a number-typed attribute from an integer.
func IntAttribute(value int64) MessageAttribute {
	return NumberAttribute(strconv.FormatInt(value, 10))
}

// BinaryAttribute builds a binary-typed attribute, copying the value.
func BinaryAttribute(value []byte) MessageAttribute {
	copied := make([]byte, len(value))
	copy(copied, value)
	return MessageAttribute{dataType: DataTypeBinary, binaryValue: copied}
}

// DataType reports the attribute's provider data type.
func (a MessageAttribute) DataType() string {
	return a.dataType
}

// StringValue returns the string or number value; empty for binary attributes.
func (a MessageAttribute) StringValue() string {
	return a.stringValue
}

// BinaryValue returns a copy of the binary value; nil for other types.
func (a MessageAttribute) BinaryValue() []byte {
	if a.binaryValue == nil {
		return nil
	}
	copied := make([]byte, len(a.binaryValue))
	copy(copied, a.binaryValue)
	return copied
}

func (a MessageAttribute) toSQS() types.MessageAttributeValue {
	v := types.MessageAttributeValue{DataType: aws.String(a.dataType)}
	if a.dataType == DataTypeBinary {
		v.BinaryValue = a.BinaryValue()
	} else {
		v.StringValue = aws.String(a.stringValue)
	}
	return v
}

func attributeFromSQS(v types.MessageAttributeValue) MessageAttribute {
	dataType := aws.ToString(v.DataType)
	if dataType == DataTypeBinary {
		return BinaryAttribute(v.BinaryValue)
	}
	if dataType == DataTypeNumber {
		return NumberAttribute(aws.ToString(v.StringValue))
	}
	return StringAttribute(aws.ToString(v.StringValue))
}

// SystemAttributes carries the provider's metadata for a received message.
type SystemAttributes struct {
	SentTimestamp         time.Time
	FirstReceiveTimestamp time.Time
	ReceiveCount          int
	SenderID              string
}

// Message is a single received queue message. It stays visible for
// redelivery until deleted, explicitly or by an auto-delete workflow.
type Message struct {
	ID            string
	ReceiptHandle string
	Body          string
	System        SystemAttributes
	Attributes    map[string]MessageAttribute

	serializer Serializer
}

// Bind deserializes the message body into v.
func (m *Message) Bind(v any) error {
	serializer := m.serializer
	if serializer == nil {
		serializer = JSONSerializer{}
	}
	return serializer.Deserialize(m.Body, v)
}

func messageFromSQS(raw types.Message, serializer Serializer) *Message {
	m := &Message{
		ID:            aws.ToString(raw.MessageId),
		ReceiptHandle: aws.ToString(raw.ReceiptHandle),
		Body:          aws.ToString(raw.Body),
		serializer:    serializer,
	}

	if len(raw.MessageAttributes) > 0 {
		m.Attributes = make(map[string]MessageAttribute, len(raw.MessageAttributes))
		for name, value := range raw.MessageAttributes {
			m.Attributes[name] = attributeFromSQS(value)
		}
	}

	if len(raw.Attributes) > 0 {
		m.System = SystemAttributes{
			SentTimestamp:         epochMillis(raw.Attributes[string(types.MessageSystemAttributeNameSentTimestamp)]),
			FirstReceiveTimestamp: epochMillis(raw.Attributes[string(types.MessageSystemAttributeNameApproximateFirstReceiveTimestamp)]),
			SenderID:              raw.Attributes[string(types.MessageSystemAttributeNameSenderId)],
		}
		if count, err := strconv.Atoi(raw.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]); err == nil {
			m.System.ReceiveCount = count
		}
	}

	return m
}

func epochMillis(value string) time.Time {
	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil || millis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}
