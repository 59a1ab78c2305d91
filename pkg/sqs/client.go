package sqs

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SendRequest carries everything a single send needs beyond the queue name.
type SendRequest struct {
	Body            string
	DelaySeconds    int32
	Attributes      map[string]MessageAttribute
	GroupID         string
	DeduplicationID string
}

// Client is the low-level queue client: a minimal primitive surface over the
// provider API with queue-name to URL translation and nothing else. All
// higher-level behavior lives in the Messenger.
type Client struct {
	api        API
	serializer Serializer
	urls       sync.Map // queue name -> URL
}

// NewClient creates a Client over the given provider API. Received message
// bodies deserialize through the given serializer.
func NewClient(api API, serializer Serializer) *Client {
	if serializer == nil {
		serializer = JSONSerializer{}
	}
	return &Client{api: api, serializer: serializer}
}

// queueURL resolves and caches the URL for a queue name.
func (c *Client) queueURL(ctx context.Context, queueName string) (string, error) {
	if cached, ok := c.urls.Load(queueName); ok {
		return cached.(string), nil
	}

	out, err := c.api.GetQueueUrl(ctx, &awssqs.GetQueueUrlInput{QueueName: aws.String(queueName)})
	if err != nil {
		return "", newProviderError("getQueueUrl", queueName, err)
	}

	url := aws.ToString(out.QueueUrl)
	c.urls.Store(queueName, url)
	return url, nil
}

// SendMessage sends one message and returns the provider-assigned message id.
func (c *Client) SendMessage(ctx context.Context, queueName string, req *SendRequest) (string, error) {
	url, err := c.queueURL(ctx, queueName)
	if err != nil {
		return "", err
	}

	input := &awssqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String(req.Body),
	}
	if req.DelaySeconds > 0 {
		input.DelaySeconds = req.DelaySeconds
	}
	if len(req.Attributes) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(req.Attributes))
		for name, attr := range req.Attributes {
			input.MessageAttributes[name] = attr.toSQS()
		}
	}
	if req.GroupID != "" {
		input.MessageGroupId = aws.String(req.GroupID)
	}
	if req.DeduplicationID != "" {
		input.MessageDeduplicationId = aws.String(req.DeduplicationID)
	}

	out, err := c.api.SendMessage(ctx, input)
	if err != nil {
		return "", newProviderError("send", queueName, err)
	}
	return aws.ToString(out.MessageId), nil
}

// SendMessageBatch sends up to MaxBatchSize entries in one provider call and
// reports per-entry outcomes in entry order.
func (c *Client) SendMessageBatch(ctx context.Context, queueName string, entries []BatchEntry) (*BatchResult, error) {
	if len(entries) > MaxBatchSize {
		return nil, newCallerError("sendBatch", "batch size %d exceeds the ceiling of %d", len(entries), MaxBatchSize)
	}

	url, err := c.queueURL(ctx, queueName)
	if err != nil {
		return nil, err
	}

	request := make([]types.SendMessageBatchRequestEntry, len(entries))
	for i, entry := range entries {
		request[i] = types.SendMessageBatchRequestEntry{
			Id:          aws.String(entry.ID),
			MessageBody: aws.String(entry.Body),
		}
	}

	out, err := c.api.SendMessageBatch(ctx, &awssqs.SendMessageBatchInput{
		QueueUrl: aws.String(url),
		Entries:  request,
	})
	if err != nil {
		return nil, newProviderError("sendBatch", queueName, err)
	}

	byID := make(map[string]BatchEntryResult, len(entries))
	for _, ok := range out.Successful {
		byID[aws.ToString(ok.Id)] = BatchEntryResult{
			ID:        aws.ToString(ok.Id),
			MessageID: aws.ToString(ok.MessageId),
			OK:        true,
		}
	}
	for _, failed := range out.Failed {
		byID[aws.ToString(failed.Id)] = BatchEntryResult{
			ID:          aws.ToString(failed.Id),
			Code:        aws.ToString(failed.Code),
			Message:     aws.ToString(failed.Message),
			SenderFault: failed.SenderFault,
		}
	}

	result := &BatchResult{Entries: make([]BatchEntryResult, len(entries))}
	for i, entry := range entries {
		result.Entries[i] = byID[entry.ID]
	}
	return result, nil
}

// ReceiveMessage receives up to max messages, waiting up to waitSeconds for
// one to arrive.
func (c *Client) ReceiveMessage(ctx context.Context, queueName string, max, waitSeconds int32) ([]*Message, error) {
	url, err := c.queueURL(ctx, queueName)
	if err != nil {
		return nil, err
	}

	out, err := c.api.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(url),
		MaxNumberOfMessages: max,
		WaitTimeSeconds:     waitSeconds,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameSentTimestamp,
			types.MessageSystemAttributeNameApproximateFirstReceiveTimestamp,
			types.MessageSystemAttributeNameApproximateReceiveCount,
			types.MessageSystemAttributeNameSenderId,
		},
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return nil, newProviderError("receive", queueName, err)
	}

	messages := make([]*Message, len(out.Messages))
	for i, raw := range out.Messages {
		messages[i] = messageFromSQS(raw, c.serializer)
	}
	return messages, nil
}

// DeleteMessage deletes one message by its receipt handle.
func (c *Client) DeleteMessage(ctx context.Context, queueName, receiptHandle string) error {
	if strings.TrimSpace(receiptHandle) == "" {
		return ErrEmptyReceiptHandle
	}

	url, err := c.queueURL(ctx, queueName)
	if err != nil {
		return err
	}

	_, err = c.api.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(url),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return newProviderError("delete", queueName, err)
	}
	return nil
}

// DeleteMessageBatch deletes up to MaxBatchSize messages in one provider
// call and reports per-entry outcomes in entry order.
func (c *Client) DeleteMessageBatch(ctx context.Context, queueName string, receiptHandles []string) (*BatchResult, error) {
	if err := validateReceiptHandles(receiptHandles); err != nil {
		return nil, err
	}
	if len(receiptHandles) > MaxBatchSize {
		return nil, newCallerError("deleteBatch", "batch size %d exceeds the ceiling of %d", len(receiptHandles), MaxBatchSize)
	}

	url, err := c.queueURL(ctx, queueName)
	if err != nil {
		return nil, err
	}

	ids, _ := buildEntryIDs(len(receiptHandles), nil)
	request := make([]types.DeleteMessageBatchRequestEntry, len(receiptHandles))
	for i, handle := range receiptHandles {
		request[i] = types.DeleteMessageBatchRequestEntry{
			Id:            aws.String(ids[i]),
			ReceiptHandle: aws.String(handle),
		}
	}

	out, err := c.api.DeleteMessageBatch(ctx, &awssqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(url),
		Entries:  request,
	})
	if err != nil {
		return nil, newProviderError("deleteBatch", queueName, err)
	}

	byID := make(map[string]BatchEntryResult, len(ids))
	for _, ok := range out.Successful {
		byID[aws.ToString(ok.Id)] = BatchEntryResult{ID: aws.ToString(ok.Id), OK: true}
	}
	for _, failed := range out.Failed {
		byID[aws.ToString(failed.Id)] = BatchEntryResult{
			ID:          aws.ToString(failed.Id),
			Code:        aws.ToString(failed.Code),
			Message:     aws.ToString(failed.Message),
			SenderFault: failed.SenderFault,
		}
	}

	result := &BatchResult{Entries: make([]BatchEntryResult, len(ids))}
	for i, id := range ids {
		result.Entries[i] = byID[id]
	}
	return result, nil
}

// ChangeMessageVisibility resets the visibility timeout of a received
// message.
func (c *Client) ChangeMessageVisibility(ctx context.Context, queueName, receiptHandle string, timeoutSeconds int32) error {
	if strings.TrimSpace(receiptHandle) == "" {
		return ErrEmptyReceiptHandle
	}

	url, err := c.queueURL(ctx, queueName)
	if err != nil {
		return err
	}

	_, err = c.api.ChangeMessageVisibility(ctx, &awssqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(url),
		ReceiptHandle:     aws.String(receiptHandle),
		VisibilityTimeout: timeoutSeconds,
	})
	if err != nil {
		return newProviderError("changeVisibility", queueName, err)
	}
	return nil
}

// CreateQueue creates a queue with the given validated attributes.
func (c *Client) CreateQueue(ctx context.Context, queueName string, attrs map[string]string) error {
	translated, err := TranslateQueueAttributes(attrs)
	if err != nil {
		return err
	}
	if len(translated) == 0 {
		translated = DefaultQueueAttributes()
	}

	out, err := c.api.CreateQueue(ctx, &awssqs.CreateQueueInput{
		QueueName:  aws.String(queueName),
		Attributes: translated,
	})
	if err != nil {
		return newProviderError("createQueue", queueName, err)
	}

	c.urls.Store(queueName, aws.ToString(out.QueueUrl))
	return nil
}

// DeleteQueue deletes a queue by name and forgets its cached URL.
func (c *Client) DeleteQueue(ctx context.Context, queueName string) error {
	url, err := c.queueURL(ctx, queueName)
	if err != nil {
		return err
	}

	_, err = c.api.DeleteQueue(ctx, &awssqs.DeleteQueueInput{QueueUrl: aws.String(url)})
	if err != nil {
		return newProviderError("deleteQueue", queueName, err)
	}

	c.urls.Delete(queueName)
	return nil
}

// QueueExists reports whether a queue with the given name exists.
func (c *Client) QueueExists(ctx context.Context, queueName string) (bool, error) {
	_, err := c.api.GetQueueUrl(ctx, &awssqs.GetQueueUrlInput{QueueName: aws.String(queueName)})
	if err != nil {
		var notFound *types.QueueDoesNotExist
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, newProviderError("getQueueUrl", queueName, err)
	}
	return true, nil
}

// GetQueueAttributes fetches the named queue attributes.
func (c *Client) GetQueueAttributes(ctx context.Context, queueName string, names ...types.QueueAttributeName) (map[string]string, error) {
	url, err := c.queueURL(ctx, queueName)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		names = []types.QueueAttributeName{types.QueueAttributeNameAll}
	}

	out, err := c.api.GetQueueAttributes(ctx, &awssqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: names,
	})
	if err != nil {
		return nil, newProviderError("getQueueAttributes", queueName, err)
	}
	return out.Attributes, nil
}
