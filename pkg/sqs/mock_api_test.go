package sqs

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// mockAPI is a func-field fake of the provider API. Every method records
// its input and delegates to the corresponding func field when set,
// otherwise answers with a benign default.
type mockAPI struct {
	mu sync.Mutex

	urlCalls     []string
	sendInputs   []*awssqs.SendMessageInput
	batchInputs  []*awssqs.SendMessageBatchInput
	recvInputs   []*awssqs.ReceiveMessageInput
	deleteInputs []*awssqs.DeleteMessageInput
	deleteBatch  []*awssqs.DeleteMessageBatchInput
	createInputs []*awssqs.CreateQueueInput

	getQueueURLFunc func(*awssqs.GetQueueUrlInput) (*awssqs.GetQueueUrlOutput, error)
	sendFunc        func(*awssqs.SendMessageInput) (*awssqs.SendMessageOutput, error)
	sendBatchFunc   func(*awssqs.SendMessageBatchInput) (*awssqs.SendMessageBatchOutput, error)
	receiveFunc     func(*awssqs.ReceiveMessageInput) (*awssqs.ReceiveMessageOutput, error)
	deleteFunc      func(*awssqs.DeleteMessageInput) (*awssqs.DeleteMessageOutput, error)
	attributesFunc  func(*awssqs.GetQueueAttributesInput) (*awssqs.GetQueueAttributesOutput, error)
}

func (m *mockAPI) GetQueueUrl(_ context.Context, params *awssqs.GetQueueUrlInput, _ ...func(*awssqs.Options)) (*awssqs.GetQueueUrlOutput, error) {
	m.mu.Lock()
	m.urlCalls = append(m.urlCalls, aws.ToString(params.QueueName))
	m.mu.Unlock()

	if m.getQueueURLFunc != nil {
		return m.getQueueURLFunc(params)
	}
	return &awssqs.GetQueueUrlOutput{
		QueueUrl: aws.String("https://sqs.test/" + aws.ToString(params.QueueName)),
	}, nil
}

func (m *mockAPI) SendMessage(_ context.Context, params *awssqs.SendMessageInput, _ ...func(*awssqs.Options)) (*awssqs.SendMessageOutput, error) {
	m.mu.Lock()
	m.sendInputs = append(m.sendInputs, params)
	n := len(m.sendInputs)
	m.mu.Unlock()

	if m.sendFunc != nil {
		return m.sendFunc(params)
	}
	return &awssqs.SendMessageOutput{MessageId: aws.String(fmt.Sprintf("m-%d", n))}, nil
}

func (m *mockAPI) SendMessageBatch(_ context.Context, params *awssqs.SendMessageBatchInput, _ ...func(*awssqs.Options)) (*awssqs.SendMessageBatchOutput, error) {
	m.mu.Lock()
	m.batchInputs = append(m.batchInputs, params)
	m.mu.Unlock()

	if m.sendBatchFunc != nil {
		return m.sendBatchFunc(params)
	}

	out := &awssqs.SendMessageBatchOutput{}
	for _, entry := range params.Entries {
		out.Successful = append(out.Successful, types.SendMessageBatchResultEntry{
			Id:        entry.Id,
			MessageId: aws.String("m-" + aws.ToString(entry.Id)),
		})
	}
	return out, nil
}

func (m *mockAPI) ReceiveMessage(_ context.Context, params *awssqs.ReceiveMessageInput, _ ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error) {
	m.mu.Lock()
	m.recvInputs = append(m.recvInputs, params)
	m.mu.Unlock()

	if m.receiveFunc != nil {
		return m.receiveFunc(params)
	}
	return &awssqs.ReceiveMessageOutput{}, nil
}

func (m *mockAPI) DeleteMessage(_ context.Context, params *awssqs.DeleteMessageInput, _ ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error) {
	m.mu.Lock()
	m.deleteInputs = append(m.deleteInputs, params)
	m.mu.Unlock()

	if m.deleteFunc != nil {
		return m.deleteFunc(params)
	}
	return &awssqs.DeleteMessageOutput{}, nil
}

func (m *mockAPI) DeleteMessageBatch(_ context.Context, params *awssqs.DeleteMessageBatchInput, _ ...func(*awssqs.Options)) (*awssqs.DeleteMessageBatchOutput, error) {
	m.mu.Lock()
	m.deleteBatch = append(m.deleteBatch, params)
	m.mu.Unlock()

	out := &awssqs.DeleteMessageBatchOutput{}
	for _, entry := range params.Entries {
		out.Successful = append(out.Successful, types.DeleteMessageBatchResultEntry{Id: entry.Id})
	}
	return out, nil
}

func (m *mockAPI) ChangeMessageVisibility(_ context.Context, _ *awssqs.ChangeMessageVisibilityInput, _ ...func(*awssqs.Options)) (*awssqs.ChangeMessageVisibilityOutput, error) {
	return &awssqs.ChangeMessageVisibilityOutput{}, nil
}

func (m *mockAPI) CreateQueue(_ context.Context, params *awssqs.CreateQueueInput, _ ...func(*awssqs.Options)) (*awssqs.CreateQueueOutput, error) {
	m.mu.Lock()
	m.createInputs = append(m.createInputs, params)
	m.mu.Unlock()

	return &awssqs.CreateQueueOutput{
		QueueUrl: aws.String("https://sqs.test/" + aws.ToString(params.QueueName)),
	}, nil
}

func (m *mockAPI) DeleteQueue(_ context.Context, _ *awssqs.DeleteQueueInput, _ ...func(*awssqs.Options)) (*awssqs.DeleteQueueOutput, error) {
	return &awssqs.DeleteQueueOutput{}, nil
}

func (m *mockAPI) GetQueueAttributes(_ context.Context, params *awssqs.GetQueueAttributesInput, _ ...func(*awssqs.Options)) (*awssqs.GetQueueAttributesOutput, error) {
	if m.attributesFunc != nil {
		return m.attributesFunc(params)
	}
	return &awssqs.GetQueueAttributesOutput{Attributes: map[string]string{}}, nil
}

// helpers

func (m *mockAPI) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sendInputs)
}

func (m *mockAPI) deletedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deleteInputs)
}

func (m *mockAPI) receivedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recvInputs)
}

func awssqsSuccessEntry(id *string) types.SendMessageBatchResultEntry {
	return types.SendMessageBatchResultEntry{Id: id, MessageId: aws.String("m-" + aws.ToString(id))}
}

// receivedMessages builds a canned receive response with sequential ids and
// receipt handles.
func receivedMessages(n int) *awssqs.ReceiveMessageOutput {
	out := &awssqs.ReceiveMessageOutput{}
	for i := 0; i < n; i++ {
		out.Messages = append(out.Messages, types.Message{
			MessageId:     aws.String(fmt.Sprintf("id-%d", i)),
			ReceiptHandle: aws.String(fmt.Sprintf("rh-%d", i)),
			Body:          aws.String(fmt.Sprintf("body-%d", i)),
		})
	}
	return out
}
