package sqs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderClient is the declarative client used across dispatch tests.
type orderClient struct {
	ClientBase `sqs:"client,name=order-client"`

	Send     func(body any) error                         `sqs:"send,queue=orders"`
	SendTo   func(queue string, body any) (string, error) `sqs:"send" params:"queue,body"`
	SendFifo func(body any, group string) error           `sqs:"send,queue=orders.fifo,fifo" params:"body,group"`
	SendAll  func(items []string) (*BatchResult, error)   `sqs:"sendBatch,queue=orders"`
	Async    func(body any) *Future                       `sqs:"send,queue=orders"`
	Listen   func(h HandlerFunc) (int, error)             `sqs:"receive,queue=orders,maxMessages=3,autoDelete"`
	Watch    func(h HandlerFunc) error                    `sqs:"poll,queue=orders,waitTime=1"`
}

type untaggedClient struct {
	ClientBase
	Send func(body any) error
}

type notAClient struct {
	Send func(body any) error `sqs:"send,queue=orders"`
}

func newTestFactory(api API) *Factory {
	return NewFactory(newTestMessenger(api))
}

func TestFactory_CachesPerType(t *testing.T) {
	factory := newTestFactory(&mockAPI{})

	first, err := GetClient[orderClient](factory)
	require.NoError(t, err)
	second, err := GetClient[orderClient](factory)
	require.NoError(t, err)

	assert.Same(t, first, second, "repeated requests return the identical implementation")
}

func TestFactory_ConcurrentFirstBuild(t *testing.T) {
	factory := newTestFactory(&mockAPI{})

	const callers = 16
	clients := make([]*orderClient, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client, err := GetClient[orderClient](factory)
			require.NoError(t, err)
			clients[i] = client
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, clients[0], clients[i], "exactly one implementation is built")
	}
}

func TestFactory_FailureIsDeterministic(t *testing.T) {
	factory := newTestFactory(&mockAPI{})

	_, firstErr := GetClient[untaggedClient](factory)
	require.Error(t, firstErr)
	_, secondErr := GetClient[untaggedClient](factory)
	require.Error(t, secondErr)

	assert.Equal(t, firstErr.Error(), secondErr.Error())
	var cfgErr *ConfigError
	assert.ErrorAs(t, firstErr, &cfgErr)
}

func TestFactory_RequiresClientBase(t *testing.T) {
	factory := newTestFactory(&mockAPI{})

	_, err := GetClient[notAClient](factory)
	assert.ErrorContains(t, err, "embed sqs.ClientBase")
}

func TestFactory_RejectsNonStruct(t *testing.T) {
	factory := newTestFactory(&mockAPI{})

	_, err := factory.Get("not a pointer")
	assert.ErrorContains(t, err, "pointer to a struct")
}

func TestClient_Identity_NoNetwork(t *testing.T) {
	api := &mockAPI{}
	factory := newTestFactory(api)

	client, err := GetClient[orderClient](factory)
	require.NoError(t, err)

	assert.Equal(t, "order-client", client.Name())
	assert.Equal(t, `queue client "order-client"`, client.String())
	assert.Equal(t, client.Hash(), client.Hash())
	assert.Zero(t, api.sentCount(), "identity queries never touch the network")
	assert.Empty(t, api.urlCalls)
}

func TestDispatch_PlainSend(t *testing.T) {
	api := &mockAPI{}
	factory := newTestFactory(api)
	client, err := GetClient[orderClient](factory)
	require.NoError(t, err)

	require.NoError(t, client.Send("X"))

	require.Len(t, api.sendInputs, 1)
	assert.Equal(t, "https://sqs.test/orders", aws.ToString(api.sendInputs[0].QueueUrl))
	assert.Equal(t, "X", aws.ToString(api.sendInputs[0].MessageBody))
}

func TestDispatch_QueueOverride(t *testing.T) {
	api := &mockAPI{}
	factory := newTestFactory(api)
	client, err := GetClient[orderClient](factory)
	require.NoError(t, err)

	id, err := client.SendTo("billing", "Y")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, []string{"billing"}, api.urlCalls)
}

func TestDispatch_QueueOverride_Missing(t *testing.T) {
	api := &mockAPI{}
	factory := newTestFactory(api)
	client, err := GetClient[orderClient](factory)
	require.NoError(t, err)

	_, err = client.SendTo("", "Y")
	var callerErr *CallerError
	assert.ErrorAs(t, err, &callerErr)
	assert.Zero(t, api.sentCount())
}

func TestDispatch_FifoSend_DistinctDedupIDs(t *testing.T) {
	api := &mockAPI{}
	factory := newTestFactory(api)
	client, err := GetClient[orderClient](factory)
	require.NoError(t, err)

	require.NoError(t, client.SendFifo("body", "g1"))
	require.NoError(t, client.SendFifo("body", "g1"))

	require.Len(t, api.sendInputs, 2)
	assert.Equal(t, aws.ToString(api.sendInputs[0].MessageGroupId), aws.ToString(api.sendInputs[1].MessageGroupId))
	assert.NotEqual(t,
		aws.ToString(api.sendInputs[0].MessageDeduplicationId),
		aws.ToString(api.sendInputs[1].MessageDeduplicationId))
}

func TestDispatch_BatchSend_Chunked(t *testing.T) {
	api := &mockAPI{}
	factory := newTestFactory(api)
	client, err := GetClient[orderClient](factory)
	require.NoError(t, err)

	items := make([]string, 23)
	for i := range items {
		items[i] = "item"
	}

	result, err := client.SendAll(items)
	require.NoError(t, err)
	assert.Len(t, result.Entries, 23)
	assert.Len(t, api.batchInputs, 3)
}

func TestDispatch_BatchSend_Empty(t *testing.T) {
	api := &mockAPI{}
	factory := newTestFactory(api)
	client, err := GetClient[orderClient](factory)
	require.NoError(t, err)

	_, err = client.SendAll(nil)
	var callerErr *CallerError
	assert.ErrorAs(t, err, &callerErr)
}

func TestDispatch_FutureReturn(t *testing.T) {
	api := &mockAPI{}
	factory := newTestFactory(api)
	client, err := GetClient[orderClient](factory)
	require.NoError(t, err)

	fut := client.Async("X")
	require.NotNil(t, fut)

	id, err := fut.Get()
	require.NoError(t, err)
	assert.Equal(t, "m-1", id)
}

func TestDispatch_ReceiveAutoDelete(t *testing.T) {
	api := &mockAPI{}
	api.receiveFunc = func(*awssqs.ReceiveMessageInput) (*awssqs.ReceiveMessageOutput, error) {
		return receivedMessages(2), nil
	}
	factory := newTestFactory(api)
	client, err := GetClient[orderClient](factory)
	require.NoError(t, err)

	var bodies []string
	var mu sync.Mutex
	count, err := client.Listen(func(msg *Message) error {
		mu.Lock()
		bodies = append(bodies, msg.Body)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, bodies, 2)
	assert.Equal(t, 2, api.deletedCount())
	assert.Equal(t, int32(3), api.recvInputs[0].MaxNumberOfMessages, "descriptor maxMessages flows through")
}

func TestDispatch_ReceiveRequiresHandler(t *testing.T) {
	api := &mockAPI{}
	factory := newTestFactory(api)
	client, err := GetClient[orderClient](factory)
	require.NoError(t, err)

	_, err = client.Listen(nil)
	var callerErr *CallerError
	assert.ErrorAs(t, err, &callerErr)
	assert.Zero(t, api.receivedCount())
}

func TestDispatch_PollMaxOverride(t *testing.T) {
	type watchClient struct {
		ClientBase `sqs:"client"`
		Watch      func(h HandlerFunc, max int) error `sqs:"poll,queue=orders,waitTime=1"`
	}

	api := &mockAPI{}
	var gotMax atomic.Int32
	api.receiveFunc = func(in *awssqs.ReceiveMessageInput) (*awssqs.ReceiveMessageOutput, error) {
		gotMax.Store(in.MaxNumberOfMessages)
		return &awssqs.ReceiveMessageOutput{}, nil
	}
	factory := newTestFactory(api)
	client, err := GetClient[watchClient](factory)
	require.NoError(t, err)

	require.NoError(t, client.Watch(func(*Message) error { return nil }, 3))
	defer factory.messenger.StopPolling("orders")

	require.Eventually(t, func() bool { return gotMax.Load() == 3 }, time.Second, 5*time.Millisecond,
		"the caller's max reaches the receive")
}

func TestDispatch_ReceiveWaitFromDeclaration(t *testing.T) {
	type fetchClient struct {
		ClientBase `sqs:"client"`
		Fetch      func(h HandlerFunc) (int, error) `sqs:"receive,queue=orders,waitTime=2,autoDelete"`
	}

	api := &mockAPI{}
	var gotWait atomic.Int32
	api.receiveFunc = func(in *awssqs.ReceiveMessageInput) (*awssqs.ReceiveMessageOutput, error) {
		gotWait.Store(in.WaitTimeSeconds)
		return &awssqs.ReceiveMessageOutput{}, nil
	}
	factory := newTestFactory(api)
	client, err := GetClient[fetchClient](factory)
	require.NoError(t, err)

	_, err = client.Fetch(func(*Message) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, int32(2), gotWait.Load(), "the declared waitTime reaches the receive")
}

func TestDispatch_Poll(t *testing.T) {
	api := &mockAPI{}
	factory := newTestFactory(api)
	messenger := factory.messenger
	client, err := GetClient[orderClient](factory)
	require.NoError(t, err)

	require.NoError(t, client.Watch(func(*Message) error { return nil }))
	assert.True(t, messenger.PollingActive("orders"))

	messenger.StopPolling("orders")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, messenger.Shutdown(ctx))
}

func TestBuildClient_BadDeclarations(t *testing.T) {
	type badKind struct {
		ClientBase `sqs:"client"`
		Send       func(body any) error `sqs:"publish,queue=orders"`
	}
	type noOperations struct {
		ClientBase `sqs:"client"`
		Name       string
	}
	type badReturn struct {
		ClientBase `sqs:"client"`
		Send       func(body any) (int, string) `sqs:"send,queue=orders"`
	}
	type noQueue struct {
		ClientBase `sqs:"client"`
		Send       func(body any) error `sqs:"send"`
	}
	type wrongValue struct {
		ClientBase `sqs:"client"`
		Send       func(body any) (int, error) `sqs:"send,queue=orders"`
	}

	factory := newTestFactory(&mockAPI{})

	_, err := GetClient[badKind](factory)
	assert.ErrorContains(t, err, "unrecognized operation kind")

	_, err = GetClient[noOperations](factory)
	assert.ErrorContains(t, err, "declares no operations")

	_, err = GetClient[badReturn](factory)
	assert.ErrorContains(t, err, "second return value must be error")

	_, err = GetClient[noQueue](factory)
	assert.ErrorContains(t, err, "resolves no queue name")

	_, err = GetClient[wrongValue](factory)
	assert.ErrorContains(t, err, "yields string, not int")
}

func TestFactory_Close(t *testing.T) {
	factory := newTestFactory(&mockAPI{})

	first, err := GetClient[orderClient](factory)
	require.NoError(t, err)

	factory.Close()

	rebuilt, err := GetClient[orderClient](factory)
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt, "closing tears down the cache")
}
