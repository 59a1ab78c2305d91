package main

import (
	"context"
	"time"

	"go-queue/pkg/log"
	"go-queue/pkg/sqs"
)

// OrderClient is a declarative queue client. Each func field becomes a real
// operation when the client is built by the factory.
type OrderClient struct {
	sqs.ClientBase `sqs:"client,name=orders"`

	// Fire-and-forget send to a fixed queue.
	Send func(order any) `sqs:"send,queue=orders"`

	// Send to a queue chosen per call, returning the message id.
	SendTo func(queue string, order any) (string, error) `sqs:"send" params:"queue,body"`

	// Delayed send, resolved asynchronously.
	SendLater func(order any) *sqs.Future `sqs:"send,queue=orders,delay=30"`

	// Batch send, chunked transparently above the provider limit.
	SendAll func(orders []string) (*sqs.BatchResult, error) `sqs:"sendBatch,queue=orders"`

	// One receive pass that deletes processed messages.
	Drain func(h sqs.HandlerFunc) (int, error) `sqs:"receive,queue=orders,autoDelete,maxMessages=10"`
}

type order struct {
	ID    string  `json:"id"`
	Total float64 `json:"total"`
}

func main() {
	ctx := context.Background()

	cfg := &sqs.Config{
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	}

	api, err := sqs.NewAPI(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to build queue api: %v", err)
	}

	messenger := sqs.NewMessenger(api, cfg)
	defer messenger.Shutdown(context.Background())

	if err := messenger.CreateQueue(ctx, "orders", nil); err != nil {
		log.Fatalf("failed to create queue: %v", err)
	}

	factory := sqs.NewFactory(messenger)
	client, err := sqs.GetClient[OrderClient](factory)
	if err != nil {
		log.Fatalf("failed to build client: %v", err)
	}

	client.Send(order{ID: "o-1", Total: 19.90})

	id, err := client.SendTo("orders", order{ID: "o-2", Total: 5.50})
	if err != nil {
		log.Fatalf("send failed: %v", err)
	}
	log.Infof("sent message %s", id)

	fut := client.SendLater(order{ID: "o-3", Total: 42.00})
	if _, err := fut.Get(); err != nil {
		log.Errorf("delayed send failed: %v", err)
	}

	result, err := client.SendAll([]string{"a", "b", "c"})
	if err != nil {
		log.Fatalf("batch send failed: %v", err)
	}
	log.Infof("batch: %d sent, %d failed", len(result.Successful()), len(result.Failed()))

	time.Sleep(time.Second)

	processed, err := client.Drain(func(msg *sqs.Message) error {
		var o order
		if err := msg.Bind(&o); err != nil {
			log.Infof("plain message %s: %s", msg.ID, msg.Body)
			return nil
		}
		log.Infof("order %s, total %.2f", o.ID, o.Total)
		return nil
	})
	if err != nil {
		log.Errorf("drain failed: %v", err)
	}
	log.Infof("processed %d messages", processed)
}
