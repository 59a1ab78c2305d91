package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go-queue/pkg/log"
	"go-queue/pkg/resource"
	"go-queue/pkg/sqs"
)

// Long-running consumer: polls a queue until the process is signalled.
func main() {
	ctx := context.Background()

	if err := resource.InitDefault(); err != nil {
		log.Fatalf("failed to load properties: %v", err)
	}
	cfg := sqs.LoadConfig()

	api, err := sqs.NewAPI(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to build queue api: %v", err)
	}
	messenger := sqs.NewMessenger(api, cfg)

	handler := sqs.HandlerFunc(func(msg *sqs.Message) error {
		log.Infow("message received",
			"id", msg.ID,
			"receiveCount", msg.System.ReceiveCount,
			"body", msg.Body,
		)
		return nil
	})

	queue := resource.GetStringOrDefault("app.cloud.sqs.worker-queue", "orders")
	if err := messenger.StartPolling(queue, handler, nil); err != nil {
		log.Fatalf("failed to start polling: %v", err)
	}
	log.Infof("polling %s", queue)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := messenger.Shutdown(context.Background()); err != nil {
		log.Errorf("shutdown incomplete: %v", err)
	}
}
