package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-queue/pkg/log"
	"go-queue/pkg/sqs"

	"github.com/go-co-op/gocron/v2"
)

// Periodically reports the approximate depth of a set of queues. Useful as a
// cheap alerting probe when no metrics pipeline is in place.
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

	queues := []string{"orders", "orders-dlq"}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(func(ctx context.Context) {
			probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			for _, queue := range queues {
				size, err := messenger.QueueSize(probeCtx, queue)
				if err != nil {
					log.Errorf("failed to read size of %s: %v", queue, err)
					continue
				}
				log.Infow("queue depth", "queue", queue, "messages", size)
			}
		}),
	)
	if err != nil {
		log.Fatalf("failed to schedule depth probe: %v", err)
	}

	scheduler.Start()
	log.Infof("monitoring %d queues", len(queues))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := scheduler.Shutdown(); err != nil {
		log.Errorf("scheduler shutdown: %v", err)
	}
}
