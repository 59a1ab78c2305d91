package main

import (
	"context"
	"net/http"

	"go-queue/pkg/log"
	"go-queue/pkg/sqs"

	"github.com/labstack/echo/v4"
)

// Small HTTP front for a queue: POST a JSON order and it is enqueued.
type enqueueRequest struct {
	Queue string         `json:"queue"`
	Body  map[string]any `json:"body"`
}

type enqueueResponse struct {
	MessageID string `json:"messageId"`
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

	e := echo.New()
	e.HideBanner = true

	e.POST("/enqueue", func(c echo.Context) error {
		var req enqueueRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		if req.Queue == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "queue is required"})
		}

		id, err := messenger.Send(c.Request().Context(), req.Queue, req.Body).Get()
		if err != nil {
			return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusAccepted, enqueueResponse{MessageID: id.(string)})
	})

	e.GET("/queues/:name/size", func(c echo.Context) error {
		size, err := messenger.QueueSize(c.Request().Context(), c.Param("name"))
		if err != nil {
			return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]int{"messages": size})
	})

	e.Logger.Fatal(e.Start(":8080"))
}
