package sqs

import (
	"time"

	"go-queue/pkg/resource"
)

// Config holds the client configuration. Zero values fall back to the
// documented defaults via setDefaults.
type Config struct {
	// Region is the AWS region where the queues live.
	Region string

	// Endpoint is a custom provider endpoint, useful with LocalStack.
	// Empty means the default AWS endpoint.
	Endpoint string

	// AccessKeyID and SecretAccessKey are static credentials. When empty the
	// SDK default credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// QueuePrefix is prepended to every resolved queue name.
	QueuePrefix string

	// BatchSize is the per-call batch ceiling (1-10). Default: 10.
	BatchSize int

	// MaxMessages is the default receive count per call (1-10). Default: 10.
	MaxMessages int32

	// WaitTimeSeconds is the default long-poll wait (0-20). Default: 20.
	WaitTimeSeconds int32

	// PoolSize is the shared worker pool size. Default: 10.
	PoolSize int

	// RetryBackoff is the wait between failed polling iterations.
	// Default: 5 seconds.
	RetryBackoff time.Duration

	// ReceiveTimeout bounds one polling iteration's provider call.
	// Default: WaitTimeSeconds plus 10 seconds.
	ReceiveTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.BatchSize <= 0 || c.BatchSize > MaxBatchSize {
		c.BatchSize = MaxBatchSize
	}
	if c.MaxMessages <= 0 || c.MaxMessages > 10 {
		c.MaxMessages = 10
	}
	if c.WaitTimeSeconds < 0 || c.WaitTimeSeconds > 20 {
		c.WaitTimeSeconds = 20
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 5 * time.Second
	}
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = time.Duration(c.WaitTimeSeconds)*time.Second + 10*time.Second
	}
}

// LoadConfig builds a Config from application properties under
// app.cloud.sqs, resolved through pkg/resource.
func LoadConfig() *Config {
	cfg := &Config{
		Region:          resource.GetString("app.cloud.aws-region"),
		Endpoint:        resource.GetString("app.cloud.aws-endpoint"),
		AccessKeyID:     resource.GetString("app.cloud.aws-access-key-id"),
		SecretAccessKey: resource.GetString("app.cloud.aws-secret-access-key"),
		QueuePrefix:     resource.GetString("app.cloud.sqs.queue-prefix"),
		BatchSize:       resource.GetInt("app.cloud.sqs.batch-size"),
		MaxMessages:     resource.GetInt32("app.cloud.sqs.max-messages"),
		WaitTimeSeconds: resource.GetInt32("app.cloud.sqs.wait-time-seconds"),
		PoolSize:        resource.GetInt("app.cloud.sqs.pool-size"),
		RetryBackoff:    resource.GetDuration("app.cloud.sqs.retry-backoff"),
	}
	cfg.setDefaults()
	return cfg
}
