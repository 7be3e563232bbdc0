package registry

import (
	"context"
	"time"
)

// MetricsRecorder is the interface for recording registry operation
// metrics. It decouples this package from the metrics package.
type MetricsRecorder interface {
	RecordLookup(durationSeconds float64, success bool)
	RecordFind(durationSeconds float64, success bool)
	RecordMutation(durationSeconds float64, success bool)
}

// InstrumentedClient wraps a Client and records metrics for each operation.
type InstrumentedClient struct {
	client  Client
	metrics MetricsRecorder
}

// NewInstrumentedClient creates an instrumented wrapper around a Client.
// If metrics is nil, operations pass through unrecorded.
func NewInstrumentedClient(client Client, metrics MetricsRecorder) *InstrumentedClient {
	return &InstrumentedClient{client: client, metrics: metrics}
}

func (c *InstrumentedClient) Run(ctx context.Context, number int) (Run, error) {
	start := time.Now()
	r, err := c.client.Run(ctx, number)
	if c.metrics != nil {
		c.metrics.RecordLookup(time.Since(start).Seconds(), err == nil)
	}
	return r, err
}

func (c *InstrumentedClient) Find(ctx context.Context, f Filter, limit int) ([]Run, error) {
	start := time.Now()
	runs, err := c.client.Find(ctx, f, limit)
	if c.metrics != nil {
		c.metrics.RecordFind(time.Since(start).Seconds(), err == nil)
	}
	return runs, err
}

func (c *InstrumentedClient) RecordDeletion(ctx context.Context, number int, match LocationMatch, d Deletion) (bool, error) {
	start := time.Now()
	removed, err := c.client.RecordDeletion(ctx, number, match, d)
	if c.metrics != nil {
		c.metrics.RecordMutation(time.Since(start).Seconds(), err == nil)
	}
	return removed, err
}

func (c *InstrumentedClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

func (c *InstrumentedClient) Close() error {
	return c.client.Close()
}
