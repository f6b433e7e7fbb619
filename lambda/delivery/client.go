// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package delivery forwards queued log batches to the log-store over a
// persistent TCP connection.
package delivery

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/logstore/lambda-extension/lambda/interop"
	"github.com/logstore/lambda-extension/lambda/logging"
	"github.com/logstore/lambda-extension/lambda/telemetry"
)

// Dequeuer is the consuming side of the delivery queue.
type Dequeuer interface {
	Dequeue(ctx context.Context) (*interop.LogBatch, error)
}

// Config of the delivery client
type Config struct {
	Address      string
	Compression  string
	MaxAttempts  int
	Backoff      Backoff
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// Client is the only consumer of the delivery queue. It owns the
// connection to the log-store.
type Client struct {
	config   Config
	queue    Dequeuer
	counters *telemetry.Counters
	encoder  *Encoder
	dialer   *net.Dialer
	warn     *logging.SampledLogger

	conn  *connection
	dials int

	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewClient returns a client consuming q. sid is stamped on every record.
func NewClient(config Config, q Dequeuer, counters *telemetry.Counters, sid string) *Client {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		config:   config,
		queue:    q,
		counters: counters,
		encoder:  NewEncoder(sid),
		dialer:   &net.Dialer{Timeout: config.DialTimeout, KeepAlive: 30 * time.Second},
		warn:     logging.NewSampledLogger(time.Second, 5),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start runs the delivery loop in its own goroutine. Subsequent calls are no-ops.
func (c *Client) Start() {
	c.startOnce.Do(func() {
		log.WithField("address", c.config.Address).Info("Delivery client started")
		go c.loop()
	})
}

// Done is closed once the loop has returned, either because the queue was
// closed and drained or because of Abort.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Abort interrupts the in-flight send and stops the loop. Batches still
// queued are left for the caller to discard.
func (c *Client) Abort() {
	c.cancel()
}

func (c *Client) loop() {
	defer close(c.done)
	defer c.closeConn()

	for c.ctx.Err() == nil {
		batch, err := c.queue.Dequeue(c.ctx)
		if err != nil {
			log.WithError(err).Debug("Delivery loop stopped")
			return
		}
		if err := c.Send(c.ctx, batch); err != nil {
			if entry := c.warn.Entry(); entry != nil {
				entry.WithError(err).Warn("Discarded batch")
			}
		}
	}
}

// Send writes a batch to the log-store, retrying on a fresh connection with
// backoff. A batch that partially reached the log-store before a failure is
// sent again whole. On exhaustion the batch is counted as failed and a
// *interop.DeliveryError is returned.
func (c *Client) Send(ctx context.Context, batch *interop.LogBatch) error {
	data, err := c.encoder.Encode(batch)
	if err != nil {
		c.fail(batch)
		return &interop.DeliveryError{Seq: batch.Seq, Err: err}
	}

	var lastErr error
	attempt := 0
	for attempt < c.config.MaxAttempts {
		if attempt > 0 {
			if err := c.config.Backoff.Wait(ctx, attempt); err != nil {
				lastErr = err
				break
			}
		}
		attempt++
		c.counters.Inc(telemetry.SendAttempts)

		if lastErr = c.attempt(ctx, data); lastErr == nil {
			c.counters.Inc(telemetry.BatchesDelivered)
			c.counters.Add(telemetry.EventsDelivered, int64(batch.Len()))
			log.WithFields(log.Fields{"seq": batch.Seq, "events": batch.Len(), "attempts": attempt}).Debug("Batch delivered")
			return nil
		}

		c.closeConn()
		if ctx.Err() != nil {
			break
		}
		log.WithError(lastErr).WithFields(log.Fields{"seq": batch.Seq, "attempt": attempt}).Debug("Send attempt failed")
	}

	c.fail(batch)
	return &interop.DeliveryError{Seq: batch.Seq, Attempts: attempt, Err: lastErr}
}

func (c *Client) attempt(ctx context.Context, data []byte) error {
	if c.conn == nil {
		conn, err := dial(ctx, c.dialer, c.config.Address, c.config.Compression)
		if err != nil {
			return err
		}
		c.dials++
		if c.dials > 1 {
			c.counters.Inc(telemetry.Reconnects)
		}
		c.conn = conn
	}
	return c.conn.write(ctx, data, c.config.WriteTimeout)
}

func (c *Client) fail(batch *interop.LogBatch) {
	c.counters.Inc(telemetry.BatchesFailed)
	c.counters.Add(telemetry.EventsFailed, int64(batch.Len()))
}

func (c *Client) closeConn() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.WithError(err).Debug("Error closing log-store connection")
	}
	c.conn = nil
}
