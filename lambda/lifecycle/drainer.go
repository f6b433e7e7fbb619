// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/logstore/lambda-extension/lambda/interop"
	"github.com/logstore/lambda-extension/lambda/metering"
	"github.com/logstore/lambda-extension/lambda/telemetry"
)

// Shutdowner stops accepting pushes, letting in-flight ones finish.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// ClosableQueue is the drainer's view of the delivery queue.
type ClosableQueue interface {
	Close()
	Discard() (batches int, events int)
}

// Sender is the drainer's view of the delivery client.
type Sender interface {
	Start()
	Done() <-chan struct{}
	Abort()
}

// Drainer flushes the delivery queue within the shutdown deadline.
type Drainer struct {
	receiver Shutdowner
	queue    ClosableQueue
	sender   Sender
	counters *telemetry.Counters
}

// NewDrainer returns a drainer over the given receiver, queue and sender.
func NewDrainer(receiver Shutdowner, q ClosableQueue, sender Sender, counters *telemetry.Counters) *Drainer {
	return &Drainer{
		receiver: receiver,
		queue:    q,
		sender:   sender,
		counters: counters,
	}
}

// Drain stops the receiver, closes the queue and lets the sender work
// through what is left until the queue is empty or deadline passes. At the
// deadline the in-flight send is aborted and queued batches are discarded.
// Flushed counts batches delivered during the drain; Discarded counts
// batches that failed or never got a chance to be sent.
func (d *Drainer) Drain(deadline time.Time) interop.DrainResult {
	deliveredBefore := d.counters.Get(telemetry.BatchesDelivered)
	failedBefore := d.counters.Get(telemetry.BatchesFailed)

	profiler := metering.NewDrainDurationProfiler(deadline)
	profiler.Start()

	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	if err := d.receiver.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("Logs receiver did not shut down cleanly")
	}
	d.queue.Close()
	d.sender.Start()

	select {
	case <-d.sender.Done():
	case <-ctx.Done():
		log.Warn("Drain deadline reached, aborting delivery")
		d.sender.Abort()
		<-d.sender.Done()
	}

	leftover, leftoverEvents := d.queue.Discard()
	if leftover > 0 {
		d.counters.Add(telemetry.BatchesDiscard, int64(leftover))
		d.counters.Add(telemetry.EventsDiscard, int64(leftoverEvents))
	}

	profiler.Stop()
	drainMs, timedOut := profiler.CalculateDrainMs()

	result := interop.DrainResult{
		Flushed:   int(d.counters.Get(telemetry.BatchesDelivered) - deliveredBefore),
		Discarded: int(d.counters.Get(telemetry.BatchesFailed)-failedBefore) + leftover,
	}

	entry := log.WithFields(log.Fields{"flushed": result.Flushed, "discarded": result.Discarded, "drainMs": drainMs, "timedOut": timedOut})
	if result.Discarded > 0 {
		entry.WithError(&interop.DrainTimeoutError{Deadline: deadline, Discarded: result.Discarded}).Warn("Drain incomplete")
	} else {
		entry.Info("Drain complete")
	}
	return result
}
