// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package queue holds log batches between the receiver and the delivery
// client.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/logstore/lambda-extension/lambda/interop"
)

var (
	// ErrQueueFull is returned when a batch could not be enqueued within the enqueue timeout.
	ErrQueueFull = errors.New("delivery queue is full")
	// ErrQueueClosed is returned by Enqueue after Close, and by Dequeue once the closed queue is empty.
	ErrQueueClosed = errors.New("delivery queue is closed")
)

// DeliveryQueue is a bounded FIFO of log batches. Any number of goroutines
// may enqueue, a single consumer dequeues.
type DeliveryQueue struct {
	ch             chan *interop.LogBatch
	enqueueTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewDeliveryQueue returns a queue holding at most capacity batches. When
// full, Enqueue waits up to enqueueTimeout for room before giving up.
func NewDeliveryQueue(capacity int, enqueueTimeout time.Duration) *DeliveryQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &DeliveryQueue{
		ch:             make(chan *interop.LogBatch, capacity),
		enqueueTimeout: enqueueTimeout,
	}
}

// Enqueue appends b to the queue. It returns ErrQueueFull when no room
// became available within the enqueue timeout, ErrQueueClosed after Close,
// or the context error if ctx ends first.
func (q *DeliveryQueue) Enqueue(ctx context.Context, b *interop.LogBatch) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- b:
		return nil
	default:
	}

	if q.enqueueTimeout <= 0 {
		return ErrQueueFull
	}

	timer := time.NewTimer(q.enqueueTimeout)
	defer timer.Stop()

	select {
	case q.ch <- b:
		return nil
	case <-timer.C:
		return ErrQueueFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a batch is available and returns the oldest one.
// After Close it keeps returning the remaining batches, then ErrQueueClosed.
func (q *DeliveryQueue) Dequeue(ctx context.Context) (*interop.LogBatch, error) {
	select {
	case b, ok := <-q.ch:
		if !ok {
			return nil, ErrQueueClosed
		}
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the queue from accepting new batches. Batches already queued
// remain available to Dequeue. Close waits for in-flight Enqueue calls.
func (q *DeliveryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// Discard empties a closed queue and returns what was thrown away.
func (q *DeliveryQueue) Discard() (batches int, events int) {
	q.Close()
	for b := range q.ch {
		batches++
		events += b.Len()
	}
	return batches, events
}

// Len returns the number of queued batches.
func (q *DeliveryQueue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *DeliveryQueue) Cap() int {
	return cap(q.ch)
}
