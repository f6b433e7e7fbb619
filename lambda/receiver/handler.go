// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package receiver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/logstore/lambda-extension/lambda/interop"
	"github.com/logstore/lambda-extension/lambda/logsapi"
	"github.com/logstore/lambda-extension/lambda/queue"
	"github.com/logstore/lambda-extension/lambda/rapi/model"
	"github.com/logstore/lambda-extension/lambda/rapi/rendering"
	"github.com/logstore/lambda-extension/lambda/telemetry"
)

// Enqueuer accepts received batches.
type Enqueuer interface {
	Enqueue(ctx context.Context, b *interop.LogBatch) error
}

// MaxBodyBytes is the largest push accepted for the given buffering. The
// platform bounds record bytes by maxBytes, the JSON envelope of each item
// comes on top.
func MaxBodyBytes(maxBytes, maxItems int) int64 {
	return 2*int64(maxBytes) + 256*int64(maxItems)
}

// LogsHandler turns Logs API pushes into sequenced batches.
type LogsHandler struct {
	queue        Enqueuer
	counters     *telemetry.Counters
	maxBodyBytes int64
	maxWait      time.Duration

	// slot is held across sequence assignment and enqueue so queue order
	// equals Seq order
	slot    chan struct{}
	lastSeq atomic.Uint64
}

// NewLogsHandler returns a handler enqueueing into q.
func NewLogsHandler(q Enqueuer, counters *telemetry.Counters, maxBodyBytes int64) *LogsHandler {
	return &LogsHandler{
		queue:        q,
		counters:     counters,
		maxBodyBytes: maxBodyBytes,
		slot:         make(chan struct{}, 1),
	}
}

// WithMaxWait bounds how long a push may wait, from its arrival, for its
// turn and for queue room. Zero leaves the bound to the queue.
func (h *LogsHandler) WithMaxWait(d time.Duration) *LogsHandler {
	h.maxWait = d
	return h
}

// LastSeq returns the sequence number of the most recently enqueued batch.
func (h *LogsHandler) LastSeq() uint64 {
	return h.lastSeq.Load()
}

func (h *LogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.maxWait)
		defer cancel()
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.counters.Inc(telemetry.PushesTooLarge)
			log.WithField("limit", h.maxBodyBytes).Warn("Rejected oversize push")
			rendering.RenderRequestEntityTooLarge(w, r, h.maxBodyBytes)
			return
		}
		h.reject(w, r, &interop.ReceiveError{Reason: "read body", Err: err})
		return
	}

	events, err := logsapi.ParsePush(body)
	if err != nil {
		h.reject(w, r, err)
		return
	}

	if len(events) == 0 {
		rendering.RenderOK(w, r)
		return
	}

	batch := &interop.LogBatch{
		Events:     events,
		ReceivedAt: time.Now(),
		SizeBytes:  len(body),
	}

	if err := h.enqueue(ctx, batch); err != nil {
		h.drop(w, r, batch, err)
		return
	}

	h.counters.Inc(telemetry.PushesAccepted)
	h.counters.Add(telemetry.EventsReceived, int64(batch.Len()))
	log.WithFields(log.Fields{"seq": batch.Seq, "events": batch.Len()}).Debug("Batch enqueued")
	rendering.RenderOK(w, r)
}

func (h *LogsHandler) enqueue(ctx context.Context, batch *interop.LogBatch) error {
	select {
	case h.slot <- struct{}{}:
	case <-ctx.Done():
		return queue.ErrQueueFull
	}
	defer func() { <-h.slot }()

	batch.Seq = h.lastSeq.Load() + 1
	if err := h.queue.Enqueue(ctx, batch); err != nil {
		batch.Seq = 0
		if ctx.Err() != nil {
			return queue.ErrQueueFull
		}
		return err
	}
	h.lastSeq.Store(batch.Seq)
	return nil
}

func (h *LogsHandler) reject(w http.ResponseWriter, r *http.Request, err error) {
	h.counters.Inc(telemetry.PushesMalformed)
	log.WithError(err).Warn("Rejected malformed push")
	rendering.RenderBadRequestWithTypeMsg(w, r, model.ErrInvalidRequestFormat, "%s", err)
}

func (h *LogsHandler) drop(w http.ResponseWriter, r *http.Request, batch *interop.LogBatch, err error) {
	h.counters.Inc(telemetry.PushesRejected)
	h.counters.Inc(telemetry.BatchesDropped)
	h.counters.Add(telemetry.EventsDropped, int64(batch.Len()))

	entry := log.WithError(err).WithField("events", batch.Len())
	if errors.Is(err, queue.ErrQueueClosed) {
		h.counters.Inc(telemetry.ReceiverClosed)
		entry.Warn("Dropped batch, receiver is closed")
		rendering.RenderServiceUnavailable(w, r, "Receiver is closed")
		return
	}
	entry.Warn("Dropped batch, delivery queue is full")
	rendering.RenderServiceUnavailable(w, r, "Delivery queue is full")
}
