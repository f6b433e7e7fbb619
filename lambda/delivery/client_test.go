// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logstore/lambda-extension/lambda/interop"
	"github.com/logstore/lambda-extension/lambda/queue"
	"github.com/logstore/lambda-extension/lambda/telemetry"
	"github.com/logstore/lambda-extension/lambda/testdata/logstore"
)

func testConfig(address string) Config {
	return Config{
		Address:      address,
		Compression:  CompressionNone,
		MaxAttempts:  5,
		Backoff:      Backoff{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond, Multiplier: 2},
		DialTimeout:  200 * time.Millisecond,
		WriteTimeout: time.Second,
	}
}

func testBatch(seq uint64, events int) *interop.LogBatch {
	b := &interop.LogBatch{Seq: seq, ReceivedAt: time.Now()}
	for i := 0; i < events; i++ {
		b.Events = append(b.Events, interop.LogEvent{
			Time:   time.Now(),
			Type:   "function",
			Record: json.RawMessage(fmt.Sprintf(`"seq %d line %d"`, seq, i)),
		})
	}
	return b
}

func decodeLines(t *testing.T, lines []string) []Record {
	records := make([]Record, len(lines))
	for i, line := range lines {
		require.NoError(t, json.Unmarshal([]byte(line), &records[i]))
	}
	return records
}

func unusedAddress(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestClientDeliversEventsInOrder(t *testing.T) {
	store, err := logstore.Start(CompressionNone)
	require.NoError(t, err)
	defer store.Stop()

	q := queue.NewDeliveryQueue(8, 0)
	counters := telemetry.NewCounters()
	client := NewClient(testConfig(store.Addr()), q, counters, "sid")

	require.NoError(t, q.Enqueue(context.Background(), testBatch(5, 3)))
	require.NoError(t, q.Enqueue(context.Background(), testBatch(6, 2)))
	q.Close()

	client.Start()
	client.Start()
	select {
	case <-client.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("delivery loop did not finish")
	}

	records := decodeLines(t, store.WaitForLines(5, 2*time.Second))
	require.Len(t, records, 5)

	expected := []struct {
		seq uint64
		i   int
	}{{5, 0}, {5, 1}, {5, 2}, {6, 0}, {6, 1}}
	for n, e := range expected {
		assert.Equal(t, e.seq, records[n].Seq)
		assert.Equal(t, e.i, records[n].I)
		assert.Equal(t, "sid", records[n].Sid)
		assert.Equal(t, fmt.Sprintf(`"seq %d line %d"`, e.seq, e.i), string(records[n].Record))
	}

	assert.Equal(t, int64(2), counters.Get(telemetry.BatchesDelivered))
	assert.Equal(t, int64(5), counters.Get(telemetry.EventsDelivered))
	assert.Zero(t, counters.Get(telemetry.BatchesFailed))
}

func TestClientCountsFailedBatchWhenStoreUnreachable(t *testing.T) {
	q := queue.NewDeliveryQueue(1, 0)
	counters := telemetry.NewCounters()
	config := testConfig(unusedAddress(t))
	config.MaxAttempts = 3
	client := NewClient(config, q, counters, "sid")

	err := client.Send(context.Background(), testBatch(1, 4))

	var deliveryErr *interop.DeliveryError
	require.True(t, errors.As(err, &deliveryErr))
	assert.Equal(t, uint64(1), deliveryErr.Seq)
	assert.Equal(t, 3, deliveryErr.Attempts)

	assert.Equal(t, int64(1), counters.Get(telemetry.BatchesFailed))
	assert.Equal(t, int64(4), counters.Get(telemetry.EventsFailed))
	assert.Equal(t, int64(3), counters.Get(telemetry.SendAttempts))
	assert.Zero(t, counters.Get(telemetry.BatchesDelivered))
}

func TestClientLoopContinuesAfterFailedBatch(t *testing.T) {
	q := queue.NewDeliveryQueue(4, 0)
	counters := telemetry.NewCounters()
	config := testConfig(unusedAddress(t))
	config.MaxAttempts = 1
	client := NewClient(config, q, counters, "sid")

	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, q.Enqueue(context.Background(), testBatch(seq, 1)))
	}
	q.Close()
	client.Start()
	<-client.Done()

	assert.Equal(t, int64(3), counters.Get(telemetry.BatchesFailed))
	assert.Equal(t, 0, q.Len())
}

func TestClientRetriesUntilStoreComesBack(t *testing.T) {
	store, err := logstore.Start(CompressionNone)
	require.NoError(t, err)
	defer store.Stop()
	store.Stop()

	counters := telemetry.NewCounters()
	config := testConfig(store.Addr())
	config.MaxAttempts = 20
	client := NewClient(config, queue.NewDeliveryQueue(1, 0), counters, "sid")

	go func() {
		time.Sleep(60 * time.Millisecond)
		_ = store.Restart()
	}()

	require.NoError(t, client.Send(context.Background(), testBatch(1, 2)))
	client.closeConn()

	assert.Len(t, store.WaitForLines(2, 2*time.Second), 2)
	assert.Greater(t, counters.Get(telemetry.SendAttempts), int64(1))
	assert.Equal(t, int64(1), counters.Get(telemetry.BatchesDelivered))
}

func TestClientReconnectsAfterConnectionLoss(t *testing.T) {
	store, err := logstore.Start(CompressionNone)
	require.NoError(t, err)
	defer store.Stop()

	counters := telemetry.NewCounters()
	client := NewClient(testConfig(store.Addr()), queue.NewDeliveryQueue(1, 0), counters, "sid")

	require.NoError(t, client.Send(context.Background(), testBatch(1, 1)))
	store.WaitForLines(1, 2*time.Second)

	// drop the persistent connection from the client side, as a failed write would
	client.closeConn()
	require.NoError(t, client.Send(context.Background(), testBatch(2, 1)))

	records := decodeLines(t, store.WaitForLines(2, 2*time.Second))
	require.Len(t, records, 2)
	assert.Equal(t, uint64(2), records[1].Seq)
	assert.Equal(t, int64(1), counters.Get(telemetry.Reconnects))
	client.closeConn()
}

func TestClientAbortStopsRetrying(t *testing.T) {
	q := queue.NewDeliveryQueue(1, 0)
	counters := telemetry.NewCounters()
	config := testConfig(unusedAddress(t))
	config.MaxAttempts = 1000
	config.Backoff = Backoff{Initial: 50 * time.Millisecond, Max: 50 * time.Millisecond}
	client := NewClient(config, q, counters, "sid")

	require.NoError(t, q.Enqueue(context.Background(), testBatch(1, 1)))
	client.Start()
	time.Sleep(20 * time.Millisecond)
	client.Abort()

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("abort did not stop the delivery loop")
	}
	assert.Equal(t, int64(1), counters.Get(telemetry.BatchesFailed))
}

func TestClientCompressedStreams(t *testing.T) {
	for _, compression := range []string{CompressionGzip, CompressionZstd} {
		t.Run(compression, func(t *testing.T) {
			store, err := logstore.Start(compression)
			require.NoError(t, err)
			defer store.Stop()

			q := queue.NewDeliveryQueue(4, 0)
			config := testConfig(store.Addr())
			config.Compression = compression
			client := NewClient(config, q, telemetry.NewCounters(), "sid")

			require.NoError(t, q.Enqueue(context.Background(), testBatch(1, 3)))
			require.NoError(t, q.Enqueue(context.Background(), testBatch(2, 2)))
			q.Close()
			client.Start()
			<-client.Done()

			records := decodeLines(t, store.WaitForLines(5, 2*time.Second))
			require.Len(t, records, 5)
			assert.Equal(t, uint64(2), records[4].Seq)
			assert.Equal(t, 1, records[4].I)
		})
	}
}
