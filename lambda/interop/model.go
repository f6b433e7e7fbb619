// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package interop

import (
	"encoding/json"
	"time"
)

// LogEvent is one record pushed by the Logs API.
type LogEvent struct {
	Time   time.Time
	Type   string
	Record json.RawMessage
}

// LogBatch is an ordered set of events received in a single push.
//
// Seq is assigned by the receiver on arrival; it is strictly increasing
// and never reused within the lifetime of the process.
type LogBatch struct {
	Seq        uint64
	Events     []LogEvent
	ReceivedAt time.Time
	SizeBytes  int
}

// Len returns the number of events in the batch
func (b *LogBatch) Len() int {
	return len(b.Events)
}

// DrainResult is returned by the shutdown drainer.
type DrainResult struct {
	Flushed   int `json:"flushed"`
	Discarded int `json:"discarded"`
}
