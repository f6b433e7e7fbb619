// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package logsapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/logstore/lambda-extension/lambda/interop"
)

// PushedEvent is one element of the JSON array the Logs API pushes.
type PushedEvent struct {
	Time   string          `json:"time"`
	Type   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

// ParsePush decodes a pushed body. Records are kept as raw bytes.
func ParsePush(body []byte) ([]interop.LogEvent, error) {
	var pushed []PushedEvent
	if err := gojson.Unmarshal(body, &pushed); err != nil {
		return nil, &interop.ReceiveError{Reason: "malformed body", Err: err}
	}

	events := make([]interop.LogEvent, 0, len(pushed))
	for i, p := range pushed {
		if p.Type == "" {
			return nil, &interop.ReceiveError{Reason: fmt.Sprintf("event %d", i), Err: errMissingType}
		}
		if p.Time == "" {
			return nil, &interop.ReceiveError{Reason: fmt.Sprintf("event %d", i), Err: errMissingTime}
		}
		ts, err := time.Parse(time.RFC3339Nano, p.Time)
		if err != nil {
			return nil, &interop.ReceiveError{Reason: fmt.Sprintf("event %d: time", i), Err: err}
		}
		record := p.Record
		if len(record) == 0 {
			record = json.RawMessage("null")
		}
		events = append(events, interop.LogEvent{Time: ts, Type: p.Type, Record: record})
	}
	return events, nil
}

var (
	errMissingType = errors.New("missing type")
	errMissingTime = errors.New("missing time")
)
