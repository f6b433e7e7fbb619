// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"bytes"
	"encoding/json"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/logstore/lambda-extension/lambda/interop"
)

// Record is one line of the log-store wire format. Sid, Seq and I identify
// a record uniquely, a log-store can drop redelivered duplicates with them.
type Record struct {
	T      int64           `json:"t"`
	Type   string          `json:"type"`
	Sid    string          `json:"sid"`
	Seq    uint64          `json:"seq"`
	I      int             `json:"i"`
	Record json.RawMessage `json:"record"`
}

// WireType converts a Logs API type tag to its wire form, platform.start
// becomes platform_start.
func WireType(t string) string {
	return strings.ReplaceAll(t, ".", "_")
}

// Encoder renders batches as newline-delimited JSON.
type Encoder struct {
	sid string
	buf bytes.Buffer
	enc *gojson.Encoder
}

// NewEncoder returns an encoder stamping every record with sid.
func NewEncoder(sid string) *Encoder {
	e := &Encoder{sid: sid}
	e.enc = gojson.NewEncoder(&e.buf)
	e.enc.SetEscapeHTML(false)
	return e
}

// Encode returns the batch as one JSON line per event, in event order. The
// returned slice is only valid until the next call.
func (e *Encoder) Encode(b *interop.LogBatch) ([]byte, error) {
	e.buf.Reset()

	rec := Record{Sid: e.sid, Seq: b.Seq}
	for i, ev := range b.Events {
		rec.T = ev.Time.UnixNano() / 1e6
		rec.Type = WireType(ev.Type)
		rec.I = i
		rec.Record = ev.Record
		if err := e.enc.Encode(&rec); err != nil {
			return nil, err
		}
	}
	return e.buf.Bytes(), nil
}
