// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Counters is a set of named monotonically increasing counters.
//
// There is no metrics backend in the execution environment; counters are
// surfaced through log lines for external observability.
type Counters struct {
	mu     sync.RWMutex
	values map[string]*int64
}

// NewCounters returns an empty counter set
func NewCounters() *Counters {
	return &Counters{values: make(map[string]*int64)}
}

func (c *Counters) counter(name string) *int64 {
	c.mu.RLock()
	v, ok := c.values[name]
	c.mu.RUnlock()
	if ok {
		return v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok = c.values[name]; !ok {
		v = new(int64)
		c.values[name] = v
	}
	return v
}

// Add increments the named counter by delta.
func (c *Counters) Add(name string, delta int64) {
	atomic.AddInt64(c.counter(name), delta)
}

// Inc increments the named counter by one.
func (c *Counters) Inc(name string) {
	c.Add(name, 1)
}

// Get returns current value of the named counter.
func (c *Counters) Get(name string) int64 {
	return atomic.LoadInt64(c.counter(name))
}

// Snapshot copies all counters.
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int64, len(c.values))
	for name, v := range c.values {
		out[name] = atomic.LoadInt64(v)
	}
	return out
}

// String renders counters as sorted name=value pairs
func (c *Counters) String() string {
	snap := c.Snapshot()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatInt(snap[name], 10))
	}
	return b.String()
}

// Log emits all counters as a single structured log line.
func (c *Counters) Log(msg string) {
	fields := log.Fields{}
	for name, v := range c.Snapshot() {
		fields[name] = v
	}
	log.WithFields(fields).Info(msg)
}
