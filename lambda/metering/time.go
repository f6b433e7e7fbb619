// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metering

import (
	"time"
)

// Monotime returns the current time in nanoseconds.
func Monotime() int64 {
	// Wall and monotonic clocks get out of sync inside docker: https://github.com/golang/go/issues/27090
	return time.Now().UnixNano()
}

// DrainDurationProfiler measures a drain against the time the platform
// left for it.
type DrainDurationProfiler struct {
	AvailableNs  int64
	drainStartNs int64
	drainEndNs   int64
}

// NewDrainDurationProfiler returns a profiler for a drain that must finish
// by deadline.
func NewDrainDurationProfiler(deadline time.Time) *DrainDurationProfiler {
	return &DrainDurationProfiler{AvailableNs: time.Until(deadline).Nanoseconds()}
}

func (p *DrainDurationProfiler) Start() {
	p.drainStartNs = Monotime()
}

func (p *DrainDurationProfiler) Stop() {
	p.drainEndNs = Monotime()
}

// CalculateDrainMs returns the drain duration in milliseconds, capped at the
// available time, and whether the drain ran out of time.
func (p *DrainDurationProfiler) CalculateDrainMs() (int64, bool) {
	var drainDurationNs = p.drainEndNs - p.drainStartNs
	var drainMs int64
	timedOut := false

	if p.AvailableNs <= 0 {
		drainMs = 0
		timedOut = true
	} else if drainDurationNs < 0 {
		drainMs = 0
	} else if drainDurationNs >= p.AvailableNs {
		drainMs = p.AvailableNs / time.Millisecond.Nanoseconds()
		timedOut = true
	} else {
		drainMs = drainDurationNs / time.Millisecond.Nanoseconds()
	}

	return drainMs, timedOut
}
