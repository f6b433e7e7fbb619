// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"io"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// SetOutput configures logging output for standard loggers.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
	logrus.SetOutput(w)
}

// SetLogLevel sets the log level for internal logging. Needs to be called very
// early during startup to configure logs emitted during initialization
func SetLogLevel(logLevel string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return err
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(NewInternalFormatter())
	return nil
}

// NewInternalFormatter returns the formatter for internal logs. Timestamps are
// omitted because the platform stamps every captured line.
func NewInternalFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	}
}

// SampledLogger lets through at most one line per interval (plus burst) and
// counts what it suppressed.
type SampledLogger struct {
	limiter    *rate.Limiter
	suppressed int
}

// NewSampledLogger returns a logger allowing burst lines and then one per interval.
func NewSampledLogger(interval time.Duration, burst int) *SampledLogger {
	return &SampledLogger{limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

// Entry returns an entry to log to, or nil when the line should be dropped.
// Not safe for concurrent use; each owner holds its own SampledLogger.
func (s *SampledLogger) Entry() *logrus.Entry {
	if !s.limiter.Allow() {
		s.suppressed++
		return nil
	}
	entry := logrus.NewEntry(logrus.StandardLogger())
	if s.suppressed > 0 {
		entry = entry.WithField("suppressed", s.suppressed)
		s.suppressed = 0
	}
	return entry
}
