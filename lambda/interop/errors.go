// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package interop

import (
	"fmt"
	"time"

	"github.com/logstore/lambda-extension/lambda/fatalerror"
)

// FatalError is implemented by errors that terminate the extension.
type FatalError interface {
	error
	ErrorType() fatalerror.ErrorType
}

// ConfigError is returned when the log-store address is absent or malformed.
type ConfigError struct {
	Key   string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config: %s: %s", e.Key, e.Err)
	}
	return fmt.Sprintf("config: %s=%q: %s", e.Key, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) ErrorType() fatalerror.ErrorType { return fatalerror.ConfigError }

// RegistrationError is returned when /extension/register fails.
type RegistrationError struct {
	StatusCode int
	Err        error
}

func (e *RegistrationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("register: status %d: %s", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("register: %s", e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

func (e *RegistrationError) ErrorType() fatalerror.ErrorType { return fatalerror.RegistrationError }

// SubscriptionError is returned when the Logs API subscription fails.
type SubscriptionError struct {
	StatusCode int
	Err        error
}

func (e *SubscriptionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("subscribe: status %d: %s", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("subscribe: %s", e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

func (e *SubscriptionError) ErrorType() fatalerror.ErrorType { return fatalerror.SubscriptionError }

// NextError is returned when /extension/event/next cannot be reached.
type NextError struct {
	StatusCode int
	Err        error
}

func (e *NextError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("next: status %d: %s", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("next: %s", e.Err)
}

func (e *NextError) Unwrap() error { return e.Err }

func (e *NextError) ErrorType() fatalerror.ErrorType { return fatalerror.NextError }

// ReceiveError rejects a single malformed push. The receiver keeps serving.
type ReceiveError struct {
	Reason string
	Err    error
}

func (e *ReceiveError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("receive: %s", e.Reason)
	}
	return fmt.Sprintf("receive: %s: %s", e.Reason, e.Err)
}

func (e *ReceiveError) Unwrap() error { return e.Err }

// DeliveryError is returned when a batch could not be written to the log-store.
type DeliveryError struct {
	Seq      uint64
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver batch %d: %d attempt(s): %s", e.Seq, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// DrainTimeoutError reports batches left undelivered when the shutdown deadline passed.
type DrainTimeoutError struct {
	Deadline  time.Time
	Discarded int
}

func (e *DrainTimeoutError) Error() string {
	return fmt.Sprintf("drain: deadline %s passed, %d batch(es) discarded", e.Deadline.Format(time.RFC3339Nano), e.Discarded)
}

// ListenError is returned when the logs receiver cannot bind its port.
type ListenError struct {
	Port int
	Err  error
}

func (e *ListenError) Error() string {
	return fmt.Sprintf("listen on port %d: %s", e.Port, e.Err)
}

func (e *ListenError) Unwrap() error { return e.Err }

// ErrorType implements FatalError
func (e *ListenError) ErrorType() fatalerror.ErrorType { return fatalerror.ListenError }
