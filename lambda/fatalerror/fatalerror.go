// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fatalerror

// This package defines the error types reported to the Extensions API in the
// Lambda-Extension-Function-Error-Type header before the extension exits.
// Separate package for namespacing

// ErrorType is reported to the platform on /extension/init/error and /extension/exit/error
type ErrorType string

const (
	ConfigError       ErrorType = "Extension.ConfigError"       // LOG_STORE_ADDRESS missing or malformed
	RegistrationError ErrorType = "Extension.RegistrationError" // /extension/register failed
	SubscriptionError ErrorType = "Extension.SubscriptionError" // Logs API subscription failed
	ListenError       ErrorType = "Extension.ListenError"       // logs receiver could not bind
	NextError         ErrorType = "Extension.NextError"         // /extension/event/next failed
	Unknown           ErrorType = "Extension.Unknown"
)

// ExitCode is the process exit status for a fatal error type.
func (t ErrorType) ExitCode() int {
	if t == "" {
		return 0
	}
	return 1
}
