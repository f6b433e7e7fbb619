// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"errors"

	"github.com/logstore/lambda-extension/lambda/config"
	"github.com/logstore/lambda-extension/lambda/fatalerror"
	"github.com/logstore/lambda-extension/lambda/interop"
)

// Run builds a driver from cfg and runs it until shutdown.
func Run(ctx context.Context, cfg *config.Config) error {
	return NewDriver(cfg).Run(ctx)
}

// ErrorType returns the fatal error type carried by err, Unknown for any
// other error and "" for nil.
func ErrorType(err error) fatalerror.ErrorType {
	if err == nil {
		return ""
	}
	var fatal interop.FatalError
	if errors.As(err, &fatal) {
		return fatal.ErrorType()
	}
	return fatalerror.Unknown
}

// ExitCode is the process exit status for the outcome of Run.
func ExitCode(err error) int {
	return ErrorType(err).ExitCode()
}
