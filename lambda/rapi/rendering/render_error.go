// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rendering

import (
	"fmt"
	"net/http"

	"github.com/logstore/lambda-extension/lambda/rapi/model"
)

const (
	// ErrorTypeInternalServerError error type for internal server error
	ErrorTypeInternalServerError = "InternalServerError"
	// ErrorTypeRequestEntityTooLarge error type for payload too large
	ErrorTypeRequestEntityTooLarge = "RequestEntityTooLarge"
	// ErrorTypeServiceUnavailable error type for a receiver that no longer accepts batches
	ErrorTypeServiceUnavailable = "ServiceUnavailable"
)

// RenderForbiddenWithTypeMsg method for rendering error response
func RenderForbiddenWithTypeMsg(w http.ResponseWriter, r *http.Request, errorType string, format string, args ...interface{}) {
	RenderJSON(http.StatusForbidden, w, r, &model.ErrorResponse{
		ErrorType:    errorType,
		ErrorMessage: fmt.Sprintf(format, args...),
	})
}

// RenderBadRequestWithTypeMsg method for rendering error response
func RenderBadRequestWithTypeMsg(w http.ResponseWriter, r *http.Request, errorType string, format string, args ...interface{}) {
	RenderJSON(http.StatusBadRequest, w, r, &model.ErrorResponse{
		ErrorType:    errorType,
		ErrorMessage: fmt.Sprintf(format, args...),
	})
}

// RenderServiceUnavailable method for rendering error response
func RenderServiceUnavailable(w http.ResponseWriter, r *http.Request, format string, args ...interface{}) {
	RenderJSON(http.StatusServiceUnavailable, w, r, &model.ErrorResponse{
		ErrorType:    ErrorTypeServiceUnavailable,
		ErrorMessage: fmt.Sprintf(format, args...),
	})
}

// RenderInternalServerError method for rendering error response
func RenderInternalServerError(w http.ResponseWriter, r *http.Request) {
	RenderJSON(http.StatusInternalServerError, w, r, &model.ErrorResponse{
		ErrorMessage: "Internal Server Error",
		ErrorType:    ErrorTypeInternalServerError,
	})
}

// RenderRequestEntityTooLarge method for rendering error response
func RenderRequestEntityTooLarge(w http.ResponseWriter, r *http.Request, limit int64) {
	RenderJSON(http.StatusRequestEntityTooLarge, w, r, &model.ErrorResponse{
		ErrorMessage: fmt.Sprintf("Exceeded maximum allowed payload size (%d bytes).", limit),
		ErrorType:    ErrorTypeRequestEntityTooLarge,
	})
}

// RenderAccepted method for rendering accepted status response
func RenderAccepted(w http.ResponseWriter, r *http.Request) {
	RenderJSON(http.StatusAccepted, w, r, &model.StatusResponse{Status: "OK"})
}

// RenderOK method for rendering OK status response
func RenderOK(w http.ResponseWriter, r *http.Request) {
	RenderJSON(http.StatusOK, w, r, &model.StatusResponse{Status: "OK"})
}
