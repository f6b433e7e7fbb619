// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package model

// Event types an extension can register for
const (
	InvokeEventType   = "INVOKE"
	ShutdownEventType = "SHUTDOWN"
)

// AgentEvent is one of INVOKE, SHUTDOWN agent events
type AgentEvent struct {
	EventType  string `json:"eventType"`
	DeadlineMs int64  `json:"deadlineMs"`
}

// AgentInvokeEvent is the response to agent's get next request
type AgentInvokeEvent struct {
	*AgentEvent
	RequestID          string   `json:"requestId"`
	InvokedFunctionArn string   `json:"invokedFunctionArn"`
	Tracing            *Tracing `json:"tracing,omitempty"`
}

// AgentShutdownEvent is the response to agent's get next request
type AgentShutdownEvent struct {
	*AgentEvent
	ShutdownReason string `json:"shutdownReason"`
}

// NextEvent is what an extension decodes a get next response into,
// either event shape fits.
type NextEvent struct {
	EventType          string   `json:"eventType"`
	DeadlineMs         int64    `json:"deadlineMs"`
	RequestID          string   `json:"requestId,omitempty"`
	InvokedFunctionArn string   `json:"invokedFunctionArn,omitempty"`
	Tracing            *Tracing `json:"tracing,omitempty"`
	ShutdownReason     string   `json:"shutdownReason,omitempty"`
}

// RegisterRequest represent /extension/register JSON body
type RegisterRequest struct {
	Events []string `json:"events"`
}

// ExtensionRegisterResponse is the body of a successful /extension/register
type ExtensionRegisterResponse struct {
	FunctionName    string `json:"functionName"`
	FunctionVersion string `json:"functionVersion"`
	Handler         string `json:"handler"`
}
