// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package model

// API versions
const (
	Version20200101 = "/2020-01-01"
	Version20200815 = "/2020-08-15"
)

// Headers
const (
	LambdaAgentName              string = "Lambda-Extension-Name"
	LambdaAgentIdentifier        string = "Lambda-Extension-Identifier"
	LambdaAgentFunctionErrorType string = "Lambda-Extension-Function-Error-Type"
	LambdaAgentEventIdentifier   string = "Lambda-Extension-Event-Identifier"
)

// Error types returned by the Extensions and Logs APIs
const (
	ErrAgentIdentifierMissing  string = "Extension.MissingExtensionIdentifier"
	ErrAgentIdentifierInvalid  string = "Extension.InvalidExtensionIdentifier"
	ErrAgentIdentifierUnknown  string = "Extension.UnknownExtensionIdentifier"
	ErrAgentNameInvalid        string = "Extension.InvalidExtensionName"
	ErrAgentInvalidState       string = "Extension.InvalidExtensionState"
	ErrAgentMissingHeader      string = "Extension.MissingHeader"
	ErrInvalidEventType        string = "Extension.InvalidEventType"
	ErrInvalidRequestFormat    string = "InvalidRequestFormat"
	ErrLogsSubscriptionInvalid string = "Logs.ValidationError"
)

type CtxKey int

const (
	AgentIDCtxKey CtxKey = iota
)
