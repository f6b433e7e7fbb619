// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package logsapi

import (
	"fmt"
	"strconv"
)

// SchemaVersion of the subscription request
const SchemaVersion = "2021-03-18"

// SandboxLocalDomain is the host the platform resolves to the execution environment
const SandboxLocalDomain = "sandbox.localdomain"

type Protocol = string

const (
	ProtocolTCP  Protocol = "TCP"
	ProtocolHTTP Protocol = "HTTP"
)

type EventCategory = string

const (
	CategoryPlatform  EventCategory = "platform"
	CategoryFunction  EventCategory = "function"
	CategoryExtension EventCategory = "extension"
)

type EventType = string

const (
	TypePlatformStart       EventType = "platform.start"
	TypePlatformEnd         EventType = "platform.end"
	TypePlatformReport      EventType = "platform.report"
	TypePlatformFault       EventType = "platform.fault"
	TypePlatformExtension   EventType = "platform.extension"
	TypePlatformLogsDropped EventType = "platform.logsDropped"
	TypePlatformRuntimeDone EventType = "platform.runtimeDone"
	TypeFunction            EventType = CategoryFunction
	TypeExtension           EventType = CategoryExtension
)

// Buffering limits enforced by the Logs API
const (
	MinTimeoutMs = 25
	MaxTimeoutMs = 30000
	MinMaxBytes  = 262144
	MaxMaxBytes  = 1048576
	MinMaxItems  = 1000
	MaxMaxItems  = 10000
)

type SubscriptionDestination struct {
	Protocol Protocol `json:"protocol"`
	URI      string   `json:"URI,omitempty"`
	Port     uint16   `json:"port,omitempty"`
}

type BufferingConfig struct {
	MaxItems  int `json:"maxItems"`
	MaxBytes  int `json:"maxBytes"`
	TimeoutMs int `json:"timeoutMs"`
}

// Validate checks the buffering against the Logs API limits.
func (b BufferingConfig) Validate() error {
	if b.TimeoutMs < MinTimeoutMs || b.TimeoutMs > MaxTimeoutMs {
		return fmt.Errorf("buffering.timeoutMs %d outside [%d, %d]", b.TimeoutMs, MinTimeoutMs, MaxTimeoutMs)
	}
	if b.MaxBytes < MinMaxBytes || b.MaxBytes > MaxMaxBytes {
		return fmt.Errorf("buffering.maxBytes %d outside [%d, %d]", b.MaxBytes, MinMaxBytes, MaxMaxBytes)
	}
	if b.MaxItems < MinMaxItems || b.MaxItems > MaxMaxItems {
		return fmt.Errorf("buffering.maxItems %d outside [%d, %d]", b.MaxItems, MinMaxItems, MaxMaxItems)
	}
	return nil
}

type SubscriptionRequest struct {
	SchemaVersion string                  `json:"schemaVersion"`
	Categories    []EventCategory         `json:"types"`
	Buffering     BufferingConfig         `json:"buffering"`
	Destination   SubscriptionDestination `json:"destination"`
}

// NewSubscriptionRequest returns an HTTP subscription delivering to port on
// the sandbox domain.
func NewSubscriptionRequest(categories []EventCategory, buffering BufferingConfig, port int) SubscriptionRequest {
	return SubscriptionRequest{
		SchemaVersion: SchemaVersion,
		Categories:    categories,
		Buffering:     buffering,
		Destination: SubscriptionDestination{
			Protocol: ProtocolHTTP,
			URI:      "http://" + SandboxLocalDomain + ":" + strconv.Itoa(port),
		},
	}
}

// Validate checks the request before it is sent.
func (r SubscriptionRequest) Validate() error {
	if len(r.Categories) == 0 {
		return fmt.Errorf("types must not be empty")
	}
	for _, c := range r.Categories {
		switch c {
		case CategoryPlatform, CategoryFunction, CategoryExtension:
		default:
			return fmt.Errorf("unknown log type %q", c)
		}
	}
	if r.Destination.Protocol != ProtocolHTTP && r.Destination.Protocol != ProtocolTCP {
		return fmt.Errorf("unknown destination protocol %q", r.Destination.Protocol)
	}
	return r.Buffering.Validate()
}
