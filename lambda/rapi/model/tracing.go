// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package model

type TracingType string

const (
	// XRayTracingType represents an X-Ray Tracing object type
	XRayTracingType TracingType = "X-Amzn-Trace-Id"
)

// Tracing object returned as part of agent Invoke event
type Tracing struct {
	Type  TracingType `json:"type"`
	Value string      `json:"value"`
}

// NewXRayTracing returns a new Tracing object with specified value
func NewXRayTracing(value string) *Tracing {
	if len(value) == 0 {
		return nil
	}
	return &Tracing{Type: XRayTracingType, Value: value}
}
