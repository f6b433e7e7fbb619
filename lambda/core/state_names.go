// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

// String values of possible extension states
const (
	ExtensionUnregisteredStateName = "Unregistered"
	ExtensionRegisteredStateName   = "Registered"
	ExtensionSubscribedStateName   = "Subscribed"
	ExtensionPollingStateName      = "Polling"
	ExtensionDrainingStateName     = "Draining"
	ExtensionTerminatedStateName   = "Terminated"
)
