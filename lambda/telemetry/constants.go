// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package telemetry

const (
	// Receiver
	PushesAccepted  = "logs_receiver_pushes_accepted"
	PushesRejected  = "logs_receiver_pushes_rejected"
	EventsReceived  = "logs_receiver_events_received"
	BatchesDropped  = "logs_queue_batches_dropped"
	EventsDropped   = "logs_queue_events_dropped"
	BatchesDiscard  = "logs_queue_batches_discarded"
	EventsDiscard   = "logs_queue_events_discarded"
	ReceiverClosed  = "logs_receiver_closed_rejections"
	PushesTooLarge  = "logs_receiver_pushes_too_large"
	PushesMalformed = "logs_receiver_pushes_malformed"

	// Delivery
	BatchesDelivered = "logstore_batches_delivered"
	EventsDelivered  = "logstore_events_delivered"
	BatchesFailed    = "logstore_batches_failed"
	EventsFailed     = "logstore_events_failed"
	SendAttempts     = "logstore_send_attempts"
	Reconnects       = "logstore_reconnects"
)
