// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*
Package lifecycle drives the extension through its states.

	Unregistered -> Registered -> Subscribed -> Polling -> Draining -> Terminated

The Driver registers, starts the logs receiver, subscribes to the Logs API
and then blocks in next on the calling goroutine. The receiver serves pushes
on its own goroutines and the delivery client consumes the queue on one
more. On SHUTDOWN the Drainer flushes what is queued before the deadline.
*/
package lifecycle
