// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*
Package core provides the extension state object.

# States

Extension implements state object design pattern. Each state accepts the
transitions that are legal from it and answers ErrNotAllowed to the rest.

	Unregistered -> Registered -> Subscribed -> Polling -> Draining -> Terminated
	                                   |                      ^
	                                   +----------------------+

Extension state interface:

	type ExtensionState interface {
		Register() error
		Subscribe() error
		Invoke() error
		Shutdown() error
		Terminate() error
		Name() string
	}

Only the lifecycle driver mutates the Extension. Other components read it
through StateReader.
*/
package core
