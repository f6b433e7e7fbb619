// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*
The extension emits only internal logs: its own application logs written to
stdout/stderr for operational use.

The platform captures those lines and, when the "extension" log type is
subscribed, pushes them back to the extension's own receiver. Internal logs
must therefore stay terse on hot paths; repeated delivery warnings are sampled.
*/
package logging
