// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*
Package rendering writes JSON responses shared by the push receiver and the
test platform.

Every error is rendered as model.ErrorResponse:

	{"errorMessage": "...", "errorType": "..."}
*/
package rendering
