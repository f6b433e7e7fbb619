// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package rendering

import (
	"net/http"

	"github.com/go-chi/render"
)

// RenderJSON:
// - marshals 'v' to JSON, automatically escaping HTML
// - sets the Content-Type as application/json
// - sets the HTTP response status code
func RenderJSON(status int, w http.ResponseWriter, r *http.Request, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
