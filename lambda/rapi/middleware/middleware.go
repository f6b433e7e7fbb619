// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/logstore/lambda-extension/lambda/core"
	"github.com/logstore/lambda-extension/lambda/rapi/model"
	"github.com/logstore/lambda-extension/lambda/rapi/rendering"
)

// AgentUniqueIdentifierHeaderValidator validates that the request contains a valid agent unique identifier in the headers
func AgentUniqueIdentifierHeaderValidator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agentIdentifier := r.Header.Get(model.LambdaAgentIdentifier)
		if len(agentIdentifier) == 0 {
			rendering.RenderForbiddenWithTypeMsg(w, r, model.ErrAgentIdentifierMissing, "Missing Lambda-Extension-Identifier header")
			return
		}
		agentID, e := uuid.Parse(agentIdentifier)
		if e != nil {
			rendering.RenderForbiddenWithTypeMsg(w, r, model.ErrAgentIdentifierInvalid, "Invalid Lambda-Extension-Identifier")
			return
		}

		r = r.WithContext(context.WithValue(r.Context(), model.AgentIDCtxKey, agentID))
		next.ServeHTTP(w, r)
	})
}

// AccessLogMiddleware writes api access log.
func AccessLogMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			log.Debug("API request - ", r.Method, " ", r.URL, ", Headers:", r.Header)
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// AllowIfAcceptingLogs rejects requests with 503 once the extension is
// draining or terminated.
func AllowIfAcceptingLogs(state core.StateReader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if !state.AcceptsLogs() {
				rendering.RenderServiceUnavailable(w, r, "Extension is %s", state.GetState().Name())
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
