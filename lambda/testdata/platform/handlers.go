// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/logstore/lambda-extension/lambda/logsapi"
	"github.com/logstore/lambda-extension/lambda/rapi/model"
	"github.com/logstore/lambda-extension/lambda/rapi/rendering"
)

func (p *Platform) register(w http.ResponseWriter, r *http.Request) {
	name := r.Header.Get(model.LambdaAgentName)
	if name == "" {
		rendering.RenderForbiddenWithTypeMsg(w, r, model.ErrAgentNameInvalid, "Empty extension name")
		return
	}

	var req model.RegisterRequest
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		rendering.RenderForbiddenWithTypeMsg(w, r, model.ErrInvalidRequestFormat, "%s", err)
		return
	}
	for _, e := range req.Events {
		if e != model.InvokeEventType && e != model.ShutdownEventType {
			rendering.RenderForbiddenWithTypeMsg(w, r, model.ErrInvalidEventType, "%s: unknown event", e)
			return
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rejectRegister {
		rendering.RenderForbiddenWithTypeMsg(w, r, model.ErrAgentInvalidState, "Extension registration closed already")
		return
	}
	if p.extensionID != uuid.Nil {
		rendering.RenderForbiddenWithTypeMsg(w, r, model.ErrAgentInvalidState, "Extension with this name already registered")
		return
	}

	p.extensionName = name
	p.extensionID = uuid.New()
	w.Header().Set(model.LambdaAgentIdentifier, p.extensionID.String())
	rendering.RenderJSON(http.StatusOK, w, r, &model.ExtensionRegisterResponse{
		FunctionName:    "test",
		FunctionVersion: "$LATEST",
		Handler:         "index.handler",
	})
	log.Debugf("External agent %s registered", name)
}

func (p *Platform) knownAgent(w http.ResponseWriter, r *http.Request) bool {
	agentID, ok := r.Context().Value(model.AgentIDCtxKey).(uuid.UUID)
	if !ok {
		rendering.RenderInternalServerError(w, r)
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if agentID != p.extensionID {
		rendering.RenderForbiddenWithTypeMsg(w, r, model.ErrAgentIdentifierUnknown, "Unknown extension %s", agentID)
		return false
	}
	return true
}

func (p *Platform) next(w http.ResponseWriter, r *http.Request) {
	if !p.knownAgent(w, r) {
		return
	}

	p.mu.Lock()
	fail := p.failNext
	p.mu.Unlock()
	if fail {
		rendering.RenderInternalServerError(w, r)
		return
	}

	select {
	case event := <-p.events:
		w.Header().Set(model.LambdaAgentEventIdentifier, uuid.New().String())
		rendering.RenderJSON(http.StatusOK, w, r, event)
	case <-p.closed:
		rendering.RenderInternalServerError(w, r)
	case <-r.Context().Done():
	}
}

func (p *Platform) reportError(w http.ResponseWriter, r *http.Request) {
	if !p.knownAgent(w, r) {
		return
	}

	errorType := r.Header.Get(model.LambdaAgentFunctionErrorType)
	if errorType == "" {
		rendering.RenderForbiddenWithTypeMsg(w, r, model.ErrAgentMissingHeader, "%s not found", model.LambdaAgentFunctionErrorType)
		return
	}

	var body model.ErrorResponse
	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &body)

	p.mu.Lock()
	p.reported = append(p.reported, ReportedError{Path: r.URL.Path, ErrorType: errorType, Message: body.ErrorMessage})
	p.mu.Unlock()

	rendering.RenderAccepted(w, r)
}

func (p *Platform) subscribe(w http.ResponseWriter, r *http.Request) {
	if !p.knownAgent(w, r) {
		return
	}

	var req logsapi.SubscriptionRequest
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(body, &req)
	}
	if err == nil {
		err = req.Validate()
	}
	if err == nil {
		_, err = destinationAddr(req.Destination.URI)
	}
	if err != nil {
		rendering.RenderBadRequestWithTypeMsg(w, r, model.ErrLogsSubscriptionInvalid, "%s", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rejectSubscribe {
		rendering.RenderBadRequestWithTypeMsg(w, r, model.ErrLogsSubscriptionInvalid, "Logs API subscription is closed")
		return
	}
	if p.subscription == nil {
		close(p.subscribed)
	}
	p.subscription = &req
	rendering.RenderOK(w, r)
}
