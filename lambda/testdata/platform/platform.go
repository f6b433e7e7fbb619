// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package platform is a fake of the Extensions and Logs APIs for tests. It
// hands out queued INVOKE and SHUTDOWN events and pushes log batches to the
// subscribed destination.
package platform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/logstore/lambda-extension/lambda/logsapi"
	"github.com/logstore/lambda-extension/lambda/rapi/middleware"
	"github.com/logstore/lambda-extension/lambda/rapi/model"
)

// ReportedError is a call to /extension/init/error or /extension/exit/error.
type ReportedError struct {
	Path      string
	ErrorType string
	Message   string
}

// Platform is a fake Lambda platform.
type Platform struct {
	server *httptest.Server
	events chan interface{}
	closed chan struct{}

	mu              sync.Mutex
	extensionName   string
	extensionID     uuid.UUID
	subscription    *logsapi.SubscriptionRequest
	subscribed      chan struct{}
	reported        []ReportedError
	failNext        bool
	rejectRegister  bool
	rejectSubscribe bool
	closeOnce       sync.Once
	pushClient      *http.Client
}

// New starts a fake platform on a random loopback port.
func New() *Platform {
	p := &Platform{
		events:     make(chan interface{}, 64),
		closed:     make(chan struct{}),
		subscribed: make(chan struct{}),
		pushClient: &http.Client{Timeout: 5 * time.Second},
	}
	p.server = httptest.NewServer(p.router())
	return p
}

func (p *Platform) router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.AccessLogMiddleware())

	router.Post(model.Version20200101+"/extension/register", p.register)
	router.Get(model.Version20200101+"/extension/event/next",
		middleware.AgentUniqueIdentifierHeaderValidator(http.HandlerFunc(p.next)).ServeHTTP)
	router.Post(model.Version20200101+"/extension/init/error",
		middleware.AgentUniqueIdentifierHeaderValidator(http.HandlerFunc(p.reportError)).ServeHTTP)
	router.Post(model.Version20200101+"/extension/exit/error",
		middleware.AgentUniqueIdentifierHeaderValidator(http.HandlerFunc(p.reportError)).ServeHTTP)
	router.Put(model.Version20200815+"/logs",
		middleware.AgentUniqueIdentifierHeaderValidator(http.HandlerFunc(p.subscribe)).ServeHTTP)

	return router
}

// Addr is the host:port to use as AWS_LAMBDA_RUNTIME_API.
func (p *Platform) Addr() string {
	return strings.TrimPrefix(p.server.URL, "http://")
}

// Close unblocks pending next calls and stops the server.
func (p *Platform) Close() {
	p.closeOnce.Do(func() { close(p.closed) })
	p.server.Close()
}

// QueueInvoke queues an INVOKE event.
func (p *Platform) QueueInvoke(requestID string) {
	p.events <- &model.AgentInvokeEvent{
		AgentEvent:         &model.AgentEvent{EventType: model.InvokeEventType, DeadlineMs: time.Now().Add(3*time.Second).UnixNano() / 1e6},
		RequestID:          requestID,
		InvokedFunctionArn: "arn:aws:lambda:us-east-1:123456789012:function:test",
	}
}

// QueueShutdown queues a SHUTDOWN event with the given deadline.
func (p *Platform) QueueShutdown(reason string, deadline time.Time) {
	p.events <- &model.AgentShutdownEvent{
		AgentEvent:     &model.AgentEvent{EventType: model.ShutdownEventType, DeadlineMs: deadline.UnixNano() / 1e6},
		ShutdownReason: reason,
	}
}

// FailNext makes every following next call fail with 500.
func (p *Platform) FailNext() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = true
}

// RejectRegister makes registration fail with 403.
func (p *Platform) RejectRegister() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejectRegister = true
}

// RejectSubscribe makes the Logs API subscription fail with 400.
func (p *Platform) RejectSubscribe() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejectSubscribe = true
}

// ExtensionName returns the name the extension registered with.
func (p *Platform) ExtensionName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.extensionName
}

// ExtensionID returns the identifier minted on registration.
func (p *Platform) ExtensionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.extensionID == uuid.Nil {
		return ""
	}
	return p.extensionID.String()
}

// Subscription returns the accepted subscription, if any.
func (p *Platform) Subscription() (logsapi.SubscriptionRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subscription == nil {
		return logsapi.SubscriptionRequest{}, false
	}
	return *p.subscription, true
}

// WaitForSubscription blocks until the extension subscribed or timeout passes.
func (p *Platform) WaitForSubscription(timeout time.Duration) bool {
	select {
	case <-p.subscribed:
		return true
	case <-time.After(timeout):
		return false
	}
}

// ReportedErrors returns init and exit errors reported so far.
func (p *Platform) ReportedErrors() []ReportedError {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ReportedError, len(p.reported))
	copy(out, p.reported)
	return out
}

// Push sends events to the subscribed destination the way the Logs API
// does and returns the HTTP status of the response.
func (p *Platform) Push(events ...logsapi.PushedEvent) (int, error) {
	sub, ok := p.Subscription()
	if !ok {
		return 0, errors.New("no subscription")
	}

	addr, err := destinationAddr(sub.Destination.URI)
	if err != nil {
		return 0, err
	}

	if events == nil {
		events = []logsapi.PushedEvent{}
	}
	body, err := json.Marshal(events)
	if err != nil {
		return 0, err
	}

	resp, err := p.pushClient.Post(addr, "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// FunctionLine builds a function log event.
func FunctionLine(ts time.Time, line string) logsapi.PushedEvent {
	record, _ := json.Marshal(line)
	return logsapi.PushedEvent{Time: ts.UTC().Format(time.RFC3339Nano), Type: logsapi.TypeFunction, Record: record}
}

// PlatformEvent builds a platform log event with an object record.
func PlatformEvent(ts time.Time, eventType string, record interface{}) logsapi.PushedEvent {
	raw, _ := json.Marshal(record)
	return logsapi.PushedEvent{Time: ts.UTC().Format(time.RFC3339Nano), Type: eventType, Record: raw}
}

// sandbox.localdomain resolves to the execution environment, which is the
// loopback interface here.
func destinationAddr(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("could not parse destination.URI: %w", err)
	}
	if u.Hostname() != logsapi.SandboxLocalDomain && u.Hostname() != "sandbox" {
		return "", fmt.Errorf("destination.URI host must be %s", logsapi.SandboxLocalDomain)
	}
	return "http://127.0.0.1:" + u.Port() + "/", nil
}
