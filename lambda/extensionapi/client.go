// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package extensionapi is a client of the Lambda Extensions API.
package extensionapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/logstore/lambda-extension/lambda/fatalerror"
	"github.com/logstore/lambda-extension/lambda/interop"
	"github.com/logstore/lambda-extension/lambda/rapi/model"
)

const maxErrorBodySize = 4 << 10

var errMissingIdentifier = errors.New("response has no " + model.LambdaAgentIdentifier + " header")

// Client calls register, next and the error endpoints on behalf of one
// extension.
type Client struct {
	baseURL    string
	name       string
	httpClient *http.Client
	id         string
}

// NewClient returns a client for the Extensions API at runtimeAPI (host:port).
func NewClient(runtimeAPI, name string) *Client {
	return &Client{
		baseURL:    "http://" + runtimeAPI + model.Version20200101,
		name:       name,
		httpClient: &http.Client{},
	}
}

// ID returns the identifier assigned on registration.
func (c *Client) ID() string {
	return c.id
}

// Register registers the extension for INVOKE and SHUTDOWN events and returns
// the identifier issued by the platform.
func (c *Client) Register(ctx context.Context) (string, error) {
	body, err := json.Marshal(&model.RegisterRequest{
		Events: []string{model.InvokeEventType, model.ShutdownEventType},
	})
	if err != nil {
		return "", &interop.RegistrationError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extension/register", bytes.NewReader(body))
	if err != nil {
		return "", &interop.RegistrationError{Err: err}
	}
	req.Header.Set(model.LambdaAgentName, c.name)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &interop.RegistrationError{Err: err}
	}
	defer closeBody(resp)

	if resp.StatusCode/100 != 2 {
		return "", &interop.RegistrationError{StatusCode: resp.StatusCode, Err: readErrorResponse(resp)}
	}

	id := resp.Header.Get(model.LambdaAgentIdentifier)
	if id == "" {
		return "", &interop.RegistrationError{StatusCode: resp.StatusCode, Err: errMissingIdentifier}
	}

	var registered model.ExtensionRegisterResponse
	if err := json.NewDecoder(resp.Body).Decode(&registered); err == nil {
		log.WithFields(log.Fields{
			"functionName":    registered.FunctionName,
			"functionVersion": registered.FunctionVersion,
		}).Debug("Register response")
	}

	c.id = id
	log.WithField("id", id).Infof("Extension %s registered", c.name)
	return id, nil
}

// Next blocks until the platform delivers the next event.
func (c *Client) Next(ctx context.Context) (*model.NextEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/extension/event/next", nil)
	if err != nil {
		return nil, &interop.NextError{Err: err}
	}
	req.Header.Set(model.LambdaAgentIdentifier, c.id)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &interop.NextError{Err: err}
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, &interop.NextError{StatusCode: resp.StatusCode, Err: readErrorResponse(resp)}
	}

	var event model.NextEvent
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return nil, &interop.NextError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode event: %w", err)}
	}

	switch event.EventType {
	case model.InvokeEventType, model.ShutdownEventType:
	default:
		return nil, &interop.NextError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unknown event type %q", event.EventType)}
	}

	return &event, nil
}

// InitError reports a failure that happened before the first next call.
func (c *Client) InitError(ctx context.Context, errorType fatalerror.ErrorType, cause error) error {
	return c.reportError(ctx, "/extension/init/error", errorType, cause)
}

// ExitError reports a failure that happened after the first next call.
func (c *Client) ExitError(ctx context.Context, errorType fatalerror.ErrorType, cause error) error {
	return c.reportError(ctx, "/extension/exit/error", errorType, cause)
}

func (c *Client) reportError(ctx context.Context, path string, errorType fatalerror.ErrorType, cause error) error {
	body, err := json.Marshal(&model.ErrorResponse{
		ErrorMessage: cause.Error(),
		ErrorType:    string(errorType),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set(model.LambdaAgentIdentifier, c.id)
	req.Header.Set(model.LambdaAgentFunctionErrorType, string(errorType))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s: status %d: %w", path, resp.StatusCode, readErrorResponse(resp))
	}
	return nil
}

func readErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return fmt.Errorf("could not read response body: %w", err)
	}

	var errResp model.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.ErrorType != "" {
		return fmt.Errorf("%s: %s", errResp.ErrorType, errResp.ErrorMessage)
	}
	if len(body) == 0 {
		return errors.New(http.StatusText(resp.StatusCode))
	}
	return errors.New(string(body))
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	if err := resp.Body.Close(); err != nil {
		log.WithError(err).Warn("could not close response body")
	}
}
