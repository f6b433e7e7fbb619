// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package logsapi subscribes to the Lambda Logs API and decodes the batches
// it pushes.
package logsapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/logstore/lambda-extension/lambda/interop"
	"github.com/logstore/lambda-extension/lambda/rapi/model"
)

const maxErrorBodySize = 4 << 10

// Client is a Logs API client.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient returns a client for the Logs API at runtimeAPI (host:port).
func NewClient(runtimeAPI string) *Client {
	return &Client{
		url:        "http://" + runtimeAPI + model.Version20200815 + "/logs",
		httpClient: &http.Client{},
	}
}

// Subscribe subscribes the extension identified by id. The request is
// validated before it is sent.
func (c *Client) Subscribe(ctx context.Context, id string, sub SubscriptionRequest) error {
	if err := sub.Validate(); err != nil {
		return &interop.SubscriptionError{Err: err}
	}

	body, err := json.Marshal(&sub)
	if err != nil {
		return &interop.SubscriptionError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url, bytes.NewReader(body))
	if err != nil {
		return &interop.SubscriptionError{Err: err}
	}
	req.Header.Set(model.LambdaAgentIdentifier, id)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &interop.SubscriptionError{Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if resp.StatusCode/100 != 2 {
		return &interop.SubscriptionError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", bytes.TrimSpace(respBody))}
	}

	log.WithFields(log.Fields{
		"types":       sub.Categories,
		"destination": sub.Destination.URI,
		"timeoutMs":   sub.Buffering.TimeoutMs,
		"maxBytes":    sub.Buffering.MaxBytes,
		"maxItems":    sub.Buffering.MaxItems,
	}).Info("Logs API subscription created")
	return nil
}
