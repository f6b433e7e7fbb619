// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the extension configuration from the environment.
// Every option can also be given as a command line flag for local runs.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/logstore/lambda-extension/lambda/delivery"
	"github.com/logstore/lambda-extension/lambda/interop"
)

// Environment variable names
const (
	AddressEnvVar     = "LOG_STORE_ADDRESS"
	RuntimeAPIEnvVar  = "AWS_LAMBDA_RUNTIME_API"
	CompressionEnvVar = "LOG_STORE_COMPRESSION"
	LogTypesEnvVar    = "LOG_STORE_LOG_TYPES"
)

var (
	errMissing   = errors.New("must be set")
	errLogType   = errors.New("log types must be platform, function or extension")
	errPort      = errors.New("port must be a number between 1 and 65535")
	errHost      = errors.New("host must not be empty")
	errPositive  = errors.New("must be positive")
	errNoLogType = errors.New("at least one log type is required")
)

// Config is the extension configuration.
type Config struct {
	Address       string `long:"address" env:"LOG_STORE_ADDRESS" description:"log-store host:port"`
	RuntimeAPI    string `long:"runtime-api" env:"AWS_LAMBDA_RUNTIME_API" description:"Extensions and Logs API host:port"`
	ExtensionName string `long:"extension-name" env:"LOG_STORE_EXTENSION_NAME" description:"name to register with, defaults to the executable name"`

	ListenPort int      `long:"listen-port" env:"LOG_STORE_LISTEN_PORT" default:"9002" description:"port of the Logs API push listener"`
	LogTypes   []string `long:"log-types" env:"LOG_STORE_LOG_TYPES" env-delim:"," default:"platform" default:"function" description:"log streams to subscribe to"`

	BufferTimeoutMs int `long:"buffer-timeout-ms" env:"LOG_STORE_BUFFER_TIMEOUT_MS" default:"25" description:"Logs API buffering timeoutMs"`
	BufferMaxBytes  int `long:"buffer-max-bytes" env:"LOG_STORE_BUFFER_MAX_BYTES" default:"262144" description:"Logs API buffering maxBytes"`
	BufferMaxItems  int `long:"buffer-max-items" env:"LOG_STORE_BUFFER_MAX_ITEMS" default:"1000" description:"Logs API buffering maxItems"`

	QueueCapacity    int `long:"queue-capacity" env:"LOG_STORE_QUEUE_CAPACITY" default:"128" description:"batches held between receiver and delivery"`
	EnqueueTimeoutMs int `long:"enqueue-timeout-ms" env:"LOG_STORE_ENQUEUE_TIMEOUT_MS" default:"500" description:"how long a push waits for queue room before it is dropped"`

	MaxAttempts      int    `long:"max-attempts" env:"LOG_STORE_MAX_ATTEMPTS" default:"5" description:"send attempts per batch"`
	BackoffInitialMs int    `long:"backoff-initial-ms" env:"LOG_STORE_BACKOFF_INITIAL_MS" default:"50" description:"first retry delay"`
	BackoffMaxMs     int    `long:"backoff-max-ms" env:"LOG_STORE_BACKOFF_MAX_MS" default:"2000" description:"retry delay cap"`
	DialTimeoutMs    int    `long:"dial-timeout-ms" env:"LOG_STORE_DIAL_TIMEOUT_MS" default:"1000" description:"log-store dial timeout"`
	WriteTimeoutMs   int    `long:"write-timeout-ms" env:"LOG_STORE_WRITE_TIMEOUT_MS" default:"2000" description:"log-store write timeout per batch"`
	Compression      string `long:"compression" env:"LOG_STORE_COMPRESSION" default:"none" description:"log-store stream compression: none, gzip or zstd"`

	LogLevel string `long:"log-level" env:"LOG_STORE_LOG_LEVEL" default:"info" description:"log level"`
}

// Load parses args and the environment. Flags take precedence over
// environment variables.
func Load(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, &interop.ConfigError{Key: "args", Err: err}
	}

	if cfg.ExtensionName == "" {
		cfg.ExtensionName = filepath.Base(os.Args[0])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration and returns an *interop.ConfigError
// naming the first offending variable.
func (c *Config) Validate() error {
	if c.Address == "" {
		return &interop.ConfigError{Key: AddressEnvVar, Err: errMissing}
	}
	if err := validateHostPort(c.Address); err != nil {
		return &interop.ConfigError{Key: AddressEnvVar, Value: c.Address, Err: err}
	}

	if c.RuntimeAPI == "" {
		return &interop.ConfigError{Key: RuntimeAPIEnvVar, Err: errMissing}
	}

	switch c.Compression {
	case delivery.CompressionNone, delivery.CompressionGzip, delivery.CompressionZstd:
	default:
		return &interop.ConfigError{Key: CompressionEnvVar, Value: c.Compression,
			Err: fmt.Errorf("unknown compression, expected %s, %s or %s", delivery.CompressionNone, delivery.CompressionGzip, delivery.CompressionZstd)}
	}

	if len(c.LogTypes) == 0 {
		return &interop.ConfigError{Key: LogTypesEnvVar, Err: errNoLogType}
	}
	for _, t := range c.LogTypes {
		switch t {
		case "platform", "function", "extension":
		default:
			return &interop.ConfigError{Key: LogTypesEnvVar, Value: strings.Join(c.LogTypes, ","), Err: errLogType}
		}
	}

	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return &interop.ConfigError{Key: "LOG_STORE_LISTEN_PORT", Value: strconv.Itoa(c.ListenPort), Err: errPort}
	}

	positive := []struct {
		key   string
		value int
	}{
		{"LOG_STORE_QUEUE_CAPACITY", c.QueueCapacity},
		{"LOG_STORE_MAX_ATTEMPTS", c.MaxAttempts},
		{"LOG_STORE_BACKOFF_INITIAL_MS", c.BackoffInitialMs},
		{"LOG_STORE_BACKOFF_MAX_MS", c.BackoffMaxMs},
		{"LOG_STORE_DIAL_TIMEOUT_MS", c.DialTimeoutMs},
		{"LOG_STORE_WRITE_TIMEOUT_MS", c.WriteTimeoutMs},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return &interop.ConfigError{Key: p.key, Value: strconv.Itoa(p.value), Err: errPositive}
		}
	}

	return nil
}

func validateHostPort(address string) error {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if host == "" {
		return errHost
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return errPort
	}
	return nil
}

// EnqueueTimeout ...
func (c *Config) EnqueueTimeout() time.Duration { return ms(c.EnqueueTimeoutMs) }

// BackoffInitial ...
func (c *Config) BackoffInitial() time.Duration { return ms(c.BackoffInitialMs) }

// BackoffMax ...
func (c *Config) BackoffMax() time.Duration { return ms(c.BackoffMaxMs) }

// DialTimeout ...
func (c *Config) DialTimeout() time.Duration { return ms(c.DialTimeoutMs) }

// WriteTimeout ...
func (c *Config) WriteTimeout() time.Duration { return ms(c.WriteTimeoutMs) }

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
