// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/logstore/lambda-extension/lambda/config"
	"github.com/logstore/lambda-extension/lambda/core"
	"github.com/logstore/lambda-extension/lambda/delivery"
	"github.com/logstore/lambda-extension/lambda/extensionapi"
	"github.com/logstore/lambda-extension/lambda/fatalerror"
	"github.com/logstore/lambda-extension/lambda/interop"
	"github.com/logstore/lambda-extension/lambda/logsapi"
	"github.com/logstore/lambda-extension/lambda/queue"
	"github.com/logstore/lambda-extension/lambda/rapi/model"
	"github.com/logstore/lambda-extension/lambda/receiver"
	"github.com/logstore/lambda-extension/lambda/telemetry"
)

const (
	// DrainSafetyMargin is subtracted from the SHUTDOWN deadline so the
	// process exits before the platform freezes it.
	DrainSafetyMargin = 100 * time.Millisecond

	// used when a SHUTDOWN event carries no deadline
	defaultDrainTimeout = 2 * time.Second

	reportErrorTimeout = time.Second
	receiverHost       = "0.0.0.0"
)

// ExtensionsAPI is the part of the Extensions API the driver calls.
type ExtensionsAPI interface {
	Register(ctx context.Context) (string, error)
	Next(ctx context.Context) (*model.NextEvent, error)
	InitError(ctx context.Context, errorType fatalerror.ErrorType, cause error) error
	ExitError(ctx context.Context, errorType fatalerror.ErrorType, cause error) error
}

// LogsAPI subscribes the extension to log streams.
type LogsAPI interface {
	Subscribe(ctx context.Context, id string, sub logsapi.SubscriptionRequest) error
}

// Driver owns the extension state and runs the register, subscribe and
// next loop.
type Driver struct {
	config     *config.Config
	extension  *core.Extension
	extensions ExtensionsAPI
	logs       LogsAPI
	counters   *telemetry.Counters
	queue      *queue.DeliveryQueue
	handler    *receiver.LogsHandler
	receiver   *receiver.Server
	client     *delivery.Client
	drainer    *Drainer
	sid        string
	started    bool
}

// NewDriver wires a driver from cfg.
func NewDriver(cfg *config.Config) *Driver {
	counters := telemetry.NewCounters()
	extension := core.NewExtension(cfg.ExtensionName)
	q := queue.NewDeliveryQueue(cfg.QueueCapacity, cfg.EnqueueTimeout())
	handler := receiver.NewLogsHandler(q, counters, receiver.MaxBodyBytes(cfg.BufferMaxBytes, cfg.BufferMaxItems)).
		WithMaxWait(cfg.EnqueueTimeout())
	server := receiver.NewServer(receiverHost, cfg.ListenPort, extension, handler)

	sid := uuid.New().String()
	client := delivery.NewClient(delivery.Config{
		Address:     cfg.Address,
		Compression: cfg.Compression,
		MaxAttempts: cfg.MaxAttempts,
		Backoff: delivery.Backoff{
			Initial:    cfg.BackoffInitial(),
			Max:        cfg.BackoffMax(),
			Multiplier: delivery.DefaultBackoffMultiplier,
		},
		DialTimeout:  cfg.DialTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}, q, counters, sid)

	return &Driver{
		config:     cfg,
		extension:  extension,
		extensions: extensionapi.NewClient(cfg.RuntimeAPI, cfg.ExtensionName),
		logs:       logsapi.NewClient(cfg.RuntimeAPI),
		counters:   counters,
		queue:      q,
		handler:    handler,
		receiver:   server,
		client:     client,
		drainer:    NewDrainer(server, q, client, counters),
		sid:        sid,
	}
}

// Extension is a read-only view of the extension state.
func (d *Driver) Extension() core.StateReader {
	return d.extension
}

// Counters returns the counters shared by the receiver and delivery client.
func (d *Driver) Counters() *telemetry.Counters {
	return d.counters
}

// Run blocks until the platform sends SHUTDOWN and the queue is drained,
// or until a fatal error occurs. Fatal errors implement interop.FatalError.
func (d *Driver) Run(ctx context.Context) error {
	id, err := d.extensions.Register(ctx)
	if err != nil {
		return err
	}
	if err := d.extension.Register(id); err != nil {
		return err
	}

	if err := d.receiver.Listen(); err != nil {
		return d.initError(&interop.ListenError{Port: d.config.ListenPort, Err: err})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.receiver.Serve(gctx)
	})

	sub := logsapi.NewSubscriptionRequest(d.config.LogTypes, logsapi.BufferingConfig{
		MaxItems:  d.config.BufferMaxItems,
		MaxBytes:  d.config.BufferMaxBytes,
		TimeoutMs: d.config.BufferTimeoutMs,
	}, d.receiver.Port())
	if err := d.logs.Subscribe(gctx, id, sub); err != nil {
		d.stop()
		return d.initError(err)
	}
	if err := d.extension.Subscribe(); err != nil {
		d.stop()
		return err
	}
	log.WithFields(log.Fields{"types": d.config.LogTypes, "port": d.receiver.Port(), "sid": d.sid}).Info("Subscribed to Logs API")

	d.client.Start()
	d.started = true

	err = d.poll(gctx)
	if err != nil {
		d.stop()
		var nextErr *interop.NextError
		if errors.As(err, &nextErr) && ctx.Err() == nil && gctx.Err() == nil {
			d.exitError(nextErr)
		}
	}

	if werr := g.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
		return werr
	}
	d.logSummary()
	return err
}

func (d *Driver) poll(ctx context.Context) error {
	for {
		event, err := d.extensions.Next(ctx)
		if err != nil {
			return err
		}

		switch event.EventType {
		case model.InvokeEventType:
			if err := d.extension.Invoke(); err != nil {
				log.WithError(err).Warnf("INVOKE not allowed in state %s", d.extension.GetState().Name())
			}
			log.WithField("requestId", event.RequestID).Debug("Received INVOKE")

		case model.ShutdownEventType:
			log.WithField("reason", event.ShutdownReason).Info("Received SHUTDOWN")
			if err := d.extension.Shutdown(); err != nil {
				log.WithError(err).Warnf("SHUTDOWN not allowed in state %s", d.extension.GetState().Name())
			}
			d.drainer.Drain(DrainDeadline(event.DeadlineMs, time.Now()))
			if err := d.extension.Terminate(); err != nil {
				log.WithError(err).Warnf("Terminate not allowed in state %s", d.extension.GetState().Name())
			}
			return nil
		}
	}
}

// stop tears down the receiver and delivery client after a fatal error.
// Batches still queued are discarded and counted.
func (d *Driver) stop() {
	if err := d.receiver.Close(); err != nil {
		log.WithError(err).Debug("Error closing logs receiver")
	}
	d.client.Abort()
	if d.started {
		<-d.client.Done()
	}
	d.queue.Close()

	batches, events := d.queue.Discard()
	if batches > 0 {
		d.counters.Add(telemetry.BatchesDiscard, int64(batches))
		d.counters.Add(telemetry.EventsDiscard, int64(events))
		log.WithFields(log.Fields{"batches": batches, "events": events}).Warn("Discarded queued batches")
	}
}

func (d *Driver) initError(err error) error {
	d.report(d.extensions.InitError, err)
	return err
}

func (d *Driver) exitError(err error) {
	d.report(d.extensions.ExitError, err)
}

func (d *Driver) report(send func(context.Context, fatalerror.ErrorType, error) error, err error) {
	errorType := ErrorType(err)
	ctx, cancel := context.WithTimeout(context.Background(), reportErrorTimeout)
	defer cancel()
	if rerr := send(ctx, errorType, err); rerr != nil {
		log.WithError(rerr).Warnf("Failed to report %s", errorType)
	}
}

func (d *Driver) logSummary() {
	log.WithField("lastSeq", d.handler.LastSeq()).Debug("Last batch received")
	d.counters.Log("Extension terminated")
	log.Debug(string(d.extension.GetExtensionDescription().AsJSON()))
}

// DrainDeadline converts a SHUTDOWN deadlineMs into the drain deadline.
func DrainDeadline(deadlineMs int64, now time.Time) time.Time {
	if deadlineMs <= 0 {
		return now.Add(defaultDrainTimeout)
	}
	return time.Unix(0, deadlineMs*int64(time.Millisecond)).Add(-DrainSafetyMargin)
}
