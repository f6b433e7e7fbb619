// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression values
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

const writeBufferSize = 64 << 10

// streamCompressor is implemented by gzip.Writer and zstd.Encoder
type streamCompressor interface {
	io.WriteCloser
	Flush() error
}

// connection is the exclusive handle of the delivery client to the
// log-store. Writes go through a buffer and an optional compressor that are
// flushed after every batch.
type connection struct {
	conn       net.Conn
	buf        *bufio.Writer
	compressor streamCompressor
	w          io.Writer
}

func dial(ctx context.Context, dialer *net.Dialer, address, compression string) (*connection, error) {
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("could not TCP dial provided address %s: %w", address, err)
	}

	c := &connection{conn: conn, buf: bufio.NewWriterSize(conn, writeBufferSize)}
	c.w = c.buf

	switch compression {
	case CompressionGzip:
		c.compressor, err = gzip.NewWriterLevel(c.buf, gzip.BestSpeed)
	case CompressionZstd:
		c.compressor, err = zstd.NewWriter(c.buf, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
	case CompressionNone, "":
	default:
		err = fmt.Errorf("unknown compression %q", compression)
	}
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if c.compressor != nil {
		c.w = c.compressor
	}

	return c, nil
}

// write sends data and flushes it to the socket. The write is bounded by
// timeout and aborted as soon as ctx is done.
func (c *connection) write(ctx context.Context, data []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetWriteDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := c.w.Write(data); err != nil {
		return c.writeErr(ctx, err)
	}
	if c.compressor != nil {
		if err := c.compressor.Flush(); err != nil {
			return c.writeErr(ctx, err)
		}
	}
	if err := c.buf.Flush(); err != nil {
		return c.writeErr(ctx, err)
	}
	return nil
}

func (c *connection) writeErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("write interrupted: %w", ctx.Err())
	}
	return fmt.Errorf("write failed: %w", err)
}

// Close ends the compressed stream when possible and closes the socket.
func (c *connection) Close() error {
	if c.compressor != nil {
		_ = c.conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
		if err := c.compressor.Close(); err == nil {
			_ = c.buf.Flush()
		}
	}
	return c.conn.Close()
}
