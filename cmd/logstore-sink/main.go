// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Simple testing utility that stands in for the log-store: it accepts the
// extension's TCP stream and prints every record it receives.
package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/jessevdk/go-flags"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
)

const maxLineSize = 4 << 20

type options struct {
	Port        int    `long:"port" default:"9999" description:"TCP port to accept the log stream on"`
	StatsPort   int    `long:"stats-port" default:"0" description:"HTTP port serving GET /stats, disabled when 0"`
	Compression string `long:"compression" default:"none" choice:"none" choice:"gzip" choice:"zstd" description:"stream compression"`
	LogLevel    string `long:"log-level" default:"info" description:"log level"`
}

type sink struct {
	compression string
	out         io.Writer
	outMu       sync.Mutex

	connections int64
	records     int64
}

type stats struct {
	Connections int64 `json:"connections"`
	Records     int64 `json:"records"`
}

func main() {
	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		os.Exit(1)
	}

	level, err := log.ParseLevel(opts.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("Invalid log level")
	}
	log.SetLevel(level)

	s := newSink(opts.Compression, os.Stdout)

	if opts.StatsPort != 0 {
		go func() {
			addr := fmt.Sprintf(":%d", opts.StatsPort)
			if err := http.ListenAndServe(addr, s.router()); err != nil {
				log.WithError(err).Fatal("Stats server failed")
			}
		}()
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", opts.Port))
	if err != nil {
		log.WithError(err).Fatal("Failed to listen")
	}
	log.Infof("Log-store sink listening on %s (compression=%s)", ln.Addr(), opts.Compression)

	if err := s.serve(ln); err != nil {
		log.WithError(err).Fatal("Accept failed")
	}
}

func newSink(compression string, out io.Writer) *sink {
	return &sink{compression: compression, out: out}
}

func (s *sink) router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, &stats{
			Connections: atomic.LoadInt64(&s.connections),
			Records:     atomic.LoadInt64(&s.records),
		})
	})
	return router
}

func (s *sink) serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		atomic.AddInt64(&s.connections, 1)
		go s.handle(conn)
	}
}

func (s *sink) handle(conn net.Conn) {
	defer conn.Close()
	log.WithField("remote", conn.RemoteAddr()).Debug("Connection opened")

	r, err := s.reader(conn)
	if err != nil {
		log.WithError(err).Warn("Could not open stream")
		return
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), maxLineSize)
	for scanner.Scan() {
		atomic.AddInt64(&s.records, 1)
		s.outMu.Lock()
		fmt.Fprintln(s.out, scanner.Text())
		s.outMu.Unlock()
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Warn("Read failed")
	}
	log.WithField("remote", conn.RemoteAddr()).Debug("Connection closed")
}

// reader decodes the stream. Closing it releases the decoder.
func (s *sink) reader(r io.Reader) (io.ReadCloser, error) {
	switch s.compression {
	case "gzip":
		return gzip.NewReader(r)
	case "zstd":
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return io.NopCloser(r), nil
	}
}
