// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package logstore is an in-process log-store used by tests. It accepts TCP
// connections and collects the newline-delimited records it receives.
package logstore

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
)

const maxLineSize = 4 << 20

// Store collects lines received over TCP.
type Store struct {
	addr        string
	compression string

	mu    sync.Mutex
	ln    net.Listener
	conns map[net.Conn]struct{}
	lines []string
	wg    sync.WaitGroup
}

// Start listens on a random loopback port.
func Start(compression string) (*Store, error) {
	return StartAt("127.0.0.1:0", compression)
}

// StartAt listens on addr.
func StartAt(addr, compression string) (*Store, error) {
	s := &Store{compression: compression, conns: make(map[net.Conn]struct{})}
	if err := s.listen(addr); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.wg.Add(1)
	go s.accept(ln)
	return nil
}

// Addr is the host:port the store listens on.
func (s *Store) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Lines returns a copy of every line received so far, in arrival order.
func (s *Store) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// WaitForLines blocks until at least n lines arrived or timeout passes.
func (s *Store) WaitForLines(n int, timeout time.Duration) []string {
	deadline := time.Now().Add(timeout)
	for {
		lines := s.Lines()
		if len(lines) >= n || time.Now().After(deadline) {
			return lines
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Stop closes the listener and every open connection.
func (s *Store) Stop() {
	s.mu.Lock()
	if s.ln != nil {
		_ = s.ln.Close()
		s.ln = nil
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Restart listens again on the address used before Stop.
func (s *Store) Restart() error {
	return s.listen(s.Addr())
}

func (s *Store) accept(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.read(conn)
	}
}

func (s *Store) read(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	r, err := s.decompress(conn)
	if err != nil {
		log.WithError(err).Debug("logstore: could not open stream")
		return
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), maxLineSize)
	for scanner.Scan() {
		s.mu.Lock()
		s.lines = append(s.lines, scanner.Text())
		s.mu.Unlock()
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.WithError(err).Debug("logstore: read failed")
	}
}

func (s *Store) decompress(r io.Reader) (io.ReadCloser, error) {
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
