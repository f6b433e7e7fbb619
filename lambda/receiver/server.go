// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package receiver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"

	"github.com/logstore/lambda-extension/lambda/core"
	"github.com/logstore/lambda-extension/lambda/rapi/middleware"
)

// Server is the Logs API push listener
type Server struct {
	host     string
	port     int
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new push listener
//
// Unlike net/http server's ListenAndServe, we separate Listen()
// and Serve(), this is done to guarantee order: call to Listen()
// should happen before the Logs API subscription is made, the platform
// may push as soon as it accepts the subscription.
//
// When port is 0, OS will dynamically allocate the listening port.
func NewServer(host string, port int, state core.StateReader, handler http.Handler) *Server {
	return &Server{
		host:   host,
		port:   port,
		server: &http.Server{Handler: NewRouter(state, handler)},
	}
}

// NewRouter returns a chi router accepting pushed batches on the root path.
func NewRouter(state core.StateReader, handler http.Handler) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.AccessLogMiddleware())
	router.Use(middleware.AllowIfAcceptingLogs(state))

	router.Post("/", handler.ServeHTTP)
	router.Put("/", handler.ServeHTTP)

	return router
}

// Listen on port
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.listener = ln
	if s.port == 0 {
		s.port = ln.Addr().(*net.TCPAddr).Port
		log.WithField("port", s.port).Info("Listening port was dynamically allocated")
	}

	log.Debugf("Logs receiver listening on %s:%d", s.host, s.port)

	return nil
}

func (s *Server) IsListening() bool {
	return s.listener != nil
}

// Serve requests until the server is shut down or ctx is cancelled. A
// graceful Shutdown is not an error.
func (s *Server) Serve(ctx context.Context) error {
	defer s.Close()

	select {
	case err := <-s.serveAsync():
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) serveAsync() chan error {
	errors := make(chan error, 1)
	go func() {
		errors <- s.server.Serve(s.listener)
	}()

	return errors
}

// Host is server's host
func (s *Server) Host() string {
	return s.host
}

// Port is server's port
func (s *Server) Port() int {
	return s.port
}

// URL is full server url
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s:%d/", s.host, s.port)
}

// Close forcefully closes listeners & connections
func (s *Server) Close() error {
	err := s.server.Close()
	if err == nil {
		log.Debug("Logs receiver closed")
	}
	return err
}

// Shutdown gracefully shuts down server, in-flight pushes finish enqueuing
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
