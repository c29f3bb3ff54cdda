package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/exporter"
)

// StatusProvider reports on the exporter behind the server.
type StatusProvider interface {
	Ready() bool
	Status() exporter.Status
}

type Server struct {
	Router   *mux.Router
	Gatherer prometheus.Gatherer
	Status   StatusProvider
	Log      logrus.FieldLogger

	srv       *http.Server
	accessLog io.Closer
}

func NewServer(host string, port string, log *logrus.Logger) *Server {
	router := mux.NewRouter()

	// Access logs are debug level: Prometheus scrapes far too often for them
	// to be useful otherwise.
	accessLog := log.WriterLevel(logrus.DebugLevel)
	handler := handlers.RecoveryHandler(
		handlers.RecoveryLogger(log),
		handlers.PrintRecoveryStack(true),
	)(handlers.LoggingHandler(accessLog, router))

	srv := &http.Server{
		Handler:           handler,
		Addr:              net.JoinHostPort(host, port),
		WriteTimeout:      30 * time.Second,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	return &Server{
		Router:    router,
		Log:       log,
		srv:       srv,
		accessLog: accessLog,
	}
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Handler returns the server's root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start listens on the configured address. It returns nil once Shutdown
// has been called.
func (s *Server) Start() error {
	s.Log.WithField("address", s.srv.Addr).Info("Listening")
	return ignoreClosed(s.srv.ListenAndServe())
}

// StartWithListener serves on an existing listener.
func (s *Server) StartWithListener(l net.Listener) error {
	s.Log.WithField("address", l.Addr().String()).Info("Listening")
	return ignoreClosed(s.srv.Serve(l))
}

// Shutdown stops the server, waiting for active requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	defer func() { _ = s.accessLog.Close() }()
	return s.srv.Shutdown(ctx)
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
