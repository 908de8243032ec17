// Package server exposes the coordinator over HTTP: survey control endpoints, a
// websocket event feed and prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/liamg/netradar/coordinator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// Surveyor is the part of the coordinator the server drives.
type Surveyor interface {
	StartSubnetSurvey(start string, end string) (*coordinator.Job, error)
	StartHostSurvey(prefix string) (*coordinator.Job, error)
	StartHostSurveyOnPort(prefix string, port int) (*coordinator.Job, error)
	Cancel(kind coordinator.Kind) error
	Status() map[coordinator.Kind]coordinator.SlotStatus
	Events() <-chan coordinator.Event
}

type Server struct {
	surveyor  Surveyor
	hub       *Hub
	router    *mux.Router
	log       *logrus.Logger
	// accessLog feeds the request log into logrus at debug level.
	accessLog *io.PipeWriter
}

// New builds the server and starts draining the surveyor's events. gatherer may be
// nil to disable /metrics.
func New(surveyor Surveyor, gatherer prometheus.Gatherer, log *logrus.Logger) *Server {

	s := &Server{
		surveyor:  surveyor,
		hub:       NewHub(log),
		router:    mux.NewRouter(),
		log:       log,
		accessLog: log.WriterLevel(logrus.DebugLevel),
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/surveys", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/surveys/segments", s.handleStartSegments).Methods(http.MethodPost)
	api.HandleFunc("/surveys/hosts", s.handleStartHosts).Methods(http.MethodPost)
	api.HandleFunc("/surveys/{kind}", s.handleCancel).Methods(http.MethodDelete)
	api.Handle("/events", s.hub).Methods(http.MethodGet)

	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	go s.hub.Run(surveyor.Events())

	return s
}

func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(s.log))(h)
	return handlers.LoggingHandler(s.accessLog, h)
}

// Close releases the access log writer. Handlers must not be used afterwards.
func (s *Server) Close() error {
	return s.accessLog.Close()
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Infof("Listening on %s", addr)
		errChan <- srv.ListenAndServe()
	}()

	defer func() { _ = s.Close() }()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errChan; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// flexString accepts a JSON string or a bare JSON number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(data)))
	return nil
}

type segmentsRequest struct {
	Start flexString `json:"start"`
	End   flexString `json:"end"`
}

type hostsRequest struct {
	Prefix string `json:"prefix"`
	Port   int    `json:"port,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleStartSegments(w http.ResponseWriter, r *http.Request) {
	var req segmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	job, err := s.surveyor.StartSubnetSurvey(string(req.Start), string(req.End))
	s.writeStarted(w, job, err)
}

func (s *Server) handleStartHosts(w http.ResponseWriter, r *http.Request) {
	var req hostsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var job *coordinator.Job
	var err error
	if req.Port == 0 {
		job, err = s.surveyor.StartHostSurvey(req.Prefix)
	} else {
		job, err = s.surveyor.StartHostSurveyOnPort(req.Prefix, req.Port)
	}
	s.writeStarted(w, job, err)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.surveyor.Status())
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	kind := coordinator.Kind(mux.Vars(r)["kind"])
	switch kind {
	case "segments":
		kind = coordinator.KindSegment
	case "hosts":
		kind = coordinator.KindHost
	}

	if kind != coordinator.KindSegment && kind != coordinator.KindHost {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown survey type"})
		return
	}

	if err := s.surveyor.Cancel(kind); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeStarted(w http.ResponseWriter, job *coordinator.Job, err error) {
	if err != nil {
		var validationErr *coordinator.ValidationError
		switch {
		case errors.As(err, &validationErr):
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: string(validationErr.Code)})
		case errors.Is(err, coordinator.ErrAlreadyRunning):
			s.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Code: "ALREADY_RUNNING"})
		default:
			s.writeError(w, http.StatusServiceUnavailable, err)
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, job.Snapshot())
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.WithError(err).Debug("Failed to write response")
	}
}
