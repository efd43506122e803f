package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/ritzau/graph-explorer/pkg/explorer"
	"github.com/ritzau/graph-explorer/pkg/layout"
	"github.com/ritzau/graph-explorer/pkg/logging"
	"github.com/ritzau/graph-explorer/pkg/metrics"
	"github.com/ritzau/graph-explorer/pkg/pubsub"
	"github.com/ritzau/graph-explorer/pkg/source"
)

var errUnknownSession = errors.New("unknown session")

// Options configures a Server
type Options struct {
	Manager   *explorer.Manager
	Loader    *source.Loader // optional, required for Reload
	Metrics   *metrics.Registry
	Publisher *pubsub.SSEPublisher

	// NewCoordinator returns the layout coordinator of a new session
	NewCoordinator func() *layout.Coordinator
}

// Server hosts the exploration control surface
type Server struct {
	router    *mux.Router
	manager   *explorer.Manager
	loader    *source.Loader
	metrics   *metrics.Registry
	publisher *pubsub.SSEPublisher
	validate  *validator.Validate

	newCoordinator func() *layout.Coordinator
	mu             sync.Mutex
	coordinators   map[string]*layout.Coordinator

	baseCtx    context.Context
	cancelBase context.CancelFunc
	httpServer *http.Server
}

// NewServer creates a new web server
func NewServer(opts Options) *Server {
	publisher := opts.Publisher
	if publisher == nil {
		publisher = pubsub.NewSSEPublisher()
	}
	registry := opts.Metrics
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	publisher.SetRecorder(registry)

	// snapshot_status: buffer last 10 events, replay only the current state
	publisher.ConfigureTopic(pubsub.SnapshotStatusTopic, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})
	// session topics: a late subscriber gets the latest diff or layout
	publisher.ConfigureDefault(pubsub.TopicConfig{BufferSize: 2, ReplayAll: true})

	newCoordinator := opts.NewCoordinator
	if newCoordinator == nil {
		newCoordinator = func() *layout.Coordinator {
			return layout.NewCoordinator(layout.ForcePrimitive{}, layout.DefaultParams(), 1)
		}
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		router:         mux.NewRouter(),
		manager:        opts.Manager,
		loader:         opts.Loader,
		metrics:        registry,
		publisher:      publisher,
		validate:       validator.New(),
		newCoordinator: newCoordinator,
		coordinators:   make(map[string]*layout.Coordinator),
		baseCtx:        baseCtx,
		cancelBase:     cancel,
	}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Publisher returns the event publisher
func (s *Server) Publisher() *pubsub.SSEPublisher {
	return s.publisher
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware(s.metrics))

	// SSE subscription endpoints, the fixed topic before the session pattern
	s.router.HandleFunc("/api/subscribe/snapshot_status", s.handleSubscribeSnapshotStatus).Methods("GET")
	s.router.HandleFunc("/api/subscribe/{id}", s.handleSubscribeSession).Methods("GET")

	s.router.HandleFunc("/api/snapshot", s.handleSnapshot).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	s.router.HandleFunc("/api/sessions", s.handleCreateSession).Methods("POST")

	sessions := s.router.PathPrefix("/api/sessions/{id}").Subrouter()
	sessions.HandleFunc("", s.handleDeleteSession).Methods("DELETE")
	sessions.HandleFunc("/detail", s.handleDetail).Methods("GET")
	sessions.HandleFunc("/summary", s.handleSummary).Methods("GET")
	sessions.HandleFunc("/min-connections", s.handleMinConnections).Methods("PUT")
	sessions.HandleFunc("/depth", s.handleDepth).Methods("PUT")
	sessions.HandleFunc("/relationship-types/{type}/toggle", s.handleToggleType).Methods("POST")
	sessions.HandleFunc("/search", s.handleSearch).Methods("POST")
	sessions.HandleFunc("/nodes/{node}/expand", s.handleExpand).Methods("POST")
	sessions.HandleFunc("/nodes/{node}/collapse", s.handleCollapse).Methods("POST")
	sessions.HandleFunc("/nodes/{node}/select", s.handleSelect).Methods("POST")
	sessions.HandleFunc("/selection", s.handleClearSelection).Methods("DELETE")
}

// PublishSnapshotStatus publishes a snapshot status event
func (s *Server) PublishSnapshotStatus(status pubsub.SnapshotStatus) error {
	return s.publisher.Publish(pubsub.SnapshotStatusTopic, status.State, status)
}

func (s *Server) sourceName() string {
	if s.loader == nil {
		return ""
	}
	return s.loader.Source().Name()
}

func (s *Server) readyStatus() pubsub.SnapshotStatus {
	stats := s.manager.Graph().Stats()
	return pubsub.SnapshotStatus{
		State:        pubsub.StatusReady,
		Message:      fmt.Sprintf("%d nodes, %d edges", stats.Nodes, stats.Edges),
		Source:       s.sourceName(),
		Nodes:        stats.Nodes,
		Edges:        stats.Edges,
		DroppedEdges: stats.DroppedEdges,
		Unclassified: stats.Unclassified,
	}
}

// PublishReady publishes the ready status of the current snapshot
func (s *Server) PublishReady() error {
	return s.PublishSnapshotStatus(s.readyStatus())
}

// Reload loads the snapshot again and swaps it into every session. On error
// the previous snapshot stays in use.
func (s *Server) Reload(ctx context.Context) error {
	if s.loader == nil {
		return errors.New("no snapshot source configured")
	}

	name := s.sourceName()
	_ = s.PublishSnapshotStatus(pubsub.SnapshotStatus{
		State:   pubsub.StatusLoading,
		Message: "Loading snapshot",
		Source:  name,
	})

	snapshot, err := s.loader.Load(ctx)
	if err != nil {
		_ = s.PublishSnapshotStatus(pubsub.SnapshotStatus{
			State:   pubsub.StatusError,
			Message: err.Error(),
			Source:  name,
		})
		return err
	}

	s.manager.Reload(snapshot)
	for _, session := range s.manager.Sessions() {
		s.publishChange(session)
	}
	return s.PublishReady()
}

func (s *Server) coordinator(sessionID string) *layout.Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coordinators[sessionID]
	if !ok {
		c = s.newCoordinator()
		c.SetRecorder(s.metrics)
		s.coordinators[sessionID] = c
	}
	return c
}

func (s *Server) dropCoordinator(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.coordinators[sessionID]; ok {
		c.Stop()
		delete(s.coordinators, sessionID)
	}
}

// publishChange sends the view diff of a session and restarts its layout
func (s *Server) publishChange(session *explorer.Session) {
	topic := pubsub.SessionTopic(session.ID())

	diff := session.Diff()
	if !diff.Empty() {
		if err := s.publisher.Publish(topic, pubsub.EventViewDiff, diff); err != nil {
			logging.Warn("failed to publish view diff", "session", session.ID(), "error", err)
		}
	}

	nodes, links := explorer.DetailGraph(session.Detail())
	s.coordinator(session.ID()).Restart(s.baseCtx, nodes, links, func(result layout.Result, err error) {
		if err != nil {
			logging.Warn("layout failed", "session", session.ID(), "error", err)
			return
		}
		data := pubsub.LayoutData{
			Positions: result.Positions,
			Converged: result.Converged,
			Ticks:     result.Ticks,
		}
		if err := s.publisher.Publish(topic, pubsub.EventLayout, data); err != nil {
			logging.Debug("failed to publish layout", "session", session.ID(), "error", err)
		}
	})
}

func (s *Server) session(r *http.Request) (*explorer.Session, error) {
	id := mux.Vars(r)["id"]
	session, ok := s.manager.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownSession, id)
	}
	return session, nil
}

func (s *Server) handleSubscribeSnapshotStatus(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, pubsub.SnapshotStatusTopic)
}

func (s *Server) handleSubscribeSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.stream(w, r, pubsub.SessionTopic(session.ID()))
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, topic string) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		logging.WarnContext(r.Context(), "subscribe failed", "topic", topic, "error", err)
		return
	}
	defer sub.Close()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.DebugContext(r.Context(), "error writing SSE event", "topic", topic, "error", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

type snapshotResponse struct {
	Status pubsub.SnapshotStatus `json:"status"`
	Stats  explorer.Stats        `json:"stats"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, snapshotResponse{
		Status: s.readyStatus(),
		Stats:  s.manager.Graph().Stats(),
	})
}

type sessionResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := s.manager.Create()
	logging.InfoContext(r.Context(), "session created", "session", session.ID())
	s.respondJSON(w, http.StatusCreated, sessionResponse{ID: session.ID()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.manager.Delete(id) {
		s.respondError(w, r, fmt.Errorf("%w: %s", errUnknownSession, id))
		return
	}
	s.dropCoordinator(id)
	s.publisher.RemoveTopic(pubsub.SessionTopic(id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if skip, _ := strconv.ParseBool(r.URL.Query().Get("skipLayout")); skip {
		s.respondJSON(w, http.StatusOK, session.Detail())
		return
	}

	view, _, err := session.PositionedDetail(r.Context(), s.coordinator(session.ID()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	view, err := session.PositionedSummary(r.Context(), s.coordinator(session.ID()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

type valueRequest struct {
	Value *int `json:"value" validate:"required"`
}

type searchRequest struct {
	Term string `json:"term" validate:"max=200"`
}

type toggleResponse struct {
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

type searchResponse struct {
	Matches []string `json:"matches"`
}

type expandResponse struct {
	Added []string `json:"added"`
}

func (s *Server) handleMinConnections(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req valueRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := session.SetMinConnections(*req.Value); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.publishChange(session)
	s.respondJSON(w, http.StatusOK, session.State())
}

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req valueRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := session.SetNeighborhoodDepth(*req.Value); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.publishChange(session)
	s.respondJSON(w, http.StatusOK, session.State())
}

func (s *Server) handleToggleType(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	relationshipType := mux.Vars(r)["type"]
	active, err := session.ToggleRelationshipType(relationshipType)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.publishChange(session)
	s.respondJSON(w, http.StatusOK, toggleResponse{Type: relationshipType, Active: active})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req searchRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	matches := session.Search(req.Term)
	if matches == nil {
		matches = []string{}
	}
	s.publishChange(session)
	s.respondJSON(w, http.StatusOK, searchResponse{Matches: matches})
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	added, err := session.Expand(mux.Vars(r)["node"])
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if added == nil {
		added = []string{}
	}
	s.publishChange(session)
	s.respondJSON(w, http.StatusOK, expandResponse{Added: added})
}

func (s *Server) handleCollapse(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := session.Collapse(mux.Vars(r)["node"]); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.publishChange(session)
	s.respondJSON(w, http.StatusOK, session.State())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := session.SelectNode(mux.Vars(r)["node"]); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.publishChange(session)
	s.respondJSON(w, http.StatusOK, session.State())
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	session, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := session.SelectNode(""); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.publishChange(session)
	s.respondJSON(w, http.StatusOK, session.State())
}

// badRequest marks errors caused by the request body
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func (s *Server) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest{fmt.Errorf("invalid request body: %w", err)}
	}
	if err := s.validate.Struct(v); err != nil {
		return badRequest{fmt.Errorf("invalid request: %w", err)}
	}
	return nil
}

func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, errUnknownSession),
		errors.Is(err, explorer.ErrUnknownNode),
		errors.Is(err, explorer.ErrUnknownType):
		return http.StatusNotFound
	case errors.Is(err, explorer.ErrInvalidDepth),
		errors.Is(err, explorer.ErrInvalidThreshold):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		logging.ErrorContext(r.Context(), "request error", "error", err)
	}
	s.respondJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

// Start serves HTTP on port until Shutdown is called
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.mu.Lock()
	if s.baseCtx.Err() != nil {
		s.mu.Unlock()
		return nil
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
	}
	srv := s.httpServer
	s.mu.Unlock()

	logging.Info("server starting", "url", fmt.Sprintf("http://localhost%s", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, every layout run and the publisher
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelBase()

	s.mu.Lock()
	srv := s.httpServer
	for id, c := range s.coordinators {
		c.Stop()
		delete(s.coordinators, id)
	}
	s.mu.Unlock()

	// Closing the publisher ends open event streams so Shutdown can drain them
	_ = s.publisher.Close()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
