package explorer

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ritzau/graph-explorer/pkg/logging"
	"github.com/ritzau/graph-explorer/pkg/model"
	"github.com/ritzau/graph-explorer/pkg/summary"
)

// Recorder observes sessions and snapshots
type Recorder interface {
	OperationRecorder
	RecordSnapshot(nodes, edges, dropped, unclassified, bubbles int)
	SetSessions(n int)
}

// Manager owns the current graph and the table of open sessions
type Manager struct {
	opts       Options
	classifier *summary.Classifier
	recorder   Recorder

	graph atomic.Pointer[Graph]

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager indexes the initial snapshot. recorder may be nil.
func NewManager(snapshot *model.Snapshot, classifier *summary.Classifier, opts Options, recorder Recorder) *Manager {
	m := &Manager{
		opts:       opts,
		classifier: classifier,
		recorder:   recorder,
		sessions:   make(map[string]*Session),
	}
	m.swap(snapshot)
	return m
}

func (m *Manager) swap(snapshot *model.Snapshot) *Graph {
	graph := NewGraph(snapshot, m.classifier)
	m.graph.Store(graph)

	stats := graph.Stats()
	if m.recorder != nil {
		m.recorder.RecordSnapshot(stats.Nodes, stats.Edges, stats.DroppedEdges, stats.Unclassified, stats.Bubbles)
	}
	logging.Info("graph indexed",
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"types", len(stats.RelationshipTypes),
		"bubbles", stats.Bubbles)
	return graph
}

// Graph returns the current graph
func (m *Manager) Graph() *Graph {
	return m.graph.Load()
}

// Create opens a new session on the current graph
func (m *Manager) Create() *Session {
	var recorder OperationRecorder
	if m.recorder != nil {
		recorder = m.recorder
	}
	session := NewSession(uuid.New().String(), m.Graph(), m.opts, recorder)

	m.mu.Lock()
	m.sessions[session.ID()] = session
	n := len(m.sessions)
	m.mu.Unlock()

	m.setSessions(n)
	logging.Info("session created", "session", session.ID())
	return session
}

// Get looks up a session
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	return session, ok
}

// Delete closes a session and reports whether it existed
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	if ok {
		m.setSessions(n)
		logging.Info("session closed", "session", id)
	}
	return ok
}

// Sessions returns the open sessions ordered by id
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID() < sessions[j].ID() })
	return sessions
}

// Reload replaces the graph and moves every open session onto it
func (m *Manager) Reload(snapshot *model.Snapshot) *Graph {
	graph := m.swap(snapshot)
	for _, s := range m.Sessions() {
		s.Reload(graph)
	}
	return graph
}

func (m *Manager) setSessions(n int) {
	if m.recorder != nil {
		m.recorder.SetSessions(n)
	}
}
