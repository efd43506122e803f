package explorer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ritzau/graph-explorer/pkg/filter"
	"github.com/ritzau/graph-explorer/pkg/lens"
	"github.com/ritzau/graph-explorer/pkg/logging"
	"github.com/ritzau/graph-explorer/pkg/summary"
	"github.com/ritzau/graph-explorer/pkg/view"
)

var (
	// ErrUnknownNode is returned for node ids absent from the current snapshot
	ErrUnknownNode = lens.ErrUnknownNode
	// ErrInvalidDepth is returned for a neighbourhood depth outside [1, 3]
	ErrInvalidDepth = errors.New("depth out of range")
	// ErrInvalidThreshold is returned for a negative connection threshold
	ErrInvalidThreshold = errors.New("connection threshold must not be negative")
	// ErrUnknownType is returned when toggling a relationship type no edge carries
	ErrUnknownType = errors.New("unknown relationship type")
)

// Operation names, as reported to the Recorder
const (
	OpSetMinConnections = "set_min_connections"
	OpSetDepth          = "set_depth"
	OpToggleType        = "toggle_type"
	OpSearch            = "search"
	OpExpand            = "expand"
	OpCollapse          = "collapse"
	OpSelect            = "select"
	OpReload            = "reload"
)

// Options are the per-session defaults
type Options struct {
	MinConnections int
	Depth          int
	InitialCap     int // 0 means filter.DefaultInitialCap
	SearchCap      int // 0 means filter.DefaultSearchCap
	MaxExpanded    int // 0 means unlimited
}

// OperationRecorder observes control surface operations
type OperationRecorder interface {
	RecordOperation(operation string, err error)
}

// Session is one user's exploration of the current graph. Every method is
// safe for concurrent use; operations on a session are serialised.
type Session struct {
	id       string
	opts     Options
	recorder OperationRecorder

	mu       sync.Mutex
	graph    *Graph
	state    *view.State
	disabled view.Set // relationship types the user switched off
	last     *lens.ViewSnapshot
}

// NewSession starts a session on graph showing the initial visible set
func NewSession(id string, graph *Graph, opts Options, recorder OperationRecorder) *Session {
	s := &Session{
		id:       id,
		opts:     opts,
		recorder: recorder,
		graph:    graph,
		disabled: view.NewSet(),
	}
	s.state = view.NewState(opts.MinConnections, opts.Depth, graph.Index.RelationshipTypes())
	s.resetVisible()
	return s
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

func (s *Session) record(op string, err error) {
	if s.recorder != nil {
		s.recorder.RecordOperation(op, err)
	}
	if err != nil {
		logging.Debug("operation rejected", "session", s.id, "op", op, "error", err)
	}
}

// resetVisible restores the threshold-based initial set
func (s *Session) resetVisible() {
	s.state.ReplaceVisible(filter.ComputeInitialVisible(s.graph.Index, s.state.MinConnections, s.opts.InitialCap))
	s.state.SearchTerm = ""
}

// State returns a copy of the current view state
func (s *Session) State() *view.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// SetMinConnections changes the connection threshold and resets the visible
// set to the initial set for it. Search and expansions are cleared.
func (s *Session) SetMinConnections(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 0 {
		err := fmt.Errorf("min connections %d: %w", n, ErrInvalidThreshold)
		s.record(OpSetMinConnections, err)
		return err
	}
	s.state.MinConnections = n
	s.resetVisible()
	s.record(OpSetMinConnections, nil)
	return nil
}

// SetNeighborhoodDepth sets the hop bound used by later expansions
func (s *Session) SetNeighborhoodDepth(depth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if depth < view.MinDepth || depth > view.MaxDepth {
		err := fmt.Errorf("depth %d not in [%d, %d]: %w", depth, view.MinDepth, view.MaxDepth, ErrInvalidDepth)
		s.record(OpSetDepth, err)
		return err
	}
	s.state.Depth = depth
	s.record(OpSetDepth, nil)
	return nil
}

// ToggleRelationshipType switches a relationship type on or off and reports
// whether it is now active.
func (s *Session) ToggleRelationshipType(relationshipType string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := false
	for _, t := range s.graph.Index.RelationshipTypes() {
		if t == relationshipType {
			known = true
			break
		}
	}
	if !known {
		err := fmt.Errorf("toggle %q: %w", relationshipType, ErrUnknownType)
		s.record(OpToggleType, err)
		return false, err
	}

	active := !s.state.ActiveTypes.Has(relationshipType)
	if active {
		s.state.ActiveTypes.Add(relationshipType)
		s.disabled.Remove(relationshipType)
	} else {
		s.state.ActiveTypes.Remove(relationshipType)
		s.disabled.Add(relationshipType)
	}
	s.record(OpToggleType, nil)
	return active, nil
}

// Search replaces the visible set with the best name matches for term. A
// blank term clears the search and restores the initial set. Returns the
// matching ids.
func (s *Session) Search(term string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	term = strings.TrimSpace(term)
	if term == "" {
		s.resetVisible()
		s.record(OpSearch, nil)
		return nil
	}

	matches := filter.Search(s.graph.Index, term, s.opts.SearchCap)
	s.state.ReplaceVisible(matches)
	s.state.SearchTerm = term
	s.record(OpSearch, nil)
	logging.Debug("search", "session", s.id, "term", term, "matches", len(matches))
	return matches
}

// Expand reveals the neighbourhood of nodeID up to the session depth and
// returns the ids that became visible.
func (s *Session) Expand(nodeID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := lens.Expand(s.graph.Index, s.state, nodeID, lens.ExpandOptions{
		Depth:    s.state.Depth,
		MaxNodes: s.opts.MaxExpanded,
	})
	s.record(OpExpand, err)
	return added, err
}

// Collapse clears the expanded mark of nodeID. Revealed nodes stay visible.
func (s *Session) Collapse(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.graph.Index.Has(nodeID) {
		err := fmt.Errorf("collapse %q: %w", nodeID, ErrUnknownNode)
		s.record(OpCollapse, err)
		return err
	}
	lens.Collapse(s.state, nodeID)
	s.record(OpCollapse, nil)
	return nil
}

// SelectNode selects nodeID. An empty id clears the selection.
func (s *Session) SelectNode(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if nodeID != "" && !s.graph.Index.Has(nodeID) {
		err := fmt.Errorf("select %q: %w", nodeID, ErrUnknownNode)
		s.record(OpSelect, err)
		return err
	}
	s.state.Selected = nodeID
	s.record(OpSelect, nil)
	return nil
}

// Reload moves the session onto a new graph. Ids that no longer exist are
// clamped away, relationship types the user disabled stay disabled and new
// types start active. Returns the number of visible ids removed.
func (s *Session) Reload(graph *Graph) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph = graph
	removed := s.state.Clamp(graph.Index)
	if s.last != nil {
		// the same state can render differently on the new graph
		s.last.Hash = ""
	}

	active := view.NewSet()
	for _, t := range graph.Index.RelationshipTypes() {
		if !s.disabled.Has(t) {
			active.Add(t)
		}
	}
	s.state.ActiveTypes = active

	if len(s.state.Visible) == 0 && s.state.SearchTerm == "" {
		s.resetVisible()
	}

	s.record(OpReload, nil)
	logging.Debug("session reloaded", "session", s.id, "removed", removed, "visible", len(s.state.Visible))
	return removed
}

// Detail renders the detail view for the current state
func (s *Session) Detail() *lens.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lens.Render(s.graph.Index, s.state)
}

// Diff renders the detail view and returns what changed since the previous
// call. The first call returns the full view. An unchanged state on the same
// graph is not rendered again.
func (s *Session) Diff() *lens.ViewDiff {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := lens.ComputeHash(s.state)
	if s.last != nil && hash != "" && s.last.Hash == hash {
		return &lens.ViewDiff{Selection: s.last.Selection}
	}

	v := lens.Render(s.graph.Index, s.state)
	diff := lens.ComputeDiff(s.last, v)
	s.last = lens.CreateSnapshot(v)
	s.last.Hash = hash
	return diff
}

// Summary returns the bubble hierarchy of the current graph
func (s *Session) Summary() *summary.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Summary
}

// Graph returns the graph the session is exploring
func (s *Session) Graph() *Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}
