package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/graph-explorer/pkg/explorer"
	"github.com/ritzau/graph-explorer/pkg/layout"
	"github.com/ritzau/graph-explorer/pkg/lens"
	"github.com/ritzau/graph-explorer/pkg/metrics"
	"github.com/ritzau/graph-explorer/pkg/model"
	"github.com/ritzau/graph-explorer/pkg/pubsub"
	"github.com/ritzau/graph-explorer/pkg/source"
	"github.com/ritzau/graph-explorer/pkg/summary"
	"github.com/ritzau/graph-explorer/pkg/view"
)

func fixture() *model.Snapshot {
	s := model.NewSnapshot()
	s.AddNode(model.Node{ID: "A", Type: "Process", Name: "Order Intake", EvidenceCount: 10})
	s.AddNode(model.Node{ID: "B", Type: "System", Name: "CRM Platform", EvidenceCount: 5})
	s.AddNode(model.Node{ID: "C", Type: "Customer", Name: "Retail Customer", EvidenceCount: 3})
	s.AddNode(model.Node{ID: "D", Type: "Payment", Name: "Payment Gateway", EvidenceCount: 2})
	s.AddEdge(model.Edge{SourceID: "A", TargetID: "B", RelationshipType: "USES"})
	s.AddEdge(model.Edge{SourceID: "B", TargetID: "C", RelationshipType: "STORES"})
	s.AddEdge(model.Edge{SourceID: "C", TargetID: "D", RelationshipType: "PAYS"})
	return s
}

func newTestServer(t *testing.T, loader *source.Loader) *Server {
	t.Helper()
	registry := metrics.NewRegistry()
	manager := explorer.NewManager(fixture(), nil, explorer.Options{MinConnections: 1, Depth: 1}, registry)

	params := layout.DefaultParams()
	params.Iterations = 20
	srv := NewServer(Options{
		Manager: manager,
		Loader:  loader,
		Metrics: registry,
		NewCoordinator: func() *layout.Coordinator {
			return layout.NewCoordinator(layout.ForcePrimitive{}, params, 7)
		},
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, srv *Server) string {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestCreateAndDeleteSession(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createSession(t, srv)

	rec := do(t, srv, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+id+"/detail", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown session")
}

func TestDetailEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createSession(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/sessions/"+id+"/detail", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var v lens.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Len(t, v.Nodes, 4)
	assert.Len(t, v.Edges, 3)

	params := layout.DefaultParams()
	for _, n := range v.Nodes {
		assert.GreaterOrEqual(t, n.X, 0.0)
		assert.LessOrEqual(t, n.X, params.Width)
		assert.GreaterOrEqual(t, n.Y, 0.0)
		assert.LessOrEqual(t, n.Y, params.Height)
	}

	rec = do(t, srv, http.MethodGet, "/api/sessions/"+id+"/detail?skipLayout=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Len(t, v.Nodes, 4)
}

func TestSummaryEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createSession(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/sessions/"+id+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sv explorer.SummaryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sv))
	assert.NotEmpty(t, sv.Bubbles)
	limit := summary.MaxCategories * (1 + summary.MaxTopics*(1+summary.MaxSubtopics))
	assert.LessOrEqual(t, len(sv.Bubbles), limit)
}

func TestMinConnectionsAndDepth(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createSession(t, srv)
	base := "/api/sessions/" + id

	rec := do(t, srv, http.MethodPut, base+"/min-connections", `{"value": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var state view.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 2, state.MinConnections)

	rec = do(t, srv, http.MethodPut, base+"/min-connections", `{"value": -1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPut, base+"/min-connections", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPut, base+"/min-connections", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPut, base+"/depth", `{"value": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 3, state.Depth)

	rec = do(t, srv, http.MethodPut, base+"/depth", `{"value": 4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleRelationshipType(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createSession(t, srv)
	path := "/api/sessions/" + id + "/relationship-types/USES/toggle"

	rec := do(t, srv, http.MethodPost, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp toggleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, toggleResponse{Type: "USES", Active: false}, resp)

	rec = do(t, srv, http.MethodPut, "/api/sessions/"+id+"/depth", `{"value": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var raw struct {
		ActiveTypes []string `json:"activeTypes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, []string{"PAYS", "STORES"}, raw.ActiveTypes)

	rec = do(t, srv, http.MethodPost, path, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Active)

	rec = do(t, srv, http.MethodPost, "/api/sessions/"+id+"/relationship-types/OWNS/toggle", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchAndNodeOperations(t *testing.T) {
	srv := newTestServer(t, nil)
	id := createSession(t, srv)
	base := "/api/sessions/" + id

	rec := do(t, srv, http.MethodPost, base+"/search", `{"term": "order"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var search searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &search))
	assert.Equal(t, []string{"A"}, search.Matches)

	rec = do(t, srv, http.MethodPost, base+"/nodes/A/expand", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var expand expandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &expand))
	assert.Equal(t, []string{"B"}, expand.Added)

	rec = do(t, srv, http.MethodPost, base+"/nodes/A/collapse", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, base+"/nodes/B/select", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var state view.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "B", state.Selected)

	rec = do(t, srv, http.MethodDelete, base+"/selection", "")
	require.Equal(t, http.StatusOK, rec.Code)
	state = view.State{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Empty(t, state.Selected)

	for _, op := range []string{"expand", "collapse", "select"} {
		rec = do(t, srv, http.MethodPost, base+"/nodes/missing/"+op, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, op)
	}
}

func TestSnapshotAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp snapshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, pubsub.StatusReady, resp.Status.State)
	assert.Equal(t, 4, resp.Stats.Nodes)
	assert.Equal(t, 3, resp.Stats.Edges)

	rec = do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "nodes": [{"id": "A", "name": "Order Intake"}, {"id": "Z", "name": "Zeta"}],
  "edges": [{"sourceId": "A", "targetId": "Z", "relationshipType": "USES"}]
}`), 0o644))

	srv := newTestServer(t, source.NewLoader(source.NewFileSource(path), nil))
	require.NoError(t, srv.Reload(context.Background()))

	rec := do(t, srv, http.MethodGet, "/api/snapshot", "")
	var resp snapshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Stats.Nodes)
	assert.Equal(t, path, resp.Status.Source)

	require.NoError(t, os.Remove(path))
	assert.Error(t, srv.Reload(context.Background()))

	rec = do(t, srv, http.MethodGet, "/api/snapshot", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Stats.Nodes, "a failed reload keeps the previous snapshot")
}

func TestReloadWithoutSource(t *testing.T) {
	srv := newTestServer(t, nil)
	assert.Error(t, srv.Reload(context.Background()))
}

// readEvents streams the event names of an SSE response
func readEvents(t *testing.T, resp *http.Response) <-chan string {
	t.Helper()
	events := make(chan string, 16)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
				events <- name
			}
		}
	}()
	return events
}

func waitFor(t *testing.T, events <-chan string, want string) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case name, ok := <-events:
			require.True(t, ok, "stream closed before %s", want)
			if name == want {
				return
			}
		case <-timeout:
			t.Fatalf("Timed out waiting for %s", want)
		}
	}
}

func TestSessionEventStream(t *testing.T) {
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	id := createSession(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/subscribe/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp)

	rec := do(t, srv, http.MethodPost, "/api/sessions/"+id+"/search", `{"term": "order"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	waitFor(t, events, pubsub.EventViewDiff)
	waitFor(t, events, pubsub.EventLayout)
	cancel()
}

func TestSnapshotStatusStream(t *testing.T) {
	srv := newTestServer(t, nil)
	require.NoError(t, srv.PublishReady())

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/subscribe/snapshot_status", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	waitFor(t, readEvents(t, resp), pubsub.StatusReady)
	cancel()
}

func TestSubscribeUnknownSession(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/api/subscribe/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
