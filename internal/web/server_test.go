package web_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/omixflow/workbench/internal/config"
	"github.com/omixflow/workbench/internal/core"
	"github.com/omixflow/workbench/internal/store"
	"github.com/omixflow/workbench/internal/web"
)

func newTestServer(t *testing.T) *web.Server {
	t.Helper()

	mem := store.NewMemory(0)
	svc := core.NewService(mem, core.ServiceOptions{
		BatchSize:     500,
		BatchPause:    -1,
		SequenceStart: 100,
	})

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           8080,
			RequestTimeout: time.Minute,
		},
		Transform: config.TransformConfig{
			BatchSize: 500,
			Timeout:   time.Minute,
		},
		Rate:    config.RateLimitConfig{Enabled: false},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}

	return web.NewServer(svc, cfg)
}

// doJSON performs a request with an optional JSON body and decodes the JSON
// response into out (when out is non-nil).
func doJSON(t *testing.T, srv *web.Server, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func createProfile(t *testing.T, srv *web.Server, name string) int64 {
	t.Helper()
	var profile struct {
		ProfileID int64 `json:"profileId"`
	}
	rec := doJSON(t, srv, http.MethodPost, "/api/profiles", map[string]string{"name": name}, &profile)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create profile status = %d, body %s", rec.Code, rec.Body.String())
	}
	return profile.ProfileID
}

func createScanRun(t *testing.T, srv *web.Server, profileID int64) string {
	t.Helper()
	var run struct {
		ID string `json:"id"`
	}
	rec := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/profiles/%d/scan-runs", profileID), map[string]any{
		"description": "test",
		"headers":     []string{"name"},
		"rows":        [][]any{{"a"}},
	}, &run)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create scan run status = %d, body %s", rec.Code, rec.Body.String())
	}
	return run.ID
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestCreateProfile(t *testing.T) {
	srv := newTestServer(t)

	id := createProfile(t, srv, "Legacy CRM")
	if id != 101 {
		t.Errorf("profile id = %d, want 101", id)
	}

	// Duplicate name maps to 400 with the conflict code.
	var errResp struct {
		Code string `json:"code"`
	}
	rec := doJSON(t, srv, http.MethodPost, "/api/profiles", map[string]string{"name": "Legacy CRM"}, &errResp)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate status = %d, want 400", rec.Code)
	}
	if errResp.Code != "REQ004" {
		t.Errorf("duplicate code = %s, want REQ004", errResp.Code)
	}
}

func TestGetProfile_ErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/profiles/999", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing profile status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/profiles/abc", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id status = %d, want 400", rec.Code)
	}
}

func TestFileTreeFlow(t *testing.T) {
	srv := newTestServer(t)

	var node struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	rec := doJSON(t, srv, http.MethodPost, "/api/files", map[string]string{
		"name": "notes.txt",
		"type": "file",
	}, &node)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create node status = %d, body %s", rec.Code, rec.Body.String())
	}
	if node.Type != "file" {
		t.Errorf("node type = %s, want file", node.Type)
	}

	var tree struct {
		Tree           []json.RawMessage `json:"tree"`
		SelectedFileID string            `json:"selectedFileId"`
	}
	rec = doJSON(t, srv, http.MethodGet, "/api/files", nil, &tree)
	if rec.Code != http.StatusOK {
		t.Fatalf("get tree status = %d", rec.Code)
	}
	if len(tree.Tree) != 1 {
		t.Errorf("tree size = %d, want 1", len(tree.Tree))
	}
	if tree.SelectedFileID != node.ID {
		t.Errorf("selection = %s, want %s", tree.SelectedFileID, node.ID)
	}

	// A file cannot parent another node.
	rec = doJSON(t, srv, http.MethodPost, "/api/files", map[string]string{
		"type":     "file",
		"parentId": node.ID,
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("file parent status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/files/"+node.ID, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
}

func TestWorkspaceOwnerHeader(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/files", bytes.NewBufferString(`{"type":"file","name":"a.txt"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "alice")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create as alice status = %d", rec.Code)
	}

	// Bob sees an empty workspace.
	req = httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("X-User-ID", "bob")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var tree struct {
		Tree []json.RawMessage `json:"tree"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tree); err != nil {
		t.Fatalf("decode tree: %v", err)
	}
	if len(tree.Tree) != 0 {
		t.Errorf("bob's tree size = %d, want 0", len(tree.Tree))
	}
}

func TestTransformDataFlow(t *testing.T) {
	srv := newTestServer(t)

	profileID := createProfile(t, srv, "Transform")
	runID := createScanRun(t, srv, profileID)
	base := fmt.Sprintf("/api/profiles/%d/scan-runs/%s/transform-data", profileID, runID)

	records := make([]map[string]any, 10)
	for i := range records {
		records[i] = map[string]any{
			"sourceObject":      map[string]any{"name": "src"},
			"transformedObject": map[string]any{"name": "dst"},
		}
	}

	var result struct {
		Added      int `json:"added"`
		FinalCount int `json:"finalCount"`
		Batches    int `json:"batches"`
	}
	rec := doJSON(t, srv, http.MethodPut, base, map[string]any{"transformData": records}, &result)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace status = %d, body %s", rec.Code, rec.Body.String())
	}
	if result.Added != 10 || result.Batches != 1 {
		t.Errorf("result = %+v, want 10 added in 1 batch", result)
	}

	var listed struct {
		Count int `json:"count"`
	}
	rec = doJSON(t, srv, http.MethodGet, base, nil, &listed)
	if rec.Code != http.StatusOK || listed.Count != 10 {
		t.Errorf("list = status %d count %d, want 200/10", rec.Code, listed.Count)
	}

	// Missing array is rejected before any mutation.
	rec = doJSON(t, srv, http.MethodPut, base, map[string]any{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("nil set status = %d, want 400", rec.Code)
	}

	var deleted struct {
		Removed int64 `json:"removed"`
	}
	rec = doJSON(t, srv, http.MethodDelete, base, nil, &deleted)
	if rec.Code != http.StatusOK || deleted.Removed != 10 {
		t.Errorf("delete = status %d removed %d, want 200/10", rec.Code, deleted.Removed)
	}
}

func TestTransformData_UnknownRun(t *testing.T) {
	srv := newTestServer(t)

	profileID := createProfile(t, srv, "NoRun")
	path := fmt.Sprintf("/api/profiles/%d/scan-runs/missing/transform-data", profileID)

	rec := doJSON(t, srv, http.MethodPut, path, map[string]any{"transformData": []any{}}, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestKeyValueEndpoints(t *testing.T) {
	srv := newTestServer(t)

	profileID := createProfile(t, srv, "KV")
	base := fmt.Sprintf("/api/profiles/%d/key-values", profileID)

	rec := doJSON(t, srv, http.MethodPut, base, map[string]any{
		"entries": []map[string]string{{"key": "env", "value": "prod"}},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, base, map[string]string{"key": "env", "value": "dev"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate append status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPatch, base+"/env", map[string]string{"value": "staging"}, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("update status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodDelete, base+"/env", nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
}

func TestMappingEndpoints(t *testing.T) {
	srv := newTestServer(t)

	profileID := createProfile(t, srv, "Maps")
	base := fmt.Sprintf("/api/profiles/%d/mappings", profileID)

	rec := doJSON(t, srv, http.MethodGet, base, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unsaved mappings status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, base, map[string]any{
		"mappings": []map[string]string{{"targetColumn": "name"}},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", rec.Code, rec.Body.String())
	}

	var set struct {
		Mappings []struct {
			MappingType string `json:"mappingType"`
		} `json:"mappings"`
	}
	rec = doJSON(t, srv, http.MethodGet, base, nil, &set)
	if rec.Code != http.StatusOK || len(set.Mappings) != 1 {
		t.Fatalf("get = status %d mappings %d, want 200/1", rec.Code, len(set.Mappings))
	}
	if set.Mappings[0].MappingType != "Not Mapped" {
		t.Errorf("mapping type = %s, want Not Mapped", set.Mappings[0].MappingType)
	}
}

func TestAuditEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/audit", map[string]string{
		"action":  "profile.create",
		"details": "created via test",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record status = %d, body %s", rec.Code, rec.Body.String())
	}

	var entries []struct {
		User   string `json:"user"`
		Action string `json:"action"`
	}
	rec = doJSON(t, srv, http.MethodGet, "/api/audit", nil, &entries)
	if rec.Code != http.StatusOK || len(entries) != 1 {
		t.Fatalf("list = status %d entries %d, want 200/1", rec.Code, len(entries))
	}
	// Missing user falls back to the request identity.
	if entries[0].User != "default" {
		t.Errorf("user = %s, want default", entries[0].User)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	mem := store.NewMemory(0)
	svc := core.NewService(mem, core.ServiceOptions{BatchSize: 500, BatchPause: -1})
	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 8080, RequestTimeout: time.Minute},
		Rate:     config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"sekrit"}},
	}
	srv := web.NewServer(svc, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong key status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	req.Header.Set("X-API-Key", "sekrit")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid key status = %d, want 200", rec.Code)
	}

	// Health stays open without a key.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}
