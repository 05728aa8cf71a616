package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/czml-forge/czml"
	"github.com/signalsfoundry/czml-forge/internal/catalog"
	"github.com/signalsfoundry/czml-forge/internal/logging"
	"github.com/signalsfoundry/czml-forge/internal/observability"
)

func newTestServer(t *testing.T) (*httptest.Server, *catalog.Catalog) {
	t.Helper()
	cat := catalog.New()
	collector, err := observability.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector failed: %v", err)
	}
	srv := New(cat, collector, logging.Noop())
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, cat
}

func postEntity(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/entities", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /v1/entities failed: %v", err)
	}
	return resp
}

const satBody = `{
	"id": "sat-1",
	"name": "Satellite 1",
	"samples": [
		[1676500000, 7000000, 0, 0],
		[1676500060, 0, 7000000, 0]
	],
	"point": {"pixel_size": 8, "color": [255, 0, 0, 255]}
}`

func TestRegisterAndFetchDocument(t *testing.T) {
	ts, cat := newTestServer(t)

	resp := postEntity(t, ts, satBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	resp.Body.Close()
	if created["id"] != "sat-1" {
		t.Fatalf("registered id = %q, want %q", created["id"], "sat-1")
	}
	if cat.Len() != 1 {
		t.Fatalf("catalog size = %d, want 1", cat.Len())
	}

	resp, err := http.Get(ts.URL + "/v1/document")
	if err != nil {
		t.Fatalf("GET /v1/document failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("document status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}

	var packets []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&packets); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if len(packets) != 2 {
		t.Fatalf("document has %d packets, want 2 (header + entity)", len(packets))
	}
	if packets[0]["id"] != czml.HeaderID {
		t.Fatalf("first packet id = %v, want %q", packets[0]["id"], czml.HeaderID)
	}
	if packets[1]["id"] != "sat-1" {
		t.Fatalf("second packet id = %v, want %q", packets[1]["id"], "sat-1")
	}
}

func TestRegisterDuplicateConflicts(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postEntity(t, ts, satBody)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	resp = postEntity(t, ts, satBody)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] == "" {
		t.Fatal("error body is empty")
	}
}

func TestRegisterRejectsBadEntities(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"not json", "{", http.StatusBadRequest},
		{"unknown field", `{"id": "x", "orbit": true}`, http.StatusBadRequest},
		{"no source", `{"id": "x"}`, http.StatusBadRequest},
		{"two sources", `{"id": "x", "static": [1, 2, 3], "csv": "t.csv"}`, http.StatusBadRequest},
		{"short sample row", `{"id": "x", "samples": [[0, 1]]}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts, _ := newTestServer(t)
			resp := postEntity(t, ts, tc.body)
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestDocumentEmptyCatalog(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/document")
	if err != nil {
		t.Fatalf("GET /v1/document failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("empty document status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestRemoveEntity(t *testing.T) {
	ts, cat := newTestServer(t)

	resp := postEntity(t, ts, satBody)
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/entities/sat-1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if cat.Len() != 0 {
		t.Fatalf("catalog size after delete = %d, want 0", cat.Len())
	}

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("second DELETE failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete of missing entity status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}
