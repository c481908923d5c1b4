package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/df07/go-stochastic-raytracer/pkg/scene"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(0, t.TempDir(), nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode
}

// sseEvents splits an event stream body into (type, data) pairs
func sseEvents(body string) []SSEEvent {
	var events []SSEEvent
	for _, block := range strings.Split(body, "\n\n") {
		var event SSEEvent
		for _, line := range strings.Split(block, "\n") {
			if v, ok := strings.CutPrefix(line, "event: "); ok {
				event.Type = v
			} else if v, ok := strings.CutPrefix(line, "data: "); ok {
				event.Data = v
			}
		}
		if event.Type != "" {
			events = append(events, event)
		}
	}
	return events
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	if status := getJSON(t, srv.URL+"/api/health", &body); status != http.StatusOK {
		t.Errorf("Expected 200, got %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body)
	}
}

func TestHandleScenes(t *testing.T) {
	srv := newTestServer(t)

	var response scene.ScenesResponse
	if status := getJSON(t, srv.URL+"/api/scenes", &response); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if len(response.Groups) == 0 || len(response.Groups[0].Scenes) != len(scene.BuiltinScenes()) {
		t.Errorf("Expected the built-in group first, got %+v", response.Groups)
	}
}

func TestHandleSceneConfig(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]interface{}
	if status := getJSON(t, srv.URL+"/api/scene-config?scene=default", &body); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	defaults := body["defaults"].(map[string]interface{})
	if defaults["samplesPerPixel"].(float64) != 100 || defaults["maxDepth"].(float64) != 50 {
		t.Errorf("Unexpected defaults %v", defaults)
	}

	if status := getJSON(t, srv.URL+"/api/scene-config?scene=nonexistent", &body); status != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown scene, got %d", status)
	}
}

func TestHandleRender_StreamsChunks(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/render?scene=default&width=16&samples=1&integrator=normals")
	if err != nil {
		t.Fatalf("GET /api/render: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %q", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}

	events := sseEvents(string(body))
	if len(events) == 0 {
		t.Fatal("No events received")
	}

	rows := 0
	console := 0
	for _, event := range events {
		switch event.Type {
		case "chunk":
			var update ChunkUpdate
			if err := json.Unmarshal([]byte(event.Data), &update); err != nil {
				t.Fatalf("Invalid chunk event: %v", err)
			}
			raw, err := base64.StdEncoding.DecodeString(update.ImageData)
			if err != nil {
				t.Fatalf("Invalid base64: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(raw))
			if err != nil {
				t.Fatalf("Invalid PNG: %v", err)
			}
			if img.Bounds().Dx() != 16 || img.Bounds().Dy() != update.EndRow-update.StartRow {
				t.Errorf("Strip bounds %v do not match rows [%d, %d)", img.Bounds(), update.StartRow, update.EndRow)
			}
			rows += update.EndRow - update.StartRow
		case "console":
			console++
		case "error":
			t.Fatalf("Unexpected error event: %s", event.Data)
		}
	}

	last := events[len(events)-1]
	if last.Type != "complete" {
		t.Fatalf("Expected final complete event, got %q", last.Type)
	}
	var complete CompleteUpdate
	if err := json.Unmarshal([]byte(last.Data), &complete); err != nil {
		t.Fatalf("Invalid complete event: %v", err)
	}
	if rows != complete.Height {
		t.Errorf("Chunks covered %d rows, want %d", rows, complete.Height)
	}
	if complete.TotalPixels != int64(complete.Width*complete.Height) || complete.PrimitiveCount != 2 {
		t.Errorf("Unexpected completion stats %+v", complete)
	}
	if complete.MeanLuminance <= 0 || complete.MeanLuminance > 1 {
		t.Errorf("Mean luminance %f outside (0, 1] for a sky-lit scene", complete.MeanLuminance)
	}
	if console == 0 {
		t.Error("Expected console events from the render logger")
	}
}

func TestHandleRender_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{"width too small", "width=2"},
		{"bad samples", "samples=abc"},
		{"unknown scene", "scene=nonexistent&width=16"},
		{"unknown integrator", "width=16&samples=1&integrator=bdpt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/api/render?" + tt.query)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}

			events := sseEvents(string(body))
			if len(events) == 0 || events[len(events)-1].Type != "error" {
				t.Errorf("Expected a final error event, got %+v", events)
			}
		})
	}
}

func TestHandleInspect(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name         string
		x, y         int
		hit          bool
		materialType string
		radius       float64
	}{
		{"center sphere", 8, 4, true, "lambertian", 0.5},
		{"ground", 8, 8, true, "lambertian", 100},
		{"sky", 8, 0, false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{}
			q.Set("scene", "default")
			q.Set("width", "16")
			q.Set("x", strconv.Itoa(tt.x))
			q.Set("y", strconv.Itoa(tt.y))

			var response InspectResponse
			if status := getJSON(t, srv.URL+"/api/inspect?"+q.Encode(), &response); status != http.StatusOK {
				t.Fatalf("Expected 200, got %d", status)
			}
			if response.Hit != tt.hit {
				t.Fatalf("Expected hit=%v, got %+v", tt.hit, response)
			}
			if !tt.hit {
				return
			}
			if response.MaterialType != tt.materialType || response.GeometryType != "sphere" {
				t.Errorf("Unexpected types %q/%q", response.MaterialType, response.GeometryType)
			}
			geom := response.Properties["geometry"].(map[string]interface{})
			if geom["radius"].(float64) != tt.radius {
				t.Errorf("Expected radius %v, got %v", tt.radius, geom["radius"])
			}
		})
	}

	var body map[string]string
	if status := getJSON(t, srv.URL+"/api/inspect?scene=default&width=16&x=99&y=0", &body); status != http.StatusBadRequest {
		t.Errorf("Expected 400 for out of bounds pixel, got %d", status)
	}
	if status := getJSON(t, srv.URL+"/api/inspect?scene=default&width=16&x=a&y=0", &body); status != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid x, got %d", status)
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected int
		wantErr  bool
	}{
		{"missing uses default", "", 400, false},
		{"valid", "width=640", 640, false},
		{"below range", "width=1", 0, true},
		{"above range", "width=5000", 0, true},
		{"not a number", "width=wide", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			got, err := parseIntParam(values, "width", 400, minWidth, maxWidth)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.query)
				}
				return
			}
			if err != nil || got != tt.expected {
				t.Errorf("parseIntParam(%q) = %d, %v; want %d", tt.query, got, err, tt.expected)
			}
		})
	}
}
