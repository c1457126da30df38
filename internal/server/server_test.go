package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/gazekit/platform/internal/analysis"
	"github.com/gazekit/platform/internal/config"
	"github.com/gazekit/platform/internal/display"
	"github.com/gazekit/platform/internal/gaze"
	"github.com/gazekit/platform/internal/pipeline"
)

func testServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{
			DeviceModel:       "iphone-14-pro",
			ViewingDistanceCm: 30,
			AnalysisRate:      1,
			AnalysisWindowSec: 30,
			HeatmapWidth:      32,
			HeatmapHeight:     32,
		}
	}
	return New(cfg, pipeline.New(cfg, nil), display.NewRegistry())
}

func traceCSV(n int) string {
	var buf bytes.Buffer
	buf.WriteString("elapsedTime(seconds),x,y\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "%.3f,%.1f,%.1f\n", float64(i)*0.15, 100+float64(i%8)*15, 200+float64(i%5)*10)
	}
	return buf.String()
}

func TestCORSMiddleware(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Test OPTIONS request
	req := httptest.NewRequest("OPTIONS", "/test", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("CORS origin = %q, want %q", v, "*")
	}

	// Test regular request
	req = httptest.NewRequest("GET", "/test", http.NoBody)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := testServer(t, nil).Handler()

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestDevicesEndpoints(t *testing.T) {
	handler := testServer(t, nil).Handler()

	req := httptest.NewRequest("GET", "/api/devices", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", rec.Code, http.StatusOK)
	}
	var list map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list["models"]) == 0 {
		t.Fatal("expected at least one known model")
	}

	req = httptest.NewRequest("GET", "/api/devices/iphone-14-pro", http.NoBody)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", rec.Code, http.StatusOK)
	}
	var info display.Info
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Profile.PixelsPerInch != 460 {
		t.Errorf("ppi = %g, want 460", info.Profile.PixelsPerInch)
	}

	req = httptest.NewRequest("GET", "/api/devices/no-such-device", http.NoBody)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown device status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	handler := testServer(t, nil).Handler()

	req := httptest.NewRequest("POST", "/api/analyze?device=iphone-14-pro&distance_cm=30", strings.NewReader(traceCSV(100)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var result analysis.Result
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Score < 1 || result.Score > 100 {
		t.Errorf("score %d out of range", result.Score)
	}
	if result.Metrics.TotalPoints != 100 {
		t.Errorf("total_points = %d, want 100", result.Metrics.TotalPoints)
	}
	if result.Angular == nil {
		t.Error("expected angular metrics")
	}
}

func TestAnalyzeEndpointRejectsBadInput(t *testing.T) {
	handler := testServer(t, nil).Handler()

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"empty body", "/api/analyze", "", http.StatusBadRequest},
		{"malformed csv", "/api/analyze", "elapsedTime(seconds),x,y\nnot,a,number\n", http.StatusBadRequest},
		{"unknown device", "/api/analyze?device=bogus", traceCSV(10), http.StatusNotFound},
		{"bad distance", "/api/analyze?distance_cm=-5", traceCSV(10), http.StatusBadRequest},
		{"bad scale", "/api/analyze?scale=zero", traceCSV(10), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.target, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestSessionEndpoints(t *testing.T) {
	srv := testServer(t, nil)
	handler := srv.Handler()

	info, err := display.NewRegistry().Lookup("iphone-14-pro")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	meta, err := srv.pipe.StartSession(info, 30)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	for i := 0; i < 50; i++ {
		sample := gaze.Sample{Elapsed: float64(i) * 0.1, X: 100 + float64(i%10)*12, Y: 200}
		if err := srv.pipe.Ingest(meta.ID, sample); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}

	req := httptest.NewRequest("GET", "/api/sessions", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/sessions/"+meta.ID, http.NoBody)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/sessions/"+meta.ID+"/heatmap", http.NoBody)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("heatmap status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("heatmap content type = %q", ct)
	}

	req = httptest.NewRequest("GET", "/api/sessions/"+meta.ID+"/report", http.NoBody)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Error("report is not a PDF")
	}

	req = httptest.NewRequest("GET", "/api/sessions/missing", http.NoBody)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRecordingEndpointsAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	cfg := &config.Config{
		DeviceModel:       "iphone-14-pro",
		ViewingDistanceCm: 30,
		AdminKeyHash:      string(hash),
	}
	srv := testServer(t, cfg)
	handler := srv.Handler()

	req := httptest.NewRequest("POST", "/api/recording/stop", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing key status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req = httptest.NewRequest("POST", "/api/recording/stop", http.NoBody)
	req.Header.Set(AdminKeyHeader, "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req = httptest.NewRequest("POST", "/api/recording/stop", http.NoBody)
	req.Header.Set(AdminKeyHeader, "secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid key status = %d, want %d", rec.Code, http.StatusOK)
	}
	if srv.pipe.Recording() {
		t.Error("recording should be disabled after stop")
	}

	req = httptest.NewRequest("POST", "/api/recording/start", http.NoBody)
	req.Header.Set(AdminKeyHeader, "secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d", rec.Code)
	}
	if !srv.pipe.Recording() {
		t.Error("recording should be enabled after start")
	}
}

func TestRecordingEndpointsNoAuthConfigured(t *testing.T) {
	srv := testServer(t, nil)
	handler := srv.Handler()

	req := httptest.NewRequest("POST", "/api/recording/stop", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d when auth disabled", rec.Code, http.StatusOK)
	}
}

func TestWSMessageTypes(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{}
		typeVal string
	}{
		{"start", StartMessage{Type: "start", Device: "iphone-14-pro"}, "start"},
		{"sample", SampleMessage{Type: "sample", SessionID: "s1", Elapsed: 1.5, X: 10, Y: 20}, "sample"},
		{"stop", StopMessage{Type: "stop", SessionID: "s1"}, "stop"},
		{"error", ErrorMessage{Type: "error", Message: "boom"}, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("json.Marshal error: %v", err)
			}

			var base Message
			if err := json.Unmarshal(data, &base); err != nil {
				t.Fatalf("json.Unmarshal error: %v", err)
			}
			if base.Type != tt.typeVal {
				t.Errorf("type = %q, want %q", base.Type, tt.typeVal)
			}
		})
	}
}

func TestSampleMessageParsing(t *testing.T) {
	input := `{"type": "sample", "session_id": "abc", "t": 2.25, "x": 150.5, "y": 300}`

	var sample SampleMessage
	if err := json.Unmarshal([]byte(input), &sample); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	if sample.SessionID != "abc" {
		t.Errorf("session_id = %q, want %q", sample.SessionID, "abc")
	}
	if sample.Elapsed != 2.25 || sample.X != 150.5 || sample.Y != 300 {
		t.Errorf("unexpected sample fields: %+v", sample)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := &rateLimiter{}
	for i := 0; i < RateLimitMessages; i++ {
		if !rl.allow() {
			t.Fatalf("message %d rejected below the limit", i)
		}
	}
	if rl.allow() {
		t.Error("message above the limit was allowed")
	}
}
