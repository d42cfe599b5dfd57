package httpapi

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hlv-labs/phase-readiness/go-middleware/internal/history"
	"github.com/hlv-labs/phase-readiness/go-middleware/internal/readiness"
)

func testServer(t *testing.T) (*Server, *history.Store) {
	t.Helper()
	store := history.NewStore()
	return NewServer(store, NewMetrics()), store
}

func doGet(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Router().ServeHTTP(w, req)

	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("GET %s: invalid JSON: %v", path, err)
		}
	}
	return w, body
}

func seed(store *history.Store, t, temp float64, out readiness.Output) {
	sig := readiness.Signals{
		T:               t,
		TempC:           temp,
		AmbientC:        22.0,
		HysteresisIndex: math.NaN(),
		CoherenceIndex:  math.NaN(),
		Valid:           true,
	}
	store.Update(sig, out)
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t)
	w, body := doGet(t, s, "/health")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["status"] != "ok" || body["service"] != serviceName {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s, store := testServer(t)
	seed(store, 1.5, 25.0, readiness.Output{
		Readiness:      0.7,
		Gate:           readiness.GateCaution,
		Flags:          readiness.FlagCoherenceLow,
		StabilityScore: 0.7,
	})

	w, body := doGet(t, s, "/api/readiness")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["readiness"] != 0.7 || body["gate"] != "CAUTION" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["flags"] != float64(readiness.FlagCoherenceLow) {
		t.Fatalf("expected numeric flags %d, got %v", readiness.FlagCoherenceLow, body["flags"])
	}
	if body["timestamp_s"] != 1.5 {
		t.Fatalf("expected timestamp 1.5, got %v", body["timestamp_s"])
	}
}

func TestReadinessBeforeFirstEvaluation(t *testing.T) {
	s, _ := testServer(t)
	w, body := doGet(t, s, "/api/readiness")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["gate"] != "BLOCK" || body["readiness"] != 0.0 {
		t.Fatalf("empty store must serve a zero BLOCK snapshot, got %v", body)
	}
}

func TestThermalSerializesNonFiniteAsNull(t *testing.T) {
	s, store := testServer(t)
	sig := readiness.Signals{T: 2.0, TempC: 25.0, AmbientC: math.NaN(), Valid: true}
	store.Update(sig, readiness.Output{Gradient: 0.1, Trend: 0.02})

	w, body := doGet(t, s, "/api/thermal")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["temperature_C"] != 25.0 {
		t.Fatalf("expected temperature 25.0, got %v", body["temperature_C"])
	}
	if v, present := body["ambient_C"]; !present || v != nil {
		t.Fatalf("NaN ambient must serialize as null, got %v", v)
	}
	if body["gradient_C_per_s"] != 0.1 {
		t.Fatalf("expected gradient 0.1, got %v", body["gradient_C_per_s"])
	}
}

func TestHistoryEndpoint(t *testing.T) {
	s, store := testServer(t)
	for i := 0; i < 5; i++ {
		seed(store, float64(i), 20.0+float64(i), readiness.Output{Readiness: 1.0, Gate: readiness.GateAllow})
	}

	w, body := doGet(t, s, "/api/history?max=3")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["count"] != 3.0 {
		t.Fatalf("expected count 3, got %v", body["count"])
	}
	samples := body["samples"].([]any)
	first := samples[0].(map[string]any)
	last := samples[2].(map[string]any)
	if first["timestamp_s"] != 2.0 || last["timestamp_s"] != 4.0 {
		t.Fatalf("expected oldest-first window 2..4, got %v..%v", first["timestamp_s"], last["timestamp_s"])
	}
}

func TestHistoryRejectsBadMax(t *testing.T) {
	s, _ := testServer(t)
	for _, q := range []string{"max=0", "max=-3", "max=many"} {
		w, body := doGet(t, s, "/api/history?"+q)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, w.Code)
		}
		if body["error"] == nil {
			t.Fatalf("%s: expected error body, got %v", q, body)
		}
	}
}

func TestPhaseContextEndpoint(t *testing.T) {
	s, store := testServer(t)
	sig := readiness.Signals{T: 3.0, TempC: 25.0, HysteresisIndex: 0.4, CoherenceIndex: math.NaN(), Valid: true}
	store.Update(sig, readiness.Output{Gate: readiness.GateAllow, Trend: 0.05})

	_, body := doGet(t, s, "/api/phase_context")
	if body["hysteresis_index"] != 0.4 {
		t.Fatalf("expected hysteresis 0.4, got %v", body["hysteresis_index"])
	}
	if v, present := body["coherence_index"]; !present || v != nil {
		t.Fatalf("absent coherence must serialize as null, got %v", v)
	}
	if body["gradient_persistence"] != 0.05 || body["gate"] != "ALLOW" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestDiagnosticsFlagMeanings(t *testing.T) {
	s, store := testServer(t)
	flags := readiness.FlagTempOutOfRange | readiness.FlagFailsafeDefault
	seed(store, 4.0, 120.0, readiness.Output{Gate: readiness.GateBlock, Flags: flags})

	_, body := doGet(t, s, "/api/diagnostics")
	meanings := body["flag_meanings"].(map[string]any)
	if meanings["temp_out_of_range"] != true || meanings["failsafe_default"] != true {
		t.Fatalf("expected set bits true, got %v", meanings)
	}
	if meanings["input_invalid"] != false {
		t.Fatalf("expected unset bits false, got %v", meanings)
	}
	if len(meanings) != 9 {
		t.Fatalf("expected all 9 flag meanings, got %d", len(meanings))
	}
}

func TestNonGetMethodsRejected(t *testing.T) {
	s, _ := testServer(t)
	router := s.Router()

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, "/api/readiness", nil)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected 405, got %d", method, w.Code)
		}
	}
}

func TestUnknownEndpoint(t *testing.T) {
	s, _ := testServer(t)
	w, body := doGet(t, s, "/api/unknown")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	errObj := body["error"].(map[string]any)
	if errObj["code"] != 404.0 {
		t.Fatalf("expected error code 404, got %v", errObj)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := testServer(t)
	s.metrics.Observe(readiness.Output{Readiness: 0.9, Gate: readiness.GateAllow})
	s.metrics.Observe(readiness.Output{Gate: readiness.GateBlock, Flags: readiness.FlagFailsafeDefault})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	text := w.Body.String()
	for _, want := range []string{
		`readiness_evaluations_total{gate="ALLOW"} 1`,
		`readiness_evaluations_total{gate="BLOCK"} 1`,
		"readiness_failsafe_total 1",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, text)
		}
	}
}
