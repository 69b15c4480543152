package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

func newTestMux(t *testing.T, service *PredictionService) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewHandlers(service, nil, nil, false).Register(mux)
	return mux
}

func unavailableService(t *testing.T) *PredictionService {
	t.Helper()
	dir := t.TempDir()
	return NewPredictionService(
		filepath.Join(dir, "model.json"),
		filepath.Join(dir, "pipeline.json"),
		nil, nil, false, nil,
	)
}

func availableService(t *testing.T) *PredictionService {
	t.Helper()
	modelPath, pipelinePath := writeArtifacts(t, t.TempDir())
	return NewPredictionService(modelPath, pipelinePath, nil, nil, false, nil)
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestMux(t, unavailableService(t))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	if body["model_loaded"] != false {
		t.Fatalf("expected model_loaded false, got %v", body["model_loaded"])
	}
}

func TestPredictUnavailable(t *testing.T) {
	mux := newTestMux(t, unavailableService(t))

	payload, _ := json.Marshal(validInput())
	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestPredictBadBody(t *testing.T) {
	mux := newTestMux(t, availableService(t))

	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPredictValidationFailure(t *testing.T) {
	mux := newTestMux(t, availableService(t))

	input := validInput()
	input["chol"] = 9999
	payload, _ := json.Marshal(input)
	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["error"] == "" {
		t.Fatal("expected an error message")
	}
}

func TestPredictSuccess(t *testing.T) {
	mux := newTestMux(t, availableService(t))

	payload, _ := json.Marshal(validInput())
	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var response PredictionResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Prediction != 0 && response.Prediction != 1 {
		t.Fatalf("unexpected prediction %d", response.Prediction)
	}
	if response.Probability < 0 || response.Probability > 1 {
		t.Fatalf("probability out of range: %v", response.Probability)
	}
	if response.RiskLevel != "Low" && response.RiskLevel != "Medium" && response.RiskLevel != "High" {
		t.Fatalf("unexpected risk level %q", response.RiskLevel)
	}
}

func TestModelEndpoint(t *testing.T) {
	mux := newTestMux(t, availableService(t))

	req := httptest.NewRequest(http.MethodGet, "/api/model", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["available"] != true {
		t.Fatalf("expected available true, got %v", body["available"])
	}
	features, ok := body["features"].([]interface{})
	if !ok || len(features) != 13 {
		t.Fatalf("expected 13 features, got %v", body["features"])
	}
}
