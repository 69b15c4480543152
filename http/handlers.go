package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cardioml/db"
	"cardioml/ml"
	"cardioml/monitoring"
)

// Handlers binds the API routes to the prediction service.
type Handlers struct {
	service   *PredictionService
	collector *monitoring.Collector
	hub       *EventHub
	persist   bool
}

func NewHandlers(service *PredictionService, collector *monitoring.Collector, hub *EventHub, persist bool) *Handlers {
	return &Handlers{service: service, collector: collector, hub: hub, persist: persist}
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/model", h.handleModel)
	mux.HandleFunc("GET /api/metrics", h.handleMetrics)
	if h.persist {
		mux.HandleFunc("GET /api/training/log", h.handleTrainingLog)
		mux.HandleFunc("GET /api/predictions", h.handlePredictions)
	}
	if h.hub != nil {
		mux.HandleFunc("GET /api/ws/events", h.hub.HandleWebSocket)
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"model_loaded": h.service.Available(),
	})
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	if !h.service.Available() {
		writeError(w, http.StatusServiceUnavailable, "model is not available, train a model first")
		return
	}

	var input map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.recordError()
		writeError(w, http.StatusBadRequest, "request body must be a JSON object of numeric features")
		return
	}
	if err := ValidateInput(input); err != nil {
		h.recordError()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := h.service.Predict(input)
	if err != nil {
		if errors.Is(err, ErrModelUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		var schemaErr *ml.SchemaError
		if errors.As(err, &schemaErr) {
			h.recordError()
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.recordError()
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) handleModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ModelInfo())
}

func (h *Handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.collector == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, h.collector.Snapshot())
}

func (h *Handlers) handleTrainingLog(w http.ResponseWriter, r *http.Request) {
	logs, err := db.LoadTrainingLog()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handlers) handlePredictions(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	records, err := db.RecentPredictions(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handlers) recordError() {
	if h.collector != nil {
		h.collector.RecordError()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
