// Package http serves heart disease risk predictions over HTTP.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"cardioml/db"
	"cardioml/ml"
	"cardioml/monitoring"
)

// ErrModelUnavailable is returned while no model is loaded.
var ErrModelUnavailable = errors.New("model is not available")

const responseCacheSize = 512

// PredictionResponse is the payload returned by the predict endpoint.
type PredictionResponse struct {
	Prediction  int       `json:"prediction"`
	Probability float64   `json:"probability"`
	RiskLevel   string    `json:"risk_level"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

type inference struct {
	label       int
	probability float64
}

// PredictionService holds the loaded model and pipeline and answers
// prediction requests. The model can be swapped at runtime when the artifact
// files change on disk.
type PredictionService struct {
	mu           sync.RWMutex
	model        ml.Model
	preprocessor *ml.Preprocessor
	modelType    string
	loadedAt     time.Time

	modelPath    string
	pipelinePath string

	cache   *lru.Cache[string, inference]
	watcher *fsnotify.Watcher

	hub       *EventHub
	collector *monitoring.Collector
	logger    *zap.SugaredLogger
	persist   bool
}

// NewPredictionService loads the artifacts at the given paths. A load failure
// is not fatal: the service starts unavailable and a later reload (or file
// change) can bring it up.
func NewPredictionService(modelPath, pipelinePath string, hub *EventHub, collector *monitoring.Collector, persist bool, logger *zap.SugaredLogger) *PredictionService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cache, _ := lru.New[string, inference](responseCacheSize)

	s := &PredictionService{
		modelPath:    modelPath,
		pipelinePath: pipelinePath,
		cache:        cache,
		hub:          hub,
		collector:    collector,
		logger:       logger,
		persist:      persist,
	}
	if err := s.Reload(); err != nil {
		logger.Warnw("model not loaded, serving unavailable", "error", err)
	}
	return s
}

// Available reports whether a model and pipeline are loaded.
func (s *PredictionService) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil && s.preprocessor != nil && s.preprocessor.Fitted()
}

// Reload reads both artifacts from disk and swaps them in atomically. The
// response cache is cleared because cached results belong to the old model.
func (s *PredictionService) Reload() error {
	model, err := ml.LoadModelFile(s.modelPath)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	preprocessor := ml.NewPreprocessor()
	if err := preprocessor.Load(s.pipelinePath); err != nil {
		return fmt.Errorf("load pipeline: %w", err)
	}

	s.mu.Lock()
	s.model = model
	s.preprocessor = preprocessor
	s.modelType = fmt.Sprintf("%T", model)
	s.loadedAt = time.Now().UTC()
	s.cache.Purge()
	s.mu.Unlock()

	s.logger.Infow("model loaded", "model", s.modelType, "path", s.modelPath)
	if s.hub != nil {
		s.hub.Publish(EventModelReload, map[string]string{"model": s.modelType})
	}
	return nil
}

// WatchArtifacts reloads the service whenever either artifact file changes.
func (s *PredictionService) WatchArtifacts() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directories; editors and atomic writers replace files
	// rather than modifying them in place.
	dirs := map[string]bool{
		filepath.Dir(s.modelPath):    true,
		filepath.Dir(s.pipelinePath): true,
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			s.watcher = nil
			return err
		}
	}

	go func() {
		var pending <-chan time.Time
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				name := filepath.Clean(event.Name)
				if name != filepath.Clean(s.modelPath) && name != filepath.Clean(s.pipelinePath) {
					continue
				}
				// Debounce: artifact pairs are written back to back.
				pending = time.After(500 * time.Millisecond)

			case <-pending:
				pending = nil
				if err := s.Reload(); err != nil {
					s.logger.Warnw("artifact reload failed", "error", err)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warnw("artifact watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Close stops the artifact watcher.
func (s *PredictionService) Close() {
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}

// ValidateInput checks that every schema feature is present, no unknown
// features appear, and every value lies inside its clinical range.
func ValidateInput(input map[string]float64) error {
	domains := ml.Domains()
	for _, name := range ml.FeatureNames() {
		value, ok := input[name]
		if !ok {
			return &ml.SchemaError{Feature: name, Reason: "missing"}
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return &ml.SchemaError{Feature: name, Reason: "not a finite number"}
		}
		domain := domains[name]
		if value < domain.Min || value > domain.Max {
			return &ml.SchemaError{
				Feature: name,
				Reason:  fmt.Sprintf("value %g outside range [%g, %g]", value, domain.Min, domain.Max),
			}
		}
	}
	for name := range input {
		if _, ok := domains[name]; !ok {
			return &ml.SchemaError{Feature: name, Reason: "unknown feature"}
		}
	}
	return nil
}

// Predict transforms the input through the fitted pipeline and runs the
// model. Identical inputs are answered from the response cache.
func (s *PredictionService) Predict(input map[string]float64) (*PredictionResponse, error) {
	s.mu.RLock()
	model := s.model
	preprocessor := s.preprocessor
	cache := s.cache
	s.mu.RUnlock()

	if model == nil || preprocessor == nil {
		return nil, ErrModelUnavailable
	}

	start := time.Now()
	key := cacheKey(input)
	if result, ok := cache.Get(key); ok {
		if s.collector != nil {
			s.collector.RecordCacheHit()
		}
		return s.respond(input, result, start), nil
	}

	row := make(ml.Row, len(input))
	for name, value := range input {
		row[name] = value
	}
	features, err := preprocessor.TransformRow(row)
	if err != nil {
		return nil, err
	}
	label, probability, err := model.Predict(features)
	if err != nil {
		return nil, err
	}

	result := inference{label: label, probability: probability}
	cache.Add(key, result)
	return s.respond(input, result, start), nil
}

func (s *PredictionService) respond(input map[string]float64, result inference, start time.Time) *PredictionResponse {
	level := RiskLevel(result.probability)
	response := &PredictionResponse{
		Prediction:  result.label,
		Probability: result.probability,
		RiskLevel:   level,
		Message:     riskMessage(level),
		Timestamp:   time.Now().UTC(),
	}

	if s.collector != nil {
		s.collector.RecordPrediction(level, time.Since(start))
		s.collector.RecordFeatures(input)
	}
	if s.hub != nil {
		s.hub.Publish(EventPrediction, response)
	}
	if s.persist {
		go func() {
			if err := db.SavePrediction(input, result.label, result.probability, level); err != nil {
				s.logger.Warnw("save prediction", "error", err)
			}
		}()
	}
	return response
}

// ModelInfo describes the currently loaded model.
func (s *PredictionService) ModelInfo() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := map[string]interface{}{
		"available": s.model != nil && s.preprocessor != nil,
		"features":  ml.FeatureNames(),
	}
	if s.model != nil {
		info["model_type"] = s.modelType
		info["loaded_at"] = s.loadedAt
	}
	return info
}

// RiskLevel maps a positive-class probability to a risk band.
func RiskLevel(probability float64) string {
	switch {
	case probability < 0.3:
		return "Low"
	case probability < 0.7:
		return "Medium"
	default:
		return "High"
	}
}

func riskMessage(level string) string {
	switch level {
	case "Low":
		return "Low risk of heart disease"
	case "Medium":
		return "Medium risk of heart disease, consider a checkup"
	default:
		return "High risk of heart disease, consult a doctor"
	}
}

// cacheKey builds a canonical key; json.Marshal sorts map keys.
func cacheKey(input map[string]float64) string {
	payload, _ := json.Marshal(input)
	return string(payload)
}
