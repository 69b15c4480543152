// Package db persists training runs and served predictions in SQLite.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB opens (or creates) the SQLite database and its tables.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50) NOT NULL,
        accuracy REAL,
        precision REAL,
        recall REAL,
        f1_score REAL,
        roc_auc REAL,
        cv_roc_auc_mean REAL,
        cv_roc_auc_std REAL,
        selected INTEGER DEFAULT 0,
        data_points INTEGER,
        trained_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        input TEXT NOT NULL,
        predicted_label INTEGER NOT NULL,
        probability REAL NOT NULL,
        risk_level VARCHAR(10) NOT NULL,
        created_at DATETIME NOT NULL
    );
    `
	_, err = database.Exec(query)
	return err
}

// Close closes the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// TrainingLog is one recorded training run of one candidate model.
type TrainingLog struct {
	ModelName    string    `json:"model_name"`
	Accuracy     float64   `json:"accuracy"`
	Precision    float64   `json:"precision"`
	Recall       float64   `json:"recall"`
	F1Score      float64   `json:"f1_score"`
	ROCAUC       float64   `json:"roc_auc"`
	CVROCAUCMean float64   `json:"cv_roc_auc_mean"`
	CVROCAUCStd  float64   `json:"cv_roc_auc_std"`
	Selected     bool      `json:"selected"`
	DataPoints   int       `json:"data_points"`
	TrainedAt    time.Time `json:"trained_at"`
}

// SaveTrainingResult records one candidate's metric set for a training run.
func SaveTrainingResult(name string, metrics map[string]float64, dataPoints int, selected bool) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(`
        INSERT INTO training_log (
            model_name, accuracy, precision, recall, f1_score, roc_auc,
            cv_roc_auc_mean, cv_roc_auc_std, selected, data_points, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name,
		metrics["accuracy"],
		metrics["precision"],
		metrics["recall"],
		metrics["f1_score"],
		metrics["roc_auc"],
		metrics["cv_roc_auc_mean"],
		metrics["cv_roc_auc_std"],
		selected,
		dataPoints,
		time.Now().UTC(),
	)
	return err
}

// LoadTrainingLog returns recorded training runs, most recent first.
func LoadTrainingLog() ([]TrainingLog, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := database.Query(`
        SELECT model_name, accuracy, precision, recall, f1_score, roc_auc,
               cv_roc_auc_mean, cv_roc_auc_std, selected, data_points, trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var entry TrainingLog
		if err := rows.Scan(
			&entry.ModelName, &entry.Accuracy, &entry.Precision, &entry.Recall,
			&entry.F1Score, &entry.ROCAUC, &entry.CVROCAUCMean, &entry.CVROCAUCStd,
			&entry.Selected, &entry.DataPoints, &entry.TrainedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// PredictionRecord is one served prediction.
type PredictionRecord struct {
	Input       map[string]float64 `json:"input"`
	Label       int                `json:"predicted_label"`
	Probability float64            `json:"probability"`
	RiskLevel   string             `json:"risk_level"`
	CreatedAt   time.Time          `json:"created_at"`
}

// SavePrediction stores a served prediction together with its raw input.
func SavePrediction(input map[string]float64, label int, probability float64, riskLevel string) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	_, err = database.Exec(`
        INSERT INTO predictions (input, predicted_label, probability, risk_level, created_at)
        VALUES (?, ?, ?, ?, ?)`,
		string(payload), label, probability, riskLevel, time.Now().UTC(),
	)
	return err
}

// RecentPredictions returns up to limit served predictions, newest first.
func RecentPredictions(limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := database.Query(`
        SELECT input, predicted_label, probability, risk_level, created_at
        FROM predictions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0, limit)
	for rows.Next() {
		var record PredictionRecord
		var input string
		if err := rows.Scan(&input, &record.Label, &record.Probability, &record.RiskLevel, &record.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(input), &record.Input); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
