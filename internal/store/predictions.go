package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"waterqual/internal/sample"
)

// Prediction is one persisted pipeline result. Records are append-only and
// immutable; Potability is 1 for drinkable, Confidence is the probability of
// the predicted class as a percentage.
type Prediction struct {
	PredictionID string        `json:"prediction_id"`
	UserID       string        `json:"user_id"`
	Region       string        `json:"region"`
	State        string        `json:"state"`
	Timestamp    time.Time     `json:"timestamp"`
	Potability   int           `json:"potability"`
	Confidence   float64       `json:"confidence"`
	Sample       sample.Sample `json:"sample"`
}

// AppendPrediction assigns a fresh identifier when the record carries none
// and persists the record atomically, together with its per-user index key.
// Returns the prediction id.
func (s *Store) AppendPrediction(p Prediction) (string, error) {
	if p.PredictionID == "" {
		p.PredictionID = uuid.NewString()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal prediction: %w", err)
		}

		if err := tx.Bucket([]byte(predictionsBucket)).Put([]byte(p.PredictionID), data); err != nil {
			return err
		}

		key := fmt.Sprintf("%s_%d_%s", p.UserID, p.Timestamp.UnixNano(), p.PredictionID)
		return tx.Bucket([]byte(predsByUserBucket)).Put([]byte(key), []byte(p.PredictionID))
	})
	if err != nil {
		return "", fmt.Errorf("%w: append prediction: %v", ErrStorageIO, err)
	}
	return p.PredictionID, nil
}

// PredictionsByUser returns all predictions for one user, newest first.
func (s *Store) PredictionsByUser(userID string) ([]Prediction, error) {
	var preds []Prediction
	err := s.db.View(func(tx *bbolt.Tx) error {
		idx := tx.Bucket([]byte(predsByUserBucket))
		records := tx.Bucket([]byte(predictionsBucket))

		c := idx.Cursor()
		prefix := []byte(userID + "_")
		for k, id := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, id = c.Next() {
			data := records.Get(id)
			if data == nil {
				continue
			}
			var p Prediction
			if err := json.Unmarshal(data, &p); err != nil {
				continue // skip malformed records
			}
			preds = append(preds, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	// Index keys scan oldest-first; callers want newest-first.
	sort.Slice(preds, func(i, j int) bool {
		return preds[i].Timestamp.After(preds[j].Timestamp)
	})
	return preds, nil
}

// AllPredictions returns the full prediction table, for administrative
// aggregation and export.
func (s *Store) AllPredictions() ([]Prediction, error) {
	var preds []Prediction
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(predictionsBucket)).ForEach(func(_, v []byte) error {
			var p Prediction
			if err := json.Unmarshal(v, &p); err != nil {
				return nil // skip malformed records
			}
			preds = append(preds, p)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	return preds, nil
}
