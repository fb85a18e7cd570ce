// Package store provides persistent storage for the water quality service.
// It uses BoltDB as the underlying storage engine to hold user accounts and
// prediction records, with secondary index buckets enforcing username and
// email uniqueness.
//
// BoltDB serializes writes through single-writer transactions, which gives
// the append paths the atomicity and lost-update protection that concurrent
// dashboard sessions require. Reads run in snapshot transactions and may be
// slightly stale.
package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	usersBucket       = "users"        // user_id -> JSON user record
	usersByNameBucket = "users_name"   // username -> user_id
	usersByMailBucket = "users_email"  // email -> user_id
	predictionsBucket = "predictions"  // prediction_id -> JSON prediction record
	predsByUserBucket = "preds_user"   // user_id_tsnano_prediction_id -> prediction_id
)

var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrStorageIO         = errors.New("storage failure")
)

// Store provides persistent storage for users and predictions.
type Store struct {
	db *bbolt.DB
}

// New opens the database under dataPath and creates the required buckets.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "waterqual.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrStorageIO, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{
			usersBucket, usersByNameBucket, usersByMailBucket,
			predictionsBucket, predsByUserBucket,
		} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
