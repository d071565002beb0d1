/*
Package state persists the small durable facts a survey deployment carries
between sessions: the roughness calibration factor and the last scheduler
checkpoint.
*/
package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/roadmetrics/surveyd/params"
	"github.com/roadmetrics/surveyd/scheduler"
	"go.etcd.io/bbolt"
)

var stateBucket = []byte("state")

var keyCalibration = []byte("calibration")
var keyCheckpoint = []byte("checkpoint")

type Store struct {
	DB *bbolt.DB
}

// Open opens (creating if needed) the state DB under root. An empty root
// uses params.DatadirRoot. Opening a writable conn takes a file lock; one
// surveyd owns the datadir at a time.
func Open(root string, readOnly bool) (*Store, error) {
	if root == "" {
		root = params.DatadirRoot
	}
	if !readOnly {
		if err := os.MkdirAll(root, 0700); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(filepath.Join(root, params.StateDBName),
		0600, &bbolt.Options{ReadOnly: readOnly})
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) storeKV(key, data []byte) error {
	if key == nil {
		return fmt.Errorf("storeKV: nil key")
	}
	if data == nil {
		return fmt.Errorf("storeKV: nil data")
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(stateBucket)
		if err != nil {
			return err
		}
		return bucket.Put(key, data)
	})
}

func (s *Store) readKV(key []byte) ([]byte, error) {
	buf := bytes.NewBuffer([]byte{})
	err := s.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(stateBucket)
		if bucket == nil {
			return nil
		}
		// Gotcha! The value returned by Get is only valid in the scope of
		// the transaction.
		got := bucket.Get(key)
		if got == nil {
			return nil
		}
		_, err := buf.Write(got)
		return err
	})
	return buf.Bytes(), err
}

// StoreCalibration persists the deployment calibration factor.
func (s *Store) StoreCalibration(factor float64) error {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return fmt.Errorf("invalid calibration factor: %v", factor)
	}
	return s.storeKV(keyCalibration, []byte(strconv.FormatFloat(factor, 'g', -1, 64)))
}

// ReadCalibration returns the stored factor, or ok=false when the
// deployment has never been calibrated.
func (s *Store) ReadCalibration() (factor float64, ok bool, err error) {
	b, err := s.readKV(keyCalibration)
	if err != nil || len(b) == 0 {
		return 0, false, err
	}
	factor, err = strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0, false, err
	}
	return factor, true, nil
}

// StoreCheckpoint snapshots the scheduler state at session stop. A new
// session always starts from a zero ruler; the checkpoint is diagnostic.
func (s *Store) StoreCheckpoint(cp scheduler.Checkpoint) error {
	b, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	return s.storeKV(keyCheckpoint, b)
}

func (s *Store) ReadCheckpoint() (cp scheduler.Checkpoint, ok bool, err error) {
	b, err := s.readKV(keyCheckpoint)
	if err != nil || len(b) == 0 {
		return cp, false, err
	}
	if err := json.Unmarshal(b, &cp); err != nil {
		return cp, false, err
	}
	return cp, true, nil
}
