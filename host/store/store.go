// Local archive for completed acquisitions.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"scancount/host/scanner"
)

const scansBucket = "scans"

// ErrNotFound is returned when no scan exists for the requested key.
var ErrNotFound = errors.New("scan not found")

// Store archives scans in a bbolt database, keyed by the big-endian
// unix-nano acquisition timestamp so iteration order is chronological.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the archive database.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open scan archive %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(scansBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put archives one scan.
func (s *Store) Put(scan *scanner.Scan) error {
	data, err := json.Marshal(scan)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(scansBucket)).Put(timeKey(scan.Taken), data)
	})
}

// List returns the acquisition timestamps of every archived scan, oldest
// first.
func (s *Store) List() ([]time.Time, error) {
	var times []time.Time
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(scansBucket)).ForEach(func(k, v []byte) error {
			times = append(times, keyTime(k))
			return nil
		})
	})
	return times, err
}

// Get fetches the scan taken at the given time.
func (s *Store) Get(taken time.Time) (*scanner.Scan, error) {
	var scan *scanner.Scan
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(scansBucket)).Get(timeKey(taken))
		if data == nil {
			return ErrNotFound
		}
		scan = &scanner.Scan{}
		return json.Unmarshal(data, scan)
	})
	if err != nil {
		return nil, err
	}
	return scan, nil
}

// Latest fetches the most recently archived scan.
func (s *Store) Latest() (*scanner.Scan, error) {
	var scan *scanner.Scan
	err := s.db.View(func(tx *bbolt.Tx) error {
		_, data := tx.Bucket([]byte(scansBucket)).Cursor().Last()
		if data == nil {
			return ErrNotFound
		}
		scan = &scanner.Scan{}
		return json.Unmarshal(data, scan)
	})
	if err != nil {
		return nil, err
	}
	return scan, nil
}

func timeKey(t time.Time) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(t.UnixNano()))
	return b
}

func keyTime(k []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(k)))
}
