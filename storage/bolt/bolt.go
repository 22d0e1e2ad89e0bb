// Package bolt is a storage.Store backed by bbolt.
package bolt

import (
	"context"
	"log"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("answers")

// Storage is a bbolt-backed answer store.
type Storage struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

// NewStorage makes a Storage for the given filename.
//
// Call Open before use.
func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		filename: filename,
	}, nil
}

// Open opens the underlying database file.
func (s *Storage) Open() error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db

	return db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) logf(format string, args ...interface{}) {
	if s.Debug {
		log.Printf("bolt Storage."+format, args...)
	}
}

// Put stores the value at the key.
func (s *Storage) Put(ctx context.Context, key, value string) error {
	s.logf("Put %s", key)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), []byte(value))
	})
}

// Get returns the value at the key.
func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	s.logf("Get %s", key)
	var (
		value string
		have  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(bucketName).Get([]byte(key))
		if bs != nil {
			value = string(bs)
			have = true
		}
		return nil
	})
	return value, have, err
}
