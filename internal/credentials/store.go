package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketName = "auth"
	tokenKey   = "token"
)

// ErrNoStore is returned when the token store file does not exist
var ErrNoStore = errors.New("token store not found")

// Store reads the pre-provisioned bearer token from a local bbolt file.
// The file is opened read-only; tokens are provisioned out of band.
type Store struct {
	db *bbolt.DB
}

// Open opens the token store at path in read-only mode
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoStore
		}
		return nil, fmt.Errorf("checking token store: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("opening token store: %w", err)
	}
	return &Store{db: db}, nil
}

// Token returns the stored bearer token, or an empty string if none is set
func (s *Store) Token() (string, error) {
	var token string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return nil
		}
		token = strings.TrimSpace(string(bucket.Get([]byte(tokenKey))))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return token, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
