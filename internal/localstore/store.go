// Package localstore is a self-contained content backend for offline review
// workspaces. Items live in bbolt and free-text search runs on a bleve index.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pders01/reviewq/internal/content"
)

// StatusRetired marks items that have left the review workflow.
const StatusRetired = "Retired"

var ErrNotFound = errors.New("content not found")

// Kind selects which result collection an item belongs to.
type Kind string

const (
	KindContent     Kind = "content"
	KindQuestionSet Kind = "questionset"
)

var (
	contentBucket     = []byte(KindContent)
	questionSetBucket = []byte(KindQuestionSet)
	metaBucket        = []byte("metadata")

	seededAtKey = []byte("seeded_at")
)

func bucketFor(kind Kind) []byte {
	if kind == KindQuestionSet {
		return questionSetBucket
	}
	return contentBucket
}

// Record is a stored item together with its collection.
type Record struct {
	Kind Kind
	Item content.Item
}

type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{contentBucket, questionSetBucket, metaBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveItems writes items into the bucket for kind, replacing existing records.
func (s *Store) SaveItems(kind Kind, items []content.Item) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFor(kind))
		for _, item := range items {
			if item.Identifier == "" {
				return fmt.Errorf("item %q has no identifier", item.Name)
			}
			data, err := json.Marshal(item)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(item.Identifier), data); err != nil {
				return err
			}
		}
		return tx.Bucket(metaBucket).Put(seededAtKey, []byte(time.Now().UTC().Format(time.RFC3339)))
	})
}

// GetItem looks an identifier up in both collections.
func (s *Store) GetItem(id string) (Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, kind := range []Kind{KindContent, KindQuestionSet} {
			data := tx.Bucket(bucketFor(kind)).Get([]byte(id))
			if data == nil {
				continue
			}
			rec.Kind = kind
			return json.Unmarshal(data, &rec.Item)
		}
		return ErrNotFound
	})
	return rec, err
}

// AllItems returns every stored record, content collection first.
func (s *Store) AllItems() ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, kind := range []Kind{KindContent, KindQuestionSet} {
			err := tx.Bucket(bucketFor(kind)).ForEach(func(_ []byte, v []byte) error {
				var item content.Item
				if err := json.Unmarshal(v, &item); err != nil {
					// Skip corrupt records rather than failing the whole listing.
					return nil
				}
				records = append(records, Record{Kind: kind, Item: item})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return records, err
}

// SetStatus updates the workflow status of an item.
func (s *Store) SetStatus(id, status string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, kind := range []Kind{KindContent, KindQuestionSet} {
			b := tx.Bucket(bucketFor(kind))
			data := b.Get([]byte(id))
			if data == nil {
				continue
			}

			var item content.Item
			if err := json.Unmarshal(data, &item); err != nil {
				return err
			}
			item.Status = status
			item.LastUpdatedOn = time.Now().UTC().Format("2006-01-02T15:04:05.000-0700")

			updated, err := json.Marshal(item)
			if err != nil {
				return err
			}
			return b.Put([]byte(id), updated)
		}
		return ErrNotFound
	})
}

// SeededAt reports when items were last written. The zero time means never.
func (s *Store) SeededAt() (time.Time, error) {
	var seeded time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(metaBucket).Get(seededAtKey)
		if data == nil {
			return nil
		}
		t, err := time.Parse(time.RFC3339, string(data))
		if err != nil {
			return err
		}
		seeded = t
		return nil
	})
	return seeded, err
}
