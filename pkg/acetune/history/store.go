package history

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/jamesainslie/acetune/pkg/acetune/logging"
)

var logger = logging.Get("history")

var (
	// ErrNotFound is returned when no record matches an ID.
	ErrNotFound = errors.New("history record not found")

	// ErrAmbiguousID is returned when an ID prefix matches several records.
	ErrAmbiguousID = errors.New("ambiguous history record id")
)

// Store wraps badger for history records.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history store %s: %w", path, err)
	}

	return newStore(db)
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return newStore(db)
}

func newStore(db *badger.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores r. A missing ID or timestamp is filled in.
func (s *Store) Put(r *Record) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	value, err := r.Encode()
	if err != nil {
		return err
	}
	key := recordKey(r)

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(indexKey(r.ID), key)
	})
	if err != nil {
		return err
	}

	logger.Debug("record stored", "id", r.ID, "device", r.Config.Device, "tier", r.Config.Tier)
	return nil
}

// List returns up to limit records, newest first. A limit of zero or less
// returns every record.
func (s *Store) List(limit int) ([]Record, error) {
	var out []Record
	prefix := []byte(recordPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append([]byte(recordPrefix), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var r Record
			if err := it.Item().Value(r.Decode); err != nil {
				return err
			}
			out = append(out, r)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})

	return out, err
}

// Get returns the record whose ID equals or starts with id.
func (s *Store) Get(id string) (*Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	var r Record
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := indexKey(id)
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		var recKey []byte
		matches := 0
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			matches++
			if matches > 1 {
				return fmt.Errorf("%w: %s", ErrAmbiguousID, id)
			}
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			recKey = v
		}
		if matches == 0 {
			return ErrNotFound
		}

		item, err := txn.Get(recKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(r.Decode)
	})

	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Clean removes records older than cutoff and returns how many it removed.
func (s *Store) Clean(cutoff time.Time) (int, error) {
	removed := 0
	limit := []byte(fmt.Sprintf("%s%020d/", recordPrefix, cutoff.UnixNano()))
	prefix := []byte(recordPrefix)

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if string(key) >= string(limit) {
				break
			}

			var r Record
			if err := it.Item().Value(r.Decode); err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			if err := txn.Delete(indexKey(r.ID)); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("history cleaned", "removed", removed, "cutoff", cutoff)
	return removed, nil
}

// CleanRetention removes records older than retentionDays.
func (s *Store) CleanRetention(retentionDays int) (int, error) {
	return s.Clean(time.Now().AddDate(0, 0, -retentionDays))
}
