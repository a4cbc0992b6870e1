package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Schema versions:
// 1 - records under rec/<unix-nano>/<id> with an id/<id> index
const CurrentSchemaVersion = 1

const schemaKey = "meta/schema"

// ErrSchemaTooNew is returned when the store was written by a newer acetune.
var ErrSchemaTooNew = errors.New("history store schema is newer than this binary")

// Schema records the layout version of a store.
type Schema struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetSchema returns the stored schema, or nil for a fresh store.
func (s *Store) GetSchema() (*Schema, error) {
	var schema *Schema

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			schema = &Schema{}
			return json.Unmarshal(val, schema)
		})
	})

	return schema, err
}

func (s *Store) setSchema(schema *Schema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schemaKey), data)
	})
}

// ensureSchema stamps a fresh store and rejects one from a newer release.
func (s *Store) ensureSchema() error {
	schema, err := s.GetSchema()
	if err != nil {
		return fmt.Errorf("reading history schema: %w", err)
	}

	if schema == nil {
		return s.setSchema(&Schema{Version: CurrentSchemaVersion, UpdatedAt: time.Now().UTC()})
	}
	if schema.Version > CurrentSchemaVersion {
		return fmt.Errorf("%w: version %d, supported %d", ErrSchemaTooNew, schema.Version, CurrentSchemaVersion)
	}
	return nil
}
