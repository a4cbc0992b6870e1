// Package history keeps a local record of resolved runtime configurations
// in a badger database. Records are diagnostic: nothing in the engine reads
// them back when building a configuration.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jamesainslie/acetune/pkg/acetune/types"
)

// Record is one resolution: what the host looked like and what was chosen.
type Record struct {
	ID           string                     `json:"id"`
	Timestamp    time.Time                  `json:"timestamp"`
	Capabilities types.SystemCapabilities   `json:"capabilities"`
	Config       types.RuntimeConfiguration `json:"config"`
	Warnings     []string                   `json:"warnings,omitempty"`
}

// NewRecord creates a record with a fresh ID and the current time.
func NewRecord(caps types.SystemCapabilities, cfg types.RuntimeConfiguration, warnings []error) *Record {
	r := &Record{
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		Capabilities: caps,
		Config:       cfg,
	}
	for _, w := range warnings {
		if w != nil {
			r.Warnings = append(r.Warnings, w.Error())
		}
	}
	return r
}

// ShortID returns the first eight characters of the ID.
func (r *Record) ShortID() string {
	if len(r.ID) <= 8 {
		return r.ID
	}
	return r.ID[:8]
}

// Encode serializes the record.
func (r *Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Decode deserializes data into the record.
func (r *Record) Decode(data []byte) error {
	return json.Unmarshal(data, r)
}

const (
	recordPrefix = "rec/"
	indexPrefix  = "id/"
)

// recordKey orders records by time: rec/<zero-padded unix nanos>/<id>.
func recordKey(r *Record) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", recordPrefix, r.Timestamp.UnixNano(), r.ID))
}

// indexKey maps an ID to its record key.
func indexKey(id string) []byte {
	return []byte(indexPrefix + id)
}
