package markrec

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a time-sortable UUIDv7 string.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// MarshalScan serialises a Scan to JSON.
func MarshalScan(s *Scan) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalScan deserialises a Scan from JSON.
func UnmarshalScan(data []byte) (*Scan, error) {
	var s Scan
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// MarshalSnapshot serialises a Snapshot to JSON.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSnapshot deserialises a Snapshot from JSON.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// HashHTML returns the SHA-256 hex digest of raw HTML bytes.
func HashHTML(html []byte) string {
	h := sha256.Sum256(html)
	return fmt.Sprintf("%x", h)
}
