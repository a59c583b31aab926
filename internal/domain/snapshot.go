package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Snapshot is one fetch of every collection the reports consume.
type Snapshot struct {
	ID           string         `json:"id"`
	FetchedAt    time.Time      `json:"fetched_at"`
	Products     []Product      `json:"products"`
	Transactions []Transaction  `json:"transactions"`
	Damages      []DamageRecord `json:"damages"`
	CycleCounts  []CycleCount   `json:"cycle_counts"`
	Errors       []string       `json:"errors,omitempty"`
}

// Partial reports whether at least one collection failed to load.
func (s *Snapshot) Partial() bool {
	return len(s.Errors) > 0
}

// ComputeID derives a content hash so identical data always maps to the same id.
func (s *Snapshot) ComputeID() string {
	h := sha1.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(s.Products)
	_ = enc.Encode(s.Transactions)
	_ = enc.Encode(s.Damages)
	_ = enc.Encode(s.CycleCounts)
	return hex.EncodeToString(h.Sum(nil))
}
