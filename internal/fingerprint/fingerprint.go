// Package fingerprint derives the deterministic content identity of a
// canonical record. The fingerprint doubles as the storage primary key, so
// re-ingesting identical content is a no-op by construction.
package fingerprint

import (
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/Rohit-Borah/NHP-API/internal/records"
)

// key joins all field values in canonical column order. Absent values encode
// as NUL so that an empty string and a missing field fingerprint differently.
func key(r *records.Record) string {
	var b strings.Builder
	for i, v := range r.Values() {
		if i > 0 {
			b.WriteByte('|')
		}
		if v == nil {
			b.WriteByte('\x00')
		} else {
			b.WriteString(*v)
		}
	}
	return b.String()
}

// Sum returns the record's fingerprint: a name-based (SHA-1, DNS namespace)
// UUID over the joined field values. Stable across runs and machines; any
// field difference, including whitespace, changes the result.
func Sum(r *records.Record) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(key(r))).String()
}

// Seen is an in-memory set used to drop exact duplicates within a single
// file before the database round-trip. The primary-key constraint remains
// the backstop; this only saves write amplification.
type Seen struct {
	set map[xxh3.Uint128]struct{}
}

// NewSeen returns an empty set sized for n records.
func NewSeen(n int) *Seen {
	return &Seen{set: make(map[xxh3.Uint128]struct{}, n)}
}

// Observe records r and reports whether this is its first occurrence.
func (s *Seen) Observe(r *records.Record) bool {
	h := xxh3.HashString128(key(r))
	if _, dup := s.set[h]; dup {
		return false
	}
	s.set[h] = struct{}{}
	return true
}
