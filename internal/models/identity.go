package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// ProvisionalPrefix marks identifiers minted locally while the remote was
// unreachable. The prefix is part of the durable schema contract: it is how
// the reconciliation engine recognizes records that still need a server
// identity, without a side table.
const ProvisionalPrefix = "temp_"

// provSeq disambiguates provisional ids minted within the same nanosecond.
var provSeq atomic.Uint64

// ID is a record identity: either a stable server-assigned identifier or a
// provisional local placeholder. Exactly one of the two holds at any time.
type ID struct {
	value       string
	provisional bool
}

// StableID wraps a server-assigned identifier.
func StableID(v string) ID {
	return ID{value: v}
}

// NewProvisionalID mints a fresh provisional identifier derived from the
// current time.
func NewProvisionalID(now time.Time) ID {
	v := fmt.Sprintf("%s%d_%d", ProvisionalPrefix, now.UnixNano(), provSeq.Add(1))
	return ID{value: v, provisional: true}
}

// ParseID classifies a raw identifier string by the reserved prefix. This is
// the only place the prefix is inspected; everything else carries the tag.
func ParseID(v string) ID {
	return ID{value: v, provisional: strings.HasPrefix(v, ProvisionalPrefix)}
}

// String returns the raw identifier as stored and sent on the wire.
func (id ID) String() string { return id.value }

// Provisional reports whether the identity is a local placeholder.
func (id ID) Provisional() bool { return id.provisional }

// IsZero reports whether the identity is unset.
func (id ID) IsZero() bool { return id.value == "" }

// MarshalJSON encodes the identity as its raw string form.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON decodes and classifies a raw identifier string.
func (id *ID) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*id = ParseID(v)
	return nil
}
