// Package diag models the diagnostics snapshot shown by the panel and
// fetches it from the host endpoint.
package diag

import (
	"strings"

	"sysdiag/strutil"

	"github.com/zeebo/xxh3"
)

// Entry is one labeled fact. Value is opaque display text.
type Entry struct {
	Key   string
	Value string
}

// Snapshot is an ordered set of entries. A nil Snapshot means no data has
// been fetched yet; an empty non-nil Snapshot is a valid zero-row result.
type Snapshot []Entry

// ErrorKey and ErrorMessage form the synthetic entry stored on fetch failure.
const (
	ErrorKey     = "Error"
	ErrorMessage = "Failed to fetch system information. Check console for details."
)

// deniedKeys are environment entries that never reach the panel.
var deniedKeys = []string{
	"Env: PYTHONPATH",
	"Env: CUDA_HOME",
	"Env: LD_LIBRARY_PATH",
}

// ErrorSnapshot returns the single-entry snapshot shown after a failed fetch.
func ErrorSnapshot() Snapshot {
	return Snapshot{{Key: ErrorKey, Value: ErrorMessage}}
}

// IsDenied reports whether key names a redacted environment entry.
// Matching ignores case and surrounding whitespace.
func IsDenied(key string) bool {
	for _, denied := range deniedKeys {
		if strutil.EqualFoldTrim(key, denied) {
			return true
		}
	}
	return false
}

// Redact returns s without denied entries. Order of the remaining entries
// is preserved and s itself is not modified.
func Redact(s Snapshot) Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, 0, len(s))
	for _, e := range s {
		if IsDenied(e.Key) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Keys returns the entry keys in display order.
func (s Snapshot) Keys() []string {
	keys := make([]string, len(s))
	for i, e := range s {
		keys[i] = e.Key
	}
	return keys
}

// Fingerprint hashes the ordered entries. Equal snapshots always hash the
// same; reordering entries changes the hash.
func (s Snapshot) Fingerprint() uint64 {
	var b strings.Builder
	for _, e := range s {
		b.WriteString(e.Key)
		b.WriteByte(0)
		b.WriteString(e.Value)
		b.WriteByte(0)
	}
	return xxh3.HashString(b.String())
}
