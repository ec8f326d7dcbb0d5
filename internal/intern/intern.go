// Package intern provides handle-based string interning for filepaths and
// identifiers. Two equal strings interned through the same Interner produce
// the same Handle, so callers can compare handles instead of strings on hot
// paths (diagnostic routing, macro lookup).
package intern

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Handle identifies an interned string. The zero Handle is never issued by
// Intern and is reserved by callers to mean "no value" (e.g. SourceLine.Parent == 0).
type Handle uint32

// Interner is safe for concurrent use.
type Interner struct {
	mu     sync.RWMutex
	byHash map[uint64][]Handle // hash -> candidate handles (collision chain)
	values []string            // Handle i -> values[i-1]
}

// New returns an empty Interner.
func New() *Interner {
	return &Interner{byHash: make(map[uint64][]Handle)}
}

// Intern returns the Handle for s, creating one if s hasn't been seen before.
func (in *Interner) Intern(s string) Handle {
	h := xxhash.Sum64String(s)

	in.mu.RLock()
	if hnd, ok := in.find(h, s); ok {
		in.mu.RUnlock()
		return hnd
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()

	if hnd, ok := in.find(h, s); ok {
		return hnd
	}

	in.values = append(in.values, s)
	hnd := Handle(len(in.values))
	in.byHash[h] = append(in.byHash[h], hnd)
	return hnd
}

// find must be called with in.mu held (read or write).
func (in *Interner) find(h uint64, s string) (Handle, bool) {
	for _, hnd := range in.byHash[h] {
		if in.values[hnd-1] == s {
			return hnd, true
		}
	}
	return 0, false
}

// Lookup returns the string for a Handle previously returned by Intern.
func (in *Interner) Lookup(h Handle) (string, bool) {
	if h == 0 {
		return "", false
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	idx := int(h) - 1
	if idx < 0 || idx >= len(in.values) {
		return "", false
	}
	return in.values[idx], true
}

// MustLookup panics if h was never issued by this Interner. Use only where
// the handle is known-good (e.g. it was just returned by Intern).
func (in *Interner) MustLookup(h Handle) string {
	s, ok := in.Lookup(h)
	if !ok {
		panic("intern: unknown handle")
	}
	return s
}

// IsSynthetic reports whether the interned filepath begins with '<', the
// convention for internally-generated files such as "<temp>" used for
// macro-expansion output.
func (in *Interner) IsSynthetic(h Handle) bool {
	s, ok := in.Lookup(h)
	return ok && len(s) > 0 && s[0] == '<'
}
