// =============================================================================
// navaudit - Grouping Index
// =============================================================================
//
// The Index maps a composite key (an ordered tuple of field values) to the
// records that produced it, in insertion order. It answers:
//   - Which keys have more than one record (duplicates)
//   - How many records fall under a key prefix (per-day, per-AMC tallies)
//   - Which distinct values follow a prefix (the AMCs seen on a day)
//
// Keys are compared by full tuple equality. Records carrying the same key but
// different auxiliary fields (scheme name, NAV value) are still duplicates.
//
// An Index belongs to a single run and is not safe for concurrent use.
//
// =============================================================================

package grouping

import (
	"iter"
	"slices"
	"strings"

	"github.com/ginjaninja78/navaudit/internal/types"
)

// keySep joins key components internally. It cannot appear in a parsed field.
const keySep = "\x00"

// Key is an ordered tuple of field values.
type Key []string

// String renders the key for display.
func (k Key) String() string {
	return "(" + strings.Join(k, ", ") + ")"
}

func (k Key) id() string {
	return strings.Join(k, keySep)
}

// Compare orders keys lexicographically by component.
func (k Key) Compare(other Key) int {
	return slices.Compare(k, other)
}

// KeyFunc derives a key from a record.
type KeyFunc func(types.Record) Key

// FieldsKey returns a KeyFunc that builds the key from the given field
// positions, in order. Missing positions contribute an empty component.
func FieldsKey(positions ...int) KeyFunc {
	return func(rec types.Record) Key {
		key := make(Key, len(positions))
		for i, pos := range positions {
			key[i] = rec.Field(pos)
		}
		return key
	}
}

type entry struct {
	key     Key
	records []types.Record
}

// Index groups records by key.
type Index struct {
	entries map[string]*entry

	// order holds key ids in first-seen order.
	order []string
}

// New creates an empty Index.
func New() *Index {
	return &Index{entries: make(map[string]*entry)}
}

// Add appends a record under key. Records under one key keep insertion order.
func (x *Index) Add(key Key, rec types.Record) {
	id := key.id()
	e, ok := x.entries[id]
	if !ok {
		e = &entry{key: slices.Clone(key)}
		x.entries[id] = e
		x.order = append(x.order, id)
	}
	e.records = append(e.records, rec)
}

// Lookup returns the records stored under key, or nil.
func (x *Index) Lookup(key Key) []types.Record {
	if e, ok := x.entries[key.id()]; ok {
		return slices.Clone(e.records)
	}
	return nil
}

// KeyCount returns the number of distinct keys.
func (x *Index) KeyCount() int {
	return len(x.entries)
}

// Duplicates yields every key with more than one record, sorted by key.
// The sequence is computed lazily; the sort happens on first iteration.
func (x *Index) Duplicates() iter.Seq2[Key, []types.Record] {
	return func(yield func(Key, []types.Record) bool) {
		var dups []*entry
		for _, id := range x.order {
			if e := x.entries[id]; len(e.records) > 1 {
				dups = append(dups, e)
			}
		}

		slices.SortFunc(dups, func(a, b *entry) int {
			return a.key.Compare(b.key)
		})

		for _, e := range dups {
			if !yield(slices.Clone(e.key), slices.Clone(e.records)) {
				return
			}
		}
	}
}

// CountByPrefix returns the number of records whose key starts with prefix.
// An empty prefix counts every record.
func (x *Index) CountByPrefix(prefix Key) int {
	total := 0
	for _, e := range x.entries {
		if hasPrefix(e.key, prefix) {
			total += len(e.records)
		}
	}
	return total
}

// Distinct returns the distinct key components that directly follow prefix,
// in first-seen order.
func (x *Index) Distinct(prefix Key) []string {
	seen := make(map[string]bool)
	var values []string

	for _, id := range x.order {
		e := x.entries[id]
		if len(e.key) <= len(prefix) || !hasPrefix(e.key, prefix) {
			continue
		}
		v := e.key[len(prefix)]
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	return values
}

// DistinctAt returns the number of distinct values at key position pos.
func (x *Index) DistinctAt(pos int) int {
	seen := make(map[string]struct{})
	for _, e := range x.entries {
		if pos < len(e.key) {
			seen[e.key[pos]] = struct{}{}
		}
	}
	return len(seen)
}

func hasPrefix(key, prefix Key) bool {
	if len(prefix) > len(key) {
		return false
	}
	return slices.Equal(key[:len(prefix)], prefix)
}
