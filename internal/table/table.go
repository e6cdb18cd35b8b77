// Package table implements the ordered in-memory record store backing the
// settlement state. Rows are keyed by uint64 primary key and kept in key
// order so range scans and cursor-driven batches are deterministic.
// Secondary indexes order rows by an extracted uint64 value with the
// primary key as tiebreaker.
package table

import (
	"fmt"
	"sort"

	"DiamondLedger/internal/errs"
)

// Table is an ordered collection of rows of type R.
type Table[R any] struct {
	name    string
	primary func(R) uint64
	rows    map[uint64]R
	keys    []uint64
	indexes map[string]*index[R]
}

type index[R any] struct {
	extract func(R) uint64
	entries []indexEntry // sorted by (value, primary key)
}

type indexEntry struct {
	value uint64
	pkey  uint64
}

// New creates an empty table. The primary function extracts the primary key
// from a row and must be stable for the row's lifetime.
func New[R any](name string, primary func(R) uint64) *Table[R] {
	return &Table[R]{
		name:    name,
		primary: primary,
		rows:    make(map[uint64]R),
		indexes: make(map[string]*index[R]),
	}
}

// AddIndex registers a secondary index. Must be called before rows are
// inserted.
func (t *Table[R]) AddIndex(name string, extract func(R) uint64) {
	if len(t.rows) > 0 {
		panic(fmt.Sprintf("table %s: index %s added after rows", t.name, name))
	}
	t.indexes[name] = &index[R]{extract: extract}
}

// Len returns the number of rows.
func (t *Table[R]) Len() int {
	return len(t.rows)
}

// Get returns the row with the given primary key.
func (t *Table[R]) Get(key uint64) (R, bool) {
	r, ok := t.rows[key]
	return r, ok
}

// NextKey returns the next available primary key, one past the highest in
// use. An empty table starts at zero.
func (t *Table[R]) NextKey() uint64 {
	if len(t.keys) == 0 {
		return 0
	}
	return t.keys[len(t.keys)-1] + 1
}

// Insert adds a row. The primary key must not already exist.
func (t *Table[R]) Insert(row R) error {
	key := t.primary(row)
	if _, ok := t.rows[key]; ok {
		return fmt.Errorf("%w: %s row %d already exists", errs.ErrInvariant, t.name, key)
	}
	t.rows[key] = row
	pos := sort.Search(len(t.keys), func(i int) bool { return t.keys[i] >= key })
	t.keys = append(t.keys, 0)
	copy(t.keys[pos+1:], t.keys[pos:])
	t.keys[pos] = key
	for _, idx := range t.indexes {
		idx.add(idx.extract(row), key)
	}
	return nil
}

// Modify applies fn to the row with the given key and reindexes it. The
// primary key must not change inside fn.
func (t *Table[R]) Modify(key uint64, fn func(*R)) error {
	row, ok := t.rows[key]
	if !ok {
		return fmt.Errorf("%w: %s row %d", errs.ErrNotFound, t.name, key)
	}
	old := row
	fn(&row)
	if t.primary(row) != key {
		panic(fmt.Sprintf("table %s: primary key mutated on row %d", t.name, key))
	}
	t.rows[key] = row
	for _, idx := range t.indexes {
		oldVal, newVal := idx.extract(old), idx.extract(row)
		if oldVal != newVal {
			idx.remove(oldVal, key)
			idx.add(newVal, key)
		}
	}
	return nil
}

// Erase removes the row with the given key.
func (t *Table[R]) Erase(key uint64) error {
	row, ok := t.rows[key]
	if !ok {
		return fmt.Errorf("%w: %s row %d", errs.ErrNotFound, t.name, key)
	}
	delete(t.rows, key)
	pos := sort.Search(len(t.keys), func(i int) bool { return t.keys[i] >= key })
	t.keys = append(t.keys[:pos], t.keys[pos+1:]...)
	for _, idx := range t.indexes {
		idx.remove(idx.extract(row), key)
	}
	return nil
}

// First returns the row with the lowest primary key.
func (t *Table[R]) First() (R, bool) {
	var zero R
	if len(t.keys) == 0 {
		return zero, false
	}
	return t.rows[t.keys[0]], true
}

// Last returns the row with the highest primary key.
func (t *Table[R]) Last() (R, bool) {
	var zero R
	if len(t.keys) == 0 {
		return zero, false
	}
	return t.rows[t.keys[len(t.keys)-1]], true
}

// Scan visits rows with primary key in [from, to] in ascending key order.
// The walk stops when fn returns false.
func (t *Table[R]) Scan(from, to uint64, fn func(R) bool) {
	pos := sort.Search(len(t.keys), func(i int) bool { return t.keys[i] >= from })
	for ; pos < len(t.keys); pos++ {
		key := t.keys[pos]
		if key > to {
			return
		}
		if !fn(t.rows[key]) {
			return
		}
	}
}

// Keys returns a copy of all primary keys in ascending order.
func (t *Table[R]) Keys() []uint64 {
	out := make([]uint64, len(t.keys))
	copy(out, t.keys)
	return out
}

// IndexScan visits rows in ascending (index value, primary key) order,
// starting at the first entry with index value >= from. The walk stops when
// fn returns false.
func (t *Table[R]) IndexScan(name string, from uint64, fn func(R) bool) {
	idx, ok := t.indexes[name]
	if !ok {
		panic(fmt.Sprintf("table %s: unknown index %s", t.name, name))
	}
	pos := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].value >= from })
	for ; pos < len(idx.entries); pos++ {
		if !fn(t.rows[idx.entries[pos].pkey]) {
			return
		}
	}
}

// IndexFind returns the first row whose index value equals val and
// satisfies match. Used for hashed-string indexes where the extracted value
// can collide.
func (t *Table[R]) IndexFind(name string, val uint64, match func(R) bool) (R, bool) {
	var found R
	ok := false
	t.IndexScan(name, val, func(r R) bool {
		if t.indexes[name].extract(r) != val {
			return false
		}
		if match(r) {
			found, ok = r, true
			return false
		}
		return true
	})
	return found, ok
}

func (ix *index[R]) add(value, pkey uint64) {
	pos := sort.Search(len(ix.entries), func(i int) bool {
		e := ix.entries[i]
		return e.value > value || (e.value == value && e.pkey >= pkey)
	})
	ix.entries = append(ix.entries, indexEntry{})
	copy(ix.entries[pos+1:], ix.entries[pos:])
	ix.entries[pos] = indexEntry{value: value, pkey: pkey}
}

func (ix *index[R]) remove(value, pkey uint64) {
	pos := sort.Search(len(ix.entries), func(i int) bool {
		e := ix.entries[i]
		return e.value > value || (e.value == value && e.pkey >= pkey)
	})
	if pos < len(ix.entries) && ix.entries[pos].value == value && ix.entries[pos].pkey == pkey {
		ix.entries = append(ix.entries[:pos], ix.entries[pos+1:]...)
	}
}
