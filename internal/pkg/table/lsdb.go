// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package table

import (
	"errors"
	"hash/fnv"
	"iter"
	"slices"
	"sync"

	"github.com/nttcom/bgpls/pkg/packet/bgpls"
)

var ErrNotFound = errors.New("link-state entry not found")

type entry struct {
	nlri     bgpls.NLRI
	attr     bgpls.LinkStateAttribute
	refcount uint32
}

// EntryRef is a handle on one LSDB entry. It stays usable for reads after
// the entry is removed, but Acquire and Release on it then return
// ErrNotFound.
type EntryRef struct {
	db  *LSDB
	typ bgpls.NLRIType
	key bgpls.DescriptorKey
	e   *entry
}

func (r *EntryRef) Type() bgpls.NLRIType { return r.typ }

func (r *EntryRef) Key() bgpls.DescriptorKey { return r.key }

func (r *EntryRef) NLRI() bgpls.NLRI {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.e.nlri
}

func (r *EntryRef) Attribute() bgpls.LinkStateAttribute {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.e.attr
}

func (r *EntryRef) RefCount() uint32 {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.e.refcount
}

// lsTable is the index of one NLRI type. keys is kept sorted for ordered
// walks.
type lsTable struct {
	entries map[bgpls.DescriptorKey]*entry
	keys    []bgpls.DescriptorKey
}

func newLsTable() *lsTable {
	return &lsTable{entries: make(map[bgpls.DescriptorKey]*entry)}
}

func (t *lsTable) insert(key bgpls.DescriptorKey, e *entry) {
	t.entries[key] = e
	i, _ := slices.BinarySearch(t.keys, key)
	t.keys = slices.Insert(t.keys, i, key)
}

func (t *lsTable) remove(key bgpls.DescriptorKey) {
	delete(t.entries, key)
	if i, ok := slices.BinarySearch(t.keys, key); ok {
		t.keys = slices.Delete(t.keys, i, i+1)
	}
}

// LSDB is the Link-State database: one index per NLRI type holding
// reference-counted attribute records.
type LSDB struct {
	mu     sync.RWMutex
	tables map[bgpls.NLRIType]*lsTable
	total  int
}

func NewLSDB() *LSDB {
	db := &LSDB{tables: make(map[bgpls.NLRIType]*lsTable)}
	for _, t := range bgpls.NLRITypes {
		db.tables[t] = newLsTable()
	}
	return db
}

func (db *LSDB) table(t bgpls.NLRIType) *lsTable {
	tbl, ok := db.tables[t]
	if !ok {
		tbl = newLsTable()
		db.tables[t] = tbl
	}
	return tbl
}

func (db *LSDB) ref(t bgpls.NLRIType, key bgpls.DescriptorKey, e *entry) *EntryRef {
	return &EntryRef{db: db, typ: t, key: key, e: e}
}

// Add installs attr for nlri. An existing entry keeps its reference count
// and gets the new NLRI and attribute; otherwise a new entry is created with
// a reference count of 1.
func (db *LSDB) Add(nlri bgpls.NLRI, attr bgpls.LinkStateAttribute) *EntryRef {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, key := nlri.Type(), nlri.Key()
	tbl := db.table(t)
	if e, ok := tbl.entries[key]; ok {
		e.nlri, e.attr = nlri, attr
		return db.ref(t, key, e)
	}

	e := &entry{nlri: nlri, attr: attr, refcount: 1}
	tbl.insert(key, e)
	db.total++
	return db.ref(t, key, e)
}

// current reports whether ref still points at the live entry for its key.
func (db *LSDB) current(ref *EntryRef) (*lsTable, bool) {
	tbl, ok := db.tables[ref.typ]
	if !ok {
		return nil, false
	}
	e, ok := tbl.entries[ref.key]
	return tbl, ok && e == ref.e
}

func (db *LSDB) Acquire(ref *EntryRef) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.current(ref); !ok {
		return ErrNotFound
	}
	ref.e.refcount++
	return nil
}

// Release drops one reference and removes the entry when none remain.
func (db *LSDB) Release(ref *EntryRef) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tbl, ok := db.current(ref)
	if !ok {
		return ErrNotFound
	}
	ref.e.refcount--
	if ref.e.refcount == 0 {
		tbl.remove(ref.key)
		db.total--
	}
	return nil
}

func (db *LSDB) Lookup(t bgpls.NLRIType, key bgpls.DescriptorKey) (*EntryRef, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	tbl, ok := db.tables[t]
	if !ok {
		return nil, ErrNotFound
	}
	e, ok := tbl.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return db.ref(t, key, e), nil
}

// LookupNext returns the entry with the smallest key greater than key. An
// empty key returns the first entry.
func (db *LSDB) LookupNext(t bgpls.NLRIType, key bgpls.DescriptorKey) (*EntryRef, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	tbl, ok := db.tables[t]
	if !ok {
		return nil, ErrNotFound
	}
	i, found := slices.BinarySearch(tbl.keys, key)
	if found {
		i++
	}
	if i >= len(tbl.keys) {
		return nil, ErrNotFound
	}
	next := tbl.keys[i]
	return db.ref(t, next, tbl.entries[next]), nil
}

// Iterate walks the entries of type t in key order. The set of entries is
// taken when the walk starts; each range over the result starts afresh.
func (db *LSDB) Iterate(t bgpls.NLRIType) iter.Seq[*EntryRef] {
	return func(yield func(*EntryRef) bool) {
		db.mu.RLock()
		var refs []*EntryRef
		if tbl, ok := db.tables[t]; ok {
			refs = make([]*EntryRef, 0, len(tbl.keys))
			for _, key := range tbl.keys {
				refs = append(refs, db.ref(t, key, tbl.entries[key]))
			}
		}
		db.mu.RUnlock()

		for _, ref := range refs {
			if !yield(ref) {
				return
			}
		}
	}
}

func (db *LSDB) Count(t bgpls.NLRIType) int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if tbl, ok := db.tables[t]; ok {
		return len(tbl.entries)
	}
	return 0
}

func (db *LSDB) CountAll() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.total
}

func (db *LSDB) IsEmpty() bool {
	return db.CountAll() == 0
}

// Delete removes an entry regardless of its reference count.
func (db *LSDB) Delete(t bgpls.NLRIType, key bgpls.DescriptorKey) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tbl, ok := db.tables[t]
	if !ok {
		return ErrNotFound
	}
	if _, ok := tbl.entries[key]; !ok {
		return ErrNotFound
	}
	tbl.remove(key)
	db.total--
	return nil
}

// DeleteAll empties every index.
func (db *LSDB) DeleteAll() {
	db.mu.Lock()
	defer db.mu.Unlock()

	for t := range db.tables {
		db.tables[t] = newLsTable()
	}
	db.total = 0
}

// Checksum folds the FNV-1a hashes of the keys of type t. It changes when
// the set of keys changes, independent of insertion order.
func (db *LSDB) Checksum(t bgpls.NLRIType) uint32 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var sum uint32
	if tbl, ok := db.tables[t]; ok {
		for _, key := range tbl.keys {
			h := fnv.New32a()
			_, _ = h.Write([]byte(key))
			sum ^= h.Sum32()
		}
	}
	return sum
}
