// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rawhash is a hash table over raw fixed-width byte slots. It stores
// keys and values of any type without generics: the caller supplies the key
// and value widths, a hash function, an equality comparator and an Assigner
// for keys and for values which governs how elements are copied into,
// relocated within, read out of and released from the table.
//
// # Layout
//
// A Table of capacity N owns a single allocation holding N keys, then N
// values, then N flag bytes. A flag is empty, used or deleted (a tombstone).
//
// # Probing
//
// Collisions are resolved with open addressing and quadratic probing: the
// i'th probe for a key with hash h examines slot (h + i^2) mod N. A lookup
// stops at the first empty slot, skips tombstones and stops at a used slot
// whose key compares equal. An insertion remembers the first tombstone it
// passes but keeps probing until an empty slot so that a key further along
// the chain is overwritten rather than duplicated.
//
// # Growth
//
// Capacities are drawn from a short list of primes and then grow by a factor
// of 1.5. The load of a table is the number of slots that became used since
// the last rehash. Removal does not decrement the load, so tombstones count
// towards growth until a rehash drops them. Before an insertion, if the load
// exceeds half the capacity the table is rehashed into the next capacity.
// For prime capacities the probe sequence visits (N+1)/2 distinct slots, so
// an insertion always finds a free slot. Beyond the primes this is not
// guaranteed and an insertion that exhausts its probe sequence grows the
// table and tries again.
//
// # Element lifecycle
//
// The table never copies slot bytes itself. All reads and writes of slots
// go through the key and value Assigners, which allows keys and values to be
// handles to resources owned by the table (see StringArena). Rehashing moves
// elements with Assigner.MoveInto and never makes fresh copies.
package rawhash

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Table is an unordered hash table from fixed-width keys to fixed-width
// values. See the package documentation for details.
//
// A Table is NOT goroutine-safe.
type Table struct {
	hash        HashFunc
	compare     CompareFunc
	assignKey   Assigner
	assignValue Assigner
	// userData is passed through to every Assigner call.
	userData  any
	allocator Allocator
	logger    *zap.Logger
	s         slots
	// The number of slots that transitioned to used since the last rehash.
	// Removal leaves a tombstone and does not decrement load.
	load int
	// The number of live entries.
	used int
	// generation is incremented every time the slots are reallocated.
	generation uint64
	closed     bool
}

// New constructs an empty Table for keys of keyWidth bytes and values of
// valueWidth bytes. userData is handed to every assignKey and assignValue
// call. Storage is allocated for the smallest capacity of the growth
// sequence.
//
// New panics if either width is not positive or a function is nil.
func New(
	keyWidth, valueWidth int,
	hash HashFunc,
	compare CompareFunc,
	assignKey, assignValue Assigner,
	userData any,
	options ...Option,
) *Table {
	switch {
	case keyWidth <= 0:
		panic(misusef("key width must be positive, got %d", keyWidth))
	case valueWidth <= 0:
		panic(misusef("value width must be positive, got %d", valueWidth))
	case hash == nil || compare == nil:
		panic(misusef("hash and compare functions are required"))
	case assignKey == nil || assignValue == nil:
		panic(misusef("key and value assigners are required"))
	}

	t := &Table{
		hash:        hash,
		compare:     compare,
		assignKey:   assignKey,
		assignValue: assignValue,
		userData:    userData,
		allocator:   defaultAllocator{},
		logger:      zap.NewNop(),
	}
	for _, op := range options {
		op.apply(t)
	}
	if t.allocator == nil {
		t.allocator = defaultAllocator{}
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}

	t.s = makeSlots(t.allocator, keyWidth, valueWidth, initialCapacity)
	t.checkInvariants()
	return t
}

// Close releases every key and value in the table through the Assigners and
// returns the slot storage to the allocator. It is invalid to use a Table
// after it has been closed, though Close itself is idempotent.
func (t *Table) Close() {
	if t.closed {
		return
	}
	t.releaseAll()
	t.s.free(t.allocator)
	t.load, t.used = 0, 0
	t.closed = true
}

// Clear releases every key and value in the table, leaving it empty. The
// capacity is retained.
func (t *Table) Clear() {
	t.checkOpen()
	t.releaseAll()
	for i := range t.s.flags {
		t.s.flags[i] = flagEmpty
	}
	t.load, t.used = 0, 0
	t.checkInvariants()
}

func (t *Table) releaseAll() {
	for i := 0; i < t.s.capacity; i++ {
		if t.s.flags[i] != flagUsed {
			continue
		}
		t.assignKey.Release(t.s.key(i), t.userData)
		t.assignValue.Release(t.s.value(i), t.userData)
	}
}

// Set stores value for key, returning true if key was not present. If key
// was present its value is overwritten (the stored key is left untouched)
// and false is returned.
func (t *Table) Set(key, value []byte) bool {
	t.checkOpen()
	t.checkWidth("key", key, t.s.keyWidth)
	t.checkWidth("value", value, t.s.valueWidth)

	// Restore load <= capacity/2 before probing. This is what guarantees
	// that a probe over a prime capacity finds a free slot.
	if t.load > t.s.capacity/2 {
		t.resize(nextCapacity(t.s.capacity))
	}

	h := t.hash(key)
	for {
		i, found := t.findInsert(h, key)
		if found {
			t.replaceValue(i, value)
			t.checkInvariants()
			return false
		}
		if i >= 0 {
			t.assignKey.CloneInto(t.s.key(i), key, t.userData)
			t.assignValue.CloneInto(t.s.value(i), value, t.userData)
			t.s.flags[i] = flagUsed
			t.load++
			t.used++
			t.checkInvariants()
			return true
		}
		t.growExhausted()
	}
}

func (t *Table) replaceValue(i int, value []byte) {
	dst := t.s.value(i)
	if r, ok := t.assignValue.(Replacer); ok {
		r.Replace(dst, value, t.userData)
		return
	}
	t.assignValue.Release(dst, t.userData)
	t.assignValue.CloneInto(dst, value, t.userData)
}

// Get retrieves the value for key into out, returning false if key is not
// present in which case out is not modified. The value is exposed through
// the value Assigner's Fetch. out may be nil to only test for presence.
func (t *Table) Get(key, out []byte) bool {
	t.checkOpen()
	t.checkWidth("key", key, t.s.keyWidth)

	i, ok := t.find(key)
	if !ok {
		return false
	}
	if out != nil {
		t.fetchValue(out, i)
	}
	return true
}

// Remove removes key from the table, returning false if it was not present.
// If out is non-nil the value is fetched into out before the key and value
// are released, so out must not be used to access resources owned by the
// table (e.g. a StringArena handle).
//
// The slot is left as a tombstone which keeps counting towards the load of
// the table until the next rehash.
func (t *Table) Remove(key, out []byte) bool {
	t.checkOpen()
	t.checkWidth("key", key, t.s.keyWidth)

	i, ok := t.find(key)
	if !ok {
		return false
	}
	if out != nil {
		t.fetchValue(out, i)
	}
	t.s.flags[i] = flagDeleted
	t.assignKey.Release(t.s.key(i), t.userData)
	t.assignValue.Release(t.s.value(i), t.userData)
	t.used--
	t.checkInvariants()
	return true
}

func (t *Table) fetchValue(out []byte, i int) {
	if len(out) < t.s.valueWidth {
		panic(misusef("out has length %d, expected at least %d", len(out), t.s.valueWidth))
	}
	t.assignValue.Fetch(out[:t.s.valueWidth], t.s.value(i), t.userData)
}

// Len returns the number of entries in the table.
func (t *Table) Len() int {
	return t.used
}

// Capacity returns the number of slots in the table.
func (t *Table) Capacity() int {
	return t.s.capacity
}

// Load returns the number of slots which became used since the table was
// last rehashed, including those since removed.
func (t *Table) Load() int {
	return t.load
}

// KeyWidth returns the width in bytes of the table's keys.
func (t *Table) KeyWidth() int {
	return t.s.keyWidth
}

// ValueWidth returns the width in bytes of the table's values.
func (t *Table) ValueWidth() int {
	return t.s.valueWidth
}

// probe returns the slot index of the i'th probe for a key whose hash
// reduced modulo capacity is base. The terms are reduced separately so that
// h + i^2 cannot wrap around 2^64, which would break the quadratic sequence.
func probe(base, i, capacity uint64) int {
	return int((base + i*i%capacity) % capacity)
}

// find returns the index of the used slot holding key.
func (t *Table) find(key []byte) (int, bool) {
	capacity := uint64(t.s.capacity)
	base := t.hash(key) % capacity
	for i := uint64(0); i < capacity; i++ {
		idx := probe(base, i, capacity)
		switch t.s.flags[idx] {
		case flagEmpty:
			return -1, false
		case flagUsed:
			if t.compare(key, t.s.key(idx)) == 0 {
				return idx, true
			}
		}
	}
	return -1, false
}

// findInsert returns the index of the used slot holding key (found=true) or,
// if key is not present, the slot to insert it into: the first tombstone on
// the probe sequence if any, else the first empty slot. An index of -1
// indicates the probe sequence was exhausted.
func (t *Table) findInsert(h uint64, key []byte) (index int, found bool) {
	capacity := uint64(t.s.capacity)
	base := h % capacity
	tombstone := -1
	for i := uint64(0); i < capacity; i++ {
		idx := probe(base, i, capacity)
		switch t.s.flags[idx] {
		case flagEmpty:
			if tombstone >= 0 {
				return tombstone, false
			}
			return idx, false
		case flagDeleted:
			// Keep probing: key may be present further along the chain.
			if tombstone < 0 {
				tombstone = idx
			}
		default:
			if t.compare(key, t.s.key(idx)) == 0 {
				return idx, true
			}
		}
	}
	return tombstone, false
}

// uncheckedPut moves an entry from the slots being rehashed into the current
// slots. The key is known not to be present, so the first free slot on the
// probe sequence is used.
func (t *Table) uncheckedPut(key, value []byte) {
	h := t.hash(key)
	for {
		capacity := uint64(t.s.capacity)
		base := h % capacity
		for i := uint64(0); i < capacity; i++ {
			idx := probe(base, i, capacity)
			if t.s.flags[idx] != flagUsed {
				t.assignKey.MoveInto(t.s.key(idx), key, t.userData)
				t.assignValue.MoveInto(t.s.value(idx), value, t.userData)
				t.s.flags[idx] = flagUsed
				t.load++
				return
			}
		}
		// NB: this may happen in the middle of a resize. The nested resize
		// moves the entries placed so far and the outer resize continues
		// with the larger slots.
		t.growExhausted()
	}
}

// growExhausted grows the table after an insertion failed to find a free
// slot. This is not expected for prime capacities. For other capacities the
// probe sequence may visit fewer slots than can be in use (see
// probeCoverage), and we keep growing until a slot is found. There is no
// bound on the number of attempts: a hash function that is inconsistent with
// the comparator can make this loop forever.
func (t *Table) growExhausted() {
	t.logger.Warn("probe sequence exhausted, growing",
		zap.Int("capacity", t.s.capacity),
		zap.Int("len", t.used),
		zap.Int("load", t.load))
	t.resize(nextCapacity(t.s.capacity))
}

// resize allocates slots of newCapacity and moves every used slot of the
// existing slots into them. Tombstones are dropped.
func (t *Table) resize(newCapacity int) {
	old := t.s
	t.logger.Debug("resizing",
		zap.Int("old-capacity", old.capacity),
		zap.Int("new-capacity", newCapacity),
		zap.Int("len", t.used),
		zap.Int("load", t.load))

	t.s = makeSlots(t.allocator, old.keyWidth, old.valueWidth, newCapacity)
	t.load = 0
	t.generation++

	for i := 0; i < old.capacity; i++ {
		if old.flags[i] != flagUsed {
			continue
		}
		t.uncheckedPut(old.key(i), old.value(i))
	}

	// NB: invariants are not checked here as a resize may be nested within
	// another resize, in which case not every entry has been moved yet.
	old.free(t.allocator)
}

func (t *Table) checkOpen() {
	if t.closed {
		panic(misusef("use of closed Table"))
	}
}

func (t *Table) checkWidth(what string, b []byte, width int) {
	if len(b) != width {
		panic(misusef("%s has length %d, expected %d", errors.Safe(what), len(b), width))
	}
}

func (t *Table) checkInvariants() {
	if invariants {
		if t.s.capacity != initialCapacity {
			c := 0
			for c < t.s.capacity {
				c = nextCapacity(c)
			}
			if c != t.s.capacity {
				panic(errors.AssertionFailedf("invariant failed: capacity %d is not in the growth sequence", t.s.capacity))
			}
		}
		if t.load > t.s.capacity {
			panic(errors.AssertionFailedf("invariant failed: load %d exceeds capacity %d", t.load, t.s.capacity))
		}

		// For every used slot, verify that a lookup of its key resolves to
		// that slot. A duplicate key would resolve to the earlier slot on
		// its probe sequence.
		var used, deleted int
		for i := 0; i < t.s.capacity; i++ {
			switch t.s.flags[i] {
			case flagEmpty:
			case flagDeleted:
				deleted++
			case flagUsed:
				if j, ok := t.find(t.s.key(i)); !ok || j != i {
					panic(errors.AssertionFailedf("invariant failed: slot(%d) found at %d (ok=%t)\n%s",
						i, j, ok, t.debugString()))
				}
				used++
			default:
				panic(errors.AssertionFailedf("invariant failed: slot(%d) has flag %d", i, t.s.flags[i]))
			}
		}
		if used != t.used {
			panic(errors.AssertionFailedf("invariant failed: found %d used slots, but used count is %d\n%s",
				used, t.used, t.debugString()))
		}
		if used+deleted > t.load {
			panic(errors.AssertionFailedf("invariant failed: %d used and %d deleted slots, but load is %d\n%s",
				used, deleted, t.load, t.debugString()))
		}
	}
}

func (t *Table) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d  load=%d\n", t.s.capacity, t.used, t.load)
	for i := 0; i < t.s.capacity; i++ {
		switch f := t.s.flags[i]; f {
		case flagUsed:
			fmt.Fprintf(&buf, "  %4d: % x => % x [h=%016x]\n",
				i, t.s.key(i), t.s.value(i), t.hash(t.s.key(i)))
		default:
			fmt.Fprintf(&buf, "  %4d: %s\n", i, f)
		}
	}
	return buf.String()
}

// misusef returns an error describing incorrect use of the package by the
// caller. Such errors are raised as panics.
func misusef(format string, args ...interface{}) error {
	return errors.AssertionFailedf("rawhash: "+format, args...)
}
