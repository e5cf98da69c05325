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

package rawhash

// Begin returns the cursor at which iteration starts. A cursor is a slot
// index; iteration visits slots in index order, not insertion order.
//
//	key := make([]byte, t.KeyWidth())
//	value := make([]byte, t.ValueWidth())
//	for it, ok := t.Next(t.Begin(), key, value); ok; it, ok = t.Next(it, key, value) {
//		...
//	}
//
// Any operation that resizes the table invalidates outstanding cursors.
func (t *Table) Begin() int {
	return 0
}

// End returns the cursor past the last slot, i.e. the capacity of the table.
func (t *Table) End() int {
	return t.s.capacity
}

// Next advances from cursor it to the next used slot, fetches its key and
// value into key and value through the Assigners, and returns the cursor
// following that slot with ok=true. Either of key and value may be nil to
// skip fetching it. If there is no used slot at or after it, Next returns
// End() and ok=false and leaves key and value untouched.
//
// NB: the returned cursor equals End() after fetching the last slot, so ok
// (and not a comparison with End) is what tells whether a pair was fetched.
func (t *Table) Next(it int, key, value []byte) (next int, ok bool) {
	t.checkOpen()
	if it < 0 {
		it = 0
	}
	for it < t.s.capacity && t.s.flags[it] != flagUsed {
		it++
	}
	if it >= t.s.capacity {
		return t.s.capacity, false
	}

	if key != nil {
		if len(key) < t.s.keyWidth {
			panic(misusef("key has length %d, expected at least %d", len(key), t.s.keyWidth))
		}
		t.assignKey.Fetch(key[:t.s.keyWidth], t.s.key(it), t.userData)
	}
	if value != nil {
		t.fetchValue(value, it)
	}
	return it + 1, true
}

// All calls yield sequentially for each key and value present in the table.
// If yield returns false, All stops the iteration. The key and value slices
// are reused between calls and are only valid until yield returns.
//
// Entries may be removed or overwritten during iteration. Inserting a new
// key may resize the table, which panics the iteration.
//
// All conforms to the range-over-function iterator protocol:
//
//	for k, v := range t.All {
//		fmt.Printf("%x: %x\n", k, v)
//	}
func (t *Table) All(yield func(key, value []byte) bool) {
	t.checkOpen()
	key := make([]byte, t.s.keyWidth)
	value := make([]byte, t.s.valueWidth)
	generation := t.generation
	for it, ok := t.Next(t.Begin(), key, value); ok; it, ok = t.Next(it, key, value) {
		if !yield(key, value) {
			return
		}
		if t.generation != generation {
			panic(misusef("table resized during iteration"))
		}
	}
}
