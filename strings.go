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

import "strings"

// StringWidth is the width of a slot holding a StringArena handle.
const StringWidth = 8

// StringArena holds strings referenced from fixed-width slots by 8-byte
// handles. It serves as the reference implementation of an Assigner for
// elements with ownership: a table using a StringArena as its key (or value)
// Assigner owns a private copy of every string stored in it, made when the
// entry is inserted or overwritten and released when the entry is removed or
// the table is closed.
//
// Callers create handles for the strings they pass to the table with Put
// and release them with Free. Lookups may use any handle to an equal string.
//
//	a := NewStringArena()
//	t := New(StringWidth, 8, a.Hash, a.Compare, a, Copy, nil)
//	key := make([]byte, StringWidth)
//	a.Put(key, "hello")
//	t.Set(key, value) // the table stores its own copy of "hello"
//	a.Free(key)
//
// The zero handle refers to no string and reads as "".
type StringArena struct {
	strs []string
	// live[i] is true if handle i+1 is allocated.
	live []bool
	free []uint64
	n    int
}

var _ Assigner = (*StringArena)(nil)
var _ Replacer = (*StringArena)(nil)

// NewStringArena returns an empty StringArena.
func NewStringArena() *StringArena {
	return &StringArena{}
}

// Put allocates a handle for a copy of s and stores it in the first
// StringWidth bytes of b.
func (a *StringArena) Put(b []byte, s string) {
	PutUint64(b, a.alloc(s))
}

// String returns the string referenced by the handle in b.
func (a *StringArena) String(b []byte) string {
	h := Uint64(b)
	if h == 0 {
		return ""
	}
	a.checkLive(h)
	return a.strs[h-1]
}

// Free releases the handle stored in b and zeroes it.
func (a *StringArena) Free(b []byte) {
	a.release(Uint64(b))
	PutUint64(b, 0)
}

// Len returns the number of allocated handles.
func (a *StringArena) Len() int {
	return a.n
}

// Hash is a HashFunc for slots holding handles. Handles to equal strings
// hash equally.
func (a *StringArena) Hash(key []byte) uint64 {
	return XXHashString(a.String(key))
}

// Compare is a CompareFunc for slots holding handles, comparing the
// referenced strings.
func (a *StringArena) Compare(x, y []byte) int {
	return strings.Compare(a.String(x), a.String(y))
}

// CloneInto implements Assigner by storing a handle to a new copy of the
// string referenced by src.
func (a *StringArena) CloneInto(dst, src []byte, _ any) {
	a.Put(dst, a.String(src))
}

// MoveInto implements Assigner. The handle moves without copying the string.
func (a *StringArena) MoveInto(dst, src []byte, _ any) {
	copy(dst[:StringWidth], src)
}

// Fetch implements Assigner. The handle is shared with the slot, which
// continues to own it.
func (a *StringArena) Fetch(dst, src []byte, _ any) {
	copy(dst[:StringWidth], src)
}

// Release implements Assigner by freeing the handle in elem.
func (a *StringArena) Release(elem []byte, _ any) {
	a.release(Uint64(elem))
}

// Replace implements Replacer by swapping the handle in dst for a handle to
// a new copy of the string referenced by src.
func (a *StringArena) Replace(dst, src []byte, _ any) {
	if SameElem(dst, src) {
		return
	}
	old := Uint64(dst)
	a.Put(dst, a.String(src))
	a.release(old)
}

// Assign is the StringArena in AssignFunc form.
func (a *StringArena) Assign(addr, newElem, oldElem []byte, _ any) {
	if SameElem(newElem, oldElem) {
		copy(addr[:StringWidth], newElem)
		return
	}
	// Copy before releasing: newElem may reference the same string as
	// oldElem.
	var h uint64
	if newElem != nil {
		h = a.alloc(a.String(newElem))
	}
	if oldElem != nil {
		a.release(Uint64(oldElem))
	}
	if newElem != nil {
		PutUint64(addr, h)
	}
}

func (a *StringArena) alloc(s string) uint64 {
	// Detach the copy from the caller's backing memory.
	s = strings.Clone(s)
	a.n++
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		a.strs[h-1] = s
		a.live[h-1] = true
		return h
	}
	a.strs = append(a.strs, s)
	a.live = append(a.live, true)
	return uint64(len(a.strs))
}

func (a *StringArena) release(h uint64) {
	if h == 0 {
		return
	}
	a.checkLive(h)
	a.strs[h-1] = ""
	a.live[h-1] = false
	a.free = append(a.free, h)
	a.n--
}

func (a *StringArena) checkLive(h uint64) {
	if h > uint64(len(a.live)) || !a.live[h-1] {
		panic(misusef("string handle %d is not allocated", h))
	}
}
