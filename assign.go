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

// Assigner is the element lifecycle protocol of a Table. It is the only
// code path that reads or writes the bytes of a slot: the table itself never
// copies keys or values. Keys and values with ownership semantics (e.g. a
// handle to a string owned by the table) are copied, moved and released
// exclusively through these methods.
//
// Every method receives the user data the table was created with. The dst,
// src and elem slices are exactly the key or value width of the table.
type Assigner interface {
	// CloneInto stores a new element at dst. It is called when a new key is
	// inserted: src is the caller's key or value and dst is the slot. The
	// assigner may store an owned copy of src.
	CloneInto(dst, src []byte, userData any)

	// MoveInto relocates the element at src, a slot of the old storage, to
	// dst, a slot of the new storage, while the table rehashes. Ownership
	// moves with the bytes: no fresh copy should be made and src must not be
	// released.
	MoveInto(dst, src []byte, userData any)

	// Fetch exposes the element at src, a slot, to the caller through dst.
	// It must not make an owned copy: the slot continues to own the element.
	Fetch(dst, src []byte, userData any)

	// Release releases any resources owned by the element at elem. It is
	// called when an entry is removed and when the table is closed. The
	// bytes of elem are meaningless afterwards.
	Release(elem []byte, userData any)
}

// Replacer is implemented by Assigners that overwrite an existing element in
// one step. When a value is stored for a key that is already present the
// table calls Replace if the value Assigner implements it, and Release
// followed by CloneInto otherwise. Keys are never replaced.
type Replacer interface {
	// Replace stores src at dst, releasing whatever dst owned.
	Replace(dst, src []byte, userData any)
}

// AssignFunc is a single function form of Assigner in which the operation is
// encoded by which of newElem and oldElem are present:
//
//  1. Both present. Either the value of an existing key is being overwritten
//     (oldElem is addr and newElem is the caller's value), or an element is
//     being read or relocated (newElem and oldElem are the same slot and
//     addr is the destination). When SameElem(newElem, oldElem) the function
//     must not allocate a new copy, just make addr refer to the existing
//     element. Otherwise it may store a fresh copy of newElem at addr and
//     release what oldElem owned.
//  2. newElem nil, oldElem present. The entry was removed or the table was
//     closed and the function must release what oldElem owns. addr is valid
//     but its contents are meaningless afterwards.
//  3. oldElem nil, newElem present. A new key is being inserted and the
//     function may store an owned copy of newElem at addr.
//
// For example, an assigner for values without ownership is:
//
//	func(addr, newElem, oldElem []byte, _ any) {
//		if newElem != nil {
//			copy(addr, newElem)
//		}
//	}
type AssignFunc func(addr, newElem, oldElem []byte, userData any)

var _ Assigner = AssignFunc(nil)
var _ Replacer = AssignFunc(nil)

// CloneInto implements Assigner.
func (f AssignFunc) CloneInto(dst, src []byte, userData any) {
	f(dst, src, nil, userData)
}

// MoveInto implements Assigner.
func (f AssignFunc) MoveInto(dst, src []byte, userData any) {
	f(dst, src, src, userData)
}

// Fetch implements Assigner.
func (f AssignFunc) Fetch(dst, src []byte, userData any) {
	f(dst, src, src, userData)
}

// Release implements Assigner.
func (f AssignFunc) Release(elem []byte, userData any) {
	f(elem, nil, elem, userData)
}

// Replace implements Replacer.
func (f AssignFunc) Replace(dst, src []byte, userData any) {
	f(dst, src, dst, userData)
}

// SameElem returns true if a and b refer to the same element, i.e. they
// begin at the same address. It is the test an AssignFunc uses to recognize
// a fetch or a relocation.
func SameElem(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return &a[0] == &b[0]
}

// Copy is an Assigner for keys and values that own no resources, such as
// fixed-width integers. Every operation is a plain byte copy.
var Copy Assigner = copyAssigner{}

type copyAssigner struct{}

func (copyAssigner) CloneInto(dst, src []byte, _ any) { copy(dst, src) }
func (copyAssigner) MoveInto(dst, src []byte, _ any)  { copy(dst, src) }
func (copyAssigner) Fetch(dst, src []byte, _ any)     { copy(dst, src) }
func (copyAssigner) Release([]byte, any)              {}
func (copyAssigner) Replace(dst, src []byte, _ any)   { copy(dst, src) }

// AssignCopy is Copy in AssignFunc form.
func AssignCopy(addr, newElem, _ []byte, _ any) {
	if newElem != nil {
		copy(addr, newElem)
	}
}
