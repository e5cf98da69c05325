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

import (
	"unsafe"

	"github.com/cockroachdb/crlib/crbytes"
	"github.com/cockroachdb/errors"
)

// Each slot in the table has a flag byte which is in one of three states.
// A deleted slot (a tombstone) is never reused for lookups but is available
// for insertion. Tombstones are only reclaimed by a rehash.
type flag uint8

const (
	flagEmpty   flag = 0
	flagUsed    flag = 1
	flagDeleted flag = 2
)

func (f flag) String() string {
	switch f {
	case flagEmpty:
		return "empty"
	case flagUsed:
		return "used"
	case flagDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Allocator specifies an interface for allocating and releasing the memory
// backing a Table's slots. The default allocator uses Go's allocator and
// allows the GC to reclaim memory.
//
// If the allocator is manually managing memory then Table.Close must be
// called in order to ensure Free is called for the final slot storage.
type Allocator interface {
	// Alloc should return a zeroed byte slice of length n.
	Alloc(n int) []byte

	// Free can optionally release the memory associated with the supplied
	// slice that is guaranteed to have been returned by Alloc.
	Free(b []byte)
}

type defaultAllocator struct{}

// Alloc returns word aligned memory. Together with the padding added by
// makeSlots this places the key and value buffers on 8-byte boundaries.
func (defaultAllocator) Alloc(n int) []byte {
	return crbytes.AllocAligned(n)
}

func (defaultAllocator) Free(b []byte) {
}

// slotAlign is the alignment of the key and value buffers relative to the
// start of the allocation.
const slotAlign = 8

func alignUp(n int) int {
	return (n + slotAlign - 1) &^ (slotAlign - 1)
}

// slots is the storage for a table of a given capacity: three co-indexed
// buffers carved out of a single allocation. The keys occupy the front of
// the allocation, followed by the values, followed by one flag byte per slot.
// The values start at the first multiple of slotAlign past the keys.
type slots struct {
	base       []byte
	keys       []byte
	values     []byte
	flags      []flag
	keyWidth   int
	valueWidth int
	capacity   int
}

func makeSlots(a Allocator, keyWidth, valueWidth, capacity int) slots {
	keysEnd := keyWidth * capacity
	valuesStart := alignUp(keysEnd)
	valuesEnd := valuesStart + valueWidth*capacity
	n := valuesEnd + capacity
	base := a.Alloc(n)
	if len(base) < n {
		panic(errors.AssertionFailedf("allocator returned %d bytes, expected %d", len(base), n))
	}
	base = base[:n:n]

	s := slots{
		base:       base,
		keys:       base[:keysEnd:keysEnd],
		values:     base[valuesStart:valuesEnd:valuesEnd],
		flags:      unsafeConvertSlice[flag](base[valuesEnd:]),
		keyWidth:   keyWidth,
		valueWidth: valueWidth,
		capacity:   capacity,
	}
	// Allocators are asked for zeroed memory, but a recycling allocator may
	// not honor that and the flags must start out empty.
	for i := range s.flags {
		s.flags[i] = flagEmpty
	}
	return s
}

// key returns the key bytes of slot i. The returned slice aliases the
// storage and its capacity is clipped so appends cannot spill into the
// neighboring slot.
func (s *slots) key(i int) []byte {
	off := i * s.keyWidth
	return s.keys[off : off+s.keyWidth : off+s.keyWidth]
}

// value returns the value bytes of slot i.
func (s *slots) value(i int) []byte {
	off := i * s.valueWidth
	return s.values[off : off+s.valueWidth : off+s.valueWidth]
}

func (s *slots) free(a Allocator) {
	if s.base != nil {
		a.Free(s.base)
	}
	*s = slots{}
}

func unsafeConvertSlice[Dest any, Src any](s []Src) []Dest {
	return unsafe.Slice((*Dest)(unsafe.Pointer(unsafe.SliceData(s))), len(s))
}
