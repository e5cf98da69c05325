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
	"bytes"
	"cmp"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sys/cpu"
)

// HashFunc computes the hash of a key. The key slice is exactly the table's
// key width. A HashFunc must be pure: equal keys (as defined by the table's
// CompareFunc) must hash to equal values.
type HashFunc func(key []byte) uint64

// CompareFunc compares two keys, returning 0 if and only if they are equal.
// The table only depends on the zero/non-zero distinction, so any function
// in the style of bytes.Compare works.
type CompareFunc func(a, b []byte) int

// nativeEndian is the byte order of the host. Integer keys and values are
// stored in host order so that slots can be reinterpreted in place.
var nativeEndian = func() binary.ByteOrder {
	if cpu.IsBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}()

// PutInt16 encodes v into the first 2 bytes of b in host byte order.
func PutInt16(b []byte, v int16) { nativeEndian.PutUint16(b, uint16(v)) }

// Int16 decodes an int16 encoded with PutInt16.
func Int16(b []byte) int16 { return int16(nativeEndian.Uint16(b)) }

// PutInt32 encodes v into the first 4 bytes of b in host byte order.
func PutInt32(b []byte, v int32) { nativeEndian.PutUint32(b, uint32(v)) }

// Int32 decodes an int32 encoded with PutInt32.
func Int32(b []byte) int32 { return int32(nativeEndian.Uint32(b)) }

// PutInt64 encodes v into the first 8 bytes of b in host byte order.
func PutInt64(b []byte, v int64) { nativeEndian.PutUint64(b, uint64(v)) }

// Int64 decodes an int64 encoded with PutInt64.
func Int64(b []byte) int64 { return int64(nativeEndian.Uint64(b)) }

// PutUint32 encodes v into the first 4 bytes of b in host byte order.
func PutUint32(b []byte, v uint32) { nativeEndian.PutUint32(b, v) }

// Uint32 decodes a uint32 encoded with PutUint32.
func Uint32(b []byte) uint32 { return nativeEndian.Uint32(b) }

// PutUint64 encodes v into the first 8 bytes of b in host byte order.
func PutUint64(b []byte, v uint64) { nativeEndian.PutUint64(b, v) }

// Uint64 decodes a uint64 encoded with PutUint64.
func Uint64(b []byte) uint64 { return nativeEndian.Uint64(b) }

// Jenkins is Robert Jenkins' integer mixing function.
func Jenkins(a uint64) uint64 {
	a = (a + 0x7ed55d16) + (a << 12)
	a = (a ^ 0xc761c23c) ^ (a >> 19)
	a = (a + 0x165667b1) + (a << 5)
	a = (a + 0xd3a2646c) ^ (a << 9)
	a = (a + 0xfd7046c5) + (a << 3)
	a = (a ^ 0xb55a4f09) ^ (a >> 16)
	return a
}

const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

// FNV hashes a byte range with 64-bit FNV (xor, then multiply).
func FNV(b []byte) uint64 {
	return fnvAppend(fnvOffset, b)
}

// FNVString hashes the bytes of s with the same function as FNV.
func FNVString(s string) uint64 {
	return fnvAppend(fnvOffset, s)
}

// FNVUint32 hashes the host-order bytes of v.
func FNVUint32(v uint32) uint64 {
	var b [4]byte
	nativeEndian.PutUint32(b[:], v)
	return FNV(b[:])
}

// FNVUint64 hashes the host-order bytes of v.
func FNVUint64(v uint64) uint64 {
	var b [8]byte
	nativeEndian.PutUint64(b[:], v)
	return FNV(b[:])
}

// FNVCombine cascades two hashes, folding the bytes of h1 into h0. It can be
// used to hash structured keys whose fields are not contiguous:
//
//	h := FNVCombine(FNVString("foo"), FNVString("bar"))
func FNVCombine(h0, h1 uint64) uint64 {
	var b [8]byte
	nativeEndian.PutUint64(b[:], h1)
	return fnvAppend(h0, b[:])
}

func fnvAppend[T []byte | string](h uint64, b T) uint64 {
	for i := 0; i < len(b); i++ {
		h ^= uint64(b[i])
		h *= fnvPrime
	}
	return h
}

// XXHash hashes an arbitrary fixed-width key with xxHash64. It is a good
// default for keys that are plain byte encodings of structs.
func XXHash(key []byte) uint64 {
	return xxhash.Sum64(key)
}

// XXHashString hashes s with xxHash64.
func XXHashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// CompareBytes compares keys bytewise.
func CompareBytes(a, b []byte) int {
	return bytes.Compare(a, b)
}

// HashInt16 hashes a 2-byte key holding an int16.
func HashInt16(key []byte) uint64 {
	return Jenkins(uint64(int64(Int16(key))))
}

// CompareInt16 compares 2-byte keys holding int16s.
func CompareInt16(a, b []byte) int {
	return cmp.Compare(Int16(a), Int16(b))
}

// HashInt32 hashes a 4-byte key holding an int32.
func HashInt32(key []byte) uint64 {
	return FNV(key[:4])
}

// CompareInt32 compares 4-byte keys holding int32s.
func CompareInt32(a, b []byte) int {
	return cmp.Compare(Int32(a), Int32(b))
}

// HashInt64 hashes an 8-byte key holding an int64.
func HashInt64(key []byte) uint64 {
	return FNV(key[:8])
}

// CompareInt64 compares 8-byte keys holding int64s.
func CompareInt64(a, b []byte) int {
	return cmp.Compare(Int64(a), Int64(b))
}

// HashUint32 hashes a 4-byte key holding a uint32.
func HashUint32(key []byte) uint64 {
	return FNV(key[:4])
}

// CompareUint32 compares 4-byte keys holding uint32s.
func CompareUint32(a, b []byte) int {
	return cmp.Compare(Uint32(a), Uint32(b))
}

// HashUint64 hashes an 8-byte key holding a uint64.
func HashUint64(key []byte) uint64 {
	return FNV(key[:8])
}

// CompareUint64 compares 8-byte keys holding uint64s.
func CompareUint64(a, b []byte) int {
	return cmp.Compare(Uint64(a), Uint64(b))
}

// PutCString stores s in the fixed-width key b as a NUL-terminated string,
// zero filling the remainder of b. A string exactly as long as b is stored
// without a terminator. PutCString panics if s does not fit.
func PutCString(b []byte, s string) {
	if len(s) > len(b) {
		panic(misusef("string of length %d does not fit in %d bytes", len(s), len(b)))
	}
	n := copy(b, s)
	clear(b[n:])
}

// CString returns the string stored in b by PutCString.
func CString(b []byte) string {
	return string(cstring(b))
}

func cstring(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

// HashCString hashes a fixed-width key holding a NUL-terminated string. Bytes
// after the terminator do not contribute to the hash.
func HashCString(key []byte) uint64 {
	return FNV(cstring(key))
}

// CompareCString compares fixed-width keys holding NUL-terminated strings.
func CompareCString(a, b []byte) int {
	return bytes.Compare(cstring(a), cstring(b))
}
