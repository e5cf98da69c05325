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
	"hash/fnv"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"
)

func TestFNV(t *testing.T) {
	require.EqualValues(t, uint64(0xcbf29ce484222325), FNV(nil))
	require.EqualValues(t, uint64(0xaf63dc4c8601ec8c), FNV([]byte("a")))
	require.EqualValues(t, uint64(0x85944171f73967e8), FNV([]byte("foobar")))

	for _, s := range []string{"", "a", "hej", "hello sailor", "\x00\xff"} {
		h := fnv.New64a()
		_, _ = h.Write([]byte(s))
		require.Equal(t, h.Sum64(), FNV([]byte(s)), "%q", s)
		require.Equal(t, h.Sum64(), FNVString(s), "%q", s)
	}

	b := make([]byte, 8)
	PutUint64(b, 0x1122334455667788)
	require.Equal(t, FNV(b), FNVUint64(0x1122334455667788))
	PutUint32(b, 0x11223344)
	require.Equal(t, FNV(b[:4]), FNVUint32(0x11223344))
}

func TestFNVCombine(t *testing.T) {
	h0 := FNVString("foo")
	h1 := uint64(0x1122334455667788)
	b := make([]byte, 8)
	PutUint64(b, h1)
	require.Equal(t, FNV(append([]byte("foo"), b...)), FNVCombine(h0, h1))
	require.NotEqual(t, FNVCombine(FNVString("foo"), FNVString("bar")),
		FNVCombine(FNVString("bar"), FNVString("foo")))
}

func TestJenkins(t *testing.T) {
	require.EqualValues(t, uint64(0x1b0c4db8bd927), Jenkins(0))
	require.EqualValues(t, uint64(0x1b0c7044081b6), Jenkins(1))
}

func TestXXHash(t *testing.T) {
	require.EqualValues(t, uint64(0xef46db3751d8e999), XXHash(nil))
	require.Equal(t, xxhash.Sum64String("hej"), XXHashString("hej"))
	require.Equal(t, XXHash([]byte("hej")), XXHashString("hej"))
}

func TestIntegerHelpers(t *testing.T) {
	b := make([]byte, 8)

	PutInt16(b, -2)
	require.EqualValues(t, -2, Int16(b))
	PutInt32(b, -3)
	require.EqualValues(t, -3, Int32(b))
	PutInt64(b, -4)
	require.EqualValues(t, -4, Int64(b))
	PutUint32(b, 5)
	require.EqualValues(t, 5, Uint32(b))
	PutUint64(b, 6)
	require.EqualValues(t, 6, Uint64(b))

	testCases := []struct {
		name    string
		width   int
		put     func(b []byte, v int64)
		hash    HashFunc
		compare CompareFunc
	}{
		{"int16", 2, func(b []byte, v int64) { PutInt16(b, int16(v)) }, HashInt16, CompareInt16},
		{"int32", 4, func(b []byte, v int64) { PutInt32(b, int32(v)) }, HashInt32, CompareInt32},
		{"int64", 8, PutInt64, HashInt64, CompareInt64},
		{"uint32", 4, func(b []byte, v int64) { PutUint32(b, uint32(v)) }, HashUint32, CompareUint32},
		{"uint64", 8, func(b []byte, v int64) { PutUint64(b, uint64(v)) }, HashUint64, CompareUint64},
	}
	for _, c := range testCases {
		t.Run(c.name, func(t *testing.T) {
			x, y, z := make([]byte, c.width), make([]byte, c.width), make([]byte, c.width)
			c.put(x, 7)
			c.put(y, 7)
			c.put(z, 9)
			require.Equal(t, c.hash(x), c.hash(y))
			require.NotEqual(t, c.hash(x), c.hash(z))
			require.Zero(t, c.compare(x, y))
			require.Equal(t, -1, c.compare(x, z))
			require.Equal(t, 1, c.compare(z, x))
		})
	}

	// Signed comparisons order negative values first.
	x, y := make([]byte, 2), make([]byte, 2)
	PutInt16(x, -1)
	PutInt16(y, 1)
	require.Equal(t, -1, CompareInt16(x, y))
}

func TestCString(t *testing.T) {
	a, b := make([]byte, 8), make([]byte, 8)
	PutCString(a, "hej")
	require.Equal(t, "hej", CString(a))
	require.Equal(t, []byte{'h', 'e', 'j', 0, 0, 0, 0, 0}, a)

	// Garbage after the terminator does not affect hashing or comparison.
	copy(b, "hej\x00xyz")
	require.Equal(t, HashCString(a), HashCString(b))
	require.Zero(t, CompareCString(a, b))
	require.NotZero(t, CompareBytes(a, b))

	// A string filling the key has no terminator.
	PutCString(a, "12345678")
	require.Equal(t, "12345678", CString(a))
	require.Equal(t, FNVString("12345678"), HashCString(a))

	require.Panics(t, func() { PutCString(a, "123456789") })

	m := New(8, 8, HashCString, CompareCString, Copy, Copy, nil)
	defer m.Close()
	PutCString(a, "apa")
	require.True(t, m.Set(a, i64(60)))
	out := make([]byte, 8)
	copy(b, "apa\x00junk")
	require.True(t, m.Get(b, out))
	require.EqualValues(t, 60, Int64(out))
}
