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
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
)

func BenchmarkTableIter(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapIter))
	})
	b.Run("impl=rawhash", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkTableIter))
	})
}

func BenchmarkTableGetHit(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapGetHit))
	})
	b.Run("impl=rawhash", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkTableGetHit))
		b.Run("t=String", benchSizes(benchmarkStringTableGetHit))
	})
}

func BenchmarkTableGetMiss(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapGetMiss))
	})
	b.Run("impl=rawhash", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkTableGetMiss))
	})
}

func BenchmarkTablePutGrow(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapPutGrow))
	})
	b.Run("impl=rawhash", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkTablePutGrow))
	})
}

func BenchmarkTablePutDelete(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapPutDelete))
	})
	b.Run("impl=rawhash", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkTablePutDelete))
	})
}

func benchSizes(f func(b *testing.B, n int)) func(*testing.B) {
	var cases = []int{
		6, 12, 18, 24, 30,
		64,
		128,
		256,
		512,
		1024,
		2048,
		4096,
		8192,
		1 << 16,
	}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n) })
		}
	}
}

func genKeys(start, end int) [][]byte {
	keys := make([][]byte, end-start)
	for i := range keys {
		keys[i] = i64(int64(start + i))
	}
	return keys
}

func benchmarkRuntimeMapIter(b *testing.B, n int) {
	m := make(map[int64]int64, n)
	for i := 0; i < n; i++ {
		m[int64(i)] = int64(i)
	}
	b.ResetTimer()
	perfbench.Open(b)
	var tmp int64
	for i := 0; i < b.N; i++ {
		for k, v := range m {
			tmp += k + v
		}
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, tmp)
}

func benchmarkTableIter(b *testing.B, n int) {
	m := newInt64Table()
	defer m.Close()
	for _, k := range genKeys(0, n) {
		m.Set(k, k)
	}
	b.ResetTimer()
	perfbench.Open(b)
	var tmp int64
	for i := 0; i < b.N; i++ {
		m.All(func(k, v []byte) bool {
			tmp += Int64(k) + Int64(v)
			return true
		})
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, tmp)
}

func benchmarkRuntimeMapGetHit(b *testing.B, n int) {
	m := make(map[int64]int64, n)
	for i := 0; i < n; i++ {
		m[int64(i)] = int64(i)
	}
	b.ResetTimer()
	perfbench.Open(b)
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m[int64(i%n)]
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkTableGetHit(b *testing.B, n int) {
	m := newInt64Table()
	defer m.Close()
	keys := genKeys(0, n)
	for _, k := range keys {
		m.Set(k, k)
	}
	out := make([]byte, 8)
	b.ResetTimer()
	perfbench.Open(b)
	var ok bool
	for i := 0; i < b.N; i++ {
		ok = m.Get(keys[i%n], out)
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkStringTableGetHit(b *testing.B, n int) {
	a := NewStringArena()
	m := New(StringWidth, 8, a.Hash, a.Compare, a, Copy, nil)
	defer m.Close()
	keys := make([][]byte, n)
	for i := range keys {
		keys[i] = make([]byte, StringWidth)
		a.Put(keys[i], strconv.Itoa(i))
		m.Set(keys[i], i64(int64(i)))
	}
	out := make([]byte, 8)
	b.ResetTimer()
	perfbench.Open(b)
	var ok bool
	for i := 0; i < b.N; i++ {
		ok = m.Get(keys[i%n], out)
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapGetMiss(b *testing.B, n int) {
	m := make(map[int64]int64, n)
	for i := 0; i < n; i++ {
		m[int64(i)] = int64(i)
	}
	b.ResetTimer()
	perfbench.Open(b)
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m[-1-int64(i%n)]
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkTableGetMiss(b *testing.B, n int) {
	m := newInt64Table()
	defer m.Close()
	for _, k := range genKeys(0, n) {
		m.Set(k, k)
	}
	miss := genKeys(-n, 0)
	b.ResetTimer()
	perfbench.Open(b)
	var ok bool
	for i := 0; i < b.N; i++ {
		ok = m.Get(miss[i%n], nil)
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapPutGrow(b *testing.B, n int) {
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		m := make(map[int64]int64)
		for j := 0; j < n; j++ {
			m[int64(j)] = int64(j)
		}
	}
}

func benchmarkTablePutGrow(b *testing.B, n int) {
	keys := genKeys(0, n)
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		m := newInt64Table()
		for _, k := range keys {
			m.Set(k, k)
		}
		m.Close()
	}
}

func benchmarkRuntimeMapPutDelete(b *testing.B, n int) {
	m := make(map[int64]int64, n)
	for i := 0; i < n; i++ {
		m[int64(i)] = int64(i)
	}
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		j := int64(i % n)
		delete(m, j)
		m[j] = j
	}
}

func benchmarkTablePutDelete(b *testing.B, n int) {
	m := newInt64Table()
	defer m.Close()
	keys := genKeys(0, n)
	for _, k := range keys {
		m.Set(k, k)
	}
	b.ResetTimer()
	perfbench.Open(b)
	for i := 0; i < b.N; i++ {
		j := i % n
		m.Remove(keys[j], nil)
		m.Set(keys[j], keys[j])
	}
}
