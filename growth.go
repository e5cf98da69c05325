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

// capacities is the growth sequence for small tables. Every value is prime,
// which guarantees that the quadratic probe sequence (h + i^2) mod capacity
// visits (capacity+1)/2 distinct slots: more than the capacity/2 slots that
// can be in use when an insertion probes.
var capacities = [...]int{initialCapacity, 17, 29, 47, 61, 97, 157, 251, 349}

const initialCapacity = 13

// nextCapacity returns the capacity to grow to from old: the smallest entry
// of the growth sequence greater than old, or old*1.5 once the sequence is
// exhausted.
//
// NB: the scaled capacities are not prime (the first one is 524 = 4*131) and
// quadratic probing modulo such a capacity may reach fewer than capacity/2
// slots. Insertion copes with this by growing again when a probe is
// exhausted. See probeCoverage.
func nextCapacity(old int) int {
	if old < capacities[0] {
		return capacities[0]
	}
	last := len(capacities) - 1
	if old >= capacities[last] {
		return old*2 - old/2
	}
	for i := last - 1; i >= 0; i-- {
		if old >= capacities[i] {
			return capacities[i+1]
		}
	}
	return old*2 - old/2
}

// probeCoverage returns the number of distinct offsets i^2 mod capacity for
// i in [0, capacity). This is the number of distinct slots a single probe
// sequence can visit regardless of the starting hash.
func probeCoverage(capacity int) int {
	seen := make([]bool, capacity)
	var n int
	for i := 0; i < capacity; i++ {
		off := uint64(i) * uint64(i) % uint64(capacity)
		if !seen[off] {
			seen[off] = true
			n++
		}
	}
	return n
}

// exhaustible returns true if a probe sequence at the given capacity can run
// to completion without finding a free slot while the table is within its
// load limit. This happens when the keys of a probe chain occupy every slot
// the chain can visit, which requires the chain to visit no more than
// capacity/2 slots (the most that can be occupied when an insertion is
// allowed to proceed).
func exhaustible(capacity int) bool {
	return probeCoverage(capacity) <= capacity/2
}
