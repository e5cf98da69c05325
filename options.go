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

import "go.uber.org/zap"

// Option configures a Table while it is being created.
type Option interface {
	apply(t *Table)
}

type allocatorOption struct {
	allocator Allocator
}

func (op allocatorOption) apply(t *Table) {
	t.allocator = op.allocator
}

// WithAllocator is an option to specify the Allocator to use for a Table.
func WithAllocator(allocator Allocator) Option {
	return allocatorOption{allocator}
}

type loggerOption struct {
	logger *zap.Logger
}

func (op loggerOption) apply(t *Table) {
	t.logger = op.logger
}

// WithLogger is an option to specify the logger a Table reports growth
// events to. Resizes are logged at debug level and rehashes forced by probe
// exhaustion at warn level. By default nothing is logged.
func WithLogger(logger *zap.Logger) Option {
	return loggerOption{logger}
}
