/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package storage defines the durable key/value store used to persist
// captured answers.
package storage

import (
	"context"
)

// Store is a durable key/value store.
//
// An Input machine writes its captured answer under a caller-supplied
// key when configured to do so.
type Store interface {
	// Put stores the value at the key.
	Put(ctx context.Context, key, value string) error

	// Get returns the value at the key and whether it was found.
	Get(ctx context.Context, key string) (string, bool, error)

	// Close releases the store's resources.
	Close() error
}

// Noop is a Store that stores nothing.
type Noop struct{}

func (s *Noop) Put(ctx context.Context, key, value string) error {
	return nil
}

func (s *Noop) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

func (s *Noop) Close() error {
	return nil
}
