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

// Package bag provides the shared context for a parley process: a
// flat map from dotted string keys to values, safe for use by all of
// the pipeline roles.
//
// One reserved key (RunKey) acts as the cooperative shutdown switch
// for every polling loop in the process.
package bag

import (
	"sync"
)

var (
	// RunKey is the reserved key for the run switch.
	RunKey = "run"

	// On and Off are the two values for the run switch.
	On  = "on"
	Off = "off"
)

// Bag is a thread-safe, flat key-value store.
//
// A Bag is created once at startup and passed by reference to every
// component that needs it.  There is no ambient global instance.
type Bag struct {
	sync.RWMutex

	m map[string]interface{}
}

// NewBag creates a Bag with the run switch on.
func NewBag() *Bag {
	b := &Bag{
		m: make(map[string]interface{}, 32),
	}
	b.m[RunKey] = On
	return b
}

// Get returns the value for the given key (and whether the key was
// present).
func (b *Bag) Get(key string) (interface{}, bool) {
	b.RLock()
	v, have := b.m[key]
	b.RUnlock()
	return v, have
}

// GetString is Get for callers that expect a string value.
//
// A missing key or a non-string value returns "".
func (b *Bag) GetString(key string) string {
	v, have := b.Get(key)
	if !have {
		return ""
	}
	s, is := v.(string)
	if !is {
		return ""
	}
	return s
}

// Set stores the value at the given key.
func (b *Bag) Set(key string, v interface{}) {
	b.Lock()
	b.m[key] = v
	b.Unlock()
}

// Del removes the given key.
func (b *Bag) Del(key string) {
	b.Lock()
	delete(b.m, key)
	b.Unlock()
}

// Inc atomically adds delta to the integer counter at the given key
// and returns the new value.
//
// A missing or non-integer value counts as zero.
func (b *Bag) Inc(key string, delta int) int {
	b.Lock()
	n, _ := b.m[key].(int)
	n += delta
	b.m[key] = n
	b.Unlock()
	return n
}

// Dec is Inc with a negated delta.
func (b *Bag) Dec(key string, delta int) int {
	return b.Inc(key, -delta)
}

// Running reports whether the run switch is (still) on.
//
// Every pipeline loop checks this at the top of each iteration.
func (b *Bag) Running() bool {
	return b.GetString(RunKey) == On
}

// SwitchOn turns the run switch on.
func (b *Bag) SwitchOn() {
	b.Set(RunKey, On)
}

// SwitchOff turns the run switch off, which causes all polling loops
// to exit within one poll interval.
func (b *Bag) SwitchOff() {
	b.Set(RunKey, Off)
}

// Clear removes everything, including the run switch.
//
// Only used by tests.
func (b *Bag) Clear() {
	b.Lock()
	b.m = make(map[string]interface{}, 32)
	b.Unlock()
}

// Copy returns a snapshot of the underlying map.
func (b *Bag) Copy() map[string]interface{} {
	b.RLock()
	acc := make(map[string]interface{}, len(b.m))
	for k, v := range b.m {
		acc[k] = v
	}
	b.RUnlock()
	return acc
}
