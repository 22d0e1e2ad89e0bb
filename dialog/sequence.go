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

package dialog

import (
	"context"
	"time"
)

// Sequence chains sub-machines into one guided flow.
//
// Running a Sequence ticks each sub-machine to completion before
// starting the next, in list order.  There is no concurrency between
// sub-machines.
type Sequence struct {
	// Machines is the ordered list of sub-machines.
	Machines []Runner

	// Poll is how often to check a sub-machine for completion.
	Poll time.Duration
}

// NewSequence makes a Sequence of the given machines.
func NewSequence(machines ...Runner) *Sequence {
	return &Sequence{
		Machines: machines,
		Poll:     10 * time.Millisecond,
	}
}

// Run drives each sub-machine to completion, in order.
//
// Run blocks; it returns when the last sub-machine stops or when the
// context is done.
func (q *Sequence) Run(ctx context.Context) error {
	for _, m := range q.Machines {
		m.Start(ctx)
		for m.IsRunning() {
			select {
			case <-ctx.Done():
				m.Stop()
				return ctx.Err()
			case <-time.After(q.Poll):
			}
		}
		// A cancelled context also stops the machine's own
		// driving loop, so check it here too.
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
