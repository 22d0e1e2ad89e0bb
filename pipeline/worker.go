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

package pipeline

import (
	"context"
	"time"
)

// work is the Worker role: drain the command queue serially, so two
// commands never race inside this role.
func (s *Service) work(ctx context.Context) {
	defer s.wg.Done()
	s.Logf("worker starting")

LOOP:
	for {
		if !s.Bag.Running() {
			break
		}
		select {
		case <-ctx.Done():
			break LOOP
		case job, ok := <-s.Cmds:
			if !ok || job == nil {
				// Poison pill.
				break LOOP
			}
			// Errors are isolated per job; the faulty item is
			// dropped and the loop continues.
			if err := job.Cmd.Run(ctx, job.Req); err != nil {
				s.Logf("worker %s: %v", job.Cmd.Keyword, err)
			}
		case <-time.After(s.Poll):
		}
	}

	s.Logf("worker stopping")
}
