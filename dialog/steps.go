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
	"errors"
	"sync"

	"github.com/Comcast/parley/core"
	"github.com/Comcast/parley/event"
)

// notStarted is the step index before the first step is entered.
//
// Progression is an explicit tri-state: not-started (index
// notStarted), at some index, or finished (index at the last step
// with the finished flag set).  No overloaded optional integer.
const notStarted = -1

// NoSteps occurs when a Steps machine is built with an empty phase
// list.
var NoSteps = errors.New("a steps machine needs at least one step")

// Step is one ordered phase of a Steps machine.
type Step struct {
	// Label names the phase.
	Label string `json:"label" yaml:"label"`

	// Message is posted when the step is entered.
	Message string `json:"message,omitempty" yaml:",omitempty"`

	// RichContent is optional rendered content for the post.
	RichContent string `json:"richContent,omitempty" yaml:",omitempty"`

	// AttachmentRef is an optional reference to attached content.
	AttachmentRef string `json:"attachmentRef,omitempty" yaml:",omitempty"`

	// Participants are added to the channel when the step is
	// entered.
	Participants []string `json:"participants,omitempty" yaml:",omitempty"`

	// Machine is an optional nested machine.  Entering the step
	// stops, resets, and restarts it; the step completes when it
	// stops running.
	Machine Runner `json:"-" yaml:"-"`
}

// Steps drives an ordered progression of phases.
//
// States: begin → running → completed → {running | end}.  From
// "begin", the Ready guard (default: always) triggers entry into the
// first step.  "running" becomes "completed" once the current step's
// nested machine (if any) has stopped.  From "completed", an
// externally-fired advance either enters the next step or, when no
// steps remain, terminates the machine.
//
// Advancing past the last step repeatedly re-reports the last step as
// current and stays in "end".  That idempotence is intentional.
type Steps struct {
	*core.Machine

	// ChannelID is the chat channel for step posts.
	ChannelID string

	// Ready optionally gates entry into the first step.
	Ready core.Guard

	// Out receives step posts.
	Out chan<- *event.Reply

	// Adder optionally adds step participants to the channel.
	Adder ParticipantAdder

	steps    []*Step
	idx      int
	finished bool
	advance  bool
	mu       sync.Mutex
}

// NewSteps builds a Steps machine over the given phases.
func NewSteps(channelID string, steps []*Step, out chan<- *event.Reply) (*Steps, error) {
	if len(steps) == 0 {
		return nil, NoSteps
	}

	st := &Steps{
		ChannelID: channelID,
		Out:       out,
		steps:     steps,
		idx:       notStarted,
	}

	m, err := st.build()
	if err != nil {
		return nil, err
	}
	st.Machine = m

	return st, nil
}

func (st *Steps) build() (*core.Machine, error) {
	states := []*core.State{
		{Name: "begin"},
		{Name: "running"},
		{Name: "completed"},
		{Name: "end"},
	}

	transitions := []*core.Transition{
		{
			Source: "begin",
			Target: "running",
			Guard: func(ctx context.Context, m *core.Machine, props core.StepProps) bool {
				if st.Ready == nil {
					return true
				}
				return st.Ready(ctx, m, props)
			},
			Action: func(ctx context.Context, m *core.Machine, props core.StepProps) error {
				return st.enterStep(ctx, 0)
			},
		},
		{
			Source: "running",
			Target: "completed",
			Guard: func(ctx context.Context, m *core.Machine, props core.StepProps) bool {
				cur := st.CurrentStep()
				return cur == nil || cur.Machine == nil || !cur.Machine.IsRunning()
			},
		},

		// More steps remain first; termination is the fallback.
		{
			Source: "completed",
			Target: "running",
			Guard: func(ctx context.Context, m *core.Machine, props core.StepProps) bool {
				return st.takeAdvance(true)
			},
			Action: func(ctx context.Context, m *core.Machine, props core.StepProps) error {
				st.mu.Lock()
				next := st.idx + 1
				st.mu.Unlock()
				return st.enterStep(ctx, next)
			},
		},
		{
			Source: "completed",
			Target: "end",
			Guard: func(ctx context.Context, m *core.Machine, props core.StepProps) bool {
				return st.takeAdvance(false)
			},
			Action: func(ctx context.Context, m *core.Machine, props core.StepProps) error {
				st.mu.Lock()
				st.finished = true
				st.mu.Unlock()
				return nil
			},
		},
	}

	return core.NewMachine(states, transitions, "begin")
}

// takeAdvance consumes a pending advance request if the
// more-steps-remain condition matches wantMore.
func (st *Steps) takeAdvance(wantMore bool) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.advance {
		return false
	}
	more := st.idx+1 < len(st.steps)
	if more != wantMore {
		return false
	}
	st.advance = false
	return true
}

// enterStep posts the step's content, adds its participants, and
// restarts its nested machine.
func (st *Steps) enterStep(ctx context.Context, i int) error {
	st.mu.Lock()
	st.idx = i
	step := st.steps[i]
	st.mu.Unlock()

	text := step.Label
	if step.Message != "" {
		text = step.Label + ": " + step.Message
	}
	r := &event.Reply{
		ChannelID:     st.ChannelID,
		Text:          text,
		RichContent:   step.RichContent,
		AttachmentRef: step.AttachmentRef,
	}
	select {
	case <-ctx.Done():
	case st.Out <- r:
	}

	if st.Adder != nil && 0 < len(step.Participants) {
		if err := st.Adder.AddParticipants(ctx, st.ChannelID, step.Participants); err != nil {
			return err
		}
	}

	if step.Machine != nil {
		step.Machine.Stop()
		step.Machine.Reset()
		step.Machine.Start(ctx)
	}

	return nil
}

// Advance requests progression past the current (completed) step.
//
// Once the machine is in "end", Advance is a no-op: the last step
// remains current.
func (st *Steps) Advance(ctx context.Context) error {
	st.mu.Lock()
	if st.finished {
		st.mu.Unlock()
		return nil
	}
	st.advance = true
	st.mu.Unlock()

	// Drive the machine so the advance takes effect without
	// waiting for the next tick.  Two attempts: completed →
	// running (or end), then running → completed for steps with
	// no nested machine.
	if _, err := st.Step(ctx, nil); err != nil {
		return err
	}
	_, err := st.Step(ctx, nil)
	return err
}

// CurrentStep reports the step the machine is at.
//
// Nil before the first step is entered.  After the machine ends, the
// last step is reported.
func (st *Steps) CurrentStep() *Step {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.idx == notStarted {
		return nil
	}
	return st.steps[st.idx]
}

// Index reports the tri-state progression: the current index, whether
// any step has started, and whether the machine has finished.
func (st *Steps) Index() (i int, started, finished bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.idx, st.idx != notStarted, st.finished
}

// Start begins the machine's driving loop.
func (st *Steps) Start(ctx context.Context) {
	st.Machine.Start(ctx, nil)
}

// Reset returns the machine to "begin" with no step current.
//
// Only call Reset on a stopped machine.
func (st *Steps) Reset() {
	st.Machine.Reset()
	st.mu.Lock()
	st.idx = notStarted
	st.finished = false
	st.advance = false
	st.mu.Unlock()
}
