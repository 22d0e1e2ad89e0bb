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
	"sync"
	"time"

	"github.com/Comcast/parley/core"
	"github.com/Comcast/parley/event"
	"github.com/Comcast/parley/storage"
)

var (
	// DefaultRetryText is posted when the participant hasn't
	// answered within the retry delay (or answered invalidly).
	DefaultRetryText = "Still there? Please answer the question."

	// DefaultCancelText is posted when a non-mandatory capture
	// gives up.
	DefaultCancelText = "Never mind.  We can try again later."

	// DefaultAckText is posted when a valid answer arrives.
	DefaultAckText = "Got it."

	// DefaultRetryDelay and DefaultCancelDelay are the capture
	// timing defaults.
	DefaultRetryDelay  = 30 * time.Second
	DefaultCancelDelay = 2 * time.Minute
)

// InputConf configures an Input machine.
type InputConf struct {
	// Question is posted when the machine starts listening.
	Question string `json:"question" yaml:"question"`

	// ChannelID is the chat channel for all posts.
	ChannelID string `json:"channelId,omitempty" yaml:",omitempty"`

	// Mask optionally validates answers with the mask
	// mini-language (see CompileMask).  Mutually exclusive with
	// Pattern.
	Mask string `json:"mask,omitempty" yaml:",omitempty"`

	// Pattern optionally validates answers with a regular
	// expression.  If the pattern has a capture group, the group's
	// value is the answer.
	Pattern string `json:"pattern,omitempty" yaml:",omitempty"`

	// RetryDelay is how long to wait for a valid answer before
	// posting the retry hint and moving to "delayed".
	RetryDelay time.Duration `json:"retryDelay,omitempty" yaml:",omitempty"`

	// CancelDelay is how long to wait (total) before giving up.
	CancelDelay time.Duration `json:"cancelDelay,omitempty" yaml:",omitempty"`

	// Mandatory means never give up: the cancel delay is ignored
	// and the machine keeps waiting.
	Mandatory bool `json:"mandatory,omitempty" yaml:",omitempty"`

	// Key, when not empty, is where the captured answer is written
	// in the durable store.
	Key string `json:"key,omitempty" yaml:",omitempty"`

	RetryText  string `json:"retryText,omitempty" yaml:",omitempty"`
	CancelText string `json:"cancelText,omitempty" yaml:",omitempty"`
	AckText    string `json:"ackText,omitempty" yaml:",omitempty"`
}

// Input is a single-question capture machine.
//
// States: begin → waiting → {end | delayed}, delayed → end.  On
// entering "waiting" the machine posts its question and starts
// listening for candidate answers on its side-channel (In).  A valid
// answer is stored locally (and optionally durably), handed to the
// OnValue hook, announced to subscribers, and acknowledged.
type Input struct {
	*core.Machine

	Conf *InputConf

	// In is the side-channel.  Only the role that created this
	// machine feeds it.  Closing it terminates the listen loop.
	In chan string

	// Out receives this machine's posts.
	Out chan<- *event.Reply

	// Store optionally persists the answer under Conf.Key.
	Store storage.Store

	// OnValue, if not nil, is invoked with each captured value.
	// This hook is the subclassing point: a caller can react to
	// captured input without modifying the machine.
	OnValue func(value string)

	// validate turns a candidate into an answer.  Menu swaps this
	// out.
	validate func(string) (string, bool)

	retryAt  time.Time
	cancelAt time.Time

	quit     chan struct{}
	quitOnce sync.Once

	subMu       sync.Mutex
	subscribers []chan<- string

	listening sync.Once
}

// NewInput builds an Input from its configuration.
//
// Fails with a configuration error if both mask and pattern are
// given, or if either doesn't compile.
func NewInput(conf *InputConf, out chan<- *event.Reply) (*Input, error) {
	if conf.Mask != "" && conf.Pattern != "" {
		return nil, MaskAndPattern
	}
	if conf.RetryDelay <= 0 {
		conf.RetryDelay = DefaultRetryDelay
	}
	if conf.CancelDelay <= 0 {
		conf.CancelDelay = DefaultCancelDelay
	}
	if conf.RetryText == "" {
		conf.RetryText = DefaultRetryText
	}
	if conf.CancelText == "" {
		conf.CancelText = DefaultCancelText
	}
	if conf.AckText == "" {
		conf.AckText = DefaultAckText
	}

	in := &Input{
		Conf: conf,
		In:   make(chan string, 8),
		Out:  out,
		quit: make(chan struct{}),
	}

	switch {
	case conf.Mask != "":
		v, err := maskValidator(conf.Mask)
		if err != nil {
			return nil, err
		}
		in.validate = v.Extract
	case conf.Pattern != "":
		v, err := patternValidator(conf.Pattern)
		if err != nil {
			return nil, err
		}
		in.validate = v.Extract
	default:
		// Anything goes.
		in.validate = func(s string) (string, bool) {
			return s, true
		}
	}

	m, err := in.build()
	if err != nil {
		return nil, err
	}
	in.Machine = m

	return in, nil
}

func (in *Input) build() (*core.Machine, error) {
	answered := func(ctx context.Context, m *core.Machine, props core.StepProps) bool {
		_, have := m.Var("answer")
		return have
	}

	states := []*core.State{
		{Name: "begin"},
		{
			Name: "waiting",
			OnEnter: func(ctx context.Context, m *core.Machine, props core.StepProps) error {
				now := time.Now()
				in.retryAt = now.Add(in.Conf.RetryDelay)
				in.cancelAt = now.Add(in.Conf.CancelDelay)
				in.post(ctx, in.Conf.Question)
				in.listening.Do(func() {
					go in.listen(ctx)
				})
				return nil
			},
		},
		{Name: "delayed"},
		{
			Name: "end",
			OnEnter: func(ctx context.Context, m *core.Machine, props core.StepProps) error {
				in.closeQuit()
				return nil
			},
		},
	}

	transitions := []*core.Transition{
		{Source: "begin", Target: "waiting"},

		// Order matters: a fresh answer beats a timeout.
		{Source: "waiting", Target: "end", Guard: answered},
		{
			Source: "waiting",
			Target: "delayed",
			Guard: func(ctx context.Context, m *core.Machine, props core.StepProps) bool {
				return time.Now().After(in.retryAt)
			},
			Action: func(ctx context.Context, m *core.Machine, props core.StepProps) error {
				in.post(ctx, in.Conf.RetryText)
				return nil
			},
		},

		{Source: "delayed", Target: "end", Guard: answered},
		{
			Source: "delayed",
			Target: "end",
			Guard: func(ctx context.Context, m *core.Machine, props core.StepProps) bool {
				return !in.Conf.Mandatory && time.Now().After(in.cancelAt)
			},
			Action: func(ctx context.Context, m *core.Machine, props core.StepProps) error {
				in.post(ctx, in.Conf.CancelText)
				return nil
			},
		},
	}

	return core.NewMachine(states, transitions, "begin")
}

// Start begins the machine's driving loop.
func (in *Input) Start(ctx context.Context) {
	in.Machine.Start(ctx, nil)
}

// Reset returns the machine to "begin" so it can run again.
//
// Only call Reset on a stopped machine.
func (in *Input) Reset() {
	in.Machine.Reset()
	in.quit = make(chan struct{})
	in.quitOnce = sync.Once{}
	in.listening = sync.Once{}
	in.In = make(chan string, 8)
}

// Answer reports the captured value (if any).
func (in *Input) Answer() (string, bool) {
	v, have := in.Var("answer")
	if !have {
		return "", false
	}
	s, _ := v.(string)
	return s, true
}

// Subscribe registers a channel that will receive each captured
// value.  Sends are non-blocking; a full subscriber misses out.
func (in *Input) Subscribe(ch chan<- string) {
	in.subMu.Lock()
	in.subscribers = append(in.subscribers, ch)
	in.subMu.Unlock()
}

// listen consumes the side-channel until the machine ends, the
// side-channel closes, or the context is done.
func (in *Input) listen(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-in.quit:
			return
		case s, ok := <-in.In:
			if !ok {
				// Sentinel.
				return
			}
			value, valid := in.validate(s)
			if !valid {
				// A validation failure isn't an error;
				// it's a retry outcome.
				in.post(ctx, in.Conf.RetryText)
				continue
			}
			in.accept(ctx, value)
			return
		}
	}
}

// accept records a valid answer and drives the machine to "end".
func (in *Input) accept(ctx context.Context, value string) {
	in.SetVar("answer", value)

	if in.Store != nil && in.Conf.Key != "" {
		if err := in.Store.Put(ctx, in.Conf.Key, value); err != nil {
			// Durable storage is best-effort here; the
			// answer is still captured locally.
			in.SetVar("storeError", err.Error())
		}
	}

	if in.OnValue != nil {
		in.OnValue(value)
	}

	in.subMu.Lock()
	for _, ch := range in.subscribers {
		select {
		case ch <- value:
		default:
		}
	}
	in.subMu.Unlock()

	in.post(ctx, in.Conf.AckText)

	// One more step to reach "end" without waiting for the next
	// tick.
	in.Step(ctx, nil)
}

func (in *Input) post(ctx context.Context, text string) {
	r := &event.Reply{
		ChannelID: in.Conf.ChannelID,
		Text:      text,
	}
	select {
	case <-ctx.Done():
	case in.Out <- r:
	}
}

func (in *Input) closeQuit() {
	in.quitOnce.Do(func() {
		close(in.quit)
	})
}
