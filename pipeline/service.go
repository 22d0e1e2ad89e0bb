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
	"log"
	"sync"
	"time"

	"github.com/Comcast/parley/bag"
	"github.com/Comcast/parley/dialog"
	"github.com/Comcast/parley/event"
	"github.com/Comcast/parley/shell"
	"github.com/Comcast/parley/storage"
)

// DefaultPoll is how long a role waits on its FIFO before rechecking
// the run switch.
var DefaultPoll = 100 * time.Millisecond

// Job is one queued command execution.
type Job struct {
	Cmd *shell.Command
	Req *shell.Request
}

// Service owns the shared state and the four role loops.
type Service struct {
	// Verbose turns on logging.
	Verbose bool

	// Bag is the shared scratchpad; its run switch gates every role
	// loop.
	Bag *bag.Bag

	// In is the inbound event FIFO (Listener is the sole consumer).
	In chan *event.Event

	// Out is the outbound reply FIFO (Speaker is the sole
	// consumer).
	Out chan *event.Reply

	// Cmds is the interactive-command queue (Worker is the sole
	// consumer).
	Cmds chan *Job

	// Audit is the mirrored-event FIFO (Observer is the sole
	// consumer).
	Audit chan *event.Event

	// Shell resolves message text to commands.
	Shell *shell.Shell

	// Chat is the external chat collaborator.
	Chat Chat

	// Store is handed to commands (maybe nil).
	Store storage.Store

	// BotID and BotLabel identify this instance in events.  A group
	// message is addressed to the bot only when it mentions BotID.
	BotID    string
	BotLabel string

	// Poll is each role's FIFO wait.
	Poll time.Duration

	// Render, when set, has the Speaker render reply text as
	// Markdown into RichContent (when the reply has none).
	Render bool

	// Tee, when not nil, also receives every spoken reply.
	Tee chan<- *event.Reply

	// Sinks lazily makes an audit sink for a channel.
	Sinks func(channelID string) AuditSink

	subMu       sync.Mutex
	subscribers map[event.Kind][]Subscriber

	capMu    sync.Mutex
	captures map[string]*dialog.Input

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewService makes a Service with buffered FIFOs and defaults.
func NewService(sh *shell.Shell, chat Chat) *Service {
	return &Service{
		Bag:         bag.NewBag(),
		In:          make(chan *event.Event, 64),
		Out:         make(chan *event.Reply, 64),
		Cmds:        make(chan *Job, 64),
		Audit:       make(chan *event.Event, 64),
		Shell:       sh,
		Chat:        chat,
		Poll:        DefaultPoll,
		subscribers: make(map[event.Kind][]Subscriber),
		captures:    make(map[string]*dialog.Input),
	}
}

func (s *Service) Logf(format string, args ...interface{}) {
	if s.Verbose {
		log.Printf(format, args...)
	}
}

// Start flips the run switch on and launches the four roles.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.Bag.SwitchOn()

	s.wg.Add(4)
	go s.listen(ctx)
	go s.work(ctx)
	go s.speak(ctx)
	go s.observe(ctx)
}

// Stop flips the run switch off and waits for the roles to exit.
//
// Each role notices within one poll interval.
func (s *Service) Stop() {
	s.Bag.SwitchOff()
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Subscribe registers a handler for events of a kind.  The Listener
// invokes handlers inline, in registration order.
func (s *Service) Subscribe(kind event.Kind, f Subscriber) {
	s.subMu.Lock()
	s.subscribers[kind] = append(s.subscribers[kind], f)
	s.subMu.Unlock()
}

// RegisterCapture routes a channel's inbound messages to a capture
// machine's side-channel while that machine runs.
//
// Only the Listener feeds the machine; registering it here keeps that
// ownership.
func (s *Service) RegisterCapture(channelID string, in *dialog.Input) {
	s.capMu.Lock()
	s.captures[channelID] = in
	s.capMu.Unlock()
}

// ReleaseCapture removes a channel's capture routing.
func (s *Service) ReleaseCapture(channelID string) {
	s.capMu.Lock()
	delete(s.captures, channelID)
	s.capMu.Unlock()
}

// capture reports the channel's capture machine, if it is still
// listening.
func (s *Service) capture(channelID string) *dialog.Input {
	s.capMu.Lock()
	in := s.captures[channelID]
	s.capMu.Unlock()
	if in == nil || !in.IsRunning() {
		return nil
	}
	return in
}

// request makes a Request for a command resolved from an event.
func (s *Service) request(ev *event.Event) *shell.Request {
	return &shell.Request{
		Event:     ev,
		ChannelID: ev.ChannelID(),
		Out:       s.Out,
		Bag:       s.Bag,
		Store:     s.Store,
		Shell:     s.Shell,
	}
}
