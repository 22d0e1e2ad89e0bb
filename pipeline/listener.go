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
	"strings"
	"time"

	"github.com/Comcast/parley/event"
)

// listen is the Listener role: classify inbound events and route them.
func (s *Service) listen(ctx context.Context) {
	defer s.wg.Done()
	s.Logf("listener starting")

LOOP:
	for {
		if !s.Bag.Running() {
			break
		}
		select {
		case <-ctx.Done():
			break LOOP
		case ev, ok := <-s.In:
			if !ok || ev == nil {
				// Poison pill.
				break LOOP
			}
			s.route(ctx, ev)
		case <-time.After(s.Poll):
		}
	}

	s.Logf("listener stopping")
}

// route dispatches one inbound event.
func (s *Service) route(ctx context.Context, ev *event.Event) {
	s.mirror(ctx, ev)

	if ev.Kind != event.MessageKind {
		s.notify(ctx, ev)
		return
	}

	channelID := ev.ChannelID()

	// A capture machine mid-conversation owns its channel's
	// messages.
	if in := s.capture(channelID); in != nil {
		select {
		case in.In <- s.utterance(ev):
		default:
			s.Logf("capture side-channel full; dropping message on %s", channelID)
		}
		return
	}

	if !s.addressed(ev, channelID) {
		return
	}

	cmd, arg, have := s.Shell.Resolve(s.utterance(ev))
	if !have {
		return
	}

	req := s.request(ev)
	req.Arg = arg
	req.Shell = s.Shell

	if cmd.Interactive {
		job := &Job{Cmd: cmd, Req: req}
		select {
		case <-ctx.Done():
		case s.Cmds <- job:
		}
		return
	}

	if err := cmd.Run(ctx, req); err != nil {
		// One bad command never stops the loop.
		s.Logf("command %s: %v", cmd.Keyword, err)
	}
}

// addressed reports whether a message is for this instance: any
// message in a direct channel, or a group message that mentions the
// bot.
func (s *Service) addressed(ev *event.Event, channelID string) bool {
	if s.Chat != nil && s.Chat.Direct(channelID) {
		return true
	}
	return ev.Mentioned(s.BotID)
}

// utterance strips the bot's own mention label from a message's text.
func (s *Service) utterance(ev *event.Event) string {
	text := strings.TrimSpace(ev.Text())
	if s.BotLabel != "" && strings.HasPrefix(text, s.BotLabel) {
		text = strings.TrimSpace(text[len(s.BotLabel):])
	}
	return text
}

// notify hands an event to the subscribers for its kind, in
// registration order.
func (s *Service) notify(ctx context.Context, ev *event.Event) {
	s.subMu.Lock()
	subs := make([]Subscriber, len(s.subscribers[ev.Kind]))
	copy(subs, s.subscribers[ev.Kind])
	s.subMu.Unlock()

	for _, f := range subs {
		f(ctx, ev)
	}
}

// mirror tees an event to the audit FIFO without blocking the
// listener.
func (s *Service) mirror(ctx context.Context, ev *event.Event) {
	if s.Audit == nil {
		return
	}
	select {
	case s.Audit <- ev:
	default:
		s.Logf("audit FIFO full; dropping %s", ev.Kind)
	}
}
