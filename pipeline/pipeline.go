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

// Package pipeline runs the four concurrent roles of a conversation
// service.
//
// The Listener consumes inbound typed events and classifies them: a
// message addressed to the bot is resolved by the Shell and either
// executed inline or queued for the Worker; a message arriving while a
// per-channel capture machine is mid-capture is fed to that machine's
// side-channel instead; everything else goes to kind subscribers.  The
// Worker drains the command queue serially.  The Speaker relays
// outbound replies to the chat collaborator.  The Observer mirrors
// events to per-channel audit sinks.
//
// The roles share one Bag; its run switch is the cooperative shutdown
// signal.  A nil on any of the FIFOs is a poison pill for that
// consumer.
package pipeline

import (
	"context"

	"github.com/Comcast/parley/event"
)

// Chat is the external chat-cloud collaborator, specified only at this
// boundary.
type Chat interface {
	// Post sends a reply to its channel.
	Post(ctx context.Context, r *event.Reply) error

	// AddParticipants adds participants to a channel.
	AddParticipants(ctx context.Context, channelID string, ids []string) error

	// Direct reports whether a channel is a one-on-one conversation
	// with the bot (where every message is implicitly addressed to
	// it).
	Direct(channelID string) bool
}

// Subscriber receives events of a kind it registered for.
type Subscriber func(ctx context.Context, ev *event.Event)

// AuditSink receives mirrored events for one chat channel.
type AuditSink interface {
	Write(ctx context.Context, ev *event.Event) error
}
