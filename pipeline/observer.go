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

	"github.com/Comcast/parley/bag"
	"github.com/Comcast/parley/event"
)

// AuditKeyPrefix prefixes the per-channel audit flags in the Bag.
const AuditKeyPrefix = "audit."

// AuditOn enables event mirroring for a channel.
func (s *Service) AuditOn(channelID string) {
	s.Bag.Set(AuditKeyPrefix+channelID, bag.On)
}

// AuditOff disables event mirroring for a channel.
func (s *Service) AuditOff(channelID string) {
	s.Bag.Set(AuditKeyPrefix+channelID, bag.Off)
}

// Audited reports whether a channel's events are mirrored.
func (s *Service) Audited(channelID string) bool {
	return s.Bag.GetString(AuditKeyPrefix+channelID) == bag.On
}

// observe is the Observer role: forward each mirrored event whose
// channel has auditing enabled to that channel's sink, and write
// synthetic markers when the flag flips.
func (s *Service) observe(ctx context.Context) {
	defer s.wg.Done()
	s.Logf("observer starting")

	sinks := make(map[string]AuditSink)
	enabled := make(map[string]bool)

LOOP:
	for {
		if !s.Bag.Running() {
			break
		}
		select {
		case <-ctx.Done():
			break LOOP
		case ev, ok := <-s.Audit:
			if !ok || ev == nil {
				// Poison pill.
				break LOOP
			}
			channelID := ev.ChannelID()
			s.checkFlip(ctx, channelID, sinks, enabled)
			if enabled[channelID] {
				s.audit(ctx, channelID, ev, sinks)
			}
		case <-time.After(s.Poll):
			// Flag flips announce themselves even without
			// traffic.
			for channelID := range enabled {
				s.checkFlip(ctx, channelID, sinks, enabled)
			}
		}
	}

	s.Logf("observer stopping")
}

// checkFlip compares a channel's audit flag to its last observed value
// and writes an on/off marker on change.
func (s *Service) checkFlip(ctx context.Context, channelID string, sinks map[string]AuditSink, enabled map[string]bool) {
	now := s.Audited(channelID)
	was, seen := enabled[channelID]
	enabled[channelID] = now
	if seen && was == now {
		return
	}
	if !seen && !now {
		// Never audited; nothing to announce.
		return
	}

	state := bag.Off
	if now {
		state = bag.On
	}
	marker := event.New(event.GenericKind, map[string]interface{}{
		"audit":     state,
		"channelId": channelID,
	})
	s.audit(ctx, channelID, marker, sinks)
}

// audit writes an event to a channel's sink, creating the sink on
// first use.
func (s *Service) audit(ctx context.Context, channelID string, ev *event.Event, sinks map[string]AuditSink) {
	sink, have := sinks[channelID]
	if !have {
		if s.Sinks == nil {
			return
		}
		sink = s.Sinks(channelID)
		sinks[channelID] = sink
	}
	if sink == nil {
		return
	}
	if err := sink.Write(ctx, ev); err != nil {
		s.Logf("audit sink %s: %v", channelID, err)
	}
}
