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
	"github.com/russross/blackfriday/v2"
)

// speak is the Speaker role: relay each outbound reply to the chat
// collaborator, optionally teeing it to an observation channel.
func (s *Service) speak(ctx context.Context) {
	defer s.wg.Done()
	s.Logf("speaker starting")

LOOP:
	for {
		if !s.Bag.Running() {
			break
		}
		select {
		case <-ctx.Done():
			break LOOP
		case r, ok := <-s.Out:
			if !ok || r == nil {
				// Poison pill.
				break LOOP
			}
			s.say(ctx, r)
		case <-time.After(s.Poll):
		}
	}

	s.Logf("speaker stopping")
}

func (s *Service) say(ctx context.Context, r *event.Reply) {
	if s.Render && r.RichContent == "" && r.Text != "" {
		r.RichContent = renderMarkdown(r.Text)
	}

	if s.Chat != nil {
		if err := s.Chat.Post(ctx, r); err != nil {
			s.Logf("speaker post: %v", err)
		}
	}

	if s.Tee != nil {
		select {
		case s.Tee <- r:
		default:
			s.Logf("tee full; dropping reply")
		}
	}
}

// renderMarkdown renders reply text as HTML for chat clients that show
// rich content.
func renderMarkdown(text string) string {
	html := blackfriday.Run([]byte(text))
	return strings.TrimSpace(string(html))
}
