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

// Package ws is a chat collaborator that talks to a chat gateway over
// a WebSocket.
//
// The gateway sends JSON-encoded typed events; replies and membership
// operations go back as JSON frames on the same connection.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"sync"

	"github.com/Comcast/parley/event"

	"github.com/gorilla/websocket"
)

// Chat is a WebSocket-backed pipeline.Chat.
type Chat struct {
	Verbose bool

	// URL is the gateway address (e.g. "ws://localhost:8080/events").
	URL string

	// In receives decoded inbound events (feed it to a Service).
	In chan *event.Event

	conn *websocket.Conn

	// writeMu serializes frame writes; gorilla allows only one
	// concurrent writer.
	writeMu sync.Mutex

	mu     sync.Mutex
	direct map[string]bool
}

// NewChat builds a Chat (not yet connected).
func NewChat(url string) *Chat {
	return &Chat{
		URL:    url,
		In:     make(chan *event.Event, 64),
		direct: make(map[string]bool),
	}
}

func (c *Chat) Logf(format string, args ...interface{}) {
	if c.Verbose {
		log.Printf(format, args...)
	}
}

// Start dials the gateway and starts the read loop.
func (c *Chat) Start(ctx context.Context) error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return err
	}

	c.Logf("wsconnect %s", u.String())
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}
	c.conn = conn

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			_, bs, err := conn.ReadMessage()
			if err != nil {
				log.Printf("ws read: %v", err)
				return
			}
			if len(bs) == 0 {
				continue
			}
			c.Logf("heard %s", bs)

			ev, err := event.Unmarshal(bs)
			if err != nil {
				log.Printf("couldn't parse frame: %v", err)
				continue
			}

			select {
			case <-ctx.Done():
				return
			case c.In <- ev:
			}
		}
	}()

	return nil
}

// Stop terminates the connection.
func (c *Chat) Stop(ctx context.Context) error {
	c.Logf("disconnecting")
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Chat) write(v interface{}) error {
	js, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, js)
}

// Post sends a reply frame.
func (c *Chat) Post(ctx context.Context, r *event.Reply) error {
	return c.write(r)
}

// AddParticipants sends a membership control frame.
func (c *Chat) AddParticipants(ctx context.Context, channelID string, ids []string) error {
	return c.write(map[string]interface{}{
		"op":        "addParticipants",
		"channelId": channelID,
		"ids":       ids,
	})
}

// SetDirect marks a channel as a one-on-one conversation.
func (c *Chat) SetDirect(channelID string, direct bool) {
	c.mu.Lock()
	c.direct[channelID] = direct
	c.mu.Unlock()
}

// Direct reports whether a channel is a one-on-one conversation.
func (c *Chat) Direct(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.direct[channelID]
}
