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

// Package event defines the typed events that flow through the
// pipeline, along with their wire representation.
//
// An event is a tagged variant: a Kind plus a flat map of named
// attributes.  The Kind is never stored inside the attribute map; it
// travels as the "type" tag on the wire.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind discriminates the closed set of event variants.
type Kind string

const (
	// MessageKind is a chat message.
	MessageKind Kind = "message"

	// AttachmentKind is a posted file or similar.
	AttachmentKind Kind = "attachment"

	// JoinKind reports a participant joining a channel.
	JoinKind Kind = "join"

	// LeaveKind reports a participant leaving a channel.
	LeaveKind Kind = "leave"

	// GenericKind is anything else.
	GenericKind Kind = "event"
)

// typeTag is the wire attribute holding the Kind.
const typeTag = "type"

// UnknownAttr occurs when an attribute is requested but not present.
type UnknownAttr struct {
	Name string
}

func (e *UnknownAttr) Error() string {
	return `unknown event attribute "` + e.Name + `"`
}

// BadKind occurs when deserializing an event with an unrecognized or
// missing type tag.
var BadKind = errors.New("bad or missing event type tag")

// Event is a Kind plus named attributes.
//
// Events are produced by the chat collaborator and consumed exactly
// once by the Listener.  Treat them as immutable after construction.
type Event struct {
	Kind  Kind                   `json:"type"`
	Attrs map[string]interface{} `json:"attrs,omitempty"`
}

// New creates an event of the given Kind.
//
// Any "type" key in attrs is discarded: the Kind is the variant tag,
// not an attribute.
func New(kind Kind, attrs map[string]interface{}) *Event {
	if attrs == nil {
		attrs = make(map[string]interface{}, 8)
	}
	delete(attrs, typeTag)
	return &Event{
		Kind:  kind,
		Attrs: attrs,
	}
}

// NewMessage creates a message event.
func NewMessage(attrs map[string]interface{}) *Event {
	return New(MessageKind, attrs)
}

// Attr returns the named attribute or an UnknownAttr error.
//
// There is deliberately no dynamic default: callers that can tolerate
// a missing attribute should use StringAttr or check the error.
func (e *Event) Attr(name string) (interface{}, error) {
	v, have := e.Attrs[name]
	if !have {
		return nil, &UnknownAttr{name}
	}
	return v, nil
}

// StringAttr returns the named attribute as a string ("" when absent
// or not a string).
func (e *Event) StringAttr(name string) string {
	v, have := e.Attrs[name]
	if !have {
		return ""
	}
	s, is := v.(string)
	if !is {
		return ""
	}
	return s
}

// Text is the plain text of a message.
func (e *Event) Text() string {
	return e.StringAttr("text")
}

// Content is the rich content of a message, falling back to the
// plain text when absent.
func (e *Event) Content() string {
	if s := e.StringAttr("html"); s != "" {
		return s
	}
	return e.Text()
}

// FromID is the originator's id.
func (e *Event) FromID() string {
	return e.StringAttr("personId")
}

// FromLabel is the originator's display label.
func (e *Event) FromLabel() string {
	return e.StringAttr("personLabel")
}

// ChannelID is the id of the chat channel that carried the event.
func (e *Event) ChannelID() string {
	return e.StringAttr("channelId")
}

// AttachmentRef is an optional reference to attached content.
func (e *Event) AttachmentRef() string {
	return e.StringAttr("attachment")
}

// Mentions returns the ids of participants mentioned by a message.
func (e *Event) Mentions() []string {
	v, have := e.Attrs["mentions"]
	if !have {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		acc := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, is := x.(string); is {
				acc = append(acc, s)
			}
		}
		return acc
	}
	return nil
}

// Mentioned reports whether the given participant id is mentioned.
func (e *Event) Mentioned(id string) bool {
	for _, m := range e.Mentions() {
		if m == id {
			return true
		}
	}
	return false
}

func (e *Event) String() string {
	js, err := json.Marshal(e.Attrs)
	if err != nil {
		return string(e.Kind) + "/{*}"
	}
	return string(e.Kind) + "/" + string(js)
}

// Marshal serializes the event as a flat JSON map: the attributes
// plus the "type" tag.
func Marshal(e *Event) ([]byte, error) {
	m := make(map[string]interface{}, len(e.Attrs)+1)
	for k, v := range e.Attrs {
		if k == typeTag {
			// Should never happen; see New.
			continue
		}
		m[k] = v
	}
	m[typeTag] = string(e.Kind)
	return json.Marshal(m)
}

// Unmarshal deserializes a flat JSON map into an Event.
//
// Unmarshal(Marshal(e)) reproduces e's attribute map exactly, and the
// "type" tag never lands in the attribute map.
func Unmarshal(bs []byte) (*Event, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(bs, &m); err != nil {
		return nil, err
	}
	tag, have := m[typeTag]
	if !have {
		return nil, BadKind
	}
	s, is := tag.(string)
	if !is {
		return nil, BadKind
	}
	delete(m, typeTag)
	switch Kind(s) {
	case MessageKind, AttachmentKind, JoinKind, LeaveKind, GenericKind:
	default:
		return nil, fmt.Errorf("%w: %q", BadKind, s)
	}
	return &Event{
		Kind:  Kind(s),
		Attrs: m,
	}, nil
}
