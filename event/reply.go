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

package event

// Reply is an outbound message queued for the Speaker.
//
// Replies are best-effort and in-process; there is no delivery
// guarantee beyond the Speaker's single attempt.
type Reply struct {
	// ChannelID names the chat channel to receive the reply.
	ChannelID string `json:"channelId,omitempty" yaml:",omitempty"`

	// Text is the plain text of the reply.
	Text string `json:"text,omitempty" yaml:",omitempty"`

	// RichContent is optional rendered content (usually HTML).
	RichContent string `json:"richContent,omitempty" yaml:",omitempty"`

	// AttachmentRef is an optional reference to attached content.
	AttachmentRef string `json:"attachmentRef,omitempty" yaml:",omitempty"`
}
