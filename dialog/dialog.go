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

// Package dialog provides composable machines for structured dialogs:
// single-answer capture (Input), multiple-choice capture (Menu),
// sequential composition (Sequence), and ordered phases (Steps).
//
// Each is built on the generic machine in package core and is driven
// by that machine's periodic loop.
package dialog

import (
	"context"
	"errors"
)

// Runner is a dialog machine that can be driven to completion.
//
// Steps uses this interface to stop, reset, and restart a nested
// machine when its owning step is (re)entered.
type Runner interface {
	// Start begins the machine's driving loop.
	Start(ctx context.Context)

	// Stop requests termination of the driving loop.
	Stop()

	// Reset returns the machine to its initial state.
	//
	// Only call Reset on a stopped machine.
	Reset()

	// IsRunning reports whether the driving loop is live.
	IsRunning() bool
}

// ParticipantAdder adds participants to a chat channel.
//
// The pipeline's chat collaborator satisfies this.
type ParticipantAdder interface {
	AddParticipants(ctx context.Context, channelID string, ids []string) error
}

// MaskAndPattern occurs when a capture machine is configured with
// both a mask and a pattern; they are mutually exclusive.
var MaskAndPattern = errors.New("mask and pattern are mutually exclusive")

// MenuValidation occurs when a Menu is configured with a mask or a
// pattern; a Menu validates by option number only.
var MenuValidation = errors.New("a menu cannot have a mask or a pattern")

// NoOptions occurs when a Menu is configured without options.
var NoOptions = errors.New("a menu needs at least one option")
