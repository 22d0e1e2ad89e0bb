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

// Package shell maps chat utterances to commands.
//
// A Shell is a keyword-dispatched command table.  The first
// whitespace-delimited token of an utterance selects the command; the
// remainder of the line is the command's argument.  Two reserved
// keywords customize the edges: Empty handles a blank utterance, and
// Default handles an utterance whose first token matches no command.
package shell

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/Comcast/parley/bag"
	"github.com/Comcast/parley/event"
	"github.com/Comcast/parley/storage"
)

const (
	// Empty is the reserved keyword for the handler of blank
	// utterances.
	Empty = "*empty"

	// Default is the reserved keyword for the handler of
	// unrecognized utterances.
	Default = "*default"
)

// DuplicateCommand occurs when a keyword is registered twice.
type DuplicateCommand struct {
	Keyword string
}

func (e *DuplicateCommand) Error() string {
	return "command already registered: " + e.Keyword
}

// NilRun occurs when a command is registered without a Run function.
var NilRun = errors.New("a command needs a Run function")

// Request is what a command receives when it runs.
type Request struct {
	// Arg is the utterance with the keyword stripped.  For the
	// Default handler, Arg is the whole utterance.
	Arg string

	// Event is the utterance's source event (when there is one).
	Event *event.Event

	// ChannelID says where replies should go.
	ChannelID string

	// Out receives the command's replies.
	Out chan<- *event.Reply

	// Bag is the shared scratchpad.
	Bag *bag.Bag

	// Store is the durable store (maybe nil).
	Store storage.Store

	// Shell is the dispatching shell, for commands (like help) that
	// report on the table itself.
	Shell *Shell
}

// Reply is a convenience for posting text back on the request's
// channel.  The send gives up when the context is done.
func (req *Request) Reply(ctx context.Context, text string) {
	if req.Out == nil {
		return
	}
	r := &event.Reply{
		ChannelID: req.ChannelID,
		Text:      text,
	}
	select {
	case <-ctx.Done():
	case req.Out <- r:
	}
}

// Command is one entry in a Shell's table.
type Command struct {
	// Keyword selects the command (first token of the utterance).
	Keyword string `json:"keyword" yaml:"keyword"`

	// Doc is a one-line description for help output.
	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	// Usage optionally shows the argument syntax.
	Usage string `json:"usage,omitempty" yaml:",omitempty"`

	// Hidden commands are dispatchable but don't show up in help.
	Hidden bool `json:"hidden,omitempty" yaml:",omitempty"`

	// Interactive commands can block on conversation and should run
	// on a worker, not inline in the listener.
	Interactive bool `json:"interactive,omitempty" yaml:",omitempty"`

	// Run does the work.
	Run func(ctx context.Context, req *Request) error `json:"-" yaml:"-"`
}

// Shell is a keyword-dispatched command table.
type Shell struct {
	mu   sync.RWMutex
	cmds map[string]*Command
}

// NewShell makes an empty Shell.
func NewShell() *Shell {
	return &Shell{
		cmds: make(map[string]*Command),
	}
}

// Add registers a command.  Registration order doesn't matter; help
// output is sorted by keyword.
func (sh *Shell) Add(cmd *Command) error {
	if cmd.Run == nil {
		return NilRun
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, have := sh.cmds[cmd.Keyword]; have {
		return &DuplicateCommand{cmd.Keyword}
	}
	sh.cmds[cmd.Keyword] = cmd
	return nil
}

// Command reports the command registered for a keyword.
func (sh *Shell) Command(keyword string) (*Command, bool) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	cmd, have := sh.cmds[keyword]
	return cmd, have
}

// Commands reports all registered commands, sorted by keyword.
func (sh *Shell) Commands() []*Command {
	sh.mu.RLock()
	acc := make([]*Command, 0, len(sh.cmds))
	for _, cmd := range sh.cmds {
		acc = append(acc, cmd)
	}
	sh.mu.RUnlock()
	sort.Slice(acc, func(i, j int) bool {
		return acc[i].Keyword < acc[j].Keyword
	})
	return acc
}

// Resolve maps an utterance to a command and its argument.
//
// A blank utterance resolves to the Empty handler; an unrecognized
// first token resolves to the Default handler (with the whole utterance
// as the argument).  When the applicable reserved handler isn't
// registered, Resolve reports no command: the utterance is quietly
// ignored.
func (sh *Shell) Resolve(utterance string) (*Command, string, bool) {
	line := strings.TrimSpace(utterance)

	if line == "" {
		cmd, have := sh.Command(Empty)
		return cmd, "", have
	}

	keyword, arg := line, ""
	if i := strings.IndexAny(line, " \t"); 0 < i {
		keyword = line[:i]
		arg = strings.TrimSpace(line[i:])
	}

	if cmd, have := sh.Command(keyword); have {
		return cmd, arg, true
	}

	cmd, have := sh.Command(Default)
	return cmd, line, have
}

// Exec resolves and runs an utterance synchronously.
//
// An utterance with no applicable command is a no-op, not an error.
func (sh *Shell) Exec(ctx context.Context, utterance string, req *Request) error {
	cmd, arg, have := sh.Resolve(utterance)
	if !have {
		return nil
	}
	req.Arg = arg
	req.Shell = sh
	return cmd.Run(ctx, req)
}

// Help renders one line per non-hidden command, sorted by keyword.
func (sh *Shell) Help() string {
	var b strings.Builder
	for _, cmd := range sh.Commands() {
		if cmd.Hidden {
			continue
		}
		b.WriteString(cmd.Keyword)
		if cmd.Usage != "" {
			b.WriteString(" ")
			b.WriteString(cmd.Usage)
		}
		if cmd.Doc != "" {
			b.WriteString(": ")
			b.WriteString(cmd.Doc)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
