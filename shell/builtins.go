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

package shell

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
)

// Version is what the version command reports.
var Version = "0.0.1"

// BadRemind occurs when a remind argument isn't "CRONEXPR | MESSAGE".
var BadRemind = errors.New(`usage: remind CRONEXPR | MESSAGE`)

// AddBuiltins registers the stock commands.
func AddBuiltins(sh *Shell) error {
	cmds := []*Command{
		{
			Keyword: "echo",
			Doc:     "Say the argument back.",
			Usage:   "TEXT",
			Run: func(ctx context.Context, req *Request) error {
				req.Reply(ctx, req.Arg)
				return nil
			},
		},
		{
			Keyword: "help",
			Doc:     "List the available commands, or describe one.",
			Usage:   "[COMMAND]",
			Run: func(ctx context.Context, req *Request) error {
				keyword := strings.TrimSpace(req.Arg)
				if keyword == "" {
					req.Reply(ctx, req.Shell.Help())
					return nil
				}
				cmd, have := req.Shell.Command(keyword)
				if !have {
					req.Reply(ctx, "Unknown command: "+keyword)
					return nil
				}
				text := cmd.Keyword
				if cmd.Usage != "" {
					text += " " + cmd.Usage
				}
				if cmd.Doc != "" {
					text += "\n" + cmd.Doc
				}
				req.Reply(ctx, text)
				return nil
			},
		},
		{
			Keyword: "version",
			Doc:     "Report the version.",
			Run: func(ctx context.Context, req *Request) error {
				req.Reply(ctx, Version)
				return nil
			},
		},
		{
			Keyword:     "sleep",
			Doc:         "Do nothing for a while.",
			Usage:       "DURATION",
			Interactive: true,
			Run: func(ctx context.Context, req *Request) error {
				d, err := time.ParseDuration(strings.TrimSpace(req.Arg))
				if err != nil {
					req.Reply(ctx, err.Error())
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(d):
				}
				req.Reply(ctx, "Done sleeping.")
				return nil
			},
		},
		{
			Keyword: "remind",
			Doc:     "Schedule a one-shot reminder at the cron expression's next activation.",
			Usage:   "CRONEXPR | MESSAGE",
			Run:     remind,
		},
		{
			Keyword: "shutdown",
			Doc:     "Switch the whole service off.",
			Hidden:  true,
			Run: func(ctx context.Context, req *Request) error {
				if req.Bag != nil {
					req.Bag.SwitchOff()
				}
				req.Reply(ctx, "Shutting down.")
				return nil
			},
		},
	}

	for _, cmd := range cmds {
		if err := sh.Add(cmd); err != nil {
			return err
		}
	}
	return nil
}

// remind parses "CRONEXPR | MESSAGE", acknowledges with the next
// activation time, and posts the message when that time arrives.
func remind(ctx context.Context, req *Request) error {
	parts := strings.SplitN(req.Arg, "|", 2)
	if len(parts) != 2 {
		req.Reply(ctx, BadRemind.Error())
		return nil
	}
	schedule := strings.TrimSpace(parts[0])
	message := strings.TrimSpace(parts[1])

	expr, err := cronexpr.Parse(schedule)
	if err != nil {
		req.Reply(ctx, err.Error())
		return nil
	}

	at := expr.Next(time.Now())
	if at.IsZero() {
		req.Reply(ctx, "That schedule never fires.")
		return nil
	}

	req.Reply(ctx, "Okay.  I'll remind you at "+at.Format(time.RFC3339)+".")

	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(time.Until(at)):
			req.Reply(ctx, "Reminder: "+message)
		}
	}()

	return nil
}
