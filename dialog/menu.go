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

package dialog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Comcast/parley/event"
)

// Menu is a multiple-choice capture machine.
//
// A Menu specializes Input: the question is suffixed with a 1-based
// numbered list of options, only an integer within [1, len(options)]
// validates, and the answer stored is the selected option's text, not
// the numeral typed.
type Menu struct {
	*Input

	// Options is the ordered list of choices.
	Options []string
}

// NewMenu builds a Menu from an Input configuration plus options.
//
// The configuration must not carry a mask or a pattern: a Menu
// validates by option number only.
func NewMenu(conf *InputConf, options []string, out chan<- *event.Reply) (*Menu, error) {
	if conf.Mask != "" || conf.Pattern != "" {
		return nil, MenuValidation
	}
	if len(options) == 0 {
		return nil, NoOptions
	}

	var sb strings.Builder
	sb.WriteString(conf.Question)
	for i, opt := range options {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, opt)
	}
	conf.Question = sb.String()

	in, err := NewInput(conf, out)
	if err != nil {
		return nil, err
	}

	in.validate = func(s string) (string, bool) {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return "", false
		}
		if n < 1 || len(options) < n {
			return "", false
		}
		return options[n-1], true
	}

	return &Menu{
		Input:   in,
		Options: options,
	}, nil
}
