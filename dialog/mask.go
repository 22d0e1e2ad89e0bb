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
	"regexp"
)

// CompileMask compiles the answer-mask mini-language to a pattern.
//
// The mini-language:
//
//	A    one arbitrary symbol
//	9    one digit
//	+    one-or-more of the preceding class (after A or 9)
//	else that character, literally
//
// Literal characters are escaped before the class tokens are
// substituted, so a literal '+' (one not preceded by A or 9) can't
// collide with the repeat marker.
func CompileMask(mask string) (*regexp.Regexp, error) {
	var (
		acc       string
		prevClass bool
	)
	for i := 0; i < len(mask); i++ {
		c := mask[i]
		switch c {
		case 'A':
			acc += "."
			prevClass = true
		case '9':
			acc += "[0-9]"
			prevClass = true
		case '+':
			if prevClass {
				acc += "+"
			} else {
				acc += regexp.QuoteMeta("+")
			}
			prevClass = false
		default:
			acc += regexp.QuoteMeta(string(c))
			prevClass = false
		}
	}
	return regexp.Compile(acc)
}

// validator extracts an answer from free text.
//
// When the pattern has a capture group, the group's value is the
// answer; otherwise the whole match is.
type validator struct {
	re *regexp.Regexp
}

func maskValidator(mask string) (*validator, error) {
	re, err := CompileMask(mask)
	if err != nil {
		return nil, err
	}
	return &validator{re}, nil
}

func patternValidator(pattern string) (*validator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &validator{re}, nil
}

// Extract returns the answer in s (and whether there was one).
func (v *validator) Extract(s string) (string, bool) {
	ms := v.re.FindStringSubmatch(s)
	if ms == nil {
		return "", false
	}
	if 0 < v.re.NumSubexp() {
		return ms[1], true
	}
	return ms[0], true
}
