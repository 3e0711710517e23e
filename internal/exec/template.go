// Copyright (c) 2024 santosr2
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package exec

import "strings"

// Whitelist is the fixed set of variable names the command template grammar
// will expand. Anything else in a ${...} placeholder is left untouched,
// neutralising eval-style expansion from extension-authored command strings.
var Whitelist = map[string]bool{
	"HOME":      true,
	"USER":      true,
	"WORKSPACE": true,
	"PATH":      true,
	"SHELL":     true,
}

// ExpandTemplate substitutes ${NAME} placeholders for whitelisted names using
// values from env (a lookup function rather than the ambient process
// environment, so callers can supply an explicit {cwd, env} record).
func ExpandTemplate(template string, lookup func(name string) (string, bool)) string {
	var b strings.Builder
	i := 0
	for i < len(template) {
		if template[i] == '$' && i+1 < len(template) && template[i+1] == '{' {
			end := strings.IndexByte(template[i+2:], '}')
			if end >= 0 {
				name := template[i+2 : i+2+end]
				if Whitelist[name] {
					if v, ok := lookup(name); ok {
						b.WriteString(v)
						i += 2 + end + 1
						continue
					}
				}
				// Not a whitelisted name (or no value available): copy
				// the placeholder literally, never re-interpreting it.
				b.WriteString(template[i : i+2+end+1])
				i += 2 + end + 1
				continue
			}
		}
		b.WriteByte(template[i])
		i++
	}
	return b.String()
}
