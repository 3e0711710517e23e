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

// sindri provisions, configures, connects to, and tears down containerised
// developer workstations from a declarative extension profile.
//
// Usage:
//
//	sindri install <name>...        Install one or more extensions
//	sindri install-profile <name>   Install every extension in a profile
//	sindri remove <name>            Remove an extension
//	sindri upgrade <name>           Upgrade an installed extension
//	sindri validate <name>          Validate a single extension manifest
//	sindri validate-all             Validate every loaded extension
//	sindri status                   Show installed extensions
//	sindri info <name>              Show an extension's full manifest
//	sindri list                     List known extensions
//	sindri list-profiles            List known profiles
//	sindri bom                      Show the aggregated bill of materials
package main

import (
	"fmt"
	"os"

	"github.com/pacphi/sindri/cmd/sindri/cmd"
	"github.com/pacphi/sindri/internal/sinderr"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(sinderr.ExitCode(err))
	}
}
