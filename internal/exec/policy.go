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

// Decision is the outcome of consulting a PromptPolicy for an action that
// would otherwise require interactive confirmation.
type Decision string

const (
	DecisionProceed Decision = "proceed"
	DecisionSkip    Decision = "skip"
)

// PromptPolicy decides the outcome of an interactive decision point without
// ever touching a terminal directly. Only the outermost CLI layer may install
// a policy other than SafeSkipPolicy.
type PromptPolicy interface {
	Decide(question string) Decision
}

// SafeSkipPolicy is the default, non-interactive policy: every prompt
// resolves to skip, matching the spec's "safe default" contract for the
// collision engine's prompt action and the context merger.
type SafeSkipPolicy struct{}

func (SafeSkipPolicy) Decide(string) Decision { return DecisionSkip }
