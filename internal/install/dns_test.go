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

package install

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/sinderr"
)

func TestPrecheckDomainsSkipsOptionalFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	req := manifest.Requirements{
		Domains: manifest.DomainRequirements{
			Optional: []string{"this-domain-should-not-resolve.invalid"},
		},
	}
	if err := precheckDomains(ctx, req); err != nil {
		t.Errorf("precheckDomains() with only optional failures should not error, got %v", err)
	}
}

func TestPrecheckDomainsFailsOnCritical(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	req := manifest.Requirements{
		Domains: manifest.DomainRequirements{
			Critical: []string{"this-domain-should-not-resolve.invalid"},
		},
	}
	err := precheckDomains(ctx, req)
	if err == nil {
		t.Fatal("expected DNSValidation error for unresolvable critical domain")
	}
	var se *sinderr.Error
	if !errors.As(err, &se) || se.Kind != sinderr.DNSValidation {
		t.Errorf("error = %v, want DnsValidation", err)
	}
}

func TestPrecheckDomainsPromotesLegacy(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	req := manifest.Requirements{
		Domains: manifest.DomainRequirements{
			Legacy: []string{"this-domain-should-not-resolve.invalid"},
		},
		PromoteLegacyToCritical: true,
	}
	if err := precheckDomains(ctx, req); err == nil {
		t.Fatal("expected promoted legacy domain to be treated as critical")
	}
}

func TestSleepWithJitterRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepWithJitter(ctx, time.Second); err == nil {
		t.Error("expected cancelled context to abort sleep")
	}
}
