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
	"crypto/rand"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/pacphi/sindri/internal/manifest"
	"github.com/pacphi/sindri/internal/sinderr"
)

var backoffSteps = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// precheckDomains resolves every domain requirement before an install is
// attempted. A critical domain that never resolves aborts the install; an
// optional domain that fails to resolve is tolerated (spec.md's legacy
// domains default to optional unless promoted).
func precheckDomains(ctx context.Context, req manifest.Requirements) error {
	critical := req.Domains.Critical
	optional := req.Domains.Optional
	if req.PromoteLegacyToCritical {
		critical = append(critical, req.Domains.Legacy...)
	} else {
		optional = append(optional, req.Domains.Legacy...)
	}

	for _, domain := range critical {
		if err := resolveWithBackoff(ctx, domain); err != nil {
			return sinderr.Wrap(sinderr.DNSValidation, domain, err)
		}
	}
	for _, domain := range optional {
		_ = resolveWithBackoff(ctx, domain) // best effort; failure is not fatal
	}
	return nil
}

// resolveWithBackoff attempts to resolve domain, retrying with exponential
// backoff (2s, 4s, 8s) plus up to 20% jitter between attempts.
func resolveWithBackoff(ctx context.Context, domain string) error {
	var lastErr error
	resolver := net.DefaultResolver

	for attempt := 0; attempt <= len(backoffSteps); attempt++ {
		_, err := resolver.LookupHost(ctx, domain)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == len(backoffSteps) {
			break
		}
		if err := sleepWithJitter(ctx, backoffSteps[attempt]); err != nil {
			return err
		}
	}
	return fmt.Errorf("resolve %s: %w", domain, lastErr)
}

func sleepWithJitter(ctx context.Context, base time.Duration) error {
	jitter, err := rand.Int(rand.Reader, big.NewInt(int64(base)*2/10+1))
	if err != nil {
		jitter = big.NewInt(0)
	}
	delay := base + time.Duration(jitter.Int64())

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
