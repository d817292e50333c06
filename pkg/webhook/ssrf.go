/*
Copyright 2025 The Tessera Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package webhook

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// ErrUnsafeURL is returned by validateURL for any target that fails the
// SSRF policy.
var ErrUnsafeURL = errors.New("tessera/webhook: unsafe receiver url")

// Resolver abstracts DNS resolution so callers (tests, or deployments
// with a custom split-horizon resolver) can override the default
// net.DefaultResolver.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// validateURL applies spec §4.7's SSRF policy: scheme in {http, https}
// (https required in production), a present hostname matching the
// allowlist if one is configured, and a resolved address that is
// globally routable (no private, loopback, link-local, or multicast
// IPs). No redirect is ever followed by the caller.
func validateURL(ctx context.Context, rawURL string, cfg Config, res Resolver) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q not allowed", ErrUnsafeURL, u.Scheme)
	}
	if cfg.Environment == "production" && u.Scheme != "https" {
		return fmt.Errorf("%w: https required in production", ErrUnsafeURL)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing hostname", ErrUnsafeURL)
	}
	if len(cfg.AllowedHosts) > 0 && !hostAllowed(host, cfg.AllowedHosts) {
		return fmt.Errorf("%w: host %q not in allowlist", ErrUnsafeURL, host)
	}

	dnsTimeout := cfg.DNSTimeout
	if dnsTimeout <= 0 {
		dnsTimeout = 5 * time.Second
	}
	resolveCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	addrs, err := res.LookupIPAddr(resolveCtx, host)
	if err != nil {
		return fmt.Errorf("%w: dns resolution failed: %v", ErrUnsafeURL, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: no addresses resolved for %q", ErrUnsafeURL, host)
	}
	for _, a := range addrs {
		if !isGlobalUnicast(a.IP) {
			return fmt.Errorf("%w: %q resolves to non-global address %s", ErrUnsafeURL, host, a.IP)
		}
	}
	return nil
}

func hostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(host)
	for _, a := range allowed {
		a = strings.ToLower(a)
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}

func isGlobalUnicast(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified() {
		return false
	}
	return true
}

// netResolver adapts *net.Resolver to the resolver interface.
type netResolver struct{ r *net.Resolver }

func (n netResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return n.r.LookupIPAddr(ctx, host)
}
