package utils

import (
	"net"
	"net/url"
	"strings"
)

// privateRanges are the networks a calendar front-end is expected to be
// served from when no explicit origin list is configured.
var privateRanges = []*net.IPNet{
	mustParseCIDR("10.0.0.0/8"),
	mustParseCIDR("172.16.0.0/12"),
	mustParseCIDR("192.168.0.0/16"),
	mustParseCIDR("127.0.0.0/8"),
	mustParseCIDR("169.254.0.0/16"), // link-local IPv4
	mustParseCIDR("::1/128"),        // loopback IPv6
	mustParseCIDR("fe80::/10"),      // link-local IPv6
	mustParseCIDR("fc00::/7"),       // unique local IPv6
}

// OriginPolicy decides which browser origins may call the API.
type OriginPolicy struct {
	extra map[string]bool
}

// NewOriginPolicy allows local and private-network origins plus the given
// exact origins (scheme://host[:port]).
func NewOriginPolicy(allowed []string) OriginPolicy {
	extra := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/")
		if o != "" {
			extra[o] = true
		}
	}
	return OriginPolicy{extra: extra}
}

// Allows checks whether an Origin header value should be trusted.
func (p OriginPolicy) Allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.extra[strings.TrimRight(strings.ToLower(origin), "/")] {
		return true
	}
	return IsLocalOrigin(origin)
}

// IsLocalOrigin reports whether origin points at localhost, a .local mDNS
// name, a single-label LAN host, or a private IP address.
func IsLocalOrigin(origin string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	hostname := parsed.Hostname()
	switch {
	case hostname == "localhost":
		return true
	case strings.HasSuffix(hostname, ".local"):
		return true
	case !strings.Contains(hostname, "."):
		// IPv6 literals have no dots but are handled below
		if ip := net.ParseIP(hostname); ip != nil {
			return isPrivateIP(ip)
		}
		return true
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return isPrivateIP(ip)
	}
	return false
}

func isPrivateIP(ip net.IP) bool {
	for _, network := range privateRanges {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDR(s string) *net.IPNet {
	_, network, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return network
}
