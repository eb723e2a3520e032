// Package httputil holds small helpers shared by HTTP handlers.
package httputil

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Resolver finds the client address of a request. Forwarding headers are
// honoured only when the direct peer is a trusted proxy.
type Resolver struct {
	trusted []netip.Prefix
}

// NewResolver parses trusted proxies given as CIDRs or bare addresses.
// An empty list trusts nobody.
func NewResolver(trustedProxies []string) (*Resolver, error) {
	r := &Resolver{}
	for _, s := range trustedProxies {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			r.trusted = append(r.trusted, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: not an address or CIDR", s)
		}
		r.trusted = append(r.trusted, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
	}
	return r, nil
}

func (r *Resolver) isTrusted(ip string) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range r.trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// ClientIP returns the client address. Behind trusted proxies the
// X-Forwarded-For chain is walked right to left and the first untrusted
// hop wins; X-Real-IP is the fallback.
func (r *Resolver) ClientIP(req *http.Request) string {
	peer := remoteHost(req.RemoteAddr)
	if r == nil || !r.isTrusted(peer) {
		return peer
	}
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !r.isTrusted(hop) || i == 0 {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(req.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
