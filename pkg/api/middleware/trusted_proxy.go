package middleware

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ParseTrustedProxies parses CIDR ranges or bare IPs. Every invalid entry
// is reported; valid entries are still returned.
func ParseTrustedProxies(entries []string) ([]*net.IPNet, error) {
	var networks []*net.IPNet
	var errs []error

	for _, cidr := range entries {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}

		if !strings.Contains(cidr, "/") {
			ip := net.ParseIP(cidr)
			if ip == nil {
				errs = append(errs, fmt.Errorf("invalid trusted proxy IP %q", cidr))
				continue
			}
			if ip.To4() != nil {
				cidr += "/32"
			} else {
				cidr += "/128"
			}
		}

		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid trusted proxy CIDR %q: %w", cidr, err))
			continue
		}
		networks = append(networks, network)
	}

	return networks, errors.Join(errs...)
}

// IsTrustedProxyIn checks if remoteAddr falls inside one of the networks
func IsTrustedProxyIn(remoteAddr string, trustedNetworks []*net.IPNet) bool {
	if len(trustedNetworks) == 0 {
		return false
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	for _, network := range trustedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the caller's IP. Forwarding headers are honoured only
// when the direct peer is a trusted proxy.
func ClientIP(trustedNetworks []*net.IPNet) ClientIDFunc {
	return func(r *http.Request) string {
		if IsTrustedProxyIn(r.RemoteAddr, trustedNetworks) {
			if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
				return ip.String()
			}
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
					return ip.String()
				}
			}
		}

		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
}
