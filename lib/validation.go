package lib

import (
	"net"
	"net/url"
	"strings"
)

var internalHostSuffixes = []string{
	".local",
	".internal",
	".intranet",
	".corp",
	".lan",
	".home",
	".localdomain",
}

// ValidateUpstreamBaseURL is the write-time SSRF guard for tenant upstreams:
// HTTPS only, no embedded credentials, and no hostname that can land inside
// the gateway's own network. The proxy trusts URLs that passed this check.
func ValidateUpstreamBaseURL(value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return NewAppError("Invalid upstream URL", 400)
	}

	if u.Scheme != "https" {
		return NewAppError("Upstream URL must use HTTPS", 400)
	}

	if u.User != nil {
		return NewAppError("Upstream URL must not include credentials", 400)
	}

	hostname := strings.ToLower(u.Hostname())

	if hostname == "localhost" || strings.HasSuffix(hostname, ".localhost") {
		return NewAppError("Upstream URL cannot target localhost", 400)
	}

	for _, suffix := range internalHostSuffixes {
		if strings.HasSuffix(hostname, suffix) {
			return NewAppError("Upstream URL cannot target internal hostnames", 400)
		}
	}

	if ip := net.ParseIP(hostname); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return NewAppError("Upstream URL cannot target private IP ranges", 400)
		}
	} else if !strings.Contains(hostname, ".") {
		return NewAppError("Upstream URL must use a public hostname", 400)
	}

	return nil
}
