package reactions

import (
	"net"
	"net/http"
	"strings"
)

// ForwardedForHeader carries the proxy chain; the first entry is the original client.
const ForwardedForHeader = "X-Forwarded-For"

// IdentityResolver derives the deduplication key for anonymous reactions.
// Values are not validated: a client able to set X-Forwarded-For can pick its identity
// unless TrustForwardedFor is disabled.
type IdentityResolver struct {
	TrustForwardedFor bool
}

// Resolve returns the client identity for the request.
func (r IdentityResolver) Resolve(request *http.Request) string {
	if request == nil {
		return ""
	}
	forwardedFor := ""
	if r.TrustForwardedFor {
		forwardedFor = request.Header.Get(ForwardedForHeader)
	}
	return ClientIdentity(forwardedFor, request.RemoteAddr)
}

// ClientIdentity picks the first forwarded-for entry, falling back to the peer host.
func ClientIdentity(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	remoteAddr = strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
