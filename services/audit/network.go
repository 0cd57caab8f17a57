package audit

import (
	"net"
	"strings"

	"github.com/upb/ep-records/models"
)

// NetworkContext carries the candidate client addresses of a request.
// A nil context resolves to UNKNOWN.
type NetworkContext struct {
	// Direct is the peer address as seen by the router
	Direct string
	// ForwardedFor is the raw X-Forwarded-For header value
	ForwardedFor string
	// RealIP is the X-Real-IP header value
	RealIP string
	// Socket is the remote address of the underlying connection
	Socket string
}

// Resolve returns the first usable address in the order Direct,
// first X-Forwarded-For entry, X-Real-IP, Socket.
func (n *NetworkContext) Resolve() string {
	if n == nil {
		return models.UnknownAddress
	}

	forwarded := ""
	if n.ForwardedFor != "" {
		forwarded = strings.Split(n.ForwardedFor, ",")[0]
	}

	for _, candidate := range []string{n.Direct, forwarded, n.RealIP, n.Socket} {
		if addr := normalizeAddress(candidate); addr != "" {
			return addr
		}
	}
	return models.UnknownAddress
}

func normalizeAddress(raw string) string {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	addr = strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
	if addr == "::1" {
		return "127.0.0.1"
	}
	if mapped := net.ParseIP(addr); mapped != nil {
		if v4 := mapped.To4(); v4 != nil && strings.HasPrefix(addr, "::ffff:") {
			return v4.String()
		}
	}
	return addr
}
