package middleware

import (
	"net/http"

	"github.com/upb/ep-records/services/audit"
)

// SocketAddr captures r.RemoteAddr before any proxy-header rewriting.
// Mount it ahead of chi's RealIP.
func SocketAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithSocketAddr(r.Context(), r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// NetworkContext gathers the client address candidates of r for audit
// records. Proxy headers are only consulted when trustProxy is set.
func NetworkContext(r *http.Request, trustProxy bool) *audit.NetworkContext {
	n := &audit.NetworkContext{
		Direct: r.RemoteAddr,
		Socket: GetSocketAddrFromContext(r.Context()),
	}
	if trustProxy {
		n.ForwardedFor = r.Header.Get("X-Forwarded-For")
		n.RealIP = r.Header.Get("X-Real-IP")
	}
	return n
}
