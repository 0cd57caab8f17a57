package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/services/gateway"
)

// Context key type to avoid collisions
type contextKey string

const (
	// ResolutionKey is the context key for the gateway resolution
	ResolutionKey contextKey = "resolution"

	// CredentialKey is the context key for the raw bearer credential
	CredentialKey contextKey = "credential"

	// SocketAddrKey is the context key for the connection's remote address
	SocketAddrKey contextKey = "socket_addr"
)

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// GetResolutionFromContext retrieves the gateway resolution from context
func GetResolutionFromContext(ctx context.Context) *gateway.Resolution {
	if val := ctx.Value(ResolutionKey); val != nil {
		if res, ok := val.(*gateway.Resolution); ok {
			return res
		}
	}
	return nil
}

// WithResolution adds a gateway resolution to the context
func WithResolution(ctx context.Context, res *gateway.Resolution) context.Context {
	return context.WithValue(ctx, ResolutionKey, res)
}

// GetPrincipalFromContext retrieves the authorized principal from context
func GetPrincipalFromContext(ctx context.Context) models.Principal {
	if res := GetResolutionFromContext(ctx); res != nil {
		return res.Principal
	}
	return nil
}

// GetCredentialFromContext retrieves the raw credential from context
func GetCredentialFromContext(ctx context.Context) string {
	if val, ok := ctx.Value(CredentialKey).(string); ok {
		return val
	}
	return ""
}

// WithCredential adds the raw credential to the context
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, CredentialKey, credential)
}

// GetSocketAddrFromContext retrieves the connection's remote address from context
func GetSocketAddrFromContext(ctx context.Context) string {
	if val, ok := ctx.Value(SocketAddrKey).(string); ok {
		return val
	}
	return ""
}

// WithSocketAddr adds the connection's remote address to the context
func WithSocketAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, SocketAddrKey, addr)
}
