package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/ep-records/internal/observability"
	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/services/gateway"
	"github.com/upb/ep-records/utils"
)

// DefaultTokenHeader carries the bearer credential
const DefaultTokenHeader = "x-token"

// Resolver runs the credential to principal dispatch. *gateway.Dispatcher satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, credential string, allowed []models.Role) (*gateway.Resolution, error)
}

// Gateway guards routes with per-endpoint role allow-lists
type Gateway struct {
	resolver Resolver
	header   string
	logger   *zap.Logger
}

// NewGateway creates a new gateway middleware factory
func NewGateway(resolver Resolver, header string, logger *zap.Logger) *Gateway {
	if header == "" {
		header = DefaultTokenHeader
	}
	return &Gateway{
		resolver: resolver,
		header:   header,
		logger:   logger,
	}
}

// RequireRoles admits requests whose credential resolves to an active
// principal holding one of roles. Rejections answer 403 when the role is not
// allowed and 401 otherwise; store failures answer 500.
func (g *Gateway) RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := append([]models.Role(nil), roles...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := observability.WithRequest(ctx, g.logger)
			credential := g.ExtractCredential(r)

			res, err := g.resolver.Resolve(ctx, credential, allowed)
			if err != nil {
				var rejection *gateway.RejectionError
				if !errors.As(err, &rejection) {
					log.Error("principal resolution failed", zap.Error(err))
					_ = utils.WriteInternalServerError(w, "")
					return
				}

				log.Warn("request rejected",
					zap.String("reason", string(rejection.Reason)),
					zap.String("state", rejection.State.String()),
					zap.String("path", r.URL.Path))
				if rejection.Forbidden() {
					_ = utils.WriteForbidden(w, "Insufficient permissions")
					return
				}
				_ = utils.WriteUnauthorized(w, "Invalid or missing credential")
				return
			}

			ctx = WithResolution(ctx, res)
			ctx = WithCredential(ctx, credential)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractCredential reads the configured token header, falling back to an
// Authorization bearer token.
func (g *Gateway) ExtractCredential(r *http.Request) string {
	if credential := strings.TrimSpace(r.Header.Get(g.header)); credential != "" {
		return credential
	}

	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
