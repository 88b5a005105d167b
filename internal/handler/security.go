package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fitstock/internal/domain/auth"
	"github.com/xenking/fitstock/pkg/httpmiddleware"
)

// APIKeyHeader carries the raw API key of mutating requests.
const APIKeyHeader = "api_key"

type keyInfoCtx struct{}

// KeyFromContext returns the API key that authenticated the request, if any.
func KeyFromContext(ctx context.Context) (*auth.APIKeyInfo, bool) {
	info, ok := ctx.Value(keyInfoCtx{}).(*auth.APIKeyInfo)
	return info, ok
}

// RequireAPIKey authenticates every request that is not a GET, HEAD or
// OPTIONS request. Read-only routes stay open.
func RequireAPIKey(authn *auth.Authenticator) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			info, err := authn.Authenticate(r.Context(), r.Header.Get(APIKeyHeader))
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), keyInfoCtx{}, info)
			ctx = zctx.With(ctx, zap.String("api_key", info.Name))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
