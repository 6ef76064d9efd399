package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"sliceline.app/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth authenticates bearer tokens on every route that is not public and
// stashes the resulting principal and raw token in the request context.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicRoute(r.Method, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		// Unknown endpoints fall through to the catch-all 404 instead of
		// demanding a token first.
		if _, pattern := a.mux.Handler(r); pattern == "/" {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		principal, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrAuthentication) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
			} else {
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// isPublicRoute lists the endpoints reachable without a token. Registration
// and login are open by nature; logout validates its own token so it can
// answer with the contract's message. Franchise and menu listings are public
// storefront data.
func isPublicRoute(method, path string) bool {
	switch path {
	case "/api/auth":
		return true
	case "/api/franchise":
		return method == http.MethodGet
	case "/api/order/menu":
		return method == http.MethodGet
	case "/api/docs", "/healthz", "/readyz", "/metrics", "/version", "/":
		return true
	}
	return false
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
