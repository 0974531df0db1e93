package auth

import (
	"net/http"
	"strings"

	"newsrelay/internal/core"
)

// Middleware guards operator routes with a bearer token
type Middleware struct {
	token  OperatorToken
	logger *core.Logger
}

// NewMiddleware creates new authentication middleware
func NewMiddleware(token OperatorToken, logger *core.Logger) *Middleware {
	return &Middleware{
		token:  token,
		logger: logger,
	}
}

// RequireOperator rejects requests without a valid operator bearer token
func (m *Middleware) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		if !m.token.Configured() {
			m.operatorDisabledResponse(w, r)
			return
		}

		authorizationHeader := r.Header.Get("Authorization")
		if authorizationHeader == "" {
			m.authenticationRequiredResponse(w, r)
			return
		}

		headerParts := strings.Split(authorizationHeader, " ")
		if len(headerParts) != 2 || headerParts[0] != "Bearer" {
			m.invalidAuthenticationTokenResponse(w, r)
			return
		}

		ok, err := m.token.Matches(headerParts[1])
		if err != nil {
			m.logger.Error("Token validation error", "error", err)
			m.serverErrorResponse(w, r)
			return
		}
		if !ok {
			m.logger.Warn("Rejected operator request", "path", r.URL.Path, "remote", r.RemoteAddr)
			m.invalidAuthenticationTokenResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Response helpers
func (m *Middleware) invalidAuthenticationTokenResponse(w http.ResponseWriter, r *http.Request) {
	core.WriteErrorResponse(w, http.StatusUnauthorized, core.NewAppError(
		core.ErrCodeUnauthorized, "Invalid authentication token", nil))
}

func (m *Middleware) authenticationRequiredResponse(w http.ResponseWriter, r *http.Request) {
	core.WriteErrorResponse(w, http.StatusUnauthorized, core.NewAppError(
		core.ErrCodeUnauthorized, "Authentication required", nil))
}

func (m *Middleware) operatorDisabledResponse(w http.ResponseWriter, r *http.Request) {
	core.WriteErrorResponse(w, http.StatusForbidden, core.NewAppError(
		core.ErrCodeForbidden, "Operator routes are disabled", nil))
}

func (m *Middleware) serverErrorResponse(w http.ResponseWriter, r *http.Request) {
	core.WriteErrorResponse(w, http.StatusInternalServerError, core.NewAppError(
		core.ErrCodeInternal, "Internal server error", nil))
}
