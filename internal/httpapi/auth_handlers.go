package httpapi

import (
	"net/http"

	"sliceline.app/internal/audit"
	"sliceline.app/internal/auth"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	User  *auth.User `json:"user"`
	Token string     `json:"token"`
}

func (a *API) handleAuth(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.register(w, r)
	case http.MethodPut:
		a.login(w, r)
	case http.MethodDelete:
		a.logout(w, r)
	default:
		methodNotAllowed(w, http.MethodPost, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "name, email, and password are required")
		return
	}

	user, token, err := a.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleAuthError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})
	writeJSON(w, http.StatusOK, tokenResponse{User: user, Token: token})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// One shape for every credential failure. Nothing in the response
		// reveals whether the account exists.
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": user.ID,
	})
	writeJSON(w, http.StatusOK, tokenResponse{User: user, Token: token})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := a.auth.Logout(r.Context(), token); err != nil {
		handleAuthError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logout successful"})
}
