package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"sliceline.app/internal/audit"
	"sliceline.app/internal/auth"
)

type updateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type listUsersResponse struct {
	Users []*auth.User `json:"users"`
	More  bool         `json:"more"`
}

func (a *API) handleUserCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	default:
		methodNotAllowed(w, http.MethodGet)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/user/"), "/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusNotFound, "unknown endpoint")
		return
	}

	if path == "me" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		a.getSelf(w, r)
		return
	}

	id, err := strconv.Atoi(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown endpoint")
		return
	}

	switch r.Method {
	case http.MethodPut:
		a.updateUser(w, r, id)
	case http.MethodDelete:
		a.deleteUser(w, r, id)
	default:
		methodNotAllowed(w, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) getSelf(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := a.auth.GetUser(r.Context(), p.ID)
	if err != nil {
		handleAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, limit, name := pageQuery(r)
	users, more, err := a.auth.ListUsers(r.Context(), page, limit, name)
	if err != nil {
		handleAuthError(w, err)
		return
	}
	if users == nil {
		users = []*auth.User{}
	}
	writeJSON(w, http.StatusOK, listUsersResponse{Users: users, More: more})
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id int) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok || !auth.CanAccess(p, auth.ActionUserUpdate, auth.Target{UserID: id}) {
		writeError(w, http.StatusForbidden, "unauthorized")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := a.auth.UpdateUser(r.Context(), id, req.Name, req.Email, req.Password)
	if err != nil {
		handleAuthError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "user.update", map[string]any{
		"target": id,
	})
	writeJSON(w, http.StatusOK, tokenResponse{User: user, Token: token})
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id int) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok || !auth.CanAccess(p, auth.ActionUserDelete, auth.Target{UserID: id}) {
		writeError(w, http.StatusForbidden, "unauthorized")
		return
	}

	if err := a.auth.DeleteUser(r.Context(), id); err != nil {
		handleAuthError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "user.delete", map[string]any{
		"target": id,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
