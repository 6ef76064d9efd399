package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"sliceline.app/internal/audit"
	"sliceline.app/internal/auth"
	"sliceline.app/internal/pizza"
)

type createFranchiseRequest struct {
	Name   string                 `json:"name"`
	Admins []pizza.FranchiseAdmin `json:"admins"`
}

type createStoreRequest struct {
	Name string `json:"name"`
}

type listFranchisesResponse struct {
	Franchises []pizza.Franchise `json:"franchises"`
	More       bool              `json:"more"`
}

func (a *API) handleFranchiseCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listFranchises(w, r)
	case http.MethodPost:
		a.createFranchise(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleFranchiseResource dispatches /api/franchise/{id} and the nested
// store routes /api/franchise/{id}/store[/{storeId}].
func (a *API) handleFranchiseResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/franchise/"), "/")
	if path == "" {
		writeError(w, http.StatusNotFound, "unknown endpoint")
		return
	}
	parts := strings.Split(path, "/")

	id, err := strconv.Atoi(parts[0])
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown endpoint")
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			a.userFranchises(w, r, id)
		case http.MethodDelete:
			a.deleteFranchise(w, r, id)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "store":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		a.createStore(w, r, id)
	case len(parts) == 3 && parts[1] == "store":
		storeID, err := strconv.Atoi(parts[2])
		if err != nil {
			writeError(w, http.StatusNotFound, "unknown endpoint")
			return
		}
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, http.MethodDelete)
			return
		}
		a.deleteStore(w, r, id, storeID)
	default:
		writeError(w, http.StatusNotFound, "unknown endpoint")
	}
}

func (a *API) listFranchises(w http.ResponseWriter, r *http.Request) {
	page, limit, name := pageQuery(r)
	franchises, more, err := a.pizza.ListFranchises(r.Context(), page, limit, name)
	if err != nil {
		handlePizzaError(w, err)
		return
	}
	if franchises == nil {
		franchises = []pizza.Franchise{}
	}
	writeJSON(w, http.StatusOK, listFranchisesResponse{Franchises: franchises, More: more})
}

// userFranchises returns the franchises the addressed user administers.
// A caller who is neither that user nor an admin gets an empty list rather
// than an error, so the response shape stays uniform.
func (a *API) userFranchises(w http.ResponseWriter, r *http.Request, userID int) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	franchises := []pizza.Franchise{}
	if auth.CanAccess(p, auth.ActionFranchiseOwn, auth.Target{UserID: userID}) {
		var err error
		franchises, err = a.pizza.UserFranchises(r.Context(), userID)
		if err != nil {
			handlePizzaError(w, err)
			return
		}
		if franchises == nil {
			franchises = []pizza.Franchise{}
		}
	}
	writeJSON(w, http.StatusOK, franchises)
}

func (a *API) createFranchise(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok || !auth.CanAccess(p, auth.ActionFranchiseCreate, auth.Target{}) {
		writeError(w, http.StatusForbidden, "unable to create a franchise")
		return
	}

	var req createFranchiseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "franchise name is required")
		return
	}

	franchise, err := a.pizza.CreateFranchise(r.Context(), pizza.Franchise{
		Name:   strings.TrimSpace(req.Name),
		Admins: req.Admins,
	})
	if err != nil {
		handlePizzaError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "franchise.create", map[string]any{
		"franchise_id": franchise.ID,
		"name":         franchise.Name,
	})
	writeJSON(w, http.StatusOK, franchise)
}

func (a *API) deleteFranchise(w http.ResponseWriter, r *http.Request, franchiseID int) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok || !auth.CanAccess(p, auth.ActionFranchiseDelete, auth.Target{FranchiseID: franchiseID}) {
		writeError(w, http.StatusForbidden, "unable to delete a franchise")
		return
	}

	if err := a.pizza.DeleteFranchise(r.Context(), franchiseID); err != nil {
		handlePizzaError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "franchise.delete", map[string]any{
		"franchise_id": franchiseID,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "franchise deleted"})
}

func (a *API) createStore(w http.ResponseWriter, r *http.Request, franchiseID int) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok || !auth.CanAccess(p, auth.ActionStoreCreate, auth.Target{FranchiseID: franchiseID}) {
		writeError(w, http.StatusForbidden, "unable to create a store")
		return
	}

	var req createStoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "store name is required")
		return
	}

	store, err := a.pizza.CreateStore(r.Context(), franchiseID, pizza.Store{
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		handlePizzaError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "store.create", map[string]any{
		"franchise_id": franchiseID,
		"store_id":     store.ID,
	})
	writeJSON(w, http.StatusOK, store)
}

func (a *API) deleteStore(w http.ResponseWriter, r *http.Request, franchiseID, storeID int) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok || !auth.CanAccess(p, auth.ActionStoreDelete, auth.Target{FranchiseID: franchiseID}) {
		writeError(w, http.StatusForbidden, "unable to delete a store")
		return
	}

	if err := a.pizza.DeleteStore(r.Context(), franchiseID, storeID); err != nil {
		handlePizzaError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "store.delete", map[string]any{
		"franchise_id": franchiseID,
		"store_id":     storeID,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "store deleted"})
}
