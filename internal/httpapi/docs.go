package httpapi

import "net/http"

type endpointDoc struct {
	Method       string `json:"method"`
	Path         string `json:"path"`
	RequiresAuth bool   `json:"requiresAuth"`
	Description  string `json:"description"`
}

var endpointDocs = []endpointDoc{
	{http.MethodPost, "/api/auth", false, "Register a new user"},
	{http.MethodPut, "/api/auth", false, "Login an existing user"},
	{http.MethodDelete, "/api/auth", true, "Logout and revoke the current token"},
	{http.MethodGet, "/api/user/me", true, "Get the authenticated user"},
	{http.MethodGet, "/api/user", true, "List users"},
	{http.MethodPut, "/api/user/{userId}", true, "Update a user"},
	{http.MethodDelete, "/api/user/{userId}", true, "Delete a user"},
	{http.MethodGet, "/api/franchise", false, "List franchises"},
	{http.MethodGet, "/api/franchise/{userId}", true, "List a user's franchises"},
	{http.MethodPost, "/api/franchise", true, "Create a franchise (admin)"},
	{http.MethodDelete, "/api/franchise/{franchiseId}", true, "Delete a franchise"},
	{http.MethodPost, "/api/franchise/{franchiseId}/store", true, "Create a store"},
	{http.MethodDelete, "/api/franchise/{franchiseId}/store/{storeId}", true, "Delete a store"},
	{http.MethodGet, "/api/order/menu", false, "Get the pizza menu"},
	{http.MethodPut, "/api/order/menu", true, "Add a menu item (admin)"},
	{http.MethodGet, "/api/order", true, "Get the authenticated user's orders"},
	{http.MethodPost, "/api/order", true, "Create an order and send it to the factory"},
}

func (a *API) handleDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":   a.version,
		"endpoints": endpointDocs,
	})
}
