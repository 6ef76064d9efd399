package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"sliceline.app/internal/audit"
	"sliceline.app/internal/auth"
	"sliceline.app/internal/factory"
	"sliceline.app/internal/pizza"
)

type addMenuItemRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
}

type createOrderRequest struct {
	FranchiseID int               `json:"franchiseId"`
	StoreID     int               `json:"storeId"`
	Items       []pizza.OrderItem `json:"items"`
}

type orderHistoryResponse struct {
	DinerID int           `json:"dinerId"`
	Orders  []pizza.Order `json:"orders"`
	Page    int           `json:"page"`
}

type createOrderResponse struct {
	Order     pizza.Order `json:"order"`
	ReportURL string      `json:"reportSlowPizzaToFactoryUrl"`
	JWT       string      `json:"jwt"`
}

func (a *API) handleMenu(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.getMenu(w, r)
	case http.MethodPut:
		a.addMenuItem(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleOrderCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listOrders(w, r)
	case http.MethodPost:
		a.createOrder(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) getMenu(w http.ResponseWriter, r *http.Request) {
	menu, err := a.pizza.Menu(r.Context())
	if err != nil {
		handlePizzaError(w, err)
		return
	}
	if menu == nil {
		menu = []pizza.MenuItem{}
	}
	writeJSON(w, http.StatusOK, menu)
}

// addMenuItem inserts the item and returns the whole menu, so the storefront
// can refresh its catalog from the single response.
func (a *API) addMenuItem(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok || !auth.CanAccess(p, auth.ActionMenuUpdate, auth.Target{}) {
		writeError(w, http.StatusForbidden, "unable to add menu item")
		return
	}

	var req addMenuItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := a.pizza.AddMenuItem(r.Context(), pizza.MenuItem{
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		Price:       req.Price,
	})
	if err != nil {
		handlePizzaError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "menu.add", map[string]any{
		"menu_id": item.ID,
		"title":   item.Title,
	})

	menu, err := a.pizza.Menu(r.Context())
	if err != nil {
		handlePizzaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, menu)
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 0 {
		page = 0
	}
	orders, err := a.pizza.Orders(r.Context(), p.ID, page)
	if err != nil {
		handlePizzaError(w, err)
		return
	}
	if orders == nil {
		orders = []pizza.Order{}
	}
	writeJSON(w, http.StatusOK, orderHistoryResponse{DinerID: p.ID, Orders: orders, Page: page})
}

// createOrder persists the order and then hands it to the factory. A factory
// rejection surfaces as a 500 with the factory's follow-up URL; the stored
// order is kept so support can reconcile it later.
func (a *API) createOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "order must contain at least one item")
		return
	}

	order, err := a.pizza.CreateOrder(r.Context(), pizza.Order{
		FranchiseID: req.FranchiseID,
		StoreID:     req.StoreID,
		DinerID:     p.ID,
		Items:       req.Items,
	})
	if err != nil {
		handlePizzaError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "order.create", map[string]any{
		"order_id": order.ID,
		"store_id": order.StoreID,
	})

	verification, err := a.verifier.Verify(r.Context(), factory.Diner{
		ID:    p.ID,
		Name:  p.Name,
		Email: p.Email,
	}, &order)
	if err != nil {
		payload := map[string]any{"message": "failed to fulfill order at factory"}
		var rej *factory.RejectionError
		if errors.As(err, &rej) && rej.ReportURL != "" {
			payload["reportUrl"] = rej.ReportURL
		}
		writeJSON(w, http.StatusInternalServerError, payload)
		return
	}

	writeJSON(w, http.StatusOK, createOrderResponse{
		Order:     order,
		ReportURL: verification.ReportURL,
		JWT:       verification.JWT,
	})
}
