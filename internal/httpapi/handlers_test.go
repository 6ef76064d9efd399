package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sliceline.app/internal/auth"
	"sliceline.app/internal/factory"
	"sliceline.app/internal/pizza"
)

type fakeAuth struct {
	principals map[string]auth.Principal
	users      map[int]*auth.User
	loginErr   error
	revoked    map[string]bool
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		principals: map[string]auth.Principal{},
		users:      map[int]*auth.User{},
		revoked:    map[string]bool{},
	}
}

func (f *fakeAuth) addUser(token string, user *auth.User) {
	f.users[user.ID] = user
	f.principals[token] = auth.PrincipalFromUser(user)
}

func (f *fakeAuth) Register(_ context.Context, name, email, password string) (*auth.User, string, error) {
	if name == "" || email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: name, email, and password are required", auth.ErrValidation)
	}
	u := &auth.User{ID: 100, Name: name, Email: email, Roles: []auth.RoleAssignment{{Role: auth.RoleDiner}}}
	return u, "fresh-token", nil
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*auth.User, string, error) {
	if f.loginErr != nil {
		return nil, "", f.loginErr
	}
	for _, u := range f.users {
		if u.Email == email {
			return u, "login-token", nil
		}
	}
	return nil, "", auth.ErrAuthentication
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	if _, ok := f.principals[token]; !ok {
		return auth.ErrAuthentication
	}
	f.revoked[token] = true
	return nil
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (auth.Principal, error) {
	if f.revoked[token] {
		return auth.Principal{}, auth.ErrAuthentication
	}
	p, ok := f.principals[token]
	if !ok {
		return auth.Principal{}, auth.ErrAuthentication
	}
	return p, nil
}

func (f *fakeAuth) UpdateUser(_ context.Context, id int, name, email, password string) (*auth.User, string, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, "", auth.ErrNotFound
	}
	if name != "" {
		u.Name = name
	}
	if email != "" {
		u.Email = email
	}
	return u, "reissued-token", nil
}

func (f *fakeAuth) GetUser(_ context.Context, id int) (*auth.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return u, nil
}

func (f *fakeAuth) DeleteUser(_ context.Context, id int) error {
	if _, ok := f.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeAuth) ListUsers(_ context.Context, page, limit int, name string) ([]*auth.User, bool, error) {
	out := make([]*auth.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, false, nil
}

type fakePizza struct {
	menu       []pizza.MenuItem
	franchises []pizza.Franchise
	orders     []pizza.Order
	createErr  error
	deleted    []int
}

func (f *fakePizza) Menu(context.Context) ([]pizza.MenuItem, error) { return f.menu, nil }

func (f *fakePizza) AddMenuItem(_ context.Context, item pizza.MenuItem) (pizza.MenuItem, error) {
	item.ID = len(f.menu) + 1
	f.menu = append(f.menu, item)
	return item, nil
}

func (f *fakePizza) ListFranchises(_ context.Context, page, limit int, name string) ([]pizza.Franchise, bool, error) {
	return f.franchises, false, nil
}

func (f *fakePizza) UserFranchises(_ context.Context, userID int) ([]pizza.Franchise, error) {
	var out []pizza.Franchise
	for _, fr := range f.franchises {
		for _, adm := range fr.Admins {
			if adm.ID == userID {
				out = append(out, fr)
			}
		}
	}
	return out, nil
}

func (f *fakePizza) CreateFranchise(_ context.Context, fr pizza.Franchise) (pizza.Franchise, error) {
	if f.createErr != nil {
		return pizza.Franchise{}, f.createErr
	}
	fr.ID = len(f.franchises) + 1
	f.franchises = append(f.franchises, fr)
	return fr, nil
}

func (f *fakePizza) DeleteFranchise(_ context.Context, franchiseID int) error {
	f.deleted = append(f.deleted, franchiseID)
	return nil
}

func (f *fakePizza) GetFranchise(_ context.Context, franchiseID int) (pizza.Franchise, error) {
	for _, fr := range f.franchises {
		if fr.ID == franchiseID {
			return fr, nil
		}
	}
	return pizza.Franchise{}, pizza.ErrNotFound
}

func (f *fakePizza) CreateStore(_ context.Context, franchiseID int, st pizza.Store) (pizza.Store, error) {
	st.ID = 1
	st.FranchiseID = franchiseID
	return st, nil
}

func (f *fakePizza) DeleteStore(_ context.Context, franchiseID, storeID int) error {
	return nil
}

func (f *fakePizza) Orders(_ context.Context, dinerID, page int) ([]pizza.Order, error) {
	var out []pizza.Order
	for _, o := range f.orders {
		if o.DinerID == dinerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakePizza) CreateOrder(_ context.Context, o pizza.Order) (pizza.Order, error) {
	o.ID = len(f.orders) + 1
	f.orders = append(f.orders, o)
	return o, nil
}

type fakeVerifier struct {
	err      error
	verified []pizza.Order
}

func (f *fakeVerifier) Verify(_ context.Context, diner factory.Diner, order *pizza.Order) (*factory.Verification, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.verified = append(f.verified, *order)
	return &factory.Verification{JWT: "receipt-jwt", ReportURL: "https://factory.test/report"}, nil
}

type fixture struct {
	auth     *fakeAuth
	pizza    *fakePizza
	verifier *fakeVerifier
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fa := newFakeAuth()
	fa.addUser("admin-token", &auth.User{
		ID: 1, Name: "Ada Admin", Email: "a@jwt.com",
		Roles: []auth.RoleAssignment{{Role: auth.RoleAdmin}},
	})
	fa.addUser("diner-token", &auth.User{
		ID: 2, Name: "Dina Diner", Email: "d@jwt.com",
		Roles: []auth.RoleAssignment{{Role: auth.RoleDiner}},
	})
	fa.addUser("franchisee-token", &auth.User{
		ID: 3, Name: "Frank Franchisee", Email: "f@jwt.com",
		Roles: []auth.RoleAssignment{{Role: auth.RoleDiner}, {Role: auth.RoleFranchisee, ObjectID: 7}},
	})
	fp := &fakePizza{
		menu: []pizza.MenuItem{{ID: 1, Title: "Veggie", Price: 0.0038}},
		franchises: []pizza.Franchise{{
			ID: 7, Name: "SliceCo",
			Admins: []pizza.FranchiseAdmin{{ID: 3, Name: "Frank Franchisee", Email: "f@jwt.com"}},
			Stores: []pizza.Store{{ID: 4, FranchiseID: 7, Name: "Downtown"}},
		}},
	}
	fv := &fakeVerifier{}
	api := New(fa, fp, fv)
	return &fixture{auth: fa, pizza: fp, verifier: fv, handler: api.Handler()}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("response not a JSON object: %v (%s)", err, rr.Body.String())
	}
	return m
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/auth", "", `{"name":"N","email":"n@test.com","password":"p"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["token"] != "fresh-token" {
		t.Fatalf("missing token: %v", body)
	}
	user := body["user"].(map[string]any)
	if user["email"] != "n@test.com" {
		t.Fatalf("unexpected user: %v", user)
	}
	if _, leaked := user["password"]; leaked {
		t.Fatal("password leaked in response")
	}
}

func TestRegisterMissingFields(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/auth", "", `{"name":"N"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if got := decodeBody(t, rr)["message"]; got != "name, email, and password are required" {
		t.Fatalf("unexpected message: %v", got)
	}
}

func TestLoginUnknownUserShape(t *testing.T) {
	f := newFixture(t)
	missing := f.do(t, http.MethodPut, "/api/auth", "", `{"email":"nobody@test.com","password":"x"}`)
	if missing.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", missing.Code)
	}
	if got := decodeBody(t, missing)["message"]; got != "unknown user" {
		t.Fatalf("unexpected message: %v", got)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodDelete, "/api/auth", "diner-token", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := decodeBody(t, rr)["message"]; got != "logout successful" {
		t.Fatalf("unexpected message: %v", got)
	}
	if !f.auth.revoked["diner-token"] {
		t.Fatal("token was not revoked")
	}

	missing := f.do(t, http.MethodDelete, "/api/auth", "", "")
	if missing.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", missing.Code)
	}
}

func TestGetSelf(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/api/user/me", "diner-token", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := decodeBody(t, rr)["email"]; got != "d@jwt.com" {
		t.Fatalf("unexpected user: %v", got)
	}
}

func TestListUsersRequiresAuthOnly(t *testing.T) {
	f := newFixture(t)
	anon := f.do(t, http.MethodGet, "/api/user", "", "")
	if anon.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", anon.Code)
	}

	for _, token := range []string{"diner-token", "admin-token"} {
		rr := f.do(t, http.MethodGet, "/api/user?page=0&limit=10&name=*", token, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", token, rr.Code)
		}
		body := decodeBody(t, rr)
		if _, ok := body["users"].([]any); !ok {
			t.Fatalf("missing users list: %v", body)
		}
		if _, ok := body["more"].(bool); !ok {
			t.Fatalf("missing more flag: %v", body)
		}
	}
}

func TestUpdateUserSelfOrAdmin(t *testing.T) {
	f := newFixture(t)
	self := f.do(t, http.MethodPut, "/api/user/2", "diner-token", `{"name":"New Name"}`)
	if self.Code != http.StatusOK {
		t.Fatalf("self update should pass, got %d: %s", self.Code, self.Body.String())
	}
	if got := decodeBody(t, self)["token"]; got != "reissued-token" {
		t.Fatalf("expected reissued token, got %v", got)
	}

	other := f.do(t, http.MethodPut, "/api/user/1", "diner-token", `{"name":"X"}`)
	if other.Code != http.StatusForbidden {
		t.Fatalf("expected 403 updating another user, got %d", other.Code)
	}
	if got := decodeBody(t, other)["message"]; got != "unauthorized" {
		t.Fatalf("unexpected message: %v", got)
	}

	byAdmin := f.do(t, http.MethodPut, "/api/user/2", "admin-token", `{"name":"Via Admin"}`)
	if byAdmin.Code != http.StatusOK {
		t.Fatalf("admin update should pass, got %d", byAdmin.Code)
	}
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	denied := f.do(t, http.MethodDelete, "/api/user/1", "diner-token", "")
	if denied.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", denied.Code)
	}

	rr := f.do(t, http.MethodDelete, "/api/user/2", "admin-token", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := decodeBody(t, rr)["message"]; got != "user deleted" {
		t.Fatalf("unexpected message: %v", got)
	}
}

func TestListFranchisesIsPublic(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/api/franchise?page=0&limit=10&name=*", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 without token, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	franchises, ok := body["franchises"].([]any)
	if !ok || len(franchises) != 1 {
		t.Fatalf("unexpected franchises: %v", body)
	}
}

func TestUserFranchises(t *testing.T) {
	f := newFixture(t)
	own := f.do(t, http.MethodGet, "/api/franchise/3", "franchisee-token", "")
	if own.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", own.Code)
	}
	var list []any
	if err := json.Unmarshal(own.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("expected one owned franchise, got %s", own.Body.String())
	}

	// Someone else's franchises come back empty, not forbidden.
	other := f.do(t, http.MethodGet, "/api/franchise/3", "diner-token", "")
	if other.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", other.Code)
	}
	if err := json.Unmarshal(other.Body.Bytes(), &list); err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %s", other.Body.String())
	}
}

func TestCreateFranchiseAdminOnly(t *testing.T) {
	f := newFixture(t)
	denied := f.do(t, http.MethodPost, "/api/franchise", "franchisee-token", `{"name":"NewCo","admins":[]}`)
	if denied.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", denied.Code)
	}
	if got := decodeBody(t, denied)["message"]; got != "unable to create a franchise" {
		t.Fatalf("unexpected message: %v", got)
	}

	rr := f.do(t, http.MethodPost, "/api/franchise", "admin-token", `{"name":"NewCo","admins":[{"email":"f@jwt.com"}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["name"] != "NewCo" {
		t.Fatalf("created franchise missing name: %v", body)
	}
	if _, ok := body["id"].(float64); !ok {
		t.Fatalf("created franchise missing id: %v", body)
	}
}

func TestCreateFranchiseUnknownAdmin(t *testing.T) {
	f := newFixture(t)
	f.pizza.createErr = fmt.Errorf("%w: ghost@test.com", pizza.ErrUnknownAdmin)
	rr := f.do(t, http.MethodPost, "/api/franchise", "admin-token", `{"name":"NewCo","admins":[{"email":"ghost@test.com"}]}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if got := decodeBody(t, rr)["message"]; got != "unknown user for franchise admin ghost@test.com provided" {
		t.Fatalf("unexpected message: %v", got)
	}
}

func TestDeleteFranchiseGate(t *testing.T) {
	f := newFixture(t)
	denied := f.do(t, http.MethodDelete, "/api/franchise/7", "diner-token", "")
	if denied.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", denied.Code)
	}
	if got := decodeBody(t, denied)["message"]; got != "unable to delete a franchise" {
		t.Fatalf("unexpected message: %v", got)
	}

	scoped := f.do(t, http.MethodDelete, "/api/franchise/7", "franchisee-token", "")
	if scoped.Code != http.StatusOK {
		t.Fatalf("scoped franchisee should delete own franchise, got %d", scoped.Code)
	}
	if got := decodeBody(t, scoped)["message"]; got != "franchise deleted" {
		t.Fatalf("unexpected message: %v", got)
	}
}

func TestCreateStoreScopedToFranchise(t *testing.T) {
	f := newFixture(t)
	own := f.do(t, http.MethodPost, "/api/franchise/7/store", "franchisee-token", `{"name":"Uptown"}`)
	if own.Code != http.StatusOK {
		t.Fatalf("expected 200 for own franchise, got %d: %s", own.Code, own.Body.String())
	}

	foreign := f.do(t, http.MethodPost, "/api/franchise/8/store", "franchisee-token", `{"name":"Elsewhere"}`)
	if foreign.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign franchise, got %d", foreign.Code)
	}
	if got := decodeBody(t, foreign)["message"]; got != "unable to create a store" {
		t.Fatalf("unexpected message: %v", got)
	}
}

func TestDeleteStore(t *testing.T) {
	f := newFixture(t)
	denied := f.do(t, http.MethodDelete, "/api/franchise/7/store/4", "diner-token", "")
	if denied.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", denied.Code)
	}
	if got := decodeBody(t, denied)["message"]; got != "unable to delete a store" {
		t.Fatalf("unexpected message: %v", got)
	}

	rr := f.do(t, http.MethodDelete, "/api/franchise/7/store/4", "admin-token", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := decodeBody(t, rr)["message"]; got != "store deleted" {
		t.Fatalf("unexpected message: %v", got)
	}
}

func TestMenu(t *testing.T) {
	f := newFixture(t)
	public := f.do(t, http.MethodGet, "/api/order/menu", "", "")
	if public.Code != http.StatusOK {
		t.Fatalf("menu should be public, got %d", public.Code)
	}
	var menu []any
	if err := json.Unmarshal(public.Body.Bytes(), &menu); err != nil || len(menu) != 1 {
		t.Fatalf("unexpected menu: %s", public.Body.String())
	}

	denied := f.do(t, http.MethodPut, "/api/order/menu", "diner-token", `{"title":"Hack","price":1}`)
	if denied.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", denied.Code)
	}
	if got := decodeBody(t, denied)["message"]; got != "unable to add menu item" {
		t.Fatalf("unexpected message: %v", got)
	}

	added := f.do(t, http.MethodPut, "/api/order/menu", "admin-token", `{"title":"Student","description":"no topping","image":"pizza9.png","price":0.0001}`)
	if added.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", added.Code)
	}
	if err := json.Unmarshal(added.Body.Bytes(), &menu); err != nil || len(menu) != 2 {
		t.Fatalf("expected full menu back, got %s", added.Body.String())
	}
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	f.pizza.orders = []pizza.Order{{ID: 1, DinerID: 2}, {ID: 2, DinerID: 9}}
	rr := f.do(t, http.MethodGet, "/api/order?page=0", "diner-token", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["dinerId"] != float64(2) {
		t.Fatalf("unexpected dinerId: %v", body)
	}
	orders := body["orders"].([]any)
	if len(orders) != 1 {
		t.Fatalf("expected only the diner's orders, got %v", orders)
	}
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/order", "diner-token",
		`{"franchiseId":7,"storeId":4,"items":[{"menuId":1,"description":"Veggie","price":0.0038}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["jwt"] != "receipt-jwt" {
		t.Fatalf("missing factory receipt: %v", body)
	}
	if body["reportSlowPizzaToFactoryUrl"] != "https://factory.test/report" {
		t.Fatalf("missing report url: %v", body)
	}
	order := body["order"].(map[string]any)
	if order["dinerId"] != float64(2) {
		t.Fatalf("order not attributed to caller: %v", order)
	}
	if len(f.verifier.verified) != 1 {
		t.Fatalf("factory not called exactly once: %d", len(f.verifier.verified))
	}
}

func TestCreateOrderFactoryFailure(t *testing.T) {
	f := newFixture(t)
	f.verifier.err = &factory.RejectionError{Status: 500, ReportURL: "https://factory.test/error/1"}
	rr := f.do(t, http.MethodPost, "/api/order", "diner-token",
		`{"franchiseId":7,"storeId":4,"items":[{"menuId":1,"description":"Veggie","price":0.0038}]}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["message"] != "failed to fulfill order at factory" {
		t.Fatalf("unexpected message: %v", body)
	}
	if body["reportUrl"] != "https://factory.test/error/1" {
		t.Fatalf("missing report url: %v", body)
	}
	// The stored order survives the rejection for later reconciliation.
	if len(f.pizza.orders) != 1 {
		t.Fatalf("expected order to be persisted, got %d", len(f.pizza.orders))
	}
}

func TestCreateOrderRequiresItems(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/order", "diner-token", `{"franchiseId":7,"storeId":4,"items":[]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestDocs(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/api/docs", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("docs should be public, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	endpoints, ok := body["endpoints"].([]any)
	if !ok || len(endpoints) == 0 {
		t.Fatalf("expected endpoint docs, got %v", body)
	}
}

func TestUnknownEndpoint(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/api/nope", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
