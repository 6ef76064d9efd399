package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type memoryDirectory struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*User
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{nextID: 1, users: make(map[int]*User)}
}

func (d *memoryDirectory) CreateUser(_ context.Context, u *User) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	clone := *u
	clone.ID = d.nextID
	d.nextID++
	d.users[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (d *memoryDirectory) GetUser(_ context.Context, id int) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (d *memoryDirectory) GetUserByEmail(_ context.Context, email string) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (d *memoryDirectory) UpdateUser(_ context.Context, id int, name, email, passwordHash string) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if name != "" {
		u.Name = name
	}
	if email != "" {
		u.Email = email
	}
	if passwordHash != "" {
		u.PasswordHash = passwordHash
	}
	out := *u
	return &out, nil
}

func (d *memoryDirectory) DeleteUser(_ context.Context, id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[id]; !ok {
		return ErrNotFound
	}
	delete(d.users, id)
	return nil
}

func (d *memoryDirectory) ListUsers(_ context.Context, page, limit int, name string) ([]*User, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*User
	for _, u := range d.users {
		clone := *u
		out = append(out, &clone)
	}
	return out, false, nil
}

type memoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemoryRevocations() *memoryRevocations {
	return &memoryRevocations{revoked: make(map[string]time.Time)}
}

func (r *memoryRevocations) Revoke(_ context.Context, fingerprint string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[fingerprint] = expiresAt
	return nil
}

func (r *memoryRevocations) IsRevoked(_ context.Context, fingerprint string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[fingerprint]
	return ok, nil
}

func newTestService(t *testing.T) (*Service, *memoryDirectory, *memoryRevocations) {
	t.Helper()
	codec := testCodec(t)
	dir := newMemoryDirectory()
	rev := newMemoryRevocations()
	svc, err := NewService(dir, rev, codec)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, dir, rev
}

func TestRegisterIssuesVerifiableToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "pizza diner", "Reg@Test.com", "a")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected assigned user id")
	}
	if user.Email != "reg@test.com" {
		t.Fatalf("email not normalized: %s", user.Email)
	}
	if len(user.Roles) != 1 || user.Roles[0].Role != RoleDiner {
		t.Fatalf("expected default diner role, got %+v", user.Roles)
	}

	principal, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if principal.ID != user.ID {
		t.Fatalf("token decodes to wrong subject: %d != %d", principal.ID, user.ID)
	}
}

func TestRegisterRejectsMissingFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	cases := [][3]string{
		{"", "a@test.com", "pw"},
		{"name", "", "pw"},
		{"name", "a@test.com", ""},
		{"  ", "a@test.com", "pw"},
	}
	for _, c := range cases {
		if _, _, err := svc.Register(context.Background(), c[0], c[1], c[2]); !errors.Is(err, ErrValidation) {
			t.Fatalf("register(%q,%q,%q): expected ErrValidation, got %v", c[0], c[1], c[2], err)
		}
	}
}

func TestLoginFailureIsConstantShape(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	if _, _, err := svc.Register(ctx, "diner", "known@test.com", "right"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, unknownErr := svc.Login(ctx, "nobody@test.com", "whatever")
	_, _, wrongErr := svc.Login(ctx, "known@test.com", "wrong")
	if !errors.Is(unknownErr, ErrAuthentication) || !errors.Is(wrongErr, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication for both, got %v / %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("login failures must be indistinguishable: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLoginIssuesFreshTokenWithoutInvalidatingOld(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, first, err := svc.Register(ctx, "diner", "multi@test.com", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, second, err := svc.Login(ctx, "multi@test.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if first == second {
		t.Fatal("expected a fresh token per login")
	}
	if _, err := svc.Authenticate(ctx, first); err != nil {
		t.Fatalf("earlier token should remain valid: %v", err)
	}
	if _, err := svc.Authenticate(ctx, second); err != nil {
		t.Fatalf("new token should be valid: %v", err)
	}
}

func TestLogoutRevokesExactToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, token, err := svc.Register(ctx, "diner", "bye@test.com", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, token); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("revoked token accepted: %v", err)
	}
	// Revoking again is not an error.
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("repeat Logout: %v", err)
	}
}

func TestLogoutRejectsGarbageToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	if err := svc.Logout(context.Background(), "not.a.token"); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

func TestAuthenticateRefreshesRoles(t *testing.T) {
	svc, dir, _ := newTestService(t)
	ctx := context.Background()
	user, token, err := svc.Register(ctx, "diner", "promote@test.com", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Promote after issuance; the old token must observe the new role.
	dir.mu.Lock()
	dir.users[user.ID].Roles = append(dir.users[user.ID].Roles, RoleAssignment{Role: RoleFranchisee, ObjectID: 3})
	dir.mu.Unlock()

	principal, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !CanAccess(principal, ActionStoreCreate, Target{FranchiseID: 3}) {
		t.Fatalf("refreshed roles missing franchisee scope: %+v", principal.Roles)
	}
}

func TestAuthenticateRejectsDeletedUser(t *testing.T) {
	svc, dir, _ := newTestService(t)
	ctx := context.Background()
	user, token, err := svc.Register(ctx, "diner", "gone@test.com", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := dir.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := svc.Authenticate(ctx, token); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication for deleted subject, got %v", err)
	}
}

func TestUpdateUserReissuesToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	user, _, err := svc.Register(ctx, "old name", "upd@test.com", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	updated, token, err := svc.UpdateUser(ctx, user.ID, "new name", "newmail@test.com", "newpw")
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Name != "new name" || updated.Email != "newmail@test.com" {
		t.Fatalf("update not applied: %+v", updated)
	}
	principal, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate reissued token: %v", err)
	}
	if principal.Email != "newmail@test.com" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
	if _, _, err := svc.Login(ctx, "newmail@test.com", "newpw"); err != nil {
		t.Fatalf("login with rotated password: %v", err)
	}
}

func TestConcurrentRevocations(t *testing.T) {
	svc, _, rev := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	tokens := make([]string, 16)
	for i := range tokens {
		_, token, err := svc.Register(ctx, "diner", fmt.Sprintf("c%d@test.com", i), "pw")
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		tokens[i] = token
	}
	for _, token := range tokens {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			_ = svc.Logout(ctx, tok)
		}(token)
	}
	wg.Wait()

	for _, token := range tokens {
		revoked, err := rev.IsRevoked(ctx, Fingerprint(token))
		if err != nil || !revoked {
			t.Fatalf("token not revoked after concurrent logout: %v", err)
		}
	}
}

func TestLoginNormalizesEmailCase(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	if _, _, err := svc.Register(ctx, "diner", "Case@Test.com", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, _, err := svc.Login(ctx, "cAsE@tEsT.cOm", "pw"); err != nil {
		t.Fatalf("case-insensitive login failed: %v", err)
	}
}
