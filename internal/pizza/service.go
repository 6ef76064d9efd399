package pizza

import "context"

// Service defines the persistence operations behind the menu, franchise,
// store, and order endpoints. The HTTP layer performs all authorization;
// implementations only move data.
type Service interface {
	// Menu returns every purchasable item.
	Menu(ctx context.Context) ([]MenuItem, error)
	// AddMenuItem inserts an item and returns it with its assigned id.
	AddMenuItem(ctx context.Context, item MenuItem) (MenuItem, error)

	// ListFranchises returns one page of franchises plus a flag reporting
	// whether more pages exist. The name filter accepts the `*` wildcard.
	ListFranchises(ctx context.Context, page, limit int, name string) ([]Franchise, bool, error)
	// UserFranchises returns franchises the user administers, stores included.
	UserFranchises(ctx context.Context, userID int) ([]Franchise, error)
	// CreateFranchise resolves admin emails to existing users and grants each
	// a franchisee role scoped to the new franchise. Unknown emails fail the
	// whole creation with ErrUnknownAdmin.
	CreateFranchise(ctx context.Context, franchise Franchise) (Franchise, error)
	// DeleteFranchise removes the franchise, its stores, and the scoped
	// franchisee role grants.
	DeleteFranchise(ctx context.Context, franchiseID int) error
	// GetFranchise loads a single franchise with admins and stores.
	GetFranchise(ctx context.Context, franchiseID int) (Franchise, error)

	CreateStore(ctx context.Context, franchiseID int, store Store) (Store, error)
	DeleteStore(ctx context.Context, franchiseID, storeID int) error

	// Orders returns one page of the diner's order history.
	Orders(ctx context.Context, dinerID, page int) ([]Order, error)
	// CreateOrder persists the order and returns it with assigned id.
	CreateOrder(ctx context.Context, order Order) (Order, error)
}
