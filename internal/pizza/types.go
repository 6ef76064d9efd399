package pizza

import (
	"errors"
	"time"
)

// FranchiseAdmin is a user reference attached to a franchise. On creation
// requests only the email is required; responses carry id and name too.
type FranchiseAdmin struct {
	ID    int    `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Franchise groups stores under a set of administering users.
type Franchise struct {
	ID     int              `json:"id"`
	Name   string           `json:"name"`
	Admins []FranchiseAdmin `json:"admins,omitempty"`
	Stores []Store          `json:"stores"`
}

// Store is a single outlet of a franchise. Revenue is tracked in the same
// unit as menu prices (bitcoin, per company tradition).
type Store struct {
	ID           int     `json:"id"`
	FranchiseID  int     `json:"franchiseId,omitempty"`
	Name         string  `json:"name"`
	TotalRevenue float64 `json:"totalRevenue,omitempty"`
}

// MenuItem is a purchasable pizza.
type MenuItem struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
}

// OrderItem is one line of an order, priced at order time.
type OrderItem struct {
	MenuID      int     `json:"menuId"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Order is a diner's purchase at a store.
type Order struct {
	ID          int         `json:"id"`
	FranchiseID int         `json:"franchiseId"`
	StoreID     int         `json:"storeId"`
	DinerID     int         `json:"dinerId,omitempty"`
	Date        time.Time   `json:"date"`
	Items       []OrderItem `json:"items"`
}

var (
	ErrNotFound     = errors.New("pizza: not found")
	ErrInvalidInput = errors.New("pizza: invalid input")
	ErrUnknownAdmin = errors.New("pizza: unknown admin user")
)
