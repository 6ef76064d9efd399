package pg

import (
	"context"
	"time"

	"sliceline.app/internal/pizza"
)

const orderPageSize = 10

func (s *Store) Menu(ctx context.Context) ([]pizza.MenuItem, error) {
	const query = `select id, title, description, image, price from menu order by id`
	s.logQuery(query)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []pizza.MenuItem{}
	for rows.Next() {
		var m pizza.MenuItem
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Image, &m.Price); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (s *Store) AddMenuItem(ctx context.Context, item pizza.MenuItem) (pizza.MenuItem, error) {
	const query = `insert into menu(title, description, image, price) values($1,$2,$3,$4) returning id`
	s.logQuery(query)
	if err := s.db.QueryRowContext(ctx, query, item.Title, item.Description, item.Image, item.Price).Scan(&item.ID); err != nil {
		return pizza.MenuItem{}, err
	}
	return item, nil
}

func (s *Store) Orders(ctx context.Context, dinerID, page int) ([]pizza.Order, error) {
	if page < 0 {
		page = 0
	}
	// The order history endpoint reports the page number, not a "more" flag,
	// so no lookahead row is needed here.
	offset, fetch := page*orderPageSize, orderPageSize
	const query = `
		select id, franchise_id, store_id, created_at from orders
		where diner_id=$1 order by id desc limit $2 offset $3`
	s.logQuery(query)
	rows, err := s.db.QueryContext(ctx, query, dinerID, fetch, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []pizza.Order{}
	for rows.Next() {
		var o pizza.Order
		var created time.Time
		if err := rows.Scan(&o.ID, &o.FranchiseID, &o.StoreID, &created); err != nil {
			return nil, err
		}
		o.DinerID = dinerID
		o.Date = created.UTC()
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].Items, err = s.orderItems(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *Store) CreateOrder(ctx context.Context, order pizza.Order) (pizza.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pizza.Order{}, err
	}
	defer func() { _ = tx.Rollback() }()

	const insertOrder = `insert into orders(diner_id, franchise_id, store_id) values($1,$2,$3) returning id, created_at`
	s.logQuery(insertOrder)
	var created time.Time
	if err := tx.QueryRowContext(ctx, insertOrder, order.DinerID, order.FranchiseID, order.StoreID).Scan(&order.ID, &created); err != nil {
		return pizza.Order{}, err
	}
	order.Date = created.UTC()

	const insertItem = `insert into order_items(order_id, menu_id, description, price) values($1,$2,$3,$4)`
	total := 0.0
	for _, item := range order.Items {
		s.logQuery(insertItem)
		if _, err := tx.ExecContext(ctx, insertItem, order.ID, item.MenuID, item.Description, item.Price); err != nil {
			return pizza.Order{}, err
		}
		total += item.Price
	}

	const addRevenue = `update stores set total_revenue = total_revenue + $1 where id=$2 and franchise_id=$3`
	s.logQuery(addRevenue)
	if _, err := tx.ExecContext(ctx, addRevenue, total, order.StoreID, order.FranchiseID); err != nil {
		return pizza.Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return pizza.Order{}, err
	}
	return order, nil
}

func (s *Store) orderItems(ctx context.Context, orderID int) ([]pizza.OrderItem, error) {
	const query = `select menu_id, description, price from order_items where order_id=$1 order by id`
	s.logQuery(query)
	rows, err := s.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []pizza.OrderItem{}
	for rows.Next() {
		var it pizza.OrderItem
		if err := rows.Scan(&it.MenuID, &it.Description, &it.Price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
