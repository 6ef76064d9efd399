package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sliceline.app/internal/auth"
	"sliceline.app/internal/pizza"
)

const defaultFranchisePageSize = 10

func (s *Store) ListFranchises(ctx context.Context, page, limit int, name string) ([]pizza.Franchise, bool, error) {
	offset, fetch := pageWindow(page, limit, defaultFranchisePageSize)
	const query = `select id, name from franchises where name ilike $1 order by id limit $2 offset $3`
	s.logQuery(query)
	rows, err := s.db.QueryContext(ctx, query, likePattern(name), fetch, offset)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var franchises []pizza.Franchise
	for rows.Next() {
		var f pizza.Franchise
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, false, err
		}
		franchises = append(franchises, f)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	more := len(franchises) == fetch
	if more {
		franchises = franchises[:len(franchises)-1]
	}
	for i := range franchises {
		if err := s.hydrateFranchise(ctx, &franchises[i]); err != nil {
			return nil, false, err
		}
	}
	return franchises, more, nil
}

func (s *Store) UserFranchises(ctx context.Context, userID int) ([]pizza.Franchise, error) {
	const query = `
		select f.id, f.name from franchises f
		join user_roles r on r.object_id = f.id
		where r.user_id = $1 and r.role = $2
		order by f.id`
	s.logQuery(query)
	rows, err := s.db.QueryContext(ctx, query, userID, string(auth.RoleFranchisee))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var franchises []pizza.Franchise
	for rows.Next() {
		var f pizza.Franchise
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, err
		}
		franchises = append(franchises, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range franchises {
		if err := s.hydrateFranchise(ctx, &franchises[i]); err != nil {
			return nil, err
		}
	}
	return franchises, nil
}

func (s *Store) GetFranchise(ctx context.Context, franchiseID int) (pizza.Franchise, error) {
	const query = `select id, name from franchises where id=$1`
	s.logQuery(query)
	var f pizza.Franchise
	err := s.db.QueryRowContext(ctx, query, franchiseID).Scan(&f.ID, &f.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return pizza.Franchise{}, pizza.ErrNotFound
	}
	if err != nil {
		return pizza.Franchise{}, err
	}
	if err := s.hydrateFranchise(ctx, &f); err != nil {
		return pizza.Franchise{}, err
	}
	return f, nil
}

func (s *Store) CreateFranchise(ctx context.Context, franchise pizza.Franchise) (pizza.Franchise, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pizza.Franchise{}, err
	}
	defer func() { _ = tx.Rollback() }()

	const insertFranchise = `insert into franchises(name) values($1) returning id`
	s.logQuery(insertFranchise)
	var id int
	if err := tx.QueryRowContext(ctx, insertFranchise, franchise.Name).Scan(&id); err != nil {
		return pizza.Franchise{}, err
	}

	admins := make([]pizza.FranchiseAdmin, 0, len(franchise.Admins))
	const findAdmin = `select id, name from users where email=$1`
	const grantRole = `insert into user_roles(user_id, role, object_id) values($1,$2,$3)`
	for _, admin := range franchise.Admins {
		s.logQuery(findAdmin)
		var (
			adminID   int
			adminName string
		)
		err := tx.QueryRowContext(ctx, findAdmin, admin.Email).Scan(&adminID, &adminName)
		if errors.Is(err, sql.ErrNoRows) {
			return pizza.Franchise{}, fmt.Errorf("%w: %s", pizza.ErrUnknownAdmin, admin.Email)
		}
		if err != nil {
			return pizza.Franchise{}, err
		}
		s.logQuery(grantRole)
		if _, err := tx.ExecContext(ctx, grantRole, adminID, string(auth.RoleFranchisee), id); err != nil {
			return pizza.Franchise{}, err
		}
		admins = append(admins, pizza.FranchiseAdmin{ID: adminID, Name: adminName, Email: admin.Email})
	}
	if err := tx.Commit(); err != nil {
		return pizza.Franchise{}, err
	}

	return pizza.Franchise{ID: id, Name: franchise.Name, Admins: admins, Stores: []pizza.Store{}}, nil
}

func (s *Store) DeleteFranchise(ctx context.Context, franchiseID int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const revokeGrants = `delete from user_roles where role=$1 and object_id=$2`
	s.logQuery(revokeGrants)
	if _, err := tx.ExecContext(ctx, revokeGrants, string(auth.RoleFranchisee), franchiseID); err != nil {
		return err
	}
	const deleteStores = `delete from stores where franchise_id=$1`
	s.logQuery(deleteStores)
	if _, err := tx.ExecContext(ctx, deleteStores, franchiseID); err != nil {
		return err
	}
	const deleteFranchise = `delete from franchises where id=$1`
	s.logQuery(deleteFranchise)
	res, err := tx.ExecContext(ctx, deleteFranchise, franchiseID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return pizza.ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) CreateStore(ctx context.Context, franchiseID int, store pizza.Store) (pizza.Store, error) {
	const query = `insert into stores(franchise_id, name) values($1,$2) returning id`
	s.logQuery(query)
	var id int
	if err := s.db.QueryRowContext(ctx, query, franchiseID, store.Name).Scan(&id); err != nil {
		return pizza.Store{}, err
	}
	return pizza.Store{ID: id, FranchiseID: franchiseID, Name: store.Name}, nil
}

func (s *Store) DeleteStore(ctx context.Context, franchiseID, storeID int) error {
	const query = `delete from stores where id=$1 and franchise_id=$2`
	s.logQuery(query)
	res, err := s.db.ExecContext(ctx, query, storeID, franchiseID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return pizza.ErrNotFound
	}
	return nil
}

func (s *Store) hydrateFranchise(ctx context.Context, f *pizza.Franchise) error {
	const adminQuery = `
		select u.id, u.name, u.email from users u
		join user_roles r on r.user_id = u.id
		where r.role = $1 and r.object_id = $2
		order by u.id`
	s.logQuery(adminQuery)
	rows, err := s.db.QueryContext(ctx, adminQuery, string(auth.RoleFranchisee), f.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a pizza.FranchiseAdmin
		if err := rows.Scan(&a.ID, &a.Name, &a.Email); err != nil {
			return err
		}
		f.Admins = append(f.Admins, a)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	const storeQuery = `select id, name, total_revenue from stores where franchise_id=$1 order by id`
	s.logQuery(storeQuery)
	storeRows, err := s.db.QueryContext(ctx, storeQuery, f.ID)
	if err != nil {
		return err
	}
	defer storeRows.Close()
	f.Stores = []pizza.Store{}
	for storeRows.Next() {
		var st pizza.Store
		if err := storeRows.Scan(&st.ID, &st.Name, &st.TotalRevenue); err != nil {
			return err
		}
		f.Stores = append(f.Stores, st)
	}
	return storeRows.Err()
}
