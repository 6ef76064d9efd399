package pg

import (
	"context"
	"database/sql"
	"errors"

	"sliceline.app/internal/auth"
)

const defaultUserPageSize = 10

func (s *Store) CreateUser(ctx context.Context, u *auth.User) (*auth.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	const insertUser = `insert into users(name, email, password_hash) values($1,$2,$3) returning id`
	s.logQuery(insertUser)
	var id int
	if err := tx.QueryRowContext(ctx, insertUser, u.Name, u.Email, u.PasswordHash).Scan(&id); err != nil {
		return nil, err
	}
	const insertRole = `insert into user_roles(user_id, role, object_id) values($1,$2,$3)`
	for _, r := range u.Roles {
		s.logQuery(insertRole)
		if _, err := tx.ExecContext(ctx, insertRole, id, string(r.Role), r.ObjectID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	out := *u
	out.ID = id
	return &out, nil
}

func (s *Store) GetUser(ctx context.Context, id int) (*auth.User, error) {
	const query = `select id, name, email, password_hash from users where id=$1`
	s.logQuery(query)
	var u auth.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.Roles, err = s.userRoles(ctx, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	const query = `select id, name, email, password_hash from users where email=$1`
	s.logQuery(query)
	var u auth.User
	err := s.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.Roles, err = s.userRoles(ctx, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser applies only the non-empty fields and returns the fresh row.
func (s *Store) UpdateUser(ctx context.Context, id int, name, email, passwordHash string) (*auth.User, error) {
	const query = `
		update users set
			name = coalesce(nullif($2,''), name),
			email = coalesce(nullif($3,''), email),
			password_hash = coalesce(nullif($4,''), password_hash),
			updated_at = now()
		where id = $1`
	s.logQuery(query)
	res, err := s.db.ExecContext(ctx, query, id, name, email, passwordHash)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, auth.ErrNotFound
	}
	return s.GetUser(ctx, id)
}

func (s *Store) DeleteUser(ctx context.Context, id int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const deleteRoles = `delete from user_roles where user_id=$1`
	s.logQuery(deleteRoles)
	if _, err := tx.ExecContext(ctx, deleteRoles, id); err != nil {
		return err
	}
	const deleteUser = `delete from users where id=$1`
	s.logQuery(deleteUser)
	res, err := tx.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) ListUsers(ctx context.Context, page, limit int, name string) ([]*auth.User, bool, error) {
	offset, fetch := pageWindow(page, limit, defaultUserPageSize)
	const query = `select id, name, email from users where name ilike $1 order by id limit $2 offset $3`
	s.logQuery(query)
	rows, err := s.db.QueryContext(ctx, query, likePattern(name), fetch, offset)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		var u auth.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, false, err
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	more := len(users) == fetch
	if more {
		users = users[:len(users)-1]
	}
	for _, u := range users {
		if u.Roles, err = s.userRoles(ctx, u.ID); err != nil {
			return nil, false, err
		}
	}
	return users, more, nil
}

func (s *Store) userRoles(ctx context.Context, userID int) ([]auth.RoleAssignment, error) {
	const query = `select role, object_id from user_roles where user_id=$1 order by role, object_id`
	s.logQuery(query)
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []auth.RoleAssignment
	for rows.Next() {
		var (
			role     string
			objectID int
		)
		if err := rows.Scan(&role, &objectID); err != nil {
			return nil, err
		}
		roles = append(roles, auth.RoleAssignment{Role: auth.Role(role), ObjectID: objectID})
	}
	return roles, rows.Err()
}
