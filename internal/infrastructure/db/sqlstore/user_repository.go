package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/99minutos/user-management/internal/core/domain"
	"github.com/99minutos/user-management/internal/core/ports"
)

// UserRepository provides data access for the users table using sqlx.
// Queries are written with '?' placeholders and rebound per driver.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository { return &UserRepository{db: db} }

var _ ports.UserRepository = (*UserRepository)(nil)

type userRow struct {
	ID           int64  `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Name         string `db:"name"`
	Address      string `db:"address"`
	Role         string `db:"role"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Name:         r.Name,
		Address:      r.Address,
		Role:         domain.Role(r.Role),
		CreatedAt:    fromMillis(r.CreatedAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}
}

const selectUser = `SELECT id, email, password_hash, name, address, role, created_at, updated_at FROM users`

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(selectUser+" WHERE "+where), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return row.toDomain(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*domain.User, error) {
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, selectUser+" ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]*domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	return users, nil
}

// Save inserts when u.ID is zero (RETURNING the new id) and updates otherwise.
func (r *UserRepository) Save(ctx context.Context, u *domain.User) (*domain.User, error) {
	saved := u.Clone()

	if saved.ID == 0 {
		q := r.db.Rebind(`INSERT INTO users (email, password_hash, name, address, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		err := r.db.QueryRowxContext(ctx, q,
			saved.Email, saved.PasswordHash, saved.Name, saved.Address, string(saved.Role),
			toMillis(saved.CreatedAt), toMillis(saved.UpdatedAt),
		).Scan(&saved.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, domain.ErrUserExists
			}
			return nil, fmt.Errorf("insert user: %w", err)
		}
		return saved, nil
	}

	q := r.db.Rebind(`UPDATE users SET email = ?, password_hash = ?, name = ?, address = ?, role = ?, updated_at = ?
WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q,
		saved.Email, saved.PasswordHash, saved.Name, saved.Address, string(saved.Role),
		toMillis(saved.UpdatedAt), saved.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrUserNotFound
	}
	return saved, nil
}

func (r *UserRepository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
