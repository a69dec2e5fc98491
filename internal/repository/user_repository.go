package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/stagepass/event-ticketing/internal/model"
)

// UserRepo provides data access to the users table.
type UserRepo struct {
    db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the provided database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row and populates the generated ID.  The
// password must already be hashed by the caller.  A duplicate email
// reports ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
    const q = `INSERT INTO users (email, password_hash, display_name, role, is_active)
               VALUES (?, ?, ?, ?, ?)`
    res, err := exec(ctx, r.db).ExecContext(ctx, q, u.Email, u.PasswordHash, u.DisplayName, u.Role, u.IsActive)
    if err != nil {
        if strings.Contains(err.Error(), "1062") {
            return ErrEmailExists
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    u.ID = uint64(id)
    return nil
}

const userColumns = `id, email, password_hash, display_name, role, is_active, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
    var u model.User
    err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.IsActive,
        &u.CreatedAt, &u.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, nil
        }
        return nil, err
    }
    return &u, nil
}

// GetByEmail returns the user with the given email, or nil when none
// exists.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
    const q = `SELECT ` + userColumns + ` FROM users WHERE email = ?`
    return scanUser(exec(ctx, r.db).QueryRowContext(ctx, q, email))
}

// GetByID returns the user with the given ID, or nil when none exists.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
    const q = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
    return scanUser(exec(ctx, r.db).QueryRowContext(ctx, q, id))
}
