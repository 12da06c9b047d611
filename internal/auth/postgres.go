package auth

import (
	"context"
	"database/sql"
)

var _ UserStore = (*PGStore)(nil)

// PGStore implements UserStore using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `id, employee_code, name, email, password_hash, department, role, hod_email, is_active, created_at, updated_at`

func (s *PGStore) FindActiveUserByEmail(ctx context.Context, email string) (*UserProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where lower(email) = lower($1) and is_active`, email)
	return scanUser(row)
}

func (s *PGStore) FindUserByID(ctx context.Context, id string) (*UserProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*UserProfile, error) {
	var (
		u        UserProfile
		role     string
		hodEmail sql.NullString
	)
	err := row.Scan(&u.ID, &u.EmployeeCode, &u.Name, &u.Email, &u.PasswordHash,
		&u.Department, &role, &hodEmail, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = Role(role)
	if hodEmail.Valid {
		u.HODEmail = hodEmail.String
	}
	return &u, nil
}
