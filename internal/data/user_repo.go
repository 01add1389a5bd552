package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/savitara/savitara-api/internal/data/pgxutil"
	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	"github.com/savitara/savitara-api/internal/domain/model"
	apperrors "github.com/savitara/savitara-api/internal/errors"
	"github.com/savitara/savitara-api/internal/ports"
)

// ErrUserNotFound aliases the port sentinel for missing user rows.
var ErrUserNotFound = ports.ErrUserNotFound

const userColumns = `id, email, name, password_hash, google_id, role, status, credits, profile_picture, created_at, updated_at, last_login`

// UserRepo provides database operations for Savitara accounts.
type UserRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewUserRepo creates a new UserRepo with real time provider.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewUserRepoWithTimeProvider creates a new UserRepo with a custom time provider (useful for tests).
func NewUserRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *UserRepo {
	return &UserRepo{DB: db, timeProvider: tp}
}

// Create inserts a new account.
func (r *UserRepo) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if req == nil {
		return nil, errors.New("create user request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	status := req.Status
	if status == "" {
		status = model.UserStatusPending
	}

	now := r.timeProvider.Now().UTC()
	var out model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			INSERT INTO users (
				email, name, password_hash, google_id, role, status, credits, profile_picture, created_at, updated_at
			) VALUES (
				$1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $9
			) RETURNING `+userColumns,
			strings.ToLower(strings.TrimSpace(req.Email)),
			strings.TrimSpace(req.Name),
			req.PasswordHash,
			req.GoogleID,
			string(req.Role),
			string(status),
			req.Credits,
			req.ProfilePicture,
			now,
		)
		return scanUser(row, &out)
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetByID fetches an account by its ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByEmail fetches an account by email (case-insensitive).
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, "email = lower($1)", strings.TrimSpace(email))
}

func (r *UserRepo) getBy(ctx context.Context, where string, arg any) (*model.User, error) {
	var out model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
		return scanUser(row, &out)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// RecordGoogleLogin refreshes provider-derived fields and last_login
// after a Google sign-in of an existing user.
func (r *UserRepo) RecordGoogleLogin(ctx context.Context, id, googleID, picture string) error {
	now := r.timeProvider.Now().UTC()
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `
			UPDATE users
			SET google_id = COALESCE(NULLIF($2, ''), google_id),
			    profile_picture = COALESCE(NULLIF($3, ''), profile_picture),
			    last_login = $4,
			    updated_at = $4
			WHERE id = $1`,
			id, googleID, picture, now,
		)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return apperrors.MapDBError(err)
	}
	return nil
}

// TouchLastLogin updates last_login for a password sign-in.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id string) error {
	now := r.timeProvider.Now().UTC()
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, now)
		return execErr
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// HasProfile reports whether the role-specific onboarding profile
// exists for the user. Profile existence is what "onboarded" means.
func (r *UserRepo) HasProfile(ctx context.Context, userID string, role domainauth.Role) (bool, error) {
	table, err := profileTable(role)
	if err != nil {
		return false, err
	}

	var exists bool
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		// table name comes from profileTable, never from input
		row := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE user_id = $1)`, userID)
		return row.Scan(&exists)
	})
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return exists, nil
}

func profileTable(role domainauth.Role) (string, error) {
	switch role {
	case domainauth.RoleGrihasta:
		return "grihasta_profiles", nil
	case domainauth.RoleAcharya:
		return "acharya_profiles", nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}

func scanUser(row pgx.Row, out *model.User) error {
	var (
		passwordHash sql.NullString
		googleID     sql.NullString
		lastLogin    sql.NullTime
		role         string
		status       string
	)
	if err := row.Scan(
		&out.ID, &out.Email, &out.Name, &passwordHash, &googleID,
		&role, &status, &out.Credits, &out.ProfilePicture,
		&out.CreatedAt, &out.UpdatedAt, &lastLogin,
	); err != nil {
		return err
	}
	out.PasswordHash = passwordHash.String
	out.GoogleID = googleID.String
	out.Role = domainauth.Role(role)
	out.Status = model.UserStatus(status)
	if lastLogin.Valid {
		t := lastLogin.Time
		out.LastLogin = &t
	}
	return nil
}
