// Package devseed populates a development database with known accounts
// so local sign-in works without going through Google. It is only
// invoked from the dev-mode startup path and every insert is
// idempotent: existing accounts are left untouched.
package devseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/savitara/savitara-api/internal/data"
	"github.com/savitara/savitara-api/internal/data/pgxutil"
	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	"github.com/savitara/savitara-api/internal/domain/model"
	"github.com/savitara/savitara-api/internal/ports"
)

// DefaultPassword is shared by every seeded account. Dev only.
const DefaultPassword = "savitara-dev"

type seedUser struct {
	email     string
	name      string
	role      domainauth.Role
	onboarded bool
}

var seedUsers = []seedUser{
	{email: "grihasta@savitara.local", name: "Dev Grihasta", role: domainauth.RoleGrihasta, onboarded: true},
	{email: "acharya@savitara.local", name: "Dev Acharya", role: domainauth.RoleAcharya, onboarded: true},
	{email: "newcomer@savitara.local", name: "Dev Newcomer", role: domainauth.RoleGrihasta, onboarded: false},
}

// Run inserts the development accounts that do not yet exist. It is
// safe to call on every startup.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	users := data.NewUserRepo(db)
	created := 0
	for _, seed := range seedUsers {
		user, seedErr := ensureUser(ctx, users, seed, string(hash))
		if seedErr != nil {
			return fmt.Errorf("seed %s: %w", seed.email, seedErr)
		}
		if user == nil {
			continue
		}
		created++

		if seed.onboarded {
			if profErr := ensureProfile(ctx, db, user.ID, seed.role); profErr != nil {
				return fmt.Errorf("seed profile for %s: %w", seed.email, profErr)
			}
		}
	}

	logger.Info("dev seed complete",
		"created", created,
		"skipped", len(seedUsers)-created,
		"password", DefaultPassword)
	return nil
}

// ensureUser creates the account unless it already exists. Returns nil
// when the account was already present.
func ensureUser(ctx context.Context, users *data.UserRepo, seed seedUser, hash string) (*model.User, error) {
	_, err := users.GetByEmail(ctx, seed.email)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, ports.ErrUserNotFound) {
		return nil, err
	}

	return users.Create(ctx, &model.CreateUserRequest{
		Email:        seed.email,
		Name:         seed.name,
		PasswordHash: hash,
		Role:         seed.role,
		Status:       model.UserStatusActive,
		Credits:      model.WelcomeCredits,
	})
}

func ensureProfile(ctx context.Context, db *sql.DB, userID string, role domainauth.Role) error {
	var stmt string
	switch role {
	case domainauth.RoleGrihasta:
		stmt = `INSERT INTO grihasta_profiles (user_id, city) VALUES ($1, 'Varanasi') ON CONFLICT (user_id) DO NOTHING`
	case domainauth.RoleAcharya:
		stmt = `INSERT INTO acharya_profiles (user_id, city, experience_years) VALUES ($1, 'Varanasi', 5) ON CONFLICT (user_id) DO NOTHING`
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	return pgxutil.WithPgxConn(ctx, db, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, stmt, userID)
		return execErr
	})
}
