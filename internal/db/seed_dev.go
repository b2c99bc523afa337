package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/perm"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
)

type SeedDevOptions struct {
	RootUsername string
	RootEmail    string
	RootPassword string
}

// SeedDev makes sure a root account exists so a fresh dev database can be
// administered. An existing account with the same email is left alone.
// Without an email and password there is nothing to seed.
func SeedDev(ctx context.Context, db *sqlx.DB, opt SeedDevOptions) error {
	if strings.TrimSpace(opt.RootEmail) == "" || opt.RootPassword == "" {
		return nil
	}
	if opt.RootUsername == "" {
		opt.RootUsername = "root"
	}

	email, err := user.ParseEmail(strings.TrimSpace(opt.RootEmail))
	if err != nil {
		return fmt.Errorf("seed root: %w", err)
	}
	hash, err := user.HashPassword(opt.RootPassword)
	if err != nil {
		return fmt.Errorf("seed root: %w", err)
	}

	if _, err := db.ExecContext(ctx, db.Rebind(`
INSERT INTO "user"(username, email, password, permissions)
VALUES (?, ?, ?, ?)
ON CONFLICT(email) DO NOTHING;
`), opt.RootUsername, email, hash, perm.Root); err != nil {
		return fmt.Errorf("seed root user: %w", err)
	}

	return nil
}
