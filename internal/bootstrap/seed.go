// Package bootstrap prepares a fresh database with demo accounts.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
)

// Hasher hashes demo passwords.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

type demoUser struct {
	fullName string
	email    string
	password string
	role     models.UserRole
}

var demoUsers = []demoUser{
	{fullName: "Platform Admin", email: "admin@lms.local", password: "Admin123!", role: models.RoleAdmin},
	{fullName: "Demo Instructor", email: "instructor@lms.local", password: "Instructor123!", role: models.RoleInstructor},
	{fullName: "Demo Student", email: "student@lms.local", password: "Student123!", role: models.RoleStudent},
}

var demoCategories = []models.CourseCategory{
	{Name: "Technology", Description: strPtr("Technical courses for students.")},
	{Name: "Soft Skills", Description: strPtr("Personal and professional development.")},
}

// Seed inserts the demo users and categories when the users table is empty. It reports whether
// anything was inserted.
func Seed(ctx context.Context, db *sqlx.DB, hasher Hasher, logger *zap.Logger) (seeded bool, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		logger.Info("users present, skipping demo seed", zap.Int("users", count))
		return false, nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, u := range demoUsers {
		hash, hashErr := hasher.Hash(u.password)
		if hashErr != nil {
			err = fmt.Errorf("hash demo password: %w", hashErr)
			return false, err
		}
		const insertUser = `INSERT INTO users (full_name, email, password_hash, role, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, TRUE, $5, $5)`
		if _, err = tx.ExecContext(ctx, insertUser, u.fullName, u.email, hash, u.role, now); err != nil {
			return false, fmt.Errorf("seed user %s: %w", u.email, err)
		}
	}

	for _, c := range demoCategories {
		const insertCategory = `INSERT INTO course_categories (name, description, is_active, created_at) VALUES ($1, $2, TRUE, $3)`
		if _, err = tx.ExecContext(ctx, insertCategory, c.Name, c.Description, now); err != nil {
			return false, fmt.Errorf("seed category %s: %w", c.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}

	logger.Info("demo data seeded", zap.Int("users", len(demoUsers)), zap.Int("categories", len(demoCategories)))
	return true, nil
}

func strPtr(s string) *string { return &s }
