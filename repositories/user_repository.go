package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/weekly-finals/models"
	"github.com/Dosada05/weekly-finals/supabase"
)

const usersTable = "users"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserEmailConflict = errors.New("user email conflict")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Count(ctx context.Context, where supabase.Filter) (int, error)
}

type supabaseUserRepository struct {
	db SQLExecutor
}

func NewUserRepository(db SQLExecutor) UserRepository {
	return &supabaseUserRepository{db: db}
}

func userFromRecord(rec supabase.Record) *models.User {
	return &models.User{
		ID:           int(rec.Int("id")),
		Nickname:     rec.String("nickname"),
		Email:        rec.String("email"),
		Role:         rec.String("role"),
		PasswordHash: rec.String("password_hash"),
		CreatedAt:    rec.Time("created_at"),
	}
}

func (r *supabaseUserRepository) Create(ctx context.Context, user *models.User) error {
	res, err := r.db.Insert(ctx, usersTable, supabase.Record{
		"nickname":      user.Nickname,
		"email":         strings.ToLower(user.Email),
		"password_hash": user.PasswordHash,
		"role":          user.Role,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserEmailConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	if rec := res.Record(); rec != nil {
		created := userFromRecord(rec)
		user.ID = created.ID
		user.CreatedAt = created.CreatedAt
	}
	return nil
}

func (r *supabaseUserRepository) getOne(ctx context.Context, where supabase.Filter) (*models.User, error) {
	rows, err := r.db.Select(ctx, supabase.Query{Table: usersTable, Where: where, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrUserNotFound
	}
	return userFromRecord(rows[0]), nil
}

func (r *supabaseUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	return r.getOne(ctx, supabase.Filter{supabase.Where("id", id)})
}

func (r *supabaseUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, supabase.Filter{supabase.Where("email", strings.ToLower(email))})
}

func (r *supabaseUserRepository) Count(ctx context.Context, where supabase.Filter) (int, error) {
	return countRows(ctx, r.db, usersTable, where)
}
