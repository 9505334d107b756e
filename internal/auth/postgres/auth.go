package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/auth"
)

// authUser mirrors the columns of the users table that authentication needs.
type authUser struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	DepartmentID *int64
	IsActive     bool
}

func (authUser) TableName() string { return "users" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetPasswordForEmail(email string) (string, string, error) {
	var u authUser
	if err := r.db.Where("email = ? AND is_active = ?", email, true).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", auth.ErrInvalidCredentials
		}
		return "", "", fmt.Errorf("query user by email: %w", err)
	}
	return u.PasswordHash, fmt.Sprintf("%d", u.ID), nil
}

func (r *Repository) GetAuthUser(userID int64) (*auth.User, error) {
	var u authUser
	if err := r.db.First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return toAuthUser(&u), nil
}

func (r *Repository) GetByEmail(email string) (*auth.User, error) {
	var u authUser
	if err := r.db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return toAuthUser(&u), nil
}

func (r *Repository) CreateUser(email, name, passwordHash string, role access.Role) (*auth.User, error) {
	u := authUser{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         string(role),
		IsActive:     true,
	}
	if err := r.db.Create(&u).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return toAuthUser(&u), nil
}

func toAuthUser(u *authUser) *auth.User {
	return &auth.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         access.Role(u.Role),
		DepartmentID: u.DepartmentID,
		IsActive:     u.IsActive,
	}
}
