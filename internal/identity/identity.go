package identity

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kmoroz/craft_shop/internal/hash"
	"github.com/kmoroz/craft_shop/internal/models"
)

// Identity is the current actor as the rest of the system sees it. Only the
// order workflow reads Email and ID; the cart and catalog never look at it.
type Identity struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (i Identity) IsAdmin() bool { return i.Role == "admin" }

var ErrInvalidCredentials = errors.New("invalid credentials")

// Repo looks identities up in the subscribers table.
type Repo struct {
	DB *gorm.DB
}

// LoginCustomer matches a subscriber by email and phone, the legacy
// subscriber-list flow: customers have no password.
func (r *Repo) LoginCustomer(ctx context.Context, email, phone string) (*Identity, error) {
	var sub models.Subscriber
	err := r.DB.WithContext(ctx).
		Where("email = ? AND phone = ?", email, phone).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("subscriber lookup: %w", err)
	}
	return identityOf(&sub), nil
}

// LoginAdmin matches by email and bcrypt password and requires the admin role.
func (r *Repo) LoginAdmin(ctx context.Context, email, password string) (*Identity, error) {
	var sub models.Subscriber
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("subscriber lookup: %w", err)
	}
	if sub.Role != "admin" || !hash.CheckPassword(sub.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return identityOf(&sub), nil
}

func (r *Repo) Register(ctx context.Context, fullName, email, phone, password string) (*Identity, error) {
	pwHash := ""
	if password != "" {
		h, err := hash.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		pwHash = h
	}

	sub := models.Subscriber{
		FullName:     fullName,
		Email:        email,
		Phone:        phone,
		PasswordHash: pwHash,
		Role:         "user",
	}
	if err := r.DB.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("create subscriber: %w", err)
	}
	return identityOf(&sub), nil
}

// EmailByUserID is the last resort of the checkout email chain: session
// email first, form email second, this lookup third.
func (r *Repo) EmailByUserID(ctx context.Context, userID uint) (string, error) {
	var sub models.Subscriber
	err := r.DB.WithContext(ctx).First(&sub, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("subscriber lookup: %w", err)
	}
	return sub.Email, nil
}

func (r *Repo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.Subscriber{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func identityOf(sub *models.Subscriber) *Identity {
	return &Identity{
		ID:    sub.ID,
		Name:  sub.FullName,
		Email: sub.Email,
		Role:  sub.Role,
	}
}
