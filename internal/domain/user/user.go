// Package user defines the admin credential and session token models.
package user

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/holidayhomes/bookingapi/internal/domain"
)

// AdminUser is an administrator allowed to manage one tenant's pricing.
type AdminUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialized
	TenantSlug   string    `json:"propertyId"`
	DisplayName  string    `json:"displayName"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateRequest is the input for provisioning a new admin user.
type CreateRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Password    string `json:"password" validate:"required,min=8,max=72"` //nolint:gosec // request field, not a hardcoded secret
	TenantSlug  string `json:"propertyId" validate:"required"`
	DisplayName string `json:"displayName" validate:"max=128"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	return domain.Validate(r)
}

// LoginRequest is the input for admin authentication.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the LoginRequest has all required fields.
func (r *LoginRequest) Validate() error {
	return domain.Validate(r)
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	Token       string `json:"token"` //nolint:gosec // response field, not a hardcoded secret
	Tenant      string `json:"tenant"`
	DisplayName string `json:"displayName"`
}

// Claims is the session token payload. The tenant claim keeps the
// "propertyId" name existing admin front-ends read.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Tenant   string `json:"propertyId,omitempty"`
	jwt.RegisteredClaims
}
