package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	bkotel "github.com/holidayhomes/bookingapi/internal/adapter/otel"
	"github.com/holidayhomes/bookingapi/internal/config"
	"github.com/holidayhomes/bookingapi/internal/domain"
	"github.com/holidayhomes/bookingapi/internal/domain/user"
	"github.com/holidayhomes/bookingapi/internal/port/database"
)

// MinProvisioningCost is the lowest bcrypt cost accepted for stored hashes.
const MinProvisioningCost = 10

// AuthService handles admin login, session tokens and tenant access checks.
type AuthService struct {
	store   database.Store
	cfg     config.Auth
	secret  []byte
	tenants *TenantRegistry
	metrics *bkotel.Metrics

	// dummyHash is compared against when the username is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
	now       func() time.Time
}

// NewAuthService creates an authentication service.
func NewAuthService(store database.Store, cfg config.Auth, tenants *TenantRegistry) *AuthService {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		// Only fails for an out-of-range cost, which is clamped above.
		panic(fmt.Sprintf("bcrypt dummy hash: %v", err))
	}
	return &AuthService{
		store:     store,
		cfg:       cfg,
		secret:    []byte(cfg.JWTSecret),
		tenants:   tenants,
		dummyHash: dummy,
		now:       time.Now,
	}
}

// SetMetrics attaches metric instruments. Nil disables metrics.
func (s *AuthService) SetMetrics(m *bkotel.Metrics) { s.metrics = m }

// Login checks the credentials and issues a session token for the user's tenant.
// Every failure is reported as domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req user.LoginRequest) (*user.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := s.store.GetAdminUserByUsername(ctx, req.Username)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		s.recordLogin(ctx, "", "failure")
		return nil, domain.ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("get admin user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		slog.InfoContext(ctx, "login rejected", "username", u.Username)
		s.recordLogin(ctx, u.TenantSlug, "failure")
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.signJWT(u)
	if err != nil {
		return nil, fmt.Errorf("sign jwt: %w", err)
	}

	displayName := u.DisplayName
	if t, err := s.tenants.Resolve(u.TenantSlug); err == nil && displayName == "" {
		displayName = t.DisplayName
	}
	s.recordLogin(ctx, u.TenantSlug, "success")

	return &user.LoginResponse{
		Token:       token,
		Tenant:      u.TenantSlug,
		DisplayName: displayName,
	}, nil
}

func (s *AuthService) recordLogin(ctx context.Context, tenant, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Add(ctx, s.metrics.Logins, tenant, attribute.String("outcome", outcome))
}

// VerifyToken validates an HS256 session token and returns its claims.
func (s *AuthService) VerifyToken(tokenStr string) (*user.Claims, error) {
	claims := &user.Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	return claims, nil
}

// AuthorizeTenantAccess returns the tenant a session may act on. An empty
// request means the session's own tenant; any other tenant is forbidden, as
// is a session without a tenant claim.
func (s *AuthService) AuthorizeTenantAccess(claims *user.Claims, requested string) (string, error) {
	if claims == nil || claims.Tenant == "" {
		return "", fmt.Errorf("%w: session has no property", domain.ErrForbidden)
	}
	if requested == "" {
		return claims.Tenant, nil
	}
	if requested != claims.Tenant {
		return "", fmt.Errorf("%w: property %q", domain.ErrForbidden, requested)
	}
	return requested, nil
}

// ValidateTenantAllowlist returns candidate when it is in the allowlist, the
// default tenant when candidate is empty, and a validation error otherwise.
func (s *AuthService) ValidateTenantAllowlist(candidate string, allowlist []string) (string, error) {
	if candidate == "" {
		return s.tenants.Default(), nil
	}
	if !slices.Contains(allowlist, candidate) {
		return "", fmt.Errorf("%w: Unknown property: %s", domain.ErrValidation, candidate)
	}
	return candidate, nil
}

// ResolvePublicTenant checks candidate against the configured tenants.
func (s *AuthService) ResolvePublicTenant(candidate string) (string, error) {
	return s.ValidateTenantAllowlist(candidate, s.tenants.Slugs())
}

// Register provisions an admin user. A tenant that is not configured is
// accepted with a warning so users can be created ahead of a deployment.
func (s *AuthService) Register(ctx context.Context, req *user.CreateRequest) (*user.AdminUser, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !s.tenants.IsValid(req.TenantSlug) {
		slog.WarnContext(ctx, "creating admin user for unconfigured property",
			"username", req.Username, "property", req.TenantSlug, "known", s.tenants.Slugs())
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &user.AdminUser{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		TenantSlug:   req.TenantSlug,
		DisplayName:  req.DisplayName,
	}
	if err := s.store.CreateAdminUser(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: user %q already exists", domain.ErrConflict, req.Username)
		}
		return nil, fmt.Errorf("create admin user: %w", err)
	}
	return u, nil
}

// ResetPassword replaces the password of an existing admin user.
func (s *AuthService) ResetPassword(ctx context.Context, username, password string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.store.UpdateAdminPassword(ctx, username, hash); err != nil {
		return fmt.Errorf("update password for %q: %w", username, err)
	}
	return nil
}

// ListUsers returns every admin user.
func (s *AuthService) ListUsers(ctx context.Context) ([]user.AdminUser, error) {
	users, err := s.store.ListAdminUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}
	return users, nil
}

// HashPassword hashes a password at the configured cost, never below
// MinProvisioningCost.
func (s *AuthService) HashPassword(password string) (string, error) {
	if len(password) > 72 {
		return "", fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), max(s.cfg.BcryptCost, MinProvisioningCost))
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) signJWT(u *user.AdminUser) (string, error) {
	now := s.now()
	claims := user.Claims{
		UserID:   u.ID,
		Username: u.Username,
		Tenant:   u.TenantSlug,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenExpiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
