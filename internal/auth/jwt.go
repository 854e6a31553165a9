package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures, and scope mismatches.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned for structurally valid but expired tokens.
	ErrTokenExpired = errors.New("token expired")
)

// Scope is the token namespace. Tenant and super-admin tokens are signed with
// separate secrets, so a token from one namespace fails signature validation
// in the other even before the scope claim is checked.
type Scope string

const (
	ScopeTenant     Scope = "tenant"
	ScopeSuperAdmin Scope = "super_admin"
)

// Claims holds JWT claims for both namespaces. TenantID is zero for
// super-admin tokens.
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	TenantID uuid.UUID `json:"tenant_id,omitempty"`
	Email    string    `json:"email"`
	Scope    Scope     `json:"scope"`
	jwt.RegisteredClaims
}

// JWTService issues and validates tokens for both namespaces.
type JWTService struct {
	tenantSecret     []byte
	superAdminSecret []byte
	expireHours      int
}

// NewJWTService creates a JWT service with per-namespace secrets.
func NewJWTService(tenantSecret, superAdminSecret string, expireHours int) *JWTService {
	return &JWTService{
		tenantSecret:     []byte(tenantSecret),
		superAdminSecret: []byte(superAdminSecret),
		expireHours:      expireHours,
	}
}

// GenerateTenant creates a tenant-scoped token bound to {tenantID, userID}.
func (s *JWTService) GenerateTenant(userID, tenantID uuid.UUID, email string) (string, error) {
	return s.generate(Claims{
		UserID:   userID,
		TenantID: tenantID,
		Email:    email,
		Scope:    ScopeTenant,
	}, s.tenantSecret)
}

// GenerateSuperAdmin creates a super-admin-scoped token.
func (s *JWTService) GenerateSuperAdmin(adminID uuid.UUID, email string) (string, error) {
	return s.generate(Claims{
		UserID: adminID,
		Email:  email,
		Scope:  ScopeSuperAdmin,
	}, s.superAdminSecret)
}

func (s *JWTService) generate(claims Claims, secret []byte) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(s.expireHours) * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ID:        uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Validate parses a token and requires the given scope. Returns
// ErrTokenExpired for expired tokens, ErrTokenInvalid for everything else.
func (s *JWTService) Validate(tokenString string, scope Scope) (*Claims, error) {
	secret := s.tenantSecret
	if scope == ScopeSuperAdmin {
		secret = s.superAdminSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Scope != scope {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
