package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the token_type claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Manager signs and verifies the JWT pairs used by the mobile and web
// clients. Access and refresh tokens share the signing key and differ only
// in TTL and token_type.
type Manager struct {
	method     jwt.SigningMethod
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration
}

// Options configure a Manager.
type Options struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
	SigningAlg string
}

// Claims are the JWT registered claims plus account metadata.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type,omitempty"`
	UserType  string `json:"user_type,omitempty"`
	Email     string `json:"email,omitempty"`
}

// IssueInput overrides per-token issuance parameters.
type IssueInput struct {
	Subject   string
	TokenType string
	UserType  string
	Email     string
	Audience  string
	TTL       time.Duration
}

// Pair bundles the signed access and refresh tokens returned at login.
type Pair struct {
	Access        string
	Refresh       string
	AccessClaims  *Claims
	RefreshClaims *Claims
}

var (
	// ErrInvalidToken indicates parsing or validation failed.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates the token is past its expiry plus leeway.
	ErrExpiredToken = errors.New("token expired")
	// ErrWrongTokenType indicates a token of another type was presented.
	ErrWrongTokenType = errors.New("wrong token type")
)

// NewManager assembles a JWT manager; HS256 unless SigningAlg says otherwise.
func NewManager(opts Options) (*Manager, error) {
	if len(opts.SigningKey) == 0 {
		return nil, fmt.Errorf("signing key is required")
	}
	method := jwt.GetSigningMethod(strings.ToUpper(strings.TrimSpace(opts.SigningAlg)))
	if method == nil {
		method = jwt.SigningMethodHS256
	}
	accessTTL := opts.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	refreshTTL := opts.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = accessTTL * 2
	}
	leeway := opts.Leeway
	if leeway < 0 {
		leeway = 0
	}
	return &Manager{
		method:     method,
		secret:     append([]byte(nil), opts.SigningKey...),
		issuer:     strings.TrimSpace(opts.Issuer),
		audience:   strings.TrimSpace(opts.Audience),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		leeway:     leeway,
	}, nil
}

// MustManager panics on invalid options; startup wiring only.
func MustManager(opts Options) *Manager {
	m, err := NewManager(opts)
	if err != nil {
		panic(err)
	}
	return m
}

// Issue signs a single token with the given parameters.
func (m *Manager) Issue(input IssueInput) (string, *Claims, error) {
	if m == nil {
		return "", nil, fmt.Errorf("token manager not initialized")
	}
	if strings.TrimSpace(input.Subject) == "" {
		return "", nil, fmt.Errorf("token subject is required")
	}
	ttl := input.TTL
	if ttl <= 0 {
		switch input.TokenType {
		case TypeRefresh:
			ttl = m.refreshTTL
		default:
			ttl = m.accessTTL
		}
	}
	audience := strings.TrimSpace(input.Audience)
	if audience == "" {
		audience = m.audience
	}

	now := time.Now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   input.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: input.TokenType,
		UserType:  input.UserType,
		Email:     input.Email,
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}

	token := jwt.NewWithClaims(m.method, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// IssuePair signs a fresh access/refresh pair for the subject.
func (m *Manager) IssuePair(subject, userType, email string) (*Pair, error) {
	access, accessClaims, err := m.Issue(IssueInput{
		Subject:   subject,
		TokenType: TypeAccess,
		UserType:  userType,
		Email:     email,
	})
	if err != nil {
		return nil, err
	}
	refresh, refreshClaims, err := m.Issue(IssueInput{
		Subject:   subject,
		TokenType: TypeRefresh,
		UserType:  userType,
		Email:     email,
	})
	if err != nil {
		return nil, err
	}
	return &Pair{
		Access:        access,
		Refresh:       refresh,
		AccessClaims:  accessClaims,
		RefreshClaims: refreshClaims,
	}, nil
}

// Parse validates a JWT string and returns its claims.
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	if m == nil {
		return nil, fmt.Errorf("token manager not initialized")
	}
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{m.method.Alg()}))
	parsed, err := parser.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if err := m.validateClaims(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseOfType validates the token and requires a specific token_type.
func (m *Manager) ParseOfType(tokenString, tokenType string) (*Claims, error) {
	claims, err := m.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// Refresh exchanges valid refresh claims for a new token pair.
func (m *Manager) Refresh(claims *Claims) (*Pair, error) {
	if claims == nil {
		return nil, fmt.Errorf("claims is required")
	}
	if claims.TokenType != TypeRefresh {
		return nil, ErrWrongTokenType
	}
	return m.IssuePair(claims.Subject, claims.UserType, claims.Email)
}

func (m *Manager) validateClaims(claims *Claims) error {
	now := time.Now().UTC()
	if claims.ExpiresAt == nil || now.After(claims.ExpiresAt.Add(m.leeway)) {
		return ErrExpiredToken
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(now.Add(m.leeway)) {
		return ErrInvalidToken
	}
	if claims.NotBefore != nil && now.Add(m.leeway).Before(claims.NotBefore.Time) {
		return ErrInvalidToken
	}
	if m.issuer != "" && claims.Issuer != m.issuer {
		return ErrInvalidToken
	}
	if m.audience != "" {
		allowed := false
		for _, aud := range claims.Audience {
			if aud == m.audience {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrInvalidToken
		}
	}
	return nil
}
