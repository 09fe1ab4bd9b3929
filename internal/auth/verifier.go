package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"

	"github.com/chaintrace/provenance-api/internal/adapter"
	"github.com/chaintrace/provenance-api/internal/domain"
)

var (
	// ErrAuthDisabled is returned when no sealing secret is configured.
	// The verifier fails closed rather than accepting anything.
	ErrAuthDisabled = errors.New("authentication is disabled: no sealing secret configured")

	// ErrInvalidSignature is returned when a wallet signature does not verify
	// or an input fails to decode to valid key/signature bytes
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrCredentialMissing is returned when no credential is supplied
	ErrCredentialMissing = errors.New("credential is missing")

	// ErrCredentialMalformed is returned when a credential cannot be parsed
	ErrCredentialMalformed = errors.New("credential is malformed")

	// ErrCredentialInvalid is returned when a credential fails the seal check,
	// is expired, or was issued by a different deployment
	ErrCredentialInvalid = errors.New("credential is invalid or expired")
)

const (
	// DefaultTokenTTL is the credential lifetime when none is configured
	DefaultTokenTTL = time.Hour

	// DefaultIssuer tags credentials so they cannot be replayed across deployments
	DefaultIssuer = "provenance-api"
)

// Config holds the verifier configuration, set once at startup
type Config struct {
	// SealingSecret is the server-held HMAC secret that seals credentials.
	// When empty, Authenticate/Refresh/Validate all fail with ErrAuthDisabled.
	SealingSecret string
	Issuer        string
	TokenTTL      time.Duration
}

// Credential is a sealed, time-bounded proof of a previously verified wallet
type Credential struct {
	Token     string
	Wallet    domain.WalletAddress
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Verifier validates wallet signatures and mints session credentials.
// It is stateless per call; validity of a credential is fully determined
// by its seal and expiry, there is no session table.
type Verifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  adapter.Clock
}

// NewVerifier creates a verifier from configuration. Tests can construct
// independent instances with different secrets and issuers.
func NewVerifier(cfg Config, clock adapter.Clock) *Verifier {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	var secret []byte
	if cfg.SealingSecret != "" {
		secret = []byte(cfg.SealingSecret)
	}

	return &Verifier{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		clock:  clock,
	}
}

// Enabled reports whether a sealing secret is configured
func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0
}

// TTL returns the configured credential lifetime
func (v *Verifier) TTL() time.Duration {
	return v.ttl
}

// Authenticate verifies that wallet produced signature over exactly the given
// message bytes (ed25519, detached) and issues a credential bound to it.
// Signature is base58-encoded, as produced by wallet signers.
func (v *Verifier) Authenticate(wallet domain.WalletAddress, message []byte, signature string) (*Credential, error) {
	if !v.Enabled() {
		return nil, ErrAuthDisabled
	}

	publicKey, err := wallet.Bytes()
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		return nil, ErrInvalidSignature
	}

	signatureBytes, err := base58.Decode(signature)
	if err != nil || len(signatureBytes) != ed25519.SignatureSize {
		return nil, ErrInvalidSignature
	}

	if !ed25519.Verify(ed25519.PublicKey(publicKey), message, signatureBytes) {
		return nil, ErrInvalidSignature
	}

	return v.issue(wallet)
}

// Refresh issues a fresh credential for the wallet bound to a still-valid
// credential. An expired or tampered credential is never refreshed.
func (v *Verifier) Refresh(token string) (*Credential, error) {
	cred, err := v.Validate(token)
	if err != nil {
		return nil, err
	}

	return v.issue(cred.Wallet)
}

// Validate checks the seal, expiry and issuer of a credential and returns
// the bound wallet. This is the only way other components learn who is asking.
func (v *Verifier) Validate(token string) (*Credential, error) {
	if !v.Enabled() {
		return nil, ErrAuthDisabled
	}

	if token == "" {
		return nil, ErrCredentialMissing
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrCredentialMalformed
		}
		return nil, ErrCredentialInvalid
	}

	if !parsed.Valid || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrCredentialInvalid
	}

	wallet := domain.WalletAddress(claims.Subject)
	if !wallet.Valid() {
		return nil, ErrCredentialInvalid
	}

	return &Credential{
		Token:     token,
		Wallet:    wallet,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// issue seals a new credential for wallet with a fresh expiry
func (v *Verifier) issue(wallet domain.WalletAddress) (*Credential, error) {
	now := v.clock.Now()
	expiresAt := now.Add(v.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   wallet.String(),
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to seal credential: %w", err)
	}

	return &Credential{
		Token:     token,
		Wallet:    wallet,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}
