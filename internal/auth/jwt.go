package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config holds token issuance settings
type Config struct {
	KeyID    string
	Issuer   string
	Audience []string
	TTL      time.Duration
}

// Claims is the token payload workers verify
type Claims struct {
	WebID string   `json:"webid"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTIssuer signs RS256 bearer tokens for dispatched messages
type JWTIssuer struct {
	config     Config
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	now        func() time.Time
}

// NewJWTIssuer builds an issuer from a PEM-encoded RSA private key
func NewJWTIssuer(config Config, privateKeyPEM []byte) (*JWTIssuer, error) {
	key, err := parseRSAPrivate(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return newIssuer(config, key), nil
}

// NewEphemeralJWTIssuer creates an in-memory keypair for local use
func NewEphemeralJWTIssuer(config Config) (*JWTIssuer, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return newIssuer(config, key), nil
}

// LoadJWTIssuer reads the private key at keyPath, falling back to an
// ephemeral key when keyPath is empty
func LoadJWTIssuer(config Config, keyPath string, logger *slog.Logger) (*JWTIssuer, error) {
	if keyPath == "" {
		logger.Warn("No JWT private key configured, using an ephemeral key; workers will not be able to verify tokens across restarts")
		return NewEphemeralJWTIssuer(config)
	}

	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	return NewJWTIssuer(config, raw)
}

func newIssuer(config Config, key *rsa.PrivateKey) *JWTIssuer {
	if config.KeyID == "" {
		config.KeyID = "dispatch-key-1"
	}
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	return &JWTIssuer{
		config:     config,
		privateKey: key,
		publicKey:  &key.PublicKey,
		now:        time.Now,
	}
}

// GenerateToken signs a token for identity
func (i *JWTIssuer) GenerateToken(_ context.Context, identity *domain.Identity) (string, error) {
	if identity == nil {
		return "", errors.New("no identity to issue a token for")
	}

	now := i.now()
	roles := identity.Roles
	if roles == nil {
		roles = []string{}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		WebID: strconv.FormatInt(identity.ID, 10),
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.config.Issuer,
			Subject:   identity.Name,
			Audience:  i.config.Audience,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.config.TTL)),
		},
	})
	token.Header["kid"] = i.config.KeyID

	signed, err := token.SignedString(i.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse validates raw against the issuer's public key
func (i *JWTIssuer) Parse(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		return i.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// PublicKeyPEM returns the PKIX-encoded public key for worker configuration
func (i *JWTIssuer) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(i.publicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func parseRSAPrivate(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("invalid private PEM")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	keyAny, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := keyAny.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}
