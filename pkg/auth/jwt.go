package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrValidationOnly is returned by GenerateToken when the service only
// holds a public key.
var ErrValidationOnly = errors.New("auth: validation-only service cannot issue tokens")

// JWTConfig configures token signing and validation. An RSA private key
// issues and validates RS256 tokens, a public key alone only validates, and
// Secret selects HS256.
type JWTConfig struct {
	Secret        string
	PrivateKeyPEM []byte
	PublicKeyPEM  []byte
	Issuer        string
	Expiration    time.Duration
}

// LoadKeyFiles reads the PEM key files into cfg. Empty paths are skipped.
func (c *JWTConfig) LoadKeyFiles(privatePath, publicPath string) error {
	var err error
	if privatePath != "" {
		if c.PrivateKeyPEM, err = LoadKeyFromFile(privatePath); err != nil {
			return err
		}
	}
	if publicPath != "" {
		if c.PublicKeyPEM, err = LoadKeyFromFile(publicPath); err != nil {
			return err
		}
	}
	return nil
}

// JWTService issues and validates client tokens.
type JWTService struct {
	method     jwt.SigningMethod
	signKey    any
	verifyKey  any
	issuer     string
	expiration time.Duration
}

// NewJWTService picks the signing method from the key material in cfg.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	s := &JWTService{issuer: cfg.Issuer, expiration: cfg.Expiration}
	if s.expiration <= 0 {
		s.expiration = time.Hour
	}

	switch {
	case len(cfg.PrivateKeyPEM) > 0:
		key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
		}
		s.method, s.signKey, s.verifyKey = jwt.SigningMethodRS256, key, &key.PublicKey
	case len(cfg.PublicKeyPEM) > 0:
		key, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		s.method, s.verifyKey = jwt.SigningMethodRS256, key
	case cfg.Secret != "":
		secret := []byte(cfg.Secret)
		s.method, s.signKey, s.verifyKey = jwt.SigningMethodHS256, secret, secret
	default:
		return nil, errors.New("auth: a JWT secret or RSA key is required")
	}
	return s, nil
}

// Algorithm returns the JWS algorithm tokens are signed with.
func (s *JWTService) Algorithm() string { return s.method.Alg() }

// CanIssue reports whether the service holds a signing key.
func (s *JWTService) CanIssue() bool { return s.signKey != nil }

// GenerateToken issues a token for an API client with the given scopes.
func (s *JWTService) GenerateToken(clientID string, scopes []string) (string, error) {
	if s.signKey == nil {
		return "", ErrValidationOnly
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   clientID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		ClientID: clientID,
		Scopes:   scopes,
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the signature, algorithm, lifetime and issuer of a
// token and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{s.method.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.verifyKey, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims.ClientID == "" {
		claims.ClientID = claims.Subject
	}
	return claims, nil
}

// LoadKeyFromFile reads a PEM-encoded key from a file path.
func LoadKeyFromFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %q: %w", path, err)
	}
	return data, nil
}

// GenerateKeyPair returns a PEM-encoded 2048-bit RSA private key (PKCS#1)
// and its public key (PKIX).
func GenerateKeyPair() (privateKeyPEM, publicKeyPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	privateKeyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	publicKeyPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})
	return privateKeyPEM, publicKeyPEM, nil
}
