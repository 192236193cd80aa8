package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Audiencia é o único público aceito nos tokens da secretaria.
const Audiencia = "igreja"

var ErrTokenInvalido = errors.New("token inválido")

// Claims carrega o papel do usuário além dos campos registrados.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTManager emite e valida tokens de acesso HS256.
type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), accessTTL: accessTTL, now: time.Now}
}

// GenerateAccessToken assina um token para o uid com o papel informado e
// devolve também o instante de expiração.
func (m *JWTManager) GenerateAccessToken(uid, papel string) (string, time.Time, error) {
	now := m.now().UTC()
	exp := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Roles: []string{papel},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Audience:  jwt.ClaimStrings{Audiencia},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseAndValidate confere assinatura, expiração e audiência.
func (m *JWTManager) ParseAndValidate(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audiencia),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalido
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalido
	}
	return claims, nil
}
