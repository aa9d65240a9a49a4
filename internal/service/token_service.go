package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/skillbase/cohort-api/internal/models"
	"github.com/skillbase/cohort-api/pkg/config"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
)

// TokenService validates bearer tokens minted by the identity service.
// Issuance, refresh, and revocation live outside this API.
type TokenService struct {
	cfg config.JWTConfig
}

// NewTokenService constructs the token service.
func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{cfg: cfg}
}

// ValidateToken parses and verifies an access token, returning its claims.
func (s *TokenService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	for _, aud := range s.cfg.Audience {
		opts = append(opts, jwt.WithAudience(aud))
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthenticated.Code, appErrors.ErrUnauthenticated.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "invalid token claims")
	}

	return claims, nil
}
