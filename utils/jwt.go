package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mailpilot/config"
)

// ServiceClaims identify a collaborator service (UI backend, stats
// aggregator, search indexer) calling the engine API. There are no user
// accounts here, only service-to-service tokens.
type ServiceClaims struct {
	Service string `json:"service"`
	jwt.RegisteredClaims
}

// GenerateServiceToken issues a token for a collaborator service (24 hours expiry)
func GenerateServiceToken(service string) (string, error) {
	claims := &ServiceClaims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.ServiceAuthSecret))
}

// ParseServiceToken validates a collaborator token and returns its claims
func ParseServiceToken(tokenString string) (*ServiceClaims, error) {
	claims := &ServiceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.ServiceAuthSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
