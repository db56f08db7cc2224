package jwthandling

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Information a token encodes
type UserClaims struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	SponsorID string `json:"sponsor_id,omitempty"`
	SiteID    string `json:"site_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func GenerateNewUserToken(
	expiresIn time.Duration,
	id string,
	role string,
	sponsorID string,
	siteID string,
	email string,
	name string,
	secretKey string,
) (tokenString string, err error) {
	now := time.Now()
	claims := UserClaims{
		ID:        id,
		Role:      role,
		SponsorID: sponsorID,
		SiteID:    siteID,
		Email:     email,
		Name:      name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err = token.SignedString([]byte(secretKey))
	return
}

func ValidateUserToken(tokenString string, secretKey string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}
	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	return claims, nil
}
