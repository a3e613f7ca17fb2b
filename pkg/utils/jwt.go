package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maheshrc27/contentloop/internal/transfer"
)

const tokenIssuer = "contentloop"

// GenerateToken issues an HS256 token scoped to one brand.
func GenerateToken(secretKey string, brandID int64, tokenDuration time.Duration) (string, error) {
	now := time.Now()
	claims := transfer.BrandClaims{
		BrandID: strconv.FormatInt(brandID, 10),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

func ValidateToken(secretKey, tokenString string) (*transfer.BrandClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &transfer.BrandClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return []byte(secretKey), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*transfer.BrandClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if _, err := strconv.ParseInt(claims.BrandID, 10, 64); err != nil {
		return nil, errors.New("invalid brand in token")
	}
	return claims, nil
}
