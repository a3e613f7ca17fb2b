package transfer

import "github.com/golang-jwt/jwt/v5"

type BrandClaims struct {
	BrandID string `json:"brand_id"`
	jwt.RegisteredClaims
}
