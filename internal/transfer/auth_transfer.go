package transfer

import "github.com/golang-jwt/jwt/v5"

// CustomClaims identifies the operator of the control API.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
