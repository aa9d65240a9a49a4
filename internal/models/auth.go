package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the payload of access tokens issued by the identity
// service. This API validates them; it never issues tokens itself.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
