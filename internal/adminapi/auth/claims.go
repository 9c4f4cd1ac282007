// Package auth provides JWT token minting and validation for the admin API.
package auth

import "github.com/golang-jwt/jwt/v5"

// Claims identifies the holder of an admin API bearer token.
//
// There is no user store behind this token: it authorizes the operator who
// was handed the broker's admin JWT secret, not an individual account.
// RegisteredClaims.Subject carries the operator or automation name the
// token was minted for, for audit logging only.
type Claims struct {
	jwt.RegisteredClaims
}
