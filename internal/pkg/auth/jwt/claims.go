package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims carried by AgroLink session tokens.
type Payload struct {
	// StandardClaims embeds the JWT standard fields (Exp, Iat, Iss) used for
	// token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the identity id of the authenticated user.
	ID string `json:"id"`

	// DisplayName is the user's display name at issue time. It is a
	// convenience for clients; the server re-reads the authoritative name
	// from the users table where it matters.
	DisplayName string `json:"display_name"`
}
