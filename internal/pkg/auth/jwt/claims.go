package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for the server.
// It includes standard claims required by the JWT specification and the custom claims
// necessary for identifying users.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the identifier of the authenticated user.
	ID string `json:"id"`

	// Username is the login name of the authenticated user, carried for logging
	// and display without an extra lookup.
	Username string `json:"username"`
}
