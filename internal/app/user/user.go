/*
Package user contains the core data structure representing a user identity.

It defines the basic representation of a user within the messaging system (the User
struct), used for passing user information both internally and to clients.
*/
package user

import "github.com/google/uuid"

// User represents the basic identity information of a registered participant.
// Fields use JSON tags for serialization in API responses and WebSocket events.
type User struct {

	// ID is the unique identifier of the user.
	ID uuid.UUID `json:"id"`

	// Username is the unique login name chosen at registration.
	Username string `json:"username"`

	// IsStaff marks operators with access to administrative endpoints.
	IsStaff bool `json:"is_staff"`

	// Avatar is the storage key of the user's avatar, empty if none was uploaded.
	Avatar string `json:"avatar,omitempty"`
}
