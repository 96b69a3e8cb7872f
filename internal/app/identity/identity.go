/*
Package identity contains the representation of an authenticated user and the
read-only store backing it.

Identities are created by the platform's registration service; this server
only ever reads them.
*/
package identity

// Identity represents an authenticated user of the platform.
type Identity struct {
	// ID is the opaque unique identifier of the user.
	ID string `json:"id"`

	// DisplayName is the user's display name.
	DisplayName string `json:"displayName"`

	// AvatarURL is the URL of the user's avatar, if any.
	AvatarURL string `json:"avatarUrl,omitempty"`
}
