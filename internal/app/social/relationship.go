/*
Package social contains the friend-relationship state machine and group
membership logic that gates the realtime messaging core.

A relationship is one row per unordered pair of users. It is created pending
by the requester and moves to accepted or declined only by the addressee.
Blocked is terminal and reachable from any state.
*/
package social

import "time"

// Status is the state of a friend relationship.
type Status string

const (
	// StatusNone means no relationship row exists for the pair.
	StatusNone Status = "none"

	// StatusPending means a request was created and not yet answered.
	StatusPending Status = "pending"

	// StatusAccepted means the addressee accepted the request.
	StatusAccepted Status = "accepted"

	// StatusDeclined means the addressee declined the request.
	StatusDeclined Status = "declined"

	// StatusBlocked is terminal and reachable from any state.
	StatusBlocked Status = "blocked"
)

// Relationship is the friend edge between two users.
type Relationship struct {
	ID          string     `json:"id"`
	RequesterID string     `json:"requesterId"`
	AddresseeID string     `json:"addresseeId"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

// Involves reports whether userID is one of the two parties.
func (r Relationship) Involves(userID string) bool {
	return r.RequesterID == userID || r.AddresseeID == userID
}

// Other returns the party opposite to userID, or "" when userID is not a party.
func (r Relationship) Other(userID string) string {
	switch userID {
	case r.RequesterID:
		return r.AddresseeID
	case r.AddresseeID:
		return r.RequesterID
	}
	return ""
}

// CanRespond reports whether actorID may accept or decline this relationship:
// the row must be pending and the actor must be the addressee.
func (r Relationship) CanRespond(actorID string) bool {
	return r.Status == StatusPending && r.AddresseeID == actorID
}

// GroupRole is the role of a member inside a group.
type GroupRole string

const (
	RoleAdmin     GroupRole = "admin"
	RoleModerator GroupRole = "moderator"
	RoleMember    GroupRole = "member"
)

// Group is a named channel with a creator and a membership set.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatorID   string    `json:"creatorId"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Membership ties one user to one group with a role.
type Membership struct {
	GroupID  string    `json:"groupId"`
	UserID   string    `json:"userId"`
	Role     GroupRole `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}
