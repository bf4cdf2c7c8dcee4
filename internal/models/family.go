package models

import "time"

// Member roles. Admin is synthetic: it represents the family owner in
// member views and is never written to the store.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// Family is the sharing boundary: one owner, any number of viewer members.
type Family struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FamilyMember is a user who accepted an invitation into a family.
type FamilyMember struct {
	ID       string    `json:"id"`
	FamilyID string    `json:"familyId"`
	UserID   string    `json:"userId"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MemberView is a single entry in the owner-plus-members view. The owner
// appears as a synthetic admin entry with the user id as the member id.
type MemberView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// FamilyMembersView is the owner-plus-members view of a family. FamilyID
// is empty when the identity owns no family yet; that is not an error.
type FamilyMembersView struct {
	FamilyID string       `json:"familyId"`
	IsOwner  bool         `json:"isOwner"`
	Members  []MemberView `json:"members"`
}
