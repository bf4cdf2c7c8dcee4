package models

import "time"

// InvitationStatus represents the lifecycle state of a family invitation.
type InvitationStatus string

const (
	// InvitationStatusPending indicates the invitation has not been used.
	InvitationStatusPending InvitationStatus = "pending"
	// InvitationStatusAccepted indicates the invitation was accepted.
	InvitationStatusAccepted InvitationStatus = "accepted"
	// InvitationStatusExpired indicates the invitation outlived its window.
	// Expiry is detected lazily on access, never by a background sweep.
	InvitationStatusExpired InvitationStatus = "expired"
	// InvitationStatusRevoked indicates the owner withdrew the invitation.
	InvitationStatusRevoked InvitationStatus = "revoked"
)

// InviteExpiry is how long a pending invitation stays acceptable.
const InviteExpiry = 7 * 24 * time.Hour

// FamilyInvitation is a time-limited, single-use invitation into a family.
// The token is the sole bearer credential for acceptance; handlers expose
// invitations through view types that omit it.
type FamilyInvitation struct {
	ID         string           `json:"id"`
	Token      string           `json:"token"`
	Email      string           `json:"email"`
	Role       string           `json:"role"`
	Status     InvitationStatus `json:"status"`
	ExpiresAt  time.Time        `json:"expiresAt"`
	CreatedAt  time.Time        `json:"createdAt"`
	AcceptedAt *time.Time       `json:"acceptedAt,omitempty"`
	InviterID  string           `json:"inviterId"`
	FamilyID   string           `json:"familyId"`
}

// IsExpired reports whether the invitation window has passed, regardless
// of whether the expired status has been persisted yet.
func (i *FamilyInvitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// IsAcceptable reports whether the invitation can still be accepted.
func (i *FamilyInvitation) IsAcceptable(now time.Time) bool {
	return i.Status == InvitationStatusPending && !i.IsExpired(now)
}
