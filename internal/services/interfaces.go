package services

import (
	"context"

	"famshare/internal/models"
)

// IdentityVerifierInterface defines the contract for exchanging a session
// credential for a verified identity.
type IdentityVerifierInterface interface {
	Verify(ctx context.Context, refreshToken string) (*models.Identity, error)
}

// FamilyServiceInterface defines the contract for family directory
// operations used by handlers.
type FamilyServiceInterface interface {
	ResolveFamily(ctx context.Context, identity *models.Identity) (*models.Family, error)
	ResolveOrCreateFamily(ctx context.Context, identity *models.Identity) (*models.Family, error)
	MembersView(ctx context.Context, identity *models.Identity) (*models.FamilyMembersView, error)
}

// InvitationServiceInterface defines the contract for invitation
// lifecycle operations.
type InvitationServiceInterface interface {
	Invite(ctx context.Context, identity *models.Identity, inviteeEmail string) (*InviteResult, error)
	Accept(ctx context.Context, identity *models.Identity, token string) (*AcceptResult, error)
	Revoke(ctx context.Context, identity *models.Identity, invitationID string) error
	ListPending(ctx context.Context, identity *models.Identity) ([]models.FamilyInvitation, error)
}

// MembershipServiceInterface defines the contract for membership registry
// operations.
type MembershipServiceInterface interface {
	RemoveMember(ctx context.Context, identity *models.Identity, memberID string) error
}

// EmailSender dispatches a best-effort invitation email; the boolean
// reports delivery acceptance, not read receipt.
type EmailSender interface {
	SendInviteEmail(ctx context.Context, toEmail, inviterEmail, familyName, shareLink string) bool
}
