package handlers

import (
	"context"

	"famshare/internal/models"
	"famshare/internal/services"
)

type mockVerifier struct {
	VerifyFunc func(ctx context.Context, refreshToken string) (*models.Identity, error)
}

func (m *mockVerifier) Verify(ctx context.Context, refreshToken string) (*models.Identity, error) {
	return m.VerifyFunc(ctx, refreshToken)
}

// verifyAs returns a verifier that accepts any token as the given identity.
func verifyAs(id, email string) *mockVerifier {
	return &mockVerifier{
		VerifyFunc: func(ctx context.Context, refreshToken string) (*models.Identity, error) {
			return &models.Identity{ID: id, Email: email}, nil
		},
	}
}

type mockFamilyService struct {
	ResolveFamilyFunc         func(ctx context.Context, identity *models.Identity) (*models.Family, error)
	ResolveOrCreateFamilyFunc func(ctx context.Context, identity *models.Identity) (*models.Family, error)
	MembersViewFunc           func(ctx context.Context, identity *models.Identity) (*models.FamilyMembersView, error)
}

func (m *mockFamilyService) ResolveFamily(ctx context.Context, identity *models.Identity) (*models.Family, error) {
	return m.ResolveFamilyFunc(ctx, identity)
}

func (m *mockFamilyService) ResolveOrCreateFamily(ctx context.Context, identity *models.Identity) (*models.Family, error) {
	return m.ResolveOrCreateFamilyFunc(ctx, identity)
}

func (m *mockFamilyService) MembersView(ctx context.Context, identity *models.Identity) (*models.FamilyMembersView, error) {
	return m.MembersViewFunc(ctx, identity)
}

type mockInvitationService struct {
	InviteFunc      func(ctx context.Context, identity *models.Identity, inviteeEmail string) (*services.InviteResult, error)
	AcceptFunc      func(ctx context.Context, identity *models.Identity, token string) (*services.AcceptResult, error)
	RevokeFunc      func(ctx context.Context, identity *models.Identity, invitationID string) error
	ListPendingFunc func(ctx context.Context, identity *models.Identity) ([]models.FamilyInvitation, error)
}

func (m *mockInvitationService) Invite(ctx context.Context, identity *models.Identity, inviteeEmail string) (*services.InviteResult, error) {
	return m.InviteFunc(ctx, identity, inviteeEmail)
}

func (m *mockInvitationService) Accept(ctx context.Context, identity *models.Identity, token string) (*services.AcceptResult, error) {
	return m.AcceptFunc(ctx, identity, token)
}

func (m *mockInvitationService) Revoke(ctx context.Context, identity *models.Identity, invitationID string) error {
	return m.RevokeFunc(ctx, identity, invitationID)
}

func (m *mockInvitationService) ListPending(ctx context.Context, identity *models.Identity) ([]models.FamilyInvitation, error) {
	return m.ListPendingFunc(ctx, identity)
}

type mockMembershipService struct {
	RemoveMemberFunc func(ctx context.Context, identity *models.Identity, memberID string) error
}

func (m *mockMembershipService) RemoveMember(ctx context.Context, identity *models.Identity, memberID string) error {
	return m.RemoveMemberFunc(ctx, identity, memberID)
}
