package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"famshare/internal/logging"
	"famshare/internal/models"
	"famshare/internal/store"
)

// InvitationService is the invitation state machine: it creates,
// deduplicates, expires, revokes, and accepts invitations.
//
//	        create            accept (valid)
//	(none) ------> pending ------------------> accepted
//	                 |  \
//	                 |   \--- owner revoke ---> revoked
//	                 |
//	                 \------ expiry, accessed -> expired
type InvitationService struct {
	store         store.Store
	families      *FamilyService
	locker        Locker
	email         EmailSender
	clientBaseURL string
}

func NewInvitationService(st store.Store, families *FamilyService, locker Locker, email EmailSender, clientBaseURL string) *InvitationService {
	return &InvitationService{
		store:         st,
		families:      families,
		locker:        locker,
		email:         email,
		clientBaseURL: strings.TrimRight(clientBaseURL, "/"),
	}
}

// InviteResult reports both independent outcomes of an invite: the
// committed invitation and whether the notification email was accepted.
type InviteResult struct {
	Invitation *models.FamilyInvitation
	EmailSent  bool
	ShareLink  string
}

// Invite creates (or refreshes) a pending invitation for inviteeEmail
// into the owner's family, creating the family on first use. A pending
// invitation for the same (family, email) pair is overwritten in place
// with a fresh token and expiry rather than duplicated. The notification
// email is best-effort: its failure never unwinds the invitation.
func (s *InvitationService) Invite(ctx context.Context, identity *models.Identity, inviteeEmail string) (*InviteResult, error) {
	email := strings.ToLower(strings.TrimSpace(inviteeEmail))
	if email == strings.ToLower(strings.TrimSpace(identity.Email)) {
		return nil, ErrSelfInvite
	}

	invitation, familyName, err := s.upsertInvitation(ctx, identity, email)
	if err != nil {
		return nil, err
	}

	shareLink := s.clientBaseURL + "/family/invite/" + invitation.Token
	sent := s.email.SendInviteEmail(ctx, email, identity.Email, familyName, shareLink)
	if !sent {
		logging.Warn("Invite email not delivered", map[string]interface{}{
			"invitation_id": invitation.ID,
		})
	}

	return &InviteResult{Invitation: invitation, EmailSent: sent, ShareLink: shareLink}, nil
}

// upsertInvitation runs the read-decide-write section under the per-owner
// lock so family creation and invitation dedup cannot race.
func (s *InvitationService) upsertInvitation(ctx context.Context, identity *models.Identity, email string) (*models.FamilyInvitation, string, error) {
	release, err := s.locker.Acquire(ctx, ownerLockKey(identity.ID))
	if err != nil {
		return nil, "", err
	}
	defer release()

	family, err := s.families.resolveOrCreateLocked(ctx, identity)
	if err != nil {
		return nil, "", err
	}

	members, err := s.families.listMembers(ctx, family.ID)
	if err != nil {
		return nil, "", err
	}
	for _, m := range members {
		if strings.EqualFold(m.Email, email) {
			return nil, "", ErrAlreadyMember
		}
	}

	// Reuse a pending invitation for this (family, email) pair so repeat
	// invites refresh the token instead of stacking rows.
	id := NewID()
	pending, err := s.queryInvitations(ctx, store.Query{
		Entity: store.EntityInvitation,
		Where: []store.Filter{
			{Field: "email", Value: email},
			{Field: "status", Value: string(models.InvitationStatusPending)},
		},
		WhereLink: &store.LinkFilter{Relation: store.RelationFamily, TargetID: family.ID},
	})
	if err != nil {
		return nil, "", err
	}
	if len(pending) > 0 {
		id = pending[0].ID
	}

	token, err := NewInviteToken()
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	invitation := &models.FamilyInvitation{
		ID:        id,
		Token:     token,
		Email:     email,
		Role:      models.RoleViewer,
		Status:    models.InvitationStatusPending,
		ExpiresAt: now.Add(models.InviteExpiry),
		CreatedAt: now,
		InviterID: identity.ID,
		FamilyID:  family.ID,
	}

	err = s.store.Transact(ctx, []store.Step{
		store.Update(store.EntityInvitation, id, map[string]any{
			"id":        invitation.ID,
			"token":     invitation.Token,
			"email":     invitation.Email,
			"role":      invitation.Role,
			"status":    invitation.Status,
			"expiresAt": invitation.ExpiresAt,
			"createdAt": invitation.CreatedAt,
			"inviterId": invitation.InviterID,
			"familyId":  invitation.FamilyID,
		}),
		store.Link(store.EntityInvitation, id, store.RelationFamily, family.ID),
	})
	if err != nil {
		return nil, "", fmt.Errorf("writing invitation: %w", err)
	}

	return invitation, family.Name, nil
}

// AcceptResult describes the membership granted by a successful accept.
type AcceptResult struct {
	FamilyID string
	Role     string
}

// Accept redeems an invitation token for the accepting identity. The
// token is the sole authorization artifact: the accepter's email is
// deliberately not compared to the invitation's target email. An
// invitation past its window is marked expired here, as a side effect of
// this very access.
func (s *InvitationService) Accept(ctx context.Context, identity *models.Identity, token string) (*AcceptResult, error) {
	found, err := s.queryInvitations(ctx, store.Query{
		Entity: store.EntityInvitation,
		Where:  []store.Filter{{Field: "token", Value: token}},
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrInviteNotFound
	}

	// Re-read under a per-invitation lock so two concurrent accepts
	// cannot both pass the pending check.
	release, err := s.locker.Acquire(ctx, "invite:"+found[0].ID)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.queryInvitations(ctx, store.Query{
		Entity: store.EntityInvitation,
		Where:  []store.Filter{{Field: "id", Value: found[0].ID}},
	})
	if err != nil {
		return nil, err
	}
	if len(current) == 0 || current[0].Token != token {
		return nil, ErrInviteNotFound
	}
	invitation := current[0]

	if invitation.Status != models.InvitationStatusPending {
		return nil, ErrInviteNotPending
	}

	now := time.Now().UTC()
	if invitation.IsExpired(now) {
		err := s.store.Transact(ctx, []store.Step{
			store.Update(store.EntityInvitation, invitation.ID, map[string]any{
				"status": models.InvitationStatusExpired,
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("marking invitation expired: %w", err)
		}
		return nil, ErrInviteExpired
	}

	memberID := NewID()
	err = s.store.Transact(ctx, []store.Step{
		store.Update(store.EntityMember, memberID, map[string]any{
			"id":        memberID,
			"userId":    identity.ID,
			"email":     identity.Email,
			"role":      invitation.Role,
			"joinedAt":  now,
			"updatedAt": now,
			"familyId":  invitation.FamilyID,
		}),
		store.Link(store.EntityMember, memberID, store.RelationFamily, invitation.FamilyID),
		store.Update(store.EntityInvitation, invitation.ID, map[string]any{
			"status":     models.InvitationStatusAccepted,
			"acceptedAt": now,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("accepting invitation: %w", err)
	}

	return &AcceptResult{FamilyID: invitation.FamilyID, Role: invitation.Role}, nil
}

// Revoke withdraws an invitation belonging to the caller's family. The
// transition to revoked is unconditional: an already accepted or expired
// invitation still ends up revoked.
func (s *InvitationService) Revoke(ctx context.Context, identity *models.Identity, invitationID string) error {
	family, err := s.families.ResolveFamily(ctx, identity)
	if err != nil {
		return err
	}
	if family == nil {
		return ErrNoFamily
	}

	found, err := s.queryInvitations(ctx, store.Query{
		Entity: store.EntityInvitation,
		Where:  []store.Filter{{Field: "id", Value: invitationID}},
	})
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return ErrInviteNotFound
	}
	if found[0].FamilyID != family.ID {
		return ErrWrongFamily
	}

	err = s.store.Transact(ctx, []store.Step{
		store.Update(store.EntityInvitation, invitationID, map[string]any{
			"status": models.InvitationStatusRevoked,
		}),
	})
	if err != nil {
		return fmt.Errorf("revoking invitation: %w", err)
	}
	return nil
}

// ListPending returns the caller's pending invitations. Invitations whose
// window has passed but whose expired status has not been persisted yet
// are filtered out at read time.
func (s *InvitationService) ListPending(ctx context.Context, identity *models.Identity) ([]models.FamilyInvitation, error) {
	family, err := s.families.ResolveFamily(ctx, identity)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return []models.FamilyInvitation{}, nil
	}

	pending, err := s.queryInvitations(ctx, store.Query{
		Entity: store.EntityInvitation,
		Where:  []store.Filter{{Field: "status", Value: string(models.InvitationStatusPending)}},
		WhereLink: &store.LinkFilter{Relation: store.RelationFamily, TargetID: family.ID},
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	live := []models.FamilyInvitation{}
	for _, inv := range pending {
		if inv.IsExpired(now) {
			continue
		}
		live = append(live, inv)
	}
	return live, nil
}

func (s *InvitationService) queryInvitations(ctx context.Context, q store.Query) ([]models.FamilyInvitation, error) {
	records, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying invitations: %w", err)
	}

	invitations := make([]models.FamilyInvitation, 0, len(records))
	for _, rec := range records {
		var inv models.FamilyInvitation
		if err := json.Unmarshal(rec, &inv); err != nil {
			return nil, fmt.Errorf("decoding invitation record: %w", err)
		}
		invitations = append(invitations, inv)
	}
	return invitations, nil
}
