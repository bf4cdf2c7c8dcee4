package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"famshare/internal/models"
	"famshare/internal/store"
)

// FamilyService resolves or lazily creates the single family record owned
// by an identity, and builds the owner-plus-members view. The one-family-
// per-owner invariant is held by running creation under a per-owner lock.
type FamilyService struct {
	store  store.Store
	locker Locker
}

func NewFamilyService(st store.Store, locker Locker) *FamilyService {
	return &FamilyService{store: st, locker: locker}
}

func ownerLockKey(ownerID string) string {
	return "family:owner:" + ownerID
}

// ResolveFamily looks up the family owned by identity. A nil result with a
// nil error means the identity owns no family yet; that is not an error.
func (s *FamilyService) ResolveFamily(ctx context.Context, identity *models.Identity) (*models.Family, error) {
	records, err := s.store.Query(ctx, store.Query{
		Entity: store.EntityFamily,
		Where:  []store.Filter{{Field: "ownerId", Value: identity.ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("looking up family: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var family models.Family
	if err := json.Unmarshal(records[0], &family); err != nil {
		return nil, fmt.Errorf("decoding family record: %w", err)
	}
	return &family, nil
}

// ResolveOrCreateFamily returns the identity's family, creating it on
// first use.
func (s *FamilyService) ResolveOrCreateFamily(ctx context.Context, identity *models.Identity) (*models.Family, error) {
	release, err := s.locker.Acquire(ctx, ownerLockKey(identity.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	return s.resolveOrCreateLocked(ctx, identity)
}

// resolveOrCreateLocked must run under the caller's per-owner lock.
func (s *FamilyService) resolveOrCreateLocked(ctx context.Context, identity *models.Identity) (*models.Family, error) {
	family, err := s.ResolveFamily(ctx, identity)
	if err != nil {
		return nil, err
	}
	if family != nil {
		return family, nil
	}

	now := time.Now().UTC()
	family = &models.Family{
		ID:        NewID(),
		OwnerID:   identity.ID,
		Name:      fmt.Sprintf("%s's Family", identity.Email),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.store.Transact(ctx, []store.Step{
		store.Update(store.EntityFamily, family.ID, map[string]any{
			"id":        family.ID,
			"ownerId":   family.OwnerID,
			"name":      family.Name,
			"createdAt": family.CreatedAt,
			"updatedAt": family.UpdatedAt,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("creating family: %w", err)
	}
	return family, nil
}

// MembersView returns the owner-plus-members view of the identity's
// family. The owner appears as a synthetic admin entry that is never read
// from storage. An identity with no family gets an empty view.
func (s *FamilyService) MembersView(ctx context.Context, identity *models.Identity) (*models.FamilyMembersView, error) {
	view := &models.FamilyMembersView{Members: []models.MemberView{}}

	family, err := s.ResolveFamily(ctx, identity)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return view, nil
	}

	view.FamilyID = family.ID
	view.IsOwner = true
	view.Members = append(view.Members, models.MemberView{
		ID:    family.OwnerID,
		Email: identity.Email,
		Role:  models.RoleAdmin,
	})

	members, err := s.listMembers(ctx, family.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		view.Members = append(view.Members, models.MemberView{
			ID:    m.ID,
			Email: m.Email,
			Role:  m.Role,
		})
	}
	return view, nil
}

func (s *FamilyService) listMembers(ctx context.Context, familyID string) ([]models.FamilyMember, error) {
	records, err := s.store.Query(ctx, store.Query{
		Entity:    store.EntityMember,
		WhereLink: &store.LinkFilter{Relation: store.RelationFamily, TargetID: familyID},
	})
	if err != nil {
		return nil, fmt.Errorf("listing family members: %w", err)
	}

	members := make([]models.FamilyMember, 0, len(records))
	for _, rec := range records {
		var m models.FamilyMember
		if err := json.Unmarshal(rec, &m); err != nil {
			return nil, fmt.Errorf("decoding member record: %w", err)
		}
		members = append(members, m)
	}
	return members, nil
}
