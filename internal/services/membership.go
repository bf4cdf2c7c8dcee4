package services

import (
	"context"
	"encoding/json"
	"fmt"

	"famshare/internal/models"
	"famshare/internal/store"
)

// MembershipService maintains the set of accepted members per family.
// Enforcing revoked access at the data layer is the store's permission
// rules' job, not this service's.
type MembershipService struct {
	store    store.Store
	families *FamilyService
}

func NewMembershipService(st store.Store, families *FamilyService) *MembershipService {
	return &MembershipService{store: st, families: families}
}

// RemoveMember deletes a member of the caller's family. The member must
// belong to the caller's own family.
func (s *MembershipService) RemoveMember(ctx context.Context, identity *models.Identity, memberID string) error {
	family, err := s.families.ResolveFamily(ctx, identity)
	if err != nil {
		return err
	}
	if family == nil {
		return ErrNoFamily
	}

	records, err := s.store.Query(ctx, store.Query{
		Entity: store.EntityMember,
		Where:  []store.Filter{{Field: "id", Value: memberID}},
	})
	if err != nil {
		return fmt.Errorf("looking up member: %w", err)
	}
	if len(records) == 0 {
		return ErrMemberNotFound
	}

	var member models.FamilyMember
	if err := json.Unmarshal(records[0], &member); err != nil {
		return fmt.Errorf("decoding member record: %w", err)
	}
	if member.FamilyID != family.ID {
		return ErrWrongFamily
	}

	err = s.store.Transact(ctx, []store.Step{
		store.Delete(store.EntityMember, memberID),
	})
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	return nil
}
