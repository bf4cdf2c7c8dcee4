package services

import (
	"context"
	"time"

	"famshare/internal/models"
	"famshare/internal/store"
)

// fakeEmailSender records invite emails and returns a configurable result.
type fakeEmailSender struct {
	accept bool
	sent   []sentEmail
}

type sentEmail struct {
	To         string
	Inviter    string
	FamilyName string
	ShareLink  string
}

func (f *fakeEmailSender) SendInviteEmail(ctx context.Context, toEmail, inviterEmail, familyName, shareLink string) bool {
	f.sent = append(f.sent, sentEmail{To: toEmail, Inviter: inviterEmail, FamilyName: familyName, ShareLink: shareLink})
	return f.accept
}

type testEnv struct {
	store       *store.Memory
	families    *FamilyService
	invitations *InvitationService
	membership  *MembershipService
	email       *fakeEmailSender
}

func newTestEnv() *testEnv {
	st := store.NewMemory()
	locker := NewMemoryLocker()
	email := &fakeEmailSender{accept: true}
	families := NewFamilyService(st, locker)
	invitations := NewInvitationService(st, families, locker, email, "https://app.test")
	membership := NewMembershipService(st, families)
	return &testEnv{
		store:       st,
		families:    families,
		invitations: invitations,
		membership:  membership,
		email:       email,
	}
}

func testIdentity(id, email string) *models.Identity {
	return &models.Identity{ID: id, Email: email}
}

func invitationByID(id string) store.Query {
	return store.Query{
		Entity: store.EntityInvitation,
		Where:  []store.Filter{{Field: "id", Value: id}},
	}
}

// expireInvitation backdates an invitation's window without marking it
// expired, mimicking a pending invitation whose time has simply passed.
func expireInvitation(env *testEnv, invitationID string) error {
	return env.store.Transact(context.Background(), []store.Step{
		store.Update(store.EntityInvitation, invitationID, map[string]any{
			"expiresAt": time.Now().UTC().Add(-time.Hour),
		}),
	})
}
