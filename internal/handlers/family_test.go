package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"famshare/internal/models"
	"famshare/internal/services"
	"famshare/internal/testutil"
)

func newTestHandler() (*FamilyHandler, *mockInvitationService, *mockFamilyService, *mockMembershipService) {
	invitations := &mockInvitationService{}
	families := &mockFamilyService{}
	membership := &mockMembershipService{}
	h := NewFamilyHandler(verifyAs("u1", "a@x.com"), families, invitations, membership)
	return h, invitations, families, membership
}

func TestInvite_Success(t *testing.T) {
	h, invitations, _, _ := newTestHandler()
	invitations.InviteFunc = func(ctx context.Context, identity *models.Identity, inviteeEmail string) (*services.InviteResult, error) {
		testutil.AssertEqual(t, "b@y.com", inviteeEmail, "invitee email")
		testutil.AssertEqual(t, "u1", identity.ID, "identity id")
		return &services.InviteResult{
			Invitation: &models.FamilyInvitation{ID: "inv1", Token: "secret-token"},
			EmailSent:  true,
			ShareLink:  "https://app.test/family/invite/secret-token",
		}, nil
	}

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invite", InviteRequest{
		RefreshToken: "rt", Email: "b@y.com",
	})
	rr := httptest.NewRecorder()
	h.Invite(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	body := testutil.ParseJSONResponse(t, rr.Body.Bytes())
	testutil.AssertEqual(t, true, body["success"], "success")
	testutil.AssertEqual(t, "inv1", body["invitationId"], "invitationId")
	testutil.AssertEqual(t, true, body["emailSent"], "emailSent")
	testutil.AssertContains(t, body["shareLink"].(string), "secret-token", "shareLink")
}

func TestInvite_MissingRefreshToken(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invite", InviteRequest{Email: "b@y.com"})
	rr := httptest.NewRecorder()
	h.Invite(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
	testutil.AssertContains(t, rr.Body.String(), "refresh_token", "error message")
}

func TestInvite_Unauthenticated(t *testing.T) {
	_, invitations, families, membership := newTestHandler()
	verifier := &mockVerifier{
		VerifyFunc: func(ctx context.Context, refreshToken string) (*models.Identity, error) {
			return nil, nil
		},
	}
	h := NewFamilyHandler(verifier, families, invitations, membership)

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invite", InviteRequest{
		RefreshToken: "expired", Email: "b@y.com",
	})
	rr := httptest.NewRecorder()
	h.Invite(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusUnauthorized)
	testutil.AssertContains(t, rr.Body.String(), "Authentication required", "error message")
}

func TestInvite_VerifierTransportFailure(t *testing.T) {
	_, invitations, families, membership := newTestHandler()
	verifier := &mockVerifier{
		VerifyFunc: func(ctx context.Context, refreshToken string) (*models.Identity, error) {
			return nil, errors.New("auth service down")
		},
	}
	h := NewFamilyHandler(verifier, families, invitations, membership)

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invite", InviteRequest{
		RefreshToken: "rt", Email: "b@y.com",
	})
	rr := httptest.NewRecorder()
	h.Invite(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusInternalServerError)
}

func TestInvite_InvalidBody(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := testutil.NewTestRequest(http.MethodPost, "/api/family/invite", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	h.Invite(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
}

func TestInvite_EmailValidation(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{"missing", ""},
		{"whitespace only", "   "},
		{"no at sign", "not-an-email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _, _ := newTestHandler()
			req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invite", InviteRequest{
				RefreshToken: "rt", Email: tt.email,
			})
			rr := httptest.NewRecorder()
			h.Invite(rr, req)

			testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
		})
	}
}

func TestInvite_SelfInvite(t *testing.T) {
	h, invitations, _, _ := newTestHandler()
	invitations.InviteFunc = func(ctx context.Context, identity *models.Identity, inviteeEmail string) (*services.InviteResult, error) {
		return nil, services.ErrSelfInvite
	}

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invite", InviteRequest{
		RefreshToken: "rt", Email: "a@x.com",
	})
	rr := httptest.NewRecorder()
	h.Invite(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
	testutil.AssertContains(t, rr.Body.String(), "yourself", "error message")
}

func TestInvite_AlreadyMember(t *testing.T) {
	h, invitations, _, _ := newTestHandler()
	invitations.InviteFunc = func(ctx context.Context, identity *models.Identity, inviteeEmail string) (*services.InviteResult, error) {
		return nil, services.ErrAlreadyMember
	}

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invite", InviteRequest{
		RefreshToken: "rt", Email: "b@y.com",
	})
	rr := httptest.NewRecorder()
	h.Invite(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
	testutil.AssertContains(t, rr.Body.String(), "already", "error message")
}

func TestAcceptInvite_Success(t *testing.T) {
	h, invitations, _, _ := newTestHandler()
	invitations.AcceptFunc = func(ctx context.Context, identity *models.Identity, token string) (*services.AcceptResult, error) {
		testutil.AssertEqual(t, "tok123", token, "token")
		return &services.AcceptResult{FamilyID: "f1", Role: models.RoleViewer}, nil
	}

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invite/accept", AcceptInviteRequest{
		RefreshToken: "rt", Token: "tok123",
	})
	rr := httptest.NewRecorder()
	h.AcceptInvite(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	body := testutil.ParseJSONResponse(t, rr.Body.Bytes())
	testutil.AssertEqual(t, "f1", body["familyId"], "familyId")
	testutil.AssertEqual(t, "viewer", body["role"], "role")
}

func TestAcceptInvite_MissingToken(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invite/accept", AcceptInviteRequest{
		RefreshToken: "rt",
	})
	rr := httptest.NewRecorder()
	h.AcceptInvite(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
}

func TestAcceptInvite_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown token", services.ErrInviteNotFound, http.StatusNotFound},
		{"expired", services.ErrInviteExpired, http.StatusBadRequest},
		{"not pending", services.ErrInviteNotPending, http.StatusBadRequest},
		{"internal", errors.New("store down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, invitations, _, _ := newTestHandler()
			invitations.AcceptFunc = func(ctx context.Context, identity *models.Identity, token string) (*services.AcceptResult, error) {
				return nil, tt.err
			}

			req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invite/accept", AcceptInviteRequest{
				RefreshToken: "rt", Token: "tok",
			})
			rr := httptest.NewRecorder()
			h.AcceptInvite(rr, req)

			testutil.AssertStatusCode(t, rr, tt.wantStatus)
		})
	}
}

func TestMembers_Success(t *testing.T) {
	h, _, families, _ := newTestHandler()
	families.MembersViewFunc = func(ctx context.Context, identity *models.Identity) (*models.FamilyMembersView, error) {
		return &models.FamilyMembersView{
			FamilyID: "f1",
			IsOwner:  true,
			Members: []models.MemberView{
				{ID: "u1", Email: "a@x.com", Role: models.RoleAdmin},
				{ID: "m1", Email: "b@y.com", Role: models.RoleViewer},
			},
		}, nil
	}

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/members", MembersRequest{RefreshToken: "rt"})
	rr := httptest.NewRecorder()
	h.Members(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	body := testutil.ParseJSONResponse(t, rr.Body.Bytes())
	testutil.AssertEqual(t, "f1", body["familyId"], "familyId")
	testutil.AssertEqual(t, true, body["isOwner"], "isOwner")
	members := body["members"].([]interface{})
	testutil.AssertEqual(t, 2, len(members), "member count")
}

func TestMembers_EmptyWithoutFamily(t *testing.T) {
	h, _, families, _ := newTestHandler()
	families.MembersViewFunc = func(ctx context.Context, identity *models.Identity) (*models.FamilyMembersView, error) {
		return &models.FamilyMembersView{Members: []models.MemberView{}}, nil
	}

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/members", MembersRequest{RefreshToken: "rt"})
	rr := httptest.NewRecorder()
	h.Members(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	body := testutil.ParseJSONResponse(t, rr.Body.Bytes())
	testutil.AssertEqual(t, false, body["isOwner"], "isOwner")
	testutil.AssertEqual(t, 0, len(body["members"].([]interface{})), "member count")
}

func TestInvitations_OmitsTokens(t *testing.T) {
	h, invitations, _, _ := newTestHandler()
	invitations.ListPendingFunc = func(ctx context.Context, identity *models.Identity) ([]models.FamilyInvitation, error) {
		return []models.FamilyInvitation{
			{
				ID:        "inv1",
				Token:     "raw-secret",
				Email:     "b@y.com",
				Role:      models.RoleViewer,
				Status:    models.InvitationStatusPending,
				ExpiresAt: time.Now().Add(time.Hour),
				CreatedAt: time.Now(),
			},
		}, nil
	}

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invitations", MembersRequest{RefreshToken: "rt"})
	rr := httptest.NewRecorder()
	h.Invitations(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	if strings.Contains(rr.Body.String(), "raw-secret") {
		t.Error("the raw token must never appear in the invitations listing")
	}
	body := testutil.ParseJSONResponse(t, rr.Body.Bytes())
	views := body["invitations"].([]interface{})
	testutil.AssertEqual(t, 1, len(views), "invitation count")
	first := views[0].(map[string]interface{})
	testutil.AssertEqual(t, "inv1", first["id"], "invitation id")
	testutil.AssertEqual(t, "pending", first["status"], "status")
}

func TestInvitations_EmptyList(t *testing.T) {
	h, invitations, _, _ := newTestHandler()
	invitations.ListPendingFunc = func(ctx context.Context, identity *models.Identity) ([]models.FamilyInvitation, error) {
		return []models.FamilyInvitation{}, nil
	}

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invitations", MembersRequest{RefreshToken: "rt"})
	rr := httptest.NewRecorder()
	h.Invitations(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	testutil.AssertContains(t, rr.Body.String(), `"invitations":[]`, "empty array, not null")
}

func TestRevokeInvite_Success(t *testing.T) {
	h, invitations, _, _ := newTestHandler()
	var gotID string
	invitations.RevokeFunc = func(ctx context.Context, identity *models.Identity, invitationID string) error {
		gotID = invitationID
		return nil
	}

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invite/revoke", RevokeInviteRequest{
		RefreshToken: "rt", InvitationID: "inv1",
	})
	rr := httptest.NewRecorder()
	h.RevokeInvite(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	testutil.AssertEqual(t, "inv1", gotID, "invitation id")
	body := testutil.ParseJSONResponse(t, rr.Body.Bytes())
	testutil.AssertEqual(t, true, body["success"], "success")
}

func TestRevokeInvite_MissingID(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invite/revoke", RevokeInviteRequest{
		RefreshToken: "rt",
	})
	rr := httptest.NewRecorder()
	h.RevokeInvite(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
}

func TestRevokeInvite_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"no family", services.ErrNoFamily, http.StatusForbidden},
		{"foreign invitation", services.ErrWrongFamily, http.StatusForbidden},
		{"unknown invitation", services.ErrInviteNotFound, http.StatusNotFound},
		{"internal", errors.New("store down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, invitations, _, _ := newTestHandler()
			invitations.RevokeFunc = func(ctx context.Context, identity *models.Identity, invitationID string) error {
				return tt.err
			}

			req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/invite/revoke", RevokeInviteRequest{
				RefreshToken: "rt", InvitationID: "inv1",
			})
			rr := httptest.NewRecorder()
			h.RevokeInvite(rr, req)

			testutil.AssertStatusCode(t, rr, tt.wantStatus)
		})
	}
}

func TestRemoveMember_Success(t *testing.T) {
	h, _, _, membership := newTestHandler()
	var gotID string
	membership.RemoveMemberFunc = func(ctx context.Context, identity *models.Identity, memberID string) error {
		gotID = memberID
		return nil
	}

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/members/remove", RemoveMemberRequest{
		RefreshToken: "rt", MemberID: "m1",
	})
	rr := httptest.NewRecorder()
	h.RemoveMember(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	testutil.AssertEqual(t, "m1", gotID, "member id")
}

func TestRemoveMember_MissingID(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/members/remove", RemoveMemberRequest{
		RefreshToken: "rt",
	})
	rr := httptest.NewRecorder()
	h.RemoveMember(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
}

func TestRemoveMember_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"no family", services.ErrNoFamily, http.StatusForbidden},
		{"foreign member", services.ErrWrongFamily, http.StatusForbidden},
		{"unknown member", services.ErrMemberNotFound, http.StatusNotFound},
		{"internal", errors.New("store down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _, membership := newTestHandler()
			membership.RemoveMemberFunc = func(ctx context.Context, identity *models.Identity, memberID string) error {
				return tt.err
			}

			req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/family/members/remove", RemoveMemberRequest{
				RefreshToken: "rt", MemberID: "m1",
			})
			rr := httptest.NewRecorder()
			h.RemoveMember(rr, req)

			testutil.AssertStatusCode(t, rr, tt.wantStatus)
		})
	}
}
