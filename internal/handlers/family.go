package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"famshare/internal/logging"
	"famshare/internal/models"
	"famshare/internal/services"
)

// FamilyHandler exposes the family-sharing operations. Every request
// carries a refresh_token field in its JSON body; the identity verifier
// turns it into an identity before any state is touched.
type FamilyHandler struct {
	verifier    services.IdentityVerifierInterface
	families    services.FamilyServiceInterface
	invitations services.InvitationServiceInterface
	membership  services.MembershipServiceInterface
}

func NewFamilyHandler(
	verifier services.IdentityVerifierInterface,
	families services.FamilyServiceInterface,
	invitations services.InvitationServiceInterface,
	membership services.MembershipServiceInterface,
) *FamilyHandler {
	return &FamilyHandler{
		verifier:    verifier,
		families:    families,
		invitations: invitations,
		membership:  membership,
	}
}

type InviteRequest struct {
	RefreshToken string `json:"refresh_token"`
	Email        string `json:"email"`
}

type InviteResponse struct {
	Success      bool   `json:"success"`
	InvitationID string `json:"invitationId"`
	EmailSent    bool   `json:"emailSent"`
	ShareLink    string `json:"shareLink"`
}

type AcceptInviteRequest struct {
	RefreshToken string `json:"refresh_token"`
	Token        string `json:"token"`
}

type AcceptInviteResponse struct {
	Success  bool   `json:"success"`
	FamilyID string `json:"familyId"`
	Role     string `json:"role"`
}

type MembersRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type MembersResponse struct {
	Members  []models.MemberView `json:"members"`
	IsOwner  bool                `json:"isOwner"`
	FamilyID string              `json:"familyId"`
}

// InvitationView is the invitation shape exposed to clients. It omits the
// token: the only place the raw token leaves the system is the share link
// in the creating response and the invite email.
type InvitationView struct {
	ID        string                  `json:"id"`
	Email     string                  `json:"email"`
	Role      string                  `json:"role"`
	Status    models.InvitationStatus `json:"status"`
	ExpiresAt time.Time               `json:"expiresAt"`
	CreatedAt time.Time               `json:"createdAt"`
}

type InvitationsResponse struct {
	Invitations []InvitationView `json:"invitations"`
}

type RevokeInviteRequest struct {
	RefreshToken string `json:"refresh_token"`
	InvitationID string `json:"invitationId"`
}

type RemoveMemberRequest struct {
	RefreshToken string `json:"refresh_token"`
	MemberID     string `json:"memberId"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// authenticate resolves the refresh token to an identity, writing the
// response itself on failure. The 401 body is uniform regardless of why
// verification failed.
func (h *FamilyHandler) authenticate(w http.ResponseWriter, r *http.Request, refreshToken string) *models.Identity {
	if refreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return nil
	}

	identity, err := h.verifier.Verify(r.Context(), refreshToken)
	if err != nil {
		logging.Error("Identity verification failed", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil
	}
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return nil
	}
	return identity
}

func (h *FamilyHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity := h.authenticate(w, r, req.RefreshToken)
	if identity == nil {
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if !strings.Contains(email, "@") {
		writeError(w, http.StatusBadRequest, "email is invalid")
		return
	}

	result, err := h.invitations.Invite(r.Context(), identity, email)
	if errors.Is(err, services.ErrSelfInvite) {
		writeError(w, http.StatusBadRequest, "You cannot invite yourself")
		return
	}
	if errors.Is(err, services.ErrAlreadyMember) {
		writeError(w, http.StatusBadRequest, "This email already belongs to a family member")
		return
	}
	if err != nil {
		logging.Error("Error creating invitation", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, InviteResponse{
		Success:      true,
		InvitationID: result.Invitation.ID,
		EmailSent:    result.EmailSent,
		ShareLink:    result.ShareLink,
	})
}

func (h *FamilyHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req AcceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity := h.authenticate(w, r, req.RefreshToken)
	if identity == nil {
		return
	}

	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	result, err := h.invitations.Accept(r.Context(), identity, req.Token)
	if errors.Is(err, services.ErrInviteNotFound) {
		writeError(w, http.StatusNotFound, "Invitation not found")
		return
	}
	if errors.Is(err, services.ErrInviteExpired) {
		writeError(w, http.StatusBadRequest, "This invitation has expired")
		return
	}
	if errors.Is(err, services.ErrInviteNotPending) {
		writeError(w, http.StatusBadRequest, "This invitation is no longer valid")
		return
	}
	if err != nil {
		logging.Error("Error accepting invitation", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, AcceptInviteResponse{
		Success:  true,
		FamilyID: result.FamilyID,
		Role:     result.Role,
	})
}

func (h *FamilyHandler) Members(w http.ResponseWriter, r *http.Request) {
	var req MembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity := h.authenticate(w, r, req.RefreshToken)
	if identity == nil {
		return
	}

	view, err := h.families.MembersView(r.Context(), identity)
	if err != nil {
		logging.Error("Error loading members view", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, MembersResponse{
		Members:  view.Members,
		IsOwner:  view.IsOwner,
		FamilyID: view.FamilyID,
	})
}

func (h *FamilyHandler) Invitations(w http.ResponseWriter, r *http.Request) {
	var req MembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity := h.authenticate(w, r, req.RefreshToken)
	if identity == nil {
		return
	}

	pending, err := h.invitations.ListPending(r.Context(), identity)
	if err != nil {
		logging.Error("Error listing invitations", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	views := make([]InvitationView, 0, len(pending))
	for _, inv := range pending {
		views = append(views, InvitationView{
			ID:        inv.ID,
			Email:     inv.Email,
			Role:      inv.Role,
			Status:    inv.Status,
			ExpiresAt: inv.ExpiresAt,
			CreatedAt: inv.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, InvitationsResponse{Invitations: views})
}

func (h *FamilyHandler) RevokeInvite(w http.ResponseWriter, r *http.Request) {
	var req RevokeInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity := h.authenticate(w, r, req.RefreshToken)
	if identity == nil {
		return
	}

	if req.InvitationID == "" {
		writeError(w, http.StatusBadRequest, "invitationId is required")
		return
	}

	err := h.invitations.Revoke(r.Context(), identity, req.InvitationID)
	if errors.Is(err, services.ErrNoFamily) || errors.Is(err, services.ErrWrongFamily) {
		writeError(w, http.StatusForbidden, "You do not manage this family")
		return
	}
	if errors.Is(err, services.ErrInviteNotFound) {
		writeError(w, http.StatusNotFound, "Invitation not found")
		return
	}
	if err != nil {
		logging.Error("Error revoking invitation", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	var req RemoveMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	identity := h.authenticate(w, r, req.RefreshToken)
	if identity == nil {
		return
	}

	if req.MemberID == "" {
		writeError(w, http.StatusBadRequest, "memberId is required")
		return
	}

	err := h.membership.RemoveMember(r.Context(), identity, req.MemberID)
	if errors.Is(err, services.ErrNoFamily) || errors.Is(err, services.ErrWrongFamily) {
		writeError(w, http.StatusForbidden, "You do not manage this family")
		return
	}
	if errors.Is(err, services.ErrMemberNotFound) {
		writeError(w, http.StatusNotFound, "Member not found")
		return
	}
	if err != nil {
		logging.Error("Error removing member", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
