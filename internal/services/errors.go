package services

import "errors"

var (
	// ErrSelfInvite is returned when an owner invites their own email.
	ErrSelfInvite = errors.New("cannot invite yourself")
	// ErrAlreadyMember is returned when the invitee already belongs to the family.
	ErrAlreadyMember = errors.New("email already belongs to a family member")
	// ErrInviteNotFound is returned when no invitation matches a token or id.
	ErrInviteNotFound = errors.New("invitation not found")
	// ErrInviteNotPending is returned when accepting an invitation that was
	// already accepted or revoked.
	ErrInviteNotPending = errors.New("invitation is no longer pending")
	// ErrInviteExpired is returned when accepting an invitation past its
	// window. The expired status is persisted as a side effect.
	ErrInviteExpired = errors.New("invitation has expired")
	// ErrNoFamily is returned when the caller owns no family.
	ErrNoFamily = errors.New("caller owns no family")
	// ErrWrongFamily is returned when the target invitation or member
	// belongs to a different family than the caller's.
	ErrWrongFamily = errors.New("target belongs to a different family")
	// ErrMemberNotFound is returned when no member matches the given id.
	ErrMemberNotFound = errors.New("member not found")
)
