package models

// Identity is a verified user identity returned by the auth service.
// It is immutable for the duration of a request and never persisted here.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
