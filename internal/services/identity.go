package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"famshare/internal/models"
)

// IdentityVerifier exchanges an opaque refresh token for a verified user
// identity via the auth service. Every component treats a nil identity as
// unauthenticated and must short-circuit before touching the store.
type IdentityVerifier struct {
	baseURL string
	client  *http.Client
}

func NewIdentityVerifier(baseURL string) *IdentityVerifier {
	return &IdentityVerifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type verifyRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type verifyResponse struct {
	User models.Identity `json:"user"`
}

// Verify returns the identity behind refreshToken, or (nil, nil) on any
// non-2xx response from the auth service, including expiry. A transport
// failure is an error, not an authentication decision.
func (v *IdentityVerifier) Verify(ctx context.Context, refreshToken string) (*models.Identity, error) {
	payload, err := json.Marshal(verifyRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("encoding verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/auth/verify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling auth service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	var decoded verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding verify response: %w", err)
	}
	if decoded.User.ID == "" {
		return nil, nil
	}
	return &decoded.User, nil
}
