package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrUnauthenticated = errors.New("missing or invalid credentials")

// Identity is what the hosted identity provider vouches for at the boundary:
// a user id and email, plus the locally-stored role.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type RoleSource interface {
	Role(ctx context.Context, userID string) (string, error)
}

// HostedVerifier validates bearer tokens against the identity provider's
// user endpoint. Token issuance and session semantics stay entirely on the
// provider's side.
type HostedVerifier struct {
	BaseURL string
	APIKey  string
	Roles   RoleSource
	HTTP    *http.Client
}

func NewHostedVerifier(baseURL, apiKey string, roles RoleSource) *HostedVerifier {
	return &HostedVerifier{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Roles:   roles,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (v *HostedVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.BaseURL+"/auth/v1/user", nil)
	if err != nil {
		return Identity{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("apikey", v.APIKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.HTTP.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, ErrUnauthenticated
	}

	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return Identity{}, fmt.Errorf("decode user: %w", err)
	}
	if user.ID == "" {
		return Identity{}, ErrUnauthenticated
	}

	role, err := v.Roles.Role(ctx, user.ID)
	if err != nil {
		return Identity{}, fmt.Errorf("resolve role: %w", err)
	}
	return Identity{UserID: user.ID, Email: user.Email, Role: role}, nil
}
