// Package auth wraps the TaskFlow auth service endpoints and owns the
// in-memory session state for the application.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/taskflow/taskflow-go/apiclient"
	"github.com/taskflow/taskflow-go/credentials"
	"github.com/taskflow/taskflow-go/users"
)

// Tokens is the access/refresh pair issued by the auth service.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// SignupParams are the fields accepted by the signup endpoint. FirstName and
// LastName are optional; they are trimmed and omitted from the request when
// empty.
type SignupParams struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
}

// SignupResult is the signup response. Tokens is nil when the backend does
// not issue tokens immediately (e.g. accounts requiring activation).
type SignupResult struct {
	User    users.UserProfile `json:"user"`
	Tokens  *Tokens           `json:"tokens"`
	Message string            `json:"message"`
}

// LoginResult is the login response.
type LoginResult struct {
	Access  string            `json:"access"`
	Refresh string            `json:"refresh"`
	User    users.UserProfile `json:"user"`
}

// Service talks to the auth backend. On successful login/signup it persists
// the issued tokens and profile into the shared credential store so every
// backend client picks them up immediately.
type Service struct {
	client    *apiclient.Client
	refresher *apiclient.Refresher
	store     credentials.Store
}

// NewService creates the auth service wrapper. client must point at the auth
// origin; store and refresher are the ones shared with the other backends.
func NewService(client *apiclient.Client, refresher *apiclient.Refresher, store credentials.Store) (*Service, error) {
	if client == nil {
		return nil, errors.New("[auth.NewService] client is required")
	}
	if refresher == nil {
		return nil, errors.New("[auth.NewService] refresher is required")
	}
	if store == nil {
		return nil, errors.New("[auth.NewService] store is required")
	}
	return &Service{client: client, refresher: refresher, store: store}, nil
}

// Signup registers a new account. When the backend issues tokens immediately
// they are persisted along with the returned profile.
func (s *Service) Signup(ctx context.Context, params SignupParams) (*SignupResult, error) {
	payload := map[string]string{
		"email":     params.Email,
		"password":  params.Password,
		"password2": params.ConfirmPassword,
	}
	if first := strings.TrimSpace(params.FirstName); first != "" {
		payload["first_name"] = first
	}
	if last := strings.TrimSpace(params.LastName); last != "" {
		payload["last_name"] = last
	}

	var result SignupResult
	if err := s.client.Post(ctx, "/api/auth/signup/", payload, &result); err != nil {
		return nil, errors.Wrap(err, "[Service.Signup]")
	}

	if result.Tokens != nil {
		s.store.SetTokens(result.Tokens.Access, result.Tokens.Refresh)
		s.store.SetUser(&result.User)
	}
	return &result, nil
}

// Login exchanges credentials for a token pair and persists both tokens and
// the returned profile.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	payload := map[string]string{"email": email, "password": password}

	var result LoginResult
	if err := s.client.Post(ctx, "/api/auth/login/", payload, &result); err != nil {
		return nil, errors.Wrap(err, "[Service.Login]")
	}

	s.store.SetTokens(result.Access, result.Refresh)
	s.store.SetUser(&result.User)
	return &result, nil
}

// Logout clears local credentials. It never calls the backend and so works
// offline.
func (s *Service) Logout() {
	s.store.Clear()
}

// CurrentUser fetches the authenticated user's profile ("who am I").
func (s *Service) CurrentUser(ctx context.Context) (*users.UserProfile, error) {
	var profile users.UserProfile
	if err := s.client.Get(ctx, "/api/auth/me/", &profile); err != nil {
		return nil, errors.Wrap(err, "[Service.CurrentUser]")
	}
	return &profile, nil
}

// RefreshToken forces a token refresh through the shared refresh authority.
func (s *Service) RefreshToken(ctx context.Context) error {
	return s.refresher.Refresh(ctx)
}

// ListUsers returns every registered user. Admin only.
func (s *Service) ListUsers(ctx context.Context) ([]users.UserProfile, error) {
	var list []users.UserProfile
	if err := s.client.Get(ctx, "/api/auth/users/", &list); err != nil {
		return nil, errors.Wrap(err, "[Service.ListUsers]")
	}
	return list, nil
}

// UsersByIDs resolves a set of user ids to profiles, preserving backend order.
func (s *Service) UsersByIDs(ctx context.Context, ids []int64) ([]users.UserProfile, error) {
	payload := map[string][]int64{"user_ids": ids}
	var list []users.UserProfile
	if err := s.client.Post(ctx, "/api/auth/users/by-ids/", payload, &list); err != nil {
		return nil, errors.Wrap(err, "[Service.UsersByIDs]")
	}
	return list, nil
}

// UpdateUserRole changes a user's role and returns the role the backend
// settled on. Admin only.
func (s *Service) UpdateUserRole(ctx context.Context, userID int64, role users.RoleType) (users.RoleType, error) {
	payload := map[string]users.RoleType{"role": role}
	var result struct {
		Role users.RoleType `json:"role"`
	}
	path := fmt.Sprintf("/api/auth/users/%d/role/", userID)
	if err := s.client.Put(ctx, path, payload, &result); err != nil {
		return "", errors.Wrap(err, "[Service.UpdateUserRole]")
	}
	return result.Role, nil
}

// ToggleUserActive flips a user's activation flag and returns the new value.
// Admin only.
func (s *Service) ToggleUserActive(ctx context.Context, userID int64) (bool, error) {
	var result struct {
		IsActive bool `json:"is_active"`
	}
	path := fmt.Sprintf("/api/auth/users/%d/activate/", userID)
	if err := s.client.Put(ctx, path, nil, &result); err != nil {
		return false, errors.Wrap(err, "[Service.ToggleUserActive]")
	}
	return result.IsActive, nil
}

// DeleteUser removes a user account. Admin only.
func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	path := fmt.Sprintf("/api/auth/users/%d/delete/", userID)
	if err := s.client.Delete(ctx, path); err != nil {
		return errors.Wrap(err, "[Service.DeleteUser]")
	}
	return nil
}
