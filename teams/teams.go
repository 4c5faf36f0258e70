// Package teams wraps the TaskFlow team service endpoints.
package teams

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/taskflow/taskflow-go/apiclient"
)

// Team is a roster summary row.
type Team struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	NumberOfMembers int     `json:"number_of_members"`
	LeaderFullName  *string `json:"leader_full_name"`
}

// TeamMember is one member of a team.
type TeamMember struct {
	UserID       int64  `json:"user_id"`
	UserFullName string `json:"user_full_name"`
	Role         string `json:"role"`
}

// TeamDetails is the full team record.
type TeamDetails struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Members     []TeamMember `json:"members"`
}

// UpdateParams are the fields accepted by the team update endpoint. The
// leader is only changed when both LeaderID and LeaderFullName are set.
type UpdateParams struct {
	Name           string
	Description    string
	LeaderID       *int64
	LeaderFullName string
}

// Service talks to the team backend through the shared authenticated client.
type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) (*Service, error) {
	if client == nil {
		return nil, errors.New("[teams.NewService] client is required")
	}
	return &Service{client: client}, nil
}

// List returns all teams visible to the current user.
func (s *Service) List(ctx context.Context) ([]Team, error) {
	var list []Team
	if err := s.client.Get(ctx, "/api/teams/", &list); err != nil {
		return nil, errors.Wrap(err, "[Service.List]")
	}
	return list, nil
}

// Create registers a new team with the given leader.
func (s *Service) Create(ctx context.Context, name, description, leaderFullName string, leaderID int64) error {
	payload := map[string]any{
		"name":        name,
		"description": description,
		"full_name":   leaderFullName,
		"leader_id":   leaderID,
	}
	if err := s.client.Post(ctx, "/api/teams/create", payload, nil); err != nil {
		return errors.Wrap(err, "[Service.Create]")
	}
	return nil
}

// Details returns the full record for one team.
func (s *Service) Details(ctx context.Context, teamID int64) (*TeamDetails, error) {
	var details TeamDetails
	path := fmt.Sprintf("/api/teams/%d/", teamID)
	if err := s.client.Get(ctx, path, &details); err != nil {
		return nil, errors.Wrap(err, "[Service.Details]")
	}
	return &details, nil
}

// Update changes a team's name/description and optionally its leader.
func (s *Service) Update(ctx context.Context, teamID int64, params UpdateParams) error {
	payload := map[string]any{
		"name":        params.Name,
		"description": params.Description,
	}
	if params.LeaderID != nil && params.LeaderFullName != "" {
		payload["full_name"] = params.LeaderFullName
		payload["leader_id"] = *params.LeaderID
	}
	path := fmt.Sprintf("/api/teams/update/%d", teamID)
	if err := s.client.Put(ctx, path, payload, nil); err != nil {
		return errors.Wrap(err, "[Service.Update]")
	}
	return nil
}

// AddMember adds a user to the team.
func (s *Service) AddMember(ctx context.Context, teamID, memberID int64, memberFullName string) error {
	payload := map[string]any{
		"member_id":        memberID,
		"member_full_name": memberFullName,
	}
	path := fmt.Sprintf("/api/teams/add-member/%d", teamID)
	if err := s.client.Put(ctx, path, payload, nil); err != nil {
		return errors.Wrap(err, "[Service.AddMember]")
	}
	return nil
}

// RemoveMember removes a user from the team.
func (s *Service) RemoveMember(ctx context.Context, teamID, memberID int64) error {
	payload := map[string]any{"member_id": memberID}
	path := fmt.Sprintf("/api/teams/remove-member/%d", teamID)
	if err := s.client.Put(ctx, path, payload, nil); err != nil {
		return errors.Wrap(err, "[Service.RemoveMember]")
	}
	return nil
}

// Delete removes the team.
func (s *Service) Delete(ctx context.Context, teamID int64) error {
	path := fmt.Sprintf("/api/teams/delete/%d", teamID)
	if err := s.client.Delete(ctx, path); err != nil {
		return errors.Wrap(err, "[Service.Delete]")
	}
	return nil
}
