package issue_tracker

import (
	"context"
	"fmt"
	"strings"

	"basegraph.app/crmrelay/internal/domain"
)

// UserLookupPageSize is the single page of users fetched per lookup. Workspaces
// with more users than this can miss a valid assignee.
const UserLookupPageSize = 200

const usersQuery = `query Users($first: Int!) {
  users(first: $first) {
    nodes {
      id
      email
    }
  }
}`

const issueCreateMutation = `mutation IssueCreate($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue {
      id
      identifier
      title
      url
    }
  }
}`

const attachmentCreateMutation = `mutation AttachmentCreate($input: AttachmentCreateInput!) {
  attachmentCreate(input: $input) {
    success
    attachment {
      id
      title
      url
    }
  }
}`

type linearIssueTrackerService struct {
	client GraphQLClient
	teamID string
}

func NewLinearIssueTrackerService(client GraphQLClient, teamID string) IssueTrackerService {
	return &linearIssueTrackerService{
		client: client,
		teamID: teamID,
	}
}

func (s *linearIssueTrackerService) ResolveUser(ctx context.Context, email *string) (*domain.ResolvedUser, error) {
	if email == nil || strings.TrimSpace(*email) == "" {
		return nil, nil
	}

	data, err := s.client.Execute(ctx, usersQuery, map[string]any{"first": UserLookupPageSize})
	if err != nil {
		return nil, fmt.Errorf("looking up linear users: %w", err)
	}

	var resp struct {
		Users struct {
			Nodes []struct {
				ID    string  `json:"id"`
				Email *string `json:"email"`
			} `json:"nodes"`
		} `json:"users"`
	}
	if err := decodeData(data, &resp); err != nil {
		return nil, err
	}

	want := strings.TrimSpace(*email)
	for _, u := range resp.Users.Nodes {
		if u.Email != nil && strings.EqualFold(*u.Email, want) {
			return &domain.ResolvedUser{ID: u.ID}, nil
		}
	}

	return nil, nil
}

func (s *linearIssueTrackerService) CreateIssue(ctx context.Context, params CreateIssueParams) (*domain.CreatedIssue, error) {
	input := map[string]any{
		"title":       params.Title,
		"description": params.Description,
		"teamId":      s.teamID,
	}
	if params.AssigneeID != nil && *params.AssigneeID != "" {
		input["assigneeId"] = *params.AssigneeID
	}

	data, err := s.client.Execute(ctx, issueCreateMutation, map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("creating linear issue: %w", err)
	}

	var resp struct {
		IssueCreate struct {
			Success bool                 `json:"success"`
			Issue   *domain.CreatedIssue `json:"issue"`
		} `json:"issueCreate"`
	}
	if err := decodeData(data, &resp); err != nil {
		return nil, err
	}
	if !resp.IssueCreate.Success || resp.IssueCreate.Issue == nil || resp.IssueCreate.Issue.ID == "" {
		return nil, ErrIssueNotCreated
	}

	return resp.IssueCreate.Issue, nil
}

func (s *linearIssueTrackerService) CreateAttachment(ctx context.Context, params CreateAttachmentParams) error {
	input := map[string]any{
		"issueId": params.IssueID,
		"title":   params.Title,
		"url":     params.URL,
	}

	data, err := s.client.Execute(ctx, attachmentCreateMutation, map[string]any{"input": input})
	if err != nil {
		return fmt.Errorf("creating linear attachment: %w", err)
	}

	var resp struct {
		AttachmentCreate struct {
			Success bool `json:"success"`
		} `json:"attachmentCreate"`
	}
	if err := decodeData(data, &resp); err != nil {
		return err
	}
	if !resp.AttachmentCreate.Success {
		return fmt.Errorf("linear rejected attachment for issue %s", params.IssueID)
	}

	return nil
}
