package issue_tracker

import (
	"context"

	"basegraph.app/crmrelay/internal/domain"
)

type CreateIssueParams struct {
	Title       string
	Description string
	AssigneeID  *string // omitted from the mutation when nil
}

type CreateAttachmentParams struct {
	IssueID string
	Title   string
	URL     string
}

type IssueTrackerService interface {
	// ResolveUser returns the tracker user for email, or nil when email is
	// empty or no user matches.
	ResolveUser(ctx context.Context, email *string) (*domain.ResolvedUser, error)
	CreateIssue(ctx context.Context, params CreateIssueParams) (*domain.CreatedIssue, error)
	CreateAttachment(ctx context.Context, params CreateAttachmentParams) error
}
