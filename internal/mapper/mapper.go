package mapper

import (
	"context"

	"basegraph.app/crmrelay/internal/domain"
)

// IssueRequestMapper turns a raw CRM payload into an IssueRequest. Mapping never
// fails: absent fields fall back to defaults.
type IssueRequestMapper interface {
	Map(ctx context.Context, event domain.InboundEvent) domain.IssueRequest
}
