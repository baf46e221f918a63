package domain

// IssueRequest is the normalized form of an inbound event. It is built once per
// delivery and not modified afterwards.
type IssueRequest struct {
	Title          string
	Description    string
	AssigneeEmail  *string
	AttachmentURLs []string
}

// HasAttachments reports whether any attachment URL was supplied.
func (r IssueRequest) HasAttachments() bool {
	return len(r.AttachmentURLs) > 0
}

type ResolvedUser struct {
	ID string
}

// CreatedIssue is the tracker's view of the issue created for a delivery.
// Attachments are linked to it by ID.
type CreatedIssue struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	URL        string `json:"url"`
}
