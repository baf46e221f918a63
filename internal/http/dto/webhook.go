package dto

import (
	"encoding/json"

	"basegraph.app/crmrelay/internal/domain"
)

// WebhookEnvelope documents the Bitrix24 outgoing webhook body. The handler
// decodes into a generic map; this type only feeds the published schema.
type WebhookEnvelope struct {
	Data  WebhookData `json:"data" jsonschema:"description=Bitrix24 automation payload"`
	Title string      `json:"title,omitempty" jsonschema:"description=Fallback issue title"`
}

type WebhookData struct {
	Fields BitrixFields `json:"FIELDS"`
}

type BitrixFields struct {
	Title          string `json:"TITLE,omitempty"`
	Subject        string `json:"SUBJECT,omitempty"`
	Comments       string `json:"COMMENTS,omitempty" jsonschema:"description=Issue description"`
	AssigneeEmail  string `json:"ASSIGNEE_EMAIL,omitempty" jsonschema:"format=email"`
	AttachmentURLs any    `json:"ATTACHMENT_URLS,omitempty" jsonschema:"oneof_type=string;array,description=One URL or a list of URLs"`
}

type IssueResponse struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	URL        string `json:"url"`
}

type WebhookResponse struct {
	OK            bool          `json:"ok"`
	Issue         IssueResponse `json:"issue"`
	AssigneeEmail *string       `json:"assigneeEmail"`
	AssigneeID    *string       `json:"assigneeId"`
	Attachments   []string      `json:"attachments"`
}

type ErrorResponse struct {
	OK           bool              `json:"ok"`
	Error        string            `json:"error"`
	Setting      string            `json:"setting,omitempty"`
	Status       int               `json:"status,omitempty"`
	Body         string            `json:"body,omitempty"`
	LinearErrors []json.RawMessage `json:"linear_errors,omitempty"`
}

type HealthResponse struct {
	OK                bool `json:"ok"`
	HasAPIKey         bool `json:"has_api_key"`
	HasTeamID         bool `json:"has_team_id"`
	StorageConfigured bool `json:"storage_configured"`
}

func NewWebhookResponse(result *domain.ProcessResult) WebhookResponse {
	attachments := make([]string, 0, len(result.Attachments))
	for _, a := range result.Attachments {
		attachments = append(attachments, a.PublicURL)
	}
	return WebhookResponse{
		OK: true,
		Issue: IssueResponse{
			ID:         result.Issue.ID,
			Identifier: result.Issue.Identifier,
			Title:      result.Issue.Title,
			URL:        result.Issue.URL,
		},
		AssigneeEmail: result.AssigneeEmail,
		AssigneeID:    result.AssigneeID,
		Attachments:   attachments,
	}
}
