package mapper

import (
	"context"
	"strings"

	"basegraph.app/crmrelay/internal/domain"
)

const (
	DefaultTitle       = "Bitrix24 item"
	DefaultDescription = "Created automatically by the Bitrix24 webhook."
)

// Bitrix24 automation field keys inside data.FIELDS.
const (
	fieldTitle          = "TITLE"
	fieldSubject        = "SUBJECT"
	fieldComments       = "COMMENTS"
	fieldAssigneeEmail  = "ASSIGNEE_EMAIL"
	fieldAttachmentURLs = "ATTACHMENT_URLS"

	topLevelTitle = "title"
)

type BitrixEventMapper struct{}

func NewBitrixEventMapper() *BitrixEventMapper {
	return &BitrixEventMapper{}
}

// Map applies the fallback rules:
//   - title: FIELDS.TITLE, FIELDS.SUBJECT, top-level title, DefaultTitle
//   - description: FIELDS.COMMENTS, DefaultDescription
//   - assignee: FIELDS.ASSIGNEE_EMAIL when non-blank
//   - attachments: FIELDS.ATTACHMENT_URLS as a string or list of strings
func (m *BitrixEventMapper) Map(ctx context.Context, event domain.InboundEvent) domain.IssueRequest {
	fields := event.Fields()

	title := firstNonEmpty(
		stringValue(fields[fieldTitle]),
		stringValue(fields[fieldSubject]),
		stringValue(event[topLevelTitle]),
		DefaultTitle,
	)
	description := firstNonEmpty(stringValue(fields[fieldComments]), DefaultDescription)

	var assigneeEmail *string
	if email := strings.TrimSpace(stringValue(fields[fieldAssigneeEmail])); email != "" {
		assigneeEmail = &email
	}

	return domain.IssueRequest{
		Title:          title,
		Description:    description,
		AssigneeEmail:  assigneeEmail,
		AttachmentURLs: stringList(fields[fieldAttachmentURLs]),
	}
}

// stringValue reads a field that should hold a string. Bitrix sends some
// single-valued fields as one-element lists, so the first non-empty string of a
// list is accepted too.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// stringList promotes a single string to a one-element list and drops empty or
// non-string list entries. Order is preserved; duplicates are kept.
func stringList(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return []string{}
		}
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(val))
		for _, s := range val {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
