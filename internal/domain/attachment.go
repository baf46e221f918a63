package domain

type MirroredAttachment struct {
	SourceURL   string
	Filename    string
	ContentType string
	Key         string // object storage key, e.g. "attachments/file.pdf"
	PublicURL   string
}

// AttachmentOutcome is the per-URL result of mirroring and linking. Attachment
// is set once the file is mirrored; Err is set when mirroring or linking failed.
type AttachmentOutcome struct {
	SourceURL  string
	Attachment *MirroredAttachment
	Err        error
}

// Linked reports whether the attachment was mirrored and linked to the issue.
func (o AttachmentOutcome) Linked() bool {
	return o.Attachment != nil && o.Err == nil
}

// ProcessResult is what one completed delivery produced.
type ProcessResult struct {
	Issue         CreatedIssue
	AssigneeEmail *string
	AssigneeID    *string
	Attachments   []MirroredAttachment // linked attachments, in input order
	Outcomes      []AttachmentOutcome  // one per input URL, in input order
}

// FailedAttachments counts outcomes that did not end up linked.
func (r ProcessResult) FailedAttachments() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Linked() {
			n++
		}
	}
	return n
}
