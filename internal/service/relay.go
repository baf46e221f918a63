package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"basegraph.app/crmrelay/common/logger"
	"basegraph.app/crmrelay/core/config"
	"basegraph.app/crmrelay/internal/domain"
	"basegraph.app/crmrelay/internal/mapper"
	"basegraph.app/crmrelay/internal/queue"
	"basegraph.app/crmrelay/internal/service/issue_tracker"
)

const AttachmentTitlePrefix = "Attachment: "

type RelayParams struct {
	DeliveryID int64
	Event      domain.InboundEvent
}

// RelayService turns one CRM event into one tracker issue with its attachments.
type RelayService interface {
	Process(ctx context.Context, params RelayParams) (*domain.ProcessResult, error)
}

type RelayConfig struct {
	Tracker     config.TrackerConfig
	Storage     config.StorageConfig
	Concurrency int // attachments mirrored in parallel
}

type relayService struct {
	cfg       RelayConfig
	mapper    mapper.IssueRequestMapper
	tracker   issue_tracker.IssueTrackerService
	mirror    AttachmentMirror
	publisher queue.Publisher
	logger    *slog.Logger
}

func NewRelayService(
	cfg RelayConfig,
	mapper mapper.IssueRequestMapper,
	tracker issue_tracker.IssueTrackerService,
	mirror AttachmentMirror,
	publisher queue.Publisher,
	logger *slog.Logger,
) RelayService {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = queue.NewNoopPublisher()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &relayService{
		cfg:       cfg,
		mapper:    mapper,
		tracker:   tracker,
		mirror:    mirror,
		publisher: publisher,
		logger:    logger,
	}
}

// Process runs normalize, resolve assignee, create issue, mirror attachments.
// Errors before the issue exists abort the delivery; attachment errors after
// that are recorded per URL and never fail it.
func (s *relayService) Process(ctx context.Context, params RelayParams) (*domain.ProcessResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DeliveryID: logger.Ptr(params.DeliveryID),
		Component:  "crmrelay.service.relay",
	})
	sc := logger.StartSpan(ctx, "relay.process")
	defer sc.End()
	ctx = sc.Context()

	req := s.mapper.Map(ctx, params.Event)

	if err := s.preflight(req); err != nil {
		sc.RecordError(err)
		s.logger.ErrorContext(ctx, "relay misconfigured", "error", err)
		return nil, err
	}

	assigneeID, err := s.resolveAssignee(ctx, req.AssigneeEmail)
	if err != nil {
		sc.RecordError(err)
		return nil, err
	}

	issue, err := s.createIssue(ctx, req, assigneeID)
	if err != nil {
		sc.RecordError(err)
		return nil, err
	}
	sc.SetAttributes(attribute.String("linear.issue.identifier", issue.Identifier))
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		IssueID:         logger.Ptr(issue.ID),
		IssueIdentifier: logger.Ptr(issue.Identifier),
	})

	outcomes := s.mirrorAttachments(ctx, issue.ID, req.AttachmentURLs)

	result := &domain.ProcessResult{
		Issue:         *issue,
		AssigneeEmail: req.AssigneeEmail,
		AssigneeID:    assigneeID,
		Attachments:   []domain.MirroredAttachment{},
		Outcomes:      outcomes,
	}
	for _, o := range outcomes {
		if o.Linked() {
			result.Attachments = append(result.Attachments, *o.Attachment)
		}
	}

	s.logger.InfoContext(ctx, "issue relayed",
		"attachments_requested", len(req.AttachmentURLs),
		"attachments_linked", len(result.Attachments),
		"assigned", assigneeID != nil,
	)

	s.notify(ctx, params.DeliveryID, result)

	return result, nil
}

// preflight fails fast on missing settings before any network call. Storage
// settings only matter when the event carries attachments.
func (s *relayService) preflight(req domain.IssueRequest) error {
	if err := s.cfg.Tracker.Validate(); err != nil {
		return err
	}
	if req.HasAttachments() {
		if err := s.cfg.Storage.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *relayService) resolveAssignee(ctx context.Context, email *string) (*string, error) {
	if email == nil {
		return nil, nil
	}

	sc := logger.StartSpan(ctx, "relay.resolve_assignee")
	defer sc.End()
	ctx = sc.Context()

	user, err := s.tracker.ResolveUser(ctx, email)
	if err != nil {
		sc.RecordError(err)
		s.logger.ErrorContext(ctx, "assignee lookup failed", "error", err)
		return nil, fmt.Errorf("resolving assignee: %w", err)
	}
	if user == nil {
		s.logger.InfoContext(ctx, "assignee not found, creating unassigned issue", "assignee_email", *email)
		return nil, nil
	}
	return &user.ID, nil
}

func (s *relayService) createIssue(ctx context.Context, req domain.IssueRequest, assigneeID *string) (*domain.CreatedIssue, error) {
	sc := logger.StartSpan(ctx, "relay.create_issue")
	defer sc.End()
	ctx = sc.Context()

	issue, err := s.tracker.CreateIssue(ctx, issue_tracker.CreateIssueParams{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  assigneeID,
	})
	if err != nil {
		sc.RecordError(err)
		s.logger.ErrorContext(ctx, "issue creation failed", "error", err)
		return nil, fmt.Errorf("creating issue: %w", err)
	}
	if issue.Title == "" {
		issue.Title = req.Title
	}

	s.logger.InfoContext(ctx, "issue created", "issue_id", issue.ID, "issue_identifier", issue.Identifier)
	return issue, nil
}

// mirrorAttachments processes urls on a bounded pool. Each URL owns one slot of
// the result, so ordering follows the input regardless of completion order.
func (s *relayService) mirrorAttachments(ctx context.Context, issueID string, urls []string) []domain.AttachmentOutcome {
	outcomes := make([]domain.AttachmentOutcome, len(urls))
	if len(urls) == 0 {
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, sourceURL := range urls {
		g.Go(func() error {
			outcomes[i] = s.mirrorOne(ctx, issueID, sourceURL)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (s *relayService) mirrorOne(ctx context.Context, issueID, sourceURL string) domain.AttachmentOutcome {
	ctx = logger.WithLogFields(ctx, logger.LogFields{AttachmentURL: logger.Ptr(sourceURL)})
	sc := logger.StartSpan(ctx, "relay.mirror_attachment")
	defer sc.End()
	ctx = sc.Context()

	attachment, err := s.mirror.Mirror(ctx, sourceURL)
	if err != nil {
		sc.RecordError(err)
		s.logger.WarnContext(ctx, "attachment mirror failed, skipping", "error", err)
		return domain.AttachmentOutcome{SourceURL: sourceURL, Err: err}
	}

	if err := s.tracker.CreateAttachment(ctx, issue_tracker.CreateAttachmentParams{
		IssueID: issueID,
		Title:   AttachmentTitlePrefix + attachment.Filename,
		URL:     attachment.PublicURL,
	}); err != nil {
		sc.RecordError(err)
		s.logger.WarnContext(ctx, "attachment link failed, skipping", "error", err, "public_url", attachment.PublicURL)
		return domain.AttachmentOutcome{
			SourceURL:  sourceURL,
			Attachment: attachment,
			Err:        fmt.Errorf("linking attachment: %w", err),
		}
	}

	s.logger.DebugContext(ctx, "attachment linked", "public_url", attachment.PublicURL, "content_type", attachment.ContentType)
	return domain.AttachmentOutcome{SourceURL: sourceURL, Attachment: attachment}
}

func (s *relayService) notify(ctx context.Context, deliveryID int64, result *domain.ProcessResult) {
	publicURLs := make([]string, 0, len(result.Attachments))
	for _, a := range result.Attachments {
		publicURLs = append(publicURLs, a.PublicURL)
	}

	if err := s.publisher.Publish(ctx, queue.IssueRelayed{
		DeliveryID:        deliveryID,
		IssueID:           result.Issue.ID,
		IssueIdentifier:   result.Issue.Identifier,
		IssueURL:          result.Issue.URL,
		AssigneeID:        result.AssigneeID,
		Attachments:       publicURLs,
		AttachmentsFailed: result.FailedAttachments(),
	}); err != nil {
		s.logger.WarnContext(ctx, "relay notification failed", "error", err)
	}
}
