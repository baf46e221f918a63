package service_test

import (
	"context"
	"sync"

	"basegraph.app/crmrelay/internal/domain"
	"basegraph.app/crmrelay/internal/queue"
	"basegraph.app/crmrelay/internal/service/issue_tracker"
)

type mockTracker struct {
	resolveUserFn      func(ctx context.Context, email *string) (*domain.ResolvedUser, error)
	createIssueFn      func(ctx context.Context, params issue_tracker.CreateIssueParams) (*domain.CreatedIssue, error)
	createAttachmentFn func(ctx context.Context, params issue_tracker.CreateAttachmentParams) error

	mu               sync.Mutex
	resolveCalls     int
	createIssueCalls []issue_tracker.CreateIssueParams
	attachmentCalls  []issue_tracker.CreateAttachmentParams
}

func (m *mockTracker) ResolveUser(ctx context.Context, email *string) (*domain.ResolvedUser, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()
	if m.resolveUserFn != nil {
		return m.resolveUserFn(ctx, email)
	}
	return nil, nil
}

func (m *mockTracker) CreateIssue(ctx context.Context, params issue_tracker.CreateIssueParams) (*domain.CreatedIssue, error) {
	m.mu.Lock()
	m.createIssueCalls = append(m.createIssueCalls, params)
	m.mu.Unlock()
	if m.createIssueFn != nil {
		return m.createIssueFn(ctx, params)
	}
	return &domain.CreatedIssue{ID: "I1", Identifier: "ENG-1", Title: params.Title}, nil
}

func (m *mockTracker) CreateAttachment(ctx context.Context, params issue_tracker.CreateAttachmentParams) error {
	m.mu.Lock()
	m.attachmentCalls = append(m.attachmentCalls, params)
	m.mu.Unlock()
	if m.createAttachmentFn != nil {
		return m.createAttachmentFn(ctx, params)
	}
	return nil
}

func (m *mockTracker) attachments() []issue_tracker.CreateAttachmentParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]issue_tracker.CreateAttachmentParams(nil), m.attachmentCalls...)
}

type mockMirror struct {
	mirrorFn func(ctx context.Context, sourceURL string) (*domain.MirroredAttachment, error)

	mu    sync.Mutex
	calls int
}

func (m *mockMirror) Mirror(ctx context.Context, sourceURL string) (*domain.MirroredAttachment, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.mirrorFn != nil {
		return m.mirrorFn(ctx, sourceURL)
	}
	return nil, nil
}

func (m *mockMirror) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockPublisher struct {
	publishFn func(ctx context.Context, msg queue.IssueRelayed) error
	published []queue.IssueRelayed
}

func (m *mockPublisher) Publish(ctx context.Context, msg queue.IssueRelayed) error {
	m.published = append(m.published, msg)
	if m.publishFn != nil {
		return m.publishFn(ctx, msg)
	}
	return nil
}

func (m *mockPublisher) Close() error {
	return nil
}
