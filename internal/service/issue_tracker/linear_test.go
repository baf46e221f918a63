package issue_tracker_test

import (
	"context"
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/crmrelay/core/config"
	"basegraph.app/crmrelay/internal/domain"
	"basegraph.app/crmrelay/internal/service/issue_tracker"
)

const usersPage = `{"data":{"users":{"nodes":[
	{"id":"U0","email":null},
	{"id":"U1","email":"A@B.com"},
	{"id":"U2","email":"a@b.com"}
]}}}`

var _ = Describe("LinearIssueTrackerService", func() {
	var (
		fake    *fakeLinear
		tracker issue_tracker.IssueTrackerService
		ctx     context.Context
	)

	newTracker := func(respond func(req recordedRequest) (int, string)) {
		fake = newFakeLinear(respond)
		client := issue_tracker.NewClient(config.TrackerConfig{
			APIURL:  fake.URL(),
			APIKey:  "key",
			Timeout: 5 * time.Second,
		}, nil)
		tracker = issue_tracker.NewLinearIssueTrackerService(client, "team-1")
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		fake.Close()
	})

	Describe("ResolveUser", func() {
		It("makes no request when the email is absent or blank", func() {
			newTracker(func(req recordedRequest) (int, string) { return http.StatusOK, usersPage })

			user, err := tracker.ResolveUser(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(user).To(BeNil())

			blank := ""
			user, err = tracker.ResolveUser(ctx, &blank)
			Expect(err).NotTo(HaveOccurred())
			Expect(user).To(BeNil())

			Expect(fake.Requests()).To(BeEmpty())
		})

		It("returns the first case-insensitive match from one page of 200 users", func() {
			newTracker(func(req recordedRequest) (int, string) { return http.StatusOK, usersPage })

			email := "a@b.com"
			user, err := tracker.ResolveUser(ctx, &email)
			Expect(err).NotTo(HaveOccurred())
			Expect(user).To(Equal(&domain.ResolvedUser{ID: "U1"}))

			reqs := fake.Requests()
			Expect(reqs).To(HaveLen(1))
			Expect(isQuery(reqs[0], "users(first: $first)")).To(BeTrue())
			Expect(reqs[0].Variables).To(HaveKeyWithValue("first", BeNumerically("==", issue_tracker.UserLookupPageSize)))
		})

		It("returns nil without error when nobody matches", func() {
			newTracker(func(req recordedRequest) (int, string) { return http.StatusOK, usersPage })

			email := "nobody@b.com"
			user, err := tracker.ResolveUser(ctx, &email)
			Expect(err).NotTo(HaveOccurred())
			Expect(user).To(BeNil())
		})

		It("propagates tracker errors", func() {
			newTracker(func(req recordedRequest) (int, string) {
				return http.StatusOK, `{"errors":[{"message":"rate limited"}]}`
			})

			email := "a@b.com"
			_, err := tracker.ResolveUser(ctx, &email)
			var appErr *issue_tracker.ApplicationError
			Expect(errors.As(err, &appErr)).To(BeTrue())
		})
	})

	Describe("CreateIssue", func() {
		const created = `{"data":{"issueCreate":{"success":true,"issue":{"id":"I1","identifier":"ENG-42","title":"Fix pump","url":"https://linear.app/acme/issue/ENG-42"}}}}`

		It("creates the issue in the configured team with the assignee", func() {
			newTracker(func(req recordedRequest) (int, string) { return http.StatusOK, created })

			assignee := "U1"
			issue, err := tracker.CreateIssue(ctx, issue_tracker.CreateIssueParams{
				Title:       "Fix pump",
				Description: "urgent",
				AssigneeID:  &assignee,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(issue.ID).To(Equal("I1"))
			Expect(issue.Identifier).To(Equal("ENG-42"))
			Expect(issue.Title).To(Equal("Fix pump"))
			Expect(issue.URL).To(Equal("https://linear.app/acme/issue/ENG-42"))

			req := fake.Requests()[0]
			Expect(isQuery(req, "issueCreate")).To(BeTrue())
			Expect(req.Variables).To(HaveKeyWithValue("input", SatisfyAll(
				HaveKeyWithValue("title", "Fix pump"),
				HaveKeyWithValue("description", "urgent"),
				HaveKeyWithValue("teamId", "team-1"),
				HaveKeyWithValue("assigneeId", "U1"),
			)))
		})

		It("omits assigneeId when there is no assignee", func() {
			newTracker(func(req recordedRequest) (int, string) { return http.StatusOK, created })

			_, err := tracker.CreateIssue(ctx, issue_tracker.CreateIssueParams{Title: "t", Description: "d"})
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.Requests()[0].Variables["input"]).NotTo(HaveKey("assigneeId"))
		})

		It("fails when the tracker reports no issue", func() {
			newTracker(func(req recordedRequest) (int, string) {
				return http.StatusOK, `{"data":{"issueCreate":{"success":false,"issue":null}}}`
			})

			_, err := tracker.CreateIssue(ctx, issue_tracker.CreateIssueParams{Title: "t", Description: "d"})
			Expect(err).To(MatchError(issue_tracker.ErrIssueNotCreated))
		})

		It("wraps application errors so callers can still classify them", func() {
			newTracker(func(req recordedRequest) (int, string) {
				return http.StatusBadRequest, `{"errors":[{"message":"teamId is invalid"}]}`
			})

			_, err := tracker.CreateIssue(ctx, issue_tracker.CreateIssueParams{Title: "t", Description: "d"})
			Expect(err).To(MatchError(ContainSubstring("creating linear issue")))
			var appErr *issue_tracker.ApplicationError
			Expect(errors.As(err, &appErr)).To(BeTrue())
			Expect(appErr.Messages()).To(ConsistOf("teamId is invalid"))
		})
	})

	Describe("CreateAttachment", func() {
		It("links the URL to the issue", func() {
			newTracker(func(req recordedRequest) (int, string) {
				return http.StatusOK, `{"data":{"attachmentCreate":{"success":true,"attachment":{"id":"A1","title":"t","url":"u"}}}}`
			})

			err := tracker.CreateAttachment(ctx, issue_tracker.CreateAttachmentParams{
				IssueID: "I1",
				Title:   "Attachment: file.pdf",
				URL:     "https://files.example.com/attachments/file.pdf",
			})
			Expect(err).NotTo(HaveOccurred())

			req := fake.Requests()[0]
			Expect(isQuery(req, "attachmentCreate")).To(BeTrue())
			Expect(req.Variables["input"]).To(Equal(map[string]any{
				"issueId": "I1",
				"title":   "Attachment: file.pdf",
				"url":     "https://files.example.com/attachments/file.pdf",
			}))
		})

		It("fails when the tracker does not confirm the attachment", func() {
			newTracker(func(req recordedRequest) (int, string) {
				return http.StatusOK, `{"data":{"attachmentCreate":{"success":false}}}`
			})

			err := tracker.CreateAttachment(ctx, issue_tracker.CreateAttachmentParams{IssueID: "I1", Title: "t", URL: "u"})
			Expect(err).To(HaveOccurred())
		})
	})
})
