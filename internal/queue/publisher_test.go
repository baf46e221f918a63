package queue_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"basegraph.app/crmrelay/internal/queue"
)

var _ = Describe("Publisher", func() {
	msg := queue.IssueRelayed{
		DeliveryID:      1,
		IssueID:         "I1",
		IssueIdentifier: "ENG-42",
		Attachments:     []string{"https://files.example.com/attachments/file.pdf"},
	}

	It("accepts every message when notifications are disabled", func() {
		publisher := queue.NewNoopPublisher()
		Expect(publisher.Publish(context.Background(), msg)).To(Succeed())
		Expect(publisher.Close()).To(Succeed())
	})

	It("reports an unreachable Redis as a publish error", func() {
		client := redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			MaxRetries:  -1,
			DialTimeout: 200 * time.Millisecond,
		})
		publisher := queue.NewRedisPublisher(client, "crmrelay_issues", 100, nil)
		defer publisher.Close()

		err := publisher.Publish(context.Background(), msg)
		Expect(err).To(MatchError(ContainSubstring("publish issue_relayed")))
	})

	Describe("stream entry", func() {
		var (
			hook      *recordingHook
			publisher queue.Publisher
		)

		BeforeEach(func() {
			client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
			hook = &recordingHook{}
			client.AddHook(hook)
			publisher = queue.NewRedisPublisher(client, "crmrelay_issues", 1000, slog.New(slog.NewTextHandler(io.Discard, nil)))
		})

		AfterEach(func() {
			_ = publisher.Close()
		})

		It("appends one capped XADD with the delivery fields", func() {
			assignee := "U1"
			relayed := msg
			relayed.IssueURL = "https://linear.app/x/issue/ENG-42"
			relayed.AssigneeID = &assignee
			relayed.AttachmentsFailed = 2

			Expect(publisher.Publish(context.Background(), relayed)).To(Succeed())

			cmds := hook.commands()
			Expect(cmds).To(HaveLen(1))
			options, fields := xaddFields(cmds[0])
			Expect(options).To(Equal([]any{"xadd", "crmrelay_issues", "maxlen", "~", int64(1000)}))
			Expect(fields).To(HaveKeyWithValue("event_type", queue.EventTypeIssueRelayed))
			Expect(fields).To(HaveKeyWithValue("delivery_id", BeEquivalentTo(1)))
			Expect(fields).To(HaveKeyWithValue("issue_id", "I1"))
			Expect(fields).To(HaveKeyWithValue("issue_identifier", "ENG-42"))
			Expect(fields).To(HaveKeyWithValue("issue_url", "https://linear.app/x/issue/ENG-42"))
			Expect(fields).To(HaveKeyWithValue("assignee_id", "U1"))
			Expect(fields).To(HaveKeyWithValue("attachments_failed", BeEquivalentTo(2)))
			Expect(fields["attachments"]).To(MatchJSON(`["https://files.example.com/attachments/file.pdf"]`))
		})

		It("omits the assignee and encodes no attachments as an empty JSON list", func() {
			Expect(publisher.Publish(context.Background(), queue.IssueRelayed{
				DeliveryID:  2,
				IssueID:     "I2",
				Attachments: []string{},
			})).To(Succeed())

			_, fields := xaddFields(hook.commands()[0])
			Expect(fields).NotTo(HaveKey("assignee_id"))
			Expect(fields["attachments"]).To(MatchJSON(`[]`))
		})
	})
})
