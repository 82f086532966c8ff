package worker_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"difendimi.live/intake/internal/worker"
)

var _ = Describe("Reclaimer", func() {
	var (
		ctx      context.Context
		streams  *fakeStreams
		consumer *mockConsumer
		handler  *mockHandler
		r        *worker.Reclaimer
	)

	BeforeEach(func() {
		ctx = context.Background()
		streams = &fakeStreams{claimed: map[string][]redis.XMessage{}}
		consumer = &mockConsumer{}
		handler = &mockHandler{}
		r = worker.NewReclaimer(streams, worker.ReclaimerConfig{
			Stream:   "intake_cases",
			Group:    "report_workers",
			Consumer: "w-1-reclaimer",
			MinIdle:  5 * time.Minute,
		}, consumer, handler)
	})

	It("does nothing without stale entries", func() {
		n, err := r.ReclaimOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
		Expect(streams.claims).To(BeEmpty())
	})

	It("hands claimed entries to the handler", func() {
		streams.pending = []redis.XPendingExt{{ID: "1-0", Consumer: "w-0", Idle: 10 * time.Minute}}
		streams.claimed["1-0"] = []redis.XMessage{{
			ID:     "1-0",
			Values: map[string]any{"task_type": "case_finalized", "case_id": "12", "attempt": "2"},
		}}

		n, err := r.ReclaimOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
		Expect(handler.handled).To(HaveLen(1))
		Expect(handler.handled[0].CaseID).To(Equal(int64(12)))
		Expect(handler.handled[0].Attempt).To(Equal(2))
	})

	It("skips entries another reclaimer got first", func() {
		streams.pending = []redis.XPendingExt{{ID: "1-0"}}

		n, err := r.ReclaimOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
		Expect(streams.claims).To(Equal([]string{"1-0"}))
		Expect(handler.handled).To(BeEmpty())
	})

	It("acks entries it cannot parse", func() {
		streams.pending = []redis.XPendingExt{{ID: "2-0"}}
		streams.claimed["2-0"] = []redis.XMessage{{ID: "2-0", Values: map[string]any{"task_type": "issue_event"}}}

		n, err := r.ReclaimOnce(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
		Expect(consumer.acked).To(Equal([]string{"2-0"}))
		Expect(handler.handled).To(BeEmpty())
	})
})
