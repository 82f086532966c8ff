package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"difendimi.live/intake/internal/intake"
	"difendimi.live/intake/internal/model"
	"difendimi.live/intake/internal/queue"
	"difendimi.live/intake/internal/service"
	"difendimi.live/intake/internal/store"
)

var _ = Describe("IntakeService", func() {
	var (
		ctx      context.Context
		sessions *mockSessionStore
		loop     *mockLoop
		producer *mockProducer
		svc      service.IntakeService
	)

	BeforeEach(func() {
		ctx = context.Background()
		sessions = &mockSessionStore{MemorySessionStore: store.NewMemorySessionStore()}
		loop = &mockLoop{}
		producer = &mockProducer{}
		svc = service.NewIntakeService(sessions, loop, producer)
	})

	finalizeWith := func(caseID int64) func(context.Context, model.CaseConversation, string) model.LoopOutcome {
		return func(_ context.Context, conv model.CaseConversation, _ string) model.LoopOutcome {
			conv.Status = model.CaseStatusComplete
			conv.CaseID = caseID
			return model.LoopOutcome{Kind: model.OutcomeFinalized, Conversation: conv, CaseID: caseID}
		}
	}

	It("starts an empty collecting session", func() {
		sess, err := svc.Start(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(sess.ID).To(HaveLen(36))
		Expect(sess.Conversation.SessionID).To(Equal(sess.ID))
		Expect(sess.Conversation.Status).To(Equal(model.CaseStatusCollecting))
		Expect(sess.Conversation.Turns).To(BeEmpty())

		loaded, err := svc.Get(ctx, sess.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.ID).To(Equal(sess.ID))
	})

	It("returns ErrNotFound for unknown sessions", func() {
		_, err := svc.Submit(ctx, "missing", "ciao")
		Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())

		_, err = svc.Get(ctx, "missing")
		Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
	})

	It("saves the conversation the loop returns and releases the lock", func() {
		sess, err := svc.Start(ctx)
		Expect(err).NotTo(HaveOccurred())

		loop.submitFn = func(_ context.Context, conv model.CaseConversation, text string) model.LoopOutcome {
			Expect(conv.SessionID).To(Equal(sess.ID))
			conv.Turns = append(conv.Turns,
				model.ConversationTurn{Speaker: model.SpeakerUser, Text: text},
				model.ConversationTurn{Speaker: model.SpeakerAssistant, Text: "Quando?"})
			return model.LoopOutcome{Kind: model.OutcomeContinue, Conversation: conv, QuestionText: "Quando?"}
		}

		out, err := svc.Submit(ctx, sess.ID, "Ho preso una multa")
		Expect(err).NotTo(HaveOccurred())
		Expect(out.QuestionText).To(Equal("Quando?"))

		loaded, err := svc.Get(ctx, sess.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Conversation.Turns).To(HaveLen(2))
		Expect(loaded.UpdatedAt).NotTo(BeTemporally("<", sess.UpdatedAt))

		unlock, err := sessions.Lock(ctx, sess.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(unlock(ctx)).To(Succeed())
		Expect(producer.tasks).To(BeEmpty())
	})

	It("refuses concurrent work on one session", func() {
		sess, err := svc.Start(ctx)
		Expect(err).NotTo(HaveOccurred())

		unlock, err := sessions.Lock(ctx, sess.ID)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = unlock(ctx) }()

		called := false
		loop.submitFn = func(_ context.Context, conv model.CaseConversation, _ string) model.LoopOutcome {
			called = true
			return model.LoopOutcome{Conversation: conv}
		}

		_, err = svc.Submit(ctx, sess.ID, "ciao")
		Expect(err).To(MatchError(service.ErrSessionBusy))
		Expect(called).To(BeFalse())
	})

	It("hands a finalized case to the report worker", func() {
		sess, err := svc.Start(ctx)
		Expect(err).NotTo(HaveOccurred())
		loop.submitFn = finalizeWith(4242)

		out, err := svc.Submit(ctx, sess.ID, "Ecco tutto")
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Kind).To(Equal(model.OutcomeFinalized))

		Expect(producer.tasks).To(HaveLen(1))
		Expect(producer.tasks[0].TaskType).To(Equal(queue.TaskTypeCaseFinalized))
		Expect(producer.tasks[0].CaseID).To(Equal(int64(4242)))
		Expect(producer.tasks[0].SessionID).To(Equal(sess.ID))
	})

	It("does not surface a publishing failure", func() {
		sess, err := svc.Start(ctx)
		Expect(err).NotTo(HaveOccurred())
		loop.submitFn = finalizeWith(7)
		producer.enqueueFn = func(context.Context, queue.Task) error {
			return errors.New("redis down")
		}

		out, err := svc.Submit(ctx, sess.ID, "Ecco tutto")
		Expect(err).NotTo(HaveOccurred())
		Expect(out.CaseID).To(Equal(int64(7)))

		loaded, _ := svc.Get(ctx, sess.ID)
		Expect(loaded.Conversation.CaseID).To(Equal(int64(7)))
	})

	It("works without a producer", func() {
		svc = service.NewIntakeService(sessions, loop, nil)
		sess, err := svc.Start(ctx)
		Expect(err).NotTo(HaveOccurred())
		loop.submitFn = finalizeWith(8)

		_, err = svc.Submit(ctx, sess.ID, "Ecco tutto")
		Expect(err).NotTo(HaveOccurred())
	})

	It("reports a failed save together with the outcome", func() {
		sess, err := svc.Start(ctx)
		Expect(err).NotTo(HaveOccurred())
		sessions.saveFn = func(context.Context, model.IntakeSession) error {
			return errors.New("redis down")
		}

		out, err := svc.Submit(ctx, sess.ID, "ciao")
		Expect(err).To(MatchError(ContainSubstring("saving session")))
		Expect(out.Kind).To(Equal(model.OutcomeContinue))
	})

	Describe("with a session store that fails to save", func() {
		var cases *store.MemoryCaseStore

		BeforeEach(func() {
			cases = store.NewMemoryCaseStore()
			svc = service.NewIntakeService(sessions, intake.New(completeOracle{}, cases, intake.Options{}), producer)
		})

		It("retries the save before giving up", func() {
			sess, err := svc.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			failures := 1
			sessions.saveFn = func(ctx context.Context, s model.IntakeSession) error {
				if failures > 0 {
					failures--
					return errors.New("redis blip")
				}
				return sessions.MemorySessionStore.Save(ctx, s)
			}

			out, err := svc.Submit(ctx, sess.ID, "Ho ricevuto una multa")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Kind).To(Equal(model.OutcomeFinalized))

			loaded, err := svc.Get(ctx, sess.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Conversation.CaseID).To(Equal(out.CaseID))
			Expect(producer.tasks).To(HaveLen(1))
		})

		It("hands the stored case to the worker and keeps one case per session", func() {
			sess, err := svc.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			sessions.saveFn = func(context.Context, model.IntakeSession) error {
				return errors.New("redis blip")
			}

			first, err := svc.Submit(ctx, sess.ID, "Ho ricevuto una multa")
			Expect(err).To(MatchError(ContainSubstring("saving session")))
			Expect(first.Kind).To(Equal(model.OutcomeFinalized))
			Expect(producer.tasks).To(HaveLen(1))
			Expect(producer.tasks[0].CaseID).To(Equal(first.CaseID))

			stale, err := svc.Get(ctx, sess.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stale.Conversation.IsPersisted()).To(BeFalse())

			sessions.saveFn = nil
			second, err := svc.Submit(ctx, sess.ID, "Ho ricevuto una multa")
			Expect(err).NotTo(HaveOccurred())
			Expect(second.CaseID).To(Equal(first.CaseID))

			stored, err := cases.List(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(1))
			for _, task := range producer.tasks {
				Expect(task.CaseID).To(Equal(first.CaseID))
			}
		})
	})

	Describe("RetryAssessment", func() {
		It("saves the conversation the retried assessment returns", func() {
			sess, err := svc.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			loop.assessFn = func(_ context.Context, conv model.CaseConversation) model.LoopOutcome {
				conv.Turns = append(conv.Turns, model.ConversationTurn{Speaker: model.SpeakerAssistant, Text: "Quando?"})
				conv.Status = model.CaseStatusCollecting
				return model.LoopOutcome{Kind: model.OutcomeContinue, Conversation: conv, QuestionText: "Quando?"}
			}

			out, err := svc.RetryAssessment(ctx, sess.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.QuestionText).To(Equal("Quando?"))

			loaded, err := svc.Get(ctx, sess.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Conversation.Turns).To(HaveLen(1))
		})

		It("returns ErrNotFound for unknown sessions", func() {
			_, err := svc.RetryAssessment(ctx, "missing")
			Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("RetryPersistence", func() {
		It("publishes once the pending case is stored", func() {
			sess, err := svc.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			loop.retryFn = func(_ context.Context, conv model.CaseConversation) model.LoopOutcome {
				conv.CaseID = 99
				return model.LoopOutcome{Kind: model.OutcomeFinalized, Conversation: conv, CaseID: 99}
			}

			out, err := svc.RetryPersistence(ctx, sess.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.CaseID).To(Equal(int64(99)))
			Expect(producer.tasks).To(HaveLen(1))
		})

		It("does not publish a case that was already stored", func() {
			sess, err := svc.Start(ctx)
			Expect(err).NotTo(HaveOccurred())
			loop.submitFn = finalizeWith(5)
			_, err = svc.Submit(ctx, sess.ID, "Ecco tutto")
			Expect(err).NotTo(HaveOccurred())
			Expect(producer.tasks).To(HaveLen(1))

			out, err := svc.RetryPersistence(ctx, sess.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Kind).To(Equal(model.OutcomeFinalized))
			Expect(producer.tasks).To(HaveLen(1))
		})
	})
})
