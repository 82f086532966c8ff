package oracle_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"difendimi.live/intake/common/llm"
	"difendimi.live/intake/internal/model"
	"difendimi.live/intake/internal/oracle"
)

var _ = Describe("StructuredOracle", func() {
	var (
		ctx    context.Context
		client *mockLLMClient
		o      *oracle.StructuredOracle
		req    oracle.Request
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &mockLLMClient{}
		o = oracle.NewStructuredOracle(client)
		req = oracle.Request{
			LatestResponse: "Il 3 marzo",
			PreviousContext: []oracle.ContextMessage{
				{Role: "user", Content: "Ho ricevuto una multa"},
				{Role: "assistant", Content: "Quando hai ricevuto la multa?"},
			},
		}
	})

	It("keeps history and latest response in separate prompt sections", func() {
		client.chatFn = func(_ context.Context, r llm.Request, result any) (*llm.Response, error) {
			Expect(r.SchemaName).To(Equal("completeness_assessment"))
			Expect(r.Schema).NotTo(BeNil())
			Expect(r.UserPrompt).To(ContainSubstring("## STORICO\nUtente: Ho ricevuto una multa\nAssistente: Quando hai ricevuto la multa?\n"))
			Expect(r.UserPrompt).To(HaveSuffix("## ULTIMA RISPOSTA\nIl 3 marzo\n"))
			return &llm.Response{}, fillResult(`{
				"completeness": {"score": 55, "status": "incomplete", "missingElements": []},
				"nextQuestion": {"text": "Dove è avvenuta l'infrazione?", "type": "open", "options": []},
				"analysis": {"keyFacts": [], "legalIssues": [], "suggestedKeywords": [], "relevantInstitutes": [], "recommendedDocuments": []}
			}`, result)
		}

		a, err := o.Assess(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Score).To(Equal(55))
		Expect(a.NextQuestion.Text).To(Equal("Dove è avvenuta l'infrazione?"))
	})

	It("marks an empty history explicitly", func() {
		client.chatFn = func(_ context.Context, r llm.Request, result any) (*llm.Response, error) {
			Expect(r.UserPrompt).To(HavePrefix("## STORICO\n(nessun messaggio precedente)\n"))
			return &llm.Response{}, fillResult(`{"completeness":{"score":10,"status":"incomplete","missingElements":[]},"nextQuestion":{"text":"Cosa è successo?","type":"open","options":[]},"analysis":{}}`, result)
		}

		_, err := o.Assess(ctx, oracle.Request{LatestResponse: "Aiuto"})
		Expect(err).NotTo(HaveOccurred())
	})

	It("maps an empty strict-mode question to no question", func() {
		client.chatFn = func(_ context.Context, _ llm.Request, result any) (*llm.Response, error) {
			return &llm.Response{}, fillResult(`{"completeness":{"score":96,"status":"sufficient","missingElements":[]},"nextQuestion":{"text":"","type":"open","options":[]},"analysis":{}}`, result)
		}

		a, err := o.Assess(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.NextQuestion).To(BeNil())
		Expect(a.StatusHint).To(Equal(model.StatusHintSufficient))
	})

	It("reports unusable model output as malformed", func() {
		client.chatFn = func(context.Context, llm.Request, any) (*llm.Response, error) {
			return nil, fmt.Errorf("%w: model refused", llm.ErrInvalidOutput)
		}

		_, err := o.Assess(ctx, req)
		Expect(oracle.IsMalformed(err)).To(BeTrue())
	})

	It("reports provider failures as unreachable", func() {
		client.chatFn = func(context.Context, llm.Request, any) (*llm.Response, error) {
			return nil, fmt.Errorf("openai chat: %w", errors.New("connection refused"))
		}

		_, err := o.Assess(ctx, req)
		Expect(oracle.IsUnreachable(err)).To(BeTrue())
	})

	It("keeps deadline errors visible through the wrap", func() {
		client.chatFn = func(context.Context, llm.Request, any) (*llm.Response, error) {
			return nil, fmt.Errorf("openai chat: %w", context.DeadlineExceeded)
		}

		_, err := o.Assess(ctx, req)
		Expect(oracle.IsUnreachable(err)).To(BeTrue())
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
	})

	It("validates the decoded answer", func() {
		client.chatFn = func(_ context.Context, _ llm.Request, result any) (*llm.Response, error) {
			return &llm.Response{}, fillResult(`{"completeness":{"score":140,"status":"complete","missingElements":[]},"nextQuestion":{"text":"","type":"open","options":[]},"analysis":{}}`, result)
		}

		_, err := o.Assess(ctx, req)
		Expect(oracle.IsMalformed(err)).To(BeTrue())
	})
})
