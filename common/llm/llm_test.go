package llm_test

import (
	"context"
	"errors"
	"fmt"

	"difendimi.live/intake/common/llm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type toolArgs struct {
	Score  int      `json:"score" jsonschema:"description=Completeness score"`
	Status string   `json:"status"`
	Tags   []string `json:"tags,omitempty"`
}

var _ = Describe("ParseToolArguments", func() {
	It("decodes JSON arguments into the target type", func() {
		args, err := llm.ParseToolArguments[toolArgs](`{"score":40,"status":"incomplete"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(args.Score).To(Equal(40))
		Expect(args.Status).To(Equal("incomplete"))
	})

	It("wraps decoding errors", func() {
		_, err := llm.ParseToolArguments[toolArgs](`{"score":`)
		Expect(err).To(MatchError(ContainSubstring("parse tool arguments")))
	})
})

var _ = Describe("IsRetryable", func() {
	ctx := context.Background()

	It("never retries invalid output", func() {
		err := fmt.Errorf("%w: no choices in response", llm.ErrInvalidOutput)
		Expect(llm.IsRetryable(ctx, err)).To(BeFalse())
	})

	It("does not retry cancelled calls", func() {
		Expect(llm.IsRetryable(ctx, context.Canceled)).To(BeFalse())
	})

	It("retries plain network errors", func() {
		Expect(llm.IsRetryable(ctx, errors.New("connection reset by peer"))).To(BeTrue())
	})

	It("ignores nil", func() {
		Expect(llm.IsRetryable(ctx, nil)).To(BeFalse())
	})
})
