package queue

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

var _ = Describe("ParseMessage", func() {
	It("parses a case_finalized entry as redis returns it", func() {
		msg, err := ParseMessage(redis.XMessage{
			ID: "1700000000000-0",
			Values: map[string]any{
				"task_type":  "case_finalized",
				"case_id":    "184467",
				"session_id": "b7c1",
				"trace_id":   "4bf92f3577b34da6a3ce929d0e0e4736",
				"attempt":    "2",
				"last_error": "llm timeout",
			},
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(msg.ID).To(Equal("1700000000000-0"))
		Expect(msg.TaskType).To(Equal(TaskTypeCaseFinalized))
		Expect(msg.CaseID).To(Equal(int64(184467)))
		Expect(msg.SessionID).To(Equal("b7c1"))
		Expect(msg.TraceID).To(Equal("4bf92f3577b34da6a3ce929d0e0e4736"))
		Expect(msg.Attempt).To(Equal(2))
		Expect(msg.LastError).To(Equal("llm timeout"))
	})

	It("defaults the attempt to 1", func() {
		msg, err := ParseMessage(redis.XMessage{Values: map[string]any{
			"task_type": "case_finalized",
			"case_id":   "7",
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Attempt).To(Equal(1))
	})

	DescribeTable("rejects broken entries",
		func(values map[string]any, want string) {
			_, err := ParseMessage(redis.XMessage{Values: values})
			Expect(err).To(MatchError(ContainSubstring(want)))
		},
		Entry("no task type", map[string]any{"case_id": "1"}, "missing task_type"),
		Entry("unknown task type", map[string]any{"task_type": "issue_event", "case_id": "1"}, "unknown task_type"),
		Entry("no case id", map[string]any{"task_type": "case_finalized"}, "missing case_id"),
		Entry("non numeric case id", map[string]any{"task_type": "case_finalized", "case_id": "abc"}, "parsing case_id"),
		Entry("zero case id", map[string]any{"task_type": "case_finalized", "case_id": "0"}, "invalid case_id"),
		Entry("bad attempt", map[string]any{"task_type": "case_finalized", "case_id": "1", "attempt": "x"}, "parsing attempt"),
	)
})

var _ = Describe("message values", func() {
	It("survives a requeue with the next attempt", func() {
		original := Message{
			ID:        "1-0",
			TaskType:  TaskTypeCaseFinalized,
			CaseID:    42,
			SessionID: "s-1",
			TraceID:   "abc",
			Attempt:   1,
		}

		values := messageValues(original, 2)
		Expect(values).To(HaveKeyWithValue("attempt", 2))
		Expect(values).NotTo(HaveKey("last_error"))

		parsed, err := ParseMessage(redis.XMessage{ID: "2-0", Values: values})
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.CaseID).To(Equal(int64(42)))
		Expect(parsed.SessionID).To(Equal("s-1"))
		Expect(parsed.TraceID).To(Equal("abc"))
		Expect(parsed.Attempt).To(Equal(2))
	})

	It("builds producer fields from a task", func() {
		task := CaseFinalized(9, "sess", "")
		fields, err := taskValues(task)
		Expect(err).NotTo(HaveOccurred())
		Expect(fields).To(Equal(map[string]any{
			"task_type":  "case_finalized",
			"case_id":    int64(9),
			"attempt":    1,
			"session_id": "sess",
		}))
	})

	It("refuses a task without a case", func() {
		_, err := taskValues(Task{TaskType: TaskTypeCaseFinalized})
		Expect(err).To(HaveOccurred())
	})
})
