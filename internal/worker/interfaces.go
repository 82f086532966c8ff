package worker

import (
	"context"

	"difendimi.live/intake/internal/model"
	"difendimi.live/intake/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// ReportGenerator drafts the report for a claimed case.
type ReportGenerator interface {
	Generate(ctx context.Context, c model.FinalizedCase) (model.Report, error)
}
