package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"difendimi.live/intake/common/logger"
	"difendimi.live/intake/internal/metrics"
	"difendimi.live/intake/internal/model"
	"difendimi.live/intake/internal/queue"
	"difendimi.live/intake/internal/store"
)

// Mirrors service.StoreProvider - defined here to avoid import cycles.
type StoreProvider interface {
	Cases() store.CaseStore
	Reports() store.ReportStore
}

// Mirrors service.TxRunner - defined here to avoid import cycles.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type Config struct {
	MaxAttempts int
	// ErrorBackoff is the pause after a failed read.
	ErrorBackoff time.Duration
}

// Worker turns case_finalized tasks into stored reports.
type Worker struct {
	consumer  Consumer
	cases     store.CaseStore
	txRunner  TxRunner
	generator ReportGenerator
	cfg       Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, cases store.CaseStore, txRunner TxRunner, generator ReportGenerator, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}
	return &Worker{
		consumer:  consumer,
		cases:     cases,
		txRunner:  txRunner,
		generator: generator,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "intake.worker"})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				select {
				case <-ctx.Done():
				case <-w.stopCh:
				case <-time.After(w.cfg.ErrorBackoff):
				}
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		w.Handle(ctx, msg)
	}
	return nil
}

// Handle processes msg and requeues or dead-letters it on failure. The
// reclaimer uses it for stale pending entries.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) {
	if err := w.processMessageSafe(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "message processing failed",
			"error", err,
			"message_id", msg.ID,
			"case_id", msg.CaseID)
		w.handleFailedMessage(ctx, msg, err)
	}
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"case_id", msg.CaseID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage claims the case, generates its report and stores it. The
// message is acked on success and on skips; errors leave it to the caller.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	msgID := msg.ID
	caseID := msg.CaseID
	attempt := msg.Attempt
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: &msgID,
		CaseID:    &caseID,
		Attempt:   &attempt,
	})
	if msg.SessionID != "" {
		ctx = logger.WithLogFields(ctx, logger.LogFields{SessionID: logger.Ptr(msg.SessionID)})
	}

	var sc *logger.SpanContext
	if msg.TraceID != "" {
		sc = logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.case_report")
	} else {
		sc = logger.StartSpan(ctx, "worker.case_report")
	}
	defer sc.End()
	ctx = sc.Context()
	sc.SetAttributes(
		attribute.Int64("case.id", msg.CaseID),
		attribute.Int("queue.attempt", msg.Attempt),
	)

	slog.InfoContext(ctx, "processing message", "last_error", msg.LastError)

	c, err := w.cases.ClaimForReport(ctx, msg.CaseID)
	switch {
	case errors.Is(err, store.ErrNotClaimable), errors.Is(err, store.ErrNotFound):
		slog.InfoContext(ctx, "case not claimable, skipping", "reason", err)
		metrics.ObserveReportJob(metrics.ReportSkipped)
		w.ack(ctx, msg)
		return nil
	case err != nil:
		sc.RecordError(err)
		return fmt.Errorf("claiming case: %w", err)
	}

	start := time.Now()
	r, err := w.generator.Generate(ctx, c)
	if err != nil {
		sc.RecordError(err)
		w.release(ctx, c.ID)
		return fmt.Errorf("generating report: %w", err)
	}
	r.CaseID = c.ID

	txErr := w.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		if _, err := sp.Reports().Create(ctx, r); err != nil {
			return fmt.Errorf("storing report: %w", err)
		}
		if err := sp.Cases().SetReportState(ctx, c.ID, model.ReportStateReady); err != nil {
			return fmt.Errorf("marking case ready: %w", err)
		}
		return nil
	})
	if txErr != nil {
		sc.RecordError(txErr)
		w.release(ctx, c.ID)
		return fmt.Errorf("transaction failed: %w", txErr)
	}

	metrics.ObserveReportJob(metrics.ReportGenerated)
	slog.InfoContext(ctx, "report stored",
		"documents", len(r.Documents),
		"duration_ms", time.Since(start).Milliseconds())

	w.ack(ctx, msg)
	return nil
}

// release marks a claimed case as failed so a retry can claim it again.
func (w *Worker) release(ctx context.Context, caseID int64) {
	if err := w.cases.SetReportState(ctx, caseID, model.ReportStateFailed); err != nil {
		slog.ErrorContext(ctx, "failed to release case claim", "error", err)
	}
}

func (w *Worker) ack(ctx context.Context, msg queue.Message) {
	if err := w.consumer.Ack(ctx, msg); err != nil {
		// The reclaimer will redeliver; a second claim is a no-op.
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"message_id", msg.ID)
	}
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"case_id", msg.CaseID,
			"attempts", msg.Attempt)
		metrics.ObserveReportJob(metrics.ReportDeadLetter)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"case_id", msg.CaseID,
		"attempt", msg.Attempt)
	metrics.ObserveReportJob(metrics.ReportFailed)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
