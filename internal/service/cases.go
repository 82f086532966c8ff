package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"difendimi.live/intake/internal/model"
	"difendimi.live/intake/internal/queue"
	"difendimi.live/intake/internal/store"
)

var (
	ErrReportReady = errors.New("report already generated")
	ErrNoTxRunner  = errors.New("case requeue needs a database")
	ErrNoQueue     = errors.New("case requeue needs a queue")
)

const defaultListLimit int32 = 20

type CaseService interface {
	Get(ctx context.Context, id int64) (model.FinalizedCase, error)
	List(ctx context.Context, limit int32) ([]model.FinalizedCase, error)
	Report(ctx context.Context, caseID int64) (model.Report, error)
	// Requeue resets the report state of a case and publishes it again.
	Requeue(ctx context.Context, id int64) error
}

type caseService struct {
	cases    store.CaseStore
	reports  store.ReportStore
	txRunner TxRunner
	producer queue.Producer
}

func NewCaseService(cases store.CaseStore, reports store.ReportStore, txRunner TxRunner, producer queue.Producer) CaseService {
	return &caseService{
		cases:    cases,
		reports:  reports,
		txRunner: txRunner,
		producer: producer,
	}
}

func (s *caseService) Get(ctx context.Context, id int64) (model.FinalizedCase, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		return model.FinalizedCase{}, fmt.Errorf("getting case: %w", err)
	}
	return c, nil
}

func (s *caseService) List(ctx context.Context, limit int32) ([]model.FinalizedCase, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultListLimit
	}
	cases, err := s.cases.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}
	return cases, nil
}

func (s *caseService) Report(ctx context.Context, caseID int64) (model.Report, error) {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		return model.Report{}, fmt.Errorf("getting case: %w", err)
	}
	r, err := s.reports.GetByCase(ctx, caseID)
	if err != nil {
		return model.Report{}, fmt.Errorf("getting report: %w", err)
	}
	return r, nil
}

func (s *caseService) Requeue(ctx context.Context, id int64) error {
	if s.txRunner == nil {
		return ErrNoTxRunner
	}
	if s.producer == nil {
		return ErrNoQueue
	}

	var c model.FinalizedCase
	err := s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		var err error
		c, err = stores.Cases().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("getting case: %w", err)
		}
		if c.ReportState == model.ReportStateReady {
			return ErrReportReady
		}
		// Also frees a case stuck in generating after a worker crash.
		return stores.Cases().SetReportState(ctx, id, model.ReportStatePending)
	})
	if err != nil {
		return err
	}

	if err := s.producer.Enqueue(ctx, queue.CaseFinalized(c.ID, c.SessionID, "")); err != nil {
		return fmt.Errorf("enqueueing case: %w", err)
	}

	slog.InfoContext(ctx, "case requeued for report", "case_id", id, "previous_state", c.ReportState)
	return nil
}
