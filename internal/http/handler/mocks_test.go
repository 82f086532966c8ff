package handler_test

import (
	"context"

	"difendimi.live/intake/internal/model"
)

type mockIntakeService struct {
	startFn  func(ctx context.Context) (model.IntakeSession, error)
	submitFn func(ctx context.Context, sessionID, text string) (model.LoopOutcome, error)
	retryFn  func(ctx context.Context, sessionID string) (model.LoopOutcome, error)
	assessFn func(ctx context.Context, sessionID string) (model.LoopOutcome, error)
	getFn    func(ctx context.Context, sessionID string) (model.IntakeSession, error)
}

func (m *mockIntakeService) Start(ctx context.Context) (model.IntakeSession, error) {
	if m.startFn != nil {
		return m.startFn(ctx)
	}
	return model.IntakeSession{}, nil
}

func (m *mockIntakeService) Submit(ctx context.Context, sessionID, text string) (model.LoopOutcome, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, sessionID, text)
	}
	return model.LoopOutcome{}, nil
}

func (m *mockIntakeService) RetryPersistence(ctx context.Context, sessionID string) (model.LoopOutcome, error) {
	if m.retryFn != nil {
		return m.retryFn(ctx, sessionID)
	}
	return model.LoopOutcome{}, nil
}

func (m *mockIntakeService) RetryAssessment(ctx context.Context, sessionID string) (model.LoopOutcome, error) {
	if m.assessFn != nil {
		return m.assessFn(ctx, sessionID)
	}
	return model.LoopOutcome{}, nil
}

func (m *mockIntakeService) Get(ctx context.Context, sessionID string) (model.IntakeSession, error) {
	if m.getFn != nil {
		return m.getFn(ctx, sessionID)
	}
	return model.IntakeSession{}, nil
}

type mockCaseService struct {
	getFn     func(ctx context.Context, id int64) (model.FinalizedCase, error)
	listFn    func(ctx context.Context, limit int32) ([]model.FinalizedCase, error)
	reportFn  func(ctx context.Context, caseID int64) (model.Report, error)
	requeueFn func(ctx context.Context, id int64) error
}

func (m *mockCaseService) Get(ctx context.Context, id int64) (model.FinalizedCase, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return model.FinalizedCase{}, nil
}

func (m *mockCaseService) List(ctx context.Context, limit int32) ([]model.FinalizedCase, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockCaseService) Report(ctx context.Context, caseID int64) (model.Report, error) {
	if m.reportFn != nil {
		return m.reportFn(ctx, caseID)
	}
	return model.Report{}, nil
}

func (m *mockCaseService) Requeue(ctx context.Context, id int64) error {
	if m.requeueFn != nil {
		return m.requeueFn(ctx, id)
	}
	return nil
}
