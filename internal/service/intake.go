package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"difendimi.live/intake/common/logger"
	"difendimi.live/intake/internal/model"
	"difendimi.live/intake/internal/queue"
	"difendimi.live/intake/internal/store"
)

// ErrSessionBusy is returned when another request is working on the same session.
var ErrSessionBusy = errors.New("session busy")

const (
	saveAttempts   = 3
	saveRetryDelay = 50 * time.Millisecond
)

// IntakeLoop is the part of intake.Loop the service drives.
type IntakeLoop interface {
	SubmitUserStatement(ctx context.Context, conv model.CaseConversation, text string) model.LoopOutcome
	RetryPersistence(ctx context.Context, conv model.CaseConversation) model.LoopOutcome
	RetryAssessment(ctx context.Context, conv model.CaseConversation) model.LoopOutcome
}

type IntakeService interface {
	Start(ctx context.Context) (model.IntakeSession, error)
	Submit(ctx context.Context, sessionID, text string) (model.LoopOutcome, error)
	RetryPersistence(ctx context.Context, sessionID string) (model.LoopOutcome, error)
	RetryAssessment(ctx context.Context, sessionID string) (model.LoopOutcome, error)
	Get(ctx context.Context, sessionID string) (model.IntakeSession, error)
}

type intakeService struct {
	sessions store.SessionStore
	loop     IntakeLoop
	producer queue.Producer
	now      func() time.Time
	backoff  time.Duration
}

// NewIntakeService hosts conversations in sessions. producer may be nil, in
// which case finalized cases are not handed to the report worker.
func NewIntakeService(sessions store.SessionStore, loop IntakeLoop, producer queue.Producer) IntakeService {
	return &intakeService{
		sessions: sessions,
		loop:     loop,
		producer: producer,
		now:      time.Now,
		backoff:  saveRetryDelay,
	}
}

func (s *intakeService) Start(ctx context.Context) (model.IntakeSession, error) {
	now := s.now().UTC()
	sess := model.IntakeSession{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	sess.Conversation = model.NewConversation(sess.ID)

	if err := s.sessions.Save(ctx, sess); err != nil {
		return model.IntakeSession{}, fmt.Errorf("saving new session: %w", err)
	}

	slog.InfoContext(logger.WithLogFields(ctx, logger.LogFields{SessionID: &sess.ID}), "intake session started")
	return sess, nil
}

func (s *intakeService) Get(ctx context.Context, sessionID string) (model.IntakeSession, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return model.IntakeSession{}, fmt.Errorf("loading session: %w", err)
	}
	return sess, nil
}

func (s *intakeService) Submit(ctx context.Context, sessionID, text string) (model.LoopOutcome, error) {
	return s.step(ctx, sessionID, func(ctx context.Context, conv model.CaseConversation) model.LoopOutcome {
		return s.loop.SubmitUserStatement(ctx, conv, text)
	})
}

func (s *intakeService) RetryPersistence(ctx context.Context, sessionID string) (model.LoopOutcome, error) {
	return s.step(ctx, sessionID, func(ctx context.Context, conv model.CaseConversation) model.LoopOutcome {
		return s.loop.RetryPersistence(ctx, conv)
	})
}

func (s *intakeService) RetryAssessment(ctx context.Context, sessionID string) (model.LoopOutcome, error) {
	return s.step(ctx, sessionID, func(ctx context.Context, conv model.CaseConversation) model.LoopOutcome {
		return s.loop.RetryAssessment(ctx, conv)
	})
}

// step runs fn under the session lock and saves whatever conversation it hands back.
func (s *intakeService) step(ctx context.Context, sessionID string, fn func(context.Context, model.CaseConversation) model.LoopOutcome) (model.LoopOutcome, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{SessionID: &sessionID})

	unlock, err := s.sessions.Lock(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			return model.LoopOutcome{}, ErrSessionBusy
		}
		return model.LoopOutcome{}, fmt.Errorf("locking session: %w", err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			slog.WarnContext(ctx, "failed to release session lock", "error", err)
		}
	}()

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return model.LoopOutcome{}, fmt.Errorf("loading session: %w", err)
	}
	wasPersisted := sess.Conversation.IsPersisted()

	out := fn(ctx, sess.Conversation)

	sess.Conversation = out.Conversation
	sess.UpdatedAt = s.now().UTC()
	// A case may already be stored; a cancelled request must not lose that.
	saveErr := s.save(context.WithoutCancel(ctx), sess)

	// The case exists whether or not the session was saved.
	if out.Kind == model.OutcomeFinalized && !wasPersisted {
		s.publish(ctx, sess.ID, out.CaseID)
	}
	if saveErr != nil {
		return out, saveErr
	}
	return out, nil
}

func (s *intakeService) save(ctx context.Context, sess model.IntakeSession) error {
	var err error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		if err = s.sessions.Save(ctx, sess); err == nil {
			return nil
		}
		if attempt < saveAttempts {
			slog.WarnContext(ctx, "session save failed, retrying", "attempt", attempt, "error", err)
			time.Sleep(time.Duration(attempt) * s.backoff)
		}
	}
	return fmt.Errorf("saving session: %w", err)
}

// publish hands the case to the report worker. The case is already stored,
// so a failure here is logged and left to a manual requeue.
func (s *intakeService) publish(ctx context.Context, sessionID string, caseID int64) {
	if s.producer == nil {
		return
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{CaseID: &caseID})

	task := queue.CaseFinalized(caseID, sessionID, logger.TraceID(ctx))
	if err := s.producer.Enqueue(context.WithoutCancel(ctx), task); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue finalized case", "error", err)
	}
}
