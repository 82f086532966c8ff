// Package intake drives the case intake conversation: one oracle call per user
// statement, and a single case store write once the facts are complete.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"difendimi.live/intake/common/logger"
	"difendimi.live/intake/common/redact"
	"difendimi.live/intake/internal/metrics"
	"difendimi.live/intake/internal/model"
	"difendimi.live/intake/internal/oracle"
)

var (
	ErrEmptyInput         = errors.New("statement is empty")
	ErrConversationClosed = errors.New("conversation is already complete")
	ErrMissingQuestion    = fmt.Errorf("%w: non-terminal assessment without a next question", oracle.ErrMalformed)
	ErrNothingToPersist   = errors.New("conversation has no pending case")
	ErrNothingToRetry     = errors.New("conversation has no unanswered statement")
)

// CaseCreator is the one store operation the loop needs.
type CaseCreator interface {
	Create(ctx context.Context, c model.FinalizedCase) (int64, error)
}

type Options struct {
	// OracleTimeout bounds each oracle call. Zero means the caller's context decides.
	OracleTimeout time.Duration
	// Acknowledgement replaces DefaultAcknowledgement when set.
	Acknowledgement string
	Now             func() time.Time
}

// Loop is stateless between calls; conversations are passed in and returned.
// Calls for the same conversation must be serialized by the caller.
type Loop struct {
	oracle oracle.Oracle
	cases  CaseCreator
	opts   Options
}

func New(o oracle.Oracle, cases CaseCreator, opts Options) *Loop {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Acknowledgement == "" {
		opts.Acknowledgement = DefaultAcknowledgement
	}
	return &Loop{oracle: o, cases: cases, opts: opts}
}

// SubmitUserStatement runs one intake step for text. The returned outcome
// always carries the conversation the caller should keep; conv is not modified.
func (l *Loop) SubmitUserStatement(ctx context.Context, conv model.CaseConversation, text string) model.LoopOutcome {
	ctx = l.withLogFields(ctx, conv)

	if conv.Status == model.CaseStatusComplete {
		return l.finish(ctx, errorOutcome(conv, model.ReasonConversationClosed, ErrConversationClosed))
	}
	if strings.TrimSpace(text) == "" {
		return l.finish(ctx, errorOutcome(conv, model.ReasonEmptyInput, ErrEmptyInput))
	}

	slog.DebugContext(ctx, "user statement received",
		"turns", len(conv.Turns),
		"text", logger.Truncate(redact.Text(text), 120))

	next := conv.Clone()
	if pending, ok := unanswered(next); ok {
		// The oracle never answered the last statement. Resending it is a retry;
		// anything else extends it, so turns keep alternating.
		if strings.TrimSpace(pending.Text) != strings.TrimSpace(text) {
			pending.Text = pending.Text + "\n\n" + text
			next.Turns[len(next.Turns)-1] = pending
		}
		return l.assessAndAdvance(ctx, conv, next)
	}

	next.Turns = append(next.Turns, l.turn(next, model.SpeakerUser, text))
	return l.assessAndAdvance(ctx, conv, next)
}

// RetryAssessment repeats the oracle call for a user turn that got no answer,
// typically after a timeout. The transcript is not extended.
func (l *Loop) RetryAssessment(ctx context.Context, conv model.CaseConversation) model.LoopOutcome {
	ctx = l.withLogFields(ctx, conv)

	if conv.Status == model.CaseStatusComplete {
		return l.finish(ctx, errorOutcome(conv, model.ReasonConversationClosed, ErrConversationClosed))
	}
	if _, ok := unanswered(conv); !ok {
		return l.finish(ctx, errorOutcome(conv, model.ReasonNothingToRetry, ErrNothingToRetry))
	}
	return l.assessAndAdvance(ctx, conv, conv.Clone())
}

// assessAndAdvance asks the oracle about the last turn of next, which must be
// a user turn, and applies the decision. conv is returned unchanged when the
// caller cancels.
func (l *Loop) assessAndAdvance(ctx context.Context, conv, next model.CaseConversation) model.LoopOutcome {
	last := len(next.Turns) - 1
	req := oracle.Request{
		LatestResponse:  next.Turns[last].Text,
		PreviousContext: oracle.ContextFromTurns(next.Turns[:last]),
	}

	assessment, err := l.assess(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			// The caller walked away: no assistant reply will follow this turn.
			return l.finish(ctx, errorOutcome(conv, model.ReasonOracleUnreachable, err))
		}
		next.Status = model.CaseStatusError
		reason := model.ReasonOracleUnreachable
		if oracle.IsMalformed(err) {
			reason = model.ReasonOracleMalformed
		}
		return l.finish(ctx, errorOutcome(next, reason, err))
	}

	score := assessment.Score
	next.CompletenessScore = &score

	if IsComplete(assessment) {
		ack := l.opts.Acknowledgement
		if assessment.NextQuestion != nil {
			ack = assessment.NextQuestion.Text
		}
		next.Turns = append(next.Turns, l.turn(next, model.SpeakerAssistant, ack))
		next.Status = model.CaseStatusComplete
		next.Pending = l.finalize(next, assessment)
		return l.finish(ctx, l.persist(ctx, next, ack))
	}

	if assessment.NextQuestion == nil {
		next.Status = model.CaseStatusError
		return l.finish(ctx, errorOutcome(next, model.ReasonOracleMalformed, ErrMissingQuestion))
	}

	question := assessment.NextQuestion.Text
	next.Turns = append(next.Turns, l.turn(next, model.SpeakerAssistant, question))
	next.Status = model.CaseStatusCollecting

	return l.finish(ctx, model.LoopOutcome{
		Kind:         model.OutcomeContinue,
		Conversation: next,
		QuestionText: question,
	})
}

// RetryPersistence repeats only the store write of a finished conversation.
// A conversation that already has a case id is returned as finalized without
// touching the store.
func (l *Loop) RetryPersistence(ctx context.Context, conv model.CaseConversation) model.LoopOutcome {
	ctx = l.withLogFields(ctx, conv)

	if conv.IsPersisted() {
		return model.LoopOutcome{
			Kind:         model.OutcomeFinalized,
			Conversation: conv,
			CaseID:       conv.CaseID,
		}
	}
	if conv.Status != model.CaseStatusComplete || conv.Pending == nil {
		return l.finish(ctx, errorOutcome(conv, model.ReasonNothingToPersist, ErrNothingToPersist))
	}

	ack := ""
	if last, ok := conv.LastTurn(); ok && last.Speaker == model.SpeakerAssistant {
		ack = last.Text
	}
	return l.finish(ctx, l.persist(ctx, conv.Clone(), ack))
}

func (l *Loop) assess(ctx context.Context, req oracle.Request) (model.OracleAssessment, error) {
	callCtx := ctx
	if l.opts.OracleTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, l.opts.OracleTimeout)
		defer cancel()
	}

	start := time.Now()
	assessment, err := l.oracle.Assess(callCtx, req)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		metrics.ObserveOracleCall(metrics.ResultOK, elapsed)
		return assessment, nil
	case errors.Is(ctx.Err(), context.Canceled):
		metrics.ObserveOracleCall(metrics.ResultCanceled, elapsed)
		return model.OracleAssessment{}, fmt.Errorf("%w: %w", oracle.ErrUnreachable, ctx.Err())
	case oracle.IsMalformed(err):
		metrics.ObserveOracleCall(metrics.ResultMalformed, elapsed)
		return model.OracleAssessment{}, err
	default:
		metrics.ObserveOracleCall(metrics.ResultUnreachable, elapsed)
		if !oracle.IsUnreachable(err) {
			err = fmt.Errorf("%w: %w", oracle.ErrUnreachable, err)
		}
		return model.OracleAssessment{}, err
	}
}

// persist issues the single Create for conv.Pending. On failure the
// conversation stays complete and keeps Pending for RetryPersistence.
func (l *Loop) persist(ctx context.Context, conv model.CaseConversation, ack string) model.LoopOutcome {
	caseID, err := l.cases.Create(ctx, *conv.Pending)
	if err != nil {
		out := errorOutcome(conv, model.ReasonPersistenceFailed, fmt.Errorf("creating case: %w", err))
		out.QuestionText = ack
		return out
	}

	conv.CaseID = caseID
	conv.Pending = nil

	return model.LoopOutcome{
		Kind:         model.OutcomeFinalized,
		Conversation: conv,
		QuestionText: ack,
		CaseID:       caseID,
	}
}

func (l *Loop) finalize(conv model.CaseConversation, a model.OracleAssessment) *model.FinalizedCase {
	snapshot := make([]model.ConversationTurn, len(conv.Turns))
	copy(snapshot, conv.Turns)

	return &model.FinalizedCase{
		SessionID:         conv.SessionID,
		OriginalText:      conv.UserText(),
		Conversation:      snapshot,
		Facts:             a.Facts,
		CompletenessScore: a.Score,
		ReportState:       model.ReportStatePending,
		CreatedAt:         snapshot[len(snapshot)-1].Timestamp,
	}
}

// turn stamps a new turn, never earlier than the previous one.
func (l *Loop) turn(conv model.CaseConversation, speaker model.Speaker, text string) model.ConversationTurn {
	now := l.opts.Now().UTC()
	if last, ok := conv.LastTurn(); ok && now.Before(last.Timestamp) {
		now = last.Timestamp
	}
	return model.ConversationTurn{Speaker: speaker, Text: text, Timestamp: now}
}

// unanswered returns the last turn when it is a user turn still waiting for
// the oracle.
func unanswered(conv model.CaseConversation) (model.ConversationTurn, bool) {
	last, ok := conv.LastTurn()
	if !ok || last.Speaker != model.SpeakerUser {
		return model.ConversationTurn{}, false
	}
	return last, true
}

func (l *Loop) withLogFields(ctx context.Context, conv model.CaseConversation) context.Context {
	fields := logger.LogFields{Component: "intake.loop"}
	if conv.SessionID != "" {
		fields.SessionID = logger.Ptr(conv.SessionID)
	}
	return logger.WithLogFields(ctx, fields)
}

func (l *Loop) finish(ctx context.Context, out model.LoopOutcome) model.LoopOutcome {
	metrics.ObserveOutcome(string(out.Kind), string(out.Reason))

	attrs := []any{
		"kind", out.Kind,
		"status", out.Conversation.Status,
		"turns", len(out.Conversation.Turns),
	}
	if out.Conversation.CompletenessScore != nil {
		attrs = append(attrs, "score", *out.Conversation.CompletenessScore)
	}

	switch out.Kind {
	case model.OutcomeError:
		attrs = append(attrs, "reason", out.Reason, "retryable", out.Retryable(), "error", out.Err)
		if out.Reason == model.ReasonEmptyInput || out.Reason == model.ReasonConversationClosed {
			slog.InfoContext(ctx, "intake statement rejected", attrs...)
		} else {
			slog.WarnContext(ctx, "intake step failed", attrs...)
		}
	case model.OutcomeFinalized:
		slog.InfoContext(logger.WithLogFields(ctx, logger.LogFields{CaseID: logger.Ptr(out.CaseID)}),
			"intake conversation finalized", attrs...)
	default:
		slog.InfoContext(ctx, "intake step completed", attrs...)
	}

	return out
}

func errorOutcome(conv model.CaseConversation, reason model.ErrorReason, err error) model.LoopOutcome {
	return model.LoopOutcome{
		Kind:         model.OutcomeError,
		Conversation: conv,
		Reason:       reason,
		Err:          err,
	}
}
