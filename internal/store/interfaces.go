package store

import (
	"context"
	"errors"

	"difendimi.live/intake/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrNotClaimable is returned when a case exists but its report is already
// being generated or done.
var ErrNotClaimable = errors.New("case not claimable")

// ErrLocked is returned when another request holds the session lock.
var ErrLocked = errors.New("session locked")

// CaseStore defines the contract for finalized case data access.
// Create is the only write the intake loop performs.
type CaseStore interface {
	Create(ctx context.Context, c model.FinalizedCase) (int64, error)
	GetByID(ctx context.Context, id int64) (model.FinalizedCase, error)
	List(ctx context.Context, limit int32) ([]model.FinalizedCase, error)
	ClaimForReport(ctx context.Context, id int64) (model.FinalizedCase, error)
	SetReportState(ctx context.Context, id int64, state model.ReportState) error
}

// ReportStore defines the contract for generated report data access
type ReportStore interface {
	Create(ctx context.Context, r model.Report) (model.Report, error)
	GetByCase(ctx context.Context, caseID int64) (model.Report, error)
}

// SessionStore keeps in-flight intake conversations between requests.
type SessionStore interface {
	Save(ctx context.Context, s model.IntakeSession) error
	Get(ctx context.Context, id string) (model.IntakeSession, error)
	// Lock takes the single-writer lock for a session. It returns ErrLocked
	// when the lock is held elsewhere.
	Lock(ctx context.Context, id string) (Unlock, error)
}

// Unlock releases a session lock. Releasing an expired lock is not an error.
type Unlock func(ctx context.Context) error
