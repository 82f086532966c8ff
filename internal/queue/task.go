package queue

type TaskType string

const (
	// TaskTypeCaseFinalized asks the report worker to build the report for a
	// freshly stored case.
	TaskTypeCaseFinalized TaskType = "case_finalized"
)

type Task struct {
	TaskType  TaskType
	CaseID    int64
	SessionID string
	TraceID   *string
	Attempt   int
}

// CaseFinalized builds the handoff task for a stored case.
func CaseFinalized(caseID int64, sessionID, traceID string) Task {
	t := Task{
		TaskType:  TaskTypeCaseFinalized,
		CaseID:    caseID,
		SessionID: sessionID,
		Attempt:   1,
	}
	if traceID != "" {
		t.TraceID = &traceID
	}
	return t
}
