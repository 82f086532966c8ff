package store

import (
	"difendimi.live/intake/core/db/sqlc"
)

type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Cases() CaseStore {
	return newCaseStore(s.queries)
}

func (s *Stores) Reports() ReportStore {
	return newReportStore(s.queries)
}
