package chat

import (
	"time"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/dvloznov/monomind/internal/pipeline"
)

// newRunRecord summarises a finished run for the audit log. Only
// deterministic facts are kept; message content is not.
func newRunRecord(state *pipeline.State, runErr error, started, finished time.Time) domain.RunRecord {
	rec := domain.RunRecord{
		RunID:      state.RunID,
		UserID:     state.UserID,
		SessionID:  state.SessionID,
		Intent:     state.Intent,
		Status:     domain.RunSucceeded,
		Degraded:   append([]string(nil), state.Degraded...),
		StartedAt:  started,
		FinishedAt: finished,
	}
	for _, st := range state.Trace {
		rec.Stages = append(rec.Stages, string(st))
	}

	if runErr != nil {
		rec.Status = domain.RunFailed
		rec.Failure = pipeline.FailureKind(runErr)
	}

	if m := state.Metrics; m != nil {
		rec.Balance = &m.Balance
		rec.BurnRate = &m.BurnRate
		rec.MonthlyIncome = &m.MonthlyIncome
		rec.RunwayMonths = &m.RunwayMonths
	}
	if v := state.Verdict; v != nil {
		rec.Reason = v.Reason
		rec.IsRisky = v.IsRisky
	}
	return rec
}
