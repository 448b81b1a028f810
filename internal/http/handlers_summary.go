package http

import (
	"encoding/json"
	"net/http"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	days, err := s.summary.GetMonthlySummary(r.Context(), auth.FromContext(r.Context()), params.Mode, params.Year, params.Month)
	if err != nil {
		logReportFailure(r, log.OpMonthly, params, err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleYearlySummary(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	months, err := s.summary.GetYearlySummary(r.Context(), auth.FromContext(r.Context()), params.Mode, params.Year)
	if err != nil {
		logReportFailure(r, log.OpYearly, params, err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, months)
}

func (s *Server) handleRunningBalance(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	balances, err := s.summary.GetRunningBalance(r.Context(), auth.FromContext(r.Context()), params.Mode, params.Year)
	if err != nil {
		logReportFailure(r, log.OpBalance, params, err)
		writeError(w, r, err)
		return
	}
	out := make([]json.Number, len(balances))
	for i, b := range balances {
		out[i] = core.Number(b)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	dash, err := s.summary.GetDashboard(r.Context(), auth.FromContext(r.Context()), params.Mode, params.Year, params.Month)
	if err != nil {
		logReportFailure(r, log.OpDashboard, params, err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func logReportFailure(r *http.Request, op string, params MonthParams, err error) {
	fields := log.NewFields().
		WithOperation(op).
		WithPeriod(params.Year, params.Month).
		WithError(err)
	if p := auth.FromContext(r.Context()); p != nil {
		fields = fields.WithLedger(p.ID, string(params.Mode), "")
	}
	log.FromContext(r.Context()).WarnContext(r.Context(), "Report request failed", fields.ToSlice()...)
}
