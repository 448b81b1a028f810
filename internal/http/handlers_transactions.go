package http

import (
	"net/http"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := ParseMonthParams(q, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.transactions.ListTransactions(r.Context(), auth.FromContext(r.Context()), core.Kind(q.Get("kind")), params.Mode, params.Year, params.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTransactionRequest(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.transactions.CreateTransaction(r.Context(), auth.FromContext(r.Context()), req.kind(r), req.mode(r), req.fields())
	if err != nil {
		writeError(w, r, err)
		return
	}
	logWrite(r, log.OpCreate, tx)
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTransactionRequest(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.transactions.UpdateTransaction(r.Context(), auth.FromContext(r.Context()), r.PathValue("id"), req.kind(r), req.mode(r), req.fields())
	if err != nil {
		writeError(w, r, err)
		return
	}
	logWrite(r, log.OpUpdate, tx)
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	q := r.URL.Query()
	err := s.transactions.DeleteTransaction(r.Context(), auth.FromContext(r.Context()), id, core.Kind(q.Get("kind")), core.AccountMode(q.Get("type")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func logWrite(r *http.Request, op string, tx core.Transaction) {
	fields := log.NewFields().
		WithOperation(op).
		WithLedger(tx.OwnerID, string(tx.Mode), string(tx.Kind)).
		WithPeriod(tx.Date.Year(), tx.Date.Month())
	fields[log.FieldTxID] = tx.ID
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction written", fields.ToSlice()...)
}
